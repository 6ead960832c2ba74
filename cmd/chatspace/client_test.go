package main

import (
	"bytes"
	"chatspace/domain"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseCommand(t *testing.T) {
	tests := []struct {
		line string
		name string
		args []string
	}{
		{line: "", name: ""},
		{line: "   ", name: ""},
		{line: "/", name: ""},
		{line: "hello there", name: "say"},
		{line: "/DM Bob", name: "dm", args: []string{"Bob"}},
		{line: " /channel ops bob carol ", name: "channel", args: []string{"ops", "bob", "carol"}},
		{line: "/quit", name: "quit", args: []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.line, func(t *testing.T) {
			name, args := parseCommand(tt.line)
			require.Equal(t, tt.name, name)
			require.Equal(t, len(tt.args), len(args))
			for i := range tt.args {
				require.Equal(t, tt.args[i], args[i])
			}
		})
	}
}

func TestRenderChats(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	renderChats(&out, []domain.Chat{
		domain.NewGlobalChat(),
		{ID: "dm_1", Name: "bob", Kind: domain.KindDM, Participants: []string{"bob"}, CreatedBy: "alice"},
	}, "bob", "dm_1")

	req.Contains(out.String(), "Global Chat")
	req.Contains(out.String(), "everyone")
	// bob sees the DM under the name of the other side
	req.Contains(out.String(), "alice")
}

func TestRenderTimeline(t *testing.T) {
	req := require.New(t)
	var out bytes.Buffer

	renderTimeline(&out, []domain.Message{
		{Sender: "alice", Text: "first", Timestamp: "09:00"},
		{Sender: "bob", Text: "second", Timestamp: "09:01"},
	})

	req.Less(bytes.Index(out.Bytes(), []byte("first")), bytes.Index(out.Bytes(), []byte("second")))
	req.Contains(out.String(), "[09:00]")
}
