package main

import (
	"chatspace/domain"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/gookit/color"
	"github.com/olekukonko/tablewriter"
)

func renderHeader(out io.Writer, username string, chat domain.Chat) {
	who := username
	if who == "" {
		who = "(no username, /join first)"
	}
	header := fmt.Sprintf(" %s | %s ", who, chat.DisplayName(username))
	fmt.Fprintln(out, color.New(color.BgBlack, color.FgGreen).Render(header))
}

func renderChats(out io.Writer, chats []domain.Chat, viewer, current string) {
	table := newTable(out)
	table.SetHeader([]string{"", "ID", "Name", "Members"})
	for _, chat := range chats {
		marker := ""
		if chat.ID == current {
			marker = ">"
		}
		members := strings.Join(chat.Participants, ", ")
		if chat.IsOpen() {
			members = "everyone"
		}
		table.Append([]string{marker, chat.ID, chat.DisplayName(viewer), members})
	}
	table.Render()
}

func renderTimeline(out io.Writer, messages []domain.Message) {
	for _, m := range messages {
		fmt.Fprintf(out, "[%s] %s: %s\n", m.Timestamp, color.Cyan.Sprint(m.Sender), m.Text)
	}
}

func renderUsers(out io.Writer, users []domain.User) {
	table := newTable(out)
	table.SetHeader([]string{"Username", "Joined"})
	for _, u := range users {
		joined := "-"
		if u.JoinedAt > 0 {
			joined = time.UnixMilli(u.JoinedAt).UTC().Format("2006-01-02 15:04")
		}
		table.Append([]string{u.Username, joined})
	}
	table.Render()
}

func newTable(out io.Writer) *tablewriter.Table {
	table := tablewriter.NewWriter(out)
	table.SetAutoWrapText(false)
	table.SetAutoFormatHeaders(true)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetTablePadding("\t")
	return table
}
