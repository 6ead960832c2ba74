package main

import (
	"bufio"
	"chatspace/domain"
	"chatspace/projection"
	"chatspace/runtime"
	"chatspace/services"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/gookit/color"
)

const help = `/join <username> [photoURL]   pick your username
/tab channels|dms             switch tab
/open <chatID>                open a chat
/dm <user>                    open a DM
/channel <name> [users...]    create a channel
/invite <user>                stage an invite to the current channel
/uninvite <user>              unstage an invite
/commit                       write the staged invites
/search <words>               search the current chat
/users                        list known users
/resync                       reload everything from the store
/quit                         leave
anything else is sent to the current chat`

type client struct {
	service     services.IChatService
	session     *runtime.Session
	out         io.Writer
	searchLimit int
	tab         domain.ChatKind
	current     string
	inviting    bool
}

func newClient(service services.IChatService, session *runtime.Session, out io.Writer, searchLimit int) *client {
	return &client{
		service:     service,
		session:     session,
		out:         out,
		searchLimit: searchLimit,
		tab:         domain.KindChannel,
		current:     domain.GlobalChatID,
	}
}

// Run reads commands until /quit, end of input or ctx is done.
// Input and store updates are handled one at a time.
func (c *client) Run(ctx context.Context, in io.Reader) error {
	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			select {
			case lines <- scanner.Text():
			case <-ctx.Done():
				return
			}
		}
	}()

	fmt.Fprintln(c.out, help)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-c.session.Updates():
			c.render()
		case line, ok := <-lines:
			if !ok {
				return nil
			}
			quit, err := c.handle(ctx, line)
			if err != nil {
				fmt.Fprintln(c.out, color.Red.Sprint(err.Error()))
			}
			if quit {
				return nil
			}
		}
	}
}

func (c *client) handle(ctx context.Context, line string) (bool, error) {
	name, args := parseCommand(line)
	switch name {
	case "":
		return false, nil
	case "quit":
		return true, nil
	case "help":
		fmt.Fprintln(c.out, help)
	case "join":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /join <username> [photoURL]")
		}
		cmd := domain.JoinCommand{Username: args[0]}
		if len(args) > 1 {
			cmd.PhotoURL = args[1]
		}
		user, err := c.service.Join(ctx, cmd)
		if err != nil {
			return false, err
		}
		fmt.Fprintln(c.out, color.Green.Sprintf("welcome %s", user.Username))
	case "tab":
		if len(args) == 1 && strings.HasPrefix(args[0], "dm") {
			c.tab = domain.KindDM
		} else {
			c.tab = domain.KindChannel
		}
		c.render()
	case "open":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /open <chatID>")
		}
		c.open(args[0])
	case "dm":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /dm <user>")
		}
		chat, err := c.service.OpenDM(ctx, args[0])
		if err != nil {
			return false, err
		}
		c.tab = domain.KindDM
		c.open(chat.ID)
	case "channel":
		if len(args) == 0 {
			return false, fmt.Errorf("usage: /channel <name> [users...]")
		}
		chat, err := c.service.CreateChannel(ctx, args[0], args[1:])
		if err != nil {
			return false, err
		}
		c.tab = domain.KindChannel
		c.open(chat.ID)
	case "invite":
		if len(args) != 1 {
			return false, fmt.Errorf("usage: /invite <user>")
		}
		if !c.inviting {
			if err := c.service.BeginInvite(c.current); err != nil {
				return false, err
			}
			c.inviting = true
		}
		if err := c.service.StageInvite(args[0]); err != nil {
			return false, err
		}
		fmt.Fprintf(c.out, "staged: %s\n", strings.Join(c.service.StagedInvites(), ", "))
	case "uninvite":
		if len(args) == 1 {
			c.service.RemoveInvite(args[0])
		}
		fmt.Fprintf(c.out, "staged: %s\n", strings.Join(c.service.StagedInvites(), ", "))
	case "commit":
		chat, err := c.service.CommitInvite(ctx)
		if err != nil {
			return false, err
		}
		c.inviting = false
		fmt.Fprintf(c.out, "%s members: %s\n", chat.Name, strings.Join(chat.Participants, ", "))
	case "search":
		found, err := c.service.SearchMessages(ctx, domain.SearchCommand{
			ChatID: c.current,
			Query:  strings.Join(args, " "),
			Limit:  c.searchLimit,
		})
		if err != nil {
			return false, err
		}
		renderTimeline(c.out, found)
	case "users":
		renderUsers(c.out, c.session.View().Users)
	case "resync":
		c.session.Resync(ctx)
	case "say":
		if _, err := c.service.SendMessage(ctx, c.current, line); err != nil {
			return false, err
		}
	}
	return false, nil
}

func (c *client) open(chatID string) {
	if c.current != chatID {
		c.inviting = false
	}
	c.current = chatID
	c.render()
}

func (c *client) render() {
	view := c.session.View()
	username := c.session.Username()
	chat := projection.Chat(view, c.current)
	renderHeader(c.out, username, chat)
	renderChats(c.out, projection.VisibleTo(projection.ChatsForTab(view, c.tab), username), username, c.current)
	renderTimeline(c.out, projection.Timeline(view, chat.ID))
}

// parseCommand splits "/name a b" into ("name", [a b]). Plain text yields "say".
func parseCommand(line string) (string, []string) {
	line = strings.TrimSpace(line)
	if line == "" {
		return "", nil
	}
	if !strings.HasPrefix(line, "/") {
		return "say", nil
	}
	fields := strings.Fields(line[1:])
	if len(fields) == 0 {
		return "", nil
	}
	return strings.ToLower(fields[0]), fields[1:]
}
