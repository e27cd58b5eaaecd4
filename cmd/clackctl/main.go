package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ggaspari/clack/internal/api"
	"github.com/ggaspari/clack/internal/config"
	"github.com/ggaspari/clack/internal/lock"
	"github.com/ggaspari/clack/internal/model"
	"github.com/ggaspari/clack/internal/session"
)

func main() {
	sessionFlag := flag.String("session", "", "session name (overrides config default)")
	jsonFlag := flag.Bool("json", false, "output in JSON format")
	flag.Parse()

	sessionName := session.Resolve(*sessionFlag)
	if err := session.ValidateName(sessionName); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	args := flag.Args()
	if len(args) == 0 {
		printUsage()
		os.Exit(1)
	}

	cfg, err := config.LoadSession(session.SessionConfigPath(sessionName))
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: cannot load session %q: %v\n", sessionName, err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "error: session %q: %v\n", sessionName, err)
		os.Exit(1)
	}

	sess := &session.Session{Name: sessionName, UserID: cfg.UserID, Token: cfg.Token}
	client, err := api.New(cfg.ServerURL, sess, cfg.RequestTimeout(), zap.NewNop())
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	switch args[0] {
	case "status":
		cmdStatus(sessionName, cfg, *jsonFlag)
	case "channels":
		cmdChannels(ctx, client, *jsonFlag)
	case "inbox":
		cmdInbox(ctx, client, *jsonFlag)
	case "history":
		requireArgs(args, 2, "usage: clackctl history <channel-id>")
		cmdHistory(ctx, client, args[1], cfg.EffectivePageSize(), *jsonFlag)
	case "send":
		requireArgs(args, 3, "usage: clackctl send <channel-id> <text>")
		cmdSend(ctx, client, args[1], "", strings.Join(args[2:], " "), *jsonFlag)
	case "reply":
		requireArgs(args, 4, "usage: clackctl reply <channel-id> <message-id> <text>")
		cmdSend(ctx, client, args[1], args[2], strings.Join(args[3:], " "), *jsonFlag)
	case "thread":
		requireArgs(args, 3, "usage: clackctl thread <channel-id> <message-id>")
		cmdThread(ctx, client, args[1], args[2], *jsonFlag)
	case "read":
		requireArgs(args, 2, "usage: clackctl read <channel-id>")
		cmdRead(ctx, client, args[1])
	case "search":
		requireArgs(args, 2, "usage: clackctl search <query>")
		cmdSearch(ctx, client, strings.Join(args[1:], " "), *jsonFlag)
	case "create":
		requireArgs(args, 2, "usage: clackctl create <name> [kind]")
		kind := model.KindPublic
		if len(args) >= 3 {
			kind = model.ChannelKind(args[2])
		}
		cmdCreate(ctx, client, args[1], kind, *jsonFlag)
	case "delete":
		requireArgs(args, 2, "usage: clackctl delete <channel-id>")
		cmdDelete(ctx, client, args[1])
	case "dm":
		requireArgs(args, 2, "usage: clackctl dm <user-id>")
		cmdDM(ctx, client, args[1], *jsonFlag)
	default:
		fmt.Fprintf(os.Stderr, "unknown command: %s\n", args[0])
		printUsage()
		os.Exit(1)
	}
}

func printUsage() {
	fmt.Fprintln(os.Stderr, "usage: clackctl [--session <name>] [--json] <command>")
	fmt.Fprintln(os.Stderr, "")
	fmt.Fprintln(os.Stderr, "commands:")
	fmt.Fprintln(os.Stderr, "  status                            Show session and daemon status")
	fmt.Fprintln(os.Stderr, "  channels                          List the channel directory")
	fmt.Fprintln(os.Stderr, "  inbox                             Show per-channel unread counts")
	fmt.Fprintln(os.Stderr, "  history <channel-id>              Show the newest messages of a channel")
	fmt.Fprintln(os.Stderr, "  send <channel-id> <text>          Send a message")
	fmt.Fprintln(os.Stderr, "  reply <channel-id> <id> <text>    Reply in a message's thread")
	fmt.Fprintln(os.Stderr, "  thread <channel-id> <id>          Show a message's thread")
	fmt.Fprintln(os.Stderr, "  read <channel-id>                 Mark a channel as read")
	fmt.Fprintln(os.Stderr, "  search <query>                    Search messages")
	fmt.Fprintln(os.Stderr, "  create <name> [kind]              Create a channel (public, private, announcement)")
	fmt.Fprintln(os.Stderr, "  delete <channel-id>               Delete a channel")
	fmt.Fprintln(os.Stderr, "  dm <user-id>                      Open a direct message channel")
}

func requireArgs(args []string, n int, usage string) {
	if len(args) < n {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(1)
	}
}

func fatal(err error) {
	if api.IsPermissionDenied(err) {
		fmt.Fprintf(os.Stderr, "error: permission denied: %v\n", err)
	} else {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
	}
	os.Exit(1)
}

func cmdStatus(sessionName string, cfg *config.Session, jsonOut bool) {
	pid, running := lock.Holder(session.Dir(sessionName))
	if jsonOut {
		outputJSON(map[string]any{
			"session":        sessionName,
			"server_url":     cfg.ServerURL,
			"user_id":        cfg.UserID,
			"daemon_running": running,
			"daemon_pid":     pid,
		})
		return
	}
	fmt.Printf("Session: %s\n", sessionName)
	fmt.Printf("Server:  %s\n", cfg.ServerURL)
	fmt.Printf("User:    %s\n", cfg.UserID)
	if running {
		fmt.Printf("Daemon:  running (pid %d)\n", pid)
	} else {
		fmt.Println("Daemon:  stopped")
	}
}

func cmdChannels(ctx context.Context, c *api.Client, jsonOut bool) {
	channels, err := c.Channels(ctx)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(channels)
		return
	}
	if len(channels) == 0 {
		fmt.Println("No channels.")
		return
	}
	for _, ch := range channels {
		fmt.Printf("%-24s %-12s %-12s %s\n", ch.ID, ch.Kind, ch.Role, ch.Name)
	}
}

func cmdInbox(ctx context.Context, c *api.Client, jsonOut bool) {
	items, err := c.Inbox(ctx)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(items)
		return
	}
	total := 0
	for _, it := range items {
		total += it.UnreadCount
		if it.UnreadCount > 0 {
			fmt.Printf("%-24s %d unread\n", it.ChannelID, it.UnreadCount)
		}
	}
	fmt.Printf("Total unread: %d\n", total)
}

func cmdHistory(ctx context.Context, c *api.Client, channelID string, limit int, jsonOut bool) {
	msgs, err := c.Messages(ctx, channelID, limit)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(msgs)
		return
	}
	for _, m := range msgs {
		printMessage(m)
	}
}

func cmdSend(ctx context.Context, c *api.Client, channelID, replyTo, text string, jsonOut bool) {
	msg, err := c.PostMessage(ctx, channelID, text, replyTo)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(msg)
		return
	}
	fmt.Printf("Sent %s\n", msg.ID)
}

func cmdThread(ctx context.Context, c *api.Client, channelID, messageID string, jsonOut bool) {
	th, err := c.Thread(ctx, channelID, messageID)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(th)
		return
	}
	printMessage(th.Parent)
	for _, m := range th.Replies {
		fmt.Print("  ")
		printMessage(m)
	}
}

func cmdRead(ctx context.Context, c *api.Client, channelID string) {
	if err := c.MarkRead(ctx, channelID); err != nil {
		fatal(err)
	}
	fmt.Printf("Marked %s as read\n", channelID)
}

func cmdSearch(ctx context.Context, c *api.Client, query string, jsonOut bool) {
	results, err := c.Search(ctx, model.SearchQuery{Query: query})
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(results)
		return
	}
	if len(results) == 0 {
		fmt.Println("No results.")
		return
	}
	for _, m := range results {
		fmt.Printf("[%s] ", m.ChannelID)
		printMessage(m)
	}
}

func cmdCreate(ctx context.Context, c *api.Client, name string, kind model.ChannelKind, jsonOut bool) {
	ch, err := c.CreateChannel(ctx, name, kind)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(ch)
		return
	}
	fmt.Printf("Created %s (%s)\n", ch.ID, ch.Name)
}

func cmdDelete(ctx context.Context, c *api.Client, channelID string) {
	if err := c.DeleteChannel(ctx, channelID); err != nil {
		fatal(err)
	}
	fmt.Printf("Deleted %s\n", channelID)
}

func cmdDM(ctx context.Context, c *api.Client, userID string, jsonOut bool) {
	ch, err := c.CreateDirectMessage(ctx, userID)
	if err != nil {
		fatal(err)
	}
	if jsonOut {
		outputJSON(ch)
		return
	}
	fmt.Printf("DM channel: %s\n", ch.ID)
}

func printMessage(m model.Message) {
	body := m.Body
	if m.Deleted {
		body = "(deleted)"
	}
	suffix := ""
	if m.Edited {
		suffix = " (edited)"
	}
	if m.ReplyCount > 0 {
		suffix += fmt.Sprintf(" [%d replies]", m.ReplyCount)
	}
	fmt.Printf("%s %-12s %s%s\n", m.CreatedAt.Local().Format("15:04"), m.Sender.Name, body, suffix)
}

func outputJSON(v any) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "json encode error: %v\n", err)
	}
}
