// Command cli is an interactive terminal client for the chat server.
package main

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/AIB0I/MyGPT/internal/config"
	"github.com/AIB0I/MyGPT/internal/logging"
)

const (
	cmdExit    = "/exit"
	cmdHistory = "/history"
)

// app runs the menu loop over arbitrary input and output.
type app struct {
	client *Client
	in     *bufio.Scanner
	out    io.Writer
	logger zerolog.Logger
}

func main() {
	addr := flag.String("addr", "http://localhost:8000", "chat server address")
	timeout := flag.Duration("timeout", 2*time.Minute, "request timeout")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, closer, err := logging.New(config.LogConfig{Level: *logLevel, Format: "console"})
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to initialize logging: %v\n", err)
		os.Exit(1)
	}
	defer closer.Close()

	client := NewClient(*addr, *timeout)
	defer client.Close()

	a := &app{
		client: client,
		in:     bufio.NewScanner(os.Stdin),
		out:    os.Stdout,
		logger: logger,
	}
	a.run(context.Background())
}

// run shows the main menu until the user exits or input ends.
func (a *app) run(ctx context.Context) {
	a.logger.Info().Msg("starting chat client")

	for {
		fmt.Fprintln(a.out, "\n1. Start a new chat")
		fmt.Fprintln(a.out, "2. Continue an existing chat")
		fmt.Fprintln(a.out, "3. Exit")
		choice, ok := a.prompt("Enter your choice (1/2/3): ")
		if !ok {
			return
		}

		switch choice {
		case "1":
			a.newChat(ctx)
		case "2":
			a.continueChat(ctx)
		case "3":
			a.logger.Info().Msg("user chose to exit")
			fmt.Fprintln(a.out, "Goodbye!")
			return
		default:
			a.logger.Warn().Str("choice", choice).Msg("invalid menu choice")
			fmt.Fprintln(a.out, "Invalid choice. Please try again.")
		}
	}
}

func (a *app) newChat(ctx context.Context) {
	title, ok := a.prompt("Enter a title for the new chat: ")
	if !ok {
		return
	}

	session, err := a.client.CreateSession(ctx, title)
	if err != nil {
		fmt.Fprintf(a.out, "Failed to create chat: %v\n", err)
		return
	}
	a.logger.Info().Str("session_id", session.SessionID).Str("title", session.Title).Msg("created chat")

	fmt.Fprintf(a.out, "Starting new chat with ID: %s\n", session.SessionID)
	a.chat(ctx, session.SessionID)
}

func (a *app) continueChat(ctx context.Context) {
	sessions, err := a.client.ListSessions(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "Failed to list chats: %v\n", err)
		return
	}
	if len(sessions) == 0 {
		fmt.Fprintln(a.out, "No existing chats found.")
		return
	}

	fmt.Fprintln(a.out, "Existing chats:")
	for _, s := range sessions {
		fmt.Fprintf(a.out, "%s: %s\n", s.SessionID, s.Title)
	}

	sessionID, ok := a.prompt("Enter the ID of the chat you want to continue: ")
	if !ok {
		return
	}
	if _, err := a.client.GetSession(ctx, sessionID); err != nil {
		fmt.Fprintf(a.out, "Cannot continue chat: %v\n", err)
		return
	}

	fmt.Fprintf(a.out, "Continuing chat with ID: %s\n", sessionID)
	a.chat(ctx, sessionID)
}

// chat runs turns until /exit or end of input.
func (a *app) chat(ctx context.Context, sessionID string) {
	fmt.Fprintf(a.out, "Welcome to chat %s! Type '%s' to end the conversation.\n", sessionID, cmdExit)

	for {
		input, ok := a.prompt("User: ")
		if !ok {
			return
		}

		switch strings.ToLower(input) {
		case "":
			continue
		case cmdExit:
			return
		case cmdHistory:
			a.printHistory(ctx, sessionID)
			continue
		}

		reply, err := a.client.Chat(sessionID, input)
		if err != nil {
			fmt.Fprintf(a.out, "Error: %v\n", err)
			continue
		}
		fmt.Fprintf(a.out, "Assistant: %s\n", reply)
	}
}

func (a *app) printHistory(ctx context.Context, sessionID string) {
	history, err := a.client.History(ctx, sessionID)
	if err != nil {
		fmt.Fprintf(a.out, "Failed to load history: %v\n", err)
		return
	}

	fmt.Fprintln(a.out, "\nChat history:")
	for _, entry := range history {
		fmt.Fprintf(a.out, "%s: %s\n", entry.Role, entry.Content)
	}
	fmt.Fprintln(a.out)
}

// prompt prints label and reads one trimmed line. It reports false at end of input.
func (a *app) prompt(label string) (string, bool) {
	fmt.Fprint(a.out, label)
	if !a.in.Scan() {
		return "", false
	}
	return strings.TrimSpace(a.in.Text()), true
}
