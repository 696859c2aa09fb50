package app

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/rbright/rehearse/internal/chat"
	"github.com/rbright/rehearse/internal/config"
)

const (
	chatEndCommand = "/end"
	chatSweepEvery = time.Minute
)

// commandChat runs a job-description practice chat over stdin. It ends on
// /end, EOF, or when the conversation expires.
func (r Runner) commandChat(ctx context.Context, jdPath string, cfg config.Config, logger *slog.Logger) int {
	raw, err := os.ReadFile(jdPath)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: read job description: %v\n", err)
		return 1
	}

	completer, err := r.completer(ctx, cfg.ChatProvider(), cfg.Chat.Model, cfg)
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}

	chatCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	conversations := chat.NewStore(time.Duration(cfg.Chat.TTLMinutes) * time.Minute)
	go conversations.Run(chatCtx, chatSweepEvery)
	svc := chat.NewService(completer, conversations, logger)

	id, opening, err := svc.Start(chatCtx, string(raw))
	if err != nil {
		fmt.Fprintf(r.Stderr, "error: %v\n", err)
		return 1
	}
	defer func() { _ = svc.End(id) }()

	fmt.Fprintf(r.Stdout, "%s\n\n(type %s to finish)\n", opening, chatEndCommand)

	scanner := bufio.NewScanner(r.Stdin)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for {
		fmt.Fprint(r.Stdout, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}
		if line == chatEndCommand {
			break
		}

		reply, err := svc.Send(chatCtx, id, line)
		switch {
		case errors.Is(err, chat.ErrExpired), errors.Is(err, chat.ErrUnknownSession):
			fmt.Fprintln(r.Stderr, "error: chat session expired; start a new one")
			return 1
		case err != nil:
			fmt.Fprintf(r.Stderr, "error: %v\n", err)
			continue
		}
		fmt.Fprintf(r.Stdout, "\n%s\n\n", reply)
	}
	fmt.Fprintln(r.Stdout)

	if err := scanner.Err(); err != nil {
		fmt.Fprintf(r.Stderr, "error: read input: %v\n", err)
		return 1
	}
	return 0
}
