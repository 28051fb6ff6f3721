// Package main is a terminal client for the dashboard assistant. It drives the
// same conversation controller the dashboard panel uses and prints replies
// word by word as they are revealed.
package main

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"sync"
	"syscall"
	"time"

	"github.com/portfolio-dashboard/internal/backend"
	"github.com/portfolio-dashboard/internal/config"
	"github.com/portfolio-dashboard/internal/conversation"
	"github.com/portfolio-dashboard/internal/logging"
	"github.com/portfolio-dashboard/internal/types"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	var (
		token = flag.String("token", cfg.Backend.Token, "Bearer token for the dashboard API")
		user  = flag.String("user", "", "Name shown in logs")
	)
	flag.Parse()

	// Logs go to stderr so they do not interleave with the transcript
	logger := logging.NewLoggerWithOutput(logging.ParseLogLevel(cfg.Logging.Level), logging.FormatText, os.Stderr)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client := backend.NewClient(backend.Config{
		BaseURL:           cfg.Backend.BaseURL,
		Timeout:           cfg.Backend.Timeout,
		RequestsPerSecond: cfg.Backend.RequestsPerSecond,
		MaxRetries:        cfg.Backend.MaxRetries,
	}, nil, logger)

	out := newTranscript(os.Stdout)
	ctrl := conversation.New(conversation.Deps{
		Backend:  client,
		Session:  conversation.StaticSession{Token: *token, User: *user},
		Notifier: conversation.NotifierFunc(out.notify),
		Logger:   logger,
	},
		conversation.WithDeliveryInterval(cfg.Assistant.DeliveryInterval),
		conversation.WithRequestTimeout(cfg.Assistant.RequestTimeout),
	)
	defer ctrl.Subscribe(out.render)()

	ctrl.Activate(ctx)
	out.waitHistory(cfg.Assistant.RequestTimeout)
	printHelp(os.Stdout)

	if err := repl(ctx, ctrl, out, os.Stdin); err != nil && !errors.Is(err, context.Canceled) {
		logger.WithError(err).Fatal("Assistant session ended with error")
	}
}

func printHelp(w io.Writer) {
	fmt.Fprintln(w, "Type a question, /prompts for suggestions, /N to send suggestion N, /quit to exit.")
}

func repl(ctx context.Context, ctrl *conversation.Controller, out *transcript, in io.Reader) error {
	lines := make(chan string)
	scanErr := make(chan error, 1)
	go func() {
		scanner := bufio.NewScanner(in)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
		scanErr <- scanner.Err()
		close(lines)
	}()

	for {
		out.prompt()
		var line string
		select {
		case <-ctx.Done():
			return ctx.Err()
		case l, ok := <-lines:
			if !ok {
				return <-scanErr
			}
			line = strings.TrimSpace(l)
		}

		switch {
		case line == "":
			continue
		case line == "/quit" || line == "/exit":
			return nil
		case line == "/prompts":
			for i, p := range conversation.QuickPrompts {
				out.printf("  /%d  %s\n", i+1, p)
			}
			continue
		case strings.HasPrefix(line, "/"):
			n, err := strconv.Atoi(line[1:])
			if err != nil || n < 1 || n > len(conversation.QuickPrompts) {
				printHelp(out.w)
				continue
			}
			line = conversation.QuickPrompts[n-1]
			out.printf("you> %s\n", line)
		}

		out.startTurn()
		if err := ctrl.Send(ctx, line); err != nil {
			out.printf("! %v\n", err)
			continue
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-out.turnDone:
		}
	}
}

// transcript prints controller views as a running chat log. Assistant replies
// are printed as their words are revealed.
type transcript struct {
	mu       sync.Mutex
	w        io.Writer
	printed  map[string]int
	open     string
	history  chan struct{}
	loaded   bool
	inTurn   bool
	turnDone chan struct{}
}

func newTranscript(w io.Writer) *transcript {
	return &transcript{
		w:        w,
		printed:  make(map[string]int),
		history:  make(chan struct{}),
		turnDone: make(chan struct{}, 1),
	}
}

func (t *transcript) printf(format string, args ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintf(t.w, format, args...)
}

func (t *transcript) prompt() {
	t.printf("> ")
}

func (t *transcript) notify(message string) {
	t.printf("! %s\n", message)
}

// waitHistory blocks until the first history arrives or d elapses
func (t *transcript) waitHistory(d time.Duration) {
	select {
	case <-t.history:
	case <-time.After(d):
	}
}

func (t *transcript) startTurn() {
	t.mu.Lock()
	defer t.mu.Unlock()
	select {
	case <-t.turnDone:
	default:
	}
	t.inTurn = true
}

func (t *transcript) render(v conversation.View) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.loaded {
		if len(v.Messages) == 0 {
			return
		}
		for _, m := range v.Messages {
			fmt.Fprintf(t.w, "%s> %s\n", speaker(m.Role), m.Content)
			t.printed[m.ID] = len(m.Content)
		}
		t.loaded = true
		close(t.history)
		return
	}

	for _, m := range v.Messages {
		if m.Role != types.RoleAssistant {
			continue
		}
		n, seen := t.printed[m.ID]
		if seen && n >= len(m.Content) {
			continue
		}
		if m.Content == "" {
			continue
		}
		if t.open != m.ID {
			t.closeLine()
			fmt.Fprint(t.w, "assistant> ")
			t.open = m.ID
		}
		fmt.Fprint(t.w, m.Content[n:])
		t.printed[m.ID] = len(m.Content)
	}

	if t.inTurn && v.State == conversation.StateIdle {
		t.closeLine()
		t.inTurn = false
		select {
		case t.turnDone <- struct{}{}:
		default:
		}
	}
}

// closeLine must be called with mu held
func (t *transcript) closeLine() {
	if t.open != "" {
		fmt.Fprintln(t.w)
		t.open = ""
	}
}

func speaker(role types.Role) string {
	if role == types.RoleUser {
		return "you"
	}
	return "assistant"
}
