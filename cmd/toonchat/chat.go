package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/rmarinho/toonchat/internal/domain"
	"github.com/rmarinho/toonchat/internal/gateway"
	"github.com/rmarinho/toonchat/internal/notify"
	"github.com/rmarinho/toonchat/internal/session"
)

var (
	chatConversationID string
	chatNew            bool
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Start an interactive conversation",
	Long: `Start an interactive conversation with the answering service.

Without flags the most recently active conversation is resumed. Inside the
session, type a message and press enter to send it. Commands:

  /new      start a fresh conversation
  /retry    retry the last failed turn
  /toasts   show recent notifications
  /quit     exit`,
	RunE: runChat,
}

func init() {
	chatCmd.Flags().StringVar(&chatConversationID, "conversation", "", "conversation id to resume")
	chatCmd.Flags().BoolVar(&chatNew, "new", false, "start a fresh conversation")
	rootCmd.AddCommand(chatCmd)
}

func runChat(cmd *cobra.Command, args []string) error {
	cfg, store, client, err := setup()
	if err != nil {
		return err
	}
	defer store.Close()

	ctx, cancel := context.WithCancel(cmd.Context())
	defer cancel()

	bus := notify.NewBus()
	unsubscribe := bus.Subscribe(func(t notify.Toast) {
		fmt.Fprintf(os.Stderr, "[%s] %s\n", t.Type, t.Message)
	})
	defer unsubscribe()

	// Retained copy of recent toasts, replayable with /toasts.
	queue := notify.NewToastQueue(bus, notify.DefaultRetention)
	defer queue.Close()

	poller := gateway.NewPoller(client, bus, cfg.Service.HealthPollInterval)
	go poller.Run(ctx)

	mgr := session.NewManager(store, client, bus, resolveMaxResults(ctx, store, cfg.Chat.MaxResults), session.Typing{
		Enabled:      cfg.Typing.Enabled,
		CharsPerTick: cfg.Typing.CharsPerTick,
		TickInterval: cfg.Typing.TickInterval,
	})
	defer mgr.Teardown()

	id, err := resolveConversationID(ctx, store)
	if err != nil {
		return err
	}
	if err := mgr.Open(ctx, id); err != nil {
		return err
	}

	for _, msg := range mgr.Snapshot().Messages {
		printMessage(msg.Role(), msg.Content)
	}

	scanner := bufio.NewScanner(os.Stdin)
	for {
		fmt.Print("> ")
		if !scanner.Scan() {
			return scanner.Err()
		}
		line := strings.TrimSpace(scanner.Text())

		switch {
		case line == "":
			continue
		case line == "/quit":
			return nil
		case line == "/new":
			if err := mgr.Clear(ctx); err != nil {
				return err
			}
			printMessage("assistant", session.Greeting)
			continue
		case line == "/retry":
			retryLastFailure(ctx, mgr)
			continue
		case line == "/toasts":
			printToasts(queue.Active())
			continue
		}

		if err := mgr.SendMessage(ctx, line, nil); err != nil {
			if errors.Is(err, session.ErrSendInFlight) {
				bus.Publish("Still waiting for the previous answer", notify.TypeWarning, 3*time.Second)
				continue
			}
			return err
		}
		printLastTurn(mgr)
	}
}

func resolveConversationID(ctx context.Context, store conversationResolver) (uuid.UUID, error) {
	if chatNew {
		return uuid.New(), nil
	}
	if chatConversationID != "" {
		id, err := uuid.Parse(chatConversationID)
		if err != nil {
			return uuid.Nil, fmt.Errorf("invalid conversation id: %w", err)
		}
		return id, nil
	}
	id, err := store.ActiveID(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if id == uuid.Nil {
		return uuid.New(), nil
	}
	return id, nil
}

type conversationResolver interface {
	ActiveID(ctx context.Context) (uuid.UUID, error)
}

type settingsSource interface {
	Settings(ctx context.Context) (*domain.Settings, error)
}

// resolveMaxResults prefers the stored preference (the one `settings set
// max_results` writes) over the configured default. A read failure falls
// back to the config value.
func resolveMaxResults(ctx context.Context, src settingsSource, fallback int) int {
	settings, err := src.Settings(ctx)
	if err != nil || settings.MaxResults <= 0 {
		return fallback
	}
	return settings.MaxResults
}

// printLastTurn renders the assistant's answer, following the typing reveal
// when one is active.
func printLastTurn(mgr *session.Manager) {
	state := mgr.Snapshot()
	if len(state.Messages) == 0 {
		return
	}
	last := state.Messages[len(state.Messages)-1]
	if last.Failed() {
		printMessage("assistant", last.Content+" (use /retry to try again)")
		return
	}

	r := mgr.CurrentReveal()
	if r == nil {
		printMessage(last.Role(), last.Content)
		return
	}

	fmt.Print("assistant: ")
	printed := 0
	for {
		visible := r.Visible()
		fmt.Print(visible[printed:])
		printed = len(visible)
		select {
		case <-r.Done():
			fmt.Println(r.Visible()[printed:])
			return
		case <-time.After(20 * time.Millisecond):
		}
	}
}

func retryLastFailure(ctx context.Context, mgr *session.Manager) {
	state := mgr.Snapshot()
	for i := len(state.Messages) - 1; i >= 0; i-- {
		if state.Messages[i].Failed() {
			if err := mgr.Retry(ctx, state.Messages[i].ID); err == nil {
				printLastTurn(mgr)
			}
			return
		}
	}
	fmt.Println("nothing to retry")
}

func printMessage(role, content string) {
	fmt.Printf("%s: %s\n", role, content)
}

func printToasts(toasts []notify.Toast) {
	if len(toasts) == 0 {
		fmt.Println("no recent notifications")
		return
	}
	for _, t := range toasts {
		fmt.Printf("[%s] %s\n", t.Type, t.Message)
	}
}
