package channel

import (
	"bytes"
	"context"
	"log/slog"
	"strings"
	"testing"
	"time"

	"sentrybot/internal/bus"
	"sentrybot/internal/domain"
)

var (
	_ domain.Channel = (*CLI)(nil)
	_ domain.Channel = (*Telegram)(nil)
)

func TestCLIPublishesInput(t *testing.T) {
	b := bus.New(10, slog.Default())
	defer b.Close()

	var out bytes.Buffer
	cli := NewCLI(CLIConfig{
		In:     strings.NewReader("https://example.com/login\n/quit\n"),
		Out:    &out,
		Logger: slog.Default(),
	})

	done := make(chan error, 1)
	go func() { done <- cli.Start(context.Background(), b) }()

	select {
	case msg := <-b.Subscribe():
		if msg.Channel != "cli" {
			t.Errorf("channel = %q", msg.Channel)
		}
		if msg.Content != "https://example.com/login" {
			t.Errorf("content = %q", msg.Content)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("no message published")
	}

	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Start: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("cli did not exit on /quit")
	}
}

func TestCLIRendersOutbound(t *testing.T) {
	b := bus.New(10, slog.Default())
	defer b.Close()

	var out bytes.Buffer
	cli := NewCLI(CLIConfig{In: strings.NewReader(""), Out: &out, Logger: slog.Default()})

	done := make(chan error, 1)
	go func() { done <- cli.Start(context.Background(), b) }()

	// Start returns on EOF; the outbound handler stays registered.
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("cli did not exit on EOF")
	}

	b.SendOutbound(domain.OutboundMessage{Channel: "cli", ChatID: "direct", Content: "Risk: LOW (40%)"})

	if !strings.Contains(out.String(), "Risk: LOW (40%)") {
		t.Errorf("output missing verdict: %q", out.String())
	}
}

func TestTelegramAllowList(t *testing.T) {
	tg := NewTelegram(TelegramConfig{
		Token:     "test",
		AllowFrom: []string{"100", " 200 ", "bogus"},
		Logger:    slog.Default(),
	})

	if !tg.isAllowed(100) || !tg.isAllowed(200) {
		t.Error("listed users should be allowed")
	}
	if tg.isAllowed(300) {
		t.Error("unlisted user should be rejected")
	}

	open := NewTelegram(TelegramConfig{Token: "test", Logger: slog.Default()})
	if !open.isAllowed(300) {
		t.Error("empty allow list should admit everyone")
	}
}
