package channel

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"sentrybot/internal/domain"
	"sentrybot/internal/provider"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	telegramMaxMsgLen      = 4000
	telegramMaxSendRetries = 3
	telegramFetchTimeout   = 60 * time.Second
)

// Transcriber converts a voice note to text before it enters triage.
// *provider.Whisper satisfies this.
type Transcriber interface {
	Transcribe(ctx context.Context, audio io.Reader, filename string) (*provider.Transcription, error)
}

// Telegram implements domain.Channel for the Telegram Bot API. Text messages
// go straight to triage; photos and videos are forwarded by file URL with a
// media hint; voice notes are transcribed first.
type Telegram struct {
	token     string
	allowFrom []int64 // Allowed user IDs (empty = allow all)
	parseMode string

	bot         *tgbotapi.BotAPI
	bus         domain.MessageBus
	transcriber Transcriber
	fetchClient *http.Client
	logger      *slog.Logger

	startedAt time.Time
	handled   int64
	handledMu sync.Mutex
}

type TelegramConfig struct {
	Token       string
	AllowFrom   []string // User IDs as strings
	ParseMode   string
	Transcriber Transcriber // optional; voice notes are rejected without one
	Logger      *slog.Logger
}

func NewTelegram(cfg TelegramConfig) *Telegram {
	var allowed []int64
	for _, s := range cfg.AllowFrom {
		if id, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64); err == nil {
			allowed = append(allowed, id)
		}
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &Telegram{
		token:       cfg.Token,
		allowFrom:   allowed,
		parseMode:   cfg.ParseMode,
		transcriber: cfg.Transcriber,
		fetchClient: &http.Client{Timeout: telegramFetchTimeout},
		logger:      cfg.Logger,
	}
}

func (t *Telegram) Name() string { return "telegram" }

// Start connects to Telegram and begins polling for updates.
func (t *Telegram) Start(ctx context.Context, bus domain.MessageBus) error {
	t.bus = bus
	t.startedAt = time.Now()

	bot, err := tgbotapi.NewBotAPI(t.token)
	if err != nil {
		return fmt.Errorf("telegram bot init: %w", err)
	}
	t.bot = bot
	t.logger.Info("telegram bot connected",
		"username", bot.Self.UserName,
		"id", bot.Self.ID,
	)

	bus.OnOutbound("telegram", func(msg domain.OutboundMessage) {
		chatID, err := strconv.ParseInt(msg.ChatID, 10, 64)
		if err != nil {
			t.logger.Error("invalid chat ID for telegram outbound", "chatID", msg.ChatID, "err", err)
			return
		}
		t.sendMessage(chatID, msg.Content)
	})

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	updates := bot.GetUpdatesChan(u)

	t.logger.Info("telegram polling started")

	for {
		select {
		case <-ctx.Done():
			t.logger.Info("telegram channel stopping")
			bot.StopReceivingUpdates()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			t.handleUpdate(ctx, update)
		}
	}
}

// Stop shuts down the Telegram bot.
// Note: StopReceivingUpdates is already called when ctx is cancelled in Start().
// Calling it twice panics, so Stop() is a no-op.
func (t *Telegram) Stop() error {
	return nil
}

func (t *Telegram) Send(ctx context.Context, chatID string, content string) error {
	id, err := strconv.ParseInt(chatID, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid chat ID: %w", err)
	}
	t.sendMessage(id, content)
	return nil
}

func (t *Telegram) handleUpdate(ctx context.Context, update tgbotapi.Update) {
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return
	}

	msg := update.Message
	userID := msg.From.ID
	chatID := msg.Chat.ID

	if !t.isAllowed(userID) {
		t.logger.Warn("unauthorized telegram user",
			"user_id", userID,
			"username", msg.From.UserName,
		)
		t.sendMessage(chatID, "Unauthorized. Your user ID is not in the allow list.")
		return
	}

	if msg.IsCommand() {
		t.handleCommand(chatID, msg)
		return
	}

	content, hint, err := t.extractContent(ctx, msg)
	if err != nil {
		t.logger.Warn("telegram content extraction failed", "chat_id", chatID, "err", err)
		t.sendMessage(chatID, "Could not read that message. Please try again or send the content as text.")
		return
	}
	if content == "" {
		return
	}

	t.handledMu.Lock()
	t.handled++
	t.handledMu.Unlock()

	t.logger.Info("telegram message received",
		"user_id", userID,
		"chat_id", chatID,
		"hint", string(hint),
		"text_len", len(content),
	)

	typing := tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping)
	_, _ = t.bot.Send(typing)

	t.bus.Publish(domain.InboundMessage{
		Channel:   "telegram",
		ChatID:    strconv.FormatInt(chatID, 10),
		SenderID:  strconv.FormatInt(userID, 10),
		Content:   content,
		Hint:      hint,
		Timestamp: time.Unix(int64(msg.Date), 0),
	})
}

// extractContent maps a Telegram message onto triage input. Photos and videos
// become file URLs the authenticity service can fetch; voice notes and audio
// are transcribed so the transcript reaches the scam pattern analyzers.
func (t *Telegram) extractContent(ctx context.Context, msg *tgbotapi.Message) (string, domain.ContentType, error) {
	switch {
	case len(msg.Photo) > 0:
		// Last entry is the highest resolution variant.
		fileID := msg.Photo[len(msg.Photo)-1].FileID
		url, err := t.bot.GetFileDirectURL(fileID)
		if err != nil {
			return "", "", fmt.Errorf("photo file url: %w", err)
		}
		return url, domain.ContentImage, nil

	case msg.Video != nil:
		url, err := t.bot.GetFileDirectURL(msg.Video.FileID)
		if err != nil {
			return "", "", fmt.Errorf("video file url: %w", err)
		}
		return url, domain.ContentVideo, nil

	case msg.Voice != nil:
		text, err := t.transcribeFile(ctx, msg.Voice.FileID, "note.ogg")
		if err != nil {
			return "", "", err
		}
		return text, domain.ContentVoice, nil

	case msg.Audio != nil:
		name := msg.Audio.FileName
		if name == "" {
			name = "audio.mp3"
		}
		text, err := t.transcribeFile(ctx, msg.Audio.FileID, name)
		if err != nil {
			return "", "", err
		}
		return text, domain.ContentVoice, nil

	default:
		text := strings.TrimSpace(msg.Text)
		if text == "" {
			text = strings.TrimSpace(msg.Caption)
		}
		return text, "", nil
	}
}

func (t *Telegram) transcribeFile(ctx context.Context, fileID, filename string) (string, error) {
	if t.transcriber == nil {
		return "", fmt.Errorf("voice transcription not configured")
	}

	url, err := t.bot.GetFileDirectURL(fileID)
	if err != nil {
		return "", fmt.Errorf("voice file url: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return "", err
	}
	resp, err := t.fetchClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("fetch voice file: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("fetch voice file: status %d", resp.StatusCode)
	}

	tr, err := t.transcriber.Transcribe(ctx, resp.Body, filename)
	if err != nil {
		return "", fmt.Errorf("transcribe voice: %w", err)
	}
	return tr.Text, nil
}

func (t *Telegram) handleCommand(chatID int64, msg *tgbotapi.Message) {
	switch msg.Command() {
	case "start":
		t.sendMessage(chatID, "Hello! I check suspicious content for scams and threats.\n\nSend me a link, phone number, forwarded message, photo, or voice note and I'll analyze it.\n\nCommands:\n/status - Bot status\n/help - Show this message")
	case "help":
		t.sendMessage(chatID, "Send me anything suspicious and I'll assess the risk:\n\n- A link or website address\n- A phone number that called or texted you\n- A forwarded message or email text\n- A photo or video you suspect is fake\n- A voice note from an unknown caller\n\nYou'll get back a risk tier, a summary of what was found, and what to do about it.\n\nCommands:\n/status - Bot status\n/help - Show this message")
	case "status":
		t.handledMu.Lock()
		handled := t.handled
		t.handledMu.Unlock()
		uptime := time.Since(t.startedAt).Round(time.Second)
		t.sendMessage(chatID, fmt.Sprintf("Online.\n\nBot: @%s\nUptime: %s\nMessages analyzed: %d\nYour ID: %d", t.bot.Self.UserName, uptime, handled, msg.From.ID))
	default:
		t.sendMessage(chatID, "Unknown command. Type /help for available commands.")
	}
}

func (t *Telegram) isAllowed(userID int64) bool {
	if len(t.allowFrom) == 0 {
		return true // Empty list = allow all
	}
	for _, id := range t.allowFrom {
		if id == userID {
			return true
		}
	}
	return false
}

func (t *Telegram) sendMessage(chatID int64, text string) {
	// Telegram has a 4096 char limit per message
	const maxLen = telegramMaxMsgLen
	for len(text) > 0 {
		chunk := text
		if len(chunk) > maxLen {
			cutAt := strings.LastIndex(chunk[:maxLen], "\n")
			if cutAt < maxLen/2 {
				cutAt = maxLen
			}
			chunk = text[:cutAt]
			text = text[cutAt:]
		} else {
			text = ""
		}

		t.sendChunk(chatID, chunk)
	}
}

// sendChunk sends a single message chunk with retry and rate limit handling.
func (t *Telegram) sendChunk(chatID int64, text string) {
	const maxRetries = telegramMaxSendRetries

	for attempt := 0; attempt <= maxRetries; attempt++ {
		msg := tgbotapi.NewMessage(chatID, text)
		if attempt == 0 && t.parseMode != "" {
			msg.ParseMode = t.parseMode
		}
		// On subsequent attempts: send as plain text (parse mode may be malformed).

		_, err := t.bot.Send(msg)
		if err == nil {
			return
		}

		errStr := err.Error()

		// Handle Telegram rate limiting (HTTP 429).
		if strings.Contains(errStr, "Too Many Requests") || strings.Contains(errStr, "429") {
			retryAfter := time.Duration(attempt+1) * 3 * time.Second
			t.logger.Warn("telegram rate limited, backing off",
				"retry_after", retryAfter, "attempt", attempt+1,
			)
			time.Sleep(retryAfter)
			continue
		}

		// Parse error on first attempt, immediately retry as plain text.
		if attempt == 0 && msg.ParseMode != "" &&
			strings.Contains(errStr, "can't parse entities") {
			t.logger.Warn("telegram parse error, retrying as plain text",
				"err", err, "parseMode", t.parseMode,
			)
			plainMsg := tgbotapi.NewMessage(chatID, text)
			if _, err2 := t.bot.Send(plainMsg); err2 == nil {
				return
			}
		}

		if attempt < maxRetries {
			backoff := time.Duration(attempt+1) * time.Second
			t.logger.Warn("telegram send error, retrying", "err", err, "backoff", backoff)
			time.Sleep(backoff)
			continue
		}

		t.logger.Error("telegram send failed after retries", "err", err, "attempts", maxRetries+1)
	}
}
