package delivery

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"videowatch/internal/config"
)

// TelegramSender uploads videos through the Telegram Bot API.
//
// The bot client is created on first use, which costs a getMe round trip.
// A failed creation is returned to the caller and retried on the next send.
// Sends are serialized so each request can be bound to its caller's context.
type TelegramSender struct {
	token    string
	endpoint string
	chatID   string

	mu        sync.Mutex
	bot       *tgbotapi.BotAPI
	transport *contextTransport
	client    *http.Client
}

// NewTelegramSender constructs a sender from the telegram config section.
func NewTelegramSender(cfg config.Telegram) *TelegramSender {
	endpoint := strings.TrimSpace(cfg.APIEndpoint)
	if endpoint == "" {
		endpoint = tgbotapi.APIEndpoint
	}
	transport := &contextTransport{base: http.DefaultTransport}
	timeout := time.Duration(cfg.RequestTimeout) * time.Second
	return &TelegramSender{
		token:     strings.TrimSpace(cfg.BotToken),
		endpoint:  endpoint,
		chatID:    strings.TrimSpace(cfg.ChatID),
		transport: transport,
		client:    &http.Client{Transport: transport, Timeout: timeout},
	}
}

// SendVideo uploads video.Path to the configured chat.
func (s *TelegramSender) SendVideo(ctx context.Context, video Video) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport.bind(ctx)
	defer s.transport.bind(nil)

	bot, err := s.botLocked()
	if err != nil {
		return err
	}
	msg, err := s.videoConfig(video)
	if err != nil {
		return err
	}
	if _, err := bot.Send(msg); err != nil {
		return fmt.Errorf("telegram sendVideo: %w", err)
	}
	return nil
}

// Verify checks the token with getMe and returns the bot username.
func (s *TelegramSender) Verify(ctx context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.transport.bind(ctx)
	defer s.transport.bind(nil)

	bot, err := s.botLocked()
	if err != nil {
		return "", err
	}
	return bot.Self.UserName, nil
}

func (s *TelegramSender) botLocked() (*tgbotapi.BotAPI, error) {
	if s.bot != nil {
		return s.bot, nil
	}
	if s.token == "" {
		return nil, errors.New("telegram bot token not configured")
	}
	bot, err := tgbotapi.NewBotAPIWithClient(s.token, s.endpoint, s.client)
	if err != nil {
		return nil, fmt.Errorf("telegram getMe: %w", err)
	}
	s.bot = bot
	return bot, nil
}

// videoConfig targets a numeric chat id or an @channel username.
func (s *TelegramSender) videoConfig(video Video) (tgbotapi.VideoConfig, error) {
	if s.chatID == "" {
		return tgbotapi.VideoConfig{}, errors.New("telegram chat id not configured")
	}
	file := tgbotapi.FilePath(video.Path)
	var msg tgbotapi.VideoConfig
	if strings.HasPrefix(s.chatID, "@") {
		msg = tgbotapi.NewVideo(0, file)
		msg.ChannelUsername = s.chatID
	} else {
		id, err := strconv.ParseInt(s.chatID, 10, 64)
		if err != nil {
			return tgbotapi.VideoConfig{}, fmt.Errorf("telegram chat id %q: %w", s.chatID, err)
		}
		msg = tgbotapi.NewVideo(id, file)
	}
	msg.Caption = video.Caption
	msg.SupportsStreaming = video.Streaming
	return msg, nil
}

// contextTransport binds outgoing requests to the context of the current
// send. The Bot API client builds its requests without one.
type contextTransport struct {
	base http.RoundTripper

	mu  sync.Mutex
	ctx context.Context
}

func (t *contextTransport) bind(ctx context.Context) {
	t.mu.Lock()
	t.ctx = ctx
	t.mu.Unlock()
}

func (t *contextTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	t.mu.Lock()
	ctx := t.ctx
	t.mu.Unlock()
	if ctx != nil {
		req = req.WithContext(ctx)
	}
	return t.base.RoundTrip(req)
}
