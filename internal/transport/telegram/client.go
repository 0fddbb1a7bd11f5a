package telegram

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"strconv"
	"strings"
	"sync"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	messageDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/message/domain"
	routingDomain "github.com/reshetovitsme/sentry-telegram-notify/internal/modules/routing/domain"
	"github.com/samber/oops"
)

// Client delivers rendered payloads through the Telegram Bot API.
// Destinations carry their own token and origin, so the client keeps
// one bot instance per (origin, token) pair. Each delivery is a single
// attempt; retries are the transport's own concern, not ours.
type Client struct {
	mu   sync.Mutex
	bots map[string]*bot.Bot
	log  *slog.Logger
}

// NewClient creates a Telegram delivery client.
func NewClient() *Client {
	return &Client{
		bots: make(map[string]*bot.Bot),
		log:  slog.Default(),
	}
}

// SendMessage delivers the payload to one receiver target.
func (c *Client) SendMessage(ctx context.Context, origin, token string, payload messageDomain.Payload, target routingDomain.ReceiverTarget) error {
	b, err := c.bot(origin, token)
	if err != nil {
		return err
	}

	params := &bot.SendMessageParams{
		ChatID:    target.ChatID,
		Text:      payload.Text,
		ParseMode: models.ParseMode(payload.ParseMode),
	}
	if target.ThreadID != "" {
		threadID, err := strconv.Atoi(target.ThreadID)
		if err != nil {
			c.log.Warn("Receiver thread id is not numeric, sending without thread",
				"chat_id", target.ChatID, "thread_id", target.ThreadID)
		} else {
			params.MessageThreadID = threadID
		}
	}

	if _, err := b.SendMessage(ctx, params); err != nil {
		return oops.With("chat_id", target.ChatID, "url", MaskURLToken(BuildURL(origin, token))).Wrap(err)
	}
	return nil
}

// Close releases every bot instance the client created.
func (c *Client) Close(ctx context.Context) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for key, b := range c.bots {
		b.Close(ctx)
		delete(c.bots, key)
	}
}

func (c *Client) bot(origin, token string) (*bot.Bot, error) {
	key := origin + "|" + token

	c.mu.Lock()
	defer c.mu.Unlock()

	if b, ok := c.bots[key]; ok {
		return b, nil
	}

	b, err := bot.New(token, bot.WithServerURL(origin), bot.WithSkipGetMe())
	if err != nil {
		return nil, oops.With("api_origin", origin, "context", "failed to create telegram bot").Wrap(err)
	}
	c.bots[key] = b
	return b, nil
}

// BuildURL is the sendMessage endpoint for a destination's credentials.
func BuildURL(origin, token string) string {
	return fmt.Sprintf("%s/bot%s/sendMessage", origin, token)
}

// MaskURLToken replaces the bot token in a Telegram API URL so the URL
// can be logged without leaking the secret.
func MaskURLToken(rawURL string) string {
	parsed, err := url.Parse(rawURL)
	if err != nil {
		return "<unparseable url>"
	}

	parts := strings.Split(parsed.Path, "/")
	for i, part := range parts {
		if strings.HasPrefix(part, "bot") && len(part) > len("bot") {
			parts[i] = "bot..."
		}
	}
	masked := parsed.Scheme + "://" + parsed.Host + strings.Join(parts, "/")
	if parsed.RawQuery != "" {
		masked += "?" + parsed.RawQuery
	}
	return masked
}
