// Package telegram provides the Telegram transport for Xiaoyu.
package telegram

import (
	"context"
	"fmt"
	"log/slog"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// pollTimeout is the long-poll timeout in seconds for GetUpdates.
const pollTimeout = 60

// MessageHandler processes one incoming text message.
type MessageHandler func(ctx context.Context, msg *tgbotapi.Message)

// Client wraps the Telegram Bot API client.
type Client struct {
	api        *tgbotapi.BotAPI
	msgHandler MessageHandler
}

// New authenticates against the Telegram Bot API.
func New(token string) (*Client, error) {
	api, err := tgbotapi.NewBotAPI(token)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram client: %w", err)
	}
	slog.Info("Telegram client authenticated", "username", api.Self.UserName)
	return &Client{api: api}, nil
}

// Start begins long polling for updates. Each text message is handled on
// its own goroutine so one slow generation cannot stall the update loop.
func (c *Client) Start(ctx context.Context, handler MessageHandler) {
	c.msgHandler = handler

	u := tgbotapi.NewUpdate(0)
	u.Timeout = pollTimeout
	updates := c.api.GetUpdatesChan(u)

	go func() {
		for update := range updates {
			msg := update.Message
			if msg == nil || msg.From == nil || msg.Text == "" {
				continue
			}
			go c.msgHandler(ctx, msg)
		}
	}()
}

// Stop shuts down the update loop. In-flight handlers finish on their own.
func (c *Client) Stop() {
	c.api.StopReceivingUpdates()
}

// SendText sends a plain text message to a chat.
func (c *Client) SendText(chatID int64, text string) error {
	if _, err := c.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		return fmt.Errorf("failed to send message: %w", err)
	}
	return nil
}

// SendMarkdown sends a Markdown-formatted message, resending as plain text
// when Telegram rejects the markup.
func (c *Client) SendMarkdown(chatID int64, text string) error {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := c.api.Send(msg); err != nil {
		slog.Warn("markdown send rejected, retrying as plain text", "err", err)
		return c.SendText(chatID, text)
	}
	return nil
}

// Username returns the authenticated bot account name.
func (c *Client) Username() string {
	return c.api.Self.UserName
}
