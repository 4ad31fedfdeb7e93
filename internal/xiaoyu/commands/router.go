// Package commands provides slash-command parsing and routing for the bot.
package commands

import (
	"context"
	"errors"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/nlp"
)

// Command represents a parsed slash command.
type Command struct {
	Name    string
	Args    []string
	RawText string
}

// ErrNotACommand is returned by Parse when the message does not start with
// the slash prefix.  Callers should use errors.Is to distinguish this
// expected case from real errors and hand the message to the free-text flow.
var ErrNotACommand = errors.New("not a command (missing prefix)")

// ErrUnknownCommand is returned by Route when the command name has no
// registered handler.  The bot stays silent on unknown commands.
var ErrUnknownCommand = errors.New("unknown command")

// Handler is a function that handles a command and returns the reply text.
type Handler func(ctx context.Context, cmd *Command, msg *tgbotapi.Message) (string, error)

// Router routes slash commands to handlers, applying each command's rate
// limiter before dispatch.
//
// Limiters are attached per command, so every handler owns its own window;
// exhausting /start does not throttle /help.
type Router struct {
	handlers map[string]Handler
	limiters map[string]*nlp.RateLimiter
}

// NewRouter creates an empty command router.
func NewRouter() *Router {
	return &Router{
		handlers: make(map[string]Handler),
		limiters: make(map[string]*nlp.RateLimiter),
	}
}

// Register registers a handler under the given command name.
func (r *Router) Register(command string, handler Handler) {
	r.handlers[command] = handler
}

// Limit attaches a rate limiter to a command.  Commands without a limiter
// are dispatched unthrottled.
func (r *Router) Limit(command string, limiter *nlp.RateLimiter) {
	r.limiters[command] = limiter
}

// Parse parses message text into a Command.
//
// A lone "/" does not form a command on Telegram and is reported as
// ErrNotACommand so it flows to the free-text handler.
func (r *Router) Parse(text string) (*Command, error) {
	text = strings.TrimSpace(text)
	if !strings.HasPrefix(text, "/") {
		return nil, ErrNotACommand
	}

	parts := strings.Fields(strings.TrimPrefix(text, "/"))
	if len(parts) == 0 {
		return nil, ErrNotACommand
	}

	name := parts[0]
	// Group chats address commands as /name@BotUserName.
	if at := strings.IndexByte(name, '@'); at >= 0 {
		name = name[:at]
	}
	name = strings.ToLower(name)
	if name == "" {
		return nil, ErrNotACommand
	}

	return &Command{
		Name:    name,
		Args:    parts[1:],
		RawText: text,
	}, nil
}

// Route parses text and dispatches it to the matching handler.
//
// The command's rate limiter runs before dispatch: a throttled user gets
// the limiter's notice back and the handler is never invoked, so the
// rejected attempt leaves no analytics row behind.
func (r *Router) Route(ctx context.Context, text string, msg *tgbotapi.Message) (string, error) {
	cmd, err := r.Parse(text)
	if err != nil {
		return "", err
	}

	handler, ok := r.handlers[cmd.Name]
	if !ok {
		return "", fmt.Errorf("%w: %s", ErrUnknownCommand, cmd.Name)
	}

	if limiter, ok := r.limiters[cmd.Name]; ok && !limiter.Allow(msg.From.ID) {
		return limiter.Notice(), nil
	}

	return handler(ctx, cmd, msg)
}
