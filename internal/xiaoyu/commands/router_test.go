package commands_test

import (
	"context"
	"errors"
	"reflect"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/commands"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/nlp"
)

func testMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID, UserName: "alex", FirstName: "Alex"},
		Chat: &tgbotapi.Chat{ID: userID},
	}
}

func TestParse(t *testing.T) {
	router := commands.NewRouter()

	tests := []struct {
		input    string
		wantName string
		wantArgs []string
		wantErr  error
	}{
		{input: "/start", wantName: "start"},
		{input: "/help@XiaoyuBot", wantName: "help"},
		{input: "/LANGUAGE", wantName: "language"},
		{input: "  /memory  ", wantName: "memory"},
		{input: "/language en", wantName: "language", wantArgs: []string{"en"}},
		{input: "hello there", wantErr: commands.ErrNotACommand},
		{input: "/", wantErr: commands.ErrNotACommand},
		{input: "/@XiaoyuBot", wantErr: commands.ErrNotACommand},
	}

	for _, tt := range tests {
		cmd, err := router.Parse(tt.input)
		if tt.wantErr != nil {
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Parse(%q): got err %v, want %v", tt.input, err, tt.wantErr)
			}
			continue
		}
		if err != nil {
			t.Errorf("Parse(%q): unexpected error %v", tt.input, err)
			continue
		}
		if cmd.Name != tt.wantName {
			t.Errorf("Parse(%q): name got %q, want %q", tt.input, cmd.Name, tt.wantName)
		}
		if len(tt.wantArgs) > 0 && !reflect.DeepEqual(cmd.Args, tt.wantArgs) {
			t.Errorf("Parse(%q): args got %v, want %v", tt.input, cmd.Args, tt.wantArgs)
		}
	}
}

func TestRoute_DispatchesToHandler(t *testing.T) {
	router := commands.NewRouter()
	router.Register("ping", func(ctx context.Context, cmd *commands.Command, msg *tgbotapi.Message) (string, error) {
		return "pong", nil
	})

	reply, err := router.Route(context.Background(), "/ping", testMessage(1, "/ping"))
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if reply != "pong" {
		t.Errorf("reply: got %q, want %q", reply, "pong")
	}
}

func TestRoute_UnknownCommand(t *testing.T) {
	router := commands.NewRouter()

	_, err := router.Route(context.Background(), "/bogus", testMessage(1, "/bogus"))
	if !errors.Is(err, commands.ErrUnknownCommand) {
		t.Errorf("got err %v, want ErrUnknownCommand", err)
	}
}

func TestRoute_FreeTextPassesThrough(t *testing.T) {
	router := commands.NewRouter()

	_, err := router.Route(context.Background(), "just chatting", testMessage(1, "just chatting"))
	if !errors.Is(err, commands.ErrNotACommand) {
		t.Errorf("got err %v, want ErrNotACommand", err)
	}
}

func TestRoute_LimiterRunsBeforeDispatch(t *testing.T) {
	router := commands.NewRouter()

	calls := 0
	router.Register("ping", func(ctx context.Context, cmd *commands.Command, msg *tgbotapi.Message) (string, error) {
		calls++
		return "pong", nil
	})
	router.Limit("ping", nlp.NewRateLimiter(1, time.Minute))

	msg := testMessage(7, "/ping")
	if _, err := router.Route(context.Background(), "/ping", msg); err != nil {
		t.Fatalf("first Route returned error: %v", err)
	}

	reply, err := router.Route(context.Background(), "/ping", msg)
	if err != nil {
		t.Fatalf("second Route returned error: %v", err)
	}
	if !strings.Contains(reply, "Rate limit exceeded") {
		t.Errorf("throttled reply: got %q, want the rate limit notice", reply)
	}
	if calls != 1 {
		t.Errorf("handler ran %d times, want 1 (throttled dispatch must not reach the handler)", calls)
	}
}

func TestRoute_LimitersAreIndependentPerCommand(t *testing.T) {
	router := commands.NewRouter()

	echo := func(ctx context.Context, cmd *commands.Command, msg *tgbotapi.Message) (string, error) {
		return cmd.Name, nil
	}
	router.Register("first", echo)
	router.Register("second", echo)
	router.Limit("first", nlp.NewRateLimiter(1, time.Minute))
	router.Limit("second", nlp.NewRateLimiter(1, time.Minute))

	msg := testMessage(7, "")
	router.Route(context.Background(), "/first", msg)

	reply, err := router.Route(context.Background(), "/second", msg)
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if reply != "second" {
		t.Errorf("exhausting one command's limiter should not throttle another, got %q", reply)
	}
}

func TestRoute_LimiterIsPerUser(t *testing.T) {
	router := commands.NewRouter()
	router.Register("ping", func(ctx context.Context, cmd *commands.Command, msg *tgbotapi.Message) (string, error) {
		return "pong", nil
	})
	router.Limit("ping", nlp.NewRateLimiter(1, time.Minute))

	router.Route(context.Background(), "/ping", testMessage(1, "/ping"))

	reply, err := router.Route(context.Background(), "/ping", testMessage(2, "/ping"))
	if err != nil {
		t.Fatalf("Route returned error: %v", err)
	}
	if reply != "pong" {
		t.Errorf("another user should not be throttled, got %q", reply)
	}
}
