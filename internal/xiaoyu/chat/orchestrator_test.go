package chat_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/chat"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/memory"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/nlp"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

type fakeProvider struct {
	lastSystem string
	lastUser   string
	replyText  string
	err        error
}

func (f *fakeProvider) Complete(ctx context.Context, systemPrompt, userMessage string) (*nlp.Reply, error) {
	f.lastSystem = systemPrompt
	f.lastUser = userMessage
	if f.err != nil {
		return nil, f.err
	}
	return &nlp.Reply{Text: f.replyText, Model: "test-model"}, nil
}

type fakeSender struct {
	sent []string
}

func (f *fakeSender) SendText(chatID int64, text string) error {
	f.sent = append(f.sent, text)
	return nil
}

func newTestOrchestrator(t *testing.T, provider nlp.Provider, limiter *nlp.RateLimiter) (*chat.Orchestrator, *store.Store, *fakeSender) {
	t.Helper()

	f, err := os.CreateTemp(t.TempDir(), "xiaoyu-test-*.db")
	if err != nil {
		t.Fatalf("failed to create temp db file: %v", err)
	}
	f.Close()

	s, err := store.New(f.Name())
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { s.Close() })

	locales, err := locale.Load()
	if err != nil {
		t.Fatalf("locale.Load: %v", err)
	}

	sender := &fakeSender{}
	o := chat.New(chat.Config{
		Store:     s,
		Provider:  provider,
		Extractor: memory.NewExtractor(s, locales),
		Assembler: &memory.ContextAssembler{},
		Locales:   locales,
		Sender:    sender,
		Limiter:   limiter,
	})
	return o, s, sender
}

func chatMessage(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID, UserName: "alex", FirstName: "Alex"},
		Chat: &tgbotapi.Chat{ID: userID},
	}
}

func TestHandleMessage_RepliesAndPersists(t *testing.T) {
	p := &fakeProvider{replyText: "嗯～聽起來你今天很開心呢 💖"}
	o, s, sender := newTestOrchestrator(t, p, nil)
	ctx := context.Background()

	o.HandleMessage(ctx, chatMessage(1, "我喜歡拉麵"))

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d replies, want exactly 1", len(sender.sent))
	}
	if sender.sent[0] != p.replyText {
		t.Errorf("reply: got %q, want %q", sender.sent[0], p.replyText)
	}
	if _, err := s.GetUser(ctx, 1); err != nil {
		t.Errorf("user should be enrolled by the message flow: %v", err)
	}

	var userText, replyText string
	err := s.DB().QueryRow(
		"SELECT user_text, reply_text FROM conversations WHERE user_id = 1",
	).Scan(&userText, &replyText)
	if err != nil {
		t.Fatalf("reading conversation row: %v", err)
	}
	if userText != "我喜歡拉麵" || replyText != p.replyText {
		t.Errorf("conversation row: got (%q, %q)", userText, replyText)
	}

	var snapJSON, sessionID string
	var latency int64
	err = s.DB().QueryRow(
		"SELECT user_snapshot, session_id, latency_ms FROM analytics WHERE user_id = 1 AND action = ?",
		store.ActionMessage,
	).Scan(&snapJSON, &sessionID, &latency)
	if err != nil {
		t.Fatalf("reading analytics row: %v", err)
	}
	if latency < 0 {
		t.Errorf("latency: got %d, want >= 0", latency)
	}
	if !strings.HasPrefix(sessionID, "1_") || len(sessionID) != len("1_")+10 {
		t.Errorf("session id: got %q, want user-underscore-hour form", sessionID)
	}

	var snap map[string]interface{}
	if err := json.Unmarshal([]byte(snapJSON), &snap); err != nil {
		t.Fatalf("decoding snapshot: %v", err)
	}
	if snap["language"] != "zh" {
		t.Errorf("snapshot language: got %v, want zh", snap["language"])
	}
	if snap["message_length"] != float64(5) {
		t.Errorf("snapshot message_length: got %v, want 5 (characters, not bytes)", snap["message_length"])
	}
	if snap["has_memories"] != false {
		t.Errorf("snapshot has_memories: got %v, want false on the first turn", snap["has_memories"])
	}
	if _, ok := snap["openai_time_ms"]; !ok {
		t.Error("snapshot should carry the generation sub-latency")
	}
	if _, ok := snap["response_length"]; !ok {
		t.Error("snapshot should carry the reply length")
	}
}

func TestHandleMessage_PromptCarriesPersonaAndRecall(t *testing.T) {
	p := &fakeProvider{replyText: "ok"}
	o, s, _ := newTestOrchestrator(t, p, nil)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, 2, "bea", "Bea", time.Now()); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := s.SetLanguage(ctx, 2, locale.English); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}
	for _, fact := range []string{"I love pizza", "My cat is Mochi"} {
		if err := s.AppendMemory(ctx, 2, store.MemoryPersonalInfo, fact); err != nil {
			t.Fatalf("AppendMemory: %v", err)
		}
	}

	o.HandleMessage(ctx, chatMessage(2, "how are you?"))

	if !strings.HasPrefix(p.lastSystem, `You are "Xiaoyu"`) {
		t.Errorf("prompt should open with the English persona, got %q", p.lastSystem)
	}
	if !strings.Contains(p.lastSystem, "\n\nWhat you remember about this user:\n- My cat is Mochi\n- I love pizza\n") {
		t.Errorf("prompt should recall facts most recent first, got %q", p.lastSystem)
	}
	if p.lastUser != "how are you?" {
		t.Errorf("user message: got %q", p.lastUser)
	}
}

func TestHandleMessage_NewFactAppearsNextTurn(t *testing.T) {
	p := &fakeProvider{replyText: "nice to meet you"}
	o, s, _ := newTestOrchestrator(t, p, nil)
	ctx := context.Background()

	if err := s.UpsertUser(ctx, 3, "rex", "Rex", time.Now()); err != nil {
		t.Fatalf("UpsertUser: %v", err)
	}
	if err := s.SetLanguage(ctx, 3, locale.English); err != nil {
		t.Fatalf("SetLanguage: %v", err)
	}

	o.HandleMessage(ctx, chatMessage(3, "my name is Rex"))
	if strings.Contains(p.lastSystem, "my name is Rex") {
		t.Error("the triggering message must not appear in its own prompt")
	}

	o.HandleMessage(ctx, chatMessage(3, "hello again"))
	if !strings.Contains(p.lastSystem, "- my name is Rex\n") {
		t.Errorf("the extracted fact should appear in the next turn's prompt, got %q", p.lastSystem)
	}
}

func TestHandleMessage_GenerationFailureFallsBack(t *testing.T) {
	p := &fakeProvider{err: fmt.Errorf("%w: upstream timeout", nlp.ErrGeneration)}
	o, s, sender := newTestOrchestrator(t, p, nil)
	ctx := context.Background()

	o.HandleMessage(ctx, chatMessage(4, "hello"))

	if len(sender.sent) != 1 {
		t.Fatalf("sent %d replies, want exactly 1 (the fallback)", len(sender.sent))
	}
	if sender.sent[0] != "抱歉～我現在有點不舒服，等等再聊好嗎？ 💖" {
		t.Errorf("fallback reply: got %q", sender.sent[0])
	}

	var n int
	if err := s.DB().QueryRow("SELECT COUNT(*) FROM conversations WHERE user_id = 4").Scan(&n); err != nil {
		t.Fatalf("counting conversations: %v", err)
	}
	if n != 0 {
		t.Errorf("failed turns must not be logged as conversations, got %d rows", n)
	}

	var snapJSON string
	err := s.DB().QueryRow(
		"SELECT user_snapshot FROM analytics WHERE user_id = 4 AND action = ?",
		store.ActionMessageError,
	).Scan(&snapJSON)
	if err != nil {
		t.Fatalf("reading message_error row: %v", err)
	}
	if !strings.Contains(snapJSON, "upstream timeout") {
		t.Errorf("error snapshot should carry the failure text, got %q", snapJSON)
	}
}

func TestHandleMessage_ThrottleSendsNoticeOnly(t *testing.T) {
	p := &fakeProvider{replyText: "hi"}
	o, s, sender := newTestOrchestrator(t, p, nlp.NewRateLimiter(1, time.Minute))
	ctx := context.Background()

	o.HandleMessage(ctx, chatMessage(5, "one"))
	o.HandleMessage(ctx, chatMessage(5, "two"))

	if len(sender.sent) != 2 {
		t.Fatalf("sent %d replies, want 2 (reply plus notice)", len(sender.sent))
	}
	if !strings.Contains(sender.sent[1], "Rate limit exceeded") {
		t.Errorf("second reply should be the throttle notice, got %q", sender.sent[1])
	}

	var n int
	err := s.DB().QueryRow(
		"SELECT COUNT(*) FROM analytics WHERE user_id = 5 AND action = ?",
		store.ActionMessage,
	).Scan(&n)
	if err != nil {
		t.Fatalf("counting message events: %v", err)
	}
	if n != 1 {
		t.Errorf("throttled turns must not log message events, got %d rows", n)
	}
}
