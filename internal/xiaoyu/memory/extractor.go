// Package memory decides what the bot remembers about a user and how those
// memories are rendered back into the LLM prompt.
package memory

import (
	"context"
	"log/slog"
	"strings"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/locale"
	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

// Extractor scans inbound messages for phrases that usually introduce
// personal information ("my name is", "我叫", ...) and stores matching
// messages as personal_info memories.
//
// Matching is a case-insensitive substring scan over the trigger list for
// the user's language.  Unknown languages fall back to the English trigger
// list.  At most one memory is stored per message, holding the entire
// original text; further triggers in the same message are ignored.
type Extractor struct {
	store   *store.Store
	locales *locale.Catalog
}

// NewExtractor returns an Extractor backed by the given store and catalog.
func NewExtractor(st *store.Store, locales *locale.Catalog) *Extractor {
	return &Extractor{store: st, locales: locales}
}

// MaybeExtract checks text against the trigger phrases for lang and, on a
// match, appends the whole message as a personal_info memory.  It reports
// whether a memory was stored.  Storage failures are logged and swallowed so
// extraction never blocks the reply.
func (e *Extractor) MaybeExtract(ctx context.Context, userID int64, text, lang string) bool {
	msgs, ok := e.locales.Lookup(lang)
	if !ok {
		msgs, _ = e.locales.Lookup(locale.English)
	}

	lowered := strings.ToLower(text)
	for _, trigger := range msgs.Triggers {
		if !strings.Contains(lowered, trigger) {
			continue
		}
		if err := e.store.AppendMemory(ctx, userID, store.MemoryPersonalInfo, text); err != nil {
			slog.Warn("memory: failed to store extracted fact",
				"err", err,
				"user_id", userID,
			)
			return false
		}
		return true
	}
	return false
}
