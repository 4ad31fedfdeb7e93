package memory

import (
	"strings"

	"github.com/xiaoyubot/xiaoyu/internal/xiaoyu/store"
)

// DefaultContextMemories is the number of remembered facts injected into the
// system prompt.
const DefaultContextMemories = 5

// recallPreamble separates the persona from the remembered facts.
const recallPreamble = "\n\nWhat you remember about this user:\n"

// ContextAssembler builds the system prompt for a free-text conversation
// turn.
//
// Assembly strategy:
//  1. Start from the persona for the user's language.
//  2. If any facts are stored, append a recall preamble plus one line per
//     fact, most recent first.
//  3. Cap the recall block at MaxMemories entries so the prompt stays small.
type ContextAssembler struct {
	// MaxMemories caps the number of facts included in the recall block.
	// Defaults to DefaultContextMemories when ≤ 0.
	MaxMemories int
}

// SystemPrompt renders the system prompt from the persona and the user's
// stored memories.  Memories are expected most recent first, as returned by
// store.RecentMemories.  With no memories the persona is returned unchanged.
func (a *ContextAssembler) SystemPrompt(persona string, memories []store.Memory) string {
	if len(memories) == 0 {
		return persona
	}

	max := a.MaxMemories
	if max <= 0 {
		max = DefaultContextMemories
	}
	if len(memories) > max {
		memories = memories[:max]
	}

	var b strings.Builder
	b.WriteString(persona)
	b.WriteString(recallPreamble)
	for _, m := range memories {
		b.WriteString("- ")
		b.WriteString(m.Content)
		b.WriteString("\n")
	}
	return b.String()
}
