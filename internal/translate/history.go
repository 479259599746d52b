package translate

import (
	"github.com/kapu/tsundoku-go/internal/llm"
)

// History is the rolling conversation window for one chapter: the system
// prompt pinned at index 0 plus at most pairs of user/assistant exchanges.
// Keeping recent exchanges in the request gives the model continuity for
// pronouns and running jokes without letting the context grow unbounded.
type History struct {
	messages []llm.Message
	pairs    int
}

func NewHistory(system string, pairs int) *History {
	if pairs < 0 {
		pairs = 0
	}
	return &History{
		messages: []llm.Message{llm.System(system)},
		pairs:    pairs,
	}
}

// Messages returns a copy of the window, oldest first. The caller may append
// to it freely without disturbing the history.
func (h *History) Messages() []llm.Message {
	out := make([]llm.Message, len(h.messages))
	copy(out, h.messages)
	return out
}

func (h *History) Len() int {
	return len(h.messages)
}

// Append records one completed exchange, then evicts the oldest pair while
// over capacity. The system message never leaves index 0.
func (h *History) Append(user, assistant string) {
	h.messages = append(h.messages, llm.User(user), llm.Assistant(assistant))

	limit := 1 + 2*h.pairs
	for len(h.messages) > limit && len(h.messages) >= 3 {
		h.messages = append(h.messages[:1], h.messages[3:]...)
	}
}
