package llm

import (
	"strings"

	"github.com/kapu/tsundoku-go/internal/util"
)

var refusalPrefixes = []string{
	"i'm sorry",
	"i cannot",
	"i am unable",
	"as an ai",
	"my apologies",
	"i am not programmed",
	"i do not have the ability",
}

// IsRefusal reports whether a reply opens with a stock refusal phrase.
// Matching is prefix-only: a translation that merely contains one of these
// phrases mid-sentence is a translation, not a refusal.
func IsRefusal(s string) bool {
	normalized := util.Normalize(s)
	for _, prefix := range refusalPrefixes {
		if strings.HasPrefix(normalized, prefix) {
			return true
		}
	}
	return false
}
