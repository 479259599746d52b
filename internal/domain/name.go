package domain

import (
	"encoding/json"
	"strings"
)

type NamePart string

const (
	NamePartFamily  NamePart = "family"
	NamePartGiven   NamePart = "given"
	NamePartUnknown NamePart = "unknown"
)

func (p NamePart) String() string {
	return string(p)
}

func (p NamePart) IsValid() bool {
	switch p {
	case NamePartFamily, NamePartGiven, NamePartUnknown:
		return true
	default:
		return false
	}
}

// ParseNamePart is lenient: model output invents casings and labels, and a
// hand-edited name file may carry anything. Unrecognized values become
// NamePartUnknown rather than an error.
func ParseNamePart(s string) NamePart {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "family":
		return NamePartFamily
	case "given":
		return NamePartGiven
	default:
		return NamePartUnknown
	}
}

func (p NamePart) MarshalJSON() ([]byte, error) {
	if !p.IsValid() {
		return json.Marshal(string(NamePartUnknown))
	}
	return json.Marshal(string(p))
}

func (p *NamePart) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		return err
	}
	*p = ParseNamePart(s)
	return nil
}

// NameEntry is one scouted vote: a name fragment exactly as it appears in the
// source text plus the proposed English rendering.
type NameEntry struct {
	Original string   `json:"original"`
	English  string   `json:"english"`
	Part     NamePart `json:"part"`
}
