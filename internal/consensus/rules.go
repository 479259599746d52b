package consensus

import (
	"regexp"
	"strings"
	"unicode"
)

// badOriginalPattern matches separator and punctuation runes that never occur
// inside a real name: whitespace (ASCII and ideographic), middle dots, kana
// punctuation, slashes, dashes and every bracket form.
var badOriginalPattern = regexp.MustCompile(`[\s\p{Zs}・･｡､,，。／/：:;!！?？\-—–‑·（）()\[\]［］{}＜＞<>『』「」〈〉【】]`)

// honorificSuffixPattern matches an honorific glued to the end of a scouted
// original. Such a vote names "田中さん", not 田中, and would poison the map.
var honorificSuffixPattern = regexp.MustCompile(`(さん|ちゃん|くん|君|様|さま|殿|氏|先生|先輩|嬢)$`)

var englishHonorifics = []string{
	"-san", "-chan", "-kun", "-sama",
	" san", " chan", " kun", " sama",
}

// denylist holds pronouns and generic person words the scout model keeps
// proposing as names.
var denylist = map[string]struct{}{
	"彼": {}, "彼女": {}, "あいつ": {}, "こいつ": {}, "そいつ": {},
	"こちとら": {}, "こちら": {}, "自分": {}, "私": {}, "わたし": {},
	"わたくし": {}, "俺": {}, "おれ": {}, "僕": {}, "ぼく": {},
	"うち": {}, "あなた": {}, "君": {}, "きみ": {}, "お前": {},
	"おまえ": {}, "貴様": {}, "彼ら": {}, "彼女ら": {}, "俺たち": {},
	"僕ら": {}, "私たち": {}, "あなたたち": {}, "皆": {}, "みんな": {},
}

func denylisted(original string) bool {
	_, ok := denylist[original]
	return ok
}

func containsWhitespace(s string) bool {
	return strings.IndexFunc(s, unicode.IsSpace) >= 0
}

func containsEnglishHonorific(english string) bool {
	lower := strings.ToLower(english)
	for _, h := range englishHonorifics {
		if strings.Contains(lower, h) {
			return true
		}
	}
	return false
}

// voteRule names one reason a scouted vote is rejected. The rules run in
// order and the first match wins, so tightening the policy means editing
// this table, not the store.
type voteRule struct {
	name   string
	reject func(original, english string) bool
}

var voteRules = []voteRule{
	{"empty", func(o, e string) bool {
		return o == "" || e == ""
	}},
	{"original-separator", func(o, _ string) bool {
		return badOriginalPattern.MatchString(o)
	}},
	{"original-denylisted", func(o, _ string) bool {
		return denylisted(o)
	}},
	{"english-whitespace", func(_, e string) bool {
		return containsWhitespace(e)
	}},
	{"original-honorific", func(o, _ string) bool {
		return honorificSuffixPattern.MatchString(o)
	}},
	{"english-honorific", func(_, e string) bool {
		return containsEnglishHonorific(e)
	}},
}

// rejectionReason returns the name of the first rule a vote violates, or ""
// when the vote is acceptable.
func rejectionReason(original, english string) string {
	for _, r := range voteRules {
		if r.reject(original, english) {
			return r.name
		}
	}
	return ""
}

// The purge path applies the same predicates one side at a time: stored keys
// are checked as originals, stored vote renderings as english candidates.

func badOriginal(original string) bool {
	return original == "" ||
		badOriginalPattern.MatchString(original) ||
		honorificSuffixPattern.MatchString(original) ||
		denylisted(original)
}

func badEnglishVote(english string) bool {
	return english == "" ||
		containsWhitespace(english) ||
		containsEnglishHonorific(english)
}
