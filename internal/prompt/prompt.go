// Package prompt holds the system prompts sent to the translation and
// scouting models.
package prompt

import "fmt"

const TitleSystem = "You are a Japanese to English translator. " +
	"Translate the following Japanese novel title to English. " +
	"Provide only the translated title, nothing else."

const ContentSystem = "You are a Japanese to English translator specializing in web novels. " +
	"Translate the following Japanese text to natural English, preserving the author's style and tone. " +
	"Character names have already been converted to English - do not change them."

const ScoutSystem = `You read Japanese fiction text and extract character name parts.
Return ONLY JSON with this shape:
{"names":[{"original":"<exact name characters>","part":"family|given|unknown","english":"<best English rendering>"}]}
Treat given and family names separately. Use romaji or common English equivalents. No explanations.`

// ChapterPayload frames one chapter for the name scout so the model sees the
// chapter boundary and title alongside the prose.
func ChapterPayload(number int, title, content string) string {
	return fmt.Sprintf("### Chapter %d - %s\n%s", number, title, content)
}
