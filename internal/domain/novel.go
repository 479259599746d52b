package domain

type NovelInfo struct {
	Title   string `json:"title"`
	BaseURL string `json:"base_url"`
	NovelID string `json:"novel_id"`
}

type Chapter struct {
	Title  string `json:"title"`
	URL    string `json:"url"`
	Number int    `json:"number"`
}

// ChapterList holds an ordered chapter index. A one-shot work (a single page
// with no index) is represented as one synthetic chapter with OneShot set, so
// call sites iterate the same way for both shapes.
type ChapterList struct {
	Chapters []Chapter
	OneShot  bool
}

func (c *ChapterList) Len() int {
	if c == nil {
		return 0
	}
	return len(c.Chapters)
}
