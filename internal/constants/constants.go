package constants

import "time"

var HTTPConfig = struct {
	UserAgent     string
	ClientTimeout time.Duration
	ErrorBodyMax  int
}{
	UserAgent:     "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36",
	ClientTimeout: 30 * time.Second, // page fetch budget
	ErrorBodyMax:  200,              // response body runes kept in API errors
}

var ModelConfig = struct {
	RequestTimeout time.Duration
}{
	RequestTimeout: 60 * time.Second, // a long chunk can stream for a while
}

var ScraperConfig = struct {
	MaxIndexPages   int
	SeriesPageLimit int
}{
	MaxIndexPages:   100, // pagination cap for chapter indexes
	SeriesPageLimit: 30,  // pixiv series_content page size
}

var ProgressConfig = struct {
	ReportInterval time.Duration
	PreviewRunes   int
}{
	ReportInterval: 1 * time.Second, // minimum spacing between progress reports
	PreviewRunes:   50,
}

var CircuitBreakerConfig = struct {
	FailureThreshold    int
	ResetTimeout        time.Duration
	RateLimitTimeout    time.Duration
	HealthCheckInterval time.Duration
}{
	FailureThreshold:    3,                // consecutive failures before the circuit opens
	ResetTimeout:        30 * time.Second, // default retry wait
	RateLimitTimeout:    1 * time.Hour,    // 429s get the long timeout
	HealthCheckInterval: 10 * time.Minute,
}

// EditorCandidates are tried in order when EDITOR_COMMAND is not configured.
var EditorCandidates = []string{"kate", "gedit", "code", "vim", "nano", "emacs"}
