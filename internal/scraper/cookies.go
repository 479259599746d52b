package scraper

import (
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	perrors "github.com/kapu/tsundoku-go/pkg/errors"
)

// FindCookieFile returns the newest *.txt under dir whose lowercase filename
// contains every token. Browser exporters stamp files with the export date,
// so newest-wins picks the freshest session.
func FindCookieFile(dir string, tokens ...string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", perrors.NewStorageError("failed to read cookies directory", "read", dir, err)
	}

	var newest string
	var newestTime time.Time
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		name := strings.ToLower(entry.Name())
		if !strings.HasSuffix(name, ".txt") {
			continue
		}
		matched := true
		for _, token := range tokens {
			if !strings.Contains(name, strings.ToLower(token)) {
				matched = false
				break
			}
		}
		if !matched {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}
		if newest == "" || info.ModTime().After(newestTime) {
			newest = filepath.Join(dir, entry.Name())
			newestTime = info.ModTime()
		}
	}

	if newest == "" {
		return "", perrors.NewStorageError("no matching cookie file found", "find", dir, nil)
	}
	return newest, nil
}

// ParseNetscapeCookies reads the classic cookies.txt format: one cookie per
// line, seven tab-separated fields. Comment lines are skipped except for the
// #HttpOnly_ prefix, which marks a real cookie.
func ParseNetscapeCookies(data []byte) map[string][]*http.Cookie {
	byDomain := make(map[string][]*http.Cookie)

	for _, line := range strings.Split(string(data), "\n") {
		line = strings.TrimRight(line, "\r")

		httpOnly := false
		if strings.HasPrefix(line, "#HttpOnly_") {
			line = strings.TrimPrefix(line, "#HttpOnly_")
			httpOnly = true
		}
		if strings.TrimSpace(line) == "" || strings.HasPrefix(line, "#") {
			continue
		}

		fields := strings.Split(line, "\t")
		if len(fields) < 7 {
			continue
		}

		domain := strings.TrimPrefix(fields[0], ".")
		includeSubdomains := strings.EqualFold(fields[1], "TRUE")

		cookie := &http.Cookie{
			Name:     fields[5],
			Value:    fields[6],
			Path:     fields[2],
			Secure:   strings.EqualFold(fields[3], "TRUE"),
			HttpOnly: httpOnly,
		}
		// A Domain attribute makes the jar treat it as a domain cookie valid
		// for subdomains; host-only cookies leave it empty.
		if includeSubdomains {
			cookie.Domain = domain
		}
		if expires, err := strconv.ParseInt(fields[4], 10, 64); err == nil && expires > 0 {
			cookie.Expires = time.Unix(expires, 0)
		}

		byDomain[domain] = append(byDomain[domain], cookie)
	}

	return byDomain
}

// LoadCookies finds a matching cookie file under dir and seeds the client's
// jar with its contents. Returns the path of the file it loaded.
func LoadCookies(client *Client, dir string, logger *zap.Logger, tokens ...string) (string, error) {
	path, err := FindCookieFile(dir, tokens...)
	if err != nil {
		return "", err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return "", perrors.NewStorageError("failed to read cookie file", "read", path, err)
	}

	total := 0
	for domain, cookies := range ParseNetscapeCookies(data) {
		u := &url.URL{Scheme: "https", Host: domain, Path: "/"}
		client.SetCookies(u, cookies)
		total += len(cookies)
	}

	logger.Info("Loaded cookies",
		zap.String("file", filepath.Base(path)),
		zap.Int("cookies", total))

	return path, nil
}
