package domain

import (
	"regexp"
	"strings"
)

var httpURLPattern = regexp.MustCompile(`https?://[^\s<>]+`)

// ExtractURLs returns every http(s) URL found in text, deduplicated in order
// of first occurrence.
func ExtractURLs(text string) []string {
	matches := httpURLPattern.FindAllString(text, -1)
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	urls := make([]string, 0, len(matches))
	for _, match := range matches {
		// Chat formatting glues punctuation to links, e.g. "(see https://x)."
		match = strings.TrimRight(match, ".,)>")
		if _, dup := seen[match]; dup || match == "" {
			continue
		}
		seen[match] = struct{}{}
		urls = append(urls, match)
	}
	return urls
}
