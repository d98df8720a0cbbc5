package util

import (
	"strings"
	"unicode/utf8"

	"golang.org/x/net/html"
)

// Truncate shortens s to at most limit runes, marking the cut with "..."
func Truncate(s string, limit int) string {
	if limit <= 0 {
		return ""
	}
	if utf8.RuneCountInString(s) <= limit {
		return s
	}
	if limit <= 3 {
		return string([]rune(s)[:limit])
	}
	return strings.TrimSpace(string([]rune(s)[:limit-3])) + "..."
}

// HTMLToText extracts readable text from an HTML fragment. Block elements
// become line breaks; scripts and styles are dropped.
func HTMLToText(fragment string) string {
	if !strings.ContainsAny(fragment, "<&") {
		return CollapseSpace(fragment)
	}

	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0

	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return CollapseSpace(sb.String())

		case html.StartTagToken, html.SelfClosingTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if tag == "script" || tag == "style" {
				skip++
			}
			if isBlock(tag) {
				sb.WriteByte('\n')
			}

		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			tag := string(name)
			if (tag == "script" || tag == "style") && skip > 0 {
				skip--
			}
			if isBlock(tag) {
				sb.WriteByte('\n')
			}

		case html.TextToken:
			if skip == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}

func isBlock(tag string) bool {
	switch tag {
	case "p", "br", "div", "li", "ul", "ol", "pre", "blockquote", "h1", "h2", "h3", "h4", "h5", "h6", "tr":
		return true
	}
	return false
}

// CollapseSpace trims every line, collapses runs of spaces and drops blank lines
func CollapseSpace(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.Join(strings.Fields(line), " ")
		if line != "" {
			out = append(out, line)
		}
	}
	return strings.Join(out, "\n")
}
