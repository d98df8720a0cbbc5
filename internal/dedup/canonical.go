// Package dedup merges items that point at the same content across sources.
package dedup

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/ppiankov/horizon/internal/model"
)

// trackingParams are removed from query strings before comparison
var trackingParams = map[string]bool{
	"utm":     true,
	"fbclid":  true,
	"gclid":   true,
	"ref":     true,
	"ref_src": true,
	"mc_cid":  true,
	"mc_eid":  true,
	"igshid":  true,
}

func isTrackingParam(name string) bool {
	name = strings.ToLower(name)
	return trackingParams[name] || strings.HasPrefix(name, "utm_")
}

// Canonicalize normalizes an http(s) URL for use as a dedup key: scheme and
// host are lowercased, default ports, fragments, tracking parameters and the
// trailing slash are removed, and the remaining query is sorted.
// It returns false when raw has no resolvable http(s) host.
func Canonicalize(raw string) (string, bool) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", false
	}

	u, err := url.Parse(raw)
	if err != nil {
		return "", false
	}

	u.Scheme = strings.ToLower(u.Scheme)
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", false
	}

	host := strings.ToLower(u.Hostname())
	if host == "" {
		return "", false
	}
	if port := u.Port(); port != "" && !(u.Scheme == "http" && port == "80") && !(u.Scheme == "https" && port == "443") {
		host = host + ":" + port
	}
	u.Host = host

	u.User = nil
	u.Fragment = ""
	u.RawFragment = ""

	u.Path = strings.TrimRight(u.Path, "/")
	u.RawPath = ""

	query := u.Query()
	for name := range query {
		if isTrackingParam(name) {
			query.Del(name)
		}
	}
	u.RawQuery = query.Encode()
	u.ForceQuery = false

	return u.String(), true
}

// Key returns the dedup key for an item: its canonical URL, or a fallback of
// source type, source identifier, lowercased title and publish hour when the
// URL cannot be resolved.
func Key(item *model.ContentItem) string {
	if canonical, ok := Canonicalize(item.URL); ok {
		return canonical
	}
	return fallbackKey(item)
}

func fallbackKey(item *model.ContentItem) string {
	hour := int64(0)
	if !item.PublishedAt.IsZero() {
		hour = item.PublishedAt.UTC().Round(time.Hour).Unix()
	}
	return fmt.Sprintf("fallback:%s|%s|%s|%d",
		item.SourceType,
		item.SourceID,
		strings.ToLower(strings.TrimSpace(item.Title)),
		hour,
	)
}
