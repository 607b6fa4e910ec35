// Package urlnorm produces canonical and retry-variant forms of candidate URLs.
// Nothing in this package touches the network.
package urlnorm

import (
	"net/url"
	"strings"
)

const viewSourcePrefix = "view-source:"

var trackingParams = map[string]bool{
	"fbclid": true,
	"gclid":  true,
	"yclid":  true,
	"igshid": true,
}

// IsTrackingParam reports whether a query key is a known tracking parameter.
func IsTrackingParam(key string) bool {
	k := strings.ToLower(key)
	return strings.HasPrefix(k, "utm_") || trackingParams[k]
}

// filterQuery drops tracking pairs from a raw query string, keeping the
// order and encoding of everything else.
func filterQuery(rawQuery string) string {
	if rawQuery == "" {
		return ""
	}
	kept := make([]string, 0, strings.Count(rawQuery, "&")+1)
	for _, pair := range strings.Split(rawQuery, "&") {
		if pair == "" {
			continue
		}
		key := pair
		if i := strings.IndexByte(pair, '='); i >= 0 {
			key = pair[:i]
		}
		if k, err := url.QueryUnescape(key); err == nil {
			key = k
		}
		if IsTrackingParam(key) {
			continue
		}
		kept = append(kept, pair)
	}
	return strings.Join(kept, "&")
}

// StripTracking removes tracking query parameters and nothing else.
// Unparseable input is returned trimmed.
func StripTracking(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)
	u, err := url.Parse(cleaned)
	if err != nil {
		return cleaned
	}
	u.RawQuery = filterQuery(u.RawQuery)
	u.ForceQuery = false
	return u.String()
}

// Normalize returns the canonical form used before validation:
// no view-source: prefix, no tracking parameters, https scheme, no fragment.
// Normalize(Normalize(x)) == Normalize(x).
func Normalize(rawURL string) string {
	cleaned := strings.TrimSpace(rawURL)
	if cleaned == "" {
		return ""
	}
	for strings.HasPrefix(strings.ToLower(cleaned), viewSourcePrefix) {
		cleaned = strings.TrimSpace(cleaned[len(viewSourcePrefix):])
	}

	u, err := url.Parse(cleaned)
	if err != nil {
		return cleaned
	}
	if strings.EqualFold(u.Scheme, "http") {
		u.Scheme = "https"
	}
	u.RawQuery = filterQuery(u.RawQuery)
	u.ForceQuery = false
	u.Fragment = ""
	u.RawFragment = ""
	return u.String()
}

// CompareKey is the form used to match a URL against an allow-list.
func CompareKey(rawURL string) string {
	return StripTracking(rawURL)
}

// Host returns the lower-cased host of rawURL, or "" when it does not parse.
func Host(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return ""
	}
	return strings.ToLower(u.Host)
}

// IsHTTP reports whether rawURL uses the http or https scheme.
func IsHTTP(rawURL string) bool {
	lower := strings.ToLower(rawURL)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}
