package urlnorm

import (
	"net/url"
	"strings"
)

// VariantGenerator derives alternative spellings of a URL worth retrying.
type VariantGenerator func(rawURL string) []string

// Chain is an ordered list of generators. Earlier generators win.
type Chain []VariantGenerator

// Expand runs every generator and returns the variants in order, without
// duplicates and without the input itself.
func (c Chain) Expand(rawURL string) []string {
	seen := map[string]bool{rawURL: true}
	var out []string
	for _, gen := range c {
		for _, v := range gen(rawURL) {
			if v == "" || seen[v] {
				continue
			}
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}

var (
	// RetryChain is tried by the resolver once a candidate fails validation.
	RetryChain = Chain{AMPVariants, MobileVariants}
	// SocialChain is tried for original-article URLs posted on X/Twitter.
	SocialChain = Chain{CanonicalizeSocial}
)

// AMPVariants strips AMP markers from the path or query.
func AMPVariants(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	path := u.Path
	var paths []string
	if strings.HasSuffix(path, "/amp") {
		paths = append(paths, strings.TrimSuffix(path, "/amp"))
	}
	if strings.HasSuffix(path, "/amp/") {
		paths = append(paths, strings.TrimSuffix(path, "/amp/"))
	}
	if strings.Contains(path, "/amp/") {
		paths = append(paths, strings.Replace(path, "/amp/", "/", 1))
	}

	var variants []string
	for _, p := range paths {
		v := *u
		v.Path = p
		v.RawPath = ""
		variants = append(variants, v.String())
	}

	q := u.Query()
	if q.Has("amp") {
		q.Del("amp")
		v := *u
		v.RawQuery = q.Encode()
		variants = append(variants, v.String())
	}
	return dedupe(variants)
}

// MobileVariants strips an m. or mobile. host prefix.
func MobileVariants(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	var variants []string
	for _, prefix := range []string{"m.", "mobile."} {
		if strings.HasPrefix(strings.ToLower(u.Host), prefix) {
			v := *u
			v.Host = u.Host[len(prefix):]
			variants = append(variants, v.String())
		}
	}
	return variants
}

func isXHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	host = strings.TrimPrefix(host, "mobile.")
	return host == "x.com" || host == "twitter.com"
}

// CanonicalizeSocial rebuilds X/Twitter status URLs in every canonical form.
// It returns nil for any other host or when no status id is present.
func CanonicalizeSocial(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil || !isXHost(u.Host) {
		return nil
	}
	var parts []string
	for _, p := range strings.Split(strings.TrimRight(u.Path, "/"), "/") {
		if p != "" {
			parts = append(parts, p)
		}
	}

	var username, statusID string
	for i, p := range parts {
		if p != "status" {
			continue
		}
		if i > 0 {
			username = parts[i-1]
		}
		if i+1 < len(parts) {
			statusID = parts[i+1]
		}
		break
	}
	if statusID == "" {
		return nil
	}
	// /i/web/status/{id} carries no user.
	if username == "web" && len(parts) >= 3 && parts[0] == "i" {
		username = ""
	}

	var out []string
	if username != "" {
		out = append(out,
			"https://x.com/"+username+"/status/"+statusID,
			"https://twitter.com/"+username+"/status/"+statusID,
		)
	}
	out = append(out,
		"https://x.com/i/web/status/"+statusID,
		"https://twitter.com/i/web/status/"+statusID,
	)
	return dedupe(out)
}

// ExtractWrappedURL unwraps Google News and Google redirect links.
func ExtractWrappedURL(rawURL string) (string, bool) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return "", false
	}
	host := strings.ToLower(u.Host)
	wrapped := strings.Contains(host, "news.google.com") ||
		((host == "google.com" || host == "www.google.com") && u.Path == "/url")
	if !wrapped {
		return "", false
	}
	q := u.Query()
	for _, key := range []string{"url", "q", "u"} {
		if v := q.Get(key); v != "" {
			return v, true
		}
	}
	return "", false
}

func dedupe(in []string) []string {
	if len(in) == 0 {
		return nil
	}
	seen := make(map[string]bool, len(in))
	out := in[:0]
	for _, v := range in {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}
