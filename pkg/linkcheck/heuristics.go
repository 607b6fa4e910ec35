package linkcheck

import (
	"net/url"
	"regexp"
	"strings"
)

var (
	genericPaths = map[string]bool{
		"":            true,
		"/":           true,
		"/index.html": true,
		"/index.php":  true,
		"/home":       true,
		"/en":         true,
		"/es":         true,
		"/ca":         true,
	}
	landingPaths = map[string]bool{
		"/about":         true,
		"/contact":       true,
		"/about-us":      true,
		"/contacto":      true,
		"/qui-som":       true,
		"/quienes-somos": true,
	}

	statusIDPattern    = regexp.MustCompile(`/status/(\d+)`)
	binaryIDPattern    = regexp.MustCompile(`^[01]+$`)
	instagramPattern   = regexp.MustCompile(`/p/([^/]+)`)
	fileSuffixPattern  = regexp.MustCompile(`(?i)\.(aspx|html|htm|php)$`)
	termSeparators     = regexp.MustCompile(`[-_]`)
	searchSkipSegments = map[string]bool{
		"paginas":           true,
		"pages":             true,
		"notasprensa":       true,
		"serviciosdeprensa": true,
		"news":              true,
		"press":             true,
		"web":               true,
	}
)

// IsGenericHomepage reports whether rawURL points at a site root, a bare
// language root or an about/contact page rather than specific content.
// WhatsApp channel links are specific even though their path looks generic.
func IsGenericHomepage(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	path := strings.TrimRight(u.Path, "/")
	if genericPaths[path] {
		return !(strings.Contains(strings.ToLower(u.Host), "whatsapp.com") && strings.Contains(rawURL, "/channel/"))
	}
	return landingPaths[path]
}

// IsFabricatedSocial reports whether a Twitter/X or Instagram URL has the
// shape of an invented link: a short or placeholder status id, a missing
// status path, or a too-short post code.
func IsFabricatedSocial(rawURL string) bool {
	u, err := url.Parse(rawURL)
	if err != nil {
		return false
	}
	host := strings.ToLower(u.Host)
	path := u.Path

	switch host {
	case "twitter.com", "x.com", "www.twitter.com", "www.x.com":
		if m := statusIDPattern.FindStringSubmatch(path); m != nil {
			id := m[1]
			return len(id) < 15 || binaryIDPattern.MatchString(id)
		}
		// A non-numeric status id such as XXXXX never matches the pattern above.
		if strings.Contains(path, "/status/") {
			return strings.Contains(path, "XXXXX")
		}
		return strings.Count(path, "/") < 2
	case "instagram.com", "www.instagram.com":
		if m := instagramPattern.FindStringSubmatch(path); m != nil {
			return len(m[1]) < 8
		}
	}
	return false
}

// imetCandidates rewrites a taxi.amb.cat URL into its locale and section
// permutations, in the order they should be tried.
func imetCandidates(rawURL string) []string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil
	}
	path := u.Path
	locales := []string{"es", "ca", "en"}

	var paths []string
	for _, locale := range locales {
		seg := "/" + locale + "/"
		if strings.Contains(path, seg) {
			for _, alt := range locales {
				if alt != locale {
					paths = append(paths, strings.Replace(path, seg, "/"+alt+"/", 1))
				}
			}
			paths = append(paths, strings.Replace(path, seg, "/", 1))
		} else {
			paths = append(paths, "/"+locale+path)
		}
	}
	if strings.Contains(path, "/web/taxi/") {
		paths = append(paths,
			strings.Replace(path, "/web/taxi/", "/taxi/", 1),
			strings.Replace(path, "/web/taxi/", "/", 1),
			strings.Replace(path, "/web/taxi/", "/web/imet/", 1),
			strings.Replace(path, "/web/taxi/", "/imet/", 1),
		)
	}
	paths = append(paths, strings.ReplaceAll(path, "//", "/"))

	seen := make(map[string]bool, len(paths))
	out := make([]string, 0, len(paths))
	for _, p := range paths {
		if seen[p] {
			continue
		}
		seen[p] = true
		c := *u
		c.Path = p
		c.RawPath = ""
		out = append(out, c.String())
	}
	return out
}

// searchTerms turns a URL path into search words: file suffixes and
// boilerplate segments dropped, separators turned into spaces.
func searchTerms(rawURL string) string {
	u, err := url.Parse(rawURL)
	if err != nil {
		return ""
	}
	path := fileSuffixPattern.ReplaceAllString(u.Path, "")
	var parts []string
	for _, p := range strings.Split(path, "/") {
		if len(p) <= 2 || searchSkipSegments[strings.ToLower(p)] {
			continue
		}
		parts = append(parts, p)
	}
	return termSeparators.ReplaceAllString(strings.Join(parts, " "), " ")
}
