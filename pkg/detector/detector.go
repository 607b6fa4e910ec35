package detector

import (
	"net/url"
	"strings"

	"github.com/go-shiori/go-readability"
)

// Domain types
const (
	DomainOfficial   = "official"
	DomainGov        = "gov"
	DomainSocial     = "social"
	DomainMobile     = "mobile"
	DomainNews       = "news"
	DomainCommercial = "commercial"
)

// OfficialDomains are government publishers whose broken links are worth
// repairing with a site search.
var OfficialDomains = []string{
	"lamoncloa.gob.es",
	"gob.es",
	"gencat.cat",
	"govern.cat",
	"ajuntament.barcelona.cat",
	"barcelona.cat",
	"boe.es",
	"minhafp.gob.es",
	"inclusion.gob.es",
	"mitma.gob.es",
}

var socialHosts = []string{
	"twitter.com", "x.com", "instagram.com", "facebook.com",
	"linkedin.com", "tiktok.com", "youtube.com", "t.me", "threads.net",
}

var newsHosts = []string{"news", "diari", "periodico", "lavanguardia", "elpais", "ara.cat", "elnacional", "europapress"}

// Profile is a cheap classification of a page from its URL, HTTP response and
// readability metadata.
type Profile struct {
	DomainType string // official, gov, social, mobile, news, commercial
	Country    string // TLD-based guess: es, cat, uk, ...

	Author        string
	SiteName      string
	Excerpt       string
	PublishedTime string // YYYY-MM-DD

	FinalURL      string
	RedirectChain []string
	StatusCode    int
}

// HTTPMetadata contains optional HTTP response data
type HTTPMetadata struct {
	StatusCode    int
	FinalURL      string
	RedirectChain []string
}

// Analyze classifies rawURL and copies the readability metadata into a Profile.
func Analyze(rawURL string, article readability.Article, httpMeta *HTTPMetadata) *Profile {
	p := &Profile{}
	if httpMeta != nil {
		p.StatusCode = httpMeta.StatusCode
		p.FinalURL = httpMeta.FinalURL
		p.RedirectChain = httpMeta.RedirectChain
	}

	p.Author = article.Byline
	p.SiteName = article.SiteName
	p.Excerpt = article.Excerpt
	if article.PublishedTime != nil {
		p.PublishedTime = article.PublishedTime.Format("2006-01-02")
	}

	parsedURL, err := url.Parse(rawURL)
	if err != nil {
		return p
	}
	p.DomainType = detectDomainType(parsedURL)
	p.Country = detectCountry(parsedURL)
	return p
}

// DomainType classifies rawURL by its host alone.
func DomainType(rawURL string) string {
	u, err := url.Parse(strings.TrimSpace(rawURL))
	if err != nil {
		return DomainCommercial
	}
	return detectDomainType(u)
}

// detectDomainType identifies domain classification
func detectDomainType(u *url.URL) string {
	host := strings.ToLower(u.Hostname())

	if _, ok := OfficialDomain(host); ok {
		return DomainOfficial
	}
	if strings.HasSuffix(host, ".gov") || strings.HasSuffix(host, ".gob.es") ||
		strings.HasSuffix(host, ".gencat.cat") || strings.HasSuffix(host, ".europa.eu") {
		return DomainGov
	}
	if IsSocialHost(host) {
		return DomainSocial
	}
	if strings.HasPrefix(host, "m.") || strings.HasPrefix(host, "mobile.") {
		return DomainMobile
	}
	for _, n := range newsHosts {
		if strings.Contains(host, n) {
			return DomainNews
		}
	}
	return DomainCommercial
}

// OfficialDomain returns the entry of OfficialDomains contained in host.
func OfficialDomain(host string) (string, bool) {
	host = strings.ToLower(host)
	for _, d := range OfficialDomains {
		if strings.Contains(host, d) {
			return d, true
		}
	}
	return "", false
}

// IsSocialHost reports whether host belongs to a social network.
func IsSocialHost(host string) bool {
	host = strings.TrimPrefix(strings.ToLower(host), "www.")
	for _, s := range socialHosts {
		if host == s || strings.HasSuffix(host, "."+s) {
			return true
		}
	}
	return false
}

// detectCountry extracts country from TLD
func detectCountry(u *url.URL) string {
	parts := strings.Split(strings.ToLower(u.Hostname()), ".")
	if len(parts) < 2 {
		return "unknown"
	}

	tld := parts[len(parts)-1]
	countries := map[string]string{
		"es": "es", "cat": "cat", "eus": "eus", "gal": "gal", "uk": "uk",
		"de": "de", "fr": "fr", "it": "it", "pt": "pt", "nl": "nl",
	}
	if country, ok := countries[tld]; ok {
		return country
	}
	if tld == "eu" {
		return "eu"
	}
	return "unknown"
}
