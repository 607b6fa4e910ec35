package urlnorm

import (
	"reflect"
	"testing"
)

func TestNormalize(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"strips utm", "https://x.com/a?utm_source=y&b=1", "https://x.com/a?b=1"},
		{"upgrades scheme", "http://example.com/page", "https://example.com/page"},
		{"drops fragment", "https://example.com/page#top", "https://example.com/page"},
		{"view-source prefix", "view-source:https://example.com/doc", "https://example.com/doc"},
		{"click ids", "https://example.com/a?fbclid=1&gclid=2&yclid=3&igshid=4", "https://example.com/a"},
		{"case-insensitive keys", "https://example.com/a?UTM_Medium=x&id=7", "https://example.com/a?id=7"},
		{"keeps order", "https://example.com/a?z=1&utm_term=q&a=2", "https://example.com/a?z=1&a=2"},
		{"trims whitespace", "  https://example.com/a  ", "https://example.com/a"},
		{"empty", "", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Normalize(tt.in); got != tt.want {
				t.Errorf("Normalize(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	inputs := []string{
		"https://x.com/a?utm_source=y&b=1",
		"http://m.example.com/news/amp/?amp=1&utm_campaign=c#frag",
		"view-source:http://example.com/a%20b?q=caf%C3%A9",
		"https://example.com/path?&&a=1&",
		"not a url at all",
		"https://example.com/?",
	}
	for _, in := range inputs {
		once := Normalize(in)
		twice := Normalize(once)
		if once != twice {
			t.Errorf("Normalize not idempotent for %q: %q then %q", in, once, twice)
		}
	}
}

func TestStripTracking_KeepsSchemeAndFragment(t *testing.T) {
	got := StripTracking("http://example.com/a?utm_source=x&k=v#s")
	want := "http://example.com/a?k=v#s"
	if got != want {
		t.Errorf("StripTracking() = %q, want %q", got, want)
	}
}

func TestAMPVariants(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"suffix", "https://example.com/story/amp", []string{"https://example.com/story"}},
		{"suffix slash", "https://example.com/story/amp/", []string{"https://example.com/story", "https://example.com/story/"}},
		{"inner segment", "https://example.com/amp/story", []string{"https://example.com/story"}},
		{"query param", "https://example.com/story?amp=1", []string{"https://example.com/story"}},
		{"none", "https://example.com/story", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := AMPVariants(tt.in)
			if !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AMPVariants(%q) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestMobileVariants(t *testing.T) {
	if got := MobileVariants("https://m.example.com/a"); !reflect.DeepEqual(got, []string{"https://example.com/a"}) {
		t.Errorf("MobileVariants(m.) = %v", got)
	}
	if got := MobileVariants("https://mobile.example.com/a"); !reflect.DeepEqual(got, []string{"https://example.com/a"}) {
		t.Errorf("MobileVariants(mobile.) = %v", got)
	}
	if got := MobileVariants("https://www.example.com/a"); got != nil {
		t.Errorf("MobileVariants(www.) = %v, want nil", got)
	}
}

func TestCanonicalizeSocial(t *testing.T) {
	got := CanonicalizeSocial("https://twitter.com/govern/status/1790000000000000000?s=20")
	want := []string{
		"https://x.com/govern/status/1790000000000000000",
		"https://twitter.com/govern/status/1790000000000000000",
		"https://x.com/i/web/status/1790000000000000000",
		"https://twitter.com/i/web/status/1790000000000000000",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("CanonicalizeSocial() = %v, want %v", got, want)
	}

	anon := CanonicalizeSocial("https://x.com/i/web/status/123456789012345678")
	wantAnon := []string{
		"https://x.com/i/web/status/123456789012345678",
		"https://twitter.com/i/web/status/123456789012345678",
	}
	if !reflect.DeepEqual(anon, wantAnon) {
		t.Errorf("CanonicalizeSocial(anonymous) = %v, want %v", anon, wantAnon)
	}

	for _, in := range []string{"https://example.com/user/status/1", "https://netflix.com/a/status/1", "https://x.com/user"} {
		if got := CanonicalizeSocial(in); len(got) != 0 {
			t.Errorf("CanonicalizeSocial(%q) = %v, want empty", in, got)
		}
	}
}

func TestExtractWrappedURL(t *testing.T) {
	tests := []struct {
		in     string
		want   string
		wantOK bool
	}{
		{"https://news.google.com/articles/x?url=https%3A%2F%2Fgencat.cat%2Fa", "https://gencat.cat/a", true},
		{"https://news.google.com/rss?q=https://boe.es/doc", "https://boe.es/doc", true},
		{"https://www.google.com/url?q=https://example.com/p&sa=D", "https://example.com/p", true},
		{"https://news.google.com/home", "", false},
		{"https://example.com/?url=https://other.com", "", false},
	}
	for _, tt := range tests {
		got, ok := ExtractWrappedURL(tt.in)
		if got != tt.want || ok != tt.wantOK {
			t.Errorf("ExtractWrappedURL(%q) = (%q, %v), want (%q, %v)", tt.in, got, ok, tt.want, tt.wantOK)
		}
	}
}

func TestChainExpand(t *testing.T) {
	got := RetryChain.Expand("https://m.example.com/story/amp")
	want := []string{"https://m.example.com/story", "https://example.com/story/amp"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("RetryChain.Expand() = %v, want %v", got, want)
	}
}

func TestExtractURLs(t *testing.T) {
	text := `The page is https://www.gencat.cat/ca/actualitat/detall/Nota-1. Also see "https://boe.es/doc?id=2" and <https://x.com/a>.`
	got := ExtractURLs(text)
	want := []string{
		"https://www.gencat.cat/ca/actualitat/detall/Nota-1",
		"https://boe.es/doc?id=2",
		"https://x.com/a",
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ExtractURLs() = %v, want %v", got, want)
	}
}

func TestFirstURLOnDomain(t *testing.T) {
	text := "Try https://other.org/x then https://www.boe.es/diario/123 or NOT_FOUND"
	got, ok := FirstURLOnDomain(text, "www.boe.es")
	if !ok || got != "https://www.boe.es/diario/123" {
		t.Errorf("FirstURLOnDomain() = (%q, %v)", got, ok)
	}
	if _, ok := FirstURLOnDomain(text, "gencat.cat"); ok {
		t.Error("FirstURLOnDomain() matched an absent domain")
	}
}

func TestFirstRedirectURL(t *testing.T) {
	got, ok := FirstRedirectURL("Source: https://vertexaisearch.cloud.google.com/grounding-api-redirect/AbC")
	if !ok || got != "https://vertexaisearch.cloud.google.com/grounding-api-redirect/AbC" {
		t.Errorf("FirstRedirectURL() = (%q, %v)", got, ok)
	}
}
