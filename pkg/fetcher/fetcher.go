package fetcher

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html/charset"
)

const (
	// BrowserUserAgent is sent on every probe; several official sites reject Go's default.
	BrowserUserAgent = "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) " +
		"AppleWebKit/537.36 (KHTML, like Gecko) " +
		"Chrome/121.0.0.0 Safari/537.36"

	DefaultTimeout = 20 * time.Second
	DefaultMaxBody = 2 << 20
	DefaultMaxHops = 15
)

type Fetcher struct {
	client    *http.Client
	userAgent string
	maxBody   int64
}

// Response is what a probe observed. Body is decoded to UTF-8 for HTML pages
// and truncated at the fetcher's body limit.
type Response struct {
	Method        string
	StatusCode    int
	ContentType   string
	ContentLength int64
	FinalURL      string
	RedirectChain []string
	Body          []byte
}

type Option func(*Fetcher)

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(f *Fetcher) { f.client.Timeout = d }
}

// WithClient replaces the HTTP client; its CheckRedirect is overwritten.
func WithClient(c *http.Client) Option {
	return func(f *Fetcher) {
		copied := *c
		f.client = &copied
	}
}

func WithUserAgent(ua string) Option {
	return func(f *Fetcher) { f.userAgent = ua }
}

func WithMaxBody(n int64) Option {
	return func(f *Fetcher) { f.maxBody = n }
}

func NewFetcher(opts ...Option) *Fetcher {
	f := &Fetcher{
		client:    &http.Client{Timeout: DefaultTimeout},
		userAgent: BrowserUserAgent,
		maxBody:   DefaultMaxBody,
	}
	for _, opt := range opts {
		opt(f)
	}
	f.client.CheckRedirect = trackRedirects
	return f
}

type chainKey struct{}

// trackRedirects records every hop into the chain stored on the request context.
func trackRedirects(req *http.Request, via []*http.Request) error {
	if len(via) >= DefaultMaxHops {
		return fmt.Errorf("stopped after %d redirects", DefaultMaxHops)
	}
	if chain, ok := req.Context().Value(chainKey{}).(*[]string); ok {
		hops := make([]string, 0, len(via))
		for _, r := range via {
			hops = append(hops, r.URL.String())
		}
		*chain = hops
	}
	return nil
}

// Head issues a HEAD request following redirects.
func (f *Fetcher) Head(ctx context.Context, url string) (*Response, error) {
	return f.Do(ctx, http.MethodHead, url)
}

// Get issues a GET request following redirects and reads the body.
func (f *Fetcher) Get(ctx context.Context, url string) (*Response, error) {
	return f.Do(ctx, http.MethodGet, url)
}

// Do probes url with method. Transport failures are returned as errors;
// HTTP error statuses are not.
func (f *Fetcher) Do(ctx context.Context, method, url string) (*Response, error) {
	chain := []string{}
	ctx = context.WithValue(ctx, chainKey{}, &chain)

	req, err := http.NewRequestWithContext(ctx, method, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build request: %w", err)
	}
	req.Header.Set("User-Agent", f.userAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/pdf;q=0.9,*/*;q=0.8")

	resp, err := f.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to make HTTP request: %w", err)
	}
	defer resp.Body.Close()

	out := &Response{
		Method:        method,
		StatusCode:    resp.StatusCode,
		ContentType:   resp.Header.Get("Content-Type"),
		ContentLength: resp.ContentLength,
		FinalURL:      resp.Request.URL.String(),
		RedirectChain: chain,
	}
	if method == http.MethodHead {
		if out.ContentLength < 0 {
			out.ContentLength = 0
		}
		return out, nil
	}

	raw, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return nil, fmt.Errorf("failed to read response body: %w", err)
	}
	out.ContentLength = int64(len(raw))
	out.Body = decodeBody(raw, out.ContentType)
	return out, nil
}

// decodeBody converts HTML bodies to UTF-8 using the declared or sniffed charset.
func decodeBody(raw []byte, contentType string) []byte {
	if !strings.Contains(strings.ToLower(contentType), "html") {
		return raw
	}
	r, err := charset.NewReader(bytes.NewReader(raw), contentType)
	if err != nil {
		return raw
	}
	decoded, err := io.ReadAll(r)
	if err != nil {
		return raw
	}
	return decoded
}

// GetHtml fetches url and parses it into a goquery document.
func (f *Fetcher) GetHtml(ctx context.Context, url string) (*goquery.Document, *Response, error) {
	resp, err := f.GetHtmlBytes(ctx, url)
	if err != nil {
		return nil, resp, err
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(resp.Body))
	if err != nil {
		return nil, resp, fmt.Errorf("failed to parse HTML: %w", err)
	}
	return doc, resp, nil
}

// ErrStatus is returned by GetHtmlBytes for non-2xx responses.
var ErrStatus = errors.New("unexpected status code")

func (f *Fetcher) GetHtmlBytes(ctx context.Context, url string) (*Response, error) {
	resp, err := f.Get(ctx, url)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return resp, fmt.Errorf("failed to fetch HTML, status code %d: %w", resp.StatusCode, ErrStatus)
	}
	return resp, nil
}
