// Package preview resolves links found in chat messages into short HTML
// previews.
package preview

import (
	"context"
	"fmt"
	"io"
	"mime"
	"net/http"
	"regexp"
	"strings"
	"time"

	"roomchat/backend/internal/config"

	"github.com/patrickmn/go-cache"
	"github.com/samber/lo"
	"go.uber.org/zap"
	"golang.org/x/net/html"
)

const maxBodyBytes = 1 << 20

var urlPattern = regexp.MustCompile(`https?://[^\s<>"']+`)

// Result is the extracted preview of one URL.
type Result struct {
	URL         string `json:"url"`
	Title       string `json:"title,omitempty"`
	Description string `json:"description,omitempty"`
	Image       string `json:"image,omitempty"`
}

// Content renders the preview as an HTML fragment.
func (r Result) Content() string {
	var b strings.Builder
	if r.Title != "" {
		fmt.Fprintf(&b, `<a href="%s" target="_blank">%s</a>`, html.EscapeString(r.URL), html.EscapeString(r.Title))
	}
	if r.Description != "" {
		if b.Len() > 0 {
			b.WriteString(" - ")
		}
		b.WriteString(html.EscapeString(r.Description))
	}
	if r.Image != "" {
		fmt.Fprintf(&b, `<img src="%s" alt="" />`, html.EscapeString(r.Image))
	}
	return b.String()
}

// Cache is a second-level store shared between processes.
type Cache interface {
	Get(ctx context.Context, url string) (*Result, bool, error)
	Set(ctx context.Context, url string, r *Result, ttl time.Duration) error
}

// Processor fetches and parses link previews. Results, including misses,
// are cached in process; hits are also written to the shared cache.
type Processor struct {
	client *http.Client
	local  *cache.Cache
	shared Cache
	ttl    time.Duration
	log    *zap.Logger
}

func NewProcessor(timeout, ttl time.Duration, shared Cache, log *zap.Logger) *Processor {
	return &Processor{
		client: &http.Client{Timeout: timeout},
		local:  cache.New(ttl, 10*time.Minute),
		shared: shared,
		ttl:    ttl,
		log:    log.Named("preview"),
	}
}

// Extract returns the preview of url. A nil result with a nil error means
// the page has nothing worth showing.
func (p *Processor) Extract(ctx context.Context, url string) (*Result, error) {
	if x, found := p.local.Get(url); found {
		return x.(*Result), nil
	}
	if p.shared != nil {
		r, found, err := p.shared.Get(ctx, url)
		if err != nil {
			p.log.Warn("shared cache read failed", zap.String("url", url), zap.Error(err))
		} else if found {
			p.local.SetDefault(url, r)
			return r, nil
		}
	}

	r, err := p.fetch(ctx, url)
	if err != nil {
		p.local.SetDefault(url, (*Result)(nil))
		return nil, err
	}
	p.local.SetDefault(url, r)
	if r != nil && p.shared != nil {
		if err := p.shared.Set(ctx, url, r, p.ttl); err != nil {
			p.log.Warn("shared cache write failed", zap.String("url", url), zap.Error(err))
		}
	}
	return r, nil
}

func (p *Processor) fetch(ctx context.Context, url string) (*Result, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", "roomchat-preview/1.0")

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch %s: %w", url, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, fmt.Errorf("fetch %s: status %d", url, resp.StatusCode)
	}

	mediaType, _, _ := mime.ParseMediaType(resp.Header.Get("Content-Type"))
	switch {
	case strings.HasPrefix(mediaType, "image/"):
		return &Result{URL: url, Image: url}, nil
	case mediaType == "text/html", mediaType == "application/xhtml+xml":
	default:
		return nil, nil
	}

	r := parseHead(io.LimitReader(resp.Body, maxBodyBytes))
	if r.Title == "" && r.Description == "" && r.Image == "" {
		return nil, nil
	}
	r.URL = url
	return &r, nil
}

// parseHead reads title and Open Graph tags up to the end of <head>.
// Open Graph values win over <title> and the description meta tag.
func parseHead(body io.Reader) Result {
	var (
		r                      Result
		title, ogTitle, ogDesc string
		inTitle                bool
	)
	z := html.NewTokenizer(body)
scan:
	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			break scan
		case html.StartTagToken, html.SelfClosingTagToken:
			tok := z.Token()
			switch tok.Data {
			case "title":
				inTitle = tt == html.StartTagToken
			case "body":
				break scan
			case "meta":
				key, content := metaAttrs(tok)
				switch key {
				case "og:title":
					ogTitle = content
				case "og:description":
					ogDesc = content
				case "description":
					if r.Description == "" {
						r.Description = content
					}
				case "og:image":
					r.Image = content
				}
			}
		case html.TextToken:
			if inTitle {
				title += string(z.Text())
			}
		case html.EndTagToken:
			name, _ := z.TagName()
			switch string(name) {
			case "title":
				inTitle = false
			case "head":
				break scan
			}
		}
	}
	r.Title = strings.TrimSpace(lo.Ternary(ogTitle != "", ogTitle, title))
	if ogDesc != "" {
		r.Description = ogDesc
	}
	r.Description = strings.TrimSpace(r.Description)
	return r
}

func metaAttrs(tok html.Token) (key, content string) {
	for _, a := range tok.Attr {
		switch strings.ToLower(a.Key) {
		case "property", "name":
			key = strings.ToLower(a.Val)
		case "content":
			content = a.Val
		}
	}
	return key, content
}

// ExtractURLs returns the distinct http(s) links in text, at most
// config.MaxLinksPerMessage of them.
func ExtractURLs(text string) []string {
	urls := lo.Uniq(lo.Map(urlPattern.FindAllString(text, -1), func(u string, _ int) string {
		return strings.TrimRight(u, ".,;:!?)")
	}))
	if len(urls) > config.MaxLinksPerMessage {
		urls = urls[:config.MaxLinksPerMessage]
	}
	return urls
}
