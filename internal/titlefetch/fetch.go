// Package titlefetch implements the URL title pipeline (spec.md §4.3,
// C3): extraction, SSRF filtering, positive/negative TTL caching,
// bounded-body fetch with MIME gating, title extraction, the
// dynsearch relevance filter, and a self-throttle between
// announcements.
//
// Ported from original_source/plugins/title_plugin.py. Bounded-fetch
// dialing is modeled on bgpfix-bgpipe's stages/websocket.go dial
// loop and stages/connect.go's single-GET pattern.
package titlefetch

import (
	"context"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"strings"
	"time"

	"github.com/klauspost/compress/gzip"
	"github.com/rs/zerolog"
	"golang.org/x/net/html"
	"golang.org/x/time/rate"

	"github.com/nanonyme/nanobot/internal/ttlcache"
)

const (
	fetchTimeout     = 30 * time.Second
	maxBody          = 2 * 1024 * 1024 // 2 MiB
	positiveCacheTTL = 3600 * time.Second
	negativeCacheTTL = 60 * time.Second
	announceThrottle = 2 * time.Second
	userAgent        = "nanobot title fetching, contact https://github.com/nanonyme/nanobot"
)

// ErrFetch wraps every failure between the SSRF filter and the
// announcement (spec.md §7's FetchError). Such failures are recorded
// in the negative cache and otherwise swallowed.
var ErrFetch = errors.New("fetch error")

var acceptedMimes = map[string]bool{"text/html": true}

// Announcer sends a chat reply; the title plugin supplies one bound
// to the originating channel/nick.
type Announcer func(ctx context.Context, text string) error

// Pipeline drives the whole per-message URL handling flow.
type Pipeline struct {
	log zerolog.Logger

	client *http.Client

	positive *ttlcache.Cache[string]
	negative *ttlcache.Cache[string]

	throttle *rate.Limiter
}

// NewPipeline builds a Pipeline with its own positive/negative caches
// enabled and a throttle limiter configured for one announcement per
// announceThrottle interval (spec.md §4.3).
func NewPipeline(log zerolog.Logger) *Pipeline {
	p := &Pipeline{
		log:      log.With().Str("component", "titlefetch").Logger(),
		client:   &http.Client{Timeout: fetchTimeout},
		positive: ttlcache.New[string](positiveCacheTTL),
		negative: ttlcache.New[string](negativeCacheTTL),
		throttle: rate.NewLimiter(rate.Every(announceThrottle), 1),
	}
	p.positive.Enable()
	p.negative.Enable()
	return p
}

// Close stops the cache reapers.
func (p *Pipeline) Close() {
	p.positive.Disable()
	p.negative.Disable()
}

// HandleMessage extracts URLs from message in order and, for each
// one that passes the SSRF filter and cache gating, fetches (or
// reuses a cached) title and announces it via announce, throttling
// 2s between announcements from the same message (spec.md §4.3,
// §5 ordering guarantee).
func (p *Pipeline) HandleMessage(ctx context.Context, message string, maxLen int, announce Announcer) {
	for _, rawURL := range ExtractURLs(message) {
		p.handleURL(ctx, rawURL, maxLen, announce)
	}
}

func (p *Pipeline) handleURL(ctx context.Context, rawURL string, maxLen int, announce Announcer) {
	host, err := hostOf(rawURL)
	if err != nil {
		return // unparsable URL, not our problem to report
	}
	if !AcceptableNetloc(host) {
		return // SSRF: rejected before any cache logic (invariant/S6)
	}

	if p.negative.Has(rawURL) {
		return
	}

	title, ok := p.positive.Fetch(rawURL)
	if !ok {
		var err error
		title, err = p.fetchTitle(ctx, rawURL, maxLen)
		if err != nil {
			p.log.Debug().Err(err).Str("url", rawURL).Msg("fetch failed, blocking temporarily")
			p.negative.Update(rawURL, "miss")
			return
		}
		if title == "" {
			return
		}
		p.positive.Update(rawURL, title)
	}

	if !ShouldAnnounce(rawURL, title) {
		return
	}

	if err := p.throttle.Wait(ctx); err != nil {
		return
	}
	if err := announce(ctx, "title: "+title); err != nil {
		p.log.Debug().Err(err).Str("url", rawURL).Msg("announce failed")
	}
}

func hostOf(rawURL string) (string, error) {
	u, err := parseURL(rawURL)
	if err != nil {
		return "", err
	}
	return u.Hostname(), nil
}

// fetchTitle performs the bounded GET, MIME gate, body cap, and title
// extraction described in spec.md §4.3.
func (p *Pipeline) fetchTitle(ctx context.Context, rawURL string, maxLen int) (string, error) {
	ctx, cancel := context.WithTimeout(ctx, fetchTimeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	req.Header.Set("Accept-Language", "en-US")
	req.Header.Set("Accept-Encoding", "gzip")
	req.Header.Set("User-Agent", userAgent)

	resp, err := p.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", fmt.Errorf("%w: response code %d", ErrFetch, resp.StatusCode)
	}

	ct := resp.Header.Get("Content-Type")
	if ct == "" {
		return "", fmt.Errorf("%w: empty Content-Type", ErrFetch)
	}
	mediaType, _, err := mime.ParseMediaType(ct)
	if err != nil {
		return "", fmt.Errorf("%w: unparsable Content-Type %q", ErrFetch, ct)
	}
	if !acceptedMimes[mediaType] {
		return "", fmt.Errorf("%w: mime %s not supported", ErrFetch, mediaType)
	}

	body := io.Reader(resp.Body)
	if strings.EqualFold(resp.Header.Get("Content-Encoding"), "gzip") {
		gz, err := gzip.NewReader(body)
		if err != nil {
			return "", fmt.Errorf("%w: %v", ErrFetch, err)
		}
		defer gz.Close()
		body = gz
	}

	capped := newCappedReader(body, maxBody)
	title, err := extractTitle(capped)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrFetch, err)
	}

	title = collapseWhitespace(title)
	if maxLen > 0 && len(title) > maxLen {
		title = title[:maxLen]
	}
	return title, nil
}

// extractTitle walks an HTML token stream looking for the first
// <title> element's text content (spec.md §4.3). Returns "" if none
// is present, even on a truncated/invalid tail (S7: a body cut off
// mid-document still yields the title if it appeared before the cut).
func extractTitle(r io.Reader) (string, error) {
	z := html.NewTokenizer(r)
	inTitle := false
	var title strings.Builder

	for {
		tt := z.Next()
		switch tt {
		case html.ErrorToken:
			err := z.Err()
			if err == io.EOF {
				return title.String(), nil
			}
			if title.Len() > 0 {
				// malformed tail, but we already have a title
				return title.String(), nil
			}
			return "", err

		case html.StartTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				inTitle = true
			}

		case html.EndTagToken:
			name, _ := z.TagName()
			if string(name) == "title" {
				return title.String(), nil
			}

		case html.TextToken:
			if inTitle {
				title.Write(z.Text())
			}
		}
	}
}
