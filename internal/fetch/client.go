// Package fetch downloads register data from the Food Hygiene Rating
// Scheme API: the list of publishing authorities, then one XML file of
// establishments per authority.
package fetch

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/fooddata/fhrs-reconcile/internal/model"
)

// DefaultBaseURL is the production API endpoint.
const DefaultBaseURL = "https://api.ratings.food.gov.uk"

// Options configures the API client.
type Options struct {
	BaseURL    string
	UserAgent  string
	Timeout    time.Duration
	MaxRetries int
	// RequestsPerSecond throttles all calls; the API has no published
	// limit but bulk authority downloads are large.
	RequestsPerSecond float64
}

// Client talks to the FHRS API.
type Client struct {
	client  *http.Client
	opts    Options
	limiter *rate.Limiter
	log     *zap.Logger
}

// NewClient creates a Client, filling in defaults for unset options.
func NewClient(opts Options) *Client {
	if opts.BaseURL == "" {
		opts.BaseURL = DefaultBaseURL
	}
	if opts.UserAgent == "" {
		opts.UserAgent = "fhrs-reconcile/1.0"
	}
	if opts.Timeout == 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.MaxRetries == 0 {
		opts.MaxRetries = 3
	}
	if opts.RequestsPerSecond == 0 {
		opts.RequestsPerSecond = 2
	}
	return &Client{
		client: &http.Client{
			Timeout: opts.Timeout,
			Transport: &http.Transport{
				MaxIdleConnsPerHost: 4,
				IdleConnTimeout:     90 * time.Second,
			},
		},
		opts:    opts,
		limiter: rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), 1),
		log:     zap.L().With(zap.String("component", "fetch")),
	}
}

// Authorities downloads and decodes the list of publishing authorities.
func (c *Client) Authorities(ctx context.Context) ([]model.Authority, error) {
	data, err := c.get(ctx, c.opts.BaseURL+"/Authorities", true)
	if err != nil {
		return nil, eris.Wrap(err, "fetch: authorities")
	}
	return ParseAuthorities(data)
}

// Establishments downloads and decodes one authority's establishment
// file from the URL the Authorities endpoint published for it.
func (c *Client) Establishments(ctx context.Context, authority model.Authority) ([]model.Establishment, error) {
	if authority.XMLURL == "" {
		return nil, eris.Errorf("fetch: authority %d has no data url", authority.Code)
	}
	data, err := c.get(ctx, authority.XMLURL, false)
	if err != nil {
		return nil, eris.Wrapf(err, "fetch: establishments for authority %d", authority.Code)
	}
	return ParseEstablishments(data)
}

// RequiringFetch filters the downloaded authority list to those whose
// publish date is newer than what was previously stored. An authority
// with no publish date is assumed newer.
func RequiringFetch(downloaded []model.Authority, stored map[int]time.Time) []model.Authority {
	var out []model.Authority
	for _, a := range downloaded {
		if a.LastPublished.IsZero() {
			out = append(out, a)
			continue
		}
		if prev, ok := stored[a.Code]; ok && !prev.Before(a.LastPublished) {
			continue
		}
		out = append(out, a)
	}
	return out
}

// get performs a GET with rate limiting and retries. apiVersioned adds
// the x-api-version header, required on api.ratings.food.gov.uk but not
// on the per-authority file hosts.
func (c *Client) get(ctx context.Context, url string, apiVersioned bool) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, eris.Wrap(err, "create request")
	}
	req.Header.Set("User-Agent", c.opts.UserAgent)
	req.Header.Set("Accept", "application/xml")
	if apiVersioned {
		req.Header.Set("x-api-version", "2")
	}

	var lastErr error
	for attempt := 0; attempt < c.opts.MaxRetries; attempt++ {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, eris.Wrap(err, "rate limiter wait")
		}

		resp, err := c.client.Do(req.Clone(ctx))
		if err != nil {
			lastErr = err
			c.log.Warn("request failed, retrying",
				zap.String("url", url),
				zap.Int("attempt", attempt+1),
				zap.Error(err),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			_ = resp.Body.Close()
			lastErr = eris.Errorf("http %d from %s", resp.StatusCode, url)
			c.log.Warn("retryable status, backing off",
				zap.String("url", url),
				zap.Int("status", resp.StatusCode),
				zap.Int("attempt", attempt+1),
			)
			c.backoff(ctx, attempt)
			continue
		}

		if resp.StatusCode != http.StatusOK {
			_ = resp.Body.Close()
			return nil, eris.Errorf("http %d from %s", resp.StatusCode, url)
		}

		data, err := io.ReadAll(resp.Body)
		_ = resp.Body.Close()
		if err != nil {
			lastErr = err
			c.backoff(ctx, attempt)
			continue
		}
		return data, nil
	}

	return nil, eris.Wrap(lastErr, "all retries exhausted")
}

func (c *Client) backoff(ctx context.Context, attempt int) {
	base := 2 * time.Second
	maxBackoff := time.Minute
	d := time.Duration(float64(base) * math.Pow(2, float64(attempt)))
	if d > maxBackoff {
		d = maxBackoff
	}
	d += time.Duration(rand.Int63n(int64(d) / 2))

	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
