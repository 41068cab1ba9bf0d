package leaguesource

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"github.com/rossfreedman/rally-sub003/internal/domain/scrape"
	"github.com/rossfreedman/rally-sub003/internal/platform/logging"
	"github.com/rossfreedman/rally-sub003/internal/platform/resilience"
	"github.com/rossfreedman/rally-sub003/internal/usecase"
	"github.com/valyala/bytebufferpool"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
)

const (
	defaultTimeout = 20 * time.Second
	maxBodyBytes   = 6 << 20
	feedDateLayout = "2006-01-02"
)

var errFeedTransient = crerr.New("league feed transient failure")

type ClientConfig struct {
	HTTPClient     *http.Client
	BaseURL        string
	Token          string
	Timeout        time.Duration
	MaxRetries     int
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client reads raw player, match and tracking records from the upstream
// league feed. It implements usecase.RecordSource.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/"),
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxInt(cfg.MaxRetries, 0),
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

type feedPlayerItem struct {
	Name      string   `json:"name"`
	PlayerID  string   `json:"player_id"`
	Team      string   `json:"team"`
	Rating    *float64 `json:"rating"`
	Series    string   `json:"series"`
	Inactive  bool     `json:"inactive"`
	ScrapedAt string   `json:"scraped_at"`
}

type feedMatchItem struct {
	Season      string   `json:"season"`
	Date        string   `json:"date"`
	HomePlayers []string `json:"home_players"`
	AwayPlayers []string `json:"away_players"`
	Line        int      `json:"line"`
	HomeScore   int      `json:"home_score"`
	AwayScore   int      `json:"away_score"`
	Source      string   `json:"source"`
	Inactive    bool     `json:"inactive"`
}

type feedTrackingItem struct {
	PlayerID string `json:"player_id"`
	Team     string `json:"team"`
	Date     string `json:"date"`
	Status   string `json:"status"`
}

type feedEnvelope[T any] struct {
	Data []T `json:"data"`
}

func (c *Client) FetchPlayers(ctx context.Context, leagueLabel string) ([]scrape.RawPlayerRecord, error) {
	var envelope feedEnvelope[feedPlayerItem]
	if err := c.doJSON(ctx, "/leagues/"+url.PathEscape(leagueLabel)+"/players", &envelope); err != nil {
		return nil, fmt.Errorf("fetch players league=%s: %w", leagueLabel, err)
	}

	out := make([]scrape.RawPlayerRecord, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		out = append(out, scrape.RawPlayerRecord{
			RawName:     item.Name,
			ExternalKey: strings.TrimSpace(item.PlayerID),
			LeagueLabel: leagueLabel,
			TeamLabel:   strings.TrimSpace(item.Team),
			Rating:      item.Rating,
			Series:      strings.TrimSpace(item.Series),
			Inactive:    item.Inactive,
			ScrapedAt:   parseFeedTime(item.ScrapedAt),
		})
	}
	return out, nil
}

func (c *Client) FetchMatches(ctx context.Context, leagueLabel string) ([]scrape.RawMatchRecord, error) {
	var envelope feedEnvelope[feedMatchItem]
	if err := c.doJSON(ctx, "/leagues/"+url.PathEscape(leagueLabel)+"/matches", &envelope); err != nil {
		return nil, fmt.Errorf("fetch matches league=%s: %w", leagueLabel, err)
	}

	out := make([]scrape.RawMatchRecord, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		out = append(out, scrape.RawMatchRecord{
			LeagueLabel: leagueLabel,
			Season:      strings.TrimSpace(item.Season),
			MatchDate:   parseFeedDate(item.Date),
			HomePlayers: append([]string(nil), item.HomePlayers...),
			AwayPlayers: append([]string(nil), item.AwayPlayers...),
			Sequence:    item.Line,
			HomeScore:   item.HomeScore,
			AwayScore:   item.AwayScore,
			SourceTable: strings.TrimSpace(item.Source),
			Inactive:    item.Inactive,
		})
	}
	return out, nil
}

func (c *Client) FetchTracking(ctx context.Context, leagueLabel string) ([]scrape.RawTrackingRecord, error) {
	var envelope feedEnvelope[feedTrackingItem]
	if err := c.doJSON(ctx, "/leagues/"+url.PathEscape(leagueLabel)+"/availability", &envelope); err != nil {
		return nil, fmt.Errorf("fetch tracking league=%s: %w", leagueLabel, err)
	}

	out := make([]scrape.RawTrackingRecord, 0, len(envelope.Data))
	for _, item := range envelope.Data {
		out = append(out, scrape.RawTrackingRecord{
			LeagueLabel: leagueLabel,
			ExternalKey: strings.TrimSpace(item.PlayerID),
			TeamLabel:   strings.TrimSpace(item.Team),
			TrackedOn:   parseFeedDate(item.Date),
			Kind:        strings.TrimSpace(item.Status),
		})
	}
	return out, nil
}

func (c *Client) doJSON(ctx context.Context, path string, target any) error {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "league feed circuit breaker rejected request", "state", c.breaker.State())
			return fmt.Errorf("%w: league feed is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path
	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if reqErr != nil && crerr.Is(reqErr, errFeedTransient) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return raw, reqErr
	})
	if err != nil {
		return err
	}

	raw, ok := out.([]byte)
	if !ok {
		return fmt.Errorf("unexpected response payload type %T", out)
	}

	if err := sonic.Unmarshal(raw, target); err != nil {
		return fmt.Errorf("decode feed payload: %w", err)
	}
	return nil
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, error) {
	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("accept", "application/json")
		if c.token != "" {
			req.Header.Set("authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errFeedTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errFeedTransient, readErr)
			} else if resp.StatusCode >= 200 && resp.StatusCode < 300 {
				return raw, nil
			} else if isRetryableStatus(resp.StatusCode) {
				lastErr = fmt.Errorf("%w: feed status=%d body=%s", errFeedTransient, resp.StatusCode, abbreviateBody(raw))
			} else {
				return nil, fmt.Errorf("feed status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
			}
		}

		if attempt == c.maxRetries {
			break
		}
		backoff := time.Duration(attempt+1) * time.Second
		timer := time.NewTimer(backoff)
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, ctx.Err()
		case <-timer.C:
		}
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("feed request failed")
	}
	c.logger.WarnContext(ctx, "league feed request failed",
		"url", fullURL,
		"error", lastErr,
		"curl", buildFeedCurlPreview(fullURL, c.token != ""),
	)
	return nil, lastErr
}

// buildFeedCurlPreview renders a copy-pasteable repro for a failed feed
// call. The bearer token is always masked.
func buildFeedCurlPreview(fullURL string, withToken bool) string {
	buf := bytebufferpool.Get()
	defer bytebufferpool.Put(buf)

	appendPart := func(part string) {
		if buf.Len() > 0 {
			_ = buf.WriteByte(' ')
		}
		_, _ = buf.WriteString(part)
	}

	appendPart("curl")
	appendPart(shellQuote(fullURL))
	appendPart("-H")
	appendPart(shellQuote("accept: application/json"))
	if withToken {
		appendPart("-H")
		appendPart(shellQuote("authorization: Bearer ***"))
	}

	return buf.String()
}

func shellQuote(value string) string {
	return "'" + strings.ReplaceAll(value, "'", "'\"'\"'") + "'"
}

func isRetryableStatus(status int) bool {
	return status == http.StatusTooManyRequests || status >= 500
}

func abbreviateBody(raw []byte) string {
	const limit = 256
	body := strings.TrimSpace(string(raw))
	if len(body) > limit {
		return body[:limit] + "..."
	}
	return body
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" || token == "" {
		return value
	}
	return strings.ReplaceAll(value, token, "REDACTED")
}

func parseFeedDate(value string) time.Time {
	parsed, err := time.Parse(feedDateLayout, strings.TrimSpace(value))
	if err != nil {
		return time.Time{}
	}
	return parsed
}

func parseFeedTime(value string) time.Time {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}
	}
	if parsed, err := time.Parse(time.RFC3339, value); err == nil {
		return parsed
	}
	return parseFeedDate(value)
}

func maxInt(left, right int) int {
	if left > right {
		return left
	}
	return right
}
