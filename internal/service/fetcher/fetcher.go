package fetcher

import (
	"context"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net/http"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/kapu/game-character-etl/internal/constants"
	etlerrors "github.com/kapu/game-character-etl/pkg/errors"
)

type Outcome int

const (
	OutcomeOk Outcome = iota
	OutcomeBlocked
	OutcomeFailed
)

func (o Outcome) String() string {
	switch o {
	case OutcomeOk:
		return "ok"
	case OutcomeBlocked:
		return "blocked"
	default:
		return "failed"
	}
}

// Result is the classified outcome of one GET.
type Result struct {
	Outcome    Outcome
	URL        string
	Body       []byte
	StatusCode int
	Reason     string
	Cached     bool
}

func Ok(url string, body []byte) Result {
	return Result{Outcome: OutcomeOk, URL: url, Body: body, StatusCode: http.StatusOK}
}

func Blocked(url string, status int) Result {
	return Result{Outcome: OutcomeBlocked, URL: url, StatusCode: status, Reason: http.StatusText(status)}
}

func Failed(url string, status int, reason string) Result {
	return Result{Outcome: OutcomeFailed, URL: url, StatusCode: status, Reason: reason}
}

// Err converts a non-Ok result into its typed error.
func (r Result) Err() error {
	switch r.Outcome {
	case OutcomeOk:
		return nil
	case OutcomeBlocked:
		return etlerrors.NewFetchBlockedError(r.URL, r.StatusCode)
	default:
		return etlerrors.NewFetchFailedError(r.URL, r.StatusCode, r.Reason, nil)
	}
}

// Fetcher issues a single GET and classifies the response. Implementations
// never retry.
type Fetcher interface {
	Fetch(ctx context.Context, url string) Result
}

type FetcherFunc func(ctx context.Context, url string) Result

func (f FetcherFunc) Fetch(ctx context.Context, url string) Result {
	return f(ctx, url)
}

// Classify maps an HTTP status to a fetch outcome.
func Classify(status int) Outcome {
	switch status {
	case http.StatusOK:
		return OutcomeOk
	case http.StatusForbidden, http.StatusTooManyRequests:
		return OutcomeBlocked
	default:
		return OutcomeFailed
	}
}

type HTTPFetcher struct {
	httpClient *http.Client
	userAgents []string
	maxBody    int64
	logger     *zap.Logger
}

type HTTPConfig struct {
	Timeout    time.Duration
	UserAgents []string
}

func NewHTTPFetcher(cfg HTTPConfig, logger *zap.Logger) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = constants.ScrapeConfig.Timeout
	}
	agents := cfg.UserAgents
	if len(agents) == 0 {
		agents = constants.UserAgents
	}
	return &HTTPFetcher{
		httpClient: &http.Client{
			Timeout: timeout,
		},
		userAgents: agents,
		maxBody:    constants.ScrapeConfig.MaxBody,
		logger:     logger,
	}
}

func (f *HTTPFetcher) userAgent() string {
	return f.userAgents[rand.IntN(len(f.userAgents))]
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string) Result {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return Failed(url, 0, fmt.Sprintf("invalid request: %v", err))
	}

	req.Header.Set("User-Agent", f.userAgent())
	req.Header.Set("Accept", "text/html,application/xhtml+xml")

	start := time.Now()
	resp, err := f.httpClient.Do(req)
	if err != nil {
		reason := "request failed"
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			reason = "timeout"
		}
		f.logger.Warn("HTTP request failed",
			zap.String("url", url),
			zap.String("reason", reason),
			zap.Error(err))
		return Failed(url, 0, reason)
	}
	defer resp.Body.Close()

	outcome := Classify(resp.StatusCode)
	f.logger.Debug("HTTP response",
		zap.String("url", url),
		zap.Int("status", resp.StatusCode),
		zap.Duration("elapsed", time.Since(start)))

	switch outcome {
	case OutcomeBlocked:
		return Blocked(url, resp.StatusCode)
	case OutcomeFailed:
		return Failed(url, resp.StatusCode, reasonPhrase(resp))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, f.maxBody))
	if err != nil {
		return Failed(url, resp.StatusCode, fmt.Sprintf("read body: %v", err))
	}
	return Ok(url, body)
}

// reasonPhrase returns the server-supplied phrase of the status line.
func reasonPhrase(resp *http.Response) string {
	phrase := strings.TrimSpace(strings.TrimPrefix(resp.Status, strconv.Itoa(resp.StatusCode)))
	if phrase == "" {
		phrase = http.StatusText(resp.StatusCode)
	}
	return phrase
}
