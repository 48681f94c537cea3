package fetcher

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/jmylchreest/adsift/internal/logger"
)

// ErrSolverUnavailable indicates the FlareSolverr service is not reachable.
var ErrSolverUnavailable = errors.New("FlareSolverr service unavailable")

// FlareSolverrConfig holds configuration for the FlareSolverr fetcher.
type FlareSolverrConfig struct {
	URL        string        // API endpoint, e.g. http://localhost:8191/v1
	MaxTimeout time.Duration // per-challenge budget passed to the solver
}

// FlareSolverrFetcher fetches pages through a FlareSolverr instance, which
// loads them in its own browser and solves Cloudflare style challenges.
// One solver session is kept per host so a solved challenge is reused by
// later requests.
type FlareSolverrFetcher struct {
	config     FlareSolverrConfig
	httpClient *http.Client

	sessionsMu sync.Mutex
	sessions   map[string]string // host -> session ID
}

type solverRequest struct {
	Cmd        string `json:"cmd"`
	URL        string `json:"url,omitempty"`
	Session    string `json:"session,omitempty"`
	MaxTimeout int64  `json:"maxTimeout,omitempty"`
}

type solverResponse struct {
	Status   string          `json:"status"`
	Message  string          `json:"message"`
	Solution *solverSolution `json:"solution,omitempty"`
}

type solverSolution struct {
	URL      string            `json:"url"`
	Status   int               `json:"status"`
	Headers  map[string]string `json:"headers"`
	Response string            `json:"response"`
}

// NewFlareSolverr creates a fetcher for the solver at cfg.URL.
func NewFlareSolverr(cfg FlareSolverrConfig) *FlareSolverrFetcher {
	if cfg.MaxTimeout == 0 {
		cfg.MaxTimeout = 60 * time.Second
	}
	return &FlareSolverrFetcher{
		config: cfg,
		httpClient: &http.Client{
			// solving takes a while; leave headroom over the solver's own budget
			Timeout: cfg.MaxTimeout + 30*time.Second,
		},
		sessions: make(map[string]string),
	}
}

// Fetch asks the solver for targetURL. A solved page with a non-2xx status
// is returned as ErrHTTPStatus.
func (f *FlareSolverrFetcher) Fetch(ctx context.Context, targetURL string, _ Options) (Content, error) {
	result := Content{
		URL:       targetURL,
		FetchedAt: time.Now(),
	}

	u, err := url.Parse(targetURL)
	if err != nil {
		return result, fmt.Errorf("invalid URL: %w", err)
	}

	session := f.session(ctx, u.Host)

	var resp solverResponse
	if err := f.call(ctx, solverRequest{
		Cmd:        "request.get",
		URL:        targetURL,
		Session:    session,
		MaxTimeout: f.config.MaxTimeout.Milliseconds(),
	}, &resp); err != nil {
		return result, err
	}

	if resp.Status != "ok" {
		return result, classifySolverError(resp.Message)
	}
	if resp.Solution == nil {
		return result, fmt.Errorf("%w: no solution returned", ErrChallenge)
	}

	sol := resp.Solution
	result.StatusCode = sol.Status
	result.Body = []byte(sol.Response)
	for k, v := range sol.Headers {
		if strings.EqualFold(k, "Content-Type") {
			result.ContentType = v
		}
	}

	logger.Debug("fetched via FlareSolverr",
		"url", targetURL,
		"session", session,
		"status", result.StatusCode,
		"size", len(result.Body),
		"duration", time.Since(result.FetchedAt).Round(time.Millisecond))

	if sol.Status != 0 && (sol.Status < 200 || sol.Status > 299) {
		return result, fmt.Errorf("%w: %d", ErrHTTPStatus, sol.Status)
	}
	return result, nil
}

// session returns the solver session for host, creating it on first use.
// Without a session the request still works, it just solves from scratch.
func (f *FlareSolverrFetcher) session(ctx context.Context, host string) string {
	f.sessionsMu.Lock()
	defer f.sessionsMu.Unlock()

	if id, ok := f.sessions[host]; ok {
		return id
	}

	id := "adsift-" + strings.NewReplacer(".", "-", ":", "-").Replace(host)
	var resp solverResponse
	if err := f.call(ctx, solverRequest{Cmd: "sessions.create", Session: id}, &resp); err != nil || resp.Status != "ok" {
		logger.Debug("FlareSolverr session create failed, continuing without", "session", id, "error", err, "message", resp.Message)
		return ""
	}
	logger.Debug("FlareSolverr session created", "session", id)
	f.sessions[host] = id
	return id
}

// call posts req to the solver and decodes the reply into out. The solver
// answers errors with a 500 and a JSON body, so the body is decoded
// regardless of status.
func (f *FlareSolverrFetcher) call(ctx context.Context, req solverRequest, out *solverResponse) error {
	body, err := json.Marshal(req)
	if err != nil {
		return fmt.Errorf("failed to marshal FlareSolverr request: %w", err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, f.config.URL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create FlareSolverr request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := f.httpClient.Do(httpReq)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrSolverUnavailable, err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read FlareSolverr response: %w", err)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("%w: invalid response (status %d): %v", ErrSolverUnavailable, resp.StatusCode, err)
	}
	return nil
}

func classifySolverError(message string) error {
	msg := strings.ToLower(message)
	if strings.Contains(msg, "timeout") || strings.Contains(msg, "timed out") {
		return fmt.Errorf("%w: %s", ErrChallengeTimeout, message)
	}
	return fmt.Errorf("%w: %s", ErrChallenge, message)
}

// Close destroys the solver sessions.
func (f *FlareSolverrFetcher) Close() error {
	f.sessionsMu.Lock()
	ids := make([]string, 0, len(f.sessions))
	for _, id := range f.sessions {
		ids = append(ids, id)
	}
	f.sessions = make(map[string]string)
	f.sessionsMu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	for _, id := range ids {
		var resp solverResponse
		if err := f.call(ctx, solverRequest{Cmd: "sessions.destroy", Session: id}, &resp); err != nil {
			logger.Debug("FlareSolverr session destroy failed", "session", id, "error", err)
		}
	}
	return nil
}

// Type returns the fetcher type.
func (f *FlareSolverrFetcher) Type() string {
	return "flaresolverr"
}
