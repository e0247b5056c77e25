package loadgen

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/sandeepkv93/account-verification-service/internal/observability"
)

type Config struct {
	BaseURL       string
	Profile       string
	Duration      time.Duration
	RPS           int
	Concurrency   int
	RunID         string
	LoginEmail    string
	LoginPassword string
}

type Result struct {
	TotalRequests int64
	Failures      int64
	Status2xx     int64
	Status4xx     int64
	Status5xx     int64
}

type request struct {
	method string
	path   string
	body   map[string]string
}

// Run replays account API traffic at a fixed rate until cfg.Duration elapses.
// Transport errors count as failures; HTTP statuses are bucketed by class.
func Run(ctx context.Context, cfg Config) (Result, error) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = "http://localhost:8080"
	}
	if cfg.Duration <= 0 {
		cfg.Duration = 10 * time.Second
	}
	if cfg.RPS <= 0 {
		cfg.RPS = 15
	}
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 5
	}
	if cfg.RunID == "" {
		cfg.RunID = fmt.Sprintf("%d", time.Now().Unix())
	}
	profile := strings.ToLower(cfg.Profile)
	if profile == "" {
		profile = "mixed"
	}
	if _, ok := profiles[profile]; !ok {
		return Result{}, fmt.Errorf("unknown profile: %s", cfg.Profile)
	}

	client := &http.Client{Timeout: 5 * time.Second}
	ctx, cancel := context.WithTimeout(ctx, cfg.Duration)
	defer cancel()

	var total, failures, s2xx, s4xx, s5xx int64
	jobs := make(chan request, cfg.Concurrency*2)
	var g errgroup.Group
	for range cfg.Concurrency {
		g.Go(func() error {
			for job := range jobs {
				if ctx.Err() != nil {
					continue
				}
				status, err := send(ctx, client, cfg.BaseURL, job)
				if err != nil {
					if ctx.Err() != nil {
						// cut off by the run deadline
						continue
					}
					atomic.AddInt64(&failures, 1)
					observability.RecordLoadgenRequest(ctx, "transport_error", profile)
					continue
				}
				atomic.AddInt64(&total, 1)
				class := "other"
				switch {
				case status >= 200 && status < 300:
					atomic.AddInt64(&s2xx, 1)
					class = "2xx"
				case status >= 400 && status < 500:
					atomic.AddInt64(&s4xx, 1)
					class = "4xx"
				case status >= 500:
					atomic.AddInt64(&s5xx, 1)
					class = "5xx"
				}
				observability.RecordLoadgenRequest(ctx, class, profile)
			}
			return nil
		})
	}

	ticker := time.NewTicker(time.Second / time.Duration(cfg.RPS))
	defer ticker.Stop()
	for seq := 0; ; seq++ {
		select {
		case <-ctx.Done():
			close(jobs)
			_ = g.Wait()
			return Result{
				TotalRequests: atomic.LoadInt64(&total),
				Failures:      atomic.LoadInt64(&failures),
				Status2xx:     atomic.LoadInt64(&s2xx),
				Status4xx:     atomic.LoadInt64(&s4xx),
				Status5xx:     atomic.LoadInt64(&s5xx),
			}, nil
		case <-ticker.C:
			select {
			case jobs <- profiles[profile](cfg, seq):
			case <-ctx.Done():
			}
		}
	}
}

func send(ctx context.Context, client *http.Client, baseURL string, job request) (int, error) {
	var body io.Reader
	if job.body != nil {
		raw, err := json.Marshal(job.body)
		if err != nil {
			return 0, err
		}
		body = strings.NewReader(string(raw))
	}
	req, err := http.NewRequestWithContext(ctx, job.method, baseURL+job.path, body)
	if err != nil {
		return 0, err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := client.Do(req)
	if err != nil {
		return 0, err
	}
	_, _ = io.Copy(io.Discard, resp.Body)
	_ = resp.Body.Close()
	return resp.StatusCode, nil
}

var profiles = map[string]func(cfg Config, seq int) request{
	"signup":      signupRequest,
	"login":       loginRequest,
	"error-heavy": errorHeavyRequest,
	"mixed": func(cfg Config, seq int) request {
		switch seq % 4 {
		case 0, 1:
			return signupRequest(cfg, seq/4*2+seq%4)
		case 2:
			return loginRequest(cfg, seq)
		default:
			return errorHeavyRequest(cfg, seq)
		}
	},
}

func signupEmail(cfg Config, seq int) string {
	return fmt.Sprintf("loadgen-%s-%d@example.com", cfg.RunID, seq)
}

// signupRequest alternates a fresh registration with a confirm attempt that
// carries a stale token, which exercises the verification error path.
func signupRequest(cfg Config, seq int) request {
	if seq%2 == 0 {
		return request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{
			"email":    signupEmail(cfg, seq),
			"password": "loadgen-password",
		}}
	}
	return request{method: http.MethodPost, path: "/api/v1/auth/verify/confirm", body: map[string]string{
		"email":              signupEmail(cfg, seq-1),
		"registration_token": "stale-token",
		"code":               "000000",
	}}
}

func loginRequest(cfg Config, seq int) request {
	password := cfg.LoginPassword
	if seq%3 == 2 {
		password = "wrong-password"
	}
	return request{method: http.MethodPost, path: "/api/v1/auth/login", body: map[string]string{
		"email":    cfg.LoginEmail,
		"password": password,
	}}
}

func errorHeavyRequest(cfg Config, seq int) request {
	switch seq % 4 {
	case 0:
		return request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{"email": "not-an-email", "password": "loadgen-password"}}
	case 1:
		return request{method: http.MethodPost, path: "/api/v1/auth/register", body: map[string]string{"email": signupEmail(cfg, seq), "password": "abc"}}
	case 2:
		return request{method: http.MethodPost, path: "/api/v1/auth/verify/request", body: map[string]string{"email": signupEmail(cfg, seq)}}
	default:
		return request{method: http.MethodGet, path: "/api/v1/me"}
	}
}
