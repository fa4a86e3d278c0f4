package ai

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/openai/openai-go"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
	genai "google.golang.org/genai"
)

// Policy bounds every call made through a model: a per-call timeout, a
// request rate, and a number of retries for transient failures.
type Policy struct {
	Timeout           time.Duration
	MaxRetries        int
	RequestsPerMinute float64
	Backoff           time.Duration
	Logger            *logrus.Logger
}

type policyModel struct {
	next    Model
	policy  Policy
	limiter *rate.Limiter
	sleep   func(ctx context.Context, d time.Duration) error
}

// WithPolicy wraps m so that each Complete call honours p.
func WithPolicy(m Model, p Policy) Model {
	limit := rate.Inf
	if p.RequestsPerMinute > 0 {
		limit = rate.Limit(p.RequestsPerMinute / 60)
	}
	if p.Backoff <= 0 {
		p.Backoff = time.Second
	}
	return &policyModel{
		next:    m,
		policy:  p,
		limiter: rate.NewLimiter(limit, 1),
		sleep:   sleepContext,
	}
}

func (p *policyModel) Name() string { return p.next.Name() }

func (p *policyModel) Complete(ctx context.Context, req Request) (string, error) {
	backoff := p.policy.Backoff
	for attempt := 0; ; attempt++ {
		if err := p.limiter.Wait(ctx); err != nil {
			return "", err
		}
		out, err := p.call(ctx, req)
		if err == nil {
			return out, nil
		}
		if ctx.Err() != nil || attempt >= p.policy.MaxRetries || !Retryable(err) {
			return "", err
		}
		if p.policy.Logger != nil {
			p.policy.Logger.WithFields(logrus.Fields{
				"model":   p.next.Name(),
				"attempt": attempt + 1,
				"backoff": backoff.String(),
			}).WithError(err).Warn("Model request failed, retrying")
		}
		if err := p.sleep(ctx, backoff); err != nil {
			return "", err
		}
		backoff *= 2
	}
}

func (p *policyModel) call(ctx context.Context, req Request) (string, error) {
	if p.policy.Timeout <= 0 {
		return p.next.Complete(ctx, req)
	}
	cctx, cancel := context.WithTimeout(ctx, p.policy.Timeout)
	defer cancel()
	return p.next.Complete(cctx, req)
}

// Retryable reports whether err is worth another attempt: timeouts, empty
// answers, rate limiting and server-side failures.
func Retryable(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, ErrEmptyResponse) {
		return true
	}
	var oe *openai.Error
	if errors.As(err, &oe) {
		return retryableStatus(oe.StatusCode)
	}
	var ge genai.APIError
	if errors.As(err, &ge) {
		return retryableStatus(ge.Code)
	}
	var gp *genai.APIError
	if errors.As(err, &gp) {
		return retryableStatus(gp.Code)
	}
	var ne net.Error
	if errors.As(err, &ne) {
		return ne.Timeout()
	}
	return false
}

func retryableStatus(code int) bool {
	return code == http.StatusTooManyRequests || code == http.StatusRequestTimeout || code >= 500
}

func sleepContext(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
