package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"github.com/openai/openai-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedModel struct {
	errs  []error
	calls int
	out   string
}

func (m *scriptedModel) Name() string { return "scripted" }

func (m *scriptedModel) Complete(ctx context.Context, req Request) (string, error) {
	i := m.calls
	m.calls++
	if i < len(m.errs) && m.errs[i] != nil {
		return "", m.errs[i]
	}
	return m.out, nil
}

func noSleep(p Model) Model {
	pm := p.(*policyModel)
	pm.sleep = func(context.Context, time.Duration) error { return nil }
	return pm
}

func TestPolicy_RetriesTransientErrors(t *testing.T) {
	m := &scriptedModel{
		errs: []error{ErrEmptyResponse, &openai.Error{StatusCode: http.StatusTooManyRequests}},
		out:  "ok",
	}
	p := noSleep(WithPolicy(m, Policy{MaxRetries: 3}))

	out, err := p.Complete(context.Background(), Request{Prompt: "hi"})
	require.NoError(t, err)
	assert.Equal(t, "ok", out)
	assert.Equal(t, 3, m.calls)
}

func TestPolicy_StopsAfterMaxRetries(t *testing.T) {
	m := &scriptedModel{errs: []error{ErrEmptyResponse, ErrEmptyResponse, ErrEmptyResponse}}
	p := noSleep(WithPolicy(m, Policy{MaxRetries: 1}))

	_, err := p.Complete(context.Background(), Request{})
	require.ErrorIs(t, err, ErrEmptyResponse)
	assert.Equal(t, 2, m.calls)
}

func TestPolicy_DoesNotRetryPermanentErrors(t *testing.T) {
	m := &scriptedModel{errs: []error{&openai.Error{StatusCode: http.StatusUnauthorized}}}
	p := noSleep(WithPolicy(m, Policy{MaxRetries: 5}))

	_, err := p.Complete(context.Background(), Request{})
	require.Error(t, err)
	assert.Equal(t, 1, m.calls)
}

type slowModel struct{}

func (slowModel) Name() string { return "slow" }

func (slowModel) Complete(ctx context.Context, req Request) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}

func TestPolicy_Timeout(t *testing.T) {
	p := WithPolicy(slowModel{}, Policy{Timeout: 10 * time.Millisecond})

	_, err := p.Complete(context.Background(), Request{})
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRetryable(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"nil", nil, false},
		{"deadline", fmt.Errorf("call: %w", context.DeadlineExceeded), true},
		{"empty", ErrEmptyResponse, true},
		{"server error", &openai.Error{StatusCode: http.StatusBadGateway}, true},
		{"bad request", &openai.Error{StatusCode: http.StatusBadRequest}, false},
		{"plain", errors.New("boom"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Retryable(tt.err))
		})
	}
}

func TestNew(t *testing.T) {
	_, err := New(context.Background(), Config{Provider: "doesnotexist"})
	require.EqualError(t, err, "unknown ai provider: doesnotexist")

	_, err = New(context.Background(), Config{})
	require.Error(t, err)

	_, err = New(context.Background(), Config{Provider: "openai"})
	require.ErrorIs(t, err, ErrMissingAPIKey)

	m, err := New(context.Background(), Config{Provider: "OpenAI", APIKey: "sk-test"})
	require.NoError(t, err)
	assert.Equal(t, "openai/gpt-4o-mini", m.Name())
}

func TestImageDataURI(t *testing.T) {
	img := &Image{MIMEType: "image/jpeg", Data: []byte("abc")}
	assert.Equal(t, "data:image/jpeg;base64,YWJj", img.DataURI())
}
