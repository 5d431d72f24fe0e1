package generation

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
	log "github.com/sirupsen/logrus"

	"github.com/unicore-lms/aicore/internal/keys"
	"github.com/unicore-lms/aicore/internal/settings"
	"github.com/unicore-lms/aicore/internal/usage"
)

const (
	maxAttempts = 3

	rateLimitBaseDelay = 5 * time.Second
	rateLimitMaxDelay  = 30 * time.Second
	genericBaseDelay   = 2 * time.Second
	genericMaxDelay    = 15 * time.Second
)

// Request describes a single completion call. Zero values for Model,
// MaxTokens, and Temperature defer to the stored generation settings.
type Request struct {
	Actor        string
	Model        string
	SystemPrompt string
	Prompt       string
	MaxTokens    int
	Temperature  float32
}

// Response is the upstream completion result. CredentialID is zero for
// the single-environment-key manager.
type Response struct {
	Content      string
	TokensUsed   int
	CredentialID uint64
}

// Completer issues completions against the upstream model.
type Completer interface {
	Complete(ctx context.Context, req Request) (Response, error)
}

type upstreamFunc func(ctx context.Context, secret, baseURL string, req Request) (Response, error)

// Client drives upstream completions through the credential pool with
// retries, backoff, and per-actor quota enforcement.
type Client struct {
	keys     keys.Manager
	settings *settings.Service
	usage    *usage.Recorder
	baseURL  string

	upstream upstreamFunc
	sleepFn  func(ctx context.Context, d time.Duration) error
}

// NewClient builds a Client backed by the OpenAI-compatible API at
// baseURL. An empty baseURL uses the default endpoint.
func NewClient(manager keys.Manager, svc *settings.Service, recorder *usage.Recorder, baseURL string) *Client {
	return &Client{
		keys:     manager,
		settings: svc,
		usage:    recorder,
		baseURL:  strings.TrimSpace(baseURL),
		upstream: openAIComplete,
		sleepFn:  sleepContext,
	}
}

// Complete runs the retry loop. Service availability and the actor quota
// are re-checked before every physical attempt so concurrent actors and
// operator toggles take effect mid-loop.
func (c *Client) Complete(ctx context.Context, req Request) (Response, error) {
	if c == nil {
		return Response{}, ErrConfiguration
	}
	var lastErr error
	lastWasRateLimit := false
	for attempt := 0; attempt < maxAttempts; attempt++ {
		cfg := c.settings.Generation(ctx)
		if !cfg.ServiceEnabled {
			return Response{}, &DisabledError{Message: cfg.MaintenanceMessage}
		}
		if c.usage != nil && strings.TrimSpace(req.Actor) != "" {
			allowed, quotaErr := c.usage.Allow(ctx, req.Actor, cfg.HourlyQuota)
			if quotaErr != nil {
				log.WithError(quotaErr).Warn("quota check failed, allowing request")
			} else if !allowed {
				return Response{}, fmt.Errorf("hourly quota of %d reached for actor %s: %w", cfg.HourlyQuota, req.Actor, ErrRateLimitExceeded)
			}
		}

		lease, err := c.keys.Select(ctx)
		if err != nil {
			return Response{}, fmt.Errorf("no usable credential: %w", ErrConfiguration)
		}

		call := req
		if call.Model == "" {
			call.Model = cfg.ActiveModel
		}
		if call.MaxTokens <= 0 {
			call.MaxTokens = cfg.MaxOutputTokens
		}
		if call.Temperature <= 0 {
			call.Temperature = float32(cfg.Temperature)
		}

		started := time.Now()
		resp, err := c.upstream(ctx, lease.Secret, c.baseURL, call)
		if err == nil {
			c.keys.ReportSuccess(ctx, lease, time.Since(started))
			resp.CredentialID = lease.CredentialID
			return resp, nil
		}
		lastErr = err

		switch classify(err) {
		case classAuth:
			c.keys.ReportFailure(ctx, lease, err.Error(), false)
			return Response{}, fmt.Errorf("upstream rejected credential %q: %w", lease.Label, ErrConfiguration)
		case classRateLimit:
			c.keys.ReportFailure(ctx, lease, err.Error(), true)
			lastWasRateLimit = true
			if attempt < maxAttempts-1 {
				if sleepErr := c.sleepFn(ctx, backoffDelay(attempt, rateLimitBaseDelay, rateLimitMaxDelay)); sleepErr != nil {
					return Response{}, sleepErr
				}
			}
		default:
			c.keys.ReportFailure(ctx, lease, err.Error(), false)
			lastWasRateLimit = false
			if attempt < maxAttempts-1 {
				if sleepErr := c.sleepFn(ctx, backoffDelay(attempt, genericBaseDelay, genericMaxDelay)); sleepErr != nil {
					return Response{}, sleepErr
				}
			}
		}
		log.WithError(err).WithField("attempt", attempt+1).Warn("completion attempt failed")
	}
	if lastWasRateLimit {
		return Response{}, fmt.Errorf("%v: %w", lastErr, ErrRateLimitExceeded)
	}
	return Response{}, fmt.Errorf("%v: %w", lastErr, ErrUpstream)
}

const (
	classRetryable = iota
	classRateLimit
	classAuth
)

func classify(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		switch apiErr.HTTPStatusCode {
		case http.StatusTooManyRequests:
			return classRateLimit
		case http.StatusUnauthorized, http.StatusForbidden:
			return classAuth
		}
	}
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "rate limit") || strings.Contains(msg, "429") || strings.Contains(msg, "quota"):
		return classRateLimit
	case strings.Contains(msg, "unauthorized") || strings.Contains(msg, "invalid api key") || strings.Contains(msg, "401") || strings.Contains(msg, "403"):
		return classAuth
	}
	return classRetryable
}

func backoffDelay(attempt int, base, max time.Duration) time.Duration {
	d := base << uint(attempt)
	if d > max || d <= 0 {
		return max
	}
	return d
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func openAIComplete(ctx context.Context, secret, baseURL string, req Request) (Response, error) {
	cfg := openai.DefaultConfig(secret)
	if baseURL != "" {
		cfg.BaseURL = baseURL
	}
	client := openai.NewClientWithConfig(cfg)

	messages := make([]openai.ChatCompletionMessage, 0, 2)
	if req.SystemPrompt != "" {
		messages = append(messages, openai.ChatCompletionMessage{
			Role:    openai.ChatMessageRoleSystem,
			Content: req.SystemPrompt,
		})
	}
	messages = append(messages, openai.ChatCompletionMessage{
		Role:    openai.ChatMessageRoleUser,
		Content: req.Prompt,
	})

	resp, err := client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       req.Model,
		Messages:    messages,
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
	})
	if err != nil {
		return Response{}, err
	}
	if len(resp.Choices) == 0 {
		return Response{}, errors.New("upstream returned no choices")
	}
	return Response{
		Content:    resp.Choices[0].Message.Content,
		TokensUsed: resp.Usage.TotalTokens,
	}, nil
}
