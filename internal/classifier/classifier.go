// Package classifier calls the external waste text classifier over HTTP.
//
// Calls are bounded by an overall timeout and a per-attempt timeout.
// Transport failures, timeouts and 5xx responses are retried with
// exponential backoff; repeated failures open a circuit breaker that
// short-circuits further calls until its cooldown elapses. An optional
// token bucket caps the request rate sent to the endpoint.
package classifier

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"

	"github.com/JaimeStill/smartwaste/internal/config"
	"github.com/JaimeStill/smartwaste/pkg/formatting"
)

var (
	// ErrUnavailable covers transport failures, timeouts, non-2xx responses
	// and an open circuit breaker.
	ErrUnavailable = errors.New("classifier unavailable")

	// ErrNoPrediction covers ok=false, malformed bodies, an empty label and
	// a confidence outside [0,1].
	ErrNoPrediction = errors.New("classifier returned no prediction")
)

const maxResponseBytes = 64 * 1024

// Prediction is a classifier label with its confidence in [0,1].
type Prediction struct {
	Label      string  `json:"label"`
	Confidence float64 `json:"confidence"`
}

// Classifier predicts a waste category label for free text.
type Classifier interface {
	Classify(ctx context.Context, text string) (Prediction, error)
}

// Observer receives classification outcomes.
type Observer interface {
	ObserveClassification(result string, elapsed time.Duration)
	ObserveBreaker(state int)
}

// Client is the HTTP Classifier.
type Client struct {
	endpoint       string
	http           *http.Client
	breaker        *gobreaker.CircuitBreaker
	limiter        *rate.Limiter
	timeout        time.Duration
	attemptTimeout time.Duration
	maxRetries     int
	initialBackoff time.Duration
	logger         *slog.Logger
	observer       Observer
}

// New creates a Client from cfg. observer may be nil.
func New(cfg *config.ClassifierConfig, logger *slog.Logger, observer Observer) *Client {
	c := &Client{
		endpoint:       cfg.Endpoint,
		http:           &http.Client{},
		timeout:        cfg.TimeoutDuration(),
		attemptTimeout: cfg.AttemptTimeoutDuration(),
		maxRetries:     cfg.Retries(),
		initialBackoff: cfg.InitialBackoffDuration(),
		logger:         logger.With("system", "classifier"),
		observer:       observer,
	}

	if cfg.RateLimit > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(cfg.RateLimit), max(cfg.RateBurst, 1))
	}

	failures := uint32(cfg.BreakerFailures)
	c.breaker = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "classifier",
		MaxRequests: 1,
		Timeout:     cfg.BreakerCooldownDuration(),
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= failures
		},
		IsSuccessful: func(err error) bool {
			return err == nil || errors.Is(err, ErrNoPrediction)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			c.logger.Warn("breaker state changed", "from", from.String(), "to", to.String())
			if c.observer != nil {
				c.observer.ObserveBreaker(int(to))
			}
		},
	})

	return c
}

// Classify posts text to the classifier endpoint and returns its prediction.
func (c *Client) Classify(ctx context.Context, text string) (Prediction, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	out, err := c.breaker.Execute(func() (any, error) {
		return c.retry(ctx, text)
	})
	elapsed := time.Since(start)

	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		err = fmt.Errorf("%w: %w", ErrUnavailable, err)
	}

	c.observe(err, elapsed)

	if err != nil {
		c.logger.Warn("classification failed", "error", err, "elapsed", elapsed)
		return Prediction{}, err
	}

	pred := out.(Prediction)
	c.logger.Debug("classification complete", "label", pred.Label, "confidence", pred.Confidence, "elapsed", elapsed)
	return pred, nil
}

func (c *Client) retry(ctx context.Context, text string) (Prediction, error) {
	exp := backoff.NewExponentialBackOff()
	exp.InitialInterval = c.initialBackoff
	exp.MaxElapsedTime = 0

	policy := backoff.WithContext(backoff.WithMaxRetries(exp, uint64(c.maxRetries)), ctx)

	attempt := 0
	pred, err := backoff.RetryWithData(func() (Prediction, error) {
		attempt++
		pred, err := c.attempt(ctx, text)
		if err == nil {
			return pred, nil
		}
		var t *transientError
		if errors.As(err, &t) {
			c.logger.Debug("classification attempt failed", "attempt", attempt, "error", err)
			return Prediction{}, t.err
		}
		return Prediction{}, backoff.Permanent(err)
	}, policy)

	if err != nil && !errors.Is(err, ErrUnavailable) && !errors.Is(err, ErrNoPrediction) {
		return Prediction{}, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	return pred, err
}

type transientError struct {
	err error
}

func (e *transientError) Error() string { return e.err.Error() }
func (e *transientError) Unwrap() error { return e.err }

func transient(format string, args ...any) error {
	return &transientError{err: fmt.Errorf(format, args...)}
}

func (c *Client) attempt(ctx context.Context, text string) (Prediction, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return Prediction{}, fmt.Errorf("%w: rate limited: %w", ErrUnavailable, err)
		}
	}

	ctx, cancel := context.WithTimeout(ctx, c.attemptTimeout)
	defer cancel()

	body, err := json.Marshal(map[string]string{"text": text})
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: encode request: %w", ErrUnavailable, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, bytes.NewReader(body))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: build request: %w", ErrUnavailable, err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return Prediction{}, transient("%w: %w", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return Prediction{}, transient("%w: read response: %w", ErrUnavailable, err)
	}

	switch {
	case resp.StatusCode >= 500:
		return Prediction{}, transient("%w: status %d", ErrUnavailable, resp.StatusCode)
	case resp.StatusCode >= 300:
		return Prediction{}, fmt.Errorf("%w: status %d", ErrUnavailable, resp.StatusCode)
	}

	return decode(raw)
}

type response struct {
	OK     bool `json:"ok"`
	Result *struct {
		Label      string     `json:"label"`
		Confidence confidence `json:"confidence"`
	} `json:"result"`
}

// confidence accepts either a JSON number or a numeric string.
type confidence float64

func (c *confidence) UnmarshalJSON(data []byte) error {
	s := strings.Trim(string(data), `"`)
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return err
	}
	*c = confidence(f)
	return nil
}

func decode(raw []byte) (Prediction, error) {
	resp, err := formatting.Parse[response](string(raw))
	if err != nil {
		return Prediction{}, fmt.Errorf("%w: %w", ErrNoPrediction, err)
	}

	if !resp.OK || resp.Result == nil {
		return Prediction{}, fmt.Errorf("%w: ok=false", ErrNoPrediction)
	}

	pred := Prediction{
		Label:      strings.TrimSpace(resp.Result.Label),
		Confidence: float64(resp.Result.Confidence),
	}

	if pred.Label == "" {
		return Prediction{}, fmt.Errorf("%w: empty label", ErrNoPrediction)
	}
	if pred.Confidence < 0 || pred.Confidence > 1 {
		return Prediction{}, fmt.Errorf("%w: confidence %v out of range", ErrNoPrediction, pred.Confidence)
	}

	return pred, nil
}

func (c *Client) observe(err error, elapsed time.Duration) {
	if c.observer == nil {
		return
	}

	result := "ok"
	switch {
	case errors.Is(err, ErrNoPrediction):
		result = "no_prediction"
	case err != nil:
		result = "unavailable"
	}
	c.observer.ObserveClassification(result, elapsed)
}
