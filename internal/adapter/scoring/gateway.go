package scoring

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"time"

	"verifymc/internal/config"
	"verifymc/internal/domain"
	"verifymc/internal/logger"

	"github.com/cenkalti/backoff/v4"
	"github.com/google/uuid"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"
)

// Manual-review reasons, one per failure class.
const (
	reasonConfigIncomplete = "Scoring config incomplete, requires manual review"
	reasonCircuitOpen      = "Scoring circuit breaker open, requires manual review"
	reasonQueueSaturated   = "Scoring queue saturated, requires manual review"
	reasonCancelled        = "Scoring cancelled before completion, requires manual review"
	reasonExhausted        = "Scoring unavailable after retries, requires manual review"
)

const maxResponseBodyBytes = 1 << 20

// Gateway owns the single outbound channel to a remote scoring model. It
// enforces readiness, a circuit breaker, a bounded concurrency slot pool,
// retry with exponential backoff, hard timeouts, and request/response
// sanitization. The slot pool and breaker counters are the only mutable
// state and are shared by all callers of one Gateway instance.
type Gateway struct {
	cfg      config.ScoringConfig
	provider Provider
	client   *http.Client
	slots    *semaphore.Weighted

	mu                  sync.Mutex
	consecutiveFailures int
	openUntil           time.Time

	now func() time.Time
}

// NewGateway creates a Gateway for one provider configuration. Resilience
// floors are re-applied so a hand-built config cannot go below the minimums.
func NewGateway(cfg config.ScoringConfig, provider Provider) *Gateway {
	cfg = config.ApplyScoringFloors(cfg)
	return &Gateway{
		cfg:      cfg,
		provider: provider,
		client: &http.Client{
			Timeout: time.Duration(cfg.TimeoutMs) * time.Millisecond,
		},
		slots: semaphore.NewWeighted(int64(cfg.MaxConcurrency)),
		now:   time.Now,
	}
}

var _ domain.EssayScorer = (*Gateway)(nil)

// newBackoffSchedule builds the retry delay schedule: exponential doubling
// from the configured base up to the configured ceiling, no jitter so the
// schedule is deterministic.
func newBackoffSchedule(cfg config.ScoringConfig) *backoff.ExponentialBackOff {
	expo := backoff.NewExponentialBackOff()
	expo.InitialInterval = time.Duration(cfg.RetryBackoffBaseMs) * time.Millisecond
	expo.MaxInterval = time.Duration(cfg.RetryBackoffMaxMs) * time.Millisecond
	expo.Multiplier = 2
	expo.RandomizationFactor = 0
	expo.MaxElapsedTime = 0
	expo.Reset()
	return expo
}

// Score grades one free-text answer. It never returns an error: every failure
// path resolves to a manual-review result carrying a reason for the deferral.
func (g *Gateway) Score(ctx context.Context, req domain.ScoringRequest) domain.ScoringResult {
	l := logger.Get()
	requestID := uuid.NewString()
	start := g.now()

	// Readiness gate: no slot, no network.
	if !g.cfg.IsReady() {
		l.Warn("Scoring skipped: config incomplete",
			zap.String("request_id", requestID),
			zap.Int("question_id", req.QuestionID))
		return g.finish(domain.NewManualReviewResult(reasonConfigIncomplete), requestID, start, 0)
	}

	// Circuit-breaker gate: while the window is open no remote call happens.
	if g.circuitOpen() {
		l.Warn("Scoring skipped: circuit breaker open",
			zap.String("request_id", requestID),
			zap.Int("question_id", req.QuestionID))
		return g.finish(domain.NewManualReviewResult(reasonCircuitOpen), requestID, start, 0)
	}

	// Concurrency admission: bounded wait for a slot; a call that cannot
	// acquire one never touches the network.
	acquireCtx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.AcquireTimeoutMs)*time.Millisecond)
	defer cancel()
	if err := g.slots.Acquire(acquireCtx, 1); err != nil {
		reason := reasonQueueSaturated
		if ctx.Err() != nil {
			reason = reasonCancelled
		}
		l.Warn("Scoring slot acquisition failed",
			zap.String("request_id", requestID),
			zap.Int("question_id", req.QuestionID),
			zap.Error(err))
		return g.finish(domain.NewManualReviewResult(reason), requestID, start, 0)
	}
	defer g.slots.Release(1)

	expo := newBackoffSchedule(g.cfg)

	attempts := g.cfg.Retry + 1
	for attempt := 1; attempt <= attempts; attempt++ {
		result, err := g.attempt(ctx, req)
		if err == nil {
			g.recordSuccess()
			return g.finish(result, requestID, start, attempt-1)
		}

		g.recordFailure(requestID)
		l.Warn("Scoring attempt failed",
			zap.String("request_id", requestID),
			zap.Int("question_id", req.QuestionID),
			zap.Int("attempt", attempt),
			zap.Int("max_attempts", attempts),
			zap.Error(err))

		if attempt == attempts {
			return g.finish(domain.NewManualReviewResult(reasonExhausted), requestID, start, attempt-1)
		}

		// Cancellable backoff sleep: a cancelled submission must not hold
		// its slot through a full backoff window.
		timer := time.NewTimer(expo.NextBackOff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return g.finish(domain.NewManualReviewResult(reasonCancelled), requestID, start, attempt-1)
		case <-timer.C:
		}
	}

	// Unreachable: the loop always returns.
	return g.finish(domain.NewManualReviewResult(reasonExhausted), requestID, start, g.cfg.Retry)
}

// attempt performs one remote call. Every failure mode in here (transport
// error, non-2xx status, malformed envelope, unparsable scoring payload) is
// equally retryable to the attempt loop.
func (g *Gateway) attempt(ctx context.Context, req domain.ScoringRequest) (domain.ScoringResult, error) {
	payload, err := g.provider.BuildPayload(req, g.cfg)
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("build payload: %w", err)
	}

	attemptCtx, cancel := context.WithTimeout(ctx, time.Duration(g.cfg.TimeoutMs)*time.Millisecond)
	defer cancel()

	httpReq, err := http.NewRequestWithContext(attemptCtx, http.MethodPost,
		g.provider.EndpointURL(g.cfg.APIBase), bytes.NewReader(payload))
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("build request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "application/json")
	g.provider.Authorize(httpReq, g.cfg)

	resp, err := g.client.Do(httpReq)
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("model call failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBodyBytes))
	if err != nil {
		return domain.ScoringResult{}, fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return domain.ScoringResult{}, fmt.Errorf("model returned HTTP %d", resp.StatusCode)
	}

	content, err := g.provider.ExtractContent(body)
	if err != nil {
		return domain.ScoringResult{}, err
	}
	return parseScorePayload(content, req.MaxScore)
}

// parseScorePayload decodes the model's scoring JSON. It tolerates a
// surrounding markdown fence and leading/trailing commentary by extracting
// the substring between the first '{' and the last '}'.
func parseScorePayload(raw string, maxScore int) (domain.ScoringResult, error) {
	cleaned := strings.TrimSpace(raw)
	if strings.HasPrefix(cleaned, "```") {
		cleaned = strings.TrimPrefix(cleaned, "```json")
		cleaned = strings.TrimPrefix(cleaned, "```")
		cleaned = strings.TrimSuffix(cleaned, "```")
		cleaned = strings.TrimSpace(cleaned)
	}

	jsonStart := strings.Index(cleaned, "{")
	jsonEnd := strings.LastIndex(cleaned, "}")
	if jsonStart < 0 || jsonEnd <= jsonStart {
		return domain.ScoringResult{}, fmt.Errorf("no JSON object in model output")
	}

	// Missing fields keep their defaults.
	parsed := struct {
		Score      int     `json:"score"`
		Reason     string  `json:"reason"`
		Confidence float64 `json:"confidence"`
	}{
		Reason: "No reason provided",
	}
	if err := json.Unmarshal([]byte(cleaned[jsonStart:jsonEnd+1]), &parsed); err != nil {
		return domain.ScoringResult{}, fmt.Errorf("unparsable scoring JSON: %w", err)
	}
	if parsed.Reason == "" {
		parsed.Reason = "No reason provided"
	}

	return domain.NewScoringResult(parsed.Score, parsed.Reason, parsed.Confidence, maxScore), nil
}

// finish stamps provenance onto a result.
func (g *Gateway) finish(result domain.ScoringResult, requestID string, start time.Time, retryCount int) domain.ScoringResult {
	result.Provider = g.provider.Name()
	result.Model = g.cfg.Model
	result.RequestID = requestID
	if latency := g.now().Sub(start).Milliseconds(); latency > 0 {
		result.LatencyMs = latency
	}
	result.RetryCount = retryCount
	return result
}

func (g *Gateway) circuitOpen() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.now().Before(g.openUntil)
}

// recordSuccess resets the consecutive-failure counter. An already-open
// window is left to expire on its own.
func (g *Gateway) recordSuccess() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures = 0
}

// recordFailure increments the shared failure counter and opens (or
// re-extends) the breaker window once the threshold is reached. This can
// happen mid-loop; it affects only future calls, not the current attempt
// sequence.
func (g *Gateway) recordFailure(requestID string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.consecutiveFailures++
	if g.consecutiveFailures >= g.cfg.CircuitBreakerFailureThreshold {
		g.openUntil = g.now().Add(time.Duration(g.cfg.CircuitBreakerOpenMs) * time.Millisecond)
		logger.Get().Warn("Scoring circuit breaker opened",
			zap.String("request_id", requestID),
			zap.Int("consecutive_failures", g.consecutiveFailures),
			zap.Int("open_ms", g.cfg.CircuitBreakerOpenMs))
	}
}
