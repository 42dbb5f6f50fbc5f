package scoring

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"verifymc/internal/config"
	"verifymc/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testScoringConfig(apiBase string) config.ScoringConfig {
	return config.ApplyScoringFloors(config.ScoringConfig{
		Provider:                       "openai",
		APIBase:                        apiBase,
		APIKey:                         "test-key",
		Model:                          "test-model",
		TimeoutMs:                      1000,
		Retry:                          0,
		MaxConcurrency:                 4,
		AcquireTimeoutMs:               100,
		RetryBackoffBaseMs:             100,
		RetryBackoffMaxMs:              200,
		CircuitBreakerFailureThreshold: 100,
		CircuitBreakerOpenMs:           1000,
		InputMaxLength:                 2000,
	})
}

func testRequest(maxScore int) domain.ScoringRequest {
	return domain.NewScoringRequest(2, "Why do you want to join?", "Because I enjoy building with friends.", "Reward sincerity", maxScore, 2000)
}

// modelResponse wraps a scoring payload in the chat-completions envelope.
func modelResponse(content string) string {
	env := struct {
		Choices []struct {
			Message struct {
				Content string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	}{}
	env.Choices = make([]struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	}, 1)
	env.Choices[0].Message.Content = content
	b, _ := json.Marshal(env)
	return string(b)
}

func TestScoreSuccess(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		fmt.Fprint(w, modelResponse(`{"score": 15, "reason": "solid answer", "confidence": 0.9}`))
	}))
	defer srv.Close()

	g := NewGateway(testScoringConfig(srv.URL), SelectProvider("openai"))
	result := g.Score(context.Background(), testRequest(20))

	assert.False(t, result.ManualReview)
	assert.Equal(t, 15, result.Score)
	assert.Equal(t, "solid answer", result.Reason)
	assert.InDelta(t, 0.9, result.Confidence, 1e-9)
	assert.Equal(t, "openai", result.Provider)
	assert.Equal(t, "test-model", result.Model)
	assert.NotEmpty(t, result.RequestID)
	assert.Equal(t, 0, result.RetryCount)
	assert.Equal(t, int32(1), atomic.LoadInt32(&requests))
}

func TestScoreClampsModelOutput(t *testing.T) {
	tests := []struct {
		name           string
		content        string
		wantScore      int
		wantConfidence float64
	}{
		{"score above max", `{"score": 999, "reason": "r", "confidence": 7.5}`, 20, 1.0},
		{"negative score", `{"score": -3, "reason": "r", "confidence": -1}`, 0, 0.0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				fmt.Fprint(w, modelResponse(tt.content))
			}))
			defer srv.Close()

			g := NewGateway(testScoringConfig(srv.URL), SelectProvider("openai"))
			result := g.Score(context.Background(), testRequest(20))

			assert.False(t, result.ManualReview)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.InDelta(t, tt.wantConfidence, result.Confidence, 1e-9)
		})
	}
}

func TestScoreConfigNotReady(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.APIKey = "   "
	g := NewGateway(cfg, SelectProvider("openai"))

	result := g.Score(context.Background(), testRequest(20))

	assert.True(t, result.ManualReview)
	assert.Equal(t, 0, result.Score)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, 0, result.RetryCount)
	assert.Contains(t, result.Reason, "config incomplete")
	assert.Equal(t, int32(0), atomic.LoadInt32(&requests), "not-ready gate must not touch the network")
}

func TestScoreRetriesThenSucceeds(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&requests, 1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, modelResponse(`{"score": 10, "reason": "ok", "confidence": 0.5}`))
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.Retry = 2
	g := NewGateway(cfg, SelectProvider("openai"))

	result := g.Score(context.Background(), testRequest(20))

	assert.False(t, result.ManualReview)
	assert.Equal(t, 10, result.Score)
	assert.Equal(t, 1, result.RetryCount)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestScoreExhaustsRetries(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusBadGateway)
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.Retry = 1
	g := NewGateway(cfg, SelectProvider("openai"))

	result := g.Score(context.Background(), testRequest(20))

	assert.True(t, result.ManualReview)
	assert.Equal(t, 0, result.Score)
	assert.Zero(t, result.Confidence)
	assert.Equal(t, 1, result.RetryCount)
	assert.Contains(t, result.Reason, "after retries")
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))
}

func TestMalformedResponsesAreRetried(t *testing.T) {
	bodies := []string{
		`not json at all`,
		modelResponse("no braces here"),
		`{"choices": []}`,
	}
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		n := atomic.AddInt32(&requests, 1)
		fmt.Fprint(w, bodies[int(n-1)%len(bodies)])
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.Retry = 2
	g := NewGateway(cfg, SelectProvider("openai"))

	result := g.Score(context.Background(), testRequest(20))

	assert.True(t, result.ManualReview)
	assert.Equal(t, 2, result.RetryCount)
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestCircuitBreakerOpensAndRecovers(t *testing.T) {
	var requests int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&requests, 1)
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.CircuitBreakerFailureThreshold = 2
	cfg.CircuitBreakerOpenMs = 1000
	g := NewGateway(cfg, SelectProvider("openai"))

	now := time.Now()
	g.now = func() time.Time { return now }

	// Two consecutive failing calls reach the threshold.
	assert.True(t, g.Score(context.Background(), testRequest(20)).ManualReview)
	assert.True(t, g.Score(context.Background(), testRequest(20)).ManualReview)
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))

	// Within the open window: short-circuit, no network call.
	result := g.Score(context.Background(), testRequest(20))
	assert.True(t, result.ManualReview)
	assert.Contains(t, result.Reason, "circuit breaker open")
	assert.Equal(t, int32(2), atomic.LoadInt32(&requests))

	// After the window elapses the network is attempted again.
	now = now.Add(1500 * time.Millisecond)
	result = g.Score(context.Background(), testRequest(20))
	assert.True(t, result.ManualReview)
	assert.Contains(t, result.Reason, "after retries")
	assert.Equal(t, int32(3), atomic.LoadInt32(&requests))
}

func TestSuccessResetsFailureCounter(t *testing.T) {
	var fail atomic.Bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if fail.Load() {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		fmt.Fprint(w, modelResponse(`{"score": 5, "reason": "ok", "confidence": 1}`))
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.CircuitBreakerFailureThreshold = 2
	g := NewGateway(cfg, SelectProvider("openai"))

	fail.Store(true)
	assert.True(t, g.Score(context.Background(), testRequest(20)).ManualReview)

	fail.Store(false)
	assert.False(t, g.Score(context.Background(), testRequest(20)).ManualReview)

	// One more failure after the reset: counter is 1, below the threshold,
	// so the breaker stays closed and the next call still reaches the network.
	fail.Store(true)
	assert.True(t, g.Score(context.Background(), testRequest(20)).ManualReview)

	fail.Store(false)
	assert.False(t, g.Score(context.Background(), testRequest(20)).ManualReview)
}

func TestConcurrencyLimitSaturates(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-release
		fmt.Fprint(w, modelResponse(`{"score": 5, "reason": "ok", "confidence": 1}`))
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.MaxConcurrency = 1
	cfg.AcquireTimeoutMs = 100
	cfg.TimeoutMs = 5000
	g := NewGateway(cfg, SelectProvider("openai"))

	var wg sync.WaitGroup
	results := make([]domain.ScoringResult, 2)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[0] = g.Score(context.Background(), testRequest(20))
	}()

	// Let the first call take the only slot.
	time.Sleep(50 * time.Millisecond)

	wg.Add(1)
	go func() {
		defer wg.Done()
		results[1] = g.Score(context.Background(), testRequest(20))
	}()

	// The second call must fail its bounded acquire and return well before
	// the first call completes.
	time.Sleep(300 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.False(t, results[0].ManualReview)
	assert.True(t, results[1].ManualReview)
	assert.Contains(t, results[1].Reason, "queue saturated")
	assert.Equal(t, 0, results[1].RetryCount)
}

func TestCancellationDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	cfg := testScoringConfig(srv.URL)
	cfg.Retry = 3
	cfg.RetryBackoffBaseMs = 5000
	cfg.RetryBackoffMaxMs = 5000
	g := NewGateway(cfg, SelectProvider("openai"))

	ctx, cancel := context.WithCancel(context.Background())
	go func() {
		time.Sleep(150 * time.Millisecond)
		cancel()
	}()

	start := time.Now()
	result := g.Score(ctx, testRequest(20))

	assert.True(t, result.ManualReview)
	assert.Contains(t, result.Reason, "cancelled")
	assert.Less(t, time.Since(start), 2*time.Second, "cancellation must not wait out the backoff sleep")
}

func TestBackoffScheduleIsCappedAndNonDecreasing(t *testing.T) {
	cfg := config.ApplyScoringFloors(config.ScoringConfig{
		RetryBackoffBaseMs: 100,
		RetryBackoffMaxMs:  800,
	})
	expo := newBackoffSchedule(cfg)

	expected := []time.Duration{
		100 * time.Millisecond,
		200 * time.Millisecond,
		400 * time.Millisecond,
		800 * time.Millisecond,
		800 * time.Millisecond,
		800 * time.Millisecond,
	}
	prev := time.Duration(0)
	for i, want := range expected {
		got := expo.NextBackOff()
		assert.Equal(t, want, got, "attempt %d", i+1)
		assert.GreaterOrEqual(t, got, prev)
		assert.LessOrEqual(t, got, 800*time.Millisecond)
		prev = got
	}
}

func TestParseScorePayload(t *testing.T) {
	tests := []struct {
		name       string
		raw        string
		wantScore  int
		wantReason string
		wantConf   float64
		wantErr    bool
	}{
		{
			name:       "plain json",
			raw:        `{"score": 12, "reason": "good", "confidence": 0.8}`,
			wantScore:  12,
			wantReason: "good",
			wantConf:   0.8,
		},
		{
			name:       "markdown fence",
			raw:        "```json\n{\"score\": 3, \"reason\": \"meh\", \"confidence\": 0.4}\n```",
			wantScore:  3,
			wantReason: "meh",
			wantConf:   0.4,
		},
		{
			name:       "surrounding commentary",
			raw:        "Sure! Here is the result: {\"score\": 7, \"reason\": \"fine\", \"confidence\": 0.6} Hope that helps.",
			wantScore:  7,
			wantReason: "fine",
			wantConf:   0.6,
		},
		{
			name:       "missing fields default",
			raw:        `{}`,
			wantScore:  0,
			wantReason: "No reason provided",
			wantConf:   0,
		},
		{
			name:    "no json object",
			raw:     "I cannot grade this answer.",
			wantErr: true,
		},
		{
			name:    "broken json",
			raw:     `{"score": `,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result, err := parseScorePayload(tt.raw, 20)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantScore, result.Score)
			assert.Equal(t, tt.wantReason, result.Reason)
			assert.InDelta(t, tt.wantConf, result.Confidence, 1e-9)
		})
	}
}
