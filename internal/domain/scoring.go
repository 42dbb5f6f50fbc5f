package domain

import (
	"context"

	"verifymc/internal/util"
)

// ReasonMaxLength caps the stored explanation of any scoring outcome.
const ReasonMaxLength = 500

// ScoringRequest carries one free-text answer to the remote scoring model.
// Text fields are sanitized and length-capped at construction; MaxScore is
// clamped to be non-negative.
type ScoringRequest struct {
	QuestionID  int
	Question    string
	Answer      string
	ScoringRule string
	MaxScore    int
}

// NewScoringRequest builds a ScoringRequest, sanitizing every text field and
// capping it at inputMaxLength runes.
func NewScoringRequest(questionID int, question, answer, scoringRule string, maxScore, inputMaxLength int) ScoringRequest {
	if maxScore < 0 {
		maxScore = 0
	}
	return ScoringRequest{
		QuestionID:  questionID,
		Question:    util.SanitizeText(question, inputMaxLength),
		Answer:      util.SanitizeText(answer, inputMaxLength),
		ScoringRule: util.SanitizeText(scoringRule, inputMaxLength),
		MaxScore:    maxScore,
	}
}

// ScoringResult is the outcome of scoring a single free-text answer, either by
// the remote model or as a degraded manual-review fallback. Provenance fields
// identify which provider/model produced it and what the call cost.
type ScoringResult struct {
	Score        int
	Reason       string
	Confidence   float64
	ManualReview bool

	Provider   string
	Model      string
	RequestID  string
	LatencyMs  int64
	RetryCount int
}

// NewScoringResult applies the result invariants: score clamped to
// [0, maxScore], confidence clamped to [0, 1], reason sanitized and capped.
func NewScoringResult(score int, reason string, confidence float64, maxScore int) ScoringResult {
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	if confidence < 0 {
		confidence = 0
	}
	if confidence > 1 {
		confidence = 1
	}
	return ScoringResult{
		Score:      score,
		Reason:     util.SanitizeText(reason, ReasonMaxLength),
		Confidence: confidence,
	}
}

// NewManualReviewResult is the safe fallback for every failure path: zero
// score, zero confidence, and a reason explaining why automation deferred.
func NewManualReviewResult(reason string) ScoringResult {
	return ScoringResult{
		Score:        0,
		Reason:       util.SanitizeText(reason, ReasonMaxLength),
		Confidence:   0,
		ManualReview: true,
	}
}

// EssayScorer is the port for grading free-text answers. Implementations must
// never return an error: every failure degrades to a manual-review result.
type EssayScorer interface {
	Score(ctx context.Context, req ScoringRequest) ScoringResult
}
