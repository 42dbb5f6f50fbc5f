package service

import (
	"context"
	"strings"
	"sync"

	"verifymc/internal/config"
	"verifymc/internal/domain"
	"verifymc/internal/logger"

	"go.uber.org/zap"
)

// DisabledFullScore is returned when the questionnaire is switched off:
// every applicant passes with a full score and no details.
const DisabledFullScore = 100

// QuestionnaireService evaluates submitted answers against the operator's
// questionnaire definition. Choice questions are scored deterministically in
// process; text questions are delegated to the essay scorer. One audit detail
// is produced per defined question, and scoring never short-circuits: even
// when one answer needs manual review, the rest are still graded so a human
// reviewer sees a complete record.
type QuestionnaireService struct {
	cfg    config.QuestionnaireConfig
	scorer domain.EssayScorer

	inputMaxLength int

	mu  sync.RWMutex
	def *domain.Definition
}

// NewQuestionnaireService creates the orchestrator. inputMaxLength caps every
// text field forwarded to the remote scorer.
func NewQuestionnaireService(cfg config.QuestionnaireConfig, def *domain.Definition, scorer domain.EssayScorer, inputMaxLength int) *QuestionnaireService {
	if def == nil {
		def = &domain.Definition{}
	}
	return &QuestionnaireService{
		cfg:            cfg,
		scorer:         scorer,
		inputMaxLength: inputMaxLength,
		def:            def,
	}
}

// Reload swaps in a new questionnaire definition.
func (s *QuestionnaireService) Reload(def *domain.Definition) {
	if def == nil {
		return
	}
	s.mu.Lock()
	s.def = def
	s.mu.Unlock()
}

// Definition returns the active questionnaire definition.
func (s *QuestionnaireService) Definition() *domain.Definition {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.def
}

// Enabled reports whether the questionnaire gate is active. The main config
// flag or the definition's own flag may enable it.
func (s *QuestionnaireService) Enabled() bool {
	return s.cfg.Enabled || s.Definition().Enabled
}

// PassScore resolves the minimum passing score: the main config wins when it
// is set, then the definition, then a conservative default.
func (s *QuestionnaireService) PassScore() int {
	if s.cfg.PassScore > 0 {
		return s.cfg.PassScore
	}
	if ps := s.Definition().PassScore; ps > 0 {
		return ps
	}
	return 60
}

// AutoApproveOnPass reports whether a passing, fully-automated submission may
// skip the human review queue.
func (s *QuestionnaireService) AutoApproveOnPass() bool {
	return s.cfg.AutoApproveOnPass || s.Definition().AutoApproveOnPass
}

// Evaluate scores one submission. The inbound answers are assumed to be
// structurally validated by the caller (required-ness, option id bounds, text
// length bounds).
func (s *QuestionnaireService) Evaluate(ctx context.Context, answers map[int]domain.QuestionAnswer) *domain.QuestionnaireResult {
	l := logger.Get()

	if !s.Enabled() {
		return &domain.QuestionnaireResult{
			Passed:    true,
			Score:     DisabledFullScore,
			PassScore: s.PassScore(),
		}
	}

	def := s.Definition()
	result := &domain.QuestionnaireResult{
		PassScore: s.PassScore(),
		Details:   make([]domain.QuestionScoreDetail, 0, len(def.Questions)),
	}

	for _, q := range def.Questions {
		detail := s.scoreQuestion(ctx, q, answers)
		result.Details = append(result.Details, detail)
		result.Score += detail.Score
	}

	result.Passed = result.Score >= result.PassScore

	l.Info("Questionnaire evaluated",
		zap.Int("score", result.Score),
		zap.Int("pass_score", result.PassScore),
		zap.Bool("passed", result.Passed),
		zap.Bool("manual_review_required", result.ManualReviewRequired()))

	return result
}

func (s *QuestionnaireService) scoreQuestion(ctx context.Context, q domain.Question, answers map[int]domain.QuestionAnswer) domain.QuestionScoreDetail {
	maxScore := s.resolveMaxScore(q)
	detail := domain.QuestionScoreDetail{
		QuestionID: q.ID,
		Type:       q.Type,
		MaxScore:   maxScore,
	}

	answer, ok := answers[q.ID]
	if !ok || answerEmpty(q.Type, answer) {
		detail.ScoringResult = domain.ScoringResult{
			Score:      0,
			Reason:     "No answer submitted",
			Confidence: 1,
			Provider:   domain.ScoreProviderLocal,
		}
		return detail
	}

	switch q.Type {
	case domain.QuestionTypeSingleChoice, domain.QuestionTypeMultipleChoice:
		detail.ScoringResult = scoreChoice(q, answer, maxScore)
	case domain.QuestionTypeText:
		req := domain.NewScoringRequest(q.ID, q.BilingualText(), answer.TextAnswer, q.ScoringRule, maxScore, s.inputMaxLength)
		detail.ScoringResult = s.scorer.Score(ctx, req)
	default:
		logger.Get().Warn("Unknown question type, scoring as zero",
			zap.Int("question_id", q.ID),
			zap.String("type", q.Type))
		detail.ScoringResult = domain.ScoringResult{
			Reason:     "Unknown question type",
			Confidence: 1,
			Provider:   domain.ScoreProviderLocal,
		}
	}
	return detail
}

// resolveMaxScore: explicit per-question override, else the sum of option
// scores for choice questions, else the configured global default for text.
func (s *QuestionnaireService) resolveMaxScore(q domain.Question) int {
	if q.MaxScore > 0 {
		return q.MaxScore
	}
	switch q.Type {
	case domain.QuestionTypeSingleChoice, domain.QuestionTypeMultipleChoice:
		sum := 0
		for _, opt := range q.Options {
			sum += opt.Score
		}
		return sum
	default:
		return s.cfg.DefaultTextMaxScore
	}
}

// scoreChoice sums the configured score of each selected option and clamps
// the result to [0, maxScore]. Deterministic, full confidence.
func scoreChoice(q domain.Question, answer domain.QuestionAnswer, maxScore int) domain.ScoringResult {
	score := 0
	for _, id := range answer.SelectedOptionIDs {
		if id >= 0 && id < len(q.Options) {
			score += q.Options[id].Score
		}
	}
	if score < 0 {
		score = 0
	}
	if score > maxScore {
		score = maxScore
	}
	return domain.ScoringResult{
		Score:      score,
		Reason:     "Scored from selected options",
		Confidence: 1,
		Provider:   domain.ScoreProviderLocal,
	}
}

func answerEmpty(questionType string, answer domain.QuestionAnswer) bool {
	if questionType == domain.QuestionTypeText {
		return strings.TrimSpace(answer.TextAnswer) == ""
	}
	return len(answer.SelectedOptionIDs) == 0
}
