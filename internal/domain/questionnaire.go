package domain

// Question types supported by the questionnaire.
const (
	QuestionTypeSingleChoice   = "single_choice"
	QuestionTypeMultipleChoice = "multiple_choice"
	QuestionTypeText           = "text"
)

// ScoreProviderLocal marks details produced by deterministic local scoring.
const ScoreProviderLocal = "local"

// Option is one selectable choice of a choice-type question.
type Option struct {
	TextZH string
	TextEN string
	Score  int
}

// Question is one entry of the questionnaire definition. Choice questions
// carry options with per-option scores; text questions carry a scoring rule
// for the remote model. MaxScore <= 0 means "not set": it resolves to the sum
// of option scores for choice questions, or the configured default for text.
type Question struct {
	ID          int
	TextZH      string
	TextEN      string
	Type        string
	Required    bool
	Options     []Option
	MaxScore    int
	ScoringRule string
	Placeholder map[string]string
}

// Text returns the question text for the given language, falling back to the
// other language when the requested one is empty.
func (q Question) Text(language string) string {
	if language == "zh" {
		if q.TextZH != "" {
			return q.TextZH
		}
		return q.TextEN
	}
	if q.TextEN != "" {
		return q.TextEN
	}
	return q.TextZH
}

// BilingualText joins both language variants so the grader sees whatever the
// applicant saw.
func (q Question) BilingualText() string {
	switch {
	case q.TextZH != "" && q.TextEN != "":
		return q.TextZH + " / " + q.TextEN
	case q.TextZH != "":
		return q.TextZH
	default:
		return q.TextEN
	}
}

// Definition is the operator-authored questionnaire.
type Definition struct {
	Enabled           bool
	PassScore         int
	AutoApproveOnPass bool
	Questions         []Question
}

// QuestionAnswer is one validated inbound answer.
type QuestionAnswer struct {
	Type              string
	SelectedOptionIDs []int
	TextAnswer        string
}

// QuestionScoreDetail is the immutable per-question audit record. For text
// questions it embeds the ScoringResult verbatim; for choice questions an
// equivalent locally-computed result.
type QuestionScoreDetail struct {
	QuestionID int
	Type       string
	MaxScore   int
	ScoringResult
}

// QuestionnaireResult aggregates all per-question details for one submission.
type QuestionnaireResult struct {
	Passed    bool
	Score     int
	PassScore int
	Details   []QuestionScoreDetail
}

// ManualReviewRequired reports whether any detail deferred to a human.
func (r QuestionnaireResult) ManualReviewRequired() bool {
	for _, d := range r.Details {
		if d.ManualReview {
			return true
		}
	}
	return false
}
