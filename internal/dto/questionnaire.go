package dto

import "verifymc/internal/domain"

// QuestionnaireResponse is the frontend view of the questionnaire. Option
// scores and scoring rules are never exposed.
type QuestionnaireResponse struct {
	Enabled   bool               `json:"enabled"`
	PassScore int                `json:"pass_score"`
	Questions []QuestionResponse `json:"questions"`
}

type QuestionResponse struct {
	ID       int               `json:"id"`
	Question string            `json:"question"`
	Type     string            `json:"type"`
	Required bool              `json:"required"`
	Input    map[string]string `json:"input,omitempty"`
	Options  []OptionResponse  `json:"options"`
}

type OptionResponse struct {
	ID   int    `json:"id"`
	Text string `json:"text"`
}

// AnswerPayload is one submitted answer. JSON object keys are strings, so the
// answers map is keyed by the decimal question id.
type AnswerPayload struct {
	Type              string `json:"type"`
	SelectedOptionIDs []int  `json:"selected_option_ids,omitempty"`
	TextAnswer        string `json:"text_answer,omitempty"`
}

// SubmitQuestionnaireRequest is a standalone evaluation request.
type SubmitQuestionnaireRequest struct {
	Language string                   `json:"lang"`
	Answers  map[string]AnswerPayload `json:"answers"`
}

// QuestionScoreDetailResponse is the durable per-question audit shape; the
// admin UI and reviewer summaries depend on these exact field names.
type QuestionScoreDetailResponse struct {
	QuestionID   int     `json:"question_id"`
	Type         string  `json:"type"`
	Score        int     `json:"score"`
	MaxScore     int     `json:"max_score"`
	Reason       string  `json:"reason"`
	Confidence   float64 `json:"confidence"`
	ManualReview bool    `json:"manual_review"`
	Provider     string  `json:"provider"`
	Model        string  `json:"model"`
	RequestID    string  `json:"request_id"`
	LatencyMs    int64   `json:"latency_ms"`
	RetryCount   int     `json:"retry_count"`
}

// QuestionnaireResultResponse is the evaluation outcome returned to callers
// and embedded in the registration response.
type QuestionnaireResultResponse struct {
	Passed               bool                          `json:"passed"`
	Score                int                           `json:"score"`
	PassScore            int                           `json:"pass_score"`
	ManualReviewRequired bool                          `json:"manual_review_required"`
	Details              []QuestionScoreDetailResponse `json:"details"`
}

// FromQuestionnaireResult maps the domain result to its wire shape.
func FromQuestionnaireResult(result *domain.QuestionnaireResult) QuestionnaireResultResponse {
	resp := QuestionnaireResultResponse{
		Passed:               result.Passed,
		Score:                result.Score,
		PassScore:            result.PassScore,
		ManualReviewRequired: result.ManualReviewRequired(),
		Details:              make([]QuestionScoreDetailResponse, 0, len(result.Details)),
	}
	for _, d := range result.Details {
		resp.Details = append(resp.Details, FromQuestionScoreDetail(d))
	}
	return resp
}

// FromQuestionScoreDetail maps one audit detail to its wire shape.
func FromQuestionScoreDetail(d domain.QuestionScoreDetail) QuestionScoreDetailResponse {
	return QuestionScoreDetailResponse{
		QuestionID:   d.QuestionID,
		Type:         d.Type,
		Score:        d.Score,
		MaxScore:     d.MaxScore,
		Reason:       d.Reason,
		Confidence:   d.Confidence,
		ManualReview: d.ManualReview,
		Provider:     d.Provider,
		Model:        d.Model,
		RequestID:    d.RequestID,
		LatencyMs:    d.LatencyMs,
		RetryCount:   d.RetryCount,
	}
}

// FromDefinition maps the questionnaire definition to its frontend view for
// the requested language.
func FromDefinition(def *domain.Definition, enabled bool, passScore int, language string) QuestionnaireResponse {
	resp := QuestionnaireResponse{
		Enabled:   enabled,
		PassScore: passScore,
		Questions: []QuestionResponse{},
	}
	if !enabled {
		return resp
	}
	for _, q := range def.Questions {
		qr := QuestionResponse{
			ID:       q.ID,
			Question: q.Text(language),
			Type:     q.Type,
			Required: q.Required,
			Input:    pickPlaceholder(q.Placeholder, language),
			Options:  []OptionResponse{},
		}
		for i, opt := range q.Options {
			text := opt.TextEN
			if language == "zh" && opt.TextZH != "" {
				text = opt.TextZH
			}
			if text == "" {
				text = opt.TextZH
			}
			qr.Options = append(qr.Options, OptionResponse{ID: i, Text: text})
		}
		resp.Questions = append(resp.Questions, qr)
	}
	return resp
}

func pickPlaceholder(input map[string]string, language string) map[string]string {
	if len(input) == 0 {
		return nil
	}
	out := make(map[string]string, len(input)+1)
	for k, v := range input {
		out[k] = v
	}
	if language == "zh" {
		if v, ok := input["placeholder_zh"]; ok {
			out["placeholder"] = v
		}
	} else if v, ok := input["placeholder_en"]; ok {
		out["placeholder"] = v
	}
	return out
}

// ToDomainAnswers converts wire answers (string-keyed) to the orchestrator's
// input shape. Non-numeric keys are skipped.
func ToDomainAnswers(answers map[string]AnswerPayload) map[int]domain.QuestionAnswer {
	out := make(map[int]domain.QuestionAnswer, len(answers))
	for key, a := range answers {
		id, ok := parseQuestionID(key)
		if !ok {
			continue
		}
		out[id] = domain.QuestionAnswer{
			Type:              a.Type,
			SelectedOptionIDs: a.SelectedOptionIDs,
			TextAnswer:        a.TextAnswer,
		}
	}
	return out
}

func parseQuestionID(s string) (int, bool) {
	id := 0
	if s == "" {
		return 0, false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return 0, false
		}
		id = id*10 + int(r-'0')
	}
	return id, true
}
