package service

import (
	"fmt"

	"verifymc/internal/domain"

	"github.com/spf13/viper"
)

// LoadDefinition reads the operator-authored questionnaire YAML. The file
// carries its own enabled/pass_score/auto_approve flags which merge with the
// main config (main config wins where set).
func LoadDefinition(path string) (*domain.Definition, error) {
	v := viper.New()
	v.SetConfigFile(path)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("failed to read questionnaire file %s: %w", path, err)
	}

	def := &domain.Definition{
		Enabled:           v.GetBool("enabled"),
		PassScore:         v.GetInt("pass_score"),
		AutoApproveOnPass: v.GetBool("auto_approve_on_pass"),
	}

	var rawQuestions []struct {
		ID          int    `mapstructure:"id"`
		QuestionZH  string `mapstructure:"question_zh"`
		QuestionEN  string `mapstructure:"question_en"`
		Type        string `mapstructure:"type"`
		Required    bool   `mapstructure:"required"`
		MaxScore    int    `mapstructure:"max_score"`
		ScoringRule string `mapstructure:"scoring_rule"`
		Options     []struct {
			TextZH string `mapstructure:"text_zh"`
			TextEN string `mapstructure:"text_en"`
			Score  int    `mapstructure:"score"`
		} `mapstructure:"options"`
		Input map[string]string `mapstructure:"input"`
	}
	if err := v.UnmarshalKey("questions", &rawQuestions); err != nil {
		return nil, fmt.Errorf("failed to parse questionnaire questions: %w", err)
	}

	for _, rq := range rawQuestions {
		q := domain.Question{
			ID:          rq.ID,
			TextZH:      rq.QuestionZH,
			TextEN:      rq.QuestionEN,
			Type:        rq.Type,
			Required:    rq.Required,
			MaxScore:    rq.MaxScore,
			ScoringRule: rq.ScoringRule,
			Placeholder: rq.Input,
		}
		if q.Type == "" {
			q.Type = domain.QuestionTypeSingleChoice
		}
		for _, ro := range rq.Options {
			q.Options = append(q.Options, domain.Option{
				TextZH: ro.TextZH,
				TextEN: ro.TextEN,
				Score:  ro.Score,
			})
		}
		def.Questions = append(def.Questions, q)
	}

	return def, nil
}
