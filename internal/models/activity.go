package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

type ActivityType string

const (
	ActivityPoll      ActivityType = "poll"
	ActivityQuiz      ActivityType = "quiz"
	ActivityWordCloud ActivityType = "wordcloud"
)

var (
	ErrUnknownActivityType = errors.New("unknown activity type")
	ErrInvalidConfig       = errors.New("invalid activity config")
)

func ParseActivityType(s string) (ActivityType, error) {
	switch t := ActivityType(strings.ToLower(strings.TrimSpace(s))); t {
	case ActivityPoll, ActivityQuiz, ActivityWordCloud:
		return t, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownActivityType, s)
	}
}

type PollConfig struct {
	PollType string   `json:"pollType,omitempty"`
	Options  []string `json:"options"`
}

const (
	QuestionMCQ       = "mcq"
	QuestionTrueFalse = "truefalse"
	QuestionFreeText  = "freetext"
)

type QuizQuestion struct {
	Text          string   `json:"text"`
	Type          string   `json:"type"`
	Options       []string `json:"options,omitempty"`
	CorrectAnswer any      `json:"correctAnswer,omitempty"`
	TimeLimit     *int     `json:"timeLimit,omitempty"`
}

type QuizConfig struct {
	Questions []QuizQuestion `json:"questions"`
}

type WordCloudConfig struct {
	MaxWords int `json:"maxWords,omitempty"`
}

func isEmptyJSON(raw json.RawMessage) bool {
	s := strings.TrimSpace(string(raw))
	return s == "" || s == "null"
}

func decodeConfig(raw json.RawMessage, v any) error {
	if isEmptyJSON(raw) {
		return nil
	}
	if err := json.Unmarshal(raw, v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

func (a Activity) PollConfig() (PollConfig, error) {
	var cfg PollConfig
	err := decodeConfig(a.Config, &cfg)
	return cfg, err
}

func (a Activity) QuizConfig() (QuizConfig, error) {
	var cfg QuizConfig
	err := decodeConfig(a.Config, &cfg)
	return cfg, err
}

func (a Activity) WordCloudConfig() (WordCloudConfig, error) {
	var cfg WordCloudConfig
	err := decodeConfig(a.Config, &cfg)
	return cfg, err
}

// ValidateConfig checks the type-specific configuration of a new activity.
func ValidateConfig(t ActivityType, raw json.RawMessage) error {
	a := Activity{Type: t, Config: raw}
	switch t {
	case ActivityPoll:
		cfg, err := a.PollConfig()
		if err != nil {
			return err
		}
		n := 0
		for _, o := range cfg.Options {
			if strings.TrimSpace(o) != "" {
				n++
			}
		}
		if n < 2 {
			return fmt.Errorf("%w: a poll needs at least two options", ErrInvalidConfig)
		}
	case ActivityQuiz:
		cfg, err := a.QuizConfig()
		if err != nil {
			return err
		}
		if len(cfg.Questions) == 0 {
			return fmt.Errorf("%w: a quiz needs at least one question", ErrInvalidConfig)
		}
		for i, q := range cfg.Questions {
			if strings.TrimSpace(q.Text) == "" {
				return fmt.Errorf("%w: question %d has no text", ErrInvalidConfig, i)
			}
			switch q.Type {
			case QuestionMCQ:
				if len(q.Options) < 2 {
					return fmt.Errorf("%w: question %d needs at least two options", ErrInvalidConfig, i)
				}
			case QuestionTrueFalse, QuestionFreeText:
			default:
				return fmt.Errorf("%w: question %d has unknown type %q", ErrInvalidConfig, i, q.Type)
			}
		}
	case ActivityWordCloud:
		cfg, err := a.WordCloudConfig()
		if err != nil {
			return err
		}
		if cfg.MaxWords < 0 {
			return fmt.Errorf("%w: maxWords must not be negative", ErrInvalidConfig)
		}
	default:
		return fmt.Errorf("%w: %q", ErrUnknownActivityType, t)
	}
	return nil
}
