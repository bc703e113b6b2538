package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
)

var ErrInvalidAnswer = errors.New("invalid answer")

type AnswerKind int

const (
	AnswerIndex AnswerKind = iota + 1
	AnswerText
	AnswerWords
	AnswerQuiz
)

func (k AnswerKind) String() string {
	switch k {
	case AnswerIndex:
		return "index"
	case AnswerText:
		return "text"
	case AnswerWords:
		return "words"
	case AnswerQuiz:
		return "quiz"
	default:
		return "unknown"
	}
}

// Answer is a submitted answer, shaped by the activity type it answers.
// Only the field matching Kind is meaningful.
type Answer struct {
	Kind  AnswerKind
	Index int
	Text  string
	Words []string
	Quiz  map[int]Answer
}

func (a Answer) MarshalJSON() ([]byte, error) {
	switch a.Kind {
	case AnswerIndex:
		return json.Marshal(a.Index)
	case AnswerText:
		return json.Marshal(a.Text)
	case AnswerWords:
		return json.Marshal(a.Words)
	case AnswerQuiz:
		keys := make([]int, 0, len(a.Quiz))
		for k := range a.Quiz {
			keys = append(keys, k)
		}
		sort.Ints(keys)
		m := make(map[string]Answer, len(a.Quiz))
		for _, k := range keys {
			m[strconv.Itoa(k)] = a.Quiz[k]
		}
		return json.Marshal(m)
	default:
		return nil, fmt.Errorf("%w: empty answer", ErrInvalidAnswer)
	}
}

func invalidAnswer(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidAnswer, fmt.Sprintf(format, args...))
}

// ParseAnswer decodes raw into the variant the activity expects and checks
// it against the activity's configuration.
func ParseAnswer(activity Activity, raw json.RawMessage) (Answer, error) {
	if isEmptyJSON(raw) {
		return Answer{}, invalidAnswer("answer is required")
	}
	switch activity.Type {
	case ActivityPoll:
		cfg, err := activity.PollConfig()
		if err != nil {
			return Answer{}, err
		}
		return parseChoice(raw, cfg.Options)
	case ActivityQuiz:
		cfg, err := activity.QuizConfig()
		if err != nil {
			return Answer{}, err
		}
		return parseQuiz(raw, cfg.Questions)
	case ActivityWordCloud:
		cfg, err := activity.WordCloudConfig()
		if err != nil {
			return Answer{}, err
		}
		return parseWords(raw, cfg.MaxWords)
	default:
		return Answer{}, fmt.Errorf("%w: %q", ErrUnknownActivityType, activity.Type)
	}
}

func firstByte(raw json.RawMessage) byte {
	b := bytes.TrimSpace(raw)
	if len(b) == 0 {
		return 0
	}
	return b[0]
}

// parseChoice accepts an option index or the option text itself.
func parseChoice(raw json.RawMessage, options []string) (Answer, error) {
	switch c := firstByte(raw); {
	case c == '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return Answer{}, invalidAnswer("%v", err)
		}
		if strings.TrimSpace(s) == "" {
			return Answer{}, invalidAnswer("empty choice")
		}
		if len(options) > 0 && !contains(options, s) {
			return Answer{}, invalidAnswer("%q is not one of the options", s)
		}
		return Answer{Kind: AnswerText, Text: s}, nil
	case c == '-' || (c >= '0' && c <= '9'):
		idx, err := parseIndex(raw, len(options))
		if err != nil {
			return Answer{}, err
		}
		return Answer{Kind: AnswerIndex, Index: idx}, nil
	default:
		return Answer{}, invalidAnswer("expected an option index or text")
	}
}

func parseIndex(raw json.RawMessage, n int) (int, error) {
	var idx int
	if err := json.Unmarshal(raw, &idx); err != nil {
		return 0, invalidAnswer("expected an integer index")
	}
	if idx < 0 || (n > 0 && idx >= n) {
		return 0, invalidAnswer("index %d out of range", idx)
	}
	return idx, nil
}

func parseQuiz(raw json.RawMessage, questions []QuizQuestion) (Answer, error) {
	if firstByte(raw) != '{' {
		return Answer{}, invalidAnswer("expected an object of question answers")
	}
	var m map[string]json.RawMessage
	if err := json.Unmarshal(raw, &m); err != nil {
		return Answer{}, invalidAnswer("%v", err)
	}
	// An empty object is a quiz where every question ran out of time.
	out := Answer{Kind: AnswerQuiz, Quiz: make(map[int]Answer, len(m))}
	for key, v := range m {
		qi, err := strconv.Atoi(key)
		if err != nil || qi < 0 || qi >= len(questions) {
			return Answer{}, invalidAnswer("unknown question %q", key)
		}
		a, err := parseQuestion(v, questions[qi])
		if err != nil {
			return Answer{}, fmt.Errorf("question %d: %w", qi, err)
		}
		out.Quiz[qi] = a
	}
	return out, nil
}

func parseQuestion(raw json.RawMessage, q QuizQuestion) (Answer, error) {
	switch q.Type {
	case QuestionMCQ:
		idx, err := parseIndex(raw, len(q.Options))
		if err != nil {
			return Answer{}, err
		}
		return Answer{Kind: AnswerIndex, Index: idx}, nil
	case QuestionTrueFalse:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || (s != "true" && s != "false") {
			return Answer{}, invalidAnswer(`expected "true" or "false"`)
		}
		return Answer{Kind: AnswerText, Text: s}, nil
	case QuestionFreeText:
		var s string
		if err := json.Unmarshal(raw, &s); err != nil || strings.TrimSpace(s) == "" {
			return Answer{}, invalidAnswer("expected non-empty text")
		}
		return Answer{Kind: AnswerText, Text: s}, nil
	default:
		return Answer{}, fmt.Errorf("%w: unknown question type %q", ErrInvalidConfig, q.Type)
	}
}

func parseWords(raw json.RawMessage, maxWords int) (Answer, error) {
	if firstByte(raw) != '[' {
		return Answer{}, invalidAnswer("expected a list of words")
	}
	var words []string
	if err := json.Unmarshal(raw, &words); err != nil {
		return Answer{}, invalidAnswer("%v", err)
	}
	out := make([]string, 0, len(words))
	for _, w := range words {
		w = strings.TrimSpace(w)
		if w == "" {
			return Answer{}, invalidAnswer("empty word")
		}
		out = append(out, w)
	}
	if len(out) == 0 {
		return Answer{}, invalidAnswer("no words")
	}
	if maxWords > 0 && len(out) > maxWords {
		return Answer{}, invalidAnswer("at most %d words allowed", maxWords)
	}
	return Answer{Kind: AnswerWords, Words: out}, nil
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}
