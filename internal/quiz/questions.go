package quiz

import (
	"bytes"
	"encoding/json"
	"strings"
	"time"
)

// GenreID identifies a genre. The catalog API sends ids either as strings
// ("g01") or as numbers, so both are accepted when decoding.
type GenreID string

const (
	IncorrectReviewGenreID GenreID = "0"
	RandomAllGenreID       GenreID = "-1"
)

func (id *GenreID) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if bytes.Equal(trimmed, []byte("null")) {
		*id = ""
		return nil
	}

	if len(trimmed) > 0 && trimmed[0] == '"' {
		var value string
		if err := json.Unmarshal(trimmed, &value); err != nil {
			return err
		}
		*id = GenreID(value)
		return nil
	}

	var number json.Number
	if err := json.Unmarshal(trimmed, &number); err != nil {
		return err
	}
	*id = GenreID(number.String())
	return nil
}

type Genre struct {
	ID            GenreID `json:"id"`
	Name          string  `json:"name"`
	Description   string  `json:"description,omitempty"`
	QuestionCount int     `json:"question_count"`
}

type Choice struct {
	ID         string `json:"id"`
	Content    string `json:"content"`
	IsCorrect  bool   `json:"is_correct"`
	OrderIndex int    `json:"order_index"`
}

type Question struct {
	ID            string     `json:"id"`
	Genre         GenreID    `json:"genre"`
	Title         string     `json:"title"`
	Body          string     `json:"body,omitempty"`
	Clarification string     `json:"clarification,omitempty"`
	Difficulty    Difficulty `json:"difficulty"`
	ReviewedAt    *time.Time `json:"reviewed_at,omitempty"`
	Choices       []Choice   `json:"choices"`
}

// VisibleChoices returns the choices that have something to render.
// Blank choices stay in Choices and still count for evaluation.
func (q Question) VisibleChoices() []Choice {
	visible := make([]Choice, 0, len(q.Choices))
	for _, choice := range q.Choices {
		if PlainText(choice.Content) == "" {
			continue
		}
		visible = append(visible, choice)
	}
	return visible
}

// CorrectChoices returns the choices flagged correct, in catalog order.
func (q Question) CorrectChoices() []Choice {
	correct := make([]Choice, 0, 1)
	for _, choice := range q.Choices {
		if choice.IsCorrect {
			correct = append(correct, choice)
		}
	}
	return correct
}

// Answer is the user's final response to one question. It is built once by
// NewAnswer and never modified afterwards.
type Answer struct {
	QuestionID       string `json:"question_id"`
	SelectedAnswer   string `json:"selected_answer"`
	SelectedChoiceID string `json:"selected_choice_id"`
	IsCorrect        bool   `json:"is_correct"`
}

// NewAnswer evaluates selected against the question. Blank and repeated ids
// are dropped; the display text follows catalog order while the id list keeps
// the order the user picked.
func NewAnswer(question Question, selected []string) Answer {
	ids := normalizeSelection(selected)

	chosen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		chosen[id] = struct{}{}
	}

	texts := make([]string, 0, len(ids))
	for _, choice := range question.Choices {
		if _, ok := chosen[choice.ID]; ok {
			texts = append(texts, PlainText(choice.Content))
		}
	}

	return Answer{
		QuestionID:       question.ID,
		SelectedAnswer:   strings.Join(texts, ", "),
		SelectedChoiceID: strings.Join(ids, ","),
		IsCorrect:        Evaluate(question.Choices, ids),
	}
}

// SelectedIDs splits SelectedChoiceID back into ids.
func (a Answer) SelectedIDs() []string {
	if a.SelectedChoiceID == "" {
		return nil
	}
	return strings.Split(a.SelectedChoiceID, ",")
}

func normalizeSelection(selected []string) []string {
	seen := make(map[string]struct{}, len(selected))
	ids := make([]string, 0, len(selected))
	for _, raw := range selected {
		id := strings.TrimSpace(raw)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}
		ids = append(ids, id)
	}
	return ids
}

// HasSelection reports whether selected holds at least one usable id.
func HasSelection(selected []string) bool {
	return len(normalizeSelection(selected)) > 0
}

type SessionMode int

const (
	ModeGenreQuiz SessionMode = iota
	ModeIncorrectReview
	ModeRandomAll
)

func (m SessionMode) String() string {
	switch m {
	case ModeIncorrectReview:
		return "incorrect-review"
	case ModeRandomAll:
		return "random-all"
	default:
		return "genre"
	}
}

const SessionTypeGenre = "genre"

type RecordedAnswer struct {
	QuestionID       string `json:"question_id"`
	SelectedChoiceID string `json:"selected_choice_id"`
	IsCorrect        bool   `json:"is_correct"`
}

// SessionRecord is the payload stored for a completed genre session.
type SessionRecord struct {
	SessionType    string           `json:"session_type"`
	Genre          string           `json:"genre"`
	TotalQuestions int              `json:"total_questions"`
	Answers        []RecordedAnswer `json:"answers"`
}

// NewSessionRecord builds the record for a finished genre session.
func NewSessionRecord(genre GenreID, totalQuestions int, answers []Answer) SessionRecord {
	recorded := make([]RecordedAnswer, 0, len(answers))
	for _, answer := range answers {
		recorded = append(recorded, RecordedAnswer{
			QuestionID:       answer.QuestionID,
			SelectedChoiceID: answer.SelectedChoiceID,
			IsCorrect:        answer.IsCorrect,
		})
	}

	return SessionRecord{
		SessionType:    SessionTypeGenre,
		Genre:          string(genre),
		TotalQuestions: totalQuestions,
		Answers:        recorded,
	}
}
