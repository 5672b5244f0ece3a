package quiz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// OptionalTime tells an absent field apart from an explicit null.
// Set is false when the key was missing; Set with a nil Value means clear.
type OptionalTime struct {
	Set   bool
	Value *time.Time
}

func (o *OptionalTime) UnmarshalJSON(data []byte) error {
	o.Set = true
	if bytes.Equal(bytes.TrimSpace(data), []byte("null")) {
		o.Value = nil
		return nil
	}

	var value time.Time
	if err := json.Unmarshal(data, &value); err != nil {
		return err
	}
	o.Value = &value
	return nil
}

func (o OptionalTime) MarshalJSON() ([]byte, error) {
	if o.Value == nil {
		return []byte("null"), nil
	}
	return json.Marshal(o.Value)
}

// QuestionUpdate is a partial edit applied to many questions at once.
// Nil pointers and an unset ReviewedAt leave the field unchanged.
type QuestionUpdate struct {
	Genre      *GenreID     `json:"genre,omitempty"`
	Difficulty *Difficulty  `json:"difficulty,omitempty"`
	ReviewedAt OptionalTime `json:"reviewed_at"`
}

func (u QuestionUpdate) Empty() bool {
	return u.Genre == nil && u.Difficulty == nil && !u.ReviewedAt.Set
}

func (u QuestionUpdate) Validate() error {
	if u.Empty() {
		return fmt.Errorf("update has no fields")
	}
	if u.Genre != nil && *u.Genre == "" {
		return fmt.Errorf("genre must not be empty")
	}
	if u.Difficulty != nil && !u.Difficulty.Valid() {
		return fmt.Errorf("difficulty must be 1, 2 or 3, got %d", *u.Difficulty)
	}
	return nil
}

// Apply writes the present fields onto q.
func (u QuestionUpdate) Apply(q *Question) {
	if u.Genre != nil {
		q.Genre = *u.Genre
	}
	if u.Difficulty != nil {
		q.Difficulty = *u.Difficulty
	}
	if u.ReviewedAt.Set {
		if u.ReviewedAt.Value == nil {
			q.ReviewedAt = nil
		} else {
			reviewedAt := *u.ReviewedAt.Value
			q.ReviewedAt = &reviewedAt
		}
	}
}
