package quiz

import (
	"encoding/json"
	"testing"
	"time"
)

func TestQuestionUpdateDistinguishesAbsentFromNull(t *testing.T) {
	var absent QuestionUpdate
	if err := json.Unmarshal([]byte(`{"difficulty": 2}`), &absent); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if absent.ReviewedAt.Set {
		t.Fatalf("absent reviewed_at should not be set")
	}
	if absent.Difficulty == nil || *absent.Difficulty != Intermediate {
		t.Fatalf("difficulty = %v", absent.Difficulty)
	}
	if absent.Genre != nil {
		t.Fatalf("genre should be nil")
	}

	var cleared QuestionUpdate
	if err := json.Unmarshal([]byte(`{"reviewed_at": null}`), &cleared); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !cleared.ReviewedAt.Set || cleared.ReviewedAt.Value != nil {
		t.Fatalf("null reviewed_at should be set with nil value: %+v", cleared.ReviewedAt)
	}

	var stamped QuestionUpdate
	if err := json.Unmarshal([]byte(`{"genre": 3, "reviewed_at": "2024-05-01T10:00:00Z"}`), &stamped); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if stamped.Genre == nil || *stamped.Genre != "3" {
		t.Fatalf("genre = %v", stamped.Genre)
	}
	if !stamped.ReviewedAt.Set || stamped.ReviewedAt.Value == nil || stamped.ReviewedAt.Value.Year() != 2024 {
		t.Fatalf("reviewed_at = %+v", stamped.ReviewedAt)
	}
}

func TestQuestionUpdateApplyOnlyTouchesPresentFields(t *testing.T) {
	reviewed := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	question := Question{ID: "q1", Genre: "g01", Difficulty: Beginner, ReviewedAt: &reviewed}

	advanced := Advanced
	QuestionUpdate{Difficulty: &advanced}.Apply(&question)
	if question.Difficulty != Advanced || question.Genre != "g01" || question.ReviewedAt == nil {
		t.Fatalf("unexpected question after difficulty update: %+v", question)
	}

	QuestionUpdate{ReviewedAt: OptionalTime{Set: true}}.Apply(&question)
	if question.ReviewedAt != nil {
		t.Fatalf("reviewed_at should be cleared")
	}
}

func TestQuestionUpdateValidate(t *testing.T) {
	if err := (QuestionUpdate{}).Validate(); err == nil {
		t.Fatalf("empty update should fail validation")
	}

	bad := Difficulty(5)
	if err := (QuestionUpdate{Difficulty: &bad}).Validate(); err == nil {
		t.Fatalf("difficulty 5 should fail validation")
	}

	empty := GenreID("")
	if err := (QuestionUpdate{Genre: &empty}).Validate(); err == nil {
		t.Fatalf("empty genre should fail validation")
	}

	if err := (QuestionUpdate{ReviewedAt: OptionalTime{Set: true}}).Validate(); err != nil {
		t.Fatalf("clearing reviewed_at should be valid: %v", err)
	}
}
