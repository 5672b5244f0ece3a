package quiz

import (
	"encoding/json"
	"testing"
)

func TestGenreIDAcceptsNumbersAndStrings(t *testing.T) {
	var genres []Genre
	payload := `[{"id": "g01", "name": "Go"}, {"id": 7, "name": "SQL"}, {"id": -1, "name": "all"}]`
	if err := json.Unmarshal([]byte(payload), &genres); err != nil {
		t.Fatalf("unmarshal genres: %v", err)
	}

	want := []GenreID{"g01", "7", RandomAllGenreID}
	for i, genre := range genres {
		if genre.ID != want[i] {
			t.Fatalf("genres[%d].ID = %q, want %q", i, genre.ID, want[i])
		}
	}
}

func TestVisibleChoicesSkipsBlankContent(t *testing.T) {
	question := Question{
		ID: "QFB00001",
		Choices: []Choice{
			{ID: "a1", Content: "<p>goroutine</p>", IsCorrect: true},
			{ID: "a2", Content: "   "},
			{ID: "a3", Content: "<p> </p>"},
			{ID: "a4", Content: "thread"},
		},
	}

	visible := question.VisibleChoices()
	if len(visible) != 2 {
		t.Fatalf("len(visible) = %d, want 2", len(visible))
	}
	if visible[0].ID != "a1" || visible[1].ID != "a4" {
		t.Fatalf("unexpected visible choices: %+v", visible)
	}
	if len(question.Choices) != 4 {
		t.Fatalf("Choices mutated, len = %d", len(question.Choices))
	}
}

func TestNewAnswerBuildsDisplayTextAndIDs(t *testing.T) {
	question := Question{
		ID: "QFB00002",
		Choices: []Choice{
			{ID: "a1", Content: "<b>chan</b>", IsCorrect: true},
			{ID: "a2", Content: "mutex"},
			{ID: "a3", Content: "select", IsCorrect: true},
		},
	}

	answer := NewAnswer(question, []string{"a3", " a1 ", "a3", ""})
	if answer.QuestionID != "QFB00002" {
		t.Fatalf("QuestionID = %q", answer.QuestionID)
	}
	if answer.SelectedAnswer != "chan, select" {
		t.Fatalf("SelectedAnswer = %q, want %q", answer.SelectedAnswer, "chan, select")
	}
	if answer.SelectedChoiceID != "a3,a1" {
		t.Fatalf("SelectedChoiceID = %q, want %q", answer.SelectedChoiceID, "a3,a1")
	}
	if !answer.IsCorrect {
		t.Fatalf("expected answer to be correct")
	}

	ids := answer.SelectedIDs()
	if len(ids) != 2 || ids[0] != "a3" || ids[1] != "a1" {
		t.Fatalf("SelectedIDs() = %v", ids)
	}
}

func TestHasSelection(t *testing.T) {
	if HasSelection(nil) {
		t.Fatalf("nil selection should be empty")
	}
	if HasSelection([]string{"", "  "}) {
		t.Fatalf("blank ids should be ignored")
	}
	if !HasSelection([]string{"a1"}) {
		t.Fatalf("expected selection")
	}
}

func TestNewSessionRecordCopiesAnswers(t *testing.T) {
	answers := []Answer{
		{QuestionID: "q1", SelectedAnswer: "x", SelectedChoiceID: "c1", IsCorrect: true},
		{QuestionID: "q2", SelectedAnswer: "y, z", SelectedChoiceID: "c4,c5"},
	}

	record := NewSessionRecord("g01", 2, answers)
	if record.SessionType != SessionTypeGenre || record.Genre != "g01" || record.TotalQuestions != 2 {
		t.Fatalf("unexpected record header: %+v", record)
	}
	if len(record.Answers) != 2 {
		t.Fatalf("len(record.Answers) = %d, want 2", len(record.Answers))
	}
	if record.Answers[1].SelectedChoiceID != "c4,c5" || record.Answers[1].IsCorrect {
		t.Fatalf("unexpected second answer: %+v", record.Answers[1])
	}

	body, err := json.Marshal(record)
	if err != nil {
		t.Fatalf("marshal record: %v", err)
	}
	var decoded map[string]any
	if err := json.Unmarshal(body, &decoded); err != nil {
		t.Fatalf("unmarshal record: %v", err)
	}
	for _, key := range []string{"session_type", "genre", "total_questions", "answers"} {
		if _, ok := decoded[key]; !ok {
			t.Fatalf("missing key %q in %s", key, body)
		}
	}
}

func TestParseDifficultyFilter(t *testing.T) {
	tests := []struct {
		input   string
		want    DifficultyFilter
		wantErr bool
	}{
		{input: "", want: AnyDifficulty},
		{input: "any", want: AnyDifficulty},
		{input: "Beginner", want: OnlyBeginner},
		{input: "2", want: OnlyIntermediate},
		{input: "hard", want: OnlyAdvanced},
		{input: "intermediate-advanced", want: IntermediateAdvanced},
		{input: "4", wantErr: true},
		{input: "expert", wantErr: true},
	}

	for _, tt := range tests {
		got, err := ParseDifficultyFilter(tt.input)
		if tt.wantErr {
			if err == nil {
				t.Fatalf("ParseDifficultyFilter(%q) expected error", tt.input)
			}
			continue
		}
		if err != nil {
			t.Fatalf("ParseDifficultyFilter(%q) error: %v", tt.input, err)
		}
		if got != tt.want {
			t.Fatalf("ParseDifficultyFilter(%q) = %v, want %v", tt.input, got, tt.want)
		}
	}
}

func TestDifficultyFilterKeep(t *testing.T) {
	questions := []Question{
		{ID: "q1", Difficulty: Beginner},
		{ID: "q2", Difficulty: Advanced},
		{ID: "q3", Difficulty: Intermediate},
	}

	kept := IntermediateAdvanced.Keep(questions)
	if len(kept) != 2 || kept[0].ID != "q2" || kept[1].ID != "q3" {
		t.Fatalf("IntermediateAdvanced.Keep = %+v", kept)
	}
	if IntermediateAdvanced.Difficulty() != 0 {
		t.Fatalf("composite filter must request unfiltered questions")
	}
	if got := OnlyBeginner.Keep(questions); len(got) != 1 || got[0].ID != "q1" {
		t.Fatalf("OnlyBeginner.Keep = %+v", got)
	}
	if got := IntermediateAdvanced.Label("Go"); got != "Go (intermediate-advanced)" {
		t.Fatalf("Label = %q", got)
	}
	if got := AnyDifficulty.Label("Go"); got != "Go" {
		t.Fatalf("Label = %q", got)
	}
}

func TestPlainText(t *testing.T) {
	tests := map[string]string{
		"":                                   "",
		"<p>2 &amp; 3</p>":                   "2 & 3",
		"<b>Go</b>  rocks":                   "Go rocks",
		"<p>one</p><p>two</p>":               "one two",
		"<script>alert(1)</script>safe text": "safe text",
	}
	for input, want := range tests {
		if got := PlainText(input); got != want {
			t.Fatalf("PlainText(%q) = %q, want %q", input, got, want)
		}
	}
}
