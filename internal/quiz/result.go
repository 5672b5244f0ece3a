package quiz

import "math"

type Band int

const (
	BandPoor Band = iota
	BandFair
	BandGood
	BandExcellent
)

// BandFor maps a percentage to its feedback band.
func BandFor(percentage int) Band {
	switch {
	case percentage >= 80:
		return BandExcellent
	case percentage >= 60:
		return BandGood
	case percentage >= 40:
		return BandFair
	default:
		return BandPoor
	}
}

func (b Band) String() string {
	switch b {
	case BandExcellent:
		return "excellent"
	case BandGood:
		return "good"
	case BandFair:
		return "fair"
	default:
		return "poor"
	}
}

type Summary struct {
	Correct    int  `json:"correct"`
	Incorrect  int  `json:"incorrect"`
	Total      int  `json:"total"`
	Percentage int  `json:"percentage"`
	Band       Band `json:"band"`
}

// Summarize counts the answers. An empty slice yields a zero summary in the
// poor band.
func Summarize(answers []Answer) Summary {
	summary := Summary{Total: len(answers)}
	for _, answer := range answers {
		if answer.IsCorrect {
			summary.Correct++
		}
	}
	summary.Incorrect = summary.Total - summary.Correct

	if summary.Total > 0 {
		summary.Percentage = int(math.Round(float64(summary.Correct) / float64(summary.Total) * 100))
	}
	summary.Band = BandFor(summary.Percentage)
	return summary
}

type AnswerDetail struct {
	Number   int
	Question Question
	Answer   Answer
}

// Details pairs each answer with its question. Answers whose question is not
// in questions are skipped; Number keeps the answer's 1-based position.
func Details(questions []Question, answers []Answer) []AnswerDetail {
	byID := make(map[string]Question, len(questions))
	for _, question := range questions {
		byID[question.ID] = question
	}

	details := make([]AnswerDetail, 0, len(answers))
	for i, answer := range answers {
		question, ok := byID[answer.QuestionID]
		if !ok {
			continue
		}
		details = append(details, AnswerDetail{
			Number:   i + 1,
			Question: question,
			Answer:   answer,
		})
	}
	return details
}
