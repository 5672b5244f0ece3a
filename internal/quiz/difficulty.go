package quiz

import (
	"fmt"
	"strconv"
	"strings"
)

type Difficulty int

const (
	Beginner     Difficulty = 1
	Intermediate Difficulty = 2
	Advanced     Difficulty = 3
)

func (d Difficulty) Valid() bool {
	return d >= Beginner && d <= Advanced
}

func (d Difficulty) String() string {
	switch d {
	case Beginner:
		return "beginner"
	case Intermediate:
		return "intermediate"
	case Advanced:
		return "advanced"
	default:
		return "unknown"
	}
}

// DifficultyFilter is the difficulty choice made when starting a genre
// session. IntermediateAdvanced has no server-side equivalent and is applied
// to unfiltered results on the client.
type DifficultyFilter int

const (
	AnyDifficulty DifficultyFilter = iota
	OnlyBeginner
	OnlyIntermediate
	OnlyAdvanced
	IntermediateAdvanced
)

// ParseDifficultyFilter accepts names ("beginner", "intermediate-advanced"),
// band numbers ("1".."3") and "any"/"" for no filter.
func ParseDifficultyFilter(raw string) (DifficultyFilter, error) {
	value := strings.ToLower(strings.TrimSpace(raw))
	switch value {
	case "", "any", "all":
		return AnyDifficulty, nil
	case "beginner", "easy":
		return OnlyBeginner, nil
	case "intermediate", "medium":
		return OnlyIntermediate, nil
	case "advanced", "hard":
		return OnlyAdvanced, nil
	case "intermediate-advanced", "intermediate_advanced", "2-3", "2,3":
		return IntermediateAdvanced, nil
	}

	band, err := strconv.Atoi(value)
	if err == nil && Difficulty(band).Valid() {
		return DifficultyFilter(band), nil
	}
	return AnyDifficulty, fmt.Errorf("unknown difficulty %q", raw)
}

// Difficulty returns the band to request from the catalog, or 0 when the
// request must be unfiltered.
func (f DifficultyFilter) Difficulty() Difficulty {
	switch f {
	case OnlyBeginner:
		return Beginner
	case OnlyIntermediate:
		return Intermediate
	case OnlyAdvanced:
		return Advanced
	default:
		return 0
	}
}

// Composite reports whether the filter spans several bands.
func (f DifficultyFilter) Composite() bool {
	return f == IntermediateAdvanced
}

func (f DifficultyFilter) Allows(d Difficulty) bool {
	switch f {
	case AnyDifficulty:
		return true
	case IntermediateAdvanced:
		return d == Intermediate || d == Advanced
	default:
		return d == f.Difficulty()
	}
}

// Keep returns the questions the filter allows, in order.
func (f DifficultyFilter) Keep(questions []Question) []Question {
	kept := make([]Question, 0, len(questions))
	for _, question := range questions {
		if f.Allows(question.Difficulty) {
			kept = append(kept, question)
		}
	}
	return kept
}

func (f DifficultyFilter) String() string {
	switch f {
	case OnlyBeginner:
		return "beginner"
	case OnlyIntermediate:
		return "intermediate"
	case OnlyAdvanced:
		return "advanced"
	case IntermediateAdvanced:
		return "intermediate-advanced"
	default:
		return "any"
	}
}

// Label decorates a genre name for display, e.g. "Go (intermediate-advanced)".
func (f DifficultyFilter) Label(name string) string {
	if f == AnyDifficulty {
		return name
	}
	return fmt.Sprintf("%s (%s)", name, f)
}
