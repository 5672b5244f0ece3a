package quiz

// Evaluate reports whether selected is exactly the set of correct choice ids.
// Order and repetition in selected do not matter.
func Evaluate(choices []Choice, selected []string) bool {
	correct := make(map[string]struct{}, len(choices))
	for _, choice := range choices {
		if choice.IsCorrect {
			correct[choice.ID] = struct{}{}
		}
	}

	chosen := make(map[string]struct{}, len(selected))
	for _, id := range selected {
		chosen[id] = struct{}{}
	}

	if len(chosen) != len(correct) {
		return false
	}
	for id := range chosen {
		if _, ok := correct[id]; !ok {
			return false
		}
	}
	return true
}
