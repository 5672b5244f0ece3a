package cli

import (
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"unicode"

	"elearning-quiz/internal/apiclient"
	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/quiz"
)

func printHelp(out io.Writer) {
	fmt.Fprintln(out, "Commands:")
	fmt.Fprintln(out, "  help")
	fmt.Fprintln(out, "  login <email>")
	fmt.Fprintln(out, "  register <email> [username]")
	fmt.Fprintln(out, "  logout")
	fmt.Fprintln(out, "  whoami")
	fmt.Fprintln(out, "  genres")
	fmt.Fprintln(out, "  play <number|genre_id> [difficulty]")
	fmt.Fprintln(out, "  review")
	fmt.Fprintln(out, "  random")
	fmt.Fprintln(out, "  restart")
	fmt.Fprintln(out, "  new")
	fmt.Fprintln(out, "  exit")
}

const maxLetteredChoices = 26

// numberedChoices reports whether n choices are too many for A-Z labels.
func numberedChoices(n int) bool {
	return n > maxLetteredChoices
}

func choiceLabel(idx, n int) string {
	if numberedChoices(n) {
		return strconv.Itoa(idx + 1)
	}
	return string(rune('A' + idx))
}

// parseSelection maps labels such as "A,C", "a c" or "ac" to choice ids.
// Lists longer than the alphabet are labelled 1..n and take numbers instead.
func parseSelection(input string, choices []quiz.Choice) ([]string, error) {
	fields := strings.FieldsFunc(input, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil, errors.New("select at least one answer")
	}

	indexes := make([]int, 0, len(fields))
	if numberedChoices(len(choices)) {
		for _, field := range fields {
			number, err := strconv.Atoi(field)
			if err != nil || number < 1 || number > len(choices) {
				return nil, fmt.Errorf("%q is not one of the listed numbers", field)
			}
			indexes = append(indexes, number-1)
		}
	} else {
		for _, field := range fields {
			for _, r := range strings.ToUpper(field) {
				if r < 'A' || int(r-'A') >= len(choices) {
					return nil, fmt.Errorf("%q is not one of the listed letters", string(r))
				}
				indexes = append(indexes, int(r-'A'))
			}
		}
	}

	seen := make(map[int]struct{}, len(indexes))
	selected := make([]string, 0, len(indexes))
	for _, idx := range indexes {
		if _, dup := seen[idx]; dup {
			continue
		}
		seen[idx] = struct{}{}
		selected = append(selected, choices[idx].ID)
	}
	return selected, nil
}

func bandMessage(band quiz.Band) string {
	switch band {
	case quiz.BandExcellent:
		return "Excellent! You really know this topic."
	case quiz.BandGood:
		return "Well done! A little more practice and you will master it."
	case quiz.BandFair:
		return "Not bad. Review the explanations and try again."
	default:
		return "Keep practicing. Try the review mode to revisit your mistakes."
	}
}

func (a *App) describeError(err error) error {
	var apiErr *apiclient.APIError
	switch {
	case errors.Is(err, apiclient.ErrServiceUnavailable):
		return fmt.Errorf("quiz service unavailable at %s", a.serverURL)
	case errors.Is(err, auth.ErrNotAuthenticated):
		return errors.New("not logged in, use 'login <email>' first")
	case errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusUnauthorized:
		return fmt.Errorf("%s (try 'login <email>')", apiErr.Message)
	}
	return err
}

func displayName(user auth.User) string {
	if user.Username != "" {
		return user.Username
	}
	return user.Email
}

func capitalize(text string) string {
	if text == "" {
		return text
	}
	return strings.ToUpper(text[:1]) + text[1:]
}
