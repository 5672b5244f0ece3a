package cli

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/golang/glog"

	"elearning-quiz/internal/quiz"
	"elearning-quiz/internal/session"
)

// playSession walks the active session question by question until it is
// completed, abandoned, or input ends.
func (a *App) playSession(_ context.Context) error {
	a.printSessionHeader()

	for a.machine.State() == session.StateActive {
		snapshot := a.machine.Snapshot()
		question, ok := snapshot.CurrentQuestion()
		if !ok {
			break
		}

		choices := question.VisibleChoices()
		if len(choices) == 0 {
			glog.Warningf("question %s has no displayable choices", question.ID)
			fmt.Fprintf(a.out, "Question %d cannot be shown because none of its answers can be displayed. Quiz ended.\n", snapshot.CurrentQuestionIndex+1)
			a.machine.SelectNewGenre()
			return nil
		}
		printQuestion(a.out, snapshot.CurrentQuestionIndex+1, len(snapshot.Questions), question, choices)

		selected, quit, err := a.promptSelection(choices)
		if err != nil {
			return err
		}
		if quit {
			a.machine.SelectNewGenre()
			fmt.Fprintln(a.out, "Quiz abandoned.")
			return nil
		}

		answer, accepted := a.machine.SubmitAnswer(selected)
		if !accepted {
			continue
		}
		printReveal(a.out, question, choices, answer)

		last := snapshot.CurrentQuestionIndex+1 == len(snapshot.Questions)
		prompt := "Press Enter for the next question..."
		if last {
			prompt = "Press Enter to see your results..."
		}
		fmt.Fprint(a.out, prompt)
		if _, err := a.readLine(); err != nil && err != errInputClosed {
			return err
		}

		if err := a.machine.Advance(); err != nil {
			return err
		}
	}

	if a.machine.State() == session.StateCompleted {
		a.printResults()
	}
	return nil
}

func (a *App) sessionLabel() string {
	snapshot := a.machine.Snapshot()
	if snapshot.SelectedGenre == nil {
		return ""
	}
	switch a.machine.Mode() {
	case quiz.ModeIncorrectReview:
		return "Review of incorrect answers"
	case quiz.ModeRandomAll:
		return "Random questions from all genres"
	default:
		return a.machine.Filter().Label(snapshot.SelectedGenre.Name)
	}
}

func (a *App) printSessionHeader() {
	snapshot := a.machine.Snapshot()
	fmt.Fprintf(a.out, "\n%s: %d questions. Type 'q' to abandon.\n", a.sessionLabel(), len(snapshot.Questions))
}

// promptSelection reads choice labels until a valid selection, "q", or end
// of input.
func (a *App) promptSelection(choices []quiz.Choice) ([]string, bool, error) {
	prompt := fmt.Sprintf("Your answer (A-%s, several allowed e.g. A,C): ", choiceLabel(len(choices)-1, len(choices)))
	if numberedChoices(len(choices)) {
		prompt = fmt.Sprintf("Your answer (1-%d, several allowed e.g. 1,3): ", len(choices))
	}

	for {
		fmt.Fprint(a.out, prompt)
		line, err := a.readLine()
		if err != nil {
			return nil, false, err
		}
		if strings.EqualFold(line, "q") || strings.EqualFold(line, "quit") {
			return nil, true, nil
		}

		selected, err := parseSelection(line, choices)
		if err != nil {
			fmt.Fprintf(a.out, "Invalid input: %v\n", err)
			continue
		}
		return selected, false, nil
	}
}

func printQuestion(out io.Writer, number, total int, question quiz.Question, choices []quiz.Choice) {
	fmt.Fprintln(out)
	fmt.Fprintf(out, "Question %d / %d [%s]\n", number, total, question.Difficulty)
	fmt.Fprintf(out, "%s\n", quiz.PlainText(question.Title))
	if body := quiz.PlainText(question.Body); body != "" {
		fmt.Fprintf(out, "%s\n", body)
	}
	fmt.Fprintln(out)
	for idx, choice := range choices {
		fmt.Fprintf(out, "%s. %s\n", choiceLabel(idx, len(choices)), quiz.PlainText(choice.Content))
	}
	fmt.Fprintln(out)
}

func printReveal(out io.Writer, question quiz.Question, choices []quiz.Choice, answer quiz.Answer) {
	fmt.Fprintln(out)
	if answer.IsCorrect {
		fmt.Fprintln(out, "Correct!")
	} else {
		fmt.Fprintf(out, "Incorrect. You chose: %s\n", answer.SelectedAnswer)
	}

	correct := make([]string, 0, 1)
	for idx, choice := range choices {
		if choice.IsCorrect {
			correct = append(correct, fmt.Sprintf("%s. %s", choiceLabel(idx, len(choices)), quiz.PlainText(choice.Content)))
		}
	}
	fmt.Fprintf(out, "Correct answer: %s\n", strings.Join(correct, ", "))

	if clarification := quiz.PlainText(question.Clarification); clarification != "" {
		fmt.Fprintf(out, "Explanation: %s\n", clarification)
	}
}

func (a *App) printResults() {
	summary, ok := a.machine.Summary()
	if !ok {
		return
	}

	fmt.Fprintln(a.out)
	fmt.Fprintf(a.out, "Results: %s\n", a.sessionLabel())
	fmt.Fprintf(a.out, "Score: %d/%d (%d%%)\n", summary.Correct, summary.Total, summary.Percentage)
	fmt.Fprintf(a.out, "Correct: %d  Incorrect: %d\n", summary.Correct, summary.Incorrect)
	fmt.Fprintln(a.out, bandMessage(summary.Band))
	fmt.Fprintln(a.out)

	for _, detail := range a.machine.Details() {
		mark := "x"
		if detail.Answer.IsCorrect {
			mark = "ok"
		}
		fmt.Fprintf(a.out, "%2d. [%s] %s | your answer: %s\n",
			detail.Number,
			mark,
			quiz.PlainText(detail.Question.Title),
			detail.Answer.SelectedAnswer,
		)
	}

	fmt.Fprintln(a.out)
	fmt.Fprintln(a.out, "Type 'restart' to try again, 'new' to choose another genre, 'random' or 'review'.")
}
