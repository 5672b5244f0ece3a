package opentdb

import (
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"html"
	"math/rand"
	"sort"
	"strings"

	"elearning-quiz/internal/quiz"
	"elearning-quiz/internal/store"
)

// BuildCatalog converts trivia questions into importable genres and
// questions. Each category becomes a genre; answers are shuffled once here and
// the shuffled position is stored as order_index.
func BuildCatalog(raw []RawQuestion) store.Catalog {
	genres := make([]quiz.Genre, 0)
	seenGenres := make(map[quiz.GenreID]struct{})
	questions := make([]quiz.Question, 0, len(raw))

	for _, item := range raw {
		category := html.UnescapeString(strings.TrimSpace(item.Category))
		if category == "" {
			category = "General"
		}
		genreID := makeGenreID(category)
		if _, ok := seenGenres[genreID]; !ok {
			seenGenres[genreID] = struct{}{}
			genres = append(genres, quiz.Genre{ID: genreID, Name: category})
		}

		question := buildQuestion(item)
		question.Genre = genreID
		question.ID = makeQuestionID(item)
		for i := range question.Choices {
			question.Choices[i].ID = fmt.Sprintf("%s-%d", question.ID, i+1)
		}
		questions = append(questions, question)
	}

	return store.Catalog{Genres: genres, Questions: questions}
}

func buildQuestion(raw RawQuestion) quiz.Question {
	choices := make([]quiz.Choice, 0, len(raw.IncorrectAnswers)+1)
	for _, incorrect := range raw.IncorrectAnswers {
		choices = append(choices, quiz.Choice{Content: html.UnescapeString(incorrect)})
	}
	choices = append(choices, quiz.Choice{
		Content:   html.UnescapeString(raw.CorrectAnswer),
		IsCorrect: true,
	})

	rand.Shuffle(len(choices), func(i, j int) {
		choices[i], choices[j] = choices[j], choices[i]
	})
	for i := range choices {
		choices[i].OrderIndex = i
	}

	return quiz.Question{
		Title:      html.UnescapeString(raw.Question),
		Difficulty: parseDifficulty(raw.Difficulty),
		Choices:    choices,
	}
}

func parseDifficulty(value string) quiz.Difficulty {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "hard":
		return quiz.Advanced
	case "medium":
		return quiz.Intermediate
	default:
		return quiz.Beginner
	}
}

func makeGenreID(category string) quiz.GenreID {
	hash := sha1.Sum([]byte(strings.ToLower(category)))
	return quiz.GenreID("otdb-" + hex.EncodeToString(hash[:])[:8])
}

// makeQuestionID hashes the prompt, the correct answer and the sorted
// incorrect answers, so the id does not depend on the shuffled order.
func makeQuestionID(raw RawQuestion) string {
	incorrect := append([]string(nil), raw.IncorrectAnswers...)
	sort.Strings(incorrect)

	var keyBuilder strings.Builder
	keyBuilder.WriteString(html.UnescapeString(raw.Question))
	keyBuilder.WriteString("|")
	keyBuilder.WriteString(html.UnescapeString(raw.CorrectAnswer))
	for _, answer := range incorrect {
		keyBuilder.WriteString("|")
		keyBuilder.WriteString(html.UnescapeString(answer))
	}

	hash := sha1.Sum([]byte(keyBuilder.String()))
	return "q_" + hex.EncodeToString(hash[:])[:12]
}
