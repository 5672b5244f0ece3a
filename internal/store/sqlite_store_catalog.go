package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"
	pkgerrors "github.com/pkg/errors"

	"elearning-quiz/internal/quiz"
)

var ErrInvalid = errors.New("invalid input")

const questionColumns = `question_id, genre_id, difficulty, title, body, clarification, reviewed_at_unix`

// Catalog is the seed format: genres plus their questions and choices.
type Catalog struct {
	Genres    []quiz.Genre    `json:"genres"`
	Questions []quiz.Question `json:"questions"`
}

func LoadCatalog(r io.Reader) (Catalog, error) {
	var catalog Catalog
	if err := json.NewDecoder(r).Decode(&catalog); err != nil {
		return Catalog{}, pkgerrors.Wrap(err, "decode catalog")
	}
	return catalog, nil
}

func (s *SQLiteStore) ListGenres(ctx context.Context) ([]quiz.Genre, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT g.genre_id, g.name, g.description, COUNT(q.question_id)
		 FROM genres g
		 LEFT JOIN questions q ON q.genre_id = g.genre_id AND q.is_active = 1
		 GROUP BY g.genre_id, g.name, g.description
		 ORDER BY g.genre_id`,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "list genres")
	}
	defer rows.Close()

	genres := make([]quiz.Genre, 0)
	for rows.Next() {
		var genre quiz.Genre
		if err := rows.Scan(&genre.ID, &genre.Name, &genre.Description, &genre.QuestionCount); err != nil {
			return nil, err
		}
		genres = append(genres, genre)
	}
	return genres, rows.Err()
}

func (s *SQLiteStore) GenreExists(ctx context.Context, genreID quiz.GenreID) (bool, error) {
	var found int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM genres WHERE genre_id = ? LIMIT 1`, string(genreID)).Scan(&found)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// RandomQuestions returns up to count active questions of a genre in random
// order. A zero difficulty matches every band.
func (s *SQLiteStore) RandomQuestions(ctx context.Context, genreID quiz.GenreID, count int, difficulty quiz.Difficulty) ([]quiz.Question, error) {
	query := `SELECT ` + questionColumns + ` FROM questions WHERE is_active = 1 AND genre_id = ?`
	args := []any{string(genreID)}
	if difficulty.Valid() {
		query += ` AND difficulty = ?`
		args = append(args, int(difficulty))
	}
	query += ` ORDER BY RANDOM() LIMIT ?`
	args = append(args, count)

	return s.queryQuestions(ctx, query, args...)
}

func (s *SQLiteStore) RandomQuestionsFromAll(ctx context.Context, count int) ([]quiz.Question, error) {
	return s.queryQuestions(
		ctx,
		`SELECT `+questionColumns+` FROM questions WHERE is_active = 1 ORDER BY RANDOM() LIMIT ?`,
		count,
	)
}

// questionsByID loads active questions with their choices, keyed by id.
func (s *SQLiteStore) questionsByID(ctx context.Context, ids []string) (map[string]quiz.Question, error) {
	byID := make(map[string]quiz.Question, len(ids))
	if len(ids) == 0 {
		return byID, nil
	}

	questions, err := s.queryQuestions(
		ctx,
		`SELECT `+questionColumns+` FROM questions WHERE is_active = 1 AND question_id IN (`+placeholders(len(ids))+`)`,
		stringArgs(ids)...,
	)
	if err != nil {
		return nil, err
	}
	for _, question := range questions {
		byID[question.ID] = question
	}
	return byID, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanQuestion(row rowScanner) (quiz.Question, error) {
	var question quiz.Question
	var difficulty int
	var reviewedAtUnix sql.NullInt64
	if err := row.Scan(
		&question.ID,
		&question.Genre,
		&difficulty,
		&question.Title,
		&question.Body,
		&question.Clarification,
		&reviewedAtUnix,
	); err != nil {
		return quiz.Question{}, err
	}

	question.Difficulty = quiz.Difficulty(difficulty)
	if reviewedAtUnix.Valid {
		reviewedAt := time.Unix(0, reviewedAtUnix.Int64).UTC()
		question.ReviewedAt = &reviewedAt
	}
	return question, nil
}

func (s *SQLiteStore) queryQuestions(ctx context.Context, query string, args ...any) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query questions")
	}

	questions := make([]quiz.Question, 0)
	for rows.Next() {
		question, err := scanQuestion(rows)
		if err != nil {
			rows.Close()
			return nil, err
		}
		questions = append(questions, question)
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	if err := s.attachChoices(ctx, questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (s *SQLiteStore) attachChoices(ctx context.Context, questions []quiz.Question) error {
	if len(questions) == 0 {
		return nil
	}

	ids := make([]string, len(questions))
	for i, question := range questions {
		ids[i] = question.ID
	}

	rows, err := s.db.QueryContext(
		ctx,
		`SELECT question_id, choice_id, content, is_correct, order_index
		 FROM choices
		 WHERE question_id IN (`+placeholders(len(ids))+`)
		 ORDER BY question_id, order_index, rowid`,
		stringArgs(ids)...,
	)
	if err != nil {
		return pkgerrors.Wrap(err, "query choices")
	}
	defer rows.Close()

	byQuestion := make(map[string][]quiz.Choice, len(questions))
	for rows.Next() {
		var questionID string
		var choice quiz.Choice
		var isCorrect int
		if err := rows.Scan(&questionID, &choice.ID, &choice.Content, &isCorrect, &choice.OrderIndex); err != nil {
			return err
		}
		choice.IsCorrect = isCorrect == 1
		byQuestion[questionID] = append(byQuestion[questionID], choice)
	}
	if err := rows.Err(); err != nil {
		return err
	}

	for i := range questions {
		questions[i].Choices = byQuestion[questions[i].ID]
		if questions[i].Choices == nil {
			questions[i].Choices = []quiz.Choice{}
		}
	}
	return nil
}

// ImportCatalog upserts genres and questions. A question without an id takes
// the id of a stored question with the same genre and title, or else the next
// QFB number. Choices are replaced wholesale.
func (s *SQLiteStore) ImportCatalog(ctx context.Context, catalog Catalog) (int, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	for _, genre := range catalog.Genres {
		if strings.TrimSpace(string(genre.ID)) == "" || strings.TrimSpace(genre.Name) == "" {
			return 0, fmt.Errorf("%w: genre id and name are required", ErrInvalid)
		}
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO genres (genre_id, name, description) VALUES (?, ?, ?)
			 ON CONFLICT(genre_id) DO UPDATE SET name = excluded.name, description = excluded.description`,
			string(genre.ID),
			genre.Name,
			genre.Description,
		); err != nil {
			return 0, pkgerrors.Wrapf(err, "upsert genre %s", genre.ID)
		}
	}

	nextNumber, err := nextQuestionNumber(ctx, tx)
	if err != nil {
		return 0, err
	}

	now := time.Now().UTC().UnixNano()
	for _, question := range catalog.Questions {
		if err := validateQuestion(question); err != nil {
			return 0, err
		}
		if question.ID == "" {
			existingID, err := questionIDByTitle(ctx, tx, question.Genre, question.Title)
			if err != nil {
				return 0, err
			}
			if existingID != "" {
				question.ID = existingID
			} else {
				question.ID = fmt.Sprintf("QFB%05d", nextNumber)
				nextNumber++
			}
		}

		var reviewedAt any
		if question.ReviewedAt != nil {
			reviewedAt = question.ReviewedAt.UTC().UnixNano()
		}

		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO questions (question_id, genre_id, difficulty, title, body, clarification, is_active, reviewed_at_unix, created_at_unix)
			 VALUES (?, ?, ?, ?, ?, ?, 1, ?, ?)
			 ON CONFLICT(question_id) DO UPDATE SET
				genre_id = excluded.genre_id,
				difficulty = excluded.difficulty,
				title = excluded.title,
				body = excluded.body,
				clarification = excluded.clarification,
				is_active = 1,
				reviewed_at_unix = excluded.reviewed_at_unix`,
			question.ID,
			string(question.Genre),
			int(question.Difficulty),
			question.Title,
			question.Body,
			question.Clarification,
			reviewedAt,
			now,
		); err != nil {
			return 0, pkgerrors.Wrapf(err, "upsert question %s", question.ID)
		}

		if _, err := tx.ExecContext(ctx, `DELETE FROM choices WHERE question_id = ?`, question.ID); err != nil {
			return 0, err
		}
		positional := !hasOrderIndex(question.Choices)
		for idx, choice := range question.Choices {
			if choice.ID == "" {
				choice.ID = fmt.Sprintf("%s-%d", question.ID, idx+1)
			}
			orderIndex := choice.OrderIndex
			if positional {
				orderIndex = idx
			}
			if _, err := tx.ExecContext(
				ctx,
				`INSERT INTO choices (choice_id, question_id, content, is_correct, order_index) VALUES (?, ?, ?, ?, ?)`,
				choice.ID,
				question.ID,
				choice.Content,
				boolToInt(choice.IsCorrect),
				orderIndex,
			); err != nil {
				return 0, pkgerrors.Wrapf(err, "insert choice %s", choice.ID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return 0, err
	}
	glog.Infof("imported %d genres and %d questions", len(catalog.Genres), len(catalog.Questions))
	return len(catalog.Questions), nil
}

// hasOrderIndex reports whether the catalog set any order_index. When none
// is set the slice order is used.
func hasOrderIndex(choices []quiz.Choice) bool {
	for _, choice := range choices {
		if choice.OrderIndex != 0 {
			return true
		}
	}
	return false
}

// questionIDByTitle finds a stored question with the same genre and title so
// id-less catalog entries update it instead of being added again.
func questionIDByTitle(ctx context.Context, tx *sql.Tx, genreID quiz.GenreID, title string) (string, error) {
	var questionID string
	err := tx.QueryRowContext(
		ctx,
		`SELECT question_id FROM questions WHERE genre_id = ? AND title = ? ORDER BY question_id LIMIT 1`,
		string(genreID),
		title,
	).Scan(&questionID)
	if errors.Is(err, sql.ErrNoRows) {
		return "", nil
	}
	if err != nil {
		return "", pkgerrors.Wrap(err, "look up question by title")
	}
	return questionID, nil
}

func validateQuestion(question quiz.Question) error {
	if strings.TrimSpace(question.Title) == "" {
		return fmt.Errorf("%w: question %q has no title", ErrInvalid, question.ID)
	}
	if question.Genre == "" {
		return fmt.Errorf("%w: question %q has no genre", ErrInvalid, question.ID)
	}
	if !question.Difficulty.Valid() {
		return fmt.Errorf("%w: question %q has difficulty %d", ErrInvalid, question.ID, question.Difficulty)
	}
	if len(question.CorrectChoices()) == 0 {
		return fmt.Errorf("%w: question %q has no correct choice", ErrInvalid, question.ID)
	}
	return nil
}

func nextQuestionNumber(ctx context.Context, tx *sql.Tx) (int, error) {
	var lastID string
	err := tx.QueryRowContext(
		ctx,
		`SELECT question_id FROM questions WHERE question_id LIKE 'QFB%' ORDER BY question_id DESC LIMIT 1`,
	).Scan(&lastID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 1, nil
		}
		return 0, err
	}

	number, err := strconv.Atoi(strings.TrimPrefix(lastID, "QFB"))
	if err != nil {
		return 1, nil
	}
	return number + 1, nil
}

// BulkUpdateQuestions applies update to every listed question and returns how
// many were changed.
func (s *SQLiteStore) BulkUpdateQuestions(ctx context.Context, questionIDs []string, update quiz.QuestionUpdate) (int, error) {
	if len(questionIDs) == 0 {
		return 0, fmt.Errorf("%w: no question ids", ErrInvalid)
	}
	if err := update.Validate(); err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalid, err)
	}
	if update.Genre != nil {
		exists, err := s.GenreExists(ctx, *update.Genre)
		if err != nil {
			return 0, err
		}
		if !exists {
			return 0, fmt.Errorf("%w: genre %s", ErrNotFound, *update.Genre)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, err
	}
	defer tx.Rollback()

	updated := 0
	for _, id := range questionIDs {
		question := quiz.Question{ID: id}
		var difficulty int
		var reviewedAtUnix sql.NullInt64
		err := tx.QueryRowContext(
			ctx,
			`SELECT genre_id, difficulty, reviewed_at_unix FROM questions WHERE question_id = ?`,
			id,
		).Scan(&question.Genre, &difficulty, &reviewedAtUnix)
		if err != nil {
			if errors.Is(err, sql.ErrNoRows) {
				continue
			}
			return 0, err
		}
		question.Difficulty = quiz.Difficulty(difficulty)
		if reviewedAtUnix.Valid {
			reviewedAt := time.Unix(0, reviewedAtUnix.Int64).UTC()
			question.ReviewedAt = &reviewedAt
		}

		update.Apply(&question)

		var reviewedAt any
		if question.ReviewedAt != nil {
			reviewedAt = question.ReviewedAt.UTC().UnixNano()
		}
		if _, err := tx.ExecContext(
			ctx,
			`UPDATE questions SET genre_id = ?, difficulty = ?, reviewed_at_unix = ? WHERE question_id = ?`,
			string(question.Genre),
			int(question.Difficulty),
			reviewedAt,
			id,
		); err != nil {
			return 0, pkgerrors.Wrapf(err, "update question %s", id)
		}
		updated++
	}

	if updated == 0 {
		return 0, fmt.Errorf("%w: none of the questions exist", ErrNotFound)
	}
	if err := tx.Commit(); err != nil {
		return 0, err
	}
	return updated, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
