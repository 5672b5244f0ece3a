package store

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	pkgerrors "github.com/pkg/errors"

	"elearning-quiz/internal/quiz"
)

// SaveSession stores a finished session with one row per answer and returns
// the new session id.
func (s *SQLiteStore) SaveSession(ctx context.Context, userID int64, record quiz.SessionRecord) (string, error) {
	if record.SessionType == "" || record.Genre == "" {
		return "", fmt.Errorf("%w: session_type and genre are required", ErrInvalid)
	}
	if record.TotalQuestions < len(record.Answers) {
		return "", fmt.Errorf("%w: %d answers for %d questions", ErrInvalid, len(record.Answers), record.TotalQuestions)
	}

	correct := 0
	for _, answer := range record.Answers {
		if answer.IsCorrect {
			correct++
		}
	}

	sessionID := uuid.NewString()
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(
		ctx,
		`INSERT INTO quiz_sessions (session_id, user_id, session_type, genre_id, total_questions, correct_count, created_at_unix)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		sessionID,
		userID,
		record.SessionType,
		record.Genre,
		record.TotalQuestions,
		correct,
		time.Now().UTC().UnixNano(),
	); err != nil {
		return "", pkgerrors.Wrap(err, "insert session")
	}

	for position, answer := range record.Answers {
		if _, err := tx.ExecContext(
			ctx,
			`INSERT INTO session_answers (session_id, position, question_id, selected_choice_id, is_correct) VALUES (?, ?, ?, ?, ?)`,
			sessionID,
			position,
			answer.QuestionID,
			answer.SelectedChoiceID,
			boolToInt(answer.IsCorrect),
		); err != nil {
			return "", pkgerrors.Wrapf(err, "insert answer %d", position)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", err
	}
	return sessionID, nil
}

// IncorrectQuestions returns questions whose most recent answer by the user
// was wrong, most recently answered first. An empty genreID covers all genres.
func (s *SQLiteStore) IncorrectQuestions(ctx context.Context, userID int64, genreID quiz.GenreID, count int) ([]quiz.Question, error) {
	rows, err := s.db.QueryContext(
		ctx,
		`SELECT a.question_id, a.is_correct
		 FROM session_answers a
		 JOIN quiz_sessions qs ON qs.session_id = a.session_id
		 WHERE qs.user_id = ?
		 ORDER BY qs.created_at_unix DESC, a.position DESC`,
		userID,
	)
	if err != nil {
		return nil, pkgerrors.Wrap(err, "query answer history")
	}

	seen := make(map[string]struct{})
	candidates := make([]string, 0)
	for rows.Next() {
		var questionID string
		var isCorrect int
		if err := rows.Scan(&questionID, &isCorrect); err != nil {
			rows.Close()
			return nil, err
		}
		if _, ok := seen[questionID]; ok {
			continue
		}
		seen[questionID] = struct{}{}
		if isCorrect == 0 {
			candidates = append(candidates, questionID)
		}
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return nil, err
	}
	rows.Close()

	byID, err := s.questionsByID(ctx, candidates)
	if err != nil {
		return nil, err
	}

	questions := make([]quiz.Question, 0, count)
	for _, id := range candidates {
		if len(questions) >= count {
			break
		}
		question, ok := byID[id]
		if !ok {
			continue
		}
		if genreID != "" && question.Genre != genreID {
			continue
		}
		questions = append(questions, question)
	}
	return questions, nil
}
