package store

import (
	"context"
)

func (s *SQLiteStore) initSchema(ctx context.Context) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS genres (
			genre_id TEXT PRIMARY KEY,
			name TEXT NOT NULL,
			description TEXT NOT NULL DEFAULT ''
		);`,
		`CREATE TABLE IF NOT EXISTS questions (
			question_id TEXT PRIMARY KEY,
			genre_id TEXT NOT NULL,
			difficulty INTEGER NOT NULL,
			title TEXT NOT NULL,
			body TEXT NOT NULL DEFAULT '',
			clarification TEXT NOT NULL DEFAULT '',
			is_active INTEGER NOT NULL DEFAULT 1,
			reviewed_at_unix INTEGER,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS choices (
			choice_id TEXT PRIMARY KEY,
			question_id TEXT NOT NULL,
			content TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			order_index INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS users (
			user_id INTEGER PRIMARY KEY AUTOINCREMENT,
			email TEXT NOT NULL UNIQUE,
			username TEXT NOT NULL,
			password_hash TEXT NOT NULL,
			is_staff INTEGER NOT NULL DEFAULT 0,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS quiz_sessions (
			session_id TEXT PRIMARY KEY,
			user_id INTEGER NOT NULL,
			session_type TEXT NOT NULL,
			genre_id TEXT NOT NULL,
			total_questions INTEGER NOT NULL,
			correct_count INTEGER NOT NULL,
			created_at_unix INTEGER NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS session_answers (
			session_id TEXT NOT NULL,
			position INTEGER NOT NULL,
			question_id TEXT NOT NULL,
			selected_choice_id TEXT NOT NULL,
			is_correct INTEGER NOT NULL,
			PRIMARY KEY (session_id, position)
		);`,
		`CREATE INDEX IF NOT EXISTS idx_questions_genre ON questions(genre_id, is_active, difficulty);`,
		`CREATE INDEX IF NOT EXISTS idx_choices_question ON choices(question_id, order_index);`,
		`CREATE INDEX IF NOT EXISTS idx_sessions_user_created ON quiz_sessions(user_id, created_at_unix DESC);`,
	}

	for _, stmt := range statements {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return err
		}
	}
	return nil
}
