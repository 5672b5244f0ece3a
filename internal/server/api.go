package server

import (
	"context"

	"elearning-quiz/internal/quiz"
	"elearning-quiz/internal/store"
)

// Store is the persistence the API needs. *store.SQLiteStore satisfies it.
type Store interface {
	Ping(ctx context.Context) error
	ListGenres(ctx context.Context) ([]quiz.Genre, error)
	RandomQuestions(ctx context.Context, genreID quiz.GenreID, count int, difficulty quiz.Difficulty) ([]quiz.Question, error)
	RandomQuestionsFromAll(ctx context.Context, count int) ([]quiz.Question, error)
	IncorrectQuestions(ctx context.Context, userID int64, genreID quiz.GenreID, count int) ([]quiz.Question, error)
	SaveSession(ctx context.Context, userID int64, record quiz.SessionRecord) (string, error)
	CreateUser(ctx context.Context, input store.NewUser) (store.User, error)
	Authenticate(ctx context.Context, email, password string) (store.User, error)
	GetUser(ctx context.Context, userID int64) (store.User, error)
	BulkUpdateQuestions(ctx context.Context, questionIDs []string, update quiz.QuestionUpdate) (int, error)
}

type API struct {
	store  Store
	tokens *TokenIssuer
}

func NewAPI(store Store, tokens *TokenIssuer) *API {
	return &API{
		store:  store,
		tokens: tokens,
	}
}
