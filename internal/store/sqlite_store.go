package store

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/golang/glog"
	_ "github.com/mattn/go-sqlite3"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

var (
	ErrNotFound           = errors.New("not found")
	ErrConflict           = errors.New("already exists")
	ErrInvalidCredentials = errors.New("invalid email or password")
)

type SQLiteStore struct {
	db           *sql.DB
	passwordCost int
}

func NewSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		path = "quiz.db"
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, pkgerrors.Wrapf(err, "open sqlite database %s", path)
	}

	db.SetMaxOpenConns(1)

	if _, err := db.Exec(`PRAGMA busy_timeout = 5000;`); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "set busy timeout")
	}

	store := &SQLiteStore{db: db, passwordCost: bcrypt.DefaultCost}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, pkgerrors.Wrap(err, "init schema")
	}

	glog.V(1).Infof("opened sqlite store at %s", path)
	return store, nil
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// Ping reports whether the database is reachable.
func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func placeholders(n int) string {
	if n <= 0 {
		return ""
	}
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}

func stringArgs(values []string) []any {
	args := make([]any, len(values))
	for i, value := range values {
		args[i] = value
	}
	return args
}
