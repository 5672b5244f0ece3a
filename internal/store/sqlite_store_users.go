package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"net/mail"
	"strings"
	"time"

	"github.com/mattn/go-sqlite3"
	pkgerrors "github.com/pkg/errors"
	"golang.org/x/crypto/bcrypt"
)

const minPasswordLength = 8

type User struct {
	ID        int64
	Email     string
	Username  string
	IsStaff   bool
	CreatedAt time.Time
}

type NewUser struct {
	Email    string
	Username string
	Password string
	IsStaff  bool
}

func (s *SQLiteStore) CreateUser(ctx context.Context, input NewUser) (User, error) {
	email := strings.ToLower(strings.TrimSpace(input.Email))
	if _, err := mail.ParseAddress(email); err != nil {
		return User{}, fmt.Errorf("%w: invalid email", ErrInvalid)
	}
	username := strings.TrimSpace(input.Username)
	if username == "" {
		username = strings.SplitN(email, "@", 2)[0]
	}
	if len(input.Password) < minPasswordLength {
		return User{}, fmt.Errorf("%w: password must be at least %d characters", ErrInvalid, minPasswordLength)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), s.passwordCost)
	if err != nil {
		return User{}, pkgerrors.Wrap(err, "hash password")
	}

	createdAt := time.Now().UTC()
	result, err := s.db.ExecContext(
		ctx,
		`INSERT INTO users (email, username, password_hash, is_staff, created_at_unix) VALUES (?, ?, ?, ?, ?)`,
		email,
		username,
		string(hash),
		boolToInt(input.IsStaff),
		createdAt.UnixNano(),
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.ExtendedCode == sqlite3.ErrConstraintUnique {
			return User{}, fmt.Errorf("%w: email %s", ErrConflict, email)
		}
		return User{}, pkgerrors.Wrap(err, "insert user")
	}

	id, err := result.LastInsertId()
	if err != nil {
		return User{}, err
	}
	return User{
		ID:        id,
		Email:     email,
		Username:  username,
		IsStaff:   input.IsStaff,
		CreatedAt: createdAt,
	}, nil
}

// Authenticate checks the password and returns ErrInvalidCredentials for an
// unknown email or a wrong password alike.
func (s *SQLiteStore) Authenticate(ctx context.Context, email, password string) (User, error) {
	user, hash, err := s.userByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return User{}, ErrInvalidCredentials
		}
		return User{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)); err != nil {
		return User{}, ErrInvalidCredentials
	}
	return user, nil
}

func (s *SQLiteStore) GetUser(ctx context.Context, userID int64) (User, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, email, username, is_staff, created_at_unix, password_hash FROM users WHERE user_id = ?`,
		userID,
	)
	user, _, err := scanUser(row)
	return user, err
}

func (s *SQLiteStore) userByEmail(ctx context.Context, email string) (User, string, error) {
	row := s.db.QueryRowContext(
		ctx,
		`SELECT user_id, email, username, is_staff, created_at_unix, password_hash FROM users WHERE email = ?`,
		email,
	)
	return scanUser(row)
}

func scanUser(row rowScanner) (User, string, error) {
	var user User
	var isStaff int
	var createdAtUnix int64
	var hash string
	if err := row.Scan(&user.ID, &user.Email, &user.Username, &isStaff, &createdAtUnix, &hash); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return User{}, "", ErrNotFound
		}
		return User{}, "", err
	}
	user.IsStaff = isStaff == 1
	user.CreatedAt = time.Unix(0, createdAtUnix).UTC()
	return user, hash, nil
}
