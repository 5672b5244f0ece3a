package server

import (
	"time"

	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/quiz"
	"elearning-quiz/internal/store"
)

type userResponse struct {
	ID         int64     `json:"id"`
	Email      string    `json:"email"`
	Username   string    `json:"username"`
	IsStaff    bool      `json:"is_staff"`
	DateJoined time.Time `json:"date_joined"`
}

func toUserResponse(user store.User) userResponse {
	return userResponse{
		ID:         user.ID,
		Email:      user.Email,
		Username:   user.Username,
		IsStaff:    user.IsStaff,
		DateJoined: user.CreatedAt,
	}
}

type authResponse struct {
	User   userResponse `json:"user"`
	Tokens auth.Tokens  `json:"tokens"`
}

type registerRequest struct {
	Email    string `json:"email"`
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type refreshRequest struct {
	Refresh string `json:"refresh"`
}

type refreshResponse struct {
	Access string `json:"access"`
}

type sessionCreatedResponse struct {
	ID string `json:"id"`
}

type bulkUpdateRequest struct {
	QuestionIDs []string            `json:"question_ids"`
	Updates     quiz.QuestionUpdate `json:"updates"`
}

type bulkUpdateResponse struct {
	Updated int `json:"updated"`
}

type healthResponse struct {
	Status string `json:"status"`
}

type errorResponse struct {
	Error string `json:"error"`
}
