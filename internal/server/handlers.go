package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/golang/glog"

	"elearning-quiz/internal/quiz"
)

const (
	defaultQuestionCount  = 10
	defaultRandomAllCount = 30
	maxQuestionCount      = 100
)

func (a *API) HandleHealth(w http.ResponseWriter, r *http.Request) {
	if err := a.store.Ping(r.Context()); err != nil {
		glog.Errorf("health check failed: %v", err)
		writeJSON(w, http.StatusServiceUnavailable, healthResponse{Status: "unavailable"})
		return
	}
	writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
}

func (a *API) HandleGenres(w http.ResponseWriter, r *http.Request) {
	genres, err := a.store.ListGenres(r.Context())
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, genres)
}

func (a *API) HandleRandomQuestions(w http.ResponseWriter, r *http.Request) {
	genreID := quiz.GenreID(strings.TrimSpace(r.URL.Query().Get("genre")))
	if genreID == "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "genre is required"})
		return
	}
	count, err := parseIntParam(r, "count", defaultQuestionCount, maxQuestionCount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}
	difficulty, err := parseDifficultyParam(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions, err := a.store.RandomQuestions(r.Context(), genreID, count, difficulty)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) HandleIncorrectQuestions(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	genreID := quiz.GenreID(strings.TrimSpace(r.URL.Query().Get("genre")))
	count, err := parseIntParam(r, "count", defaultQuestionCount, maxQuestionCount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions, err := a.store.IncorrectQuestions(r.Context(), userID, genreID, count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) HandleRandomAll(w http.ResponseWriter, r *http.Request) {
	count, err := parseIntParam(r, "count", defaultRandomAllCount, maxQuestionCount)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	questions, err := a.store.RandomQuestionsFromAll(r.Context(), count)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, questions)
}

func (a *API) HandleSaveSession(w http.ResponseWriter, r *http.Request) {
	userID, _ := userIDFrom(r.Context())
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	problems, err := validateBody(sessionSchema, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}
	if problems != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: problems})
		return
	}

	var record quiz.SessionRecord
	if err := json.Unmarshal(body, &record); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	sessionID, err := a.store.SaveSession(r.Context(), userID, record)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	glog.V(2).Infof("user %d saved session %s (%d answers)", userID, sessionID, len(record.Answers))
	writeJSON(w, http.StatusCreated, sessionCreatedResponse{ID: sessionID})
}

func (a *API) HandleBulkUpdateQuestions(w http.ResponseWriter, r *http.Request) {
	body, err := readBody(r)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: err.Error()})
		return
	}

	problems, err := validateBody(bulkUpdateSchema, body)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}
	if problems != "" {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: problems})
		return
	}

	var request bulkUpdateRequest
	if err := json.Unmarshal(body, &request); err != nil {
		writeJSON(w, http.StatusBadRequest, errorResponse{Error: "invalid JSON payload"})
		return
	}

	updated, err := a.store.BulkUpdateQuestions(r.Context(), request.QuestionIDs, request.Updates)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, bulkUpdateResponse{Updated: updated})
}
