package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/golang/glog"

	"elearning-quiz/internal/quiz"
)

const (
	GenreQuestionCount     = 10
	FallbackQuestionCount  = 20
	ReviewQuestionCount    = 10
	RandomAllQuestionCount = 30

	defaultSaveTimeout = 5 * time.Second
)

var (
	ErrBusy            = errors.New("a session is already loading")
	ErrFetchFailed     = errors.New("failed to fetch questions")
	ErrNothingToReview = errors.New("no incorrectly answered questions to review yet")
	ErrNoQuestions     = errors.New("no questions available")
	ErrNoPendingAnswer = errors.New("no answer awaiting confirmation")
	ErrNoSession       = errors.New("no session to restart")
)

type State int

const (
	StateIdle State = iota
	StateLoading
	StateActive
	StateCompleted
	StateError
)

func (s State) String() string {
	switch s {
	case StateLoading:
		return "loading"
	case StateActive:
		return "active"
	case StateCompleted:
		return "completed"
	case StateError:
		return "error"
	default:
		return "idle"
	}
}

// Catalog is the read side of the quiz API.
type Catalog interface {
	ListGenres(ctx context.Context) ([]quiz.Genre, error)
	// GetRandomQuestions returns up to count questions; difficulty 0 means
	// any band.
	GetRandomQuestions(ctx context.Context, genreID quiz.GenreID, count int, difficulty quiz.Difficulty) ([]quiz.Question, error)
	// GetIncorrectQuestions returns the user's wrongly answered questions;
	// an empty genreID covers all genres.
	GetIncorrectQuestions(ctx context.Context, genreID quiz.GenreID, count int) ([]quiz.Question, error)
	GetRandomQuestionsFromAll(ctx context.Context, count int) ([]quiz.Question, error)
}

// Gateway stores finished sessions. Calls are best-effort.
type Gateway interface {
	SaveSession(ctx context.Context, record quiz.SessionRecord) error
}

type QuizSession struct {
	SelectedGenre        *quiz.Genre
	Questions            []quiz.Question
	CurrentQuestionIndex int
	Answers              []quiz.Answer
	IsCompleted          bool
}

// CurrentQuestion returns the question awaiting an answer.
func (s QuizSession) CurrentQuestion() (quiz.Question, bool) {
	if s.IsCompleted || s.CurrentQuestionIndex < 0 || s.CurrentQuestionIndex >= len(s.Questions) {
		return quiz.Question{}, false
	}
	return s.Questions[s.CurrentQuestionIndex], true
}

type Config struct {
	SaveTimeout time.Duration
	Now         func() time.Time
}

type startRequest struct {
	mode   quiz.SessionMode
	genre  quiz.Genre
	filter quiz.DifficultyFilter
}

// Machine drives one quiz session at a time. Its methods are safe for
// concurrent use; the lock is never held across catalog calls.
type Machine struct {
	catalog     Catalog
	gateway     Gateway
	saveTimeout time.Duration
	now         func() time.Time

	mu        sync.Mutex
	state     State
	last      *startRequest
	session   QuizSession
	pending   *quiz.Answer
	startedAt time.Time
	notice    string
	err       error

	saves sync.WaitGroup
}

func NewMachine(catalog Catalog, gateway Gateway, cfg Config) *Machine {
	saveTimeout := cfg.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Machine{
		catalog:     catalog,
		gateway:     gateway,
		saveTimeout: saveTimeout,
		now:         now,
	}
}

func (m *Machine) StartGenreSession(ctx context.Context, genre quiz.Genre, filter quiz.DifficultyFilter) error {
	return m.start(ctx, startRequest{mode: quiz.ModeGenreQuiz, genre: genre, filter: filter})
}

func (m *Machine) StartIncorrectReview(ctx context.Context) error {
	return m.start(ctx, startRequest{
		mode:  quiz.ModeIncorrectReview,
		genre: quiz.Genre{ID: quiz.IncorrectReviewGenreID, Name: "incorrect review"},
	})
}

func (m *Machine) StartRandomAll(ctx context.Context) error {
	return m.start(ctx, startRequest{
		mode:  quiz.ModeRandomAll,
		genre: quiz.Genre{ID: quiz.RandomAllGenreID, Name: "random all"},
	})
}

// Restart re-runs the start that produced the current session, including
// one that ended in the error state.
func (m *Machine) Restart(ctx context.Context) error {
	m.mu.Lock()
	if m.state == StateLoading {
		m.mu.Unlock()
		return ErrBusy
	}
	if m.last == nil {
		m.mu.Unlock()
		return ErrNoSession
	}
	req := *m.last
	m.mu.Unlock()

	return m.start(ctx, req)
}

func (m *Machine) start(ctx context.Context, req startRequest) error {
	m.mu.Lock()
	if m.state == StateLoading {
		m.mu.Unlock()
		return ErrBusy
	}
	m.resetLocked()
	m.state = StateLoading
	m.last = &req
	m.mu.Unlock()

	questions, err := m.fetch(ctx, req)

	m.mu.Lock()
	defer m.mu.Unlock()

	if err != nil {
		m.state = StateError
		m.err = fmt.Errorf("%w: %w", ErrFetchFailed, err)
		return m.err
	}

	if len(questions) == 0 {
		benign := ErrNoQuestions
		if req.mode == quiz.ModeIncorrectReview {
			benign = ErrNothingToReview
		}
		m.state = StateIdle
		m.notice = benign.Error()
		return benign
	}

	genre := req.genre
	m.session = QuizSession{
		SelectedGenre: &genre,
		Questions:     questions,
		Answers:       make([]quiz.Answer, 0, len(questions)),
	}
	m.startedAt = m.now()
	m.state = StateActive
	glog.V(2).Infof("started %s session for genre %s with %d questions", req.mode, genre.ID, len(questions))
	return nil
}

func (m *Machine) fetch(ctx context.Context, req startRequest) ([]quiz.Question, error) {
	switch req.mode {
	case quiz.ModeIncorrectReview:
		return m.catalog.GetIncorrectQuestions(ctx, "", ReviewQuestionCount)
	case quiz.ModeRandomAll:
		return m.catalog.GetRandomQuestionsFromAll(ctx, RandomAllQuestionCount)
	default:
		return m.fetchGenre(ctx, req.genre.ID, req.filter)
	}
}

// fetchGenre applies composite filters on the client: one unfiltered batch,
// then a larger one if too few questions qualified. Duplicates across the two
// batches are kept.
func (m *Machine) fetchGenre(ctx context.Context, genreID quiz.GenreID, filter quiz.DifficultyFilter) ([]quiz.Question, error) {
	if !filter.Composite() {
		return m.catalog.GetRandomQuestions(ctx, genreID, GenreQuestionCount, filter.Difficulty())
	}

	first, err := m.catalog.GetRandomQuestions(ctx, genreID, GenreQuestionCount, 0)
	if err != nil {
		return nil, err
	}
	questions := filter.Keep(first)
	if len(questions) >= GenreQuestionCount {
		return questions[:GenreQuestionCount], nil
	}

	more, err := m.catalog.GetRandomQuestions(ctx, genreID, FallbackQuestionCount, 0)
	if err != nil {
		return nil, err
	}
	questions = append(questions, filter.Keep(more)...)
	if len(questions) > GenreQuestionCount {
		questions = questions[:GenreQuestionCount]
	}
	return questions, nil
}

// SubmitAnswer evaluates selected against the current question and holds the
// answer for reveal. It returns false without changing anything when there is
// no active question, a reveal is already pending, or nothing was selected.
func (m *Machine) SubmitAnswer(selected []string) (quiz.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive || m.pending != nil || !quiz.HasSelection(selected) {
		return quiz.Answer{}, false
	}
	question, ok := m.session.CurrentQuestion()
	if !ok {
		return quiz.Answer{}, false
	}

	answer := quiz.NewAnswer(question, selected)
	m.pending = &answer
	return answer, true
}

// Advance commits the pending answer. After the last question the session is
// completed and, for genre sessions, saved in the background.
func (m *Machine) Advance() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateActive || m.pending == nil {
		return ErrNoPendingAnswer
	}

	m.session.Answers = append(m.session.Answers, *m.pending)
	m.pending = nil
	m.session.CurrentQuestionIndex++

	if m.session.CurrentQuestionIndex < len(m.session.Questions) {
		return nil
	}

	if record, ok := m.recordLocked(); ok {
		m.saveAsync(record)
	}
	m.session.IsCompleted = true
	m.state = StateCompleted
	return nil
}

func (m *Machine) recordLocked() (quiz.SessionRecord, bool) {
	if m.last == nil || m.last.mode != quiz.ModeGenreQuiz {
		return quiz.SessionRecord{}, false
	}
	if m.session.SelectedGenre == nil || m.startedAt.IsZero() {
		return quiz.SessionRecord{}, false
	}

	answers := make([]quiz.Answer, len(m.session.Answers))
	copy(answers, m.session.Answers)
	return quiz.NewSessionRecord(m.session.SelectedGenre.ID, len(m.session.Questions), answers), true
}

func (m *Machine) saveAsync(record quiz.SessionRecord) {
	if m.gateway == nil {
		return
	}

	m.saves.Add(1)
	go func() {
		defer m.saves.Done()
		ctx, cancel := context.WithTimeout(context.Background(), m.saveTimeout)
		defer cancel()

		if err := m.gateway.SaveSession(ctx, record); err != nil {
			glog.Errorf("error saving quiz session for genre %s: %v", record.Genre, err)
			return
		}
		glog.V(2).Infof("saved quiz session for genre %s (%d questions)", record.Genre, record.TotalQuestions)
	}()
}

// SelectNewGenre discards the session and returns to idle. It is ignored
// while a start is loading.
func (m *Machine) SelectNewGenre() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state == StateLoading {
		return
	}
	m.resetLocked()
	m.last = nil
	m.state = StateIdle
}

// DismissError leaves the error state. The failed start is remembered so
// Restart can retry it.
func (m *Machine) DismissError() {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateError {
		return
	}
	m.resetLocked()
	m.state = StateIdle
}

func (m *Machine) resetLocked() {
	m.session = QuizSession{}
	m.pending = nil
	m.startedAt = time.Time{}
	m.notice = ""
	m.err = nil
}

func (m *Machine) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

// Snapshot returns a copy of the session safe to read without the lock.
func (m *Machine) Snapshot() QuizSession {
	m.mu.Lock()
	defer m.mu.Unlock()

	snapshot := m.session
	if m.session.SelectedGenre != nil {
		genre := *m.session.SelectedGenre
		snapshot.SelectedGenre = &genre
	}
	snapshot.Questions = append([]quiz.Question(nil), m.session.Questions...)
	snapshot.Answers = append([]quiz.Answer(nil), m.session.Answers...)
	return snapshot
}

// Pending returns the answer waiting to be committed by Advance.
func (m *Machine) Pending() (quiz.Answer, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.pending == nil {
		return quiz.Answer{}, false
	}
	return *m.pending, true
}

func (m *Machine) Mode() quiz.SessionMode {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		return quiz.ModeGenreQuiz
	}
	return m.last.mode
}

// Filter returns the difficulty filter of the current genre session.
func (m *Machine) Filter() quiz.DifficultyFilter {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.last == nil {
		return quiz.AnyDifficulty
	}
	return m.last.filter
}

// Notice is the message left by a start that found nothing to play.
func (m *Machine) Notice() string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

func (m *Machine) Err() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.err
}

// Summary is available once the session is completed.
func (m *Machine) Summary() (quiz.Summary, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCompleted {
		return quiz.Summary{}, false
	}
	return quiz.Summarize(m.session.Answers), true
}

func (m *Machine) Details() []quiz.AnswerDetail {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.state != StateCompleted {
		return nil
	}
	return quiz.Details(m.session.Questions, m.session.Answers)
}

// Wait blocks until background saves have finished.
func (m *Machine) Wait() {
	m.saves.Wait()
}
