package session

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"elearning-quiz/internal/quiz"
)

type randomCall struct {
	genreID    quiz.GenreID
	count      int
	difficulty quiz.Difficulty
}

type fakeCatalog struct {
	mu sync.Mutex

	randomBatches [][]quiz.Question
	randomErr     error
	incorrect     []quiz.Question
	randomAll     []quiz.Question

	randomCalls    []randomCall
	incorrectCalls int
	randomAllCalls int

	block   chan struct{}
	entered chan struct{}
}

func (f *fakeCatalog) ListGenres(context.Context) ([]quiz.Genre, error) {
	return []quiz.Genre{{ID: "g01", Name: "Go"}}, nil
}

func (f *fakeCatalog) GetRandomQuestions(_ context.Context, genreID quiz.GenreID, count int, difficulty quiz.Difficulty) ([]quiz.Question, error) {
	if f.entered != nil {
		f.entered <- struct{}{}
	}
	if f.block != nil {
		<-f.block
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	f.randomCalls = append(f.randomCalls, randomCall{genreID: genreID, count: count, difficulty: difficulty})
	if f.randomErr != nil {
		return nil, f.randomErr
	}
	if len(f.randomBatches) == 0 {
		return nil, nil
	}
	batch := f.randomBatches[0]
	f.randomBatches = f.randomBatches[1:]
	return batch, nil
}

func (f *fakeCatalog) GetIncorrectQuestions(context.Context, quiz.GenreID, int) ([]quiz.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.incorrectCalls++
	return f.incorrect, nil
}

func (f *fakeCatalog) GetRandomQuestionsFromAll(context.Context, int) ([]quiz.Question, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.randomAllCalls++
	return f.randomAll, nil
}

type fakeGateway struct {
	mu      sync.Mutex
	records []quiz.SessionRecord
	err     error
}

func (f *fakeGateway) SaveSession(_ context.Context, record quiz.SessionRecord) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.records = append(f.records, record)
	return f.err
}

func (f *fakeGateway) saved() []quiz.SessionRecord {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]quiz.SessionRecord(nil), f.records...)
}

func makeQuestion(id string, difficulty quiz.Difficulty) quiz.Question {
	return quiz.Question{
		ID:         id,
		Genre:      "g01",
		Title:      "question " + id,
		Difficulty: difficulty,
		Choices: []quiz.Choice{
			{ID: id + "-a", Content: "right", IsCorrect: true},
			{ID: id + "-b", Content: "wrong"},
		},
	}
}

func makeQuestions(prefix string, n int, difficulty quiz.Difficulty) []quiz.Question {
	questions := make([]quiz.Question, n)
	for i := range questions {
		questions[i] = makeQuestion(fmt.Sprintf("%s%02d", prefix, i), difficulty)
	}
	return questions
}

var goGenre = quiz.Genre{ID: "g01", Name: "Go"}

func TestGenreSessionEndToEnd(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{{
		makeQuestion("q1", quiz.Beginner),
		makeQuestion("q2", quiz.Beginner),
	}}}
	gateway := &fakeGateway{}
	machine := NewMachine(catalog, gateway, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty))
	assert.Equal(t, StateActive, machine.State())
	require.Len(t, catalog.randomCalls, 1)
	assert.Equal(t, randomCall{genreID: "g01", count: GenreQuestionCount}, catalog.randomCalls[0])

	answer, ok := machine.SubmitAnswer([]string{"q1-a"})
	require.True(t, ok)
	assert.True(t, answer.IsCorrect)
	assert.Equal(t, 0, len(machine.Snapshot().Answers))

	_, ok = machine.SubmitAnswer([]string{"q1-b"})
	assert.False(t, ok, "second submit while reveal is pending must be ignored")

	require.NoError(t, machine.Advance())
	snapshot := machine.Snapshot()
	assert.Equal(t, 1, snapshot.CurrentQuestionIndex)
	assert.Len(t, snapshot.Answers, snapshot.CurrentQuestionIndex)

	answer, ok = machine.SubmitAnswer([]string{"q2-b"})
	require.True(t, ok)
	assert.False(t, answer.IsCorrect)
	require.NoError(t, machine.Advance())

	assert.Equal(t, StateCompleted, machine.State())
	snapshot = machine.Snapshot()
	assert.True(t, snapshot.IsCompleted)
	assert.Len(t, snapshot.Answers, len(snapshot.Questions))

	summary, ok := machine.Summary()
	require.True(t, ok)
	assert.Equal(t, 1, summary.Correct)
	assert.Equal(t, 2, summary.Total)
	assert.Equal(t, 50, summary.Percentage)

	_, ok = machine.SubmitAnswer([]string{"q2-a"})
	assert.False(t, ok, "submissions after completion are rejected")
	assert.ErrorIs(t, machine.Advance(), ErrNoPendingAnswer)

	machine.Wait()
	records := gateway.saved()
	require.Len(t, records, 1)
	assert.Equal(t, quiz.SessionTypeGenre, records[0].SessionType)
	assert.Equal(t, "g01", records[0].Genre)
	assert.Equal(t, 2, records[0].TotalQuestions)
	require.Len(t, records[0].Answers, 2)
	assert.Equal(t, "q2-b", records[0].Answers[1].SelectedChoiceID)

	details := machine.Details()
	require.Len(t, details, 2)
	assert.Equal(t, "q2", details[1].Question.ID)
}

func TestSubmitAnswerRequiresSelection(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{{makeQuestion("q1", quiz.Beginner)}}}
	machine := NewMachine(catalog, nil, Config{})

	_, ok := machine.SubmitAnswer([]string{"q1-a"})
	assert.False(t, ok, "idle machine must reject submissions")

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty))
	_, ok = machine.SubmitAnswer(nil)
	assert.False(t, ok)
	_, ok = machine.SubmitAnswer([]string{" "})
	assert.False(t, ok)

	_, pending := machine.Pending()
	assert.False(t, pending)
}

func TestIntermediateAdvancedFallsBackToLargerFetch(t *testing.T) {
	first := append(makeQuestions("a", 3, quiz.Advanced), makeQuestions("b", 7, quiz.Beginner)...)
	second := append(makeQuestions("c", 4, quiz.Intermediate), makeQuestions("d", 16, quiz.Beginner)...)
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{first, second}}
	machine := NewMachine(catalog, nil, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.IntermediateAdvanced))

	require.Len(t, catalog.randomCalls, 2)
	assert.Equal(t, randomCall{genreID: "g01", count: GenreQuestionCount}, catalog.randomCalls[0])
	assert.Equal(t, randomCall{genreID: "g01", count: FallbackQuestionCount}, catalog.randomCalls[1])

	snapshot := machine.Snapshot()
	assert.Len(t, snapshot.Questions, 7)
	for _, question := range snapshot.Questions {
		assert.Contains(t, []quiz.Difficulty{quiz.Intermediate, quiz.Advanced}, question.Difficulty)
	}
	assert.Equal(t, "a00", snapshot.Questions[0].ID)
	assert.Equal(t, "c00", snapshot.Questions[3].ID)
}

func TestIntermediateAdvancedTruncatesToTen(t *testing.T) {
	first := append(makeQuestions("a", 5, quiz.Intermediate), makeQuestions("b", 5, quiz.Beginner)...)
	second := makeQuestions("c", 20, quiz.Advanced)
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{first, second}}
	machine := NewMachine(catalog, nil, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.IntermediateAdvanced))
	assert.Len(t, machine.Snapshot().Questions, GenreQuestionCount)
}

func TestIntermediateAdvancedSkipsFallbackWhenEnough(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{makeQuestions("a", 10, quiz.Advanced)}}
	machine := NewMachine(catalog, nil, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.IntermediateAdvanced))
	assert.Len(t, catalog.randomCalls, 1)
	assert.Len(t, machine.Snapshot().Questions, 10)
}

func TestSingleBandFilterIsSentToCatalog(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{makeQuestions("a", 2, quiz.Advanced)}}
	machine := NewMachine(catalog, nil, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.OnlyAdvanced))
	require.Len(t, catalog.randomCalls, 1)
	assert.Equal(t, quiz.Advanced, catalog.randomCalls[0].difficulty)
	assert.Equal(t, quiz.OnlyAdvanced, machine.Filter())
}

func TestEmptyIncorrectReviewIsNotAnError(t *testing.T) {
	catalog := &fakeCatalog{}
	machine := NewMachine(catalog, nil, Config{})

	err := machine.StartIncorrectReview(context.Background())
	assert.ErrorIs(t, err, ErrNothingToReview)
	assert.NotErrorIs(t, err, ErrFetchFailed)
	assert.Equal(t, StateIdle, machine.State())
	assert.Equal(t, ErrNothingToReview.Error(), machine.Notice())
	assert.NoError(t, machine.Err())
	assert.Nil(t, machine.Snapshot().SelectedGenre)
	assert.Equal(t, 1, catalog.incorrectCalls)
}

func TestIncorrectReviewIsNotPersisted(t *testing.T) {
	catalog := &fakeCatalog{incorrect: []quiz.Question{makeQuestion("q1", quiz.Beginner)}}
	gateway := &fakeGateway{}
	machine := NewMachine(catalog, gateway, Config{})

	require.NoError(t, machine.StartIncorrectReview(context.Background()))
	snapshot := machine.Snapshot()
	require.NotNil(t, snapshot.SelectedGenre)
	assert.Equal(t, quiz.IncorrectReviewGenreID, snapshot.SelectedGenre.ID)
	assert.Equal(t, quiz.ModeIncorrectReview, machine.Mode())

	_, ok := machine.SubmitAnswer([]string{"q1-a"})
	require.True(t, ok)
	require.NoError(t, machine.Advance())
	assert.Equal(t, StateCompleted, machine.State())

	machine.Wait()
	assert.Empty(t, gateway.saved())
}

func TestRandomAllSession(t *testing.T) {
	catalog := &fakeCatalog{}
	machine := NewMachine(catalog, nil, Config{})

	assert.ErrorIs(t, machine.StartRandomAll(context.Background()), ErrNoQuestions)
	assert.Equal(t, StateIdle, machine.State())

	catalog.randomAll = makeQuestions("r", 3, quiz.Intermediate)
	require.NoError(t, machine.StartRandomAll(context.Background()))
	snapshot := machine.Snapshot()
	require.NotNil(t, snapshot.SelectedGenre)
	assert.Equal(t, quiz.RandomAllGenreID, snapshot.SelectedGenre.ID)
	assert.Len(t, snapshot.Questions, 3)
	assert.Equal(t, "", machine.Notice())
}

func TestFetchFailureEntersErrorState(t *testing.T) {
	catalog := &fakeCatalog{randomErr: errors.New("connection refused")}
	machine := NewMachine(catalog, nil, Config{})

	err := machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty)
	require.ErrorIs(t, err, ErrFetchFailed)
	assert.Contains(t, err.Error(), "connection refused")
	assert.Equal(t, StateError, machine.State())
	assert.ErrorIs(t, machine.Err(), ErrFetchFailed)

	machine.DismissError()
	assert.Equal(t, StateIdle, machine.State())
	assert.NoError(t, machine.Err())

	catalog.randomErr = nil
	catalog.randomBatches = [][]quiz.Question{{makeQuestion("q1", quiz.Beginner)}}
	require.NoError(t, machine.Restart(context.Background()))
	assert.Equal(t, StateActive, machine.State())
}

func TestRestartReusesGenreAndFilter(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{
		makeQuestions("a", 1, quiz.Beginner),
		makeQuestions("b", 1, quiz.Beginner),
	}}
	machine := NewMachine(catalog, nil, Config{})

	assert.ErrorIs(t, machine.Restart(context.Background()), ErrNoSession)

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.OnlyBeginner))
	_, ok := machine.SubmitAnswer([]string{"a00-a"})
	require.True(t, ok)
	require.NoError(t, machine.Advance())

	require.NoError(t, machine.Restart(context.Background()))
	require.Len(t, catalog.randomCalls, 2)
	assert.Equal(t, catalog.randomCalls[0], catalog.randomCalls[1])

	snapshot := machine.Snapshot()
	assert.Equal(t, "b00", snapshot.Questions[0].ID)
	assert.Equal(t, 0, snapshot.CurrentQuestionIndex)
	assert.Empty(t, snapshot.Answers)
	assert.Equal(t, "Go", snapshot.SelectedGenre.Name)
}

func TestSelectNewGenreDiscardsSession(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{makeQuestions("a", 2, quiz.Beginner)}}
	machine := NewMachine(catalog, nil, Config{})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty))
	machine.SelectNewGenre()

	assert.Equal(t, StateIdle, machine.State())
	assert.Nil(t, machine.Snapshot().SelectedGenre)
	assert.ErrorIs(t, machine.Restart(context.Background()), ErrNoSession)
}

func TestStartWhileLoadingIsRejected(t *testing.T) {
	catalog := &fakeCatalog{
		randomBatches: [][]quiz.Question{makeQuestions("a", 1, quiz.Beginner)},
		block:         make(chan struct{}),
		entered:       make(chan struct{}, 1),
	}
	machine := NewMachine(catalog, nil, Config{})

	done := make(chan error, 1)
	go func() {
		done <- machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty)
	}()

	<-catalog.entered
	assert.Equal(t, StateLoading, machine.State())
	assert.ErrorIs(t, machine.StartRandomAll(context.Background()), ErrBusy)
	assert.ErrorIs(t, machine.Restart(context.Background()), ErrBusy)
	assert.Equal(t, 0, catalog.randomAllCalls)

	close(catalog.block)
	require.NoError(t, <-done)
	assert.Equal(t, StateActive, machine.State())
}

func TestSaveFailureDoesNotBlockCompletion(t *testing.T) {
	catalog := &fakeCatalog{randomBatches: [][]quiz.Question{makeQuestions("a", 1, quiz.Beginner)}}
	gateway := &fakeGateway{err: errors.New("boom")}
	machine := NewMachine(catalog, gateway, Config{SaveTimeout: time.Second})

	require.NoError(t, machine.StartGenreSession(context.Background(), goGenre, quiz.AnyDifficulty))
	_, ok := machine.SubmitAnswer([]string{"a00-b"})
	require.True(t, ok)
	require.NoError(t, machine.Advance())

	assert.Equal(t, StateCompleted, machine.State())
	machine.Wait()
	assert.Len(t, gateway.saved(), 1)
}
