package cli

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/golang/glog"

	"elearning-quiz/internal/apiclient"
	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/quiz"
	"elearning-quiz/internal/session"
)

const (
	defaultHTTPTimeout = 5 * time.Second
	defaultSaveTimeout = 5 * time.Second
)

var errInputClosed = errors.New("input closed")

type Config struct {
	ServerURL    string
	HTTPTimeout  time.Duration
	SaveTimeout  time.Duration
	Email        string
	Password     string
	AccessToken  string
	RefreshToken string
}

// Accounts is the auth half of the quiz API.
type Accounts interface {
	Login(ctx context.Context, email, password string) (apiclient.LoginResult, error)
	Register(ctx context.Context, registration apiclient.Registration) (apiclient.LoginResult, error)
	CurrentUser(ctx context.Context) (auth.User, error)
}

type Deps struct {
	Catalog   session.Catalog
	Machine   *session.Machine
	Accounts  Accounts
	Tokens    *auth.TokenSource
	ServerURL string
}

type App struct {
	catalog   session.Catalog
	machine   *session.Machine
	accounts  Accounts
	tokens    *auth.TokenSource
	serverURL string

	reader *bufio.Reader
	out    io.Writer
	genres []quiz.Genre
}

func NewApp(deps Deps, in io.Reader, out io.Writer) *App {
	return &App{
		catalog:   deps.Catalog,
		machine:   deps.Machine,
		accounts:  deps.Accounts,
		tokens:    deps.Tokens,
		serverURL: deps.ServerURL,
		reader:    bufio.NewReader(in),
		out:       out,
	}
}

// Run wires the HTTP client, credentials and session machine, then reads
// commands from in until exit or end of input.
func Run(ctx context.Context, in io.Reader, out io.Writer, cfg Config) error {
	serverURL := strings.TrimSpace(cfg.ServerURL)
	if serverURL == "" {
		serverURL = apiclient.DefaultServer
	}
	timeout := cfg.HTTPTimeout
	if timeout <= 0 {
		timeout = defaultHTTPTimeout
	}
	saveTimeout := cfg.SaveTimeout
	if saveTimeout <= 0 {
		saveTimeout = defaultSaveTimeout
	}

	httpClient := &http.Client{Timeout: timeout}
	accounts := apiclient.NewClient(serverURL, httpClient)
	tokens := auth.NewTokenSource(accounts, auth.Tokens{Access: cfg.AccessToken, Refresh: cfg.RefreshToken})
	api := apiclient.NewClient(serverURL, httpClient, apiclient.WithCredentials(tokens))
	machine := session.NewMachine(api, api, session.Config{SaveTimeout: saveTimeout})
	defer machine.Wait()

	app := NewApp(Deps{
		Catalog:   api,
		Machine:   machine,
		Accounts:  accounts,
		Tokens:    tokens,
		ServerURL: serverURL,
	}, in, out)

	fmt.Fprintf(out, "quiz-cli\nserver=%s\n\n", serverURL)
	if email := strings.TrimSpace(cfg.Email); email != "" {
		if err := app.login(ctx, email, cfg.Password); err != nil {
			fmt.Fprintf(out, "login failed: %v\n", err)
		}
	}
	printHelp(out)

	return app.Loop(ctx)
}

func (a *App) Loop(ctx context.Context) error {
	for {
		fmt.Fprint(a.out, "\n> ")
		line, err := a.readLine()
		if err != nil {
			if errors.Is(err, errInputClosed) {
				fmt.Fprintln(a.out)
				return nil
			}
			return err
		}
		if line == "" {
			continue
		}

		args := strings.Fields(line)
		command := strings.ToLower(args[0])

		switch command {
		case "help":
			printHelp(a.out)
		case "exit", "quit":
			return nil
		case "login":
			a.runLogin(ctx, args)
		case "register":
			a.runRegister(ctx, args)
		case "logout":
			a.tokens.Clear()
			fmt.Fprintln(a.out, "Logged out.")
		case "whoami":
			a.runWhoAmI(ctx)
		case "genres":
			if err := a.listGenres(ctx); err != nil {
				fmt.Fprintf(a.out, "error: %v\n", a.describeError(err))
			}
		case "play":
			err = a.runPlay(ctx, args)
		case "review":
			err = a.afterStart(ctx, a.machine.StartIncorrectReview(ctx))
		case "random":
			err = a.afterStart(ctx, a.machine.StartRandomAll(ctx))
		case "restart":
			err = a.runRestart(ctx)
		case "new":
			a.machine.SelectNewGenre()
			if err := a.listGenres(ctx); err != nil {
				fmt.Fprintf(a.out, "error: %v\n", a.describeError(err))
			}
		default:
			fmt.Fprintln(a.out, "unknown command. type 'help' for usage.")
		}

		if errors.Is(err, errInputClosed) {
			fmt.Fprintln(a.out)
			return nil
		}
		if err != nil {
			return err
		}
	}
}

func (a *App) runLogin(ctx context.Context, args []string) {
	if len(args) != 2 {
		fmt.Fprintln(a.out, "usage: login <email>")
		return
	}
	fmt.Fprint(a.out, "Password: ")
	password, err := a.readLine()
	if err != nil {
		return
	}
	if err := a.login(ctx, args[1], password); err != nil {
		fmt.Fprintf(a.out, "login failed: %v\n", a.describeError(err))
	}
}

func (a *App) login(ctx context.Context, email, password string) error {
	result, err := a.accounts.Login(ctx, email, password)
	if err != nil {
		return err
	}
	a.tokens.Set(result.Tokens)
	fmt.Fprintf(a.out, "Logged in as %s.\n", displayName(result.User))
	return nil
}

func (a *App) runRegister(ctx context.Context, args []string) {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(a.out, "usage: register <email> [username]")
		return
	}
	registration := apiclient.Registration{Email: args[1]}
	if len(args) == 3 {
		registration.Username = args[2]
	}

	fmt.Fprint(a.out, "Password: ")
	password, err := a.readLine()
	if err != nil {
		return
	}
	registration.Password = password

	result, err := a.accounts.Register(ctx, registration)
	if err != nil {
		fmt.Fprintf(a.out, "registration failed: %v\n", a.describeError(err))
		return
	}
	a.tokens.Set(result.Tokens)
	fmt.Fprintf(a.out, "Registered and logged in as %s.\n", displayName(result.User))
}

func (a *App) runWhoAmI(ctx context.Context) {
	user, err := a.accounts.CurrentUser(ctx)
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", a.describeError(err))
		return
	}
	fmt.Fprintf(a.out, "%s <%s>\n", displayName(user), user.Email)
}

func (a *App) listGenres(ctx context.Context) error {
	genres, err := a.catalog.ListGenres(ctx)
	if err != nil {
		return err
	}
	a.genres = genres

	if len(genres) == 0 {
		fmt.Fprintln(a.out, "No genres available.")
		return nil
	}

	fmt.Fprintln(a.out, "Genres:")
	for idx, genre := range genres {
		fmt.Fprintf(a.out, "%d. %s (%d questions)\n", idx+1, genre.Name, genre.QuestionCount)
	}
	return nil
}

func (a *App) runPlay(ctx context.Context, args []string) error {
	if len(args) < 2 || len(args) > 3 {
		fmt.Fprintln(a.out, "usage: play <number|genre_id> [difficulty]")
		return nil
	}

	genre, err := a.resolveGenre(ctx, args[1])
	if err != nil {
		fmt.Fprintf(a.out, "error: %v\n", a.describeError(err))
		return nil
	}

	var filter quiz.DifficultyFilter
	if len(args) == 3 {
		filter, err = quiz.ParseDifficultyFilter(args[2])
		if err != nil {
			fmt.Fprintf(a.out, "invalid difficulty: %v\n", err)
			return nil
		}
	} else {
		filter, err = a.promptDifficulty()
		if err != nil {
			return err
		}
	}

	return a.afterStart(ctx, a.machine.StartGenreSession(ctx, genre, filter))
}

func (a *App) resolveGenre(ctx context.Context, ref string) (quiz.Genre, error) {
	if len(a.genres) == 0 {
		genres, err := a.catalog.ListGenres(ctx)
		if err != nil {
			return quiz.Genre{}, err
		}
		a.genres = genres
	}

	if number, err := strconv.Atoi(ref); err == nil && number >= 1 && number <= len(a.genres) {
		return a.genres[number-1], nil
	}
	for _, genre := range a.genres {
		if string(genre.ID) == ref || strings.EqualFold(genre.Name, ref) {
			return genre, nil
		}
	}
	return quiz.Genre{}, fmt.Errorf("unknown genre %q, type 'genres' to list them", ref)
}

func (a *App) runRestart(ctx context.Context) error {
	err := a.machine.Restart(ctx)
	if errors.Is(err, session.ErrNoSession) {
		fmt.Fprintln(a.out, "Nothing to restart. Use 'play', 'review' or 'random'.")
		return nil
	}
	return a.afterStart(ctx, err)
}

// afterStart reports the outcome of a start and plays the session when one
// became active.
func (a *App) afterStart(ctx context.Context, err error) error {
	switch {
	case err == nil:
		return a.playSession(ctx)
	case errors.Is(err, session.ErrNothingToReview), errors.Is(err, session.ErrNoQuestions):
		fmt.Fprintln(a.out, capitalize(a.machine.Notice())+".")
	case errors.Is(err, session.ErrBusy):
		fmt.Fprintln(a.out, "Questions are still loading.")
	default:
		glog.V(1).Infof("start failed: %v", err)
		fmt.Fprintf(a.out, "error: %v\n", a.describeError(err))
		fmt.Fprintln(a.out, "Type 'restart' to retry or 'new' to pick another genre.")
	}
	return nil
}

func (a *App) readLine() (string, error) {
	line, err := a.reader.ReadString('\n')
	if err != nil {
		if errors.Is(err, io.EOF) {
			if trimmed := strings.TrimSpace(line); trimmed != "" {
				return trimmed, nil
			}
			return "", errInputClosed
		}
		return "", err
	}
	return strings.TrimSpace(line), nil
}

func (a *App) promptDifficulty() (quiz.DifficultyFilter, error) {
	for {
		fmt.Fprint(a.out, "Difficulty (any, beginner, intermediate, advanced, intermediate-advanced) [any]: ")
		line, err := a.readLine()
		if err != nil {
			return quiz.AnyDifficulty, err
		}
		filter, err := quiz.ParseDifficultyFilter(line)
		if err == nil {
			return filter, nil
		}
		fmt.Fprintln(a.out, "Please choose one of the listed difficulties.")
	}
}
