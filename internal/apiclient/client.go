package apiclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"

	pkgerrors "github.com/pkg/errors"

	"elearning-quiz/internal/auth"
	"elearning-quiz/internal/quiz"
)

const DefaultServer = "http://127.0.0.1:8080"

var ErrServiceUnavailable = errors.New("quiz service unavailable")

type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	if strings.TrimSpace(e.Message) == "" {
		return fmt.Sprintf("request failed with status %d", e.StatusCode)
	}
	return e.Message
}

// CredentialProvider supplies the bearer token for authenticated requests.
type CredentialProvider interface {
	Token(ctx context.Context) (string, error)
}

type Client struct {
	baseURL     string
	httpClient  *http.Client
	credentials CredentialProvider
}

type Option func(*Client)

func WithCredentials(credentials CredentialProvider) Option {
	return func(c *Client) {
		c.credentials = credentials
	}
}

func NewClient(baseURL string, httpClient *http.Client, opts ...Option) *Client {
	baseURL = strings.TrimSpace(baseURL)
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		baseURL = DefaultServer
	}
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	client := &Client{
		baseURL:    baseURL,
		httpClient: httpClient,
	}
	for _, opt := range opts {
		opt(client)
	}
	return client
}

type errorResponse struct {
	Error  string `json:"error"`
	Detail string `json:"detail"`
}

type pagedResponse struct {
	Results json.RawMessage `json:"results"`
}

func (c *Client) ListGenres(ctx context.Context) ([]quiz.Genre, error) {
	var genres []quiz.Genre
	if err := c.getList(ctx, "/api/genres/", &genres); err != nil {
		return nil, err
	}
	return genres, nil
}

func (c *Client) GetRandomQuestions(ctx context.Context, genreID quiz.GenreID, count int, difficulty quiz.Difficulty) ([]quiz.Question, error) {
	query := url.Values{}
	query.Set("genre", string(genreID))
	query.Set("count", strconv.Itoa(count))
	if difficulty.Valid() {
		query.Set("difficulty", strconv.Itoa(int(difficulty)))
	}

	var questions []quiz.Question
	if err := c.getList(ctx, "/api/questions/random/?"+query.Encode(), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Client) GetIncorrectQuestions(ctx context.Context, genreID quiz.GenreID, count int) ([]quiz.Question, error) {
	query := url.Values{}
	if genreID != "" {
		query.Set("genre", string(genreID))
	}
	query.Set("count", strconv.Itoa(count))

	var questions []quiz.Question
	if err := c.getList(ctx, "/api/questions/incorrect/?"+query.Encode(), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Client) GetRandomQuestionsFromAll(ctx context.Context, count int) ([]quiz.Question, error) {
	query := url.Values{}
	query.Set("count", strconv.Itoa(count))

	var questions []quiz.Question
	if err := c.getList(ctx, "/api/questions/random-all/?"+query.Encode(), &questions); err != nil {
		return nil, err
	}
	return questions, nil
}

func (c *Client) SaveSession(ctx context.Context, record quiz.SessionRecord) error {
	return c.doJSON(ctx, http.MethodPost, "/api/progress/sessions/", true, record, nil)
}

type LoginResult struct {
	User   auth.User   `json:"user"`
	Tokens auth.Tokens `json:"tokens"`
}

type Registration struct {
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

func (c *Client) Login(ctx context.Context, email, password string) (LoginResult, error) {
	var result LoginResult
	request := loginRequest{Email: strings.TrimSpace(email), Password: password}
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/login/", false, request, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

func (c *Client) Register(ctx context.Context, registration Registration) (LoginResult, error) {
	var result LoginResult
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/register/", false, registration, &result); err != nil {
		return LoginResult{}, err
	}
	return result, nil
}

func (c *Client) RefreshAccessToken(ctx context.Context, refreshToken string) (string, error) {
	var response refreshResponse
	if err := c.doJSON(ctx, http.MethodPost, "/api/auth/token/refresh/", false, refreshRequest{Refresh: refreshToken}, &response); err != nil {
		return "", err
	}
	if response.Access == "" {
		return "", errors.New("refresh response has no access token")
	}
	return response.Access, nil
}

func (c *Client) CurrentUser(ctx context.Context) (auth.User, error) {
	var user auth.User
	if err := c.doJSON(ctx, http.MethodGet, "/api/auth/user/", true, nil, &user); err != nil {
		return auth.User{}, err
	}
	return user, nil
}

// getList decodes either a bare JSON array or a paginated {"results": [...]}
// envelope into out.
func (c *Client) getList(ctx context.Context, path string, out any) error {
	var raw json.RawMessage
	if err := c.doJSON(ctx, http.MethodGet, path, true, nil, &raw); err != nil {
		return err
	}

	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		var paged pagedResponse
		if err := json.Unmarshal(trimmed, &paged); err != nil {
			return pkgerrors.Wrapf(err, "decode %s", path)
		}
		trimmed = paged.Results
	}
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil
	}
	if err := json.Unmarshal(trimmed, out); err != nil {
		return pkgerrors.Wrapf(err, "decode %s", path)
	}
	return nil
}

func (c *Client) doJSON(ctx context.Context, method, path string, authenticated bool, requestBody any, responseBody any) error {
	fullURL := c.baseURL + path

	var body io.Reader
	if requestBody != nil {
		encoded, err := json.Marshal(requestBody)
		if err != nil {
			return pkgerrors.Wrap(err, "encode request")
		}
		body = bytes.NewReader(encoded)
	}

	request, err := http.NewRequestWithContext(ctx, method, fullURL, body)
	if err != nil {
		return err
	}
	request.Header.Set("Accept", "application/json")
	if requestBody != nil {
		request.Header.Set("Content-Type", "application/json")
	}
	if authenticated && c.credentials != nil {
		token, err := c.credentials.Token(ctx)
		if err != nil {
			return pkgerrors.Wrap(err, "get access token")
		}
		request.Header.Set("Authorization", "Bearer "+token)
	}

	response, err := c.httpClient.Do(request)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrServiceUnavailable, err)
	}
	defer response.Body.Close()

	if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
		apiErr := APIError{StatusCode: response.StatusCode}
		var payload errorResponse
		if err := json.NewDecoder(response.Body).Decode(&payload); err == nil {
			apiErr.Message = strings.TrimSpace(payload.Error)
			if apiErr.Message == "" {
				apiErr.Message = strings.TrimSpace(payload.Detail)
			}
		}
		if apiErr.Message == "" {
			apiErr.Message = response.Status
		}
		return &apiErr
	}

	if responseBody == nil {
		return nil
	}
	if err := json.NewDecoder(response.Body).Decode(responseBody); err != nil {
		return pkgerrors.Wrapf(err, "decode %s %s response", method, path)
	}
	return nil
}
