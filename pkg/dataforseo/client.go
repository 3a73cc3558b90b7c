// Package dataforseo is a minimal client for the DataForSEO SERP API's
// Google Maps task endpoints: submit search tasks, fetch task results.
package dataforseo

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"github.com/rotisserie/eris"
	"golang.org/x/time/rate"
)

const defaultBaseURL = "https://api.dataforseo.com/v3"

// MaxTasksPerPost is the provider's per-call batch ceiling for task_post.
const MaxTasksPerPost = 100

// Client performs DataForSEO SERP task operations.
type Client interface {
	// PostTasks submits up to MaxTasksPerPost search tasks and returns the
	// created task ids in submission order.
	PostTasks(ctx context.Context, tasks []Task) ([]string, error)
	// GetTask fetches the current result of one task by id.
	GetTask(ctx context.Context, id string) (*TaskResult, error)
}

// Option configures the client.
type Option func(*httpClient)

// WithBaseURL overrides the default API base URL.
func WithBaseURL(url string) Option {
	return func(c *httpClient) {
		c.baseURL = url
	}
}

// WithHTTPClient overrides the default http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *httpClient) {
		c.http = hc
	}
}

// WithRateLimit overrides the default request rate limiter.
func WithRateLimit(rps float64, burst int) Option {
	return func(c *httpClient) {
		c.limiter = rate.NewLimiter(rate.Limit(rps), burst)
	}
}

type httpClient struct {
	login    string
	password string
	baseURL  string
	http     *http.Client
	limiter  *rate.Limiter
}

// NewClient creates a DataForSEO client authenticating with HTTP basic auth.
// Credentials are a fatal precondition for the caller to enforce; the client
// itself only requires them to be non-empty.
func NewClient(login, password string, opts ...Option) (Client, error) {
	if login == "" || password == "" {
		return nil, eris.New("dataforseo: missing login or password")
	}
	c := &httpClient{
		login:    login,
		password: password,
		baseURL:  defaultBaseURL,
		http: &http.Client{
			Timeout: 30 * time.Second,
		},
		// The provider allows ~2000 requests/minute; stay well under.
		limiter: rate.NewLimiter(rate.Limit(12), 12),
	}
	for _, o := range opts {
		o(c)
	}
	return c, nil
}

func (c *httpClient) PostTasks(ctx context.Context, tasks []Task) ([]string, error) {
	if len(tasks) == 0 {
		return nil, nil
	}
	if len(tasks) > MaxTasksPerPost {
		return nil, eris.Errorf("dataforseo: %d tasks exceeds per-call limit of %d", len(tasks), MaxTasksPerPost)
	}

	env, err := c.do(ctx, http.MethodPost, "/serp/google/maps/task_post", tasks)
	if err != nil {
		return nil, err
	}

	ids := make([]string, 0, len(tasks))
	for _, t := range env.Tasks {
		switch {
		case t.ID != "":
			ids = append(ids, t.ID)
		case len(t.Result) > 0 && t.Result[0].ID != "":
			ids = append(ids, t.Result[0].ID)
		}
	}
	if len(ids) != len(tasks) {
		return nil, &ProviderError{
			StatusCode: env.StatusCode,
			Message:    capMessage(eris.Errorf("expected %d task ids, got %d", len(tasks), len(ids)).Error()),
		}
	}
	return ids, nil
}

func (c *httpClient) GetTask(ctx context.Context, id string) (*TaskResult, error) {
	if id == "" {
		return nil, eris.New("dataforseo: empty task id")
	}

	env, err := c.do(ctx, http.MethodGet, "/serp/google/maps/task_get/advanced/"+id, nil)
	if err != nil {
		return nil, err
	}
	if len(env.Tasks) == 0 {
		return nil, eris.Errorf("dataforseo: task %s missing from response", id)
	}

	t := env.Tasks[0]
	res := &TaskResult{
		ID:            id,
		StatusCode:    t.StatusCode,
		StatusMessage: t.StatusMessage,
	}
	if len(t.Result) > 0 {
		res.Items = t.Result[0].Items
	}
	return res, nil
}

// do issues one authenticated request and unwraps the provider envelope.
// Envelope-level non-success becomes a ProviderError; transport problems
// surface as wrapped plain errors for the caller's transient classification.
func (c *httpClient) do(ctx context.Context, method, path string, body any) (*envelope, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, eris.Wrap(err, "dataforseo: rate limiter")
	}

	var reader io.Reader
	if body != nil {
		payload, err := json.Marshal(body)
		if err != nil {
			return nil, eris.Wrap(err, "dataforseo: marshal request")
		}
		reader = bytes.NewReader(payload)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: create request")
	}
	req.SetBasicAuth(c.login, c.password)
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: send request")
	}
	defer resp.Body.Close() //nolint:errcheck

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, eris.Wrap(err, "dataforseo: read response")
	}

	var env envelope
	if err := json.Unmarshal(respBody, &env); err != nil {
		return nil, eris.Wrapf(err, "dataforseo: unmarshal response (http %d)", resp.StatusCode)
	}

	if resp.StatusCode != http.StatusOK || env.StatusCode != statusOK {
		return nil, &ProviderError{
			HTTPStatus: resp.StatusCode,
			StatusCode: env.StatusCode,
			Message:    capMessage(env.StatusMessage),
		}
	}
	return &env, nil
}
