package dataforseo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient("login", "password",
		WithBaseURL(srv.URL),
		WithHTTPClient(srv.Client()),
		WithRateLimit(1000, 1000),
	)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresCredentials(t *testing.T) {
	_, err := NewClient("", "secret")
	assert.Error(t, err)
	_, err = NewClient("login", "")
	assert.Error(t, err)
}

func TestFormatLocation(t *testing.T) {
	assert.Equal(t, "41.671000,-73.120000,15z", FormatLocation(41.671, -73.12, "15z"))
	assert.Equal(t, "41.671000,-73.120000", FormatLocation(41.671, -73.12, ""))
}

func TestPostTasks(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/serp/google/maps/task_post", r.URL.Path)

		login, password, ok := r.BasicAuth()
		require.True(t, ok)
		assert.Equal(t, "login", login)
		assert.Equal(t, "password", password)

		var tasks []Task
		require.NoError(t, json.NewDecoder(r.Body).Decode(&tasks))
		require.Len(t, tasks, 2)
		assert.Equal(t, "plumber", tasks[0].Keyword)
		assert.Equal(t, "41.671000,-73.120000,15z", tasks[0].LocationCoordinate)

		resp := map[string]any{
			"status_code": 20000,
			"tasks": []map[string]any{
				{"id": "task-1", "status_code": 20100},
				{"id": "task-2", "status_code": 20100},
			},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})

	ids, err := c.PostTasks(context.Background(), []Task{
		{Keyword: "plumber", LocationCoordinate: FormatLocation(41.671, -73.12, "15z"), Depth: 50},
		{Keyword: "plumber", LocationCoordinate: FormatLocation(41.676, -73.12, "15z"), Depth: 50},
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"task-1", "task-2"}, ids)
}

func TestPostTasksIDsFromResult(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		resp := map[string]any{
			"status_code": 20000,
			"tasks": []map[string]any{
				{"result": []map[string]any{{"id": "res-1"}}},
			},
		}
		json.NewEncoder(w).Encode(resp) //nolint:errcheck
	})

	ids, err := c.PostTasks(context.Background(), []Task{{Keyword: "k"}})
	require.NoError(t, err)
	assert.Equal(t, []string{"res-1"}, ids)
}

func TestPostTasksProviderRejection(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status_code":    40100,
			"status_message": "Authentication failed",
		})
	})

	_, err := c.PostTasks(context.Background(), []Task{{Keyword: "k"}})
	require.Error(t, err)

	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
	assert.Equal(t, 40100, pe.StatusCode)
	assert.Equal(t, http.StatusUnauthorized, pe.HTTPStatus)
	assert.Contains(t, pe.Message, "Authentication failed")
}

func TestPostTasksBatchCeiling(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})

	tasks := make([]Task, MaxTasksPerPost+1)
	_, err := c.PostTasks(context.Background(), tasks)
	assert.Error(t, err)
}

func TestPostTasksIDCountMismatch(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status_code": 20000,
			"tasks":       []map[string]any{{"id": "only-one"}},
		})
	})

	_, err := c.PostTasks(context.Background(), []Task{{Keyword: "a"}, {Keyword: "b"}})
	var pe *ProviderError
	require.ErrorAs(t, err, &pe)
}

func TestGetTaskCompleted(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/serp/google/maps/task_get/advanced/task-9", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status_code": 20000,
			"tasks": []map[string]any{{
				"id":          "task-9",
				"status_code": 20000,
				"result": []map[string]any{{
					"items": []map[string]any{
						{
							"type": "maps_search", "rank_group": 1, "rank_absolute": 1,
							"title": "Acme Plumbing", "place_id": "ChIJ123", "cid": "42",
							"phone": "+18605550100", "domain": "acmeplumbing.com",
							"rating": map[string]any{"value": 4.8, "votes_count": 120},
							"address_info": map[string]any{
								"address": "1 Main St", "city": "Torrington",
								"region": "CT", "zip": "06790", "country_code": "US",
							},
						},
					},
				}},
			}},
		})
	})

	res, err := c.GetTask(context.Background(), "task-9")
	require.NoError(t, err)
	require.Len(t, res.Items, 1)

	it := res.Items[0]
	assert.Equal(t, 1, it.RankGroup)
	assert.Equal(t, "ChIJ123", it.PlaceID)
	assert.Equal(t, "acmeplumbing.com", it.Website())
	assert.Equal(t, 4.8, it.Rating.Value)
	assert.Equal(t, "1 Main St, Torrington, CT, 06790, US", it.DisplayAddress())
}

func TestGetTaskPendingHasNoItems(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, _ *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{ //nolint:errcheck
			"status_code": 20000,
			"tasks": []map[string]any{{
				"id":             "task-9",
				"status_code":    40602,
				"status_message": "Task In Queue.",
			}},
		})
	})

	res, err := c.GetTask(context.Background(), "task-9")
	require.NoError(t, err)
	assert.Empty(t, res.Items)
	assert.Equal(t, 40602, res.StatusCode)
	assert.Equal(t, "Task In Queue.", res.StatusMessage)
}

func TestGetTaskEmptyID(t *testing.T) {
	c := newTestClient(t, func(http.ResponseWriter, *http.Request) {
		t.Fatal("no request expected")
	})
	_, err := c.GetTask(context.Background(), "")
	assert.Error(t, err)
}

func TestDisplayAddressFallbacks(t *testing.T) {
	assert.Equal(t, "flat addr", Item{Address: "flat addr", Snippet: "s"}.DisplayAddress())
	assert.Equal(t, "snippet only", Item{Snippet: "snippet only"}.DisplayAddress())
	assert.Equal(t, "", Item{}.DisplayAddress())
}
