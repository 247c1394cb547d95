package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/slipwaylabs/slipway/logger"
	"github.com/slipwaylabs/slipway/project"
)

type fakeGitHub struct {
	mu        sync.Mutex
	repoTaken bool
	uploads   []string
	branches  []string
}

func (f *fakeGitHub) server(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/user/repos", func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "Bearer test-token", r.Header.Get("Authorization"))

		f.mu.Lock()
		taken := f.repoTaken
		f.mu.Unlock()
		if taken {
			w.WriteHeader(http.StatusUnprocessableEntity)
			w.Write([]byte(`{"message": "Repository creation failed.", "errors": [{"message": "name already exists on this account"}]}`))
			return
		}

		var req createRepoRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]interface{}{
			"name":           req.Name,
			"html_url":       "https://github.com/octo/" + req.Name,
			"default_branch": "main",
			"owner":          map[string]string{"login": "octo"},
		})
	})

	mux.HandleFunc("/user", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"login": "octo"})
	})

	mux.HandleFunc("/repos/octo/", func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodGet {
			name := strings.TrimPrefix(r.URL.Path, "/repos/octo/")
			json.NewEncoder(w).Encode(map[string]interface{}{
				"name":           name,
				"html_url":       "https://github.com/octo/" + name,
				"default_branch": "main",
				"owner":          map[string]string{"login": "octo"},
			})
			return
		}

		assert.Equal(t, http.MethodPut, r.Method)
		var req contentRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		parts := strings.SplitN(strings.TrimPrefix(r.URL.Path, "/repos/octo/"), "/contents/", 2)
		assert.Len(t, parts, 2)

		f.mu.Lock()
		f.uploads = append(f.uploads, parts[1])
		f.branches = append(f.branches, req.Branch)
		f.mu.Unlock()

		decoded, err := base64.StdEncoding.DecodeString(req.Content)
		assert.NoError(t, err)
		assert.NotEmpty(t, decoded)

		w.WriteHeader(http.StatusCreated)
		w.Write([]byte(`{"content": {}}`))
	})

	return httptest.NewServer(mux)
}

func newTestClient(t *testing.T, baseURL string) *Client {
	t.Helper()
	c, err := New(Config{Token: "test-token", BaseURL: baseURL}, logger.NewNullLogger())
	assert.NoError(t, err)
	return c
}

func sampleFiles() project.Collection {
	return project.Collection{
		{Path: "package.json", Content: `{"name": "demo-app"}`},
		{Path: "index.html", Content: "<html></html>"},
		{Path: "src/App.jsx", Content: "export default () => null"},
	}
}

func TestNewRequiresToken(t *testing.T) {
	_, err := New(Config{}, logger.NewNullLogger())
	assert.Error(t, err)
}

func TestPublishCreatesRepoAndUploadsInOrder(t *testing.T) {
	fake := &fakeGitHub{}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res, err := client.Publish(context.Background(), "demo-app", "a demo", sampleFiles())

	assert.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/demo-app", res.RepoURL)
	assert.Equal(t, "octo", res.Owner)
	assert.Equal(t, "demo-app", res.RepoName)
	assert.Equal(t, "main", res.DefaultBranch)

	assert.Equal(t, []string{"package.json", "index.html", "src/App.jsx"}, fake.uploads)
	for _, branch := range fake.branches {
		assert.Equal(t, "main", branch)
	}
}

func TestPublishReusesExistingRepo(t *testing.T) {
	fake := &fakeGitHub{repoTaken: true}
	srv := fake.server(t)
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	res, err := client.Publish(context.Background(), "demo-app", "a demo", sampleFiles())

	assert.NoError(t, err)
	assert.Equal(t, "https://github.com/octo/demo-app", res.RepoURL)
	assert.Len(t, fake.uploads, 3)
}

func TestPublishRejectsEmptyCollection(t *testing.T) {
	client := newTestClient(t, "http://localhost:0")
	_, err := client.Publish(context.Background(), "demo-app", "a demo", nil)
	assert.Error(t, err)
}

func TestPublishSurfacesAPIErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		w.Write([]byte(`{"message": "Bad credentials"}`))
	}))
	defer srv.Close()

	client := newTestClient(t, srv.URL)
	_, err := client.Publish(context.Background(), "demo-app", "a demo", sampleFiles())

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusUnauthorized, apiErr.Status)
	assert.Contains(t, apiErr.Message, "Bad credentials")
}

func TestParseAPIErrorFlattensNestedMessages(t *testing.T) {
	err := parseAPIError(422, []byte(`{"message": "Repository creation failed.", "errors": [{"message": "name already exists on this account"}]}`))

	var apiErr *APIError
	assert.ErrorAs(t, err, &apiErr)
	assert.Contains(t, apiErr.Message, "Repository creation failed.")
	assert.Contains(t, apiErr.Message, "name already exists")
}
