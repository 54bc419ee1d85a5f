package server

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/openevents/submitbot/internal/dataset"
	"github.com/openevents/submitbot/internal/extract"
	"github.com/openevents/submitbot/internal/fetch"
	"github.com/openevents/submitbot/internal/github"
)

const existingConferences = `- title: Existing Conf
  description: Already in the dataset
  category: conference
  tags:
    - open-source
  events:
    - year: 2024
      id: foo-2024
      link: https://foo.example.org
      timeline:
        - deadline: '2024-06-01T18:00:00'
          comment: 'CFP closes'
      timezone: UTC
      date: June 2024
      place: Online
`

const modelResponse = `{
  "title": "OpenConf 2025",
  "description": "Community conference about open source infrastructure",
  "category": "conference",
  "tags": ["open-source", "infrastructure"],
  "events": [{
    "year": 2025,
    "id": "openconf-2025",
    "link": "https://openconf.example.org",
    "timeline": [{"deadline": "2025-06-01T18:00:00", "comment": "CFP closes"}],
    "timezone": "Europe/Berlin",
    "date": "June 1 - June 3, 2025",
    "place": "Berlin, Germany"
  }]
}`

// newPipeline wires real components end to end: dataset reader over a
// temp dir, fetcher over an httptest page, extractor over a canned
// invoker, publisher over a minimal fake GitHub API. The returned int
// counts every call that reached the fake GitHub.
func newPipeline(t *testing.T, invoker extract.Invoker) (http.Handler, *int, *map[string]string) {
	t.Helper()

	dataDir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dataDir, "conferences.yml"), []byte(existingConferences), 0o644))
	reader := dataset.NewReader(dataDir, nil)

	extractor, err := extract.New(invoker, "test-model", nil)
	require.NoError(t, err)

	putBody := map[string]string{}
	mux := http.NewServeMux()
	mux.HandleFunc("GET /repos/octo/deadlines/git/ref/heads/main", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"object": map[string]string{"sha": "abc123"}})
	})
	mux.HandleFunc("POST /repos/octo/deadlines/git/refs", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("GET /repos/octo/deadlines/contents/data/conferences.yml", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{
			"content":  base64.StdEncoding.EncodeToString([]byte(existingConferences)),
			"encoding": "base64",
			"sha":      "filesha1",
		})
	})
	mux.HandleFunc("PUT /repos/octo/deadlines/contents/data/conferences.yml", func(w http.ResponseWriter, r *http.Request) {
		json.NewDecoder(r.Body).Decode(&putBody)
		w.Write([]byte("{}"))
	})
	mux.HandleFunc("POST /repos/octo/deadlines/pulls", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		json.NewEncoder(w).Encode(map[string]any{"html_url": "https://github.com/octo/deadlines/pull/9", "number": 9})
	})
	mux.HandleFunc("POST /repos/octo/deadlines/issues/9/labels", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("[]"))
	})
	ghCalls := 0
	ghSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ghCalls++
		mux.ServeHTTP(w, r)
	}))
	t.Cleanup(ghSrv.Close)

	client := github.NewClient("ghp_test", "octo", "deadlines",
		github.WithBaseURL(ghSrv.URL), github.WithHTTPClient(ghSrv.Client()))
	publisher, err := github.NewPublisher(client, "main", nil)
	require.NoError(t, err)

	srv := New(reader, fetch.New(nil, nil),
		WithExtractor(extractor),
		WithPublisher(publisher))
	return srv.Handler(), &ghCalls, &putBody
}

func TestPipelineEndToEnd(t *testing.T) {
	page := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html><head><script>secret()</script></head><body>OpenConf 2025, deadline June 1</body></html>`))
	}))
	defer page.Close()

	invoker := &extract.StaticInvoker{Response: []byte(modelResponse)}
	handler, _, putBody := newPipeline(t, invoker)

	body, _ := json.Marshal(map[string]any{"url": page.URL, "submittedBy": "alice"})
	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	require.NotNil(t, resp.PR)
	assert.Equal(t, 9, resp.PR.Number)

	// The fetched page reached the model without script content.
	assert.Contains(t, invoker.LastUser, "OpenConf 2025, deadline June 1")
	assert.NotContains(t, invoker.LastUser, "secret()")
	// The dataset snapshot steered the prompt.
	assert.Contains(t, invoker.LastSystem, "foo-2024")
	assert.Contains(t, invoker.LastSystem, "open-source")

	// The committed file is the existing content plus the new fragment.
	decoded, err := base64.StdEncoding.DecodeString((*putBody)["content"])
	require.NoError(t, err)
	assert.Contains(t, string(decoded), "- title: Existing Conf")
	assert.Contains(t, string(decoded), "- title: OpenConf 2025")
}

func TestPipelineRejectsDuplicateIDFromDataset(t *testing.T) {
	duplicate := []byte(`{
	  "title": "Foo Conf",
	  "description": "Tries to reuse a taken ID",
	  "category": "conference",
	  "tags": ["open-source"],
	  "events": [{
	    "year": 2024,
	    "id": "foo-2024",
	    "link": "https://foo.example.org",
	    "timeline": [{"deadline": "2024-06-01T18:00:00", "comment": "CFP closes"}],
	    "timezone": "UTC",
	    "date": "June 2024",
	    "place": "Online"
	  }]
	}`)
	handler, ghCalls, _ := newPipeline(t, &extract.StaticInvoker{Response: duplicate})

	body, _ := json.Marshal(map[string]any{"fileContent": "Foo Conf announcement", "fileName": "foo.txt"})
	req := httptest.NewRequest(http.MethodPost, "/api/submit", bytes.NewReader(body))
	rr := httptest.NewRecorder()
	handler.ServeHTTP(rr, req)

	assert.Equal(t, http.StatusBadRequest, rr.Code)

	var resp submitResponse
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &resp))
	assert.False(t, resp.Success)
	assert.Contains(t, resp.Error, "foo-2024")
	assert.Zero(t, *ghCalls, "publish must not be attempted after a duplicate ID")
}
