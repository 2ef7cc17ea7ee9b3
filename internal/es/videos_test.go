package es

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Skotchmaster/deen_api/internal/models"
)

type recordedRequest struct {
	method string
	path   string
	body   string
}

// fakeTransport answers every request with the next canned response, or a
// 200 "{}" when none are queued.
type fakeTransport struct {
	mu        sync.Mutex
	requests  []recordedRequest
	responses []*http.Response
}

func (f *fakeTransport) RoundTrip(req *http.Request) (*http.Response, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	var body []byte
	if req.Body != nil {
		body, _ = io.ReadAll(req.Body)
	}
	f.requests = append(f.requests, recordedRequest{method: req.Method, path: req.URL.Path, body: string(body)})

	res := jsonResponse(http.StatusOK, `{}`)
	if len(f.responses) > 0 {
		res = f.responses[0]
		f.responses = f.responses[1:]
	}
	res.Request = req
	return res, nil
}

func jsonResponse(status int, body string) *http.Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	h.Set("X-Elastic-Product", "Elasticsearch")
	return &http.Response{
		StatusCode: status,
		Status:     http.StatusText(status),
		Header:     h,
		Body:       io.NopCloser(bytes.NewBufferString(body)),
	}
}

func newTestIndex(t *testing.T, ft *fakeTransport) *VideoIndex {
	t.Helper()
	client, err := NewClient(context.Background(), Config{URL: "http://es.test:9200", Transport: ft})
	require.NoError(t, err)
	return &VideoIndex{Client: client, Index: "videos"}
}

func TestVideoIndex_IndexAndDelete(t *testing.T) {
	ft := &fakeTransport{}
	x := newTestIndex(t, ft)
	v := &models.Video{ID: "v1", Title: "Wudu basics", URL: "https://videos.example/v1", Category: "fiqh", CreatedAt: time.Unix(0, 0).UTC()}

	require.NoError(t, x.IndexVideo(context.Background(), v))

	ft.responses = []*http.Response{jsonResponse(http.StatusNotFound, `{"result":"not_found"}`)}
	require.NoError(t, x.DeleteVideo(context.Background(), "v1"))

	require.Len(t, ft.requests, 3) // info, index, delete
	assert.Equal(t, http.MethodPut, ft.requests[1].method)
	assert.Equal(t, "/videos/_doc/v1", ft.requests[1].path)
	assert.Contains(t, ft.requests[1].body, `"title":"Wudu basics"`)
	assert.Equal(t, http.MethodDelete, ft.requests[2].method)
	assert.Equal(t, "/videos/_doc/v1", ft.requests[2].path)
}

func TestVideoIndex_IndexError(t *testing.T) {
	ft := &fakeTransport{}
	x := newTestIndex(t, ft)

	ft.responses = []*http.Response{jsonResponse(http.StatusBadRequest, `{"error":"mapper_parsing_exception"}`)}
	err := x.IndexVideo(context.Background(), &models.Video{ID: "v1"})
	assert.ErrorContains(t, err, "mapper_parsing_exception")
}

func TestVideoIndex_Search(t *testing.T) {
	ft := &fakeTransport{}
	x := newTestIndex(t, ft)

	ft.responses = []*http.Response{jsonResponse(http.StatusOK, `{
		"hits": {
			"total": {"value": 7},
			"hits": [
				{"_id": "v1", "_source": {"id": "v1", "title": "Wudu basics", "category": "fiqh"}},
				{"_id": "v2", "_source": {"id": "v2", "title": "Wudu mistakes", "category": "fiqh"}}
			]
		}
	}`)}

	total, videos, err := x.SearchVideos(context.Background(), "wudu", 10, 2)
	require.NoError(t, err)
	assert.EqualValues(t, 7, total)
	require.Len(t, videos, 2)
	assert.Equal(t, "v2", videos[1].ID)

	last := ft.requests[len(ft.requests)-1]
	assert.True(t, strings.HasSuffix(last.path, "/videos/_search"), last.path)
	var q map[string]any
	require.NoError(t, json.Unmarshal([]byte(last.body), &q))
	assert.EqualValues(t, 10, q["from"])
	assert.EqualValues(t, 2, q["size"])
}

func TestVideoIndex_SearchBackendError(t *testing.T) {
	ft := &fakeTransport{}
	x := newTestIndex(t, ft)

	ft.responses = []*http.Response{jsonResponse(http.StatusInternalServerError, `{"error":"search_phase_execution_exception"}`)}
	_, _, err := x.SearchVideos(context.Background(), "wudu", 0, 10)
	assert.Error(t, err)
}

func TestNewClient_InfoFailure(t *testing.T) {
	ft := &fakeTransport{responses: []*http.Response{jsonResponse(http.StatusUnauthorized, `{"error":"auth"}`)}}
	_, err := NewClient(context.Background(), Config{URL: "http://es.test:9200", Transport: ft})
	assert.Error(t, err)
}
