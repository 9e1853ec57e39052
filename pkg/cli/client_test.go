package cli

import (
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClient_CallSendsAuthAndDecodes(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/query": respond(http.StatusOK, map[string]any{"query_id": "q1"}),
	})
	client := NewClient(srv.URL+"/", "tok")

	var out struct {
		QueryID string `json:"query_id"`
	}
	require.NoError(t, client.call(http.MethodPost, "/query", nil, map[string]any{"sql": "SELECT 1"}, &out))
	assert.Equal(t, "q1", out.QueryID)

	reqs := srv.recorded()
	require.Len(t, reqs, 1)
	assert.Equal(t, "Bearer tok", reqs[0].Auth)
	assert.Equal(t, "SELECT 1", reqs[0].Body["sql"])
}

func TestCheckError(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/query": respond(http.StatusBadRequest, map[string]any{
			"code": 400, "message": "query rejected: only SELECT", "query_id": "q9",
		}),
		"GET /v1/plain": func(w http.ResponseWriter, _ *http.Request) {
			w.WriteHeader(http.StatusBadGateway)
			_, _ = fmt.Fprint(w, "upstream down")
		},
	})
	client := NewClient(srv.URL, "")

	err := client.call(http.MethodPost, "/query", nil, map[string]any{"sql": "DROP TABLE x"}, nil)
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.HTTPStatus)
	assert.Equal(t, "q9", apiErr.QueryID)
	assert.Equal(t, "API error (HTTP 400): query rejected: only SELECT (query q9)", apiErr.Error())

	err = client.call(http.MethodGet, "/plain", nil, nil, nil)
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadGateway, apiErr.Code)
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestFetchAllPages(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/datasets": func(w http.ResponseWriter, r *http.Request) {
			switch r.URL.Query().Get("page_token") {
			case "":
				writeJSONResponse(w, http.StatusOK, map[string]any{
					"datasets":        []map[string]any{{"id": "a"}, {"id": "b"}},
					"next_page_token": "p2",
				})
			case "p2":
				writeJSONResponse(w, http.StatusOK, map[string]any{
					"datasets": []map[string]any{{"id": "c"}},
				})
			}
		},
	})
	client := NewClient(srv.URL, "")

	items, err := client.fetchAllPages("/datasets", "datasets", url.Values{"max_results": {"2"}})
	require.NoError(t, err)
	require.Len(t, items, 3)
	assert.Equal(t, "c", items[2]["id"])

	reqs := srv.recorded()
	require.Len(t, reqs, 2)
	assert.Equal(t, "max_results=2", reqs[0].Query)
	assert.Equal(t, "max_results=2&page_token=p2", reqs[1].Query)
}

func TestFetchAllPages_RepeatedToken(t *testing.T) {
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"GET /v1/dashboards": respond(http.StatusOK, map[string]any{
			"dashboards":      []map[string]any{},
			"next_page_token": "same",
		}),
	})
	_, err := NewClient(srv.URL, "").fetchAllPages("/dashboards", "dashboards", nil)
	assert.ErrorContains(t, err, "same page token")
}

func TestClient_Upload(t *testing.T) {
	var gotName, gotCharset, gotFile string
	srv := newFakeServer(t, map[string]func(http.ResponseWriter, *http.Request){
		"POST /v1/datasets": func(w http.ResponseWriter, r *http.Request) {
			f, hdr, err := r.FormFile("file")
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			defer f.Close() //nolint:errcheck
			gotFile = hdr.Filename
			gotName = r.FormValue("name")
			gotCharset = r.FormValue("charset")
			writeJSONResponse(w, http.StatusCreated, map[string]any{"id": "d1"})
		},
	})

	path := filepath.Join(t.TempDir(), "sales.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b\n1,2\n"), 0o600))

	resp, err := NewClient(srv.URL, "").Upload(path, map[string]string{"name": "Sales", "charset": ""})
	require.NoError(t, err)
	var out map[string]any
	require.NoError(t, decodeResponse(resp, &out))
	assert.Equal(t, "d1", out["id"])
	assert.Equal(t, "sales.csv", gotFile)
	assert.Equal(t, "Sales", gotName)
	assert.Empty(t, gotCharset)

	_, err = NewClient(srv.URL, "").Upload(filepath.Join(t.TempDir(), "missing.csv"), nil)
	require.Error(t, err)
}
