package store

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

/*
TestRESTClient_FetchAll verifies the happy path end to end against a stub
server:
  - the request targets /rest/v1/<table> with select=* and the limit param,
  - both auth headers carry the configured key,
  - the decoded rows come back in order.
*/
func TestRESTClient_FetchAll(t *testing.T) {
	var gotPath, gotQuery, gotKey, gotAuth string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		gotQuery = r.URL.RawQuery
		gotKey = r.Header.Get("apikey")
		gotAuth = r.Header.Get("Authorization")
		w.Write([]byte(`[{"customerid":"0001"},{"customerid":"0002"}]`))
	}))
	defer srv.Close()

	c := NewRESTClient(RESTConfig{BaseURL: srv.URL, APIKey: "sekrit"})
	rows, err := c.FetchAll(context.Background(), "telco_data", 50)
	if err != nil {
		t.Fatalf("FetchAll: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("rows=%d; want 2", len(rows))
	}
	if gotPath != "/rest/v1/telco_data" {
		t.Errorf("path=%q; want /rest/v1/telco_data", gotPath)
	}
	if gotQuery != "limit=50&select=%2A" && gotQuery != "limit=50&select=*" {
		t.Errorf("query=%q; want select=* with limit=50", gotQuery)
	}
	if gotKey != "sekrit" || gotAuth != "Bearer sekrit" {
		t.Errorf("auth headers=%q/%q; want key on both", gotKey, gotAuth)
	}
}

/*
TestRESTClient_RetryThenSucceed verifies transient-failure handling: two 500
responses followed by a success should produce rows after exactly three
attempts, with the injectable sleep observing the backoff waits.
*/
func TestRESTClient_RetryThenSucceed(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&calls, 1) <= 2 {
			http.Error(w, "boom", http.StatusInternalServerError)
			return
		}
		w.Write([]byte(`[{"id":1}]`))
	}))
	defer srv.Close()

	c := NewRESTClient(RESTConfig{BaseURL: srv.URL, APIKey: "k", MaxRetries: 3})
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }

	rows, err := c.FetchColumn(context.Background(), "telco_data", "id")
	if err != nil {
		t.Fatalf("FetchColumn: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("rows=%d; want 1", len(rows))
	}
	if atomic.LoadInt32(&calls) != 3 {
		t.Errorf("attempts=%d; want 3", calls)
	}
	if len(slept) != 2 || slept[1] != 2*slept[0] {
		t.Errorf("backoff=%v; want two doubling waits", slept)
	}
}

/*
TestRESTClient_Failures verifies the two failure policies:
  - a 4xx status is returned as an error without retrying (auth refusals are
    not transient),
  - a 2xx with a non-JSON body degrades to an empty row set and nil error.
*/
func TestRESTClient_Failures(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad key", http.StatusUnauthorized)
	}))
	defer srv.Close()

	c := NewRESTClient(RESTConfig{BaseURL: srv.URL, APIKey: "bad", MaxRetries: 3})
	c.sleep = func(time.Duration) {}
	if _, err := c.FetchAll(context.Background(), "telco_data", 0); err == nil {
		t.Errorf("401 should surface as an error")
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Errorf("attempts=%d; want 1 (no retry on 4xx)", calls)
	}

	srv2 := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html>not json</html>"))
	}))
	defer srv2.Close()

	c2 := NewRESTClient(RESTConfig{BaseURL: srv2.URL, APIKey: "k"})
	rows, err := c2.FetchAll(context.Background(), "telco_data", 0)
	if err != nil {
		t.Fatalf("malformed body should not error, got %v", err)
	}
	if len(rows) != 0 {
		t.Errorf("rows=%d; want 0", len(rows))
	}
}

/*
TestPgIdent verifies identifier quoting for the direct-Postgres backend,
including embedded quotes and schema-qualified names.
*/
func TestPgIdent(t *testing.T) {
	if got := pgIdent(`we"ird`); got != `"we""ird"` {
		t.Errorf("pgIdent=%s", got)
	}
	if got := pgFQN("public.telco_data"); got != `"public"."telco_data"` {
		t.Errorf("pgFQN=%s", got)
	}
}
