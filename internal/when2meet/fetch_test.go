package when2meet

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"meetblocks/internal/model"
)

func TestFetcher_CachesWithETag(t *testing.T) {
	var calls atomic.Int32
	var failing atomic.Bool

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		if failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		if r.Header.Get("If-None-Match") == `"v1"` {
			w.WriteHeader(http.StatusNotModified)
			return
		}
		w.Header().Set("ETag", `"v1"`)
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 0)
	src := Source{ID: "ev", URL: srv.URL + "/?123-abc"}
	ctx := context.Background()

	first, err := f.FetchOne(ctx, src)
	if err != nil {
		t.Fatalf("first FetchOne() error = %v", err)
	}
	if first.FromCache {
		t.Error("first fetch reported FromCache")
	}

	second, err := f.FetchOne(ctx, src)
	if err != nil {
		t.Fatalf("second FetchOne() error = %v", err)
	}
	if !second.FromCache || string(second.Body) != samplePage {
		t.Errorf("second fetch FromCache = %v, body len %d; want cached sample", second.FromCache, len(second.Body))
	}

	failing.Store(true)
	third, err := f.FetchOne(ctx, src)
	if err != nil {
		t.Fatalf("FetchOne() with failing upstream error = %v, want cached fallback", err)
	}
	if !third.FromCache {
		t.Error("fallback fetch should come from cache")
	}
	if calls.Load() != 3 {
		t.Errorf("server calls = %d, want 3", calls.Load())
	}
}

func TestFetcher_ErrorWithoutCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.NotFound(w, r)
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 0)
	if _, err := f.FetchOne(context.Background(), Source{ID: "x", URL: srv.URL}); err == nil {
		t.Error("FetchOne() error = nil, want 404 error")
	}
	if _, err := f.FetchOne(context.Background(), Source{ID: "x"}); err == nil {
		t.Error("FetchOne() with empty URL error = nil")
	}
}

func TestFetcher_CancelledContextSkipsCache(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 0)
	src := Source{ID: "ev", URL: srv.URL + "/?123-abc"}
	if _, err := f.FetchOne(context.Background(), src); err != nil {
		t.Fatalf("priming FetchOne() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	res, err := f.FetchOne(ctx, src)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("FetchOne() with cancelled ctx = FromCache %v, err %v; want context.Canceled", res.FromCache, err)
	}
}

func TestFetcher_FetchAllCollectsErrors(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Has("missing") {
			http.NotFound(w, r)
			return
		}
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	f := NewFetcher(t.TempDir(), 0)
	results, errs := f.FetchAll(context.Background(), []Source{
		{ID: "a", URL: srv.URL + "/?1-a"},
		{ID: "b", URL: srv.URL + "/?missing"},
		{ID: "c", URL: srv.URL + "/?2-c"},
	})
	if len(results) != 2 || len(errs) != 1 {
		t.Fatalf("FetchAll() = %d results, %d errors; want 2, 1", len(results), len(errs))
	}
	if results[0].Source.ID != "a" || results[1].Source.ID != "c" {
		t.Errorf("FetchAll() order = %s,%s; want a,c", results[0].Source.ID, results[1].Source.ID)
	}
}

func TestHTTPLoader(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(samplePage))
	}))
	defer srv.Close()

	l := &HTTPLoader{Fetcher: NewFetcher(t.TempDir(), 0)}
	ds, err := l.Load(context.Background(), Source{ID: "ev", URL: srv.URL})
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(ds.Slots) != 3 || ds.Name != "Team & Friends" {
		t.Errorf("Load() = %d slots, name %q", len(ds.Slots), ds.Name)
	}
}

type fakeLoader map[string]error

func (f fakeLoader) Load(_ context.Context, src Source) (model.Dataset, error) {
	if err := f[src.ID]; err != nil {
		return model.Dataset{}, err
	}
	return model.Dataset{SourceID: src.ID}, nil
}

func TestLoadAll(t *testing.T) {
	boom := errors.New("boom")
	sources := []Source{{ID: "a"}, {ID: "b"}, {ID: "c"}}

	t.Run("secondary failure is skipped", func(t *testing.T) {
		got, err := LoadAll(context.Background(), fakeLoader{"b": boom}, sources)
		if err != nil {
			t.Fatalf("LoadAll() error = %v", err)
		}
		if len(got) != 2 || got[0].SourceID != "a" || got[1].SourceID != "c" {
			t.Errorf("LoadAll() = %+v, want a and c", got)
		}
	})

	t.Run("primary failure aborts", func(t *testing.T) {
		_, err := LoadAll(context.Background(), fakeLoader{"a": boom}, sources)
		if !errors.Is(err, boom) {
			t.Errorf("LoadAll() error = %v, want wrapped boom", err)
		}
	})

	t.Run("no sources", func(t *testing.T) {
		if _, err := LoadAll(context.Background(), fakeLoader{}, nil); err == nil {
			t.Error("LoadAll(nil) error = nil")
		}
	})
}

func TestRedactURL(t *testing.T) {
	if got := redactURL("https://www.when2meet.com/?123-abc"); got != "https://www.when2meet.com/...(redacted)" {
		t.Errorf("redactURL() = %q", got)
	}
	if got := redactURL("not a url"); got != "page://...(redacted)" {
		t.Errorf("redactURL(garbage) = %q", got)
	}
}
