package disk

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"testing"
)

func TestListPublicSingleFile(t *testing.T) {
	var gotKey string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotKey = r.URL.Query().Get("public_key")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"report.pdf","file":"https://downloader.example/report.pdf"}`))
	}))
	defer upstream.Close()

	client := NewClient(WithBaseURL(upstream.URL))
	entries, err := client.ListPublic(context.Background(), "https://disk.example/d/abc")
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if gotKey != "https://disk.example/d/abc" {
		t.Fatalf("expected public_key query param, got %q", gotKey)
	}
	want := []Entry{{Name: "report.pdf", Type: "file", Path: "https://downloader.example/report.pdf"}}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("expected %+v, got %+v", want, entries)
	}
}

func TestListPublicDirectory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{
			"name": "shared",
			"_embedded": {"items": [
				{"name": "a.txt", "type": "file", "file": "https://downloader.example/a.txt"},
				{"name": "nested", "type": "dir", "file": ""}
			]}
		}`))
	}))
	defer upstream.Close()

	client := NewClient(WithBaseURL(upstream.URL))
	entries, err := client.ListPublic(context.Background(), "https://disk.example/d/dir")
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	want := []Entry{
		{Name: "a.txt", Type: "file", Path: "https://downloader.example/a.txt"},
		{Name: "nested", Type: "dir", Path: ""},
	}
	if !reflect.DeepEqual(entries, want) {
		t.Fatalf("expected %+v, got %+v", want, entries)
	}
}

func TestListPublicEmptyDirectory(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"name":"empty","_embedded":{"items":[]}}`))
	}))
	defer upstream.Close()

	client := NewClient(WithBaseURL(upstream.URL))
	entries, err := client.ListPublic(context.Background(), "https://disk.example/d/empty")
	if err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	if entries == nil {
		t.Fatal("expected non-nil entry list for empty share")
	}
	if len(entries) != 0 {
		t.Fatalf("expected empty list, got %+v", entries)
	}
}

func TestListPublicUpstreamError(t *testing.T) {
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"resource not found"}`))
	}))
	defer upstream.Close()

	client := NewClient(WithBaseURL(upstream.URL))
	_, err := client.ListPublic(context.Background(), "https://disk.example/d/missing")
	var upstreamErr *UpstreamError
	if !errors.As(err, &upstreamErr) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstreamErr.StatusCode != http.StatusNotFound {
		t.Fatalf("expected status 404, got %d", upstreamErr.StatusCode)
	}
	if upstreamErr.Message != "resource not found" {
		t.Fatalf("expected upstream message, got %q", upstreamErr.Message)
	}
}

func TestListPublicRequiresURL(t *testing.T) {
	client := NewClient()
	if _, err := client.ListPublic(context.Background(), "   "); err == nil {
		t.Fatal("expected error for blank public URL")
	}
}

func TestListPublicEscapesPublicKey(t *testing.T) {
	var rawQuery string
	upstream := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		rawQuery = r.URL.RawQuery
		_, _ = w.Write([]byte(`{"name":"x","file":"https://downloader.example/x"}`))
	}))
	defer upstream.Close()

	client := NewClient(WithBaseURL(upstream.URL))
	publicURL := "https://disk.example/d/a b?x=1&y=2"
	if _, err := client.ListPublic(context.Background(), publicURL); err != nil {
		t.Fatalf("ListPublic returned error: %v", err)
	}
	want := "public_key=" + url.QueryEscape(publicURL)
	if rawQuery != want {
		t.Fatalf("expected query %q, got %q", want, rawQuery)
	}
}
