package feed

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestFetcherRun(t *testing.T) {
	var gotUserAgent string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUserAgent = r.Header.Get("User-Agent")
		w.Header().Set("Content-Type", "application/feed+json")
		w.Write([]byte(`{"items":[]}`))
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "feed-posse/test")
	data, err := fetcher.Run(context.Background(), server.URL)
	if err != nil {
		t.Fatalf("Expected no error, got: %v", err)
	}
	if string(data) != `{"items":[]}` {
		t.Errorf("Unexpected body: %s", data)
	}
	if gotUserAgent != "feed-posse/test" {
		t.Errorf("Expected user agent 'feed-posse/test', got '%s'", gotUserAgent)
	}
}

func TestFetcherRunHTTPError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	fetcher := NewFetcher(server.Client(), "feed-posse/test")
	if _, err := fetcher.Run(context.Background(), server.URL); err == nil {
		t.Error("Expected error for 404 response")
	}
}
