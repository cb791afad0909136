package scraper

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestScraper_ClipSinglePage(t *testing.T) {
	var hits int
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(`
			<html>
			<head><title> Renewal Notice </title></head>
			<body>
				<h1>Your policy renews soon</h1>
				<a href="/other">Other page</a>
			</body>
			</html>
		`))
	}))
	defer server.Close()

	page, err := New(Config{UserAgent: "test-agent"}).Clip(t.Context(), server.URL)
	if err != nil {
		t.Fatalf("Clip() error = %v", err)
	}

	if !strings.HasPrefix(page.URL, server.URL) {
		t.Errorf("URL = %q, want prefix %q", page.URL, server.URL)
	}
	if page.Title != "Renewal Notice" {
		t.Errorf("Title = %q, want %q", page.Title, "Renewal Notice")
	}
	if !strings.Contains(string(page.Body), "Your policy renews soon") {
		t.Error("Body should contain the page text")
	}
	if !strings.HasPrefix(page.ContentType, "text/html") {
		t.Errorf("ContentType = %q", page.ContentType)
	}
	if page.FetchedAt.IsZero() {
		t.Error("FetchedAt should not be zero")
	}
	if hits != 1 {
		t.Errorf("server hits = %d, want 1 (links must not be followed)", hits)
	}
}

func TestScraper_HandlesErrors(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "gone", http.StatusNotFound)
	}))
	defer server.Close()

	if _, err := New(Config{}).Clip(t.Context(), server.URL); err == nil {
		t.Fatal("Clip() expected error for 404")
	}
}

func TestScraper_RejectsScheme(t *testing.T) {
	for _, u := range []string{"file:///etc/passwd", "ftp://example.com/x", "://bad"} {
		if _, err := New(Config{}).Clip(t.Context(), u); err == nil {
			t.Errorf("Clip(%q) expected error", u)
		}
	}
}

func TestScraper_SetsUserAgent(t *testing.T) {
	var got string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = r.Header.Get("User-Agent")
		w.Write([]byte("<html><body>ok</body></html>"))
	}))
	defer server.Close()

	if _, err := New(Config{UserAgent: "clipper/2"}).Clip(t.Context(), server.URL); err != nil {
		t.Fatalf("Clip() error = %v", err)
	}
	if got != "clipper/2" {
		t.Errorf("User-Agent = %q, want clipper/2", got)
	}
}

func TestScraper_Cancelled(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("<html></html>"))
	}))
	defer server.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := New(Config{Timeout: time.Second}).Clip(ctx, server.URL); err == nil {
		t.Fatal("Clip() expected error for cancelled context")
	}
}
