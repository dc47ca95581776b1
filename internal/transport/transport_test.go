package transport

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/verte-zerg/bfhl/internal/model"
	"github.com/verte-zerg/bfhl/internal/payload"
)

func jsonRequest(t *testing.T, text string) payload.Request {
	t.Helper()
	in, err := payload.Parse(text, payload.ParseOptions{})
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	req, err := payload.Build(in, nil, payload.ModeJSON)
	if err != nil {
		t.Fatalf("build: %v", err)
	}
	return req
}

func TestPostDecodesResponse(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if ct := r.Header.Get("Content-Type"); ct != "application/json" {
			t.Errorf("unexpected content type %q", ct)
		}
		body, _ := io.ReadAll(r.Body)
		if string(body) != `{"data":["2","A"]}` {
			t.Errorf("unexpected body %s", body)
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"numbers":["2"],"alphabets":["A"]}`))
	}))
	defer srv.Close()

	client := New(srv.URL, time.Second)
	result, err := client.Post(context.Background(), jsonRequest(t, `{"data": ["2", "A"]}`))
	if err != nil {
		t.Fatalf("post: %v", err)
	}
	if result.Status != http.StatusOK {
		t.Fatalf("expected 200, got %d", result.Status)
	}
	if len(result.Response.Numbers) != 1 || result.Response.Alphabets[0] != "A" {
		t.Fatalf("unexpected response: %+v", result.Response)
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected exactly one call, got %d", calls)
	}
}

func TestPostHTTPError(t *testing.T) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		atomic.AddInt32(&calls, 1)
		http.Error(w, "bad data", http.StatusBadRequest)
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Post(context.Background(), jsonRequest(t, `{"data": []}`))
	var herr *model.HTTPError
	if !errors.As(err, &herr) {
		t.Fatalf("expected HTTPError, got %v", err)
	}
	if herr.Status != http.StatusBadRequest || herr.Body != "bad data" {
		t.Fatalf("unexpected error: %+v", herr)
	}
	if herr.Error() != "HTTP error! status: 400, message: bad data" {
		t.Fatalf("unexpected message: %q", herr.Error())
	}
	if atomic.LoadInt32(&calls) != 1 {
		t.Fatalf("expected no retries, got %d calls", calls)
	}
}

func TestPostResponseParseError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		_, _ = w.Write([]byte(`<html>oops</html>`))
	}))
	defer srv.Close()

	_, err := New(srv.URL, time.Second).Post(context.Background(), jsonRequest(t, `{"data": []}`))
	var perr *model.ParseError
	if !errors.As(err, &perr) || perr.Source != model.SourceResponse {
		t.Fatalf("expected response ParseError, got %v", err)
	}
}

func TestPostNetworkError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {}))
	url := srv.URL
	srv.Close()

	_, err := New(url, time.Second).Post(context.Background(), jsonRequest(t, `{"data": []}`))
	var nerr *model.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError, got %v", err)
	}
}

func TestPostTimeoutIsNetworkError(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		<-release
	}))
	defer srv.Close()
	defer close(release)

	_, err := New(srv.URL, 50*time.Millisecond).Post(context.Background(), jsonRequest(t, `{"data": []}`))
	var nerr *model.NetworkError
	if !errors.As(err, &nerr) {
		t.Fatalf("expected NetworkError on timeout, got %v", err)
	}
}

func TestPostRequestSetupError(t *testing.T) {
	_, err := New("://bad url", time.Second).Post(context.Background(), jsonRequest(t, `{"data": []}`))
	var serr *model.RequestSetupError
	if !errors.As(err, &serr) {
		t.Fatalf("expected RequestSetupError, got %v", err)
	}
}

func TestFormatDuration(t *testing.T) {
	if got := FormatDuration(250 * time.Millisecond); got != "250ms" {
		t.Fatalf("unexpected %q", got)
	}
	if got := FormatDuration(1500 * time.Millisecond); got != "1.50s" {
		t.Fatalf("unexpected %q", got)
	}
}
