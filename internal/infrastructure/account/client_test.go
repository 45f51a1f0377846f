package account

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestCheckParsesCode(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer tok" {
			t.Errorf("unexpected auth header %q", got)
		}
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"code":"E401","message":"expired"}`))
	}))
	defer srv.Close()

	resp, err := NewClient(srv.URL, func() string { return "tok" }, time.Second).Check(context.Background())
	if err != nil {
		t.Fatalf("check: %v", err)
	}
	if resp == nil || resp.Code != "E401" || resp.Message != "expired" {
		t.Fatalf("unexpected response: %+v", resp)
	}
}

func TestCheckEmptyBodyIsNilResponse(t *testing.T) {
	t.Parallel()

	for _, body := range []string{"", "  ", "null"} {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
			_, _ = w.Write([]byte(body))
		}))
		resp, err := NewClient(srv.URL, nil, time.Second).Check(context.Background())
		srv.Close()
		if err != nil || resp != nil {
			t.Fatalf("body %q: expected nil response, got %+v %v", body, resp, err)
		}
	}
}

func TestCheckServerErrorAndNoEndpoint(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	if _, err := NewClient(srv.URL, nil, time.Second).Check(context.Background()); err == nil {
		t.Fatalf("expected error for 503")
	}
	resp, err := NewClient("", nil, 0).Check(context.Background())
	if resp != nil || err != nil {
		t.Fatalf("expected no-op, got %+v %v", resp, err)
	}
}
