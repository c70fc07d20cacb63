package fetch

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func TestText_UnsupportedScheme(t *testing.T) {
	_, err := Text(context.Background(), KindSubscription, "ftp://example.com/x")
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusBadRequest {
		t.Fatalf("status=%d, want=%d", fe.Status, http.StatusBadRequest)
	}
	if fe.AppError.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code=%q", fe.AppError.Code)
	}
	if fe.AppError.Stage != "fetch_sub" {
		t.Fatalf("stage=%q", fe.AppError.Stage)
	}
}

func TestText_LocalFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub.txt")
	if err := os.WriteFile(path, []byte("ss://x\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	res, err := Text(context.Background(), KindSubscription, path)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "ss://x\n" {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestText_DataURL(t *testing.T) {
	res, err := Text(context.Background(), KindRuleset, "data:text/plain;base64,RE9NQUlOLVNVRkZJWCxnb29nbGUuY29t")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "DOMAIN-SUFFIX,google.com" {
		t.Fatalf("text=%q", res.Text)
	}

	res, err = Text(context.Background(), KindRuleset, "data:,FINAL")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.Text != "FINAL" {
		t.Fatalf("text=%q", res.Text)
	}
}

func TestText_TooLarge(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(strings.Repeat("a", 32)))
	}))
	defer ts.Close()

	_, err := TextWithOptions(context.Background(), KindTemplate, ts.URL, Options{MaxBytes: 10})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusUnprocessableEntity || fe.AppError.Code != "TOO_LARGE" {
		t.Fatalf("status=%d code=%q", fe.Status, fe.AppError.Code)
	}
	if fe.AppError.Stage != "fetch_template" {
		t.Fatalf("stage=%q", fe.AppError.Stage)
	}
}

func TestText_InvalidUTF8(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		// 0xff is always invalid in UTF-8.
		_, _ = w.Write([]byte{0xff, 0xfe, 0xfd})
	}))
	defer ts.Close()

	_, err := Text(context.Background(), KindTemplate, ts.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.AppError.Code != "FETCH_INVALID_UTF8" {
		t.Fatalf("code=%q", fe.AppError.Code)
	}
}

func TestText_Timeout(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
		_, _ = w.Write([]byte("ok"))
	}))
	defer ts.Close()

	_, err := TextWithOptions(context.Background(), KindSubscription, ts.URL, Options{Timeout: 50 * time.Millisecond})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusGatewayTimeout || fe.AppError.Code != "FETCH_TIMEOUT" {
		t.Fatalf("status=%d code=%q", fe.Status, fe.AppError.Code)
	}
}

func TestText_UserinfoPassthrough(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Subscription-Userinfo", "upload=0; download=100; total=1000")
		_, _ = w.Write([]byte("ss://x\n"))
	}))
	defer ts.Close()

	res, err := Text(context.Background(), KindSubscription, ts.URL)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if res.SubscriptionUserinfo != "upload=0; download=100; total=1000" {
		t.Fatalf("userinfo=%q", res.SubscriptionUserinfo)
	}
}

func TestText_NonSuccessStatus(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer ts.Close()

	_, err := Text(context.Background(), KindRuleset, ts.URL)
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("expected *FetchError, got %T: %v", err, err)
	}
	if fe.Status != http.StatusBadGateway || fe.AppError.Code != "FETCH_FAILED" {
		t.Fatalf("status=%d code=%q", fe.Status, fe.AppError.Code)
	}
	if fe.AppError.Stage != "fetch_ruleset" {
		t.Fatalf("stage=%q", fe.AppError.Stage)
	}
}
