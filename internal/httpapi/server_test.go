package httpapi

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/rs/zerolog"
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/settings"
	"github.com/subforge/subforge/internal/sub/link"
)

func newTestRouter(t *testing.T) http.Handler {
	t.Helper()
	store, err := settings.NewStore("", zerolog.Nop())
	if err != nil {
		t.Fatalf("NewStore: %v", err)
	}
	return New(store, zerolog.Nop())
}

func upstreamSubscription(t *testing.T) *httptest.Server {
	t.Helper()
	nodes := []model.Proxy{
		{Type: model.TypeShadowsocks, Remark: "HK 01", Hostname: "hk.example.com", Port: 8388, EncryptMethod: "aes-128-gcm", Password: "pw"},
		{Type: model.TypeShadowsocks, Remark: "US 01", Hostname: "us.example.com", Port: 8388, EncryptMethod: "aes-256-gcm", Password: "pw2"},
	}
	var lines []string
	for i := range nodes {
		lines = append(lines, link.EncodeSS(&nodes[i]))
	}
	body := strings.Join(lines, "\n") + "\n"

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Subscription-Userinfo", "upload=0; download=100; total=1000")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthzAndVersion(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))
	if w.Code != http.StatusOK || w.Body.String() != "ok" {
		t.Fatalf("healthz: code=%d body=%q", w.Code, w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/version", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("version: code=%d", w.Code)
	}
	var got map[string]string
	if err := json.Unmarshal(w.Body.Bytes(), &got); err != nil {
		t.Fatalf("version json: %v", err)
	}
	if got["name"] != "subforge" {
		t.Fatalf("version name=%q", got["name"])
	}
}

func TestSub_MissingURL(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=clash", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Error.Code != "INVALID_ARGUMENT" {
		t.Fatalf("code=%q", resp.Error.Code)
	}
}

func TestSub_UnsupportedTarget(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=nope&url=http://x", nil))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("code=%d", w.Code)
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Error.Code != "UNSUPPORTED_TARGET" {
		t.Fatalf("code=%q", resp.Error.Code)
	}
}

func TestSub_Clash(t *testing.T) {
	r := newTestRouter(t)
	ts := upstreamSubscription(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=clash&url="+url.QueryEscape(ts.URL), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	body := w.Body.String()
	if !strings.Contains(body, "proxies:") {
		t.Fatalf("missing proxies key:\n%s", body)
	}
	if !strings.Contains(body, "HK 01") || !strings.Contains(body, "US 01") {
		t.Fatalf("missing node remarks:\n%s", body)
	}
	if got := w.Header().Get("Subscription-Userinfo"); got != "upload=0; download=100; total=1000" {
		t.Fatalf("userinfo header=%q", got)
	}
}

func TestSub_FilenameHeader(t *testing.T) {
	r := newTestRouter(t)
	ts := upstreamSubscription(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=clash&filename=mysub&url="+url.QueryEscape(ts.URL), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	cd := w.Header().Get("Content-Disposition")
	if !strings.Contains(cd, `filename="mysub.yaml"`) {
		t.Fatalf("content-disposition=%q", cd)
	}
}

func TestSub_Mixed(t *testing.T) {
	r := newTestRouter(t)
	ts := upstreamSubscription(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=mixed&url="+url.QueryEscape(ts.URL), nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	if !strings.Contains(w.Body.String(), "ss://") {
		t.Fatalf("expected ss links:\n%s", w.Body.String())
	}
	if ct := w.Header().Get("Content-Type"); !strings.HasPrefix(ct, "text/plain") {
		t.Fatalf("content-type=%q", ct)
	}
}

func TestSub_UpstreamFailure(t *testing.T) {
	r := newTestRouter(t)
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(ts.Close)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/sub?target=clash&url="+url.QueryEscape(ts.URL), nil))
	if w.Code != http.StatusBadGateway {
		t.Fatalf("code=%d body=%s", w.Code, w.Body.String())
	}
	var resp model.ErrorResponse
	if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
		t.Fatalf("json: %v", err)
	}
	if resp.Error.Code != "FETCH_FAILED" {
		t.Fatalf("code=%q", resp.Error.Code)
	}
}

func TestMetricsExposition(t *testing.T) {
	r := newTestRouter(t)

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("code=%d", w.Code)
	}
	body := w.Body.String()
	if !strings.Contains(body, "subforge_http_requests_total") {
		t.Fatalf("missing total counter:\n%s", body)
	}
	if !strings.Contains(body, `pattern="/healthz"`) {
		t.Fatalf("missing per-pattern counter:\n%s", body)
	}
}
