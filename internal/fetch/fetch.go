// Package fetch pulls subscription, ruleset, and template text from http(s)
// URLs, local files, or inline data URLs, with a hard size cap and timeout.
// The pipeline only ever sees already-fetched text.
package fetch

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/subforge/subforge/internal/model"
)

type Kind int

const (
	KindSubscription Kind = iota
	KindRuleset
	KindTemplate
)

func (k Kind) stage() string {
	switch k {
	case KindSubscription:
		return "fetch_sub"
	case KindRuleset:
		return "fetch_ruleset"
	case KindTemplate:
		return "fetch_template"
	default:
		return "fetch"
	}
}

func (k Kind) defaultMaxBytes() int64 {
	switch k {
	case KindSubscription:
		return 10 * 1024 * 1024
	case KindRuleset:
		return 2 * 1024 * 1024
	case KindTemplate:
		return 2 * 1024 * 1024
	default:
		return 1 * 1024 * 1024
	}
}

type Options struct {
	Timeout      time.Duration // default 15s
	MaxBytes     int64         // default per kind
	MaxRedirects int           // default 5
	UserAgent    string
}

// Result carries the fetched text plus response metadata the HTTP surface
// passes through to the client.
type Result struct {
	Text string

	// Subscription-Userinfo header from the upstream, verbatim.
	SubscriptionUserinfo string
}

type FetchError struct {
	Status   int
	AppError model.AppError
	Cause    error
}

func (e *FetchError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *FetchError) Unwrap() error { return e.Cause }

var (
	errTooManyRedirects  = errors.New("too many redirects")
	errRedirectBadScheme = errors.New("redirect target scheme is not http/https")
)

func Text(ctx context.Context, kind Kind, rawURL string) (Result, error) {
	return TextWithOptions(ctx, kind, rawURL, Options{})
}

func TextWithOptions(ctx context.Context, kind Kind, rawURL string, opt Options) (Result, error) {
	stage := kind.stage()

	timeout := opt.Timeout
	if timeout == 0 {
		timeout = 15 * time.Second
	}
	maxRedirects := opt.MaxRedirects
	if maxRedirects == 0 {
		maxRedirects = 5
	}
	maxBytes := opt.MaxBytes
	if maxBytes <= 0 {
		maxBytes = kind.defaultMaxBytes()
	}

	u, err := url.Parse(rawURL)
	if err != nil || u == nil {
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "URL 不合法",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}

	switch u.Scheme {
	case "http", "https":
		return fetchHTTP(ctx, stage, rawURL, timeout, maxRedirects, maxBytes, opt.UserAgent)
	case "file", "":
		return readLocal(stage, strings.TrimPrefix(rawURL, "file://"), maxBytes)
	case "data":
		return decodeDataURL(stage, rawURL, maxBytes)
	default:
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "仅允许 http/https/file/data URL",
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}
}

// decodeDataURL handles inline "data:[mediatype][;base64],payload" sources,
// useful for embedding short rulesets directly in a pref file.
func decodeDataURL(stage, rawURL string, maxBytes int64) (Result, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok {
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "data URL 缺少逗号分隔的载荷",
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}
	var body []byte
	if strings.HasSuffix(meta, ";base64") {
		b, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			return Result{}, &FetchError{
				Status: http.StatusBadRequest,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "data URL base64 载荷解码失败",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		body = b
	} else {
		decoded, err := url.PathUnescape(payload)
		if err != nil {
			return Result{}, &FetchError{
				Status: http.StatusBadRequest,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "data URL 载荷解码失败",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		body = []byte(decoded)
	}
	if int64(len(body)) > maxBytes {
		return Result{}, tooLarge(stage, rawURL, maxBytes)
	}
	if !utf8.Valid(body) {
		return Result{}, invalidUTF8(stage, rawURL)
	}
	return Result{Text: string(body)}, nil
}

func readLocal(stage, path string, maxBytes int64) (Result, error) {
	info, err := os.Stat(path)
	if err != nil {
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "读取本地文件失败",
				Stage:   stage,
				URL:     path,
			},
			Cause: err,
		}
	}
	if info.Size() > maxBytes {
		return Result{}, tooLarge(stage, path, maxBytes)
	}
	body, err := os.ReadFile(path)
	if err != nil {
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "读取本地文件失败",
				Stage:   stage,
				URL:     path,
			},
			Cause: err,
		}
	}
	if !utf8.Valid(body) {
		return Result{}, invalidUTF8(stage, path)
	}
	return Result{Text: string(body)}, nil
}

func fetchHTTP(ctx context.Context, stage, rawURL string, timeout time.Duration, maxRedirects int, maxBytes int64, userAgent string) (Result, error) {
	client := &http.Client{
		Timeout:   timeout,
		Transport: http.DefaultTransport,
		CheckRedirect: func(req *http.Request, via []*http.Request) error {
			if len(via) > maxRedirects {
				return errTooManyRedirects
			}
			if req.URL.Scheme != "http" && req.URL.Scheme != "https" {
				return errRedirectBadScheme
			}
			return nil
		},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return Result{}, &FetchError{
			Status: http.StatusBadRequest,
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "请求 URL 不合法",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	if userAgent != "" {
		req.Header.Set("User-Agent", userAgent)
	}

	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, errTooManyRedirects) {
			return Result{}, &FetchError{
				Status: http.StatusBadGateway,
				AppError: model.AppError{
					Code:    "FETCH_FAILED",
					Message: fmt.Sprintf("重定向次数超过上限（>%d）", maxRedirects),
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		if errors.Is(err, errRedirectBadScheme) {
			return Result{}, &FetchError{
				Status: http.StatusBadRequest,
				AppError: model.AppError{
					Code:    "INVALID_ARGUMENT",
					Message: "重定向目标仅允许 http/https",
					Stage:   stage,
					URL:     rawURL,
				},
				Cause: err,
			}
		}
		if isTimeout(err) {
			return Result{}, fetchTimeout(stage, rawURL, err)
		}
		return Result{}, &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "拉取远程资源失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return Result{}, &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: fmt.Sprintf("上游返回非 2xx 状态码：%d", resp.StatusCode),
				Stage:   stage,
				URL:     rawURL,
			},
		}
	}

	// Read at most maxBytes+1 to detect overflow deterministically.
	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBytes+1))
	if err != nil {
		if isTimeout(err) {
			return Result{}, fetchTimeout(stage, rawURL, err)
		}
		return Result{}, &FetchError{
			Status: http.StatusBadGateway,
			AppError: model.AppError{
				Code:    "FETCH_FAILED",
				Message: "读取上游响应失败",
				Stage:   stage,
				URL:     rawURL,
			},
			Cause: err,
		}
	}
	if int64(len(body)) > maxBytes {
		return Result{}, tooLarge(stage, rawURL, maxBytes)
	}
	if !utf8.Valid(body) {
		return Result{}, invalidUTF8(stage, rawURL)
	}

	return Result{
		Text:                 string(body),
		SubscriptionUserinfo: resp.Header.Get("Subscription-Userinfo"),
	}, nil
}

func isTimeout(err error) bool {
	var ne net.Error
	if errors.As(err, &ne) && ne.Timeout() {
		return true
	}
	return errors.Is(err, context.DeadlineExceeded)
}

func fetchTimeout(stage, rawURL string, cause error) error {
	return &FetchError{
		Status: http.StatusGatewayTimeout,
		AppError: model.AppError{
			Code:    "FETCH_TIMEOUT",
			Message: "拉取远程资源超时",
			Stage:   stage,
			URL:     rawURL,
		},
		Cause: cause,
	}
}

func tooLarge(stage, rawURL string, maxBytes int64) error {
	return &FetchError{
		Status: http.StatusUnprocessableEntity,
		AppError: model.AppError{
			Code:    "TOO_LARGE",
			Message: fmt.Sprintf("远程资源过大（>%d bytes）", maxBytes),
			Stage:   stage,
			URL:     rawURL,
		},
	}
}

func invalidUTF8(stage, rawURL string) error {
	return &FetchError{
		Status: http.StatusUnprocessableEntity,
		AppError: model.AppError{
			Code:    "FETCH_INVALID_UTF8",
			Message: "远程资源不是合法 UTF-8 文本",
			Stage:   stage,
			URL:     rawURL,
		},
	}
}
