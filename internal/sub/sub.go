// Package sub turns raw subscription payloads into canonical proxies. It
// sniffs the payload shape (clash YAML, ssd blob, share-link list, base64
// wrapper around either) and dispatches to the matching codec.
package sub

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/sub/clashin"
	"github.com/subforge/subforge/internal/sub/link"
	"github.com/subforge/subforge/internal/sub/ssd"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

// ParseAny parses a subscription payload of unknown dialect. The source tag
// only labels log lines and errors. Individual broken entries are skipped and
// logged; the whole source fails only when nothing at all parses.
func ParseAny(log zerolog.Logger, source, payload string) ([]model.Proxy, error) {
	text := strings.TrimSpace(payload)
	if text == "" {
		return nil, sourceError(source, "订阅内容为空", nil)
	}

	if decoded, ok := decodeWhole(text); ok {
		text = strings.TrimSpace(decoded)
	}

	switch {
	case strings.HasPrefix(text, "ssd://"):
		proxies, err := ssd.Parse(text)
		if err != nil {
			return nil, sourceError(source, "ssd 订阅解析失败", err)
		}
		return proxies, nil
	case looksLikeClash(text):
		proxies, skipped, err := clashin.Parse(text)
		if err != nil {
			return nil, sourceError(source, "clash 订阅解析失败", err)
		}
		if skipped > 0 {
			log.Debug().Str("source", source).Int("skipped", skipped).Msg("跳过无法识别的 clash 节点")
		}
		return proxies, nil
	}
	return parseLinkLines(log, source, text)
}

func parseLinkLines(log zerolog.Logger, source, text string) ([]model.Proxy, error) {
	var out []model.Proxy
	skipped := 0
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(line, "\r"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "//") {
			continue
		}
		p, err := link.Parse(line)
		if err != nil {
			skipped++
			log.Debug().Str("source", source).Err(err).Msg("跳过无法解析的分享链接")
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, sourceError(source, "订阅中没有任何可用节点", nil)
	}
	if skipped > 0 {
		log.Debug().Str("source", source).Int("skipped", skipped).Msg("跳过无法解析的分享链接")
	}
	return out, nil
}

// looksLikeClash reports whether the payload carries a top-level proxies
// sequence. Checking line starts avoids false positives from share links
// whose fragment happens to contain the word.
func looksLikeClash(text string) bool {
	for _, line := range strings.Split(text, "\n") {
		trimmed := strings.TrimSpace(line)
		if strings.HasPrefix(trimmed, "proxies:") || strings.HasPrefix(trimmed, "Proxy:") {
			return true
		}
	}
	return false
}

// decodeWhole tries the payload as one base64 blob, the common wrapping for
// share-link subscriptions. A payload containing "://" is already plain text.
func decodeWhole(text string) (string, bool) {
	if strings.Contains(text, "://") || strings.ContainsAny(text, " \t") {
		return "", false
	}
	compact := strings.Map(func(r rune) rune {
		if r == '\n' || r == '\r' {
			return -1
		}
		return r
	}, text)
	for _, enc := range []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	} {
		if decoded, err := enc.DecodeString(compact); err == nil {
			return string(decoded), true
		}
	}
	return "", false
}

func sourceError(source, message string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    "SUB_PARSE_ERROR",
			Message: message,
			Stage:   "parse_sub",
			URL:     source,
		},
		Cause: cause,
	}
}
