// Package link decodes and encodes single proxy URIs (ss, ssr, vmess,
// trojan, http/https, socks, snell, hysteria, hysteria2, wg). Decoders are
// pure: one line of text in, one canonical Proxy out.
package link

import (
	"encoding/base64"
	"errors"
	"fmt"
	"net"
	"net/url"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/subforge/subforge/internal/model"
)

// Local aliases keep the codec files readable; the canonical types live in
// internal/model.
type Proxy = model.Proxy

const (
	TypeShadowsocks  = model.TypeShadowsocks
	TypeShadowsocksR = model.TypeShadowsocksR
	TypeVMess        = model.TypeVMess
	TypeTrojan       = model.TypeTrojan
	TypeSnell        = model.TypeSnell
	TypeHTTP         = model.TypeHTTP
	TypeHTTPS        = model.TypeHTTPS
	TypeSocks5       = model.TypeSocks5
	TypeWireGuard    = model.TypeWireGuard
	TypeHysteria     = model.TypeHysteria
	TypeHysteria2    = model.TypeHysteria2
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

func newParseError(snippet, message, hint string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    "LINK_PARSE_ERROR",
			Message: message,
			Stage:   "parse_link",
			Snippet: truncateSnippet(snippet, 200),
			Hint:    hint,
		},
		Cause: cause,
	}
}

// Parse dispatches one URI line by scheme. Unrecognized schemes are an error
// the caller normally downgrades to a per-entry skip.
func Parse(line string) (model.Proxy, error) {
	switch {
	case strings.HasPrefix(line, "ss://"):
		return ParseSS(line)
	case strings.HasPrefix(line, "ssr://"):
		return ParseSSR(line)
	case strings.HasPrefix(line, "vmess://"):
		return ParseVMess(line)
	case strings.HasPrefix(line, "trojan://"):
		return ParseTrojan(line)
	case strings.HasPrefix(line, "http://"), strings.HasPrefix(line, "https://"):
		return ParseHTTP(line)
	case strings.HasPrefix(line, "socks://"), strings.HasPrefix(line, "socks5://"):
		return ParseSocks(line)
	case strings.HasPrefix(line, "snell://"):
		return ParseSnell(line)
	case strings.HasPrefix(line, "hysteria2://"), strings.HasPrefix(line, "hy2://"):
		return ParseHysteria2(line)
	case strings.HasPrefix(line, "hysteria://"), strings.HasPrefix(line, "hy://"):
		return ParseHysteria(line)
	case strings.HasPrefix(line, "wg://"), strings.HasPrefix(line, "wireguard://"):
		return ParseWireGuard(line)
	default:
		return model.Proxy{}, newParseError(line, "不支持的链接协议", "expected: ss/ssr/vmess/trojan/http/socks/snell/hysteria/hysteria2/wg", nil)
	}
}

// Encode renders the canonical URI for a node. ok=false means the type has
// no single-link representation (skipped by list renderers, never an error).
func Encode(p *model.Proxy) (string, bool) {
	switch p.Type {
	case model.TypeShadowsocks:
		return EncodeSS(p), true
	case model.TypeShadowsocksR:
		return EncodeSSR(p), true
	case model.TypeVMess:
		return EncodeVMess(p), true
	case model.TypeTrojan:
		return EncodeTrojan(p), true
	case model.TypeHTTP, model.TypeHTTPS:
		return EncodeHTTP(p), true
	case model.TypeSocks5:
		return EncodeSocks(p), true
	case model.TypeHysteria2:
		return EncodeHysteria2(p), true
	default:
		return "", false
	}
}

// --- shared helpers ---

// decodeB64 tries the four base64 alphabets in order; subscription sources
// are wildly inconsistent about padding and URL-safety.
func decodeB64(s string) ([]byte, error) {
	encodings := []*base64.Encoding{
		base64.StdEncoding,
		base64.URLEncoding,
		base64.RawStdEncoding,
		base64.RawURLEncoding,
	}
	var lastErr error
	for _, enc := range encodings {
		b, err := enc.DecodeString(s)
		if err == nil {
			return b, nil
		}
		lastErr = err
	}
	return nil, lastErr
}

func decodeB64String(s string) (string, error) {
	b, err := decodeB64(s)
	if err != nil {
		return "", err
	}
	if !utf8.Valid(b) {
		return "", errors.New("decoded text is not valid utf-8")
	}
	return string(b), nil
}

func urlSafeB64Encode(s string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(s))
}

func stdB64Encode(s string) string {
	return base64.StdEncoding.EncodeToString([]byte(s))
}

// parseHostPort splits "host:port" (IPv6 in brackets) and rejects the port 0
// sentinel: a missing or zero port is always a hard per-entry reject.
func parseHostPort(s string) (string, uint16, error) {
	host, portStr, err := net.SplitHostPort(s)
	if err != nil {
		return "", 0, err
	}
	host = strings.TrimSpace(host)
	if host == "" {
		return "", 0, errors.New("empty host")
	}
	port, err := strconv.Atoi(strings.TrimSpace(portStr))
	if err != nil {
		return "", 0, err
	}
	if port < 1 || port > 65535 {
		return "", 0, errors.New("port out of range")
	}
	return host, uint16(port), nil
}

func parsePort(s string) (uint16, error) {
	port, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if port < 1 || port > 65535 {
		return 0, errors.New("port out of range")
	}
	return uint16(port), nil
}

// splitFragment cuts "#remark" off a link and URL-decodes it.
func splitFragment(line string) (rest, remark string, err error) {
	rest, frag, has := strings.Cut(line, "#")
	if !has {
		return rest, "", nil
	}
	decoded, err := url.PathUnescape(frag)
	if err != nil {
		return "", "", err
	}
	return rest, strings.TrimSpace(decoded), nil
}

func urlDecode(s string) (string, error) {
	return url.QueryUnescape(s)
}

func itoa(v int) string { return strconv.Itoa(v) }

func pctEncode(s string) string {
	// QueryEscape uses '+' for spaces; rewrite to %20 to stay unambiguous in
	// fragments.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}

// bracketHost wraps a bare IPv6 literal for URI embedding.
func bracketHost(host string) string {
	if strings.Contains(host, ":") && !strings.HasPrefix(host, "[") {
		return "[" + host + "]"
	}
	return host
}

func truncateSnippet(s string, max int) string {
	s = strings.ReplaceAll(s, "\r", "")
	s = strings.ReplaceAll(s, "\n", "")
	if max <= 0 {
		return ""
	}
	if len(s) <= max {
		return s
	}
	return s[:max]
}
