// Package ssd decodes the SSD JSON subscription blob: one document with an
// airport name, connection defaults, and a servers array that inherits those
// defaults unless overridden per server.
package ssd

import (
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
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

type document struct {
	Airport      string   `json:"airport"`
	Port         uint16   `json:"port"`
	Encryption   string   `json:"encryption"`
	Password     string   `json:"password"`
	TrafficUsed  float64  `json:"traffic_used"`
	TrafficTotal float64  `json:"traffic_total"`
	Expiry       string   `json:"expiry"`
	URL          string   `json:"url"`
	Servers      []server `json:"servers"`
}

type server struct {
	ID            int     `json:"id"`
	Server        string  `json:"server"`
	Port          *uint16 `json:"port"`
	Encryption    string  `json:"encryption"`
	Password      string  `json:"password"`
	Remarks       string  `json:"remarks"`
	Plugin        string  `json:"plugin"`
	PluginOptions string  `json:"plugin_options"`
	Ratio         float64 `json:"ratio"`
}

// Parse accepts either the raw JSON document or the ssd:// base64 wrapper.
// Malformed servers are skipped; the call fails only when the document itself
// is unreadable or no server survives.
func Parse(input string) ([]model.Proxy, error) {
	text := strings.TrimSpace(input)
	if strings.HasPrefix(text, "ssd://") {
		decoded, err := base64.RawURLEncoding.DecodeString(padless(strings.TrimPrefix(text, "ssd://")))
		if err != nil {
			return nil, parseError("ssd base64 解码失败", err)
		}
		text = string(decoded)
	}

	var doc document
	if err := json.Unmarshal([]byte(text), &doc); err != nil {
		return nil, parseError("ssd JSON 解析失败", err)
	}
	if doc.Airport == "" {
		return nil, parseError("ssd 缺少 airport 字段", nil)
	}

	out := make([]model.Proxy, 0, len(doc.Servers))
	for _, s := range doc.Servers {
		if s.Server == "" {
			continue
		}
		port := doc.Port
		if s.Port != nil {
			port = *s.Port
		}
		if port == 0 {
			continue
		}
		method := s.Encryption
		if method == "" {
			method = doc.Encryption
		}
		password := s.Password
		if password == "" {
			password = doc.Password
		}
		if method == "" || password == "" {
			continue
		}

		remark := strings.TrimSpace(s.Remarks)
		if remark == "" {
			remark = s.Server + ":" + fmt.Sprint(port)
		}
		out = append(out, model.Proxy{
			Type:          model.TypeShadowsocks,
			Group:         doc.Airport,
			Remark:        fmt.Sprintf("%s - %s", doc.Airport, remark),
			Hostname:      s.Server,
			Port:          port,
			EncryptMethod: method,
			Password:      password,
			Plugin:        s.Plugin,
			PluginOption:  s.PluginOptions,
		})
	}
	if len(out) == 0 {
		return nil, parseError("ssd 订阅中没有任何可用节点", nil)
	}
	return out, nil
}

func parseError(message string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    "SSD_PARSE_ERROR",
			Message: message,
			Stage:   "parse_sub",
		},
		Cause: cause,
	}
}

// padless strips base64 padding so RawURLEncoding accepts both padded and
// unpadded forms.
func padless(s string) string {
	s = strings.ReplaceAll(s, "+", "-")
	s = strings.ReplaceAll(s, "/", "_")
	return strings.TrimRight(strings.TrimSpace(s), "=")
}
