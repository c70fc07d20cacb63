package template

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
)

const managedConfigPrefix = "#!MANAGED-CONFIG"

// EnsureManagedConfig makes the first non-empty line of a Surge-style config
//
//	#!MANAGED-CONFIG <convertURL> interval=<interval> strict=<strict>
//
// rewriting an existing managed-config line in place or inserting one at the
// top. Newline style is preserved.
func EnsureManagedConfig(text, convertURL string, interval int, strict bool) (string, error) {
	if strings.TrimSpace(convertURL) == "" {
		return "", &TemplateError{
			AppError: model.AppError{
				Code:    "INVALID_ARGUMENT",
				Message: "managed config URL 不能为空",
				Stage:   "render",
			},
		}
	}
	if interval <= 0 {
		interval = 86400
	}
	managed := fmt.Sprintf("%s %s interval=%d strict=%t", managedConfigPrefix, convertURL, interval, strict)

	newline := detectNewline(text)
	normalized := strings.ReplaceAll(text, "\r\n", "\n")
	endsWithNewline := strings.HasSuffix(normalized, "\n")
	lines := strings.Split(strings.TrimSuffix(normalized, "\n"), "\n")

	replaced := false
	out := lines[:0]
	for _, line := range lines {
		if strings.HasPrefix(strings.TrimLeft(line, " \t"), managedConfigPrefix) {
			if replaced {
				continue
			}
			out = append(out, managed)
			replaced = true
			continue
		}
		out = append(out, line)
	}
	if !replaced {
		out = append([]string{managed}, out...)
	}

	result := strings.Join(out, "\n")
	if endsWithNewline {
		result += "\n"
	}
	if newline == "\r\n" {
		result = strings.ReplaceAll(result, "\n", "\r\n")
	}
	return result, nil
}
