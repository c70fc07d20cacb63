package httpapi

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/subforge/subforge/internal/render"
)

// setAttachmentHeaders writes Content-Disposition when a filename applies.
// Query filename wins over the preference-file filename; both fall back to
// the target name. Unsafe names are dropped rather than failing the request.
func setAttachmentHeaders(c *gin.Context, target render.Target, queryName, prefName string) {
	base := strings.TrimSpace(queryName)
	if base == "" {
		base = strings.TrimSpace(prefName)
	}
	if base == "" {
		return
	}
	if !safeFileName(base) {
		return
	}

	name := base
	if !hasExt(name) {
		name += defaultExt(target)
	}
	// Add both filename and filename* for better UTF-8 compatibility.
	c.Header("Content-Disposition", contentDispositionAttachment(name))
}

func safeFileName(name string) bool {
	if strings.ContainsAny(name, "\r\n\x00") {
		return false
	}
	if strings.Contains(name, "/") || strings.Contains(name, "\\") {
		return false
	}
	return len(name) <= 200
}

func hasExt(name string) bool {
	i := strings.LastIndexByte(name, '.')
	return i > 0 && i < len(name)-1
}

func defaultExt(target render.Target) string {
	switch target {
	case render.TargetClash, render.TargetClashR:
		return ".yaml"
	case render.TargetSurge, render.TargetSurfboard, render.TargetMellow,
		render.TargetQuantumult, render.TargetQuantumultX, render.TargetLoon:
		return ".conf"
	case render.TargetSingBox:
		return ".json"
	default:
		return ".txt"
	}
}

func contentDispositionAttachment(filename string) string {
	// RFC 6266 + RFC 5987.
	escaped := strings.ReplaceAll(filename, "\\", "\\\\")
	escaped = strings.ReplaceAll(escaped, "\"", "\\\"")

	// pctEncode follows our deterministic encoding (space => %20).
	return fmt.Sprintf("attachment; filename=\"%s\"; filename*=UTF-8''%s", escaped, pctEncode(filename))
}

func pctEncode(s string) string {
	// RFC 3986 percent-encoding for query/fragment. Go's QueryEscape uses '+' for
	// spaces, which we rewrite to %20 for stability and to avoid ambiguity.
	return strings.ReplaceAll(url.QueryEscape(s), "+", "%20")
}
