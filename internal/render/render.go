// Package render holds one emission codec per target dialect. Every codec
// follows the same contract: filter nodes to the types the dialect can
// express, render proxies/groups/rules in the dialect's syntax, and merge
// with the caller's base config (section splice for INI dialects,
// parse-merge-reserialize for structured ones).
package render

import (
	"fmt"

	"github.com/subforge/subforge/internal/model"
)

type Target string

const (
	TargetClash       Target = "clash"
	TargetClashR      Target = "clashr"
	TargetSurge       Target = "surge"
	TargetSurfboard   Target = "surfboard"
	TargetMellow      Target = "mellow"
	TargetQuantumult  Target = "quan"
	TargetQuantumultX Target = "quanx"
	TargetLoon        Target = "loon"
	TargetSingBox     Target = "singbox"
	TargetSSSub       Target = "sssub"
	TargetSSD         Target = "ssd"
	TargetMixed       Target = "mixed"
)

// ParseTarget maps a request spelling to a Target. The second return is
// false for unknown spellings.
func ParseTarget(s string) (Target, bool) {
	switch s {
	case "clash", "clashr", "surge", "surfboard", "mellow", "quan", "quanx",
		"loon", "singbox", "sssub", "ssd", "mixed":
		return Target(s), true
	case "v2ray":
		return TargetMixed, true
	default:
		return "", false
	}
}

// ExtraSettings carries the request-scoped knobs every codec reads. Tri-state
// globals fill node-level unset flags; a flag still unset after that is
// omitted from the output entirely.
type ExtraSettings struct {
	UDP            model.Tribool
	TCPFastOpen    model.Tribool
	SkipCertVerify model.Tribool
	TLS13          model.Tribool

	EnableRuleGenerator    bool
	OverwriteOriginalRules bool
	AppendProxyType        bool

	// Clash style: true emits proxies/proxy-groups/rules, false the legacy
	// Proxy/Proxy Group/Rule spellings. ClashR always uses legacy.
	ClashNewFieldName bool

	SurgeVer int

	// Surge managed-config preamble.
	ManagedConfigURL      string
	ManagedConfigInterval int
	ManagedConfigStrict   bool

	// Node-list dialects (sssub, mixed): wrap the line list in base64.
	Base64Output bool

	Filename string
}

type RenderError struct {
	AppError model.AppError
	Cause    error
}

func (e *RenderError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *RenderError) Unwrap() error { return e.Cause }

// Emit renders the resolved request into the target dialect's text. Nodes
// whose type the dialect cannot express are silently dropped; groups resolve
// against the filtered set so members never reference an omitted node.
func Emit(target Target, nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	if ext == nil {
		ext = &ExtraSettings{}
	}
	filtered := filterNodes(target, nodes, ext)

	switch target {
	case TargetClash, TargetClashR:
		return renderClash(target, filtered, base, rulesets, groups, ext)
	case TargetSurge:
		return renderSurge(filtered, base, rulesets, groups, ext)
	case TargetSurfboard:
		return renderSurfboard(filtered, base, rulesets, groups, ext)
	case TargetMellow:
		return renderMellow(filtered, base, rulesets, groups, ext)
	case TargetQuantumult:
		return renderQuan(filtered, base, rulesets, groups, ext)
	case TargetQuantumultX:
		return renderQuanX(filtered, base, rulesets, groups, ext)
	case TargetLoon:
		return renderLoon(filtered, base, rulesets, groups, ext)
	case TargetSingBox:
		return renderSingBox(filtered, base, rulesets, groups, ext)
	case TargetSSSub:
		return renderSSSub(filtered, ext)
	case TargetSSD:
		return renderSSD(filtered, ext)
	case TargetMixed:
		return renderMixed(filtered, ext)
	default:
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "UNSUPPORTED_TARGET",
				Message: fmt.Sprintf("不支持的 target：%s", target),
				Stage:   "render",
			},
		}
	}
}
