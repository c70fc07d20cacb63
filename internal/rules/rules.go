// Package rules parses ruleset text into canonical rules and translates them
// into each target dialect's keyword and column layout.
package rules

import (
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

// canonical rule type spellings accepted on input, mapped to model constants.
var ruleTypeAliases = map[string]string{
	"DOMAIN":         model.RuleDomain,
	"DOMAIN-SUFFIX":  model.RuleDomainSuffix,
	"DOMAIN-KEYWORD": model.RuleDomainKeyword,
	"HOST":           model.RuleDomain,
	"HOST-SUFFIX":    model.RuleDomainSuffix,
	"HOST-KEYWORD":   model.RuleDomainKeyword,
	"IP-CIDR":        model.RuleIPCIDR,
	"IP-CIDR6":       model.RuleIPCIDR6,
	"IP6-CIDR":       model.RuleIPCIDR6,
	"GEOIP":          model.RuleGeoIP,
	"USER-AGENT":     model.RuleUserAgent,
	"FINAL":          model.RuleFinal,
	"MATCH":          model.RuleFinal,
}

// ParseRulesetText parses one ruleset file. Comments and unrecognized rule
// types are skipped silently; the call fails only when the text yields no
// rules at all. sourceURL labels the error.
func ParseRulesetText(sourceURL, text string) ([]model.Rule, error) {
	lines := strings.Split(text, "\n")
	out := make([]model.Rule, 0, len(lines))
	for _, raw := range lines {
		line := strings.TrimSpace(strings.TrimSuffix(raw, "\r"))
		if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, ";") || strings.HasPrefix(line, "//") {
			continue
		}

		typ, rest, _ := strings.Cut(line, ",")
		canonical, ok := ruleTypeAliases[strings.ToUpper(strings.TrimSpace(typ))]
		if !ok {
			continue
		}
		content := strings.TrimSpace(rest)
		if canonical == model.RuleFinal {
			content = ""
		} else if content == "" {
			continue
		}
		out = append(out, model.Rule{Type: canonical, Content: content})
	}
	if len(out) == 0 {
		return nil, &ParseError{
			AppError: model.AppError{
				Code:    "RULESET_PARSE_ERROR",
				Message: "ruleset 中没有任何可用规则",
				Stage:   "parse_ruleset",
				URL:     sourceURL,
			},
		}
	}
	return out, nil
}

// Dialect selects a rule keyword table. Declared here rather than in the
// renderers so translation stays independently testable.
type Dialect string

const (
	DialectClash       Dialect = "clash"
	DialectSurge       Dialect = "surge"
	DialectSurfboard   Dialect = "surfboard"
	DialectMellow      Dialect = "mellow"
	DialectLoon        Dialect = "loon"
	DialectQuantumult  Dialect = "quan"
	DialectQuantumultX Dialect = "quanx"
)

// keyword tables per dialect. A missing entry means the dialect cannot
// express that rule type and the rule is dropped.
var dialectKeywords = map[Dialect]map[string]string{
	DialectClash: {
		model.RuleDomain:        "DOMAIN",
		model.RuleDomainSuffix:  "DOMAIN-SUFFIX",
		model.RuleDomainKeyword: "DOMAIN-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleIPCIDR6:       "IP-CIDR6",
		model.RuleGeoIP:         "GEOIP",
		model.RuleFinal:         "MATCH",
	},
	DialectSurge: {
		model.RuleDomain:        "DOMAIN",
		model.RuleDomainSuffix:  "DOMAIN-SUFFIX",
		model.RuleDomainKeyword: "DOMAIN-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleIPCIDR6:       "IP-CIDR6",
		model.RuleGeoIP:         "GEOIP",
		model.RuleUserAgent:     "USER-AGENT",
		model.RuleFinal:         "FINAL",
	},
	DialectSurfboard: {
		model.RuleDomain:        "DOMAIN",
		model.RuleDomainSuffix:  "DOMAIN-SUFFIX",
		model.RuleDomainKeyword: "DOMAIN-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleIPCIDR6:       "IP-CIDR6",
		model.RuleGeoIP:         "GEOIP",
		model.RuleFinal:         "FINAL",
	},
	DialectMellow: {
		model.RuleDomain:        "DOMAIN",
		model.RuleDomainSuffix:  "DOMAIN-SUFFIX",
		model.RuleDomainKeyword: "DOMAIN-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleGeoIP:         "GEOIP",
		model.RuleFinal:         "FINAL",
	},
	DialectLoon: {
		model.RuleDomain:        "DOMAIN",
		model.RuleDomainSuffix:  "DOMAIN-SUFFIX",
		model.RuleDomainKeyword: "DOMAIN-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleIPCIDR6:       "IP-CIDR6",
		model.RuleGeoIP:         "GEOIP",
		model.RuleUserAgent:     "USER-AGENT",
		model.RuleFinal:         "FINAL",
	},
	DialectQuantumult: {
		model.RuleDomain:        "HOST",
		model.RuleDomainSuffix:  "HOST-SUFFIX",
		model.RuleDomainKeyword: "HOST-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleGeoIP:         "GEOIP",
		model.RuleUserAgent:     "USER-AGENT",
		model.RuleFinal:         "FINAL",
	},
	DialectQuantumultX: {
		model.RuleDomain:        "HOST",
		model.RuleDomainSuffix:  "HOST-SUFFIX",
		model.RuleDomainKeyword: "HOST-KEYWORD",
		model.RuleIPCIDR:        "IP-CIDR",
		model.RuleIPCIDR6:       "IP6-CIDR",
		model.RuleGeoIP:         "GEOIP",
		model.RuleUserAgent:     "USER-AGENT",
		model.RuleFinal:         "FINAL",
	},
}

// Translate renders one rule as a dialect line targeting targetGroup. The
// second result is false when the dialect has no keyword for the rule type.
// A trailing ",no-resolve" on the content moves behind the group column.
func Translate(rule model.Rule, targetGroup string, dialect Dialect) (string, bool) {
	table, ok := dialectKeywords[dialect]
	if !ok {
		return "", false
	}
	keyword, ok := table[rule.Type]
	if !ok {
		return "", false
	}
	if rule.Type == model.RuleFinal {
		return keyword + "," + targetGroup, true
	}

	content := rule.Content
	suffix := ""
	if trimmed, found := strings.CutSuffix(content, ",no-resolve"); found {
		content = trimmed
		suffix = ",no-resolve"
	}
	return keyword + "," + content + "," + targetGroup + suffix, true
}
