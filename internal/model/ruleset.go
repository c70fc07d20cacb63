package model

// Canonical rule types. FINAL carries no content.
const (
	RuleDomain        = "DOMAIN"
	RuleDomainSuffix  = "DOMAIN-SUFFIX"
	RuleDomainKeyword = "DOMAIN-KEYWORD"
	RuleIPCIDR        = "IP-CIDR"
	RuleIPCIDR6       = "IP-CIDR6"
	RuleGeoIP         = "GEOIP"
	RuleUserAgent     = "USER-AGENT"
	RuleFinal         = "FINAL"
)

// Rule is one abstract routing rule. Content may carry a trailing
// ",no-resolve" option which translators pass through for dialects that
// support it.
type Rule struct {
	Type    string
	Content string
}

// RulesetContent is a named, ordered rule group. Group is the ruleset's own
// destination (usually a proxy-group name), distinct from any
// ProxyGroupConfig.Name namespace rules.
type RulesetContent struct {
	Group string
	Rules []Rule
}
