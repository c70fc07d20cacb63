package render

import (
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/resolve"
	"github.com/subforge/subforge/internal/rules"
)

// capability sets: which proxy types each dialect can express. A node whose
// type is missing from the target's set is dropped, never an error.
var capabilities = map[Target]map[model.ProxyType]bool{
	TargetClash: {
		model.TypeShadowsocks: true, model.TypeShadowsocksR: true,
		model.TypeVMess: true, model.TypeTrojan: true, model.TypeSnell: true,
		model.TypeHTTP: true, model.TypeHTTPS: true, model.TypeSocks5: true,
		model.TypeWireGuard: true, model.TypeHysteria: true, model.TypeHysteria2: true,
	},
	TargetSurge: {
		model.TypeShadowsocks: true, model.TypeVMess: true, model.TypeTrojan: true,
		model.TypeSnell: true, model.TypeHTTP: true, model.TypeHTTPS: true,
		model.TypeSocks5: true, model.TypeHysteria2: true,
	},
	TargetSurfboard: {
		model.TypeShadowsocks: true, model.TypeVMess: true, model.TypeTrojan: true,
		model.TypeHTTP: true, model.TypeHTTPS: true, model.TypeSocks5: true,
	},
	TargetMellow: {
		model.TypeShadowsocks: true, model.TypeVMess: true,
		model.TypeHTTP: true, model.TypeSocks5: true,
	},
	TargetQuantumult: {
		model.TypeShadowsocks: true, model.TypeShadowsocksR: true,
		model.TypeVMess: true, model.TypeHTTP: true, model.TypeSocks5: true,
	},
	TargetQuantumultX: {
		model.TypeShadowsocks: true, model.TypeShadowsocksR: true,
		model.TypeVMess: true, model.TypeTrojan: true,
		model.TypeHTTP: true, model.TypeSocks5: true,
	},
	TargetLoon: {
		model.TypeShadowsocks: true, model.TypeShadowsocksR: true,
		model.TypeVMess: true, model.TypeTrojan: true, model.TypeHTTP: true,
		model.TypeHTTPS: true, model.TypeSocks5: true,
		model.TypeWireGuard: true, model.TypeHysteria2: true,
	},
	TargetSingBox: {
		model.TypeShadowsocks: true, model.TypeVMess: true, model.TypeTrojan: true,
		model.TypeHTTP: true, model.TypeSocks5: true, model.TypeWireGuard: true,
		model.TypeHysteria: true, model.TypeHysteria2: true,
	},
	TargetSSSub: {model.TypeShadowsocks: true},
	TargetSSD:   {model.TypeShadowsocks: true},
	TargetMixed: {
		model.TypeShadowsocks: true, model.TypeShadowsocksR: true,
		model.TypeVMess: true, model.TypeTrojan: true, model.TypeHTTP: true,
		model.TypeHTTPS: true, model.TypeSocks5: true, model.TypeHysteria2: true,
	},
}

// filterNodes drops Unknown and dialect-unsupported nodes, applies the
// append_proxy_type remark prefix.
func filterNodes(target Target, nodes []model.Proxy, ext *ExtraSettings) []model.Proxy {
	caps := capabilities[target]
	out := make([]model.Proxy, 0, len(nodes))
	for _, p := range nodes {
		if p.Type == model.TypeUnknown || !caps[p.Type] {
			continue
		}
		if ext.AppendProxyType {
			p.Remark = "[" + p.TypeName() + "] " + p.Remark
		}
		out = append(out, p)
	}
	return out
}

// triVal resolves node flag against the request-global default. The returned
// pointer is nil when both are unset, meaning "omit from output".
func triVal(node, global model.Tribool) *bool {
	eff := node
	if !eff.IsSome() {
		eff = global
	}
	return eff.Ptr()
}

// triSuffix renders one ", key=true/false" fragment for INI dialects, empty
// when the flag resolves to unset.
func triSuffix(key string, node, global model.Tribool) string {
	v := triVal(node, global)
	if v == nil {
		return ""
	}
	if *v {
		return ", " + key + "=true"
	}
	return ", " + key + "=false"
}

// ruleLines translates every ruleset into dialect rule lines, in ruleset
// order. Untranslatable rule types are skipped.
func ruleLines(rulesets []model.RulesetContent, dialect rules.Dialect) []string {
	var out []string
	for _, rs := range rulesets {
		for _, r := range rs.Rules {
			if line, ok := rules.Translate(r, rs.Group, dialect); ok {
				out = append(out, line)
			}
		}
	}
	return out
}

// expandGroups resolves all groups against the filtered node universe.
func expandGroups(groups []model.ProxyGroupConfig, nodes []model.Proxy) []resolvedGroup {
	out := make([]resolvedGroup, 0, len(groups))
	for _, g := range groups {
		members, providers := resolve.Expand(g, nodes)
		out = append(out, resolvedGroup{Config: g, Members: members, Providers: providers})
	}
	return out
}

type resolvedGroup struct {
	Config    model.ProxyGroupConfig
	Members   []string
	Providers []string
}

// splitPluginOption breaks the canonical "k=v;k=v" plugin option string into
// a lookup map, preserving flag-only keys as empty values.
func splitPluginOption(opt string) map[string]string {
	out := map[string]string{}
	for _, part := range strings.Split(opt, ";") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		out[k] = v
	}
	return out
}

// trimNoResolve strips the ",no-resolve" tail structured dialects cannot
// carry inside a CIDR value.
func trimNoResolve(content string) string {
	out, _ := strings.CutSuffix(content, ",no-resolve")
	return out
}
