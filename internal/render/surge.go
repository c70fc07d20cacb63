package render

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
	"github.com/subforge/subforge/internal/template"
)

// renderSurge emits a Surge 3/4 INI config by splicing [Proxy],
// [Proxy Group] and [Rule] into the base template.
func renderSurge(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	ver := ext.SurgeVer
	if ver == 0 {
		ver = 3
	}

	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := surgeProxyLine(&nodes[i], ver, ext); ok {
			proxyLines = append(proxyLines, line)
		}
	}

	out := spliceINI(base, "Proxy", "Proxy Group", "Rule",
		proxyLines, surgeGroupLines(groups, nodes), rulesets, rules.DialectSurge, ext)

	if ext.ManagedConfigURL != "" {
		managed, err := template.EnsureManagedConfig(out, ext.ManagedConfigURL, ext.ManagedConfigInterval, ext.ManagedConfigStrict)
		if err != nil {
			return "", err
		}
		out = managed
	}
	return out, nil
}

// renderSurfboard reuses the Surge section layout with Surfboard's narrower
// proxy syntax.
func renderSurfboard(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := surgeProxyLine(&nodes[i], 3, ext); ok {
			proxyLines = append(proxyLines, line)
		}
	}
	return spliceINI(base, "Proxy", "Proxy Group", "Rule",
		proxyLines, surgeGroupLines(groups, nodes), rulesets, rules.DialectSurfboard, ext), nil
}

// spliceINI is the shared section merge for Surge-layout dialects: proxies
// and groups always overwrite their sections, rules honor the overwrite flag.
func spliceINI(base, proxySec, groupSec, ruleSec string, proxyLines, groupLines []string, rulesets []model.RulesetContent, dialect rules.Dialect, ext *ExtraSettings) string {
	doc := template.ParseINI(base)
	doc.Replace(proxySec, proxyLines)
	doc.Replace(groupSec, groupLines)
	if ext.EnableRuleGenerator {
		generated := ruleLines(rulesets, dialect)
		if ext.OverwriteOriginalRules {
			doc.Replace(ruleSec, generated)
		} else {
			doc.Append(ruleSec, generated)
		}
	}
	return doc.String()
}

func surgeProxyLine(p *model.Proxy, ver int, ext *ExtraSettings) (string, bool) {
	var b strings.Builder
	fmt.Fprintf(&b, "%s = ", p.Remark)

	switch p.Type {
	case model.TypeShadowsocks:
		if ver >= 3 {
			fmt.Fprintf(&b, "ss, %s, %d, encrypt-method=%s, password=%s", p.Hostname, p.Port, p.EncryptMethod, p.Password)
		} else {
			fmt.Fprintf(&b, "custom, %s, %d, %s, %s, https://github.com/pobizhe/SSEncrypt/raw/master/SSEncrypt.module", p.Hostname, p.Port, p.EncryptMethod, p.Password)
		}
		if p.Plugin == "simple-obfs" || p.Plugin == "obfs-local" {
			opts := splitPluginOption(p.PluginOption)
			if mode := opts["obfs"]; mode != "" {
				fmt.Fprintf(&b, ", obfs=%s", mode)
				if host := opts["obfs-host"]; host != "" {
					fmt.Fprintf(&b, ", obfs-host=%s", host)
				}
			}
		} else if p.Plugin != "" {
			// Surge has no other SS plugin support.
			return "", false
		}
	case model.TypeVMess:
		if ver < 4 {
			return "", false
		}
		fmt.Fprintf(&b, "vmess, %s, %d, username=%s", p.Hostname, p.Port, p.UserID)
		if p.TransferProtocol == "ws" {
			fmt.Fprintf(&b, ", ws=true, ws-path=%s", p.Path)
			if p.Host != "" {
				fmt.Fprintf(&b, ", ws-headers=Host:%s", p.Host)
			}
		}
		if p.TLSSecure {
			b.WriteString(", tls=true")
			if p.ServerName != "" {
				fmt.Fprintf(&b, ", sni=%s", p.ServerName)
			}
		}
	case model.TypeTrojan:
		fmt.Fprintf(&b, "trojan, %s, %d, password=%s", p.Hostname, p.Port, p.Password)
		if p.ServerName != "" {
			fmt.Fprintf(&b, ", sni=%s", p.ServerName)
		}
	case model.TypeSnell:
		fmt.Fprintf(&b, "snell, %s, %d, psk=%s", p.Hostname, p.Port, p.Password)
		if p.SnellVersion > 0 {
			fmt.Fprintf(&b, ", version=%d", p.SnellVersion)
		}
		if p.OBFS != "" {
			fmt.Fprintf(&b, ", obfs=%s", p.OBFS)
			if p.Host != "" {
				fmt.Fprintf(&b, ", obfs-host=%s", p.Host)
			}
		}
	case model.TypeHTTP, model.TypeHTTPS:
		fmt.Fprintf(&b, "http, %s, %d", p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", %s, %s", p.Username, p.Password)
		}
		if p.Type == model.TypeHTTPS {
			b.WriteString(", tls=true")
		}
	case model.TypeSocks5:
		fmt.Fprintf(&b, "socks5, %s, %d", p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", %s, %s", p.Username, p.Password)
		}
	case model.TypeHysteria2:
		if ver < 4 {
			return "", false
		}
		fmt.Fprintf(&b, "hysteria2, %s, %d, password=%s", p.Hostname, p.Port, p.Password)
		if p.ServerName != "" {
			fmt.Fprintf(&b, ", sni=%s", p.ServerName)
		}
	default:
		return "", false
	}

	b.WriteString(triSuffix("udp-relay", p.UDP, ext.UDP))
	b.WriteString(triSuffix("tfo", p.TCPFastOpen, ext.TCPFastOpen))
	b.WriteString(triSuffix("skip-cert-verify", p.AllowInsecure, ext.SkipCertVerify))
	b.WriteString(triSuffix("tls13", p.TLS13, ext.TLS13))
	return b.String(), true
}

func surgeGroupLines(groups []model.ProxyGroupConfig, nodes []model.Proxy) []string {
	resolved := expandGroups(groups, nodes)
	lines := make([]string, 0, len(resolved))
	for _, rg := range resolved {
		g := rg.Config
		var b strings.Builder
		fmt.Fprintf(&b, "%s = %s", g.Name, g.Type.String())
		for _, m := range rg.Members {
			b.WriteString(", ")
			b.WriteString(m)
		}
		if g.UsesHealthCheck() {
			fmt.Fprintf(&b, ", url=%s, interval=%d", g.URL, g.Interval)
			if g.Tolerance > 0 {
				fmt.Fprintf(&b, ", tolerance=%d", g.Tolerance)
			}
			if g.Timeout > 0 {
				fmt.Fprintf(&b, ", timeout=%d", g.Timeout)
			}
		}
		lines = append(lines, b.String())
	}
	return lines
}
