package render

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
)

// renderQuanX emits the Quantumult X layout: [server_local], [policy],
// [filter_local].
func renderQuanX(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := quanxProxyLine(&nodes[i], ext); ok {
			proxyLines = append(proxyLines, line)
		}
	}

	resolved := expandGroups(groups, nodes)
	groupLines := make([]string, 0, len(resolved))
	for _, rg := range resolved {
		g := rg.Config
		kind := "static"
		switch g.Type {
		case model.GroupURLTest:
			kind = "url-latency-benchmark"
		case model.GroupFallback:
			kind = "available"
		case model.GroupLoadBalance:
			kind = "round-robin"
		}
		line := fmt.Sprintf("%s=%s", kind, g.Name)
		for _, m := range rg.Members {
			line += ", " + m
		}
		if g.UsesHealthCheck() && g.Interval > 0 {
			line += fmt.Sprintf(", check-interval=%d", g.Interval)
			if g.Tolerance > 0 {
				line += fmt.Sprintf(", tolerance=%d", g.Tolerance)
			}
		}
		groupLines = append(groupLines, line)
	}

	return spliceINI(base, "server_local", "policy", "filter_local",
		proxyLines, groupLines, rulesets, rules.DialectQuantumultX, ext), nil
}

func quanxProxyLine(p *model.Proxy, ext *ExtraSettings) (string, bool) {
	var b strings.Builder
	switch p.Type {
	case model.TypeShadowsocks:
		fmt.Fprintf(&b, "shadowsocks=%s:%d, method=%s, password=%s", p.Hostname, p.Port, p.EncryptMethod, p.Password)
		if p.Plugin == "simple-obfs" || p.Plugin == "obfs-local" {
			opts := splitPluginOption(p.PluginOption)
			if mode := opts["obfs"]; mode != "" {
				fmt.Fprintf(&b, ", obfs=%s", mode)
				if host := opts["obfs-host"]; host != "" {
					fmt.Fprintf(&b, ", obfs-host=%s", host)
				}
			}
		}
	case model.TypeShadowsocksR:
		fmt.Fprintf(&b, "shadowsocks=%s:%d, method=%s, password=%s, ssr-protocol=%s, obfs=%s", p.Hostname, p.Port, p.EncryptMethod, p.Password, p.Protocol, p.OBFS)
		if p.ProtocolParam != "" {
			fmt.Fprintf(&b, ", ssr-protocol-param=%s", p.ProtocolParam)
		}
		if p.OBFSParam != "" {
			fmt.Fprintf(&b, ", obfs-host=%s", p.OBFSParam)
		}
	case model.TypeVMess:
		fmt.Fprintf(&b, "vmess=%s:%d, method=%s, password=%s", p.Hostname, p.Port, quanxCipher(p.EncryptMethod), p.UserID)
		switch {
		case p.TransferProtocol == "ws" && p.TLSSecure:
			fmt.Fprintf(&b, ", obfs=wss, obfs-host=%s, obfs-uri=%s", p.Host, p.Path)
		case p.TransferProtocol == "ws":
			fmt.Fprintf(&b, ", obfs=ws, obfs-host=%s, obfs-uri=%s", p.Host, p.Path)
		case p.TLSSecure:
			fmt.Fprintf(&b, ", obfs=over-tls, obfs-host=%s", p.ServerName)
		}
	case model.TypeTrojan:
		fmt.Fprintf(&b, "trojan=%s:%d, password=%s, over-tls=true, tls-host=%s", p.Hostname, p.Port, p.Password, p.ServerName)
		if v := triVal(p.AllowInsecure, ext.SkipCertVerify); v != nil {
			fmt.Fprintf(&b, ", tls-verification=%t", !*v)
		}
	case model.TypeHTTP:
		fmt.Fprintf(&b, "http=%s:%d", p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", username=%s, password=%s", p.Username, p.Password)
		}
	case model.TypeSocks5:
		fmt.Fprintf(&b, "socks5=%s:%d", p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", username=%s, password=%s", p.Username, p.Password)
		}
	default:
		return "", false
	}
	if v := triVal(p.UDP, ext.UDP); v != nil {
		fmt.Fprintf(&b, ", udp-relay=%t", *v)
	}
	if v := triVal(p.TCPFastOpen, ext.TCPFastOpen); v != nil {
		fmt.Fprintf(&b, ", fast-open=%t", *v)
	}
	fmt.Fprintf(&b, ", tag=%s", p.Remark)
	return b.String(), true
}

// quanxCipher maps cipher spellings QuanX rejects onto accepted ones.
func quanxCipher(method string) string {
	switch method {
	case "auto", "":
		return "chacha20-ietf-poly1305"
	default:
		return method
	}
}
