package render

import (
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
)

// renderQuan emits the legacy Quantumult INI layout. The whole config comes
// back base64-wrapped when requested, which is how Quantumult imports remote
// configs.
func renderQuan(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := quanProxyLine(&nodes[i], ext); ok {
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
			kind = "auto"
		case model.GroupFallback:
			kind = "back"
		case model.GroupLoadBalance:
			kind = "balance, round-robin"
		}
		line := fmt.Sprintf("%s : %s", g.Name, kind)
		for _, m := range rg.Members {
			line += ", " + m
		}
		groupLines = append(groupLines, line)
	}

	out := spliceINI(base, "SERVER", "POLICY", "FILTER",
		proxyLines, groupLines, rulesets, rules.DialectQuantumult, ext)
	if ext.Base64Output {
		return base64.StdEncoding.EncodeToString([]byte(out)), nil
	}
	return out, nil
}

// quanProxyLine follows Quantumult's custom line grammar, one comma-joined
// record per node with the tag up front.
func quanProxyLine(p *model.Proxy, ext *ExtraSettings) (string, bool) {
	var b strings.Builder
	switch p.Type {
	case model.TypeShadowsocks:
		fmt.Fprintf(&b, "%s = shadowsocks, %s, %d, %s, \"%s\", group=%s", p.Remark, p.Hostname, p.Port, p.EncryptMethod, p.Password, quanGroup(p))
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
		fmt.Fprintf(&b, "%s = shadowsocksr, %s, %d, %s, \"%s\", group=%s, protocol=%s, obfs=%s", p.Remark, p.Hostname, p.Port, p.EncryptMethod, p.Password, quanGroup(p), p.Protocol, p.OBFS)
		if p.ProtocolParam != "" {
			fmt.Fprintf(&b, ", protocol_param=%s", p.ProtocolParam)
		}
		if p.OBFSParam != "" {
			fmt.Fprintf(&b, ", obfs_param=%s", p.OBFSParam)
		}
	case model.TypeVMess:
		fmt.Fprintf(&b, "%s = vmess, %s, %d, %s, \"%s\", group=%s", p.Remark, p.Hostname, p.Port, p.EncryptMethod, p.UserID, quanGroup(p))
		if p.TLSSecure {
			fmt.Fprintf(&b, ", over-tls=true, tls-host=%s", p.ServerName)
			if v := triVal(p.AllowInsecure, ext.SkipCertVerify); v != nil {
				fmt.Fprintf(&b, ", certificate=%t", !*v)
			}
		}
		if p.TransferProtocol == "ws" {
			fmt.Fprintf(&b, ", obfs=ws, obfs-path=\"%s\", obfs-header=\"Host: %s\"", p.Path, p.Host)
		}
	case model.TypeHTTP:
		fmt.Fprintf(&b, "%s = http, upstream-proxy-address=%s, upstream-proxy-port=%d", p.Remark, p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", upstream-proxy-auth=true, upstream-proxy-username=%s, upstream-proxy-password=%s", p.Username, p.Password)
		}
	case model.TypeSocks5:
		fmt.Fprintf(&b, "%s = socks, upstream-proxy-address=%s, upstream-proxy-port=%d", p.Remark, p.Hostname, p.Port)
		if p.Username != "" {
			fmt.Fprintf(&b, ", upstream-proxy-auth=true, upstream-proxy-username=%s, upstream-proxy-password=%s", p.Username, p.Password)
		}
	default:
		return "", false
	}
	b.WriteString(triSuffix("udp-relay", p.UDP, ext.UDP))
	b.WriteString(triSuffix("fast-open", p.TCPFastOpen, ext.TCPFastOpen))
	return b.String(), true
}

func quanGroup(p *model.Proxy) string {
	if p.Group != "" {
		return p.Group
	}
	return "SSRProvider"
}
