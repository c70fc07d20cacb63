package render

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
)

// renderMellow emits the Mellow INI layout: endpoints in [Endpoint], groups
// in [EndpointGroup], rules in [RoutingRule].
func renderMellow(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := mellowProxyLine(&nodes[i]); ok {
			proxyLines = append(proxyLines, line)
		}
	}

	resolved := expandGroups(groups, nodes)
	groupLines := make([]string, 0, len(resolved))
	for _, rg := range resolved {
		g := rg.Config
		var b strings.Builder
		fmt.Fprintf(&b, "%s, %s", g.Name, strings.Join(rg.Members, ":"))
		if g.UsesHealthCheck() {
			fmt.Fprintf(&b, ", latency, interval=%d", g.Interval)
			if g.Timeout > 0 {
				fmt.Fprintf(&b, ", timeout=%d", g.Timeout)
			}
		}
		groupLines = append(groupLines, b.String())
	}

	return spliceINI(base, "Endpoint", "EndpointGroup", "RoutingRule",
		proxyLines, groupLines, rulesets, rules.DialectMellow, ext), nil
}

func mellowProxyLine(p *model.Proxy) (string, bool) {
	switch p.Type {
	case model.TypeShadowsocks:
		if p.Plugin != "" {
			return "", false
		}
		return fmt.Sprintf("%s, ss, ss://%s:%s@%s:%d", p.Remark, p.EncryptMethod, p.Password, p.Hostname, p.Port), true
	case model.TypeVMess:
		var b strings.Builder
		fmt.Fprintf(&b, "%s, vmess1, vmess1://%s@%s:%d", p.Remark, p.UserID, p.Hostname, p.Port)
		if p.Path != "" {
			b.WriteString(p.Path)
		}
		query := []string{"network=" + defaultTransport(p.TransferProtocol)}
		if p.Host != "" {
			query = append(query, "ws.host="+p.Host)
		}
		if p.TLSSecure {
			query = append(query, "tls=true")
			if p.ServerName != "" {
				query = append(query, "tls.servername="+p.ServerName)
			}
		}
		b.WriteString("?" + strings.Join(query, "&"))
		return b.String(), true
	case model.TypeSocks5:
		if p.Username != "" {
			return fmt.Sprintf("%s, builtin, socks, address=%s, port=%d, user=%s, pass=%s", p.Remark, p.Hostname, p.Port, p.Username, p.Password), true
		}
		return fmt.Sprintf("%s, builtin, socks, address=%s, port=%d", p.Remark, p.Hostname, p.Port), true
	case model.TypeHTTP:
		return fmt.Sprintf("%s, builtin, http, address=%s, port=%d", p.Remark, p.Hostname, p.Port), true
	default:
		return "", false
	}
}

func defaultTransport(network string) string {
	if network == "" {
		return "tcp"
	}
	return network
}
