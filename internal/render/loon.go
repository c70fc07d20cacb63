package render

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
)

// renderLoon emits Loon's Surge-like INI layout.
func renderLoon(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	proxyLines := make([]string, 0, len(nodes))
	for i := range nodes {
		if line, ok := loonProxyLine(&nodes[i], ext); ok {
			proxyLines = append(proxyLines, line)
		}
	}

	resolved := expandGroups(groups, nodes)
	groupLines := make([]string, 0, len(resolved))
	for _, rg := range resolved {
		g := rg.Config
		var b strings.Builder
		fmt.Fprintf(&b, "%s = %s", g.Name, g.Type.String())
		for _, m := range rg.Members {
			b.WriteString(",")
			b.WriteString(m)
		}
		if g.UsesHealthCheck() {
			fmt.Fprintf(&b, ",url = %s,interval = %d", g.URL, g.Interval)
		}
		groupLines = append(groupLines, b.String())
	}

	return spliceINI(base, "Proxy", "Proxy Group", "Rule",
		proxyLines, groupLines, rulesets, rules.DialectLoon, ext), nil
}

func loonProxyLine(p *model.Proxy, ext *ExtraSettings) (string, bool) {
	var b strings.Builder
	switch p.Type {
	case model.TypeShadowsocks:
		fmt.Fprintf(&b, "%s = Shadowsocks,%s,%d,%s,\"%s\"", p.Remark, p.Hostname, p.Port, p.EncryptMethod, p.Password)
		if p.Plugin == "simple-obfs" || p.Plugin == "obfs-local" {
			opts := splitPluginOption(p.PluginOption)
			if mode := opts["obfs"]; mode != "" {
				fmt.Fprintf(&b, ",%s,%s", mode, opts["obfs-host"])
			}
		}
	case model.TypeShadowsocksR:
		fmt.Fprintf(&b, "%s = ShadowsocksR,%s,%d,%s,\"%s\",protocol=%s,protocol-param=%s,obfs=%s,obfs-param=%s", p.Remark, p.Hostname, p.Port, p.EncryptMethod, p.Password, p.Protocol, p.ProtocolParam, p.OBFS, p.OBFSParam)
	case model.TypeVMess:
		fmt.Fprintf(&b, "%s = vmess,%s,%d,%s,\"%s\",transport=%s", p.Remark, p.Hostname, p.Port, quanxCipher(p.EncryptMethod), p.UserID, defaultTransport(p.TransferProtocol))
		if p.TransferProtocol == "ws" {
			fmt.Fprintf(&b, ",path=%s,host=%s", p.Path, p.Host)
		}
		fmt.Fprintf(&b, ",over-tls=%t", p.TLSSecure)
		if p.TLSSecure && p.ServerName != "" {
			fmt.Fprintf(&b, ",tls-name=%s", p.ServerName)
		}
	case model.TypeTrojan:
		fmt.Fprintf(&b, "%s = trojan,%s,%d,\"%s\"", p.Remark, p.Hostname, p.Port, p.Password)
		if p.ServerName != "" {
			fmt.Fprintf(&b, ",tls-name=%s", p.ServerName)
		}
	case model.TypeHTTP, model.TypeHTTPS:
		scheme := "http"
		if p.Type == model.TypeHTTPS {
			scheme = "https"
		}
		fmt.Fprintf(&b, "%s = %s,%s,%d,%s,\"%s\"", p.Remark, scheme, p.Hostname, p.Port, p.Username, p.Password)
	case model.TypeSocks5:
		fmt.Fprintf(&b, "%s = Socks5,%s,%d,%s,\"%s\"", p.Remark, p.Hostname, p.Port, p.Username, p.Password)
	case model.TypeWireGuard:
		fmt.Fprintf(&b, "%s = wireguard,interface-ip=%s,private-key=%s,mtu=%d,peers=[{public-key=%s,allowed-ips=\"%s\",endpoint=%s:%d}]", p.Remark, p.SelfIP, p.PrivateKey, p.Mtu, p.PublicKey, p.AllowedIPs, p.Hostname, p.Port)
	case model.TypeHysteria2:
		fmt.Fprintf(&b, "%s = Hysteria2,%s,%d,\"%s\"", p.Remark, p.Hostname, p.Port, p.Password)
		if p.ServerName != "" {
			fmt.Fprintf(&b, ",sni=%s", p.ServerName)
		}
	default:
		return "", false
	}
	if v := triVal(p.UDP, ext.UDP); v != nil {
		fmt.Fprintf(&b, ",udp=%t", *v)
	}
	if v := triVal(p.TCPFastOpen, ext.TCPFastOpen); v != nil {
		fmt.Fprintf(&b, ",fast-open=%t", *v)
	}
	if v := triVal(p.AllowInsecure, ext.SkipCertVerify); v != nil {
		fmt.Fprintf(&b, ",skip-cert-verify=%t", *v)
	}
	return b.String(), true
}
