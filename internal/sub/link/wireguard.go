package link

import (
	"net/url"
	"strings"
)

// ParseWireGuard decodes the community wg:// form:
// wg://host:port?private-key=...&public-key=...&ip=10.0.0.2&ipv6=...&mtu=1420
// &preshared-key=...&dns=1.1.1.1,8.8.8.8#remark
func ParseWireGuard(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "wireguard 链接不合法", "", err)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "wireguard 端口不合法", "", err)
	}

	q := u.Query()
	privKey := firstNonEmpty(q.Get("private-key"), q.Get("privatekey"))
	if privKey == "" && u.User != nil {
		privKey = u.User.Username()
	}
	if privKey == "" {
		return Proxy{}, newParseError(line, "wireguard 缺少 private-key", "", nil)
	}

	p := Proxy{
		Type:         TypeWireGuard,
		Remark:       strings.TrimSpace(u.Fragment),
		Hostname:     u.Hostname(),
		Port:         port,
		PrivateKey:   privKey,
		PublicKey:    firstNonEmpty(q.Get("public-key"), q.Get("publickey")),
		PreSharedKey: firstNonEmpty(q.Get("preshared-key"), q.Get("presharedkey")),
		SelfIP:       q.Get("ip"),
		SelfIPv6:     q.Get("ipv6"),
		Mtu:          uint16(atoiOr(q.Get("mtu"), 0)),
		KeepAlive:    uint16(atoiOr(q.Get("keepalive"), 0)),
		AllowedIPs:   q.Get("allowed-ips"),
	}
	if dns := q.Get("dns"); dns != "" {
		for _, d := range strings.Split(dns, ",") {
			if d = strings.TrimSpace(d); d != "" {
				p.DNSServers = append(p.DNSServers, d)
			}
		}
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}
