package link

import (
	"net/url"
	"strings"
)

// ParseSnell decodes snell://psk@host:port?version=2&obfs=http&obfs-host=...
// (a community link form; snell has no official URI scheme).
func ParseSnell(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "snell 链接不合法", "", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return Proxy{}, newParseError(line, "snell 缺少 psk", "", nil)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "snell 端口不合法", "", err)
	}

	q := u.Query()
	version := uint16(atoiOr(q.Get("version"), 1))
	if version == 0 {
		version = 1
	}
	p := Proxy{
		Type:         TypeSnell,
		Remark:       strings.TrimSpace(u.Fragment),
		Hostname:     u.Hostname(),
		Port:         port,
		Password:     u.User.Username(),
		SnellVersion: version,
		OBFS:         q.Get("obfs"),
		Host:         q.Get("obfs-host"),
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}
