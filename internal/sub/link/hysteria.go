package link

import (
	"net/url"
	"strings"

	"github.com/subforge/subforge/internal/model"
)

// ParseHysteria decodes the legacy hysteria:// form:
// hysteria://host:port?auth=...&upmbps=50&downmbps=100&obfs=xplus&alpn=h3
// &peer=sni.example.com&insecure=1#remark
func ParseHysteria(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "hysteria 链接不合法", "", err)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "hysteria 端口不合法", "", err)
	}

	q := u.Query()
	p := Proxy{
		Type:       TypeHysteria,
		Remark:     strings.TrimSpace(u.Fragment),
		Hostname:   u.Hostname(),
		Port:       port,
		AuthStr:    firstNonEmpty(q.Get("auth"), q.Get("auth_str")),
		UpSpeed:    uint32(atoiOr(q.Get("upmbps"), 0)),
		DownSpeed:  uint32(atoiOr(q.Get("downmbps"), 0)),
		OBFS:       q.Get("obfs"),
		ServerName: firstNonEmpty(q.Get("peer"), q.Get("sni")),
		Ports:      q.Get("mport"),
		FakeType:   q.Get("protocol"),
	}
	if alpn := q.Get("alpn"); alpn != "" {
		p.Alpn = splitAlpn(alpn)
	}
	if q.Get("insecure") == "1" || q.Get("insecure") == "true" {
		p.AllowInsecure = model.NewTribool(true)
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// ParseHysteria2 decodes hysteria2://auth@host:port?obfs=salamander
// &obfs-password=...&sni=...&insecure=1&pinSHA256=...#remark (hy2:// alias).
func ParseHysteria2(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "hysteria2 链接不合法", "", err)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "hysteria2 端口不合法", "", err)
	}

	q := u.Query()
	p := Proxy{
		Type:         TypeHysteria2,
		Remark:       strings.TrimSpace(u.Fragment),
		Hostname:     u.Hostname(),
		Port:         port,
		OBFS:         q.Get("obfs"),
		OBFSPassword: q.Get("obfs-password"),
		ServerName:   q.Get("sni"),
		Fingerprint:  q.Get("pinSHA256"),
		Ports:        q.Get("mport"),
		UpSpeed:      uint32(atoiOr(q.Get("up"), 0)),
		DownSpeed:    uint32(atoiOr(q.Get("down"), 0)),
	}
	if u.User != nil {
		p.Password = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			p.Password += ":" + pw
		}
	}
	if q.Get("insecure") == "1" || q.Get("insecure") == "true" {
		p.AllowInsecure = model.NewTribool(true)
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// EncodeHysteria2 renders the canonical hysteria2 link.
func EncodeHysteria2(p *Proxy) string {
	var b strings.Builder
	b.WriteString("hysteria2://")
	if p.Password != "" {
		b.WriteString(pctEncode(p.Password))
		b.WriteByte('@')
	}
	b.WriteString(bracketHost(p.Hostname))
	b.WriteByte(':')
	b.WriteString(itoa(int(p.Port)))

	q := make([]string, 0, 4)
	if p.OBFS != "" {
		q = append(q, "obfs="+pctEncode(p.OBFS))
		if p.OBFSPassword != "" {
			q = append(q, "obfs-password="+pctEncode(p.OBFSPassword))
		}
	}
	if p.ServerName != "" {
		q = append(q, "sni="+pctEncode(p.ServerName))
	}
	if p.AllowInsecure.IsSome() && p.AllowInsecure.Get() {
		q = append(q, "insecure=1")
	}
	if len(q) > 0 {
		b.WriteByte('?')
		b.WriteString(strings.Join(q, "&"))
	}
	if p.Remark != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Remark))
	}
	return b.String()
}
