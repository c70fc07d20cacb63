package link

import (
	"net/url"
	"strings"

	"github.com/subforge/subforge/internal/model"
)

// ParseTrojan decodes trojan://password@host:port?sni=...&allowInsecure=1
// &type=ws&host=...&path=...#remark.
func ParseTrojan(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "trojan 链接不合法", "", err)
	}
	if u.User == nil || u.User.Username() == "" {
		return Proxy{}, newParseError(line, "trojan 缺少密码", "", nil)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "trojan 端口不合法", "", err)
	}

	q := u.Query()
	p := Proxy{
		Type:       TypeTrojan,
		Remark:     strings.TrimSpace(u.Fragment),
		Hostname:   u.Hostname(),
		Port:       port,
		Password:   u.User.Username(),
		TLSSecure:  true,
		ServerName: firstNonEmpty(q.Get("sni"), q.Get("peer")),
		Group:      q.Get("group"),
	}
	switch q.Get("type") {
	case "ws":
		p.TransferProtocol = "ws"
		p.Host = q.Get("host")
		p.Path = defaultStr(q.Get("path"), "/")
	case "grpc":
		p.TransferProtocol = "grpc"
		p.Path = q.Get("serviceName")
	default:
		p.TransferProtocol = "tcp"
	}
	switch q.Get("allowInsecure") {
	case "1", "true":
		p.AllowInsecure = model.NewTribool(true)
	case "0", "false":
		p.AllowInsecure = model.NewTribool(false)
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// EncodeTrojan renders the canonical trojan link.
func EncodeTrojan(p *Proxy) string {
	var b strings.Builder
	b.WriteString("trojan://")
	b.WriteString(pctEncode(p.Password))
	b.WriteByte('@')
	b.WriteString(bracketHost(p.Hostname))
	b.WriteByte(':')
	b.WriteString(itoa(int(p.Port)))

	q := make([]string, 0, 4)
	if p.AllowInsecure.IsSome() && p.AllowInsecure.Get() {
		q = append(q, "allowInsecure=1")
	}
	if p.ServerName != "" {
		q = append(q, "sni="+pctEncode(p.ServerName))
	}
	if p.TransferProtocol == "ws" {
		q = append(q, "type=ws")
		if p.Host != "" {
			q = append(q, "host="+pctEncode(p.Host))
		}
		if p.Path != "" {
			q = append(q, "path="+pctEncode(p.Path))
		}
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

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
