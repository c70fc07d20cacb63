package link

import (
	"net/url"
	"strings"
)

// ParseHTTP decodes http:// and https:// proxy links with optional
// user:pass@ credentials.
func ParseHTTP(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "http 链接不合法", "", err)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "http 端口不合法", "", err)
	}

	typ := TypeHTTP
	if u.Scheme == "https" {
		typ = TypeHTTPS
	}
	p := Proxy{
		Type:      typ,
		Remark:    strings.TrimSpace(u.Fragment),
		Hostname:  u.Hostname(),
		Port:      port,
		TLSSecure: typ == TypeHTTPS,
	}
	if u.User != nil {
		p.Username = u.User.Username()
		p.Password, _ = u.User.Password()
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// ParseSocks decodes socks:// links. The userinfo is either plain user:pass
// or the whole pair base64-encoded (telegram-share style).
func ParseSocks(line string) (Proxy, error) {
	u, err := url.Parse(line)
	if err != nil {
		return Proxy{}, newParseError(line, "socks 链接不合法", "", err)
	}
	port, err := parsePort(u.Port())
	if err != nil {
		return Proxy{}, newParseError(line, "socks 端口不合法", "", err)
	}

	p := Proxy{
		Type:     TypeSocks5,
		Remark:   strings.TrimSpace(u.Fragment),
		Hostname: u.Hostname(),
		Port:     port,
	}
	if u.User != nil {
		user := u.User.Username()
		pass, hasPass := u.User.Password()
		if !hasPass {
			if decoded, derr := decodeB64String(user); derr == nil && strings.Contains(decoded, ":") {
				user, pass, _ = strings.Cut(decoded, ":")
			}
		}
		p.Username = user
		p.Password = pass
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// EncodeHTTP renders the canonical http(s) link.
func EncodeHTTP(p *Proxy) string {
	scheme := "http"
	if p.Type == TypeHTTPS {
		scheme = "https"
	}
	var b strings.Builder
	b.WriteString(scheme)
	b.WriteString("://")
	if p.Username != "" {
		b.WriteString(pctEncode(p.Username))
		if p.Password != "" {
			b.WriteByte(':')
			b.WriteString(pctEncode(p.Password))
		}
		b.WriteByte('@')
	}
	b.WriteString(bracketHost(p.Hostname))
	b.WriteByte(':')
	b.WriteString(itoa(int(p.Port)))
	if p.Remark != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Remark))
	}
	return b.String()
}

// EncodeSocks renders the canonical socks link with base64 userinfo.
func EncodeSocks(p *Proxy) string {
	var b strings.Builder
	b.WriteString("socks://")
	if p.Username != "" || p.Password != "" {
		b.WriteString(urlSafeB64Encode(p.Username + ":" + p.Password))
		b.WriteByte('@')
	}
	b.WriteString(bracketHost(p.Hostname))
	b.WriteByte(':')
	b.WriteString(itoa(int(p.Port)))
	if p.Remark != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Remark))
	}
	return b.String()
}
