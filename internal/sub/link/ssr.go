package link

import (
	"strings"
)

// ParseSSR decodes ssr://b64(server:port:protocol:method:obfs:b64(password)/?
// obfsparam=b64&protoparam=b64&remarks=b64&group=b64). Every query value is
// base64 again, URL-safe flavored.
func ParseSSR(line string) (Proxy, error) {
	payload := strings.TrimPrefix(line, "ssr://")
	decoded, err := decodeB64String(payload)
	if err != nil {
		return Proxy{}, newParseError(line, "ssr base64 解码失败", "", err)
	}

	main, query, _ := strings.Cut(decoded, "/?")
	main = strings.TrimSuffix(main, "/")

	// Split from the right: the server part may be an unbracketed IPv6.
	fields := make([]string, 0, 6)
	rest := main
	for i := 0; i < 5; i++ {
		idx := strings.LastIndexByte(rest, ':')
		if idx < 0 {
			return Proxy{}, newParseError(line, "ssr 链接字段数量不合法", "expected: server:port:protocol:method:obfs:password", nil)
		}
		fields = append(fields, rest[idx+1:])
		rest = rest[:idx]
	}
	fields = append(fields, rest)
	// fields is reversed: [password, obfs, method, protocol, port, server].

	password, err := decodeB64String(fields[0])
	if err != nil {
		return Proxy{}, newParseError(line, "ssr password base64 解码失败", "", err)
	}
	port, err := parsePort(fields[4])
	if err != nil {
		return Proxy{}, newParseError(line, "ssr 端口不合法", "", err)
	}
	host := strings.Trim(fields[5], "[]")
	if host == "" {
		return Proxy{}, newParseError(line, "ssr 服务器地址不能为空", "", nil)
	}

	p := Proxy{
		Type:          TypeShadowsocksR,
		Hostname:      host,
		Port:          port,
		Protocol:      fields[3],
		EncryptMethod: fields[2],
		OBFS:          fields[1],
		Password:      password,
	}

	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		decoded, derr := decodeB64String(v)
		if derr != nil {
			// Optional metadata; a bad value loses the field, not the node.
			continue
		}
		switch k {
		case "obfsparam":
			p.OBFSParam = decoded
		case "protoparam":
			p.ProtocolParam = decoded
		case "remarks":
			p.Remark = strings.TrimSpace(decoded)
		case "group":
			p.Group = decoded
		}
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// EncodeSSR renders the canonical ssr link.
func EncodeSSR(p *Proxy) string {
	main := strings.Join([]string{
		p.Hostname,
		itoa(int(p.Port)),
		p.Protocol,
		p.EncryptMethod,
		p.OBFS,
		urlSafeB64Encode(p.Password),
	}, ":")
	query := "/?obfsparam=" + urlSafeB64Encode(p.OBFSParam) +
		"&protoparam=" + urlSafeB64Encode(p.ProtocolParam) +
		"&remarks=" + urlSafeB64Encode(p.Remark) +
		"&group=" + urlSafeB64Encode(p.Group)
	return "ssr://" + urlSafeB64Encode(main+query)
}
