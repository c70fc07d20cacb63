package link

import (
	"strings"
)

// ParseSS accepts both historical shadowsocks link shapes:
//
//	SIP002: ss://b64(method:password)@host:port/?plugin=...#remark
//	legacy: ss://b64(method:password@host:port)#remark
//
// The password may legitimately contain ':'; splitting stops at the first
// colon and keeps the remainder intact.
func ParseSS(line string) (p Proxy, err error) {
	rest, remark, err := splitFragment(line)
	if err != nil {
		return Proxy{}, newParseError(line, "节点名称 URL 解码失败", "", err)
	}

	rest = strings.TrimPrefix(rest, "ss://")
	if rest == "" {
		return Proxy{}, newParseError(line, "ss:// 后缺少内容", "", nil)
	}

	var query string
	rest, query, _ = strings.Cut(rest, "?")
	rest = strings.TrimSuffix(rest, "/")

	plugin, pluginOpt, group, err := parseSSQuery(line, query)
	if err != nil {
		return Proxy{}, err
	}

	var method, password, hostPort string
	if at := strings.LastIndexByte(rest, '@'); at >= 0 {
		// SIP002: the userinfo part is base64(method:password).
		decoded, derr := decodeB64String(rest[:at])
		if derr != nil {
			return Proxy{}, newParseError(line, "ss userinfo base64 解码失败", "", derr)
		}
		method, password, err = cutMethodPassword(line, decoded)
		if err != nil {
			return Proxy{}, err
		}
		hostPort = rest[at+1:]
	} else {
		// Legacy: everything is inside one base64 blob.
		decoded, derr := decodeB64String(rest)
		if derr != nil {
			return Proxy{}, newParseError(line, "ss base64 解码失败", "", derr)
		}
		at := strings.LastIndexByte(decoded, '@')
		if at < 0 {
			return Proxy{}, newParseError(line, "ss 链接缺少 @ 分隔符", "", nil)
		}
		method, password, err = cutMethodPassword(line, decoded[:at])
		if err != nil {
			return Proxy{}, err
		}
		hostPort = decoded[at+1:]
	}

	host, port, err := parseHostPort(hostPort)
	if err != nil {
		return Proxy{}, newParseError(line, "服务器地址或端口不合法", "", err)
	}

	p = Proxy{
		Type:          TypeShadowsocks,
		Group:         group,
		Remark:        remark,
		Hostname:      host,
		Port:          port,
		EncryptMethod: method,
		Password:      password,
		Plugin:        plugin,
		PluginOption:  pluginOpt,
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

func cutMethodPassword(line, decoded string) (string, string, error) {
	colon := strings.IndexByte(decoded, ':')
	if colon <= 0 {
		return "", "", newParseError(line, "ss 链接缺少 cipher:password", "", nil)
	}
	method := strings.TrimSpace(decoded[:colon])
	password := decoded[colon+1:]
	if method == "" || password == "" {
		return "", "", newParseError(line, "cipher 或 password 不能为空", "", nil)
	}
	return method, password, nil
}

// parseSSQuery understands the two query parameters ss links carry: plugin
// (SIP002 ';'-joined option list, which net/url.ParseQuery rejects) and group
// (itself URL-safe base64).
func parseSSQuery(line, query string) (plugin, pluginOpt, group string, err error) {
	if query == "" {
		return "", "", "", nil
	}
	for _, part := range strings.Split(query, "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		switch k {
		case "plugin":
			decoded, derr := urlDecode(v)
			if derr != nil {
				return "", "", "", newParseError(line, "plugin 参数解码失败", "", derr)
			}
			plugin, pluginOpt, _ = strings.Cut(decoded, ";")
		case "group":
			decoded, derr := decodeB64String(v)
			if derr != nil {
				return "", "", "", newParseError(line, "group 参数 base64 解码失败", "", derr)
			}
			group = decoded
		}
	}
	return plugin, pluginOpt, group, nil
}

// EncodeSS renders the canonical SIP002 link.
func EncodeSS(p *Proxy) string {
	var b strings.Builder
	b.WriteString("ss://")
	b.WriteString(urlSafeB64Encode(strings.ToLower(p.EncryptMethod) + ":" + p.Password))
	b.WriteByte('@')
	b.WriteString(bracketHost(p.Hostname))
	b.WriteByte(':')
	b.WriteString(itoa(int(p.Port)))
	if p.Plugin != "" {
		v := p.Plugin
		if p.PluginOption != "" {
			v += ";" + p.PluginOption
		}
		b.WriteString("/?plugin=")
		b.WriteString(pctEncode(v))
	}
	if p.Remark != "" {
		b.WriteByte('#')
		b.WriteString(pctEncode(p.Remark))
	}
	return b.String()
}
