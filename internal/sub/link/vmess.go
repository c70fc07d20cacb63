package link

import (
	"encoding/json"
	"strings"

	"github.com/google/uuid"
)

// vmessDoc is the base64-encoded JSON object a vmess:// link carries. Port,
// aid and v arrive as either string or number depending on the generator, so
// they decode through flexString.
type vmessDoc struct {
	Version flexString `json:"v"`
	Remark  string     `json:"ps"`
	Server  string     `json:"add"`
	Port    flexString `json:"port"`
	UserID  string     `json:"id"`
	AlterID flexString `json:"aid"`
	Cipher  string     `json:"scy"`
	Network string     `json:"net"`
	FakeTyp string     `json:"type"`
	Host    string     `json:"host"`
	Path    string     `json:"path"`
	TLS     string     `json:"tls"`
	SNI     string     `json:"sni"`
	Alpn    string     `json:"alpn"`
}

// flexString tolerates JSON numbers where strings are expected.
type flexString string

func (f *flexString) UnmarshalJSON(b []byte) error {
	s := strings.TrimSpace(string(b))
	s = strings.Trim(s, `"`)
	*f = flexString(s)
	return nil
}

// ParseVMess decodes the base64-JSON vmess link. Version 2 documents pack
// "host;path" into the host field.
func ParseVMess(line string) (Proxy, error) {
	payload := strings.TrimPrefix(line, "vmess://")
	decoded, err := decodeB64String(payload)
	if err != nil {
		return Proxy{}, newParseError(line, "vmess base64 解码失败", "", err)
	}

	var doc vmessDoc
	if err := json.Unmarshal([]byte(decoded), &doc); err != nil {
		return Proxy{}, newParseError(line, "vmess JSON 解析失败", "", err)
	}
	if doc.Server == "" {
		return Proxy{}, newParseError(line, "vmess 服务器地址不能为空", "", nil)
	}
	port, err := parsePort(string(doc.Port))
	if err != nil {
		return Proxy{}, newParseError(line, "vmess 端口不合法", "", err)
	}
	if _, err := uuid.Parse(doc.UserID); err != nil {
		return Proxy{}, newParseError(line, "vmess id 不是合法 UUID", "", err)
	}

	host := strings.TrimSpace(doc.Host)
	path := strings.TrimSpace(doc.Path)
	if string(doc.Version) == "2" && strings.Contains(host, ";") {
		h, p, _ := strings.Cut(host, ";")
		host, path = strings.TrimSpace(h), strings.TrimSpace(p)
	}

	alterID := 0
	if s := string(doc.AlterID); s != "" {
		alterID = atoiOr(s, 0)
	}

	network := doc.Network
	if network == "" {
		network = "tcp"
	}

	p := Proxy{
		Type:             TypeVMess,
		Remark:           strings.TrimSpace(doc.Remark),
		Hostname:         doc.Server,
		Port:             port,
		UserID:           doc.UserID,
		AlterID:          uint16(alterID),
		EncryptMethod:    defaultStr(doc.Cipher, "auto"),
		TransferProtocol: network,
		FakeType:         doc.FakeTyp,
		Host:             host,
		Path:             path,
		TLSSecure:        doc.TLS == "tls",
		ServerName:       doc.SNI,
	}
	if doc.Alpn != "" {
		p.Alpn = splitAlpn(doc.Alpn)
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	return p, nil
}

// EncodeVMess renders the canonical v=2 base64-JSON link.
func EncodeVMess(p *Proxy) string {
	tls := ""
	if p.TLSSecure {
		tls = "tls"
	}
	doc := map[string]string{
		"v":    "2",
		"ps":   p.Remark,
		"add":  p.Hostname,
		"port": itoa(int(p.Port)),
		"id":   p.UserID,
		"aid":  itoa(int(p.AlterID)),
		"net":  p.TransferProtocol,
		"type": defaultStr(p.FakeType, "none"),
		"host": p.Host,
		"path": p.Path,
		"tls":  tls,
	}
	if p.ServerName != "" {
		doc["sni"] = p.ServerName
	}
	b, _ := json.Marshal(doc)
	return "vmess://" + stdB64Encode(string(b))
}

func atoiOr(s string, def int) int {
	n := 0
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return def
		}
		n = n*10 + int(s[i]-'0')
	}
	if s == "" {
		return def
	}
	return n
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func splitAlpn(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
