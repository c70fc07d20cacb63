// Package clashin ingests clash-style YAML proxy lists ("proxies:" sequence
// of maps tagged by a type field). Field semantics mirror the URI codecs in
// internal/sub/link; only the carrier syntax differs.
package clashin

import (
	"fmt"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"gopkg.in/yaml.v3"
)

type ParseError struct {
	AppError model.AppError
	Cause    error
}

func (e *ParseError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *ParseError) Unwrap() error { return e.Cause }

type document struct {
	Proxies []proxyEntry `yaml:"proxies"`
}

// proxyEntry is the union of the per-type clash proxy schemas. Pointer fields
// distinguish "absent" from zero values for the tri-state flags.
type proxyEntry struct {
	Type     string `yaml:"type"`
	Name     string `yaml:"name"`
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Cipher   string `yaml:"cipher"`
	Password string `yaml:"password"`
	Username string `yaml:"username"`

	UDP            *bool `yaml:"udp"`
	TFO            *bool `yaml:"tfo"`
	SkipCertVerify *bool `yaml:"skip-cert-verify"`

	// ss
	Plugin     string         `yaml:"plugin"`
	PluginOpts map[string]any `yaml:"plugin-opts"`

	// ssr
	Protocol      string `yaml:"protocol"`
	ProtocolParam string `yaml:"protocol-param"`
	Obfs          string `yaml:"obfs"`
	ObfsParam     string `yaml:"obfs-param"`

	// vmess
	UUID    string `yaml:"uuid"`
	AlterID int    `yaml:"alterId"`

	Network    string   `yaml:"network"`
	TLS        *bool    `yaml:"tls"`
	ServerName string   `yaml:"servername"`
	SNI        string   `yaml:"sni"`
	Alpn       []string `yaml:"alpn"`
	WSOpts     struct {
		Path    string            `yaml:"path"`
		Headers map[string]string `yaml:"headers"`
	} `yaml:"ws-opts"`
	WSPath    string            `yaml:"ws-path"`
	WSHeaders map[string]string `yaml:"ws-headers"`
	GrpcOpts  struct {
		ServiceName string `yaml:"grpc-service-name"`
	} `yaml:"grpc-opts"`

	// snell
	PSK      string         `yaml:"psk"`
	Version  int            `yaml:"version"`
	ObfsOpts map[string]any `yaml:"obfs-opts"`

	// wireguard
	PrivateKey   string   `yaml:"private-key"`
	PublicKey    string   `yaml:"public-key"`
	IP           string   `yaml:"ip"`
	IPv6         string   `yaml:"ipv6"`
	PresharedKey string   `yaml:"preshared-key"`
	DNS          []string `yaml:"dns"`
	Mtu          int      `yaml:"mtu"`
	AllowedIPs   string   `yaml:"allowed-ips"`

	// hysteria / hysteria2
	AuthStr      string `yaml:"auth-str"`
	Up           string `yaml:"up"`
	Down         string `yaml:"down"`
	ObfsPassword string `yaml:"obfs-password"`
	Ports        string `yaml:"ports"`
}

// Parse decodes a clash config and converts every recognized proxy. A
// malformed or unsupported entry is skipped; the skipped count comes back so
// the caller can log it. The error is non-nil only when the document is not
// clash YAML or nothing survives.
func Parse(content string) (proxies []model.Proxy, skipped int, err error) {
	var doc document
	if derr := yaml.Unmarshal([]byte(content), &doc); derr != nil {
		return nil, 0, parseError("clash YAML 解析失败", derr)
	}
	if len(doc.Proxies) == 0 {
		return nil, 0, parseError("clash 配置中没有 proxies 列表", nil)
	}

	out := make([]model.Proxy, 0, len(doc.Proxies))
	for _, e := range doc.Proxies {
		p, ok := convert(e)
		if !ok {
			skipped++
			continue
		}
		out = append(out, p)
	}
	if len(out) == 0 {
		return nil, skipped, parseError("clash 配置中没有任何可用节点", nil)
	}
	return out, skipped, nil
}

func convert(e proxyEntry) (model.Proxy, bool) {
	if e.Server == "" || e.Port < 1 || e.Port > 65535 {
		return model.Proxy{}, false
	}

	p := model.Proxy{
		Remark:   strings.TrimSpace(e.Name),
		Hostname: e.Server,
		Port:     uint16(e.Port),
	}
	if p.Remark == "" {
		p.Remark = p.DefaultRemark()
	}
	p.UDP.SetIfPtr(e.UDP)
	p.TCPFastOpen.SetIfPtr(e.TFO)
	p.AllowInsecure.SetIfPtr(e.SkipCertVerify)

	switch e.Type {
	case "ss":
		p.Type = model.TypeShadowsocks
		p.EncryptMethod = e.Cipher
		p.Password = e.Password
		p.Plugin, p.PluginOption = convertPlugin(e)
	case "ssr":
		p.Type = model.TypeShadowsocksR
		p.EncryptMethod = e.Cipher
		p.Password = e.Password
		p.Protocol = e.Protocol
		p.ProtocolParam = e.ProtocolParam
		p.OBFS = e.Obfs
		p.OBFSParam = e.ObfsParam
	case "vmess":
		p.Type = model.TypeVMess
		p.UserID = e.UUID
		p.AlterID = uint16(e.AlterID)
		p.EncryptMethod = defaultStr(e.Cipher, "auto")
		p.TransferProtocol = defaultStr(e.Network, "tcp")
		p.TLSSecure = e.TLS != nil && *e.TLS
		p.ServerName = firstNonEmpty(e.SNI, e.ServerName)
		p.Alpn = e.Alpn
		switch p.TransferProtocol {
		case "ws":
			p.Path = firstNonEmpty(e.WSOpts.Path, e.WSPath, "/")
			p.Host = firstNonEmpty(e.WSOpts.Headers["Host"], e.WSHeaders["Host"])
		case "grpc":
			p.Path = e.GrpcOpts.ServiceName
		}
	case "trojan":
		p.Type = model.TypeTrojan
		p.Password = e.Password
		p.TLSSecure = true
		p.ServerName = firstNonEmpty(e.SNI, e.ServerName)
		p.TransferProtocol = defaultStr(e.Network, "tcp")
		if p.TransferProtocol == "ws" {
			p.Path = firstNonEmpty(e.WSOpts.Path, "/")
			p.Host = e.WSOpts.Headers["Host"]
		}
	case "snell":
		p.Type = model.TypeSnell
		p.Password = e.PSK
		p.SnellVersion = uint16(e.Version)
		if mode, ok := e.ObfsOpts["mode"].(string); ok {
			p.OBFS = mode
		}
		if host, ok := e.ObfsOpts["host"].(string); ok {
			p.Host = host
		}
	case "http":
		p.Type = model.TypeHTTP
		if e.TLS != nil && *e.TLS {
			p.Type = model.TypeHTTPS
			p.TLSSecure = true
		}
		p.Username = e.Username
		p.Password = e.Password
	case "socks5":
		p.Type = model.TypeSocks5
		p.Username = e.Username
		p.Password = e.Password
	case "wireguard":
		p.Type = model.TypeWireGuard
		p.PrivateKey = e.PrivateKey
		p.PublicKey = e.PublicKey
		p.PreSharedKey = e.PresharedKey
		p.SelfIP = e.IP
		p.SelfIPv6 = e.IPv6
		p.DNSServers = e.DNS
		p.Mtu = uint16(e.Mtu)
		p.AllowedIPs = e.AllowedIPs
		if p.SelfIP == "" || p.PrivateKey == "" {
			return model.Proxy{}, false
		}
	case "hysteria":
		p.Type = model.TypeHysteria
		p.AuthStr = firstNonEmpty(e.AuthStr, e.Password)
		p.OBFS = e.Obfs
		p.ServerName = firstNonEmpty(e.SNI, e.ServerName)
		p.Ports = e.Ports
		p.Alpn = e.Alpn
	case "hysteria2":
		p.Type = model.TypeHysteria2
		p.Password = e.Password
		p.OBFS = e.Obfs
		p.OBFSPassword = e.ObfsPassword
		p.ServerName = firstNonEmpty(e.SNI, e.ServerName)
		p.Ports = e.Ports
		p.Alpn = e.Alpn
	default:
		return model.Proxy{}, false
	}
	return p, true
}

// convertPlugin flattens clash plugin-opts back into the link-style
// "k=v;k=v" option string so downstream renderers share one representation.
func convertPlugin(e proxyEntry) (string, string) {
	if e.Plugin == "" {
		return "", ""
	}
	plugin := e.Plugin
	if plugin == "obfs" {
		plugin = "simple-obfs"
	}
	parts := make([]string, 0, len(e.PluginOpts))
	// Stable order: mode/host first, then the rest sorted by key.
	if v, ok := e.PluginOpts["mode"].(string); ok && v != "" {
		parts = append(parts, "obfs="+v)
	}
	if v, ok := e.PluginOpts["host"].(string); ok && v != "" {
		parts = append(parts, "obfs-host="+v)
	}
	for k, raw := range e.PluginOpts {
		if k == "mode" || k == "host" {
			continue
		}
		parts = append(parts, fmt.Sprintf("%s=%v", k, raw))
	}
	return plugin, strings.Join(parts, ";")
}

func parseError(message string, cause error) error {
	return &ParseError{
		AppError: model.AppError{
			Code:    "CLASH_PARSE_ERROR",
			Message: message,
			Stage:   "parse_sub",
		},
		Cause: cause,
	}
}

func defaultStr(s, def string) string {
	if s == "" {
		return def
	}
	return s
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
