package render

import (
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/rules"
	"gopkg.in/yaml.v3"
)

// clashProxy is the union of clash's per-type proxy schemas. omitempty keeps
// each emitted mapping down to the fields the type actually uses; tri-state
// flags are pointers so unset stays absent instead of becoming false.
type clashProxy struct {
	Name     string `yaml:"name"`
	Type     string `yaml:"type"`
	Server   string `yaml:"server"`
	Port     int    `yaml:"port"`
	Cipher   string `yaml:"cipher,omitempty"`
	Password string `yaml:"password,omitempty"`
	Username string `yaml:"username,omitempty"`

	UDP            *bool `yaml:"udp,omitempty"`
	TFO            *bool `yaml:"tfo,omitempty"`
	SkipCertVerify *bool `yaml:"skip-cert-verify,omitempty"`

	Plugin     string         `yaml:"plugin,omitempty"`
	PluginOpts map[string]any `yaml:"plugin-opts,omitempty"`

	Protocol      string `yaml:"protocol,omitempty"`
	ProtocolParam string `yaml:"protocol-param,omitempty"`
	Obfs          string `yaml:"obfs,omitempty"`
	ObfsParam     string `yaml:"obfs-param,omitempty"`

	UUID    string `yaml:"uuid,omitempty"`
	AlterID *int   `yaml:"alterId,omitempty"`

	TLS        *bool           `yaml:"tls,omitempty"`
	ServerName string          `yaml:"servername,omitempty"`
	SNI        string          `yaml:"sni,omitempty"`
	Alpn       []string        `yaml:"alpn,omitempty"`
	Network    string          `yaml:"network,omitempty"`
	WSOpts     *clashWSOpts    `yaml:"ws-opts,omitempty"`
	GrpcOpts   *clashGrpcOpts  `yaml:"grpc-opts,omitempty"`
	ObfsOpts   map[string]any  `yaml:"obfs-opts,omitempty"`

	PSK     string `yaml:"psk,omitempty"`
	Version int    `yaml:"version,omitempty"`

	PrivateKey   string   `yaml:"private-key,omitempty"`
	PublicKey    string   `yaml:"public-key,omitempty"`
	IP           string   `yaml:"ip,omitempty"`
	IPv6         string   `yaml:"ipv6,omitempty"`
	PresharedKey string   `yaml:"preshared-key,omitempty"`
	DNS          []string `yaml:"dns,omitempty"`
	Mtu          int      `yaml:"mtu,omitempty"`

	AuthStr      string `yaml:"auth-str,omitempty"`
	Up           int    `yaml:"up,omitempty"`
	Down         int    `yaml:"down,omitempty"`
	ObfsPassword string `yaml:"obfs-password,omitempty"`
	Ports        string `yaml:"ports,omitempty"`
}

type clashWSOpts struct {
	Path    string            `yaml:"path,omitempty"`
	Headers map[string]string `yaml:"headers,omitempty"`
}

type clashGrpcOpts struct {
	ServiceName string `yaml:"grpc-service-name,omitempty"`
}

type clashGroup struct {
	Name       string   `yaml:"name"`
	Type       string   `yaml:"type"`
	Proxies    []string `yaml:"proxies,omitempty"`
	Use        []string `yaml:"use,omitempty"`
	URL        string   `yaml:"url,omitempty"`
	Interval   int      `yaml:"interval,omitempty"`
	Tolerance  int      `yaml:"tolerance,omitempty"`
	Lazy       *bool    `yaml:"lazy,omitempty"`
	Strategy   string   `yaml:"strategy,omitempty"`
	DisableUDP *bool    `yaml:"disable-udp,omitempty"`
}

// renderClash emits clash/clashr YAML by parse-merging the generated keys
// into the base template. A malformed base degrades to an empty document.
func renderClash(target Target, nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	doc := map[string]any{}
	if err := yaml.Unmarshal([]byte(base), &doc); err != nil || doc == nil {
		doc = map[string]any{}
	}

	proxies := make([]clashProxy, 0, len(nodes))
	for i := range nodes {
		proxies = append(proxies, clashProxyFrom(&nodes[i], ext))
	}

	resolved := expandGroups(groups, nodes)
	groupItems := make([]clashGroup, 0, len(resolved))
	for _, rg := range resolved {
		g := rg.Config
		item := clashGroup{
			Name:       g.Name,
			Type:       g.Type.String(),
			Proxies:    rg.Members,
			Use:        rg.Providers,
			Strategy:   g.Strategy,
			Lazy:       g.Lazy.Ptr(),
			DisableUDP: g.DisableUDP.Ptr(),
		}
		if g.UsesHealthCheck() {
			item.URL = g.URL
			item.Interval = g.Interval
			item.Tolerance = g.Tolerance
		}
		groupItems = append(groupItems, item)
	}

	proxiesKey, groupsKey, rulesKey := "proxies", "proxy-groups", "rules"
	if target == TargetClashR || !ext.ClashNewFieldName {
		proxiesKey, groupsKey, rulesKey = "Proxy", "Proxy Group", "Rule"
	}

	doc[proxiesKey] = proxies
	doc[groupsKey] = groupItems

	if ext.EnableRuleGenerator {
		generated := ruleLines(rulesets, rules.DialectClash)
		if ext.OverwriteOriginalRules {
			doc[rulesKey] = generated
		} else {
			existing, _ := doc[rulesKey].([]any)
			merged := make([]any, 0, len(existing)+len(generated))
			merged = append(merged, existing...)
			for _, line := range generated {
				merged = append(merged, line)
			}
			doc[rulesKey] = merged
		}
	}

	out, err := yaml.Marshal(doc)
	if err != nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "clash YAML 序列化失败",
				Stage:   "render",
			},
			Cause: err,
		}
	}
	return string(out), nil
}

func clashProxyFrom(p *model.Proxy, ext *ExtraSettings) clashProxy {
	c := clashProxy{
		Name:           p.Remark,
		Server:         p.Hostname,
		Port:           int(p.Port),
		UDP:            triVal(p.UDP, ext.UDP),
		TFO:            triVal(p.TCPFastOpen, ext.TCPFastOpen),
		SkipCertVerify: triVal(p.AllowInsecure, ext.SkipCertVerify),
	}

	switch p.Type {
	case model.TypeShadowsocks:
		c.Type = "ss"
		c.Cipher = p.EncryptMethod
		c.Password = p.Password
		if p.Plugin != "" {
			opts := splitPluginOption(p.PluginOption)
			switch p.Plugin {
			case "simple-obfs", "obfs-local":
				c.Plugin = "obfs"
				c.PluginOpts = map[string]any{"mode": opts["obfs"]}
				if h := opts["obfs-host"]; h != "" {
					c.PluginOpts["host"] = h
				}
			case "v2ray-plugin":
				c.Plugin = "v2ray-plugin"
				po := map[string]any{"mode": "websocket"}
				if h := opts["host"]; h != "" {
					po["host"] = h
				}
				if pth := opts["path"]; pth != "" {
					po["path"] = pth
				}
				if _, tls := opts["tls"]; tls {
					po["tls"] = true
				}
				c.PluginOpts = po
			}
		}
	case model.TypeShadowsocksR:
		c.Type = "ssr"
		c.Cipher = p.EncryptMethod
		c.Password = p.Password
		c.Protocol = p.Protocol
		c.ProtocolParam = p.ProtocolParam
		c.Obfs = p.OBFS
		c.ObfsParam = p.OBFSParam
	case model.TypeVMess:
		c.Type = "vmess"
		c.UUID = p.UserID
		aid := int(p.AlterID)
		c.AlterID = &aid
		c.Cipher = p.EncryptMethod
		if p.TLSSecure {
			t := true
			c.TLS = &t
			c.ServerName = p.ServerName
		}
		if p.TransferProtocol != "" && p.TransferProtocol != "tcp" {
			c.Network = p.TransferProtocol
		}
		switch p.TransferProtocol {
		case "ws":
			ws := &clashWSOpts{Path: p.Path}
			if p.Host != "" {
				ws.Headers = map[string]string{"Host": p.Host}
			}
			c.WSOpts = ws
		case "grpc":
			c.GrpcOpts = &clashGrpcOpts{ServiceName: p.Path}
		}
	case model.TypeTrojan:
		c.Type = "trojan"
		c.Password = p.Password
		c.SNI = p.ServerName
		c.Alpn = p.Alpn
		if p.TransferProtocol == "ws" {
			c.Network = "ws"
			ws := &clashWSOpts{Path: p.Path}
			if p.Host != "" {
				ws.Headers = map[string]string{"Host": p.Host}
			}
			c.WSOpts = ws
		} else if p.TransferProtocol == "grpc" {
			c.Network = "grpc"
			c.GrpcOpts = &clashGrpcOpts{ServiceName: p.Path}
		}
	case model.TypeSnell:
		c.Type = "snell"
		c.PSK = p.Password
		c.Version = int(p.SnellVersion)
		if p.OBFS != "" {
			c.ObfsOpts = map[string]any{"mode": p.OBFS}
			if p.Host != "" {
				c.ObfsOpts["host"] = p.Host
			}
		}
	case model.TypeHTTP, model.TypeHTTPS:
		c.Type = "http"
		c.Username = p.Username
		c.Password = p.Password
		if p.Type == model.TypeHTTPS {
			t := true
			c.TLS = &t
		}
	case model.TypeSocks5:
		c.Type = "socks5"
		c.Username = p.Username
		c.Password = p.Password
	case model.TypeWireGuard:
		c.Type = "wireguard"
		c.PrivateKey = p.PrivateKey
		c.PublicKey = p.PublicKey
		c.IP = p.SelfIP
		c.IPv6 = p.SelfIPv6
		c.PresharedKey = p.PreSharedKey
		c.DNS = p.DNSServers
		c.Mtu = int(p.Mtu)
	case model.TypeHysteria:
		c.Type = "hysteria"
		c.AuthStr = p.AuthStr
		c.Obfs = p.OBFS
		c.SNI = p.ServerName
		c.Alpn = p.Alpn
		c.Ports = p.Ports
		c.Up = int(p.UpSpeed)
		c.Down = int(p.DownSpeed)
	case model.TypeHysteria2:
		c.Type = "hysteria2"
		c.Password = p.Password
		c.Obfs = p.OBFS
		c.ObfsPassword = p.OBFSPassword
		c.SNI = p.ServerName
		c.Alpn = p.Alpn
		c.Ports = p.Ports
	}
	return c
}
