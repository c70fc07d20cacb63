package render

import (
	"encoding/json"
	"strconv"

	"github.com/subforge/subforge/internal/model"
)

// singbox outbound schema, one struct per concern with omitempty trimming
// unused fields.
type sbOutbound struct {
	Type     string `json:"type"`
	Tag      string `json:"tag"`
	Server   string `json:"server,omitempty"`
	Port     int    `json:"server_port,omitempty"`
	Method   string `json:"method,omitempty"`
	Password string `json:"password,omitempty"`
	Username string `json:"username,omitempty"`
	UUID     string `json:"uuid,omitempty"`
	AlterID  *int   `json:"alter_id,omitempty"`
	Security string `json:"security,omitempty"`

	Plugin     string `json:"plugin,omitempty"`
	PluginOpts string `json:"plugin_opts,omitempty"`

	TLS       *sbTLS       `json:"tls,omitempty"`
	Transport *sbTransport `json:"transport,omitempty"`

	UDPOverTCP bool `json:"udp_over_tcp,omitempty"`
	TFO        bool `json:"tcp_fast_open,omitempty"`

	// wireguard
	LocalAddress  []string `json:"local_address,omitempty"`
	PrivateKey    string   `json:"private_key,omitempty"`
	PeerPublicKey string   `json:"peer_public_key,omitempty"`
	PreSharedKey  string   `json:"pre_shared_key,omitempty"`
	MTU           int      `json:"mtu,omitempty"`

	// hysteria / hysteria2
	UpMbps   int    `json:"up_mbps,omitempty"`
	DownMbps int    `json:"down_mbps,omitempty"`
	AuthStr  string `json:"auth_str,omitempty"`
	Obfs     any    `json:"obfs,omitempty"`

	// selector / urltest groups
	Outbounds []string `json:"outbounds,omitempty"`
	URL       string   `json:"url,omitempty"`
	Interval  string   `json:"interval,omitempty"`
	Tolerance int      `json:"tolerance,omitempty"`
	Default   string   `json:"default,omitempty"`
}

type sbTLS struct {
	Enabled    bool     `json:"enabled"`
	ServerName string   `json:"server_name,omitempty"`
	Insecure   bool     `json:"insecure,omitempty"`
	Alpn       []string `json:"alpn,omitempty"`
}

type sbTransport struct {
	Type        string            `json:"type"`
	Path        string            `json:"path,omitempty"`
	Headers     map[string]string `json:"headers,omitempty"`
	ServiceName string            `json:"service_name,omitempty"`
}

type sbObfs struct {
	Type     string `json:"type,omitempty"`
	Password string `json:"password,omitempty"`
}

type sbRouteRule struct {
	Domain        []string `json:"domain,omitempty"`
	DomainSuffix  []string `json:"domain_suffix,omitempty"`
	DomainKeyword []string `json:"domain_keyword,omitempty"`
	IPCidr        []string `json:"ip_cidr,omitempty"`
	GeoIP         []string `json:"geoip,omitempty"`
	Outbound      string   `json:"outbound"`
}

// renderSingBox emits sing-box JSON: outbounds for nodes and groups merged
// into the base config's top level, route rules built directly as structured
// objects instead of dialect lines.
func renderSingBox(nodes []model.Proxy, base string, rulesets []model.RulesetContent, groups []model.ProxyGroupConfig, ext *ExtraSettings) (string, error) {
	doc := map[string]any{}
	if err := json.Unmarshal([]byte(base), &doc); err != nil || doc == nil {
		doc = map[string]any{}
	}

	outbounds := make([]any, 0, len(nodes)+len(groups)+2)
	resolved := expandGroups(groups, nodes)
	for _, rg := range resolved {
		g := rg.Config
		ob := sbOutbound{
			Tag:       g.Name,
			Outbounds: append(rg.Members, rg.Providers...),
		}
		switch g.Type {
		case model.GroupURLTest, model.GroupFallback, model.GroupLoadBalance, model.GroupSmart:
			ob.Type = "urltest"
			ob.URL = g.URL
			if g.Interval > 0 {
				ob.Interval = strconv.Itoa(g.Interval) + "s"
			}
			ob.Tolerance = g.Tolerance
		default:
			ob.Type = "selector"
		}
		outbounds = append(outbounds, ob)
	}
	for i := range nodes {
		outbounds = append(outbounds, sbOutboundFrom(&nodes[i], ext))
	}
	outbounds = append(outbounds,
		sbOutbound{Type: "direct", Tag: "DIRECT"},
		sbOutbound{Type: "block", Tag: "REJECT"},
	)
	doc["outbounds"] = outbounds

	if ext.EnableRuleGenerator {
		route, _ := doc["route"].(map[string]any)
		if route == nil {
			route = map[string]any{}
		}
		ruleItems, finalTag := sbRouteRules(rulesets)
		if ext.OverwriteOriginalRules {
			route["rules"] = ruleItems
		} else {
			existing, _ := route["rules"].([]any)
			route["rules"] = append(existing, ruleItems...)
		}
		if finalTag != "" {
			route["final"] = finalTag
		}
		doc["route"] = route
	}

	out, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return "", &RenderError{
			AppError: model.AppError{
				Code:    "RENDER_ERROR",
				Message: "sing-box JSON 序列化失败",
				Stage:   "render",
			},
			Cause: err,
		}
	}
	return string(out), nil
}

// sbRouteRules groups consecutive same-type entries per ruleset into one
// structured rule object per (ruleset, type) pair. FINAL becomes route.final
// rather than a rule.
func sbRouteRules(rulesets []model.RulesetContent) ([]any, string) {
	var out []any
	finalTag := ""
	for _, rs := range rulesets {
		rule := sbRouteRule{Outbound: rs.Group}
		used := false
		for _, r := range rs.Rules {
			switch r.Type {
			case model.RuleDomain:
				rule.Domain = append(rule.Domain, r.Content)
				used = true
			case model.RuleDomainSuffix:
				rule.DomainSuffix = append(rule.DomainSuffix, r.Content)
				used = true
			case model.RuleDomainKeyword:
				rule.DomainKeyword = append(rule.DomainKeyword, r.Content)
				used = true
			case model.RuleIPCIDR, model.RuleIPCIDR6:
				rule.IPCidr = append(rule.IPCidr, trimNoResolve(r.Content))
				used = true
			case model.RuleGeoIP:
				rule.GeoIP = append(rule.GeoIP, trimNoResolve(r.Content))
				used = true
			case model.RuleFinal:
				finalTag = rs.Group
			}
		}
		if used {
			out = append(out, rule)
		}
	}
	return out, finalTag
}

func sbOutboundFrom(p *model.Proxy, ext *ExtraSettings) sbOutbound {
	ob := sbOutbound{
		Tag:    p.Remark,
		Server: p.Hostname,
		Port:   int(p.Port),
	}
	if v := triVal(p.TCPFastOpen, ext.TCPFastOpen); v != nil && *v {
		ob.TFO = true
	}
	insecure := false
	if v := triVal(p.AllowInsecure, ext.SkipCertVerify); v != nil && *v {
		insecure = true
	}

	switch p.Type {
	case model.TypeShadowsocks:
		ob.Type = "shadowsocks"
		ob.Method = p.EncryptMethod
		ob.Password = p.Password
		if p.Plugin != "" {
			switch p.Plugin {
			case "simple-obfs", "obfs-local":
				ob.Plugin = "obfs-local"
			default:
				ob.Plugin = p.Plugin
			}
			ob.PluginOpts = p.PluginOption
		}
	case model.TypeVMess:
		ob.Type = "vmess"
		ob.UUID = p.UserID
		aid := int(p.AlterID)
		ob.AlterID = &aid
		ob.Security = p.EncryptMethod
		if p.TLSSecure {
			ob.TLS = &sbTLS{Enabled: true, ServerName: p.ServerName, Insecure: insecure, Alpn: p.Alpn}
		}
		ob.Transport = sbTransportFrom(p)
	case model.TypeTrojan:
		ob.Type = "trojan"
		ob.Password = p.Password
		ob.TLS = &sbTLS{Enabled: true, ServerName: p.ServerName, Insecure: insecure, Alpn: p.Alpn}
		ob.Transport = sbTransportFrom(p)
	case model.TypeHTTP:
		ob.Type = "http"
		ob.Username = p.Username
		ob.Password = p.Password
	case model.TypeSocks5:
		ob.Type = "socks"
		ob.Username = p.Username
		ob.Password = p.Password
	case model.TypeWireGuard:
		ob.Type = "wireguard"
		ob.PrivateKey = p.PrivateKey
		ob.PeerPublicKey = p.PublicKey
		ob.PreSharedKey = p.PreSharedKey
		ob.MTU = int(p.Mtu)
		if p.SelfIP != "" {
			ob.LocalAddress = append(ob.LocalAddress, p.SelfIP)
		}
		if p.SelfIPv6 != "" {
			ob.LocalAddress = append(ob.LocalAddress, p.SelfIPv6)
		}
	case model.TypeHysteria:
		ob.Type = "hysteria"
		ob.AuthStr = p.AuthStr
		ob.UpMbps = int(p.UpSpeed)
		ob.DownMbps = int(p.DownSpeed)
		if p.OBFS != "" {
			ob.Obfs = p.OBFS
		}
		ob.TLS = &sbTLS{Enabled: true, ServerName: p.ServerName, Insecure: insecure, Alpn: p.Alpn}
	case model.TypeHysteria2:
		ob.Type = "hysteria2"
		ob.Password = p.Password
		if p.OBFS != "" {
			ob.Obfs = sbObfs{Type: p.OBFS, Password: p.OBFSPassword}
		}
		ob.TLS = &sbTLS{Enabled: true, ServerName: p.ServerName, Insecure: insecure, Alpn: p.Alpn}
	}
	return ob
}

func sbTransportFrom(p *model.Proxy) *sbTransport {
	switch p.TransferProtocol {
	case "ws":
		t := &sbTransport{Type: "ws", Path: p.Path}
		if p.Host != "" {
			t.Headers = map[string]string{"Host": p.Host}
		}
		return t
	case "grpc":
		return &sbTransport{Type: "grpc", ServiceName: p.Path}
	default:
		return nil
	}
}
