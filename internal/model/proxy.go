package model

// ProxyType discriminates the canonical proxy representation. It is a closed
// enum; forward-compatible types ride on TypeCombined with the display name
// stored in Proxy.CombinedType.
type ProxyType int

const (
	TypeUnknown ProxyType = iota
	TypeShadowsocks
	TypeShadowsocksR
	TypeVMess
	TypeTrojan
	TypeSnell
	TypeHTTP
	TypeHTTPS
	TypeSocks5
	TypeWireGuard
	TypeHysteria
	TypeHysteria2
	TypeCombined
)

// String returns the canonical display name, also used by !!TYPE= matching
// and by the append_proxy_type remark prefix.
func (t ProxyType) String() string {
	switch t {
	case TypeShadowsocks:
		return "SS"
	case TypeShadowsocksR:
		return "SSR"
	case TypeVMess:
		return "VMess"
	case TypeTrojan:
		return "Trojan"
	case TypeSnell:
		return "Snell"
	case TypeHTTP:
		return "HTTP"
	case TypeHTTPS:
		return "HTTPS"
	case TypeSocks5:
		return "SOCKS5"
	case TypeWireGuard:
		return "WireGuard"
	case TypeHysteria:
		return "Hysteria"
	case TypeHysteria2:
		return "Hysteria2"
	case TypeCombined:
		return "Combined"
	default:
		return "Unknown"
	}
}

// Proxy is the canonical, dialect-independent node representation. It is
// created by exactly one ingestion codec, optionally renamed/tagged by the
// preprocessing stage, and read-only from then on; emission codecs never
// mutate it.
type Proxy struct {
	Type ProxyType

	// Identity.
	ID      int
	GroupID int
	Group   string
	Remark  string

	// Endpoint. Port 0 is the "unset" sentinel and is rejected at ingestion.
	Hostname string
	Port     uint16

	// Credentials.
	Username      string
	Password      string
	EncryptMethod string
	UserID        string // vmess uuid
	AlterID       uint16

	// SS plugin.
	Plugin       string
	PluginOption string

	// SSR.
	Protocol      string
	ProtocolParam string
	OBFS          string
	OBFSParam     string

	// Transport.
	TransferProtocol string // tcp/ws/grpc/http/...
	FakeType         string
	Host             string
	Path             string
	Edge             string

	// TLS.
	TLSSecure   bool
	ServerName  string // sni
	Alpn        []string
	Fingerprint string
	Ca          string
	CaStr       string

	// Snell.
	SnellVersion uint16

	// WireGuard.
	SelfIP       string
	SelfIPv6     string
	PublicKey    string
	PrivateKey   string
	PreSharedKey string
	DNSServers   []string
	Mtu          uint16
	AllowedIPs   string
	KeepAlive    uint16
	ClientID     string

	// Hysteria / Hysteria2.
	Ports        string
	UpSpeed      uint32 // mbps
	DownSpeed    uint32 // mbps
	AuthStr      string
	OBFSPassword string

	// Forward-compatible "combined" nodes carry their raw type name here.
	CombinedType string

	// Tri-state flags: unset means "inherit the global default".
	UDP           Tribool
	TCPFastOpen   Tribool
	AllowInsecure Tribool
	TLS13         Tribool
}

// DefaultRemark returns the remark fallback used when a link carries no
// fragment: "{host}:{port}".
func (p *Proxy) DefaultRemark() string {
	return p.Hostname + ":" + itoa(int(p.Port))
}

func itoa(v int) string {
	if v == 0 {
		return "0"
	}
	var buf [8]byte
	i := len(buf)
	for v > 0 {
		i--
		buf[i] = byte('0' + v%10)
		v /= 10
	}
	return string(buf[i:])
}

// TypeName returns the display name honoring the combined escape.
func (p *Proxy) TypeName() string {
	if p.Type == TypeCombined && p.CombinedType != "" {
		return p.CombinedType
	}
	return p.Type.String()
}
