package model

// ProxyGroupType enumerates the logical group kinds a dialect can express.
type ProxyGroupType int

const (
	GroupSelect ProxyGroupType = iota
	GroupURLTest
	GroupFallback
	GroupLoadBalance
	GroupRelay
	GroupSSID
	GroupSmart
)

func (t ProxyGroupType) String() string {
	switch t {
	case GroupSelect:
		return "select"
	case GroupURLTest:
		return "url-test"
	case GroupFallback:
		return "fallback"
	case GroupLoadBalance:
		return "load-balance"
	case GroupRelay:
		return "relay"
	case GroupSSID:
		return "ssid"
	case GroupSmart:
		return "smart"
	default:
		return "select"
	}
}

// ProxyGroupTypeFromString maps a config spelling to a group type. The second
// return is false for unknown spellings.
func ProxyGroupTypeFromString(s string) (ProxyGroupType, bool) {
	switch s {
	case "select":
		return GroupSelect, true
	case "url-test", "urltest":
		return GroupURLTest, true
	case "fallback":
		return GroupFallback, true
	case "load-balance", "loadbalance":
		return GroupLoadBalance, true
	case "relay":
		return GroupRelay, true
	case "ssid":
		return GroupSSID, true
	case "smart":
		return GroupSmart, true
	default:
		return GroupSelect, false
	}
}

// ProxyGroupConfig is a named logical group. Proxies holds member specs in
// significant order: "[]Name" is a literal member token, anything else is a
// matcher pattern. Provider references live only in UsingProvider (explicit
// side list, never inferred from member-spec strings).
type ProxyGroupConfig struct {
	Name          string
	Type          ProxyGroupType
	Proxies       []string
	UsingProvider []string

	// Health check, relevant to url-test / fallback / load-balance.
	URL       string
	Interval  int
	Timeout   int
	Tolerance int
	Lazy      Tribool

	// Dialect extras.
	DisableUDP        Tribool
	Strategy          string // load-balance strategy
	Persistent        Tribool
	EvaluateBeforeUse Tribool
}

// UsesHealthCheck reports whether the group type carries url/interval fields.
func (g *ProxyGroupConfig) UsesHealthCheck() bool {
	switch g.Type {
	case GroupURLTest, GroupFallback, GroupLoadBalance, GroupSmart:
		return true
	default:
		return false
	}
}
