package link

import (
	"encoding/base64"
	"strings"
	"testing"

	"github.com/subforge/subforge/internal/model"
)

func TestParseSS_Legacy(t *testing.T) {
	// b64("chacha20-ietf-poly1305:password") @ example.com:8388
	line := "ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTpwYXNzd29yZA==@example.com:8388#Example%20Server"
	p, err := ParseSS(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Type != model.TypeShadowsocks {
		t.Fatalf("type=%v, want Shadowsocks", p.Type)
	}
	if p.Hostname != "example.com" || p.Port != 8388 {
		t.Fatalf("endpoint=%s:%d, want example.com:8388", p.Hostname, p.Port)
	}
	if p.EncryptMethod != "chacha20-ietf-poly1305" || p.Password != "password" {
		t.Fatalf("cred=%q/%q", p.EncryptMethod, p.Password)
	}
	if p.Remark != "Example Server" {
		t.Fatalf("remark=%q", p.Remark)
	}
}

func TestParseSS_FullyEncodedForm(t *testing.T) {
	blob := base64.RawURLEncoding.EncodeToString([]byte("aes-256-gcm:pa:ss:wd@example.org:443"))
	p, err := ParseSS("ss://" + blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Password != "pa:ss:wd" {
		t.Fatalf("password=%q, colons must survive", p.Password)
	}
	if p.Remark != "example.org:443" {
		t.Fatalf("remark=%q, want host:port fallback", p.Remark)
	}
}

func TestParseSS_PluginAndGroup(t *testing.T) {
	group := base64.RawURLEncoding.EncodeToString([]byte("Airport"))
	line := "ss://YWVzLTEyOC1nY206cGFzcw==@example.com:8388/?plugin=obfs-local%3Bobfs%3Dhttp%3Bobfs-host%3De.com&group=" + group + "#n"
	p, err := ParseSS(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Plugin != "obfs-local" {
		t.Fatalf("plugin=%q", p.Plugin)
	}
	if p.PluginOption != "obfs=http;obfs-host=e.com" {
		t.Fatalf("pluginOption=%q", p.PluginOption)
	}
	if p.Group != "Airport" {
		t.Fatalf("group=%q", p.Group)
	}
}

func TestSS_RoundTrip(t *testing.T) {
	p := Proxy{
		Type:          model.TypeShadowsocks,
		Remark:        "HK 01",
		Hostname:      "hk.example.com",
		Port:          8388,
		EncryptMethod: "aes-128-gcm",
		Password:      "p:wd",
	}
	back, err := ParseSS(EncodeSS(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Hostname != p.Hostname || back.Port != p.Port || back.Password != p.Password || back.EncryptMethod != p.EncryptMethod || back.Remark != p.Remark {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
}

func TestParseSS_RejectsMissingPort(t *testing.T) {
	if _, err := ParseSS("ss://YWVzLTEyOC1nY206cGFzcw==@example.com"); err == nil {
		t.Fatalf("missing port must be rejected")
	}
	if _, err := ParseSS("ss://YWVzLTEyOC1nY206cGFzcw==@example.com:0"); err == nil {
		t.Fatalf("port 0 must be rejected")
	}
}

func TestSSR_RoundTrip(t *testing.T) {
	p := Proxy{
		Type:          model.TypeShadowsocksR,
		Remark:        "ssr node",
		Group:         "g1",
		Hostname:      "1.2.3.4",
		Port:          443,
		Protocol:      "auth_aes128_md5",
		EncryptMethod: "aes-128-cfb",
		OBFS:          "tls1.2_ticket_auth",
		OBFSParam:     "obfs.example.com",
		ProtocolParam: "1234:abc",
		Password:      "pass",
	}
	back, err := ParseSSR(EncodeSSR(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Hostname != p.Hostname || back.Port != p.Port || back.Password != p.Password {
		t.Fatalf("endpoint/cred mismatch: %+v", back)
	}
	if back.Protocol != p.Protocol || back.OBFS != p.OBFS || back.OBFSParam != p.OBFSParam || back.ProtocolParam != p.ProtocolParam {
		t.Fatalf("ssr extras mismatch: %+v", back)
	}
	if back.Group != "g1" || back.Remark != "ssr node" {
		t.Fatalf("metadata mismatch: %+v", back)
	}
}

func TestVMess_RoundTrip(t *testing.T) {
	p := Proxy{
		Type:             model.TypeVMess,
		Remark:           "vm",
		Hostname:         "vm.example.com",
		Port:             443,
		UserID:           "8e1bfe42-4a48-4d93-8a4c-6e5b0e2d9a11",
		AlterID:          0,
		EncryptMethod:    "auto",
		TransferProtocol: "ws",
		Host:             "cdn.example.com",
		Path:             "/ws",
		TLSSecure:        true,
	}
	back, err := ParseVMess(EncodeVMess(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.UserID != p.UserID || back.Port != p.Port || back.Hostname != p.Hostname {
		t.Fatalf("identity mismatch: %+v", back)
	}
	if back.TransferProtocol != "ws" || back.Host != p.Host || back.Path != p.Path || !back.TLSSecure {
		t.Fatalf("transport mismatch: %+v", back)
	}
}

func TestParseVMess_V2HostPathPacking(t *testing.T) {
	doc := `{"v":"2","ps":"n","add":"a.com","port":"443","id":"8e1bfe42-4a48-4d93-8a4c-6e5b0e2d9a11","aid":"0","net":"ws","host":"h.com;/path","tls":"tls"}`
	p, err := ParseVMess("vmess://" + base64.StdEncoding.EncodeToString([]byte(doc)))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Host != "h.com" || p.Path != "/path" {
		t.Fatalf("host/path=%q/%q, want split", p.Host, p.Path)
	}
}

func TestParseVMess_NumericPortAndBadUUID(t *testing.T) {
	doc := `{"v":2,"ps":"n","add":"a.com","port":443,"id":"8e1bfe42-4a48-4d93-8a4c-6e5b0e2d9a11","aid":0}`
	p, err := ParseVMess("vmess://" + base64.StdEncoding.EncodeToString([]byte(doc)))
	if err != nil {
		t.Fatalf("numeric port/aid should be tolerated: %v", err)
	}
	if p.Port != 443 {
		t.Fatalf("port=%d", p.Port)
	}

	bad := `{"ps":"n","add":"a.com","port":"443","id":"not-a-uuid"}`
	if _, err := ParseVMess("vmess://" + base64.StdEncoding.EncodeToString([]byte(bad))); err == nil {
		t.Fatalf("invalid uuid must be rejected")
	}
}

func TestTrojan_RoundTrip(t *testing.T) {
	line := "trojan://secret@tr.example.com:443?allowInsecure=1&sni=sni.example.com#TR%20Node"
	p, err := ParseTrojan(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Password != "secret" || p.ServerName != "sni.example.com" {
		t.Fatalf("cred/sni mismatch: %+v", p)
	}
	if !p.AllowInsecure.IsSome() || !p.AllowInsecure.Get() {
		t.Fatalf("allowInsecure=1 must set the tri-state flag")
	}
	back, err := ParseTrojan(EncodeTrojan(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Password != p.Password || back.Port != p.Port || back.Remark != "TR Node" {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
}

func TestTrojan_UnsetInsecureStaysUnset(t *testing.T) {
	p, err := ParseTrojan("trojan://s@h.example.com:443#x")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AllowInsecure.IsSome() {
		t.Fatalf("absent allowInsecure must stay unset, not false")
	}
}

func TestParseSocks_Base64Userinfo(t *testing.T) {
	blob := base64.RawURLEncoding.EncodeToString([]byte("user:pa:ss"))
	p, err := ParseSocks("socks://" + blob + "@s.example.com:1080#S")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Username != "user" || p.Password != "pa:ss" {
		t.Fatalf("cred mismatch: %q/%q", p.Username, p.Password)
	}
}

func TestHysteria2_RoundTrip(t *testing.T) {
	line := "hysteria2://authpass@hy.example.com:443?obfs=salamander&obfs-password=ob&sni=sni.example.com&insecure=1#HY2"
	p, err := ParseHysteria2(line)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.Password != "authpass" || p.OBFS != "salamander" || p.OBFSPassword != "ob" {
		t.Fatalf("hysteria2 fields mismatch: %+v", p)
	}
	back, err := ParseHysteria2(EncodeHysteria2(&p))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if back.Password != p.Password || back.ServerName != p.ServerName || back.Remark != "HY2" {
		t.Fatalf("round-trip mismatch: %+v", back)
	}
}

func TestParseHysteria_Legacy(t *testing.T) {
	p, err := ParseHysteria("hysteria://hy.example.com:9443?auth=tok&upmbps=50&downmbps=100&obfs=xplus&peer=p.example.com&insecure=1&alpn=h3#HY")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.AuthStr != "tok" || p.UpSpeed != 50 || p.DownSpeed != 100 {
		t.Fatalf("bandwidth/auth mismatch: %+v", p)
	}
	if len(p.Alpn) != 1 || p.Alpn[0] != "h3" {
		t.Fatalf("alpn mismatch: %v", p.Alpn)
	}
}

func TestParseWireGuard(t *testing.T) {
	p, err := ParseWireGuard("wg://wg.example.com:51820?private-key=priv&public-key=pub&ip=10.0.0.2&mtu=1420&dns=1.1.1.1,8.8.8.8#WG")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if p.PrivateKey != "priv" || p.PublicKey != "pub" || p.SelfIP != "10.0.0.2" || p.Mtu != 1420 {
		t.Fatalf("wireguard fields mismatch: %+v", p)
	}
	if len(p.DNSServers) != 2 {
		t.Fatalf("dns servers mismatch: %v", p.DNSServers)
	}
}

func TestParse_UnknownScheme(t *testing.T) {
	if _, err := Parse("mtproto://whatever"); err == nil {
		t.Fatalf("unknown scheme must error")
	}
	if !strings.Contains(Parse2Err("mtproto://x"), "LINK_PARSE_ERROR") {
		t.Fatalf("error should carry the parse code")
	}
}

func Parse2Err(line string) string {
	_, err := Parse(line)
	if err == nil {
		return ""
	}
	return err.Error()
}
