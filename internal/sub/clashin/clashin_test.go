package clashin

import (
	"testing"

	"github.com/subforge/subforge/internal/model"
)

const sample = `
mixed-port: 7890
proxies:
  - {name: "ss node", type: ss, server: a.example.com, port: 8388, cipher: aes-128-gcm, password: pw, udp: true, plugin: obfs, plugin-opts: {mode: http, host: e.com}}
  - name: vm node
    type: vmess
    server: b.example.com
    port: 443
    uuid: 8e1bfe42-4a48-4d93-8a4c-6e5b0e2d9a11
    alterId: 0
    network: ws
    tls: true
    ws-opts:
      path: /ws
      headers:
        Host: cdn.example.com
  - {name: tr, type: trojan, server: c.example.com, port: 443, password: s, sni: sni.example.com, skip-cert-verify: false}
  - {name: broken, type: ss, server: "", port: 8388, cipher: rc4, password: x}
  - {name: exotic, type: tuic, server: d.example.com, port: 443}
`

func TestParse(t *testing.T) {
	proxies, skipped, err := Parse(sample)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proxies) != 3 || skipped != 2 {
		t.Fatalf("len=%d skipped=%d, want 3/2", len(proxies), skipped)
	}

	ss := proxies[0]
	if ss.Type != model.TypeShadowsocks || ss.EncryptMethod != "aes-128-gcm" {
		t.Fatalf("ss mismatch: %+v", ss)
	}
	if !ss.UDP.IsSome() || !ss.UDP.Get() {
		t.Fatalf("udp: true must land in the tri-state flag")
	}
	if ss.Plugin != "simple-obfs" || ss.PluginOption != "obfs=http;obfs-host=e.com" {
		t.Fatalf("plugin mismatch: %q %q", ss.Plugin, ss.PluginOption)
	}

	vm := proxies[1]
	if vm.UserID != "8e1bfe42-4a48-4d93-8a4c-6e5b0e2d9a11" || vm.TransferProtocol != "ws" {
		t.Fatalf("vmess mismatch: %+v", vm)
	}
	if vm.Path != "/ws" || vm.Host != "cdn.example.com" || !vm.TLSSecure {
		t.Fatalf("vmess ws transport mismatch: %+v", vm)
	}
	if vm.UDP.IsSome() {
		t.Fatalf("absent udp must stay unset")
	}

	tr := proxies[2]
	if tr.ServerName != "sni.example.com" || !tr.TLSSecure {
		t.Fatalf("trojan mismatch: %+v", tr)
	}
	if !tr.AllowInsecure.IsSome() || tr.AllowInsecure.Get() {
		t.Fatalf("skip-cert-verify: false must be a concrete false")
	}
}

func TestParse_Failures(t *testing.T) {
	if _, _, err := Parse("not: [valid: yaml"); err == nil {
		t.Fatalf("broken yaml must fail")
	}
	if _, _, err := Parse("mixed-port: 7890"); err == nil {
		t.Fatalf("document without proxies must fail")
	}
	if _, _, err := Parse("proxies:\n  - {name: x, type: tuic, server: a, port: 1}"); err == nil {
		t.Fatalf("zero survivors must fail")
	}
}
