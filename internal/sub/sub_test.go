package sub

import (
	"encoding/base64"
	"testing"

	"github.com/rs/zerolog"
	"github.com/subforge/subforge/internal/model"
)

var testLog = zerolog.Nop()

const linkList = `# comment
ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTpwYXNzd29yZA==@example.com:8388#A

trojan://secret@tr.example.com:443#B
garbage line that is not a link
`

func TestParseAny_LinkLines(t *testing.T) {
	proxies, err := ParseAny(testLog, "test", linkList)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proxies) != 2 {
		t.Fatalf("len=%d, want 2 (garbage skipped)", len(proxies))
	}
	if proxies[0].Type != model.TypeShadowsocks || proxies[1].Type != model.TypeTrojan {
		t.Fatalf("types mismatch: %v %v", proxies[0].Type, proxies[1].Type)
	}
}

func TestParseAny_Base64Wrapper(t *testing.T) {
	blob := base64.StdEncoding.EncodeToString([]byte(linkList))
	proxies, err := ParseAny(testLog, "test", blob)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proxies) != 2 {
		t.Fatalf("len=%d, want 2", len(proxies))
	}
}

func TestParseAny_ClashDetection(t *testing.T) {
	payload := "proxies:\n  - {name: n, type: ss, server: a.example.com, port: 8388, cipher: aes-128-gcm, password: p}\n"
	proxies, err := ParseAny(testLog, "test", payload)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(proxies) != 1 || proxies[0].Type != model.TypeShadowsocks {
		t.Fatalf("clash payload mishandled: %+v", proxies)
	}
}

func TestParseAny_AllBrokenFails(t *testing.T) {
	if _, err := ParseAny(testLog, "test", "nonsense\nmore nonsense"); err == nil {
		t.Fatalf("source with zero usable entries must fail")
	}
	if _, err := ParseAny(testLog, "test", "   "); err == nil {
		t.Fatalf("empty source must fail")
	}
}
