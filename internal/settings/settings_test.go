package settings

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/subforge/subforge/internal/model"
)

const prefSample = `[common]
listen = :8080
default_target = surge
surge_ver = 4
append_proxy_type = true
enable_rule_generator = true
overwrite_original_rules = true

[node_pref]
udp_flag = true
skip_cert_verify_flag = false
sort_flag = true
rename_node = HK@Hong Kong
rename_node = !!TYPE=SS!!test@TEST

[emojis]
add_emoji = true
remove_old_emoji = true
rule = HK,🇭🇰
rule = US,🇺🇸

[managed_config]
managed_config_url = https://example.com/sub
config_update_interval = 3600

[ruleset]
ruleset = Proxy,https://example.com/rules.list
ruleset = DIRECT,https://example.com/direct.list

[proxy_group]
custom_proxy_group = Proxy` + "`select`[]DIRECT`.*" + `
custom_proxy_group = Auto` + "`url-test`.*`http://www.gstatic.com/generate_204`300,5,100" + `
`

func writePref(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "pref.ini")
	if err := os.WriteFile(path, []byte(prefSample), 0o644); err != nil {
		t.Fatalf("write pref: %v", err)
	}
	return path
}

func TestLoad(t *testing.T) {
	s, err := Load(writePref(t))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Listen != ":8080" || s.DefaultTarget != "surge" || s.SurgeVer != 4 {
		t.Fatalf("common mismatch: %+v", s)
	}
	if !s.UDP.IsSome() || !s.UDP.Get() {
		t.Fatalf("udp_flag=true must be concrete true")
	}
	if !s.SkipCertVerify.IsSome() || s.SkipCertVerify.Get() {
		t.Fatalf("skip_cert_verify_flag=false must be concrete false")
	}
	if s.TLS13.IsSome() {
		t.Fatalf("absent flag must stay unset")
	}
	if len(s.Renames) != 2 || s.Renames[0].Match != "HK" || s.Renames[0].Replace != "Hong Kong" {
		t.Fatalf("renames mismatch: %+v", s.Renames)
	}
	if s.Renames[1].Match != "!!TYPE=SS!!test" {
		t.Fatalf("structural rename must split on the first plain @: %+v", s.Renames[1])
	}
	if len(s.Emojis) != 2 || s.Emojis[0].Emoji != "🇭🇰" {
		t.Fatalf("emojis mismatch: %+v", s.Emojis)
	}
	if len(s.Rulesets) != 2 || s.Rulesets[0].Group != "Proxy" {
		t.Fatalf("rulesets mismatch: %+v", s.Rulesets)
	}
	if s.ManagedConfigURL != "https://example.com/sub" || s.ManagedConfigInterval != 3600 {
		t.Fatalf("managed config mismatch: %+v", s)
	}
	if len(s.Groups) != 2 {
		t.Fatalf("groups mismatch: %+v", s.Groups)
	}
	auto := s.Groups[1]
	if auto.Type != model.GroupURLTest || auto.URL != "http://www.gstatic.com/generate_204" {
		t.Fatalf("auto group mismatch: %+v", auto)
	}
	if auto.Interval != 300 || auto.Timeout != 5 || auto.Tolerance != 100 {
		t.Fatalf("health-check tail mismatch: %+v", auto)
	}
}

func TestLoad_MissingFileUsesDefaults(t *testing.T) {
	s, err := Load(filepath.Join(t.TempDir(), "missing.ini"))
	if err != nil {
		t.Fatalf("missing file must not error: %v", err)
	}
	if s.Listen != ":25500" || s.DefaultTarget != "clash" {
		t.Fatalf("defaults mismatch: %+v", s)
	}
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("SUBFORGE_LISTEN", ":9999")
	s, err := Load("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if s.Listen != ":9999" {
		t.Fatalf("env override lost: %q", s.Listen)
	}
}

func TestParseGroupLine(t *testing.T) {
	g, ok := ParseGroupLine("Fallback`fallback`!!PROVIDER=airport-a`HK`http://example.com/ping`600")
	if !ok {
		t.Fatalf("line must parse")
	}
	if g.Type != model.GroupFallback || len(g.UsingProvider) != 1 || g.UsingProvider[0] != "airport-a" {
		t.Fatalf("provider mismatch: %+v", g)
	}
	if len(g.Proxies) != 1 || g.Proxies[0] != "HK" {
		t.Fatalf("specs mismatch: %+v", g)
	}
	if g.URL != "http://example.com/ping" || g.Interval != 600 {
		t.Fatalf("health-check mismatch: %+v", g)
	}

	if _, ok := ParseGroupLine("bad"); ok {
		t.Fatalf("short line must fail")
	}
}
