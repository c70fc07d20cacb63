package template

import (
	"strings"
	"testing"
)

const surgeBase = `[General]
loglevel = notify

[Proxy]
DIRECT = direct

[Rule]
FINAL,DIRECT

[URL Rewrite]
^http://example.com http://other.com header
`

func TestParseINI_RoundTrip(t *testing.T) {
	d := ParseINI(surgeBase)
	if got := d.String(); got != surgeBase {
		t.Fatalf("round trip changed the document:\n%s", got)
	}
}

func TestReplace_ExcisesOldBody(t *testing.T) {
	d := ParseINI(surgeBase)
	d.Replace("Rule", []string{"DOMAIN-SUFFIX,google.com,Proxy", "FINAL,Proxy"})
	out := d.String()
	if strings.Contains(out, "FINAL,DIRECT") {
		t.Fatalf("old rule body must be excised:\n%s", out)
	}
	if !strings.Contains(out, "[Rule]\nDOMAIN-SUFFIX,google.com,Proxy\nFINAL,Proxy") {
		t.Fatalf("new body missing:\n%s", out)
	}
	if !strings.Contains(out, "[URL Rewrite]") {
		t.Fatalf("unrelated section must survive:\n%s", out)
	}
}

func TestReplace_AppendsMissingSection(t *testing.T) {
	d := ParseINI("[General]\nloglevel = notify\n")
	d.Replace("Proxy Group", []string{"Auto = url-test, HK 01"})
	if !strings.Contains(d.String(), "[Proxy Group]\nAuto = url-test, HK 01") {
		t.Fatalf("missing section must be created:\n%s", d.String())
	}
}

func TestReplace_DuplicateHeadersBothSwapped(t *testing.T) {
	d := ParseINI("[Rule]\nold1\n[Rule]\nold2\n")
	d.Replace("Rule", []string{"new"})
	out := d.String()
	if strings.Contains(out, "old1") || strings.Contains(out, "old2") {
		t.Fatalf("stale bodies must not survive a replace:\n%s", out)
	}
}

func TestParseINI_CRLFPreserved(t *testing.T) {
	d := ParseINI("[General]\r\na = 1\r\n")
	d.Append("General", []string{"b = 2"})
	if got := d.String(); got != "[General]\r\na = 1\r\nb = 2\r\n" {
		t.Fatalf("crlf lost: %q", got)
	}
}

func TestParseINI_NoHeadersIsPreamble(t *testing.T) {
	d := ParseINI("just some text\nno sections here\n")
	if got := d.String(); got != "just some text\nno sections here\n" {
		t.Fatalf("headerless text must pass through: %q", got)
	}
}

func TestEnsureManagedConfig(t *testing.T) {
	out, err := EnsureManagedConfig("[General]\na = 1\n", "https://example.com/sub?target=surge", 3600, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := "#!MANAGED-CONFIG https://example.com/sub?target=surge interval=3600 strict=true"
	if !strings.HasPrefix(out, want+"\n") {
		t.Fatalf("managed line missing or wrong: %q", out)
	}

	rewritten, err := EnsureManagedConfig(out, "https://other.example.com/sub", 0, false)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if strings.Count(rewritten, managedConfigPrefix) != 1 {
		t.Fatalf("managed line must stay unique:\n%s", rewritten)
	}
	if !strings.Contains(rewritten, "interval=86400") {
		t.Fatalf("non-positive interval must fall back to 86400:\n%s", rewritten)
	}

	if _, err := EnsureManagedConfig("x", "  ", 0, false); err == nil {
		t.Fatalf("empty URL must be rejected")
	}
}
