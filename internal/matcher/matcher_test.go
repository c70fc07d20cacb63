package matcher

import (
	"testing"

	"github.com/subforge/subforge/internal/model"
)

func node() *model.Proxy {
	return &model.Proxy{
		Type:     model.TypeShadowsocks,
		Remark:   "HK Node 01",
		Group:    "Airport A",
		GroupID:  2,
		Hostname: "hk1.example.com",
		Port:     8388,
	}
}

func TestMatchRange(t *testing.T) {
	cases := []struct {
		expr   string
		target int
		want   bool
	}{
		{"1-5,10-15", 3, true},
		{"1-5,10-15", 10, true},
		{"1-5,10-15", 15, true},
		{"1-5,10-15", 7, false},
		{"1-5,10-15", 16, false},
		{"!1-5", 3, false},
		{"!1-5", 6, true},
		{"!1-5", 0, true},
		{"5", 5, true},
		{"5", 4, false},
		{"100-", 99, true},
		{"100-", 101, false},
		{"100+", 101, true},
		{"100+", 99, false},
		{"!3,1-10", 3, false},
		{"!3,1-10", 4, true},
		{"-2", -2, true},
	}
	for _, c := range cases {
		if got := MatchRange(c.expr, c.target); got != c.want {
			t.Fatalf("MatchRange(%q, %d)=%v, want %v", c.expr, c.target, got, c.want)
		}
	}
}

func TestApply_PlainRegex(t *testing.T) {
	p := node()
	if !Apply("HK", p) {
		t.Fatalf("substring regex should match remark")
	}
	if !Apply("(?:hk|tw)", p) {
		t.Fatalf("case-insensitive regex should match")
	}
	if Apply("^US", p) {
		t.Fatalf("anchored regex should not match")
	}
	// Broken regex falls back to substring search instead of failing.
	if !Apply("HK Node 01", p) {
		t.Fatalf("literal fallback expected to match")
	}
	if Apply("[invalid", p) {
		t.Fatalf("broken regex substring fallback should not match")
	}
}

func TestApply_Structural(t *testing.T) {
	p := node()
	cases := []struct {
		pattern string
		want    bool
	}{
		{"!!GROUP=Airport", true},
		{"!!GROUP=Other", false},
		{"!!TYPE=SS", true},
		{"!!TYPE=ss", true},
		{"!!TYPE=VMess", false},
		{"!!PORT=8388", true},
		{"!!PORT=8000-9000", true},
		{"!!PORT=!8388", false},
		{"!!SERVER=example.com", true},
		{"!!SERVER=nowhere", false},
		{"!!GROUPID=2", true},
		{"!!GROUPID=0-1", false},
	}
	for _, c := range cases {
		if got := Apply(c.pattern, p); got != c.want {
			t.Fatalf("Apply(%q)=%v, want %v", c.pattern, got, c.want)
		}
	}
}

func TestApply_TrailingRegex(t *testing.T) {
	p := node()
	if !Apply("!!TYPE=SS!!HK", p) {
		t.Fatalf("structural + trailing should match")
	}
	if Apply("!!TYPE=SS!!US", p) {
		t.Fatalf("trailing regex must be applied to remark")
	}
	// Empty trailing after the second !! is always satisfied.
	if !Apply("!!PORT=8388!!", p) {
		t.Fatalf("empty trailing segment should be satisfied")
	}
}

func TestApply_InsertSignFlip(t *testing.T) {
	p := node()
	p.GroupID = -1
	if !Apply("!!INSERT=1", p) {
		t.Fatalf("INSERT must compare against the negated group id")
	}
	if Apply("!!GROUPID=1", p) {
		t.Fatalf("GROUPID must not negate")
	}
}

func TestApply_UnknownTypeNeverMatches(t *testing.T) {
	p := node()
	p.Type = model.TypeUnknown
	if Apply("!!TYPE=Unknown", p) {
		t.Fatalf("!!TYPE= must always fail for Unknown")
	}
}
