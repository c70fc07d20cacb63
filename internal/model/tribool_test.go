package model

import "testing"

func TestTribool_DefineKeepsUnsetDistinctFromFalse(t *testing.T) {
	var unset Tribool
	if unset.IsSome() {
		t.Fatalf("zero Tribool must be unset")
	}
	if got := unset.Define(true); got != true {
		t.Fatalf("unset.Define(true)=%v, want true", got)
	}
	if got := unset.Define(false); got != false {
		t.Fatalf("unset.Define(false)=%v, want false", got)
	}

	f := NewTribool(false)
	if got := f.Define(true); got != false {
		t.Fatalf("explicit false must not inherit the default")
	}
	tr := NewTribool(true)
	if got := tr.Define(false); got != true {
		t.Fatalf("explicit true must pass through")
	}
}

func TestTribool_SetIfSome(t *testing.T) {
	var dst Tribool
	dst.SetIfSome(Tribool{})
	if dst.IsSome() {
		t.Fatalf("SetIfSome(unset) must leave the flag unset")
	}

	dst.SetIfSome(NewTribool(false))
	if !dst.IsSome() || dst.Define(true) != false {
		t.Fatalf("SetIfSome(false) lost the explicit false")
	}

	dst.SetIfSome(Tribool{})
	if !dst.IsSome() {
		t.Fatalf("SetIfSome(unset) must not clear a concrete value")
	}
}

func TestTribool_Ptr(t *testing.T) {
	var unset Tribool
	if unset.Ptr() != nil {
		t.Fatalf("unset.Ptr() must be nil")
	}
	p := NewTribool(true).Ptr()
	if p == nil || *p != true {
		t.Fatalf("Ptr lost the value")
	}
}

func TestTriboolFromString(t *testing.T) {
	for _, s := range []string{"true", "1", "True", "TRUE"} {
		if v := TriboolFromString(s); !v.IsSome() || !v.Get() {
			t.Fatalf("TriboolFromString(%q) should be concrete true", s)
		}
	}
	for _, s := range []string{"false", "0"} {
		if v := TriboolFromString(s); !v.IsSome() || v.Get() {
			t.Fatalf("TriboolFromString(%q) should be concrete false", s)
		}
	}
	for _, s := range []string{"", "maybe", "yes"} {
		if v := TriboolFromString(s); v.IsSome() {
			t.Fatalf("TriboolFromString(%q) should stay unset", s)
		}
	}
}
