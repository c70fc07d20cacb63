package model

// Tribool is an optional boolean with three states: unset / true / false.
// "Unset" means "inherit the global default" and must never be collapsed to
// false. Define and SetIfSome are the only sanctioned read/write paths; the
// renderers rely on this to omit flags a source never expressed an opinion on.
type Tribool struct {
	set bool
	val bool
}

func NewTribool(v bool) Tribool { return Tribool{set: true, val: v} }

// TriboolFromString maps common config spellings to a Tribool. Empty or
// unrecognized input stays unset.
func TriboolFromString(s string) Tribool {
	switch s {
	case "true", "1", "TRUE", "True":
		return NewTribool(true)
	case "false", "0", "FALSE", "False":
		return NewTribool(false)
	default:
		return Tribool{}
	}
}

// IsSome reports whether the flag carries a concrete value.
func (t Tribool) IsSome() bool { return t.set }

// Define resolves the flag against a default: unset yields def, concrete
// values pass through unchanged.
func (t Tribool) Define(def bool) bool {
	if !t.set {
		return def
	}
	return t.val
}

// Get returns the concrete value; only meaningful when IsSome.
func (t Tribool) Get() bool { return t.set && t.val }

func (t *Tribool) Set(v bool) {
	t.set = true
	t.val = v
}

func (t *Tribool) Clear() { *t = Tribool{} }

// SetIfSome copies x into the flag only when x is concrete; an unset x leaves
// the flag untouched.
func (t *Tribool) SetIfSome(x Tribool) {
	if x.set {
		*t = x
	}
}

// SetIfPtr is SetIfSome for decoded YAML/JSON fields where "absent" arrives
// as a nil pointer.
func (t *Tribool) SetIfPtr(p *bool) {
	if p != nil {
		t.Set(*p)
	}
}

// Ptr returns nil for unset, otherwise a pointer to the concrete value.
// Renderers use it with omitempty-style struct fields.
func (t Tribool) Ptr() *bool {
	if !t.set {
		return nil
	}
	v := t.val
	return &v
}
