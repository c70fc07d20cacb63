// Package resolve expands proxy group member expressions into concrete node
// lists. A member starting with "[]" is a literal name (another group or a
// policy keyword); anything else is a matcher pattern evaluated against the
// node universe in its original order.
package resolve

import (
	"github.com/subforge/subforge/internal/matcher"
	"github.com/subforge/subforge/internal/model"
)

// Expand resolves one group against the full node universe. The returned
// member list keeps universe order for matched nodes and expression order for
// literals, with first-occurrence dedup across the whole list. A group whose
// expansion comes up empty and that names no provider falls back to a single
// DIRECT member so the emitted config stays loadable.
func Expand(group model.ProxyGroupConfig, universe []model.Proxy) (members []string, providers []string) {
	seen := make(map[string]struct{}, len(group.Proxies))
	add := func(name string) {
		if name == "" {
			return
		}
		if _, dup := seen[name]; dup {
			return
		}
		seen[name] = struct{}{}
		members = append(members, name)
	}

	for _, expr := range group.Proxies {
		if len(expr) >= 2 && expr[:2] == "[]" {
			add(expr[2:])
			continue
		}
		for i := range universe {
			if matcher.Apply(expr, &universe[i]) {
				add(universe[i].Remark)
			}
		}
	}

	providers = append(providers, group.UsingProvider...)
	if len(members) == 0 && len(providers) == 0 {
		members = append(members, "DIRECT")
	}
	return members, providers
}
