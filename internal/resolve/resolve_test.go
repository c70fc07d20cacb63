package resolve

import (
	"reflect"
	"testing"

	"github.com/subforge/subforge/internal/model"
)

func universe() []model.Proxy {
	return []model.Proxy{
		{Type: model.TypeShadowsocks, Remark: "HK 01", Hostname: "a", Port: 1},
		{Type: model.TypeVMess, Remark: "HK 02", Hostname: "b", Port: 2},
		{Type: model.TypeShadowsocks, Remark: "SG 01", Hostname: "c", Port: 3},
		{Type: model.TypeTrojan, Remark: "US 01", Hostname: "d", Port: 4},
	}
}

func TestExpand_PatternsAndLiterals(t *testing.T) {
	g := model.ProxyGroupConfig{
		Name:    "Auto",
		Type:    model.GroupURLTest,
		Proxies: []string{"[]DIRECT", "HK", "!!TYPE=SS"},
	}
	members, providers := Expand(g, universe())
	want := []string{"DIRECT", "HK 01", "HK 02", "SG 01"}
	if !reflect.DeepEqual(members, want) {
		t.Fatalf("members=%v, want %v", members, want)
	}
	if len(providers) != 0 {
		t.Fatalf("providers=%v, want none", providers)
	}
}

func TestExpand_DedupKeepsFirstOccurrence(t *testing.T) {
	g := model.ProxyGroupConfig{
		Name:    "All",
		Proxies: []string{"HK", ".*"},
	}
	members, _ := Expand(g, universe())
	want := []string{"HK 01", "HK 02", "SG 01", "US 01"}
	if !reflect.DeepEqual(members, want) {
		t.Fatalf("members=%v, want %v", members, want)
	}
}

func TestExpand_EmptyFallsBackToDirect(t *testing.T) {
	g := model.ProxyGroupConfig{Name: "Empty", Proxies: []string{"NOSUCH"}}
	members, _ := Expand(g, universe())
	if !reflect.DeepEqual(members, []string{"DIRECT"}) {
		t.Fatalf("members=%v, want [DIRECT]", members)
	}
}

func TestExpand_ProviderSuppressesDirectFallback(t *testing.T) {
	g := model.ProxyGroupConfig{
		Name:          "Prov",
		Proxies:       []string{"NOSUCH"},
		UsingProvider: []string{"airport-a"},
	}
	members, providers := Expand(g, universe())
	if len(members) != 0 {
		t.Fatalf("members=%v, want none", members)
	}
	if !reflect.DeepEqual(providers, []string{"airport-a"}) {
		t.Fatalf("providers=%v", providers)
	}
}

func TestExpand_Idempotent(t *testing.T) {
	g := model.ProxyGroupConfig{Name: "G", Proxies: []string{".*", "[]REJECT"}}
	u := universe()
	first, _ := Expand(g, u)
	second, _ := Expand(g, u)
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("expansion must be stable: %v vs %v", first, second)
	}
}
