package link

import "testing"

// Parse must never panic on arbitrary input; subscription sources are
// attacker-controlled text.
func FuzzParse(f *testing.F) {
	f.Add("ss://Y2hhY2hhMjAtaWV0Zi1wb2x5MTMwNTpwYXNzd29yZA==@example.com:8388#Example%20Server")
	f.Add("ss://notbase64@@::")
	f.Add("ssr://aaaa")
	f.Add("vmess://e30=")
	f.Add("trojan://p@h:1")
	f.Add("socks://dXNlcjpwYXNz@h:1080")
	f.Add("hysteria2://a@h:443?obfs=salamander")
	f.Add("wg://h:51820?private-key=k")
	f.Add("snell://psk@h:1?version=3")
	f.Add("http://u:p@h:8080#n")

	f.Fuzz(func(t *testing.T, line string) {
		p, err := Parse(line)
		if err != nil {
			return
		}
		if p.Port == 0 {
			t.Fatalf("successful parse must never yield port 0: %q", line)
		}
	})
}
