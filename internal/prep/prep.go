// Package prep mutates ingested proxies between ingestion and emission:
// remark rewrites, emoji tagging, and optional sorting. This is the only
// stage allowed to modify a Proxy after its codec created it.
package prep

import (
	"regexp"
	"sort"
	"strings"

	"github.com/subforge/subforge/internal/matcher"
	"github.com/subforge/subforge/internal/model"
)

// RenameRule rewrites remarks. Match may carry a structural !!KEY= prefix;
// the trailing segment (or the whole pattern for plain rules) is applied as
// a case-insensitive regex replacement with Replace.
type RenameRule struct {
	Match   string
	Replace string
}

// EmojiRule prepends Emoji to the remark of every node whose remark matches
// the pattern.
type EmojiRule struct {
	Match string
	Emoji string
}

type Options struct {
	Renames []RenameRule
	Emojis  []EmojiRule

	AddEmoji    bool
	RemoveEmoji bool
	SortNodes   bool
}

// Apply runs the whole preprocessing pass in place.
func Apply(nodes []model.Proxy, opt Options) {
	for i := range nodes {
		p := &nodes[i]
		for _, r := range opt.Renames {
			applyRename(p, r)
		}
		if opt.RemoveEmoji {
			p.Remark = stripLeadingEmoji(p.Remark)
		}
		if opt.AddEmoji {
			for _, e := range opt.Emojis {
				if e.Emoji == "" || !matcher.Apply(e.Match, p) {
					continue
				}
				p.Remark = e.Emoji + " " + p.Remark
				break
			}
		}
	}
	if opt.SortNodes {
		sort.SliceStable(nodes, func(i, j int) bool {
			return nodes[i].Remark < nodes[j].Remark
		})
	}
}

func applyRename(p *model.Proxy, r RenameRule) {
	expr, ok := matcher.Trailing(r.Match, p)
	if !ok || expr == "" {
		return
	}
	re, err := regexp.Compile("(?i)" + expr)
	if err != nil {
		// Degrade to literal substring replacement, mirroring the matcher's
		// bad-regex fallback.
		p.Remark = strings.ReplaceAll(p.Remark, expr, r.Replace)
		return
	}
	p.Remark = re.ReplaceAllString(p.Remark, braceCaptureRefs(r.Replace))
}

var captureRef = regexp.MustCompile(`\$(\d+)`)

// braceCaptureRefs rewrites $1 into ${1}. Go's expansion takes the longest
// run of letters and digits as the group name, and CJK counts as letters, so
// a replacement like "$1倍" would otherwise reference a group named "1倍"
// and expand to nothing.
func braceCaptureRefs(replace string) string {
	return captureRef.ReplaceAllString(replace, "$${$1}")
}

// stripLeadingEmoji removes one leading emoji (plus any following space)
// so re-tagging does not stack flags.
func stripLeadingEmoji(remark string) string {
	runes := []rune(remark)
	i := 0
	for i < len(runes) && isEmojiRune(runes[i]) {
		i++
	}
	if i == 0 {
		return remark
	}
	return strings.TrimLeft(string(runes[i:]), " ")
}

func isEmojiRune(r rune) bool {
	switch {
	case r >= 0x1F1E6 && r <= 0x1F1FF: // regional indicators (flags)
		return true
	case r >= 0x1F300 && r <= 0x1FAFF:
		return true
	case r >= 0x2600 && r <= 0x27BF:
		return true
	case r == 0xFE0F || r == 0x200D:
		return true
	default:
		return false
	}
}
