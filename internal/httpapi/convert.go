package httpapi

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/subforge/subforge/internal/fetch"
	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/prep"
	"github.com/subforge/subforge/internal/render"
	"github.com/subforge/subforge/internal/rules"
	"github.com/subforge/subforge/internal/settings"
	"github.com/subforge/subforge/internal/sub"
)

// handleSub runs one conversion: fetch every subscription source, normalize,
// preprocess, resolve and emit. Per-source failures are soft as long as at
// least one source yields nodes; zero nodes overall is the only fatal
// pipeline error.
func (s *Server) handleSub(c *gin.Context) {
	snap := s.store.Current()

	targetParam := c.Query("target")
	if targetParam == "" {
		targetParam = snap.DefaultTarget
	}
	target, ok := render.ParseTarget(targetParam)
	if !ok {
		badRequest(c, "UNSUPPORTED_TARGET", "不支持的 target："+targetParam, "supported: clash/clashr/surge/surfboard/mellow/quan/quanx/loon/singbox/sssub/ssd/mixed")
		return
	}

	rawURL := c.Query("url")
	if rawURL == "" {
		rawURL = c.Query("sub")
	}
	if rawURL == "" {
		badRequest(c, "INVALID_ARGUMENT", "缺少 url 参数", "url=<sub1>|<sub2>")
		return
	}

	opts := fetch.Options{
		Timeout:  time.Duration(snap.FetchTimeoutSec) * time.Second,
		MaxBytes: snap.MaxFetchBytes,
	}

	var nodes []model.Proxy
	var userinfo string
	var lastErr error
	for _, source := range strings.Split(rawURL, "|") {
		source = strings.TrimSpace(source)
		if source == "" {
			continue
		}
		res, err := fetch.TextWithOptions(c.Request.Context(), fetch.KindSubscription, source, opts)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Msg("订阅拉取失败，跳过该来源")
			continue
		}
		parsed, err := sub.ParseAny(s.log, source, res.Text)
		if err != nil {
			lastErr = err
			s.log.Warn().Err(err).Msg("订阅解析失败，跳过该来源")
			continue
		}
		nodes = append(nodes, parsed...)
		if userinfo == "" {
			userinfo = res.SubscriptionUserinfo
		}
	}
	if len(nodes) == 0 {
		if lastErr != nil {
			writeError(c, lastErr)
			return
		}
		badRequest(c, "NO_NODES", "所有订阅来源均未产生可用节点", "")
		return
	}

	prep.Apply(nodes, snap.PrepOptions())

	rulesets, err := s.loadRulesets(c, snap, opts)
	if err != nil {
		writeError(c, err)
		return
	}

	base := ""
	if configURL := c.Query("config"); configURL != "" {
		res, err := fetch.TextWithOptions(c.Request.Context(), fetch.KindTemplate, configURL, opts)
		if err != nil {
			writeError(c, err)
			return
		}
		base = res.Text
	}

	ext := snap.Extra()
	applyQueryOverrides(c, ext)

	out, err := render.Emit(target, nodes, base, rulesets, snap.Groups, ext)
	if err != nil {
		writeError(c, err)
		return
	}

	setAttachmentHeaders(c, target, c.Query("filename"), ext.Filename)
	if userinfo != "" {
		c.Header("Subscription-Userinfo", userinfo)
	}
	c.Data(http.StatusOK, contentType(target), []byte(out))
}

// loadRulesets fetches every configured ruleset. A single broken ruleset
// fails the request: emitting a config with silently missing rules would
// route traffic wrong.
func (s *Server) loadRulesets(c *gin.Context, snap *settings.Settings, opts fetch.Options) ([]model.RulesetContent, error) {
	if !snap.EnableRuleGenerator {
		return nil, nil
	}
	out := make([]model.RulesetContent, 0, len(snap.Rulesets))
	for _, src := range snap.Rulesets {
		// "[]FINAL" style inline rules skip the fetch.
		if inline, ok := strings.CutPrefix(src.URL, "[]"); ok {
			parsed, err := rules.ParseRulesetText(src.URL, inline)
			if err != nil {
				return nil, err
			}
			out = append(out, model.RulesetContent{Group: src.Group, Rules: parsed})
			continue
		}
		res, err := fetch.TextWithOptions(c.Request.Context(), fetch.KindRuleset, src.URL, opts)
		if err != nil {
			return nil, err
		}
		parsed, err := rules.ParseRulesetText(src.URL, res.Text)
		if err != nil {
			return nil, err
		}
		out = append(out, model.RulesetContent{Group: src.Group, Rules: parsed})
	}
	return out, nil
}

// applyQueryOverrides lets the request flip selected snapshot defaults.
func applyQueryOverrides(c *gin.Context, ext *render.ExtraSettings) {
	if v, ok := c.GetQuery("udp"); ok {
		ext.UDP = model.TriboolFromString(v)
	}
	if v, ok := c.GetQuery("tfo"); ok {
		ext.TCPFastOpen = model.TriboolFromString(v)
	}
	if v, ok := c.GetQuery("scv"); ok {
		ext.SkipCertVerify = model.TriboolFromString(v)
	}
	if v, ok := c.GetQuery("append_type"); ok {
		ext.AppendProxyType = isTruthy(v)
	}
	if v, ok := c.GetQuery("list"); ok && isTruthy(v) {
		ext.Base64Output = false
	}
	if v, ok := c.GetQuery("surge_ver"); ok {
		switch v {
		case "3":
			ext.SurgeVer = 3
		case "4":
			ext.SurgeVer = 4
		}
	}
}

func isTruthy(v string) bool {
	switch strings.ToLower(v) {
	case "1", "true", "yes", "on":
		return true
	default:
		return false
	}
}

func contentType(target render.Target) string {
	switch target {
	case render.TargetClash, render.TargetClashR:
		return "text/yaml; charset=utf-8"
	case render.TargetSingBox:
		return "application/json; charset=utf-8"
	default:
		return "text/plain; charset=utf-8"
	}
}
