// Package settings loads the preference file into an immutable snapshot.
// Requests read one snapshot for their whole lifetime; a file watcher swaps
// the pointer on change so in-flight requests never see a half-applied
// reload.
package settings

import (
	"fmt"
	"os"
	"strings"

	"github.com/subforge/subforge/internal/model"
	"github.com/subforge/subforge/internal/prep"
	"github.com/subforge/subforge/internal/render"
	"gopkg.in/ini.v1"
)

type SettingsError struct {
	AppError model.AppError
	Cause    error
}

func (e *SettingsError) Error() string {
	if e == nil {
		return "<nil>"
	}
	if e.Cause == nil {
		return fmt.Sprintf("%s: %s", e.AppError.Code, e.AppError.Message)
	}
	return fmt.Sprintf("%s: %s: %v", e.AppError.Code, e.AppError.Message, e.Cause)
}

func (e *SettingsError) Unwrap() error { return e.Cause }

// RulesetSource names one ruleset to fetch and its destination group.
type RulesetSource struct {
	Group string
	URL   string
}

// Settings is one immutable configuration snapshot.
type Settings struct {
	Listen        string
	DefaultTarget string
	Filename      string

	AppendProxyType        bool
	EnableRuleGenerator    bool
	OverwriteOriginalRules bool
	Base64Output           bool
	ClashNewFieldName      bool
	SurgeVer               int

	UDP            model.Tribool
	TCPFastOpen    model.Tribool
	SkipCertVerify model.Tribool
	TLS13          model.Tribool

	AddEmoji    bool
	RemoveEmoji bool
	SortNodes   bool
	Renames     []prep.RenameRule
	Emojis      []prep.EmojiRule

	ManagedConfigURL      string
	ManagedConfigInterval int
	ManagedConfigStrict   bool

	Groups   []model.ProxyGroupConfig
	Rulesets []RulesetSource

	// Fetch limits.
	FetchTimeoutSec int
	MaxFetchBytes   int64

	LogLevel string
}

// common / node_pref carry scalar keys mapped via ini tags; multi-valued
// keys (rename_node, emoji rules, rulesets, groups) are read with shadow
// values below.
type commonSection struct {
	Listen                 string `ini:"listen"`
	DefaultTarget          string `ini:"default_target"`
	Filename               string `ini:"filename"`
	AppendProxyType        bool   `ini:"append_proxy_type"`
	EnableRuleGenerator    bool   `ini:"enable_rule_generator"`
	OverwriteOriginalRules bool   `ini:"overwrite_original_rules"`
	Base64Output           bool   `ini:"base64"`
	ClashNewFieldName      bool   `ini:"clash_new_field_name"`
	SurgeVer               int    `ini:"surge_ver"`
	FetchTimeoutSec        int    `ini:"fetch_timeout"`
	MaxFetchBytes          int64  `ini:"max_fetch_bytes"`
	LogLevel               string `ini:"log_level"`
}

type nodePrefSection struct {
	UDPFlag            string `ini:"udp_flag"`
	TCPFastOpenFlag    string `ini:"tcp_fast_open_flag"`
	SkipCertVerifyFlag string `ini:"skip_cert_verify_flag"`
	TLS13Flag          string `ini:"tls13_flag"`
	SortFlag           bool   `ini:"sort_flag"`
}

type emojiSection struct {
	AddEmoji    bool `ini:"add_emoji"`
	RemoveEmoji bool `ini:"remove_old_emoji"`
}

type managedSection struct {
	URL      string `ini:"managed_config_url"`
	Interval int    `ini:"config_update_interval"`
	Strict   bool   `ini:"config_update_strict"`
}

// Default returns the built-in snapshot used when no pref file exists.
func Default() *Settings {
	return &Settings{
		Listen:              ":25500",
		DefaultTarget:       "clash",
		Filename:            "subforge",
		EnableRuleGenerator: true,
		ClashNewFieldName:   true,
		SurgeVer:            3,
		FetchTimeoutSec:     15,
		MaxFetchBytes:       10 << 20,
		LogLevel:            "info",
	}
}

// Load reads the pref file and applies environment overrides. A missing file
// yields the defaults; a malformed file is an error so a bad edit never
// silently reverts the service to defaults.
func Load(path string) (*Settings, error) {
	s := Default()
	if path != "" {
		if _, err := os.Stat(path); err == nil {
			if err := loadFile(s, path); err != nil {
				return nil, err
			}
		}
	}
	applyEnv(s)
	return s, nil
}

func loadFile(s *Settings, path string) error {
	cfg, err := ini.LoadSources(ini.LoadOptions{AllowShadows: true}, path)
	if err != nil {
		return &SettingsError{
			AppError: model.AppError{
				Code:    "SETTINGS_PARSE_ERROR",
				Message: "配置文件解析失败",
				Stage:   "load_settings",
				URL:     path,
			},
			Cause: err,
		}
	}

	var common commonSection
	common.Listen = s.Listen
	common.DefaultTarget = s.DefaultTarget
	common.Filename = s.Filename
	common.EnableRuleGenerator = s.EnableRuleGenerator
	common.ClashNewFieldName = s.ClashNewFieldName
	common.SurgeVer = s.SurgeVer
	common.FetchTimeoutSec = s.FetchTimeoutSec
	common.MaxFetchBytes = s.MaxFetchBytes
	common.LogLevel = s.LogLevel
	if err := cfg.Section("common").MapTo(&common); err != nil {
		return mapError(path, "common", err)
	}
	s.Listen = common.Listen
	s.DefaultTarget = common.DefaultTarget
	s.Filename = common.Filename
	s.AppendProxyType = common.AppendProxyType
	s.EnableRuleGenerator = common.EnableRuleGenerator
	s.OverwriteOriginalRules = common.OverwriteOriginalRules
	s.Base64Output = common.Base64Output
	s.ClashNewFieldName = common.ClashNewFieldName
	s.SurgeVer = common.SurgeVer
	s.FetchTimeoutSec = common.FetchTimeoutSec
	s.MaxFetchBytes = common.MaxFetchBytes
	s.LogLevel = common.LogLevel

	var nodePref nodePrefSection
	if err := cfg.Section("node_pref").MapTo(&nodePref); err != nil {
		return mapError(path, "node_pref", err)
	}
	s.UDP = model.TriboolFromString(nodePref.UDPFlag)
	s.TCPFastOpen = model.TriboolFromString(nodePref.TCPFastOpenFlag)
	s.SkipCertVerify = model.TriboolFromString(nodePref.SkipCertVerifyFlag)
	s.TLS13 = model.TriboolFromString(nodePref.TLS13Flag)
	s.SortNodes = nodePref.SortFlag
	for _, raw := range cfg.Section("node_pref").Key("rename_node").ValueWithShadows() {
		if match, replace, ok := strings.Cut(raw, "@"); ok {
			s.Renames = append(s.Renames, prep.RenameRule{Match: match, Replace: replace})
		}
	}

	var emoji emojiSection
	if err := cfg.Section("emojis").MapTo(&emoji); err != nil {
		return mapError(path, "emojis", err)
	}
	s.AddEmoji = emoji.AddEmoji
	s.RemoveEmoji = emoji.RemoveEmoji
	for _, raw := range cfg.Section("emojis").Key("rule").ValueWithShadows() {
		if match, e, ok := strings.Cut(raw, ","); ok {
			s.Emojis = append(s.Emojis, prep.EmojiRule{Match: match, Emoji: strings.TrimSpace(e)})
		}
	}

	var managed managedSection
	if err := cfg.Section("managed_config").MapTo(&managed); err != nil {
		return mapError(path, "managed_config", err)
	}
	s.ManagedConfigURL = managed.URL
	s.ManagedConfigInterval = managed.Interval
	s.ManagedConfigStrict = managed.Strict

	for _, raw := range cfg.Section("ruleset").Key("ruleset").ValueWithShadows() {
		if group, url, ok := strings.Cut(raw, ","); ok {
			s.Rulesets = append(s.Rulesets, RulesetSource{Group: strings.TrimSpace(group), URL: strings.TrimSpace(url)})
		}
	}
	for _, raw := range cfg.Section("proxy_group").Key("custom_proxy_group").ValueWithShadows() {
		if g, ok := ParseGroupLine(raw); ok {
			s.Groups = append(s.Groups, g)
		}
	}
	return nil
}

func mapError(path, section string, err error) error {
	return &SettingsError{
		AppError: model.AppError{
			Code:    "SETTINGS_PARSE_ERROR",
			Message: fmt.Sprintf("配置节 [%s] 映射失败", section),
			Stage:   "load_settings",
			URL:     path,
		},
		Cause: err,
	}
}

// ParseGroupLine parses the backtick group grammar:
//
//	Name`type`spec`spec...[`url`interval[,timeout[,tolerance]]]
//
// Specs starting with "[]" are literal members, "!!PROVIDER=" names enter
// UsingProvider, anything else is a matcher pattern.
func ParseGroupLine(raw string) (model.ProxyGroupConfig, bool) {
	parts := strings.Split(raw, "`")
	if len(parts) < 2 {
		return model.ProxyGroupConfig{}, false
	}
	g := model.ProxyGroupConfig{Name: strings.TrimSpace(parts[0])}
	typ, ok := model.ProxyGroupTypeFromString(strings.TrimSpace(parts[1]))
	if g.Name == "" || !ok {
		return model.ProxyGroupConfig{}, false
	}
	g.Type = typ

	rest := parts[2:]
	// A health-check tail is "url`interval..." in the last two fields.
	if g.UsesHealthCheck() && len(rest) >= 2 {
		last := rest[len(rest)-1]
		urlField := rest[len(rest)-2]
		if strings.Contains(urlField, "://") {
			g.URL = urlField
			nums := strings.Split(last, ",")
			g.Interval = atoiSafe(nums[0])
			if len(nums) > 1 {
				g.Timeout = atoiSafe(nums[1])
			}
			if len(nums) > 2 {
				g.Tolerance = atoiSafe(nums[2])
			}
			rest = rest[:len(rest)-2]
		}
	}
	for _, spec := range rest {
		if provider, ok := strings.CutPrefix(spec, "!!PROVIDER="); ok {
			g.UsingProvider = append(g.UsingProvider, strings.Split(provider, ",")...)
			continue
		}
		g.Proxies = append(g.Proxies, spec)
	}
	return g, true
}

func atoiSafe(s string) int {
	n := 0
	for _, r := range strings.TrimSpace(s) {
		if r < '0' || r > '9' {
			return n
		}
		n = n*10 + int(r-'0')
	}
	return n
}

func applyEnv(s *Settings) {
	if v := os.Getenv("SUBFORGE_LISTEN"); v != "" {
		s.Listen = v
	}
	if v := os.Getenv("SUBFORGE_DEFAULT_TARGET"); v != "" {
		s.DefaultTarget = v
	}
	if v := os.Getenv("SUBFORGE_LOG_LEVEL"); v != "" {
		s.LogLevel = v
	}
}

// Extra converts the snapshot into the per-request render settings.
func (s *Settings) Extra() *render.ExtraSettings {
	return &render.ExtraSettings{
		UDP:                    s.UDP,
		TCPFastOpen:            s.TCPFastOpen,
		SkipCertVerify:         s.SkipCertVerify,
		TLS13:                  s.TLS13,
		EnableRuleGenerator:    s.EnableRuleGenerator,
		OverwriteOriginalRules: s.OverwriteOriginalRules,
		AppendProxyType:        s.AppendProxyType,
		ClashNewFieldName:      s.ClashNewFieldName,
		SurgeVer:               s.SurgeVer,
		ManagedConfigURL:       s.ManagedConfigURL,
		ManagedConfigInterval:  s.ManagedConfigInterval,
		ManagedConfigStrict:    s.ManagedConfigStrict,
		Base64Output:           s.Base64Output,
		Filename:               s.Filename,
	}
}

// PrepOptions converts the snapshot into the preprocessing options.
func (s *Settings) PrepOptions() prep.Options {
	return prep.Options{
		Renames:     s.Renames,
		Emojis:      s.Emojis,
		AddEmoji:    s.AddEmoji,
		RemoveEmoji: s.RemoveEmoji,
		SortNodes:   s.SortNodes,
	}
}
