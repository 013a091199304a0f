// Copyright 2026 The Bureau Authors
// SPDX-License-Identifier: Apache-2.0

package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"slices"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Tier rules.
const (
	// RuleParity limits every odd instance id.
	RuleParity = "parity"
	// RuleTable grants full access to FullAccessIDs only.
	RuleTable = "table"
)

// Engine kinds.
const (
	EnginePlaywright = "playwright"
	EngineFake       = "fake"
)

// Config is the host configuration.
type Config struct {
	// Directory locates the directory segment and the namespace every
	// other segment is created in.
	Directory DirectoryConfig `yaml:"directory"`

	// Pacing controls the tick loop.
	Pacing PacingConfig `yaml:"pacing"`

	// Access maps instance ids to access tiers and segment names.
	Access AccessConfig `yaml:"access"`

	// Engine configures the browser engine.
	Engine EngineConfig `yaml:"engine"`

	// GPU configures the texture device.
	GPU GPUConfig `yaml:"gpu"`

	// Logging configures log output.
	Logging LoggingConfig `yaml:"logging"`

	// Status configures the periodic status file.
	Status StatusConfig `yaml:"status"`
}

// DirectoryConfig locates shared segments.
type DirectoryConfig struct {
	// Key is the directory segment name. Required.
	Key string `yaml:"key"`

	// SegmentDirectory holds the shared segments.
	// Default: /dev/shm
	SegmentDirectory string `yaml:"segment_directory"`
}

// PacingConfig controls the tick loop.
type PacingConfig struct {
	// UseTimer drives ticks from a periodic timer instead of the
	// adaptive sleep loop.
	UseTimer bool `yaml:"use_timer"`

	// TargetFPS is the tick rate. Default: 60
	TargetFPS int `yaml:"target_fps"`
}

// Period returns the tick period.
func (p PacingConfig) Period() time.Duration {
	if p.TargetFPS <= 0 {
		return time.Second / 60
	}
	return time.Second / time.Duration(p.TargetFPS)
}

// AccessConfig maps instance ids to access tiers.
type AccessConfig struct {
	// Rule is parity or table. Default: parity
	Rule string `yaml:"rule"`

	// FullAccessIDs lists the ids with full access under the table
	// rule.
	FullAccessIDs []uint32 `yaml:"full_access_ids"`

	// LimitedPrefix and FullPrefix are prepended to the decimal id to
	// form instance segment names.
	LimitedPrefix string `yaml:"limited_prefix"`
	FullPrefix    string `yaml:"full_prefix"`
}

// Limited reports whether instance id lacks full access.
func (a AccessConfig) Limited(id uint32) bool {
	if a.Rule == RuleTable {
		return !slices.Contains(a.FullAccessIDs, id)
	}
	return id&1 == 1
}

// SegmentName returns the segment name of instance id.
func (a AccessConfig) SegmentName(id uint32) string {
	prefix := a.FullPrefix
	if a.Limited(id) {
		prefix = a.LimitedPrefix
	}
	return prefix + strconv.FormatUint(uint64(id), 10)
}

// EngineConfig configures the browser engine.
type EngineConfig struct {
	// Kind selects the engine: playwright or fake.
	// Default: playwright
	Kind string `yaml:"kind"`

	UserAgent       string `yaml:"user_agent"`
	AcceptLanguages string `yaml:"accept_languages"`

	// DataDirectory holds persistent profiles. Empty keeps every
	// instance in memory.
	DataDirectory string `yaml:"data_directory"`

	// Install downloads the browser on first start.
	Install bool `yaml:"install"`

	// Headful shows browser windows. Debugging only.
	Headful bool `yaml:"headful"`

	// Args are extra browser command line switches.
	Args []string `yaml:"args"`

	// CaptureInterval is how often painted frames are captured.
	// Default: 50ms
	CaptureInterval string `yaml:"capture_interval"`
}

// GPUConfig configures the texture device.
type GPUConfig struct {
	// Adapter is a "low;high" hint naming the DRM device number
	// (major;minor) of the adapter to use.
	Adapter string `yaml:"adapter"`

	// HandleNamespace prefixes shared texture segment names.
	// Default: webhost.tex
	HandleNamespace string `yaml:"handle_namespace"`
}

// LoggingConfig configures log output.
type LoggingConfig struct {
	// Level is debug, info, warn or error. Default: info
	Level string `yaml:"level"`

	// File also writes JSON logs to this path.
	File string `yaml:"file"`

	// Journal also logs to the systemd journal when running as a
	// service. Default: true
	Journal bool `yaml:"journal"`
}

// StatusConfig configures the status file.
type StatusConfig struct {
	// File is rewritten atomically with a JSON snapshot of the host.
	// Empty disables it.
	File string `yaml:"file"`

	// EveryTicks is the number of ticks between snapshots.
	// Default: 4096
	EveryTicks uint64 `yaml:"every_ticks"`
}

// Default returns the default configuration, wire-compatible with
// existing clients.
func Default() *Config {
	runtimeDirectory := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDirectory == "" {
		runtimeDirectory = os.TempDir()
	}
	return &Config{
		Directory: DirectoryConfig{
			SegmentDirectory: "/dev/shm",
		},
		Pacing: PacingConfig{
			TargetFPS: 60,
		},
		Access: AccessConfig{
			Rule:          RuleParity,
			LimitedPrefix: "AcTools.CSP.Limited.CEF.v0.",
			FullPrefix:    "AcTools.CSP.CEF.v0.",
		},
		Engine: EngineConfig{
			Kind:            EnginePlaywright,
			CaptureInterval: "50ms",
		},
		GPU: GPUConfig{
			HandleNamespace: "webhost.tex",
		},
		Logging: LoggingConfig{
			Level:   "info",
			Journal: true,
		},
		Status: StatusConfig{
			File:       filepath.Join(runtimeDirectory, "webhost", "status.json"),
			EveryTicks: 4096,
		},
	}
}

// Load builds the configuration the host runs with: defaults, then the
// file named by WEBHOST_CONFIG when set, then the ACCSPWB_* variables.
func Load() (*Config, error) {
	return LoadEnvironment(os.LookupEnv)
}

// LoadEnvironment is Load with an explicit variable lookup.
func LoadEnvironment(lookup func(string) (string, bool)) (*Config, error) {
	cfg := Default()
	if path, ok := lookup("WEBHOST_CONFIG"); ok && path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.ApplyEnvironment(lookup); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

// LoadFile loads configuration from a specific file path without
// consulting the environment beyond ${VAR} expansion.
func LoadFile(path string) (*Config, error) {
	cfg := Default()
	if err := cfg.loadFile(path); err != nil {
		return nil, err
	}
	cfg.expandVariables()
	return cfg, nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config %s: %w", path, err)
	}
	return nil
}

// ApplyEnvironment overrides fields from the ACCSPWB_* variables. A
// boolean variable is true when its value starts with '1'.
func (c *Config) ApplyEnvironment(lookup func(string) (string, bool)) error {
	if value, ok := lookup("ACCSPWB_KEY"); ok {
		c.Directory.Key = value
	}
	if value, ok := lookup("ACCSPWB_USE_TIMER"); ok {
		c.Pacing.UseTimer = strings.HasPrefix(value, "1")
	}
	if value, ok := lookup("ACCSPWB_TARGET_FPS"); ok {
		fps, err := strconv.ParseUint(strings.TrimSpace(value), 10, 32)
		if err != nil {
			return fmt.Errorf("ACCSPWB_TARGET_FPS: %w", err)
		}
		c.Pacing.TargetFPS = int(fps)
	}
	if value, ok := lookup("ACCSPWB_D3D_DEVICE"); ok {
		c.GPU.Adapter = value
	}
	if value, ok := lookup("ACCSPWB_DATA_DIRECTORY"); ok {
		c.Engine.DataDirectory = value
	}
	if value, ok := lookup("ACCSPWB_LOG_FILENAME"); ok {
		c.Logging.File = value
	}
	if value, ok := lookup("ACCSPWB_USER_AGENT"); ok {
		c.Engine.UserAgent = value
	}
	if value, ok := lookup("ACCSPWB_ACCEPT_LANGUAGES"); ok {
		c.Engine.AcceptLanguages = value
	}
	return nil
}

// expandVariables expands ${VAR} and ${VAR:-default} patterns in paths.
func (c *Config) expandVariables() {
	vars := map[string]string{
		"HOME": os.Getenv("HOME"),
	}
	c.Directory.SegmentDirectory = expandVars(c.Directory.SegmentDirectory, vars)
	c.Engine.DataDirectory = expandVars(c.Engine.DataDirectory, vars)
	c.Logging.File = expandVars(c.Logging.File, vars)
	c.Status.File = expandVars(c.Status.File, vars)
}

var varPattern = regexp.MustCompile(`\$\{([^}:]+)(?::-([^}]*))?\}`)

func expandVars(s string, vars map[string]string) string {
	return varPattern.ReplaceAllStringFunc(s, func(match string) string {
		parts := varPattern.FindStringSubmatch(match)
		if len(parts) < 2 {
			return match
		}
		name := parts[1]
		defaultValue := ""
		if len(parts) >= 3 {
			defaultValue = parts[2]
		}
		if value, ok := vars[name]; ok && value != "" {
			return value
		}
		if value := os.Getenv(name); value != "" {
			return value
		}
		return defaultValue
	})
}

// CaptureInterval parses Engine.CaptureInterval. Zero means the engine
// default.
func (c *Config) CaptureInterval() (time.Duration, error) {
	if c.Engine.CaptureInterval == "" {
		return 0, nil
	}
	interval, err := time.ParseDuration(c.Engine.CaptureInterval)
	if err != nil {
		return 0, fmt.Errorf("engine.capture_interval: %w", err)
	}
	return interval, nil
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if c.Directory.Key == "" {
		errs = append(errs, errors.New("directory.key is required (set ACCSPWB_KEY)"))
	}
	if strings.ContainsRune(c.Directory.Key, '/') {
		errs = append(errs, fmt.Errorf("directory.key %q must not contain '/'", c.Directory.Key))
	}
	if c.Directory.SegmentDirectory == "" {
		errs = append(errs, errors.New("directory.segment_directory is required"))
	}
	if c.Pacing.TargetFPS <= 0 || c.Pacing.TargetFPS > 1000 {
		errs = append(errs, fmt.Errorf("pacing.target_fps must be in [1, 1000], got %d", c.Pacing.TargetFPS))
	}
	if !slices.Contains([]string{RuleParity, RuleTable}, c.Access.Rule) {
		errs = append(errs, fmt.Errorf("access.rule must be %s or %s, got %q", RuleParity, RuleTable, c.Access.Rule))
	}
	if c.Access.LimitedPrefix == c.Access.FullPrefix {
		errs = append(errs, errors.New("access.limited_prefix and access.full_prefix must differ"))
	}
	if !slices.Contains([]string{EnginePlaywright, EngineFake}, c.Engine.Kind) {
		errs = append(errs, fmt.Errorf("engine.kind must be %s or %s, got %q", EnginePlaywright, EngineFake, c.Engine.Kind))
	}
	if _, err := c.CaptureInterval(); err != nil {
		errs = append(errs, err)
	}
	if !slices.Contains([]string{"debug", "info", "warn", "error"}, c.Logging.Level) {
		errs = append(errs, fmt.Errorf("logging.level must be one of debug, info, warn, error; got %q", c.Logging.Level))
	}
	if c.Status.File != "" && c.Status.EveryTicks == 0 {
		errs = append(errs, errors.New("status.every_ticks must be positive when status.file is set"))
	}

	if len(errs) > 0 {
		return errors.Join(errs...)
	}
	return nil
}
