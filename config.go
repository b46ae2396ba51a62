package formkey

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the contents of ~/.config/formkey.toml:
//
//	[timeouts]
//	escape_first = "50ms"
//	escape = "25ms"
//	chord = "1s"
//
//	[keys]
//	"^[[1;2P" = "<S-F1>"
//
//	[aliases]
//	Leader = ","
//
//	[global]
//	scroll_down = "j"
//
//	[myapp]
//	scroll_down = "<C-n>"
type Config struct {
	Timing   Timing
	Aliases  map[string]string
	Bindings map[string]string // global section merged with the app section

	keys map[string]interface{}
}

// ConfigPath returns the default config file path.
// Respects XDG_CONFIG_HOME if set, otherwise uses ~/.config/formkey.toml
func ConfigPath() string {
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return ""
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "formkey.toml")
}

// LoadConfig reads the config file at path for appName. A missing file gives
// the defaults. Entries that do not parse are skipped with a warning; only a
// file that is not valid TOML is an error.
func LoadConfig(path, appName string, logger *slog.Logger) (*Config, error) {
	cfg := newConfig()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return cfg, nil
		}
		return nil, err
	}
	if err := cfg.decode(string(data), appName, loggerOrDiscard(logger)); err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return cfg, nil
}

// ParseConfig is LoadConfig for config text already in memory.
func ParseConfig(r io.Reader, appName string, logger *slog.Logger) (*Config, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return nil, err
	}
	cfg := newConfig()
	if err := cfg.decode(string(data), appName, loggerOrDiscard(logger)); err != nil {
		return nil, err
	}
	return cfg, nil
}

func newConfig() *Config {
	return &Config{
		Timing:   DefaultTiming,
		Aliases:  make(map[string]string),
		Bindings: make(map[string]string),
	}
}

func (c *Config) decode(data, appName string, logger *slog.Logger) error {
	// Parse into a generic map first; app sections have arbitrary names
	var raw map[string]interface{}
	if _, err := toml.Decode(data, &raw); err != nil {
		return fmt.Errorf("parse config: %w", err)
	}

	if timeouts, ok := raw["timeouts"].(map[string]interface{}); ok {
		c.decodeTimeouts(timeouts, logger)
	}
	if keys, ok := raw["keys"].(map[string]interface{}); ok {
		c.keys = keys
	}
	stringTable(raw["aliases"], "aliases", c.Aliases, logger)
	stringTable(raw["global"], "global", c.Bindings, logger)
	if appName != "" && appName != "global" {
		stringTable(raw[appName], appName, c.Bindings, logger)
	}
	return nil
}

func (c *Config) decodeTimeouts(t map[string]interface{}, logger *slog.Logger) {
	fields := map[string]*time.Duration{
		"escape_first": &c.Timing.EscapeFirst,
		"escape":       &c.Timing.Escape,
		"chord":        &c.Timing.Chord,
	}
	for name, v := range t {
		dst, ok := fields[name]
		if !ok {
			logger.Warn("config: unknown timeout", "name", name)
			continue
		}
		s, ok := v.(string)
		if !ok {
			logger.Warn("config: timeout is not a string", "name", name)
			continue
		}
		d, err := time.ParseDuration(s)
		if err != nil || d < 0 {
			logger.Warn("config: bad timeout", "name", name, "value", s)
			continue
		}
		*dst = d
	}
}

// stringTable copies the string values of a TOML table into dst.
func stringTable(v interface{}, section string, dst map[string]string, logger *slog.Logger) {
	table, ok := v.(map[string]interface{})
	if !ok {
		return
	}
	for name, val := range table {
		s, ok := val.(string)
		if !ok {
			logger.Warn("config: value is not a string", "section", section, "name", name)
			continue
		}
		dst[name] = s
	}
}

// Apply sets aliases and rebinds named bindings on each keymap. Names a
// keymap does not know are ignored, so one config can serve several keymaps.
func (c *Config) Apply(keymaps ...*Keymap) {
	for _, km := range keymaps {
		for name, expansion := range c.Aliases {
			km.SetAlias(name, expansion)
		}
		km.ApplyBindings(c.Bindings)
	}
}

// ApplySequences adds the [keys] overrides to t.
func (c *Config) ApplySequences(t *SequenceTable, logger *slog.Logger) (applied, skipped int) {
	if len(c.keys) == 0 {
		return 0, 0
	}
	return t.applyOverrides(c.keys, logger)
}

// Configure applies the config's timing, key overrides and bindings to an
// input and the keymaps it dispatches to.
func (c *Config) Configure(in *Input, keymaps ...*Keymap) {
	in.SetTiming(c.Timing)
	c.ApplySequences(in.Decoder().Sequences(), in.logger)
	c.Apply(keymaps...)
}

// LoadBindings loads bindings from the shared config file.
// It merges: defaults → global section → app-specific section.
// Missing file or sections are silently ignored.
func (km *Keymap) LoadBindings(appName string) error {
	return km.LoadBindingsFrom(ConfigPath(), appName)
}

// LoadBindingsFrom loads bindings from a specific config file.
func (km *Keymap) LoadBindingsFrom(path, appName string) error {
	cfg, err := LoadConfig(path, appName, nil)
	if err != nil {
		return err
	}
	cfg.Apply(km)
	return nil
}

// WriteDefaultBindings writes a TOML config template with all bindings commented out.
func (km *Keymap) WriteDefaultBindings(w io.Writer, appName string) error {
	var sb strings.Builder

	sb.WriteString("[" + appName + "]\n")
	for _, b := range km.Bindings() {
		sb.WriteString("# " + b.Name + " = \"" + b.DefaultPattern + "\"\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}
