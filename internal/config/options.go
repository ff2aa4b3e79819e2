package config

import (
	"fmt"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"
)

// Options is the typed view of the configuration's options block.
// Immutable after initialization; threaded explicitly into every
// component that needs it rather than held as ambient state.
//
// Raw retains the decoded options mapping exactly as merged, because
// the cache's whole-store invalidation fingerprints the block as the
// user wrote it, not this struct's view of it.
type Options struct {
	BasePath   string `yaml:"base_path"`
	TargetPath string `yaml:"target_path"`
	CachePath  string `yaml:"cache_path"`

	LdScriptPath     string `yaml:"ld_script_path"`
	SymbolHeaderPath string `yaml:"symbol_header_path"`

	SymbolAddrsPath string `yaml:"symbol_addrs_path"`

	CreateElfSectionList     bool   `yaml:"create_elf_section_list"`
	ElfSectionListPath       string `yaml:"elf_section_list_path"`
	CreateUndefinedFuncsAuto bool   `yaml:"create_undefined_funcs_auto"`
	UndefinedFuncsAutoPath   string `yaml:"undefined_funcs_auto_path"`
	CreateUndefinedSymsAuto  bool   `yaml:"create_undefined_syms_auto"`
	UndefinedSymsAutoPath    string `yaml:"undefined_syms_auto_path"`

	Modes   []string `yaml:"modes"`
	Verbose bool     `yaml:"verbose"`

	Raw map[string]any `yaml:"-"`
}

// NewOptions decodes the options block of a merged document and applies
// defaults. basePath and targetPath, when non-empty, override the
// document (they come from CLI flags).
func NewOptions(doc Document, basePath, targetPath string) (*Options, error) {
	opts := &Options{}

	raw, _ := doc["options"].(map[string]any)
	if raw != nil {
		// Round-trip through YAML so the struct tags drive the decode.
		data, err := yaml.Marshal(raw)
		if err != nil {
			return nil, fmt.Errorf("encode options block: %w", err)
		}
		if err := yaml.Unmarshal(data, opts); err != nil {
			return nil, fmt.Errorf("decode options block: %w", err)
		}
	}
	opts.Raw = raw

	if basePath != "" {
		opts.BasePath = basePath
	}
	if targetPath != "" {
		opts.TargetPath = targetPath
	}

	if opts.CachePath == "" {
		opts.CachePath = ".splache.db"
	}
	if opts.LdScriptPath == "" {
		opts.LdScriptPath = "splat.ld"
	}
	if opts.SymbolHeaderPath == "" {
		opts.SymbolHeaderPath = "symbols.h"
	}
	if opts.ElfSectionListPath == "" {
		opts.ElfSectionListPath = "elf_sections.txt"
	}
	if opts.UndefinedFuncsAutoPath == "" {
		opts.UndefinedFuncsAutoPath = "undefined_funcs_auto.txt"
	}
	if opts.UndefinedSymsAutoPath == "" {
		opts.UndefinedSymsAutoPath = "undefined_syms_auto.txt"
	}
	if len(opts.Modes) == 0 {
		opts.Modes = []string{"all"}
	}

	return opts, nil
}

// SetModes replaces the active modes (CLI --modes flag).
func (o *Options) SetModes(modes []string) {
	if len(modes) > 0 {
		o.Modes = modes
	}
}

// ModeActive reports whether a processing mode is enabled. The "all"
// mode enables everything.
func (o *Options) ModeActive(mode string) bool {
	return slices.Contains(o.Modes, "all") || slices.Contains(o.Modes, mode)
}

// ResolvePath anchors a configured path under the base output
// directory. Absolute paths pass through unchanged.
func (o *Options) ResolvePath(path string) string {
	if filepath.IsAbs(path) || o.BasePath == "" {
		return path
	}
	return filepath.Join(o.BasePath, path)
}

// CacheFile returns the resolved path of the persisted cache store.
func (o *Options) CacheFile() string {
	return o.ResolvePath(o.CachePath)
}
