// Package config holds the compiler's feature and warning registries and
// the selected output options.
package config

import (
	"fmt"
	"runtime"

	"github.com/orion-lang/orion/pkg/target"
)

type Feature int

const (
	FeatSemicolons Feature = iota
	FeatFloat
	FeatStructs
	FeatFold
	FeatCount
)

type Warning int

const (
	WarnUnknownIdent Warning = iota
	WarnOverflow
	WarnUnreachableCode
	WarnShadow
	WarnExtra
	WarnCount
)

type Info struct {
	Name        string
	Enabled     bool
	Description string
}

type Config struct {
	Features   map[Feature]Info
	Warnings   map[Warning]Info
	FeatureMap map[string]Feature
	WarningMap map[string]Warning

	Target  target.Spec
	EmitAsm bool
	OutFile string
}

func NewConfig() *Config {
	cfg := &Config{
		Features:   make(map[Feature]Info),
		Warnings:   make(map[Warning]Info),
		FeatureMap: make(map[string]Feature),
		WarningMap: make(map[string]Warning),
	}

	features := map[Feature]Info{
		FeatSemicolons: {"semicolons", true, "Allow ';' as a statement terminator alongside newlines."},
		FeatFloat:      {"float", true, "Allow floating-point literals and float types."},
		FeatStructs:    {"structs", true, "Allow 'struct' and 'enum' declarations."},
		FeatFold:       {"fold", false, "Fold constant subexpressions before code generation."},
	}

	warnings := map[Warning]Info{
		WarnUnknownIdent:    {"unknown-ident", true, "Warn when an identifier resolves to no declaration and a fallback slot is used."},
		WarnOverflow:        {"overflow", true, "Warn when an integer constant is out of range for a 64-bit word."},
		WarnUnreachableCode: {"unreachable-code", true, "Warn about statements after a 'return', 'break' or 'continue'."},
		WarnShadow:          {"shadow", false, "Warn when a 'local' declaration or loop variable shadows a parameter or global."},
		WarnExtra:           {"extra", true, "Enable extra miscellaneous warnings."},
	}

	cfg.Features, cfg.Warnings = features, warnings
	for ft, info := range features {
		cfg.FeatureMap[info.Name] = ft
	}
	for wt, info := range warnings {
		cfg.WarningMap[info.Name] = wt
	}

	cfg.Target = target.Host(runtime.GOOS)
	return cfg
}

// SetTarget selects the output platform by name (linux, macos, windows).
func (c *Config) SetTarget(name string) error {
	spec, ok := target.ByName(name)
	if !ok {
		return fmt.Errorf("unknown target %q (expected linux, macos or windows)", name)
	}
	c.Target = spec
	return nil
}

func (c *Config) SetFeature(ft Feature, enabled bool) {
	if info, ok := c.Features[ft]; ok {
		info.Enabled = enabled
		c.Features[ft] = info
	}
}

func (c *Config) IsFeatureEnabled(ft Feature) bool {
	if info, ok := c.Features[ft]; ok {
		return info.Enabled
	}
	return false
}

func (c *Config) SetWarning(wt Warning, enabled bool) {
	if info, ok := c.Warnings[wt]; ok {
		info.Enabled = enabled
		c.Warnings[wt] = info
	}
}

func (c *Config) IsWarningEnabled(wt Warning) bool {
	if info, ok := c.Warnings[wt]; ok {
		return info.Enabled
	}
	return false
}

// SetAllWarnings flips every warning at once, -Wall style.
func (c *Config) SetAllWarnings(enabled bool) {
	for i := Warning(0); i < WarnCount; i++ {
		c.SetWarning(i, enabled)
	}
}
