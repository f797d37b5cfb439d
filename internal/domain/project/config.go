// Package project loads and validates wavedash.toml, the per-project
// configuration consumed by the dev sandbox server.
package project

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"

	"github.com/pelletier/go-toml/v2"
)

// Configuration errors. Resolution failures wrap one of these so callers can
// branch on the class while still printing the field detail.
var (
	ErrMissingField           = errors.New("missing required config field")
	ErrNoEngineSection        = errors.New("no engine section in config")
	ErrMultipleEngineSections = errors.New("multiple engine sections in config")
	ErrUnknownEngineType      = errors.New("unknown engine type")
	ErrInvalidVersion         = errors.New("invalid engine version")
	ErrUploadDir              = errors.New("invalid upload_dir")
)

// Config is a fully validated project configuration. UploadDir is absolute,
// resolved against the directory containing the config file.
type Config struct {
	OrgSlug    string
	GameSlug   string
	BranchSlug string
	UploadDir  string
	Engine     EngineTarget

	// LegacyEngineSchema is set when the engine came from the single
	// [engine] table instead of a per-engine section. Callers should warn.
	LegacyEngineSchema bool
}

// engineSection is a per-engine table: [godot], [unity], or [custom].
// Only custom carries an entrypoint.
type engineSection struct {
	Version    string `toml:"version"`
	Entrypoint string `toml:"entrypoint"`
}

// typedEngineSection is the alternate [engine] table with an explicit type.
type typedEngineSection struct {
	Type       string `toml:"type"`
	Version    string `toml:"version"`
	Entrypoint string `toml:"entrypoint"`
}

// File is the raw on-disk schema before validation.
type File struct {
	OrgSlug    string `toml:"org_slug"`
	GameSlug   string `toml:"game_slug"`
	BranchSlug string `toml:"branch_slug"`
	UploadDir  string `toml:"upload_dir"`

	Godot  *engineSection      `toml:"godot"`
	Unity  *engineSection      `toml:"unity"`
	Custom *engineSection      `toml:"custom"`
	Engine *typedEngineSection `toml:"engine"`
}

// Load reads, parses, and resolves the config file at path.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config %s: %w", path, err)
	}

	var fc File
	if err := toml.Unmarshal(raw, &fc); err != nil {
		return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
	}

	cfg, err := Resolve(&fc)
	if err != nil {
		return nil, err
	}

	if err := resolveUploadDir(cfg, filepath.Dir(path)); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve validates the parsed table and normalizes the engine selection.
// It does not touch the filesystem; UploadDir remains as written.
func Resolve(fc *File) (*Config, error) {
	for _, field := range []struct {
		name  string
		value string
	}{
		{"org_slug", fc.OrgSlug},
		{"game_slug", fc.GameSlug},
		{"branch_slug", fc.BranchSlug},
		{"upload_dir", fc.UploadDir},
	} {
		if field.value == "" {
			return nil, fmt.Errorf("%w: %s", ErrMissingField, field.name)
		}
	}

	engine, legacy, err := resolveEngine(fc)
	if err != nil {
		return nil, err
	}

	return &Config{
		OrgSlug:            fc.OrgSlug,
		GameSlug:           fc.GameSlug,
		BranchSlug:         fc.BranchSlug,
		UploadDir:          fc.UploadDir,
		Engine:             engine,
		LegacyEngineSchema: legacy,
	}, nil
}

func resolveEngine(fc *File) (EngineTarget, bool, error) {
	var targets []EngineTarget
	if fc.Godot != nil {
		targets = append(targets, EngineTarget{Kind: EngineGodot, Version: fc.Godot.Version})
	}
	if fc.Unity != nil {
		targets = append(targets, EngineTarget{Kind: EngineUnity, Version: fc.Unity.Version})
	}
	if fc.Custom != nil {
		targets = append(targets, EngineTarget{
			Kind:       EngineCustom,
			Version:    fc.Custom.Version,
			Entrypoint: fc.Custom.Entrypoint,
		})
	}

	legacy := false
	if fc.Engine != nil {
		kind, err := ParseEngineKind(fc.Engine.Type)
		if err != nil {
			return EngineTarget{}, false, err
		}
		targets = append(targets, EngineTarget{
			Kind:       kind,
			Version:    fc.Engine.Version,
			Entrypoint: fc.Engine.Entrypoint,
		})
		legacy = true
	}

	switch len(targets) {
	case 0:
		return EngineTarget{}, false, ErrNoEngineSection
	case 1:
	default:
		return EngineTarget{}, false, ErrMultipleEngineSections
	}

	target := targets[0]
	if err := validateVersion(target.Version); err != nil {
		return EngineTarget{}, false, err
	}
	if target.Kind == EngineCustom && target.Entrypoint == "" {
		return EngineTarget{}, false, fmt.Errorf("%w: custom.entrypoint", ErrMissingField)
	}
	return target, legacy, nil
}

// resolveUploadDir makes UploadDir absolute relative to the config file's
// directory and verifies it exists and holds at least one file.
func resolveUploadDir(cfg *Config, baseDir string) error {
	dir := cfg.UploadDir
	if !filepath.IsAbs(dir) {
		dir = filepath.Join(baseDir, dir)
	}

	info, err := os.Stat(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadDir, dir, err)
	}
	if !info.IsDir() {
		return fmt.Errorf("%w: %s is not a directory", ErrUploadDir, dir)
	}

	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrUploadDir, dir, err)
	}
	if len(entries) == 0 {
		return fmt.Errorf("%w: %s is empty", ErrUploadDir, dir)
	}

	cfg.UploadDir = dir
	return nil
}
