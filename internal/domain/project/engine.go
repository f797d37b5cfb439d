package project

import (
	"fmt"
	"regexp"
)

// EngineKind identifies the web-export engine of a project.
type EngineKind string

const (
	EngineGodot  EngineKind = "godot"
	EngineUnity  EngineKind = "unity"
	EngineCustom EngineKind = "custom"
)

// EngineTarget is the normalized engine selection of a project: exactly one
// kind, its version, and (for custom engines) the configured entrypoint.
type EngineTarget struct {
	Kind       EngineKind
	Version    string
	Entrypoint string
}

// Label returns the engine identifier used in sandbox links.
func (t EngineTarget) Label() string {
	return string(t.Kind)
}

// versionPattern accepts "4.3", "1.0.0", "2022.3.10f1" and friends: a
// leading digit followed by alphanumerics, dots, dashes, underscores.
var versionPattern = regexp.MustCompile(`^[0-9][0-9A-Za-z._-]*$`)

// ParseEngineKind normalizes an engine type string from the [engine] table.
func ParseEngineKind(s string) (EngineKind, error) {
	switch EngineKind(s) {
	case EngineGodot, EngineUnity, EngineCustom:
		return EngineKind(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownEngineType, s)
}

func validateVersion(version string) error {
	if !versionPattern.MatchString(version) {
		return fmt.Errorf("%w: %q", ErrInvalidVersion, version)
	}
	return nil
}
