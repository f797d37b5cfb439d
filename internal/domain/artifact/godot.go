package artifact

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// godotConfig is the subset of GODOT_CONFIG the viewer needs. The export
// template embeds the full object; unknown keys are ignored.
type godotConfig struct {
	Executable   string `json:"executable"`
	CanvasResize int    `json:"canvasResizePolicy"`
	MainPack     string `json:"mainPack"`
}

// godotParams extracts the bootstrap parameters from a Godot HTML export.
// The template ships a `const GODOT_CONFIG = {...};` inline script.
func godotParams(doc *goquery.Document) ([]Param, error) {
	scripts := inlineScripts(doc)

	raw, ok := extractObject(scripts, "GODOT_CONFIG")
	if !ok {
		return nil, fmt.Errorf("%w: GODOT_CONFIG not found", ErrEntrypointParse)
	}

	var cfg godotConfig
	if err := json.Unmarshal([]byte(raw), &cfg); err != nil {
		return nil, fmt.Errorf("%w: GODOT_CONFIG is not valid JSON: %v", ErrEntrypointParse, err)
	}
	if cfg.Executable == "" {
		return nil, fmt.Errorf("%w: GODOT_CONFIG missing executable", ErrEntrypointParse)
	}

	params := []Param{
		{Name: "canvas", Value: canvasID(doc, "canvas")},
		{Name: "executable", Value: cfg.Executable},
	}
	if cfg.MainPack != "" {
		params = append(params, Param{Name: "mainPack", Value: cfg.MainPack})
	}
	return params, nil
}

// extractObject finds `name` in src and returns the balanced {...} object
// literal assigned to it. Brace matching skips string literals so embedded
// braces in config values don't truncate the object.
func extractObject(src, name string) (string, bool) {
	idx := strings.Index(src, name)
	if idx < 0 {
		return "", false
	}
	rest := src[idx+len(name):]

	start := strings.IndexByte(rest, '{')
	if start < 0 {
		return "", false
	}
	// Only whitespace and an assignment may sit between the name and the
	// opening brace.
	for _, r := range rest[:start] {
		switch r {
		case ' ', '\t', '\n', '\r', '=', ':':
		default:
			return "", false
		}
	}

	depth := 0
	var inString bool
	var quote byte
	for i := start; i < len(rest); i++ {
		c := rest[i]
		if inString {
			switch c {
			case '\\':
				i++
			case quote:
				inString = false
			}
			continue
		}
		switch c {
		case '"', '\'':
			inString = true
			quote = c
		case '{':
			depth++
		case '}':
			depth--
			if depth == 0 {
				return rest[start : i+1], true
			}
		}
	}
	return "", false
}
