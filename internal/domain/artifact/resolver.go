// Package artifact inspects a build output directory and determines the
// entry file plus the runtime parameters the hosted viewer needs to boot
// the embedded engine.
package artifact

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/PuerkitoBio/goquery"

	"github.com/wavedash-gg/wvdsh/internal/domain/project"
)

var (
	ErrNoHTML          = errors.New("no HTML entry file in upload_dir")
	ErrAmbiguousHTML   = errors.New("multiple HTML entry files in upload_dir")
	ErrEntrypointParse = errors.New("failed to parse engine bootstrap markup")
)

// Param is one query parameter the hosted viewer forwards to the embedded
// player. Order matters to the viewer, so params are a slice, not a map.
type Param struct {
	Name  string
	Value string
}

// EntrypointInfo describes how to boot the export: the entry file relative
// to upload_dir and the engine-specific parameters extracted from it.
type EntrypointInfo struct {
	Path   string
	Params []Param
}

// Resolve determines the entrypoint for the configured engine. Custom
// engines use the configured path verbatim; Godot and Unity exports are
// discovered by scanning the top level of uploadDir for exactly one HTML
// file and parsing its bootstrap markup.
func Resolve(uploadDir string, engine project.EngineTarget) (*EntrypointInfo, error) {
	if engine.Kind == project.EngineCustom {
		return &EntrypointInfo{
			Path:   engine.Entrypoint,
			Params: []Param{{Name: "entrypoint", Value: engine.Entrypoint}},
		}, nil
	}

	name, err := locateHTML(uploadDir)
	if err != nil {
		return nil, err
	}

	doc, err := loadDocument(filepath.Join(uploadDir, name))
	if err != nil {
		return nil, err
	}

	var params []Param
	switch engine.Kind {
	case project.EngineGodot:
		params, err = godotParams(doc)
	case project.EngineUnity:
		params, err = unityParams(doc)
	default:
		err = fmt.Errorf("engine %q has no bootstrap parser", engine.Kind)
	}
	if err != nil {
		return nil, err
	}

	return &EntrypointInfo{Path: name, Params: params}, nil
}

// locateHTML scans the top level of dir. Exactly one HTML file is required;
// anything else is an error the operator resolves by cleaning the export or
// switching to a [custom] entrypoint.
func locateHTML(dir string) (string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return "", fmt.Errorf("failed to scan %s: %w", dir, err)
	}

	var candidates []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		ext := strings.ToLower(filepath.Ext(entry.Name()))
		if ext == ".html" || ext == ".htm" {
			candidates = append(candidates, entry.Name())
		}
	}
	sort.Strings(candidates)

	switch len(candidates) {
	case 0:
		return "", fmt.Errorf("%w: %s", ErrNoHTML, dir)
	case 1:
		return candidates[0], nil
	default:
		return "", fmt.Errorf("%w: found %s", ErrAmbiguousHTML, strings.Join(candidates, ", "))
	}
}

func loadDocument(path string) (*goquery.Document, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %s: %w", path, err)
	}
	defer f.Close()

	doc, err := goquery.NewDocumentFromReader(f)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrEntrypointParse, path, err)
	}
	return doc, nil
}

// inlineScripts concatenates the text of every script tag without a src
// attribute, which is where both engines embed their bootstrap config.
func inlineScripts(doc *goquery.Document) string {
	var sb strings.Builder
	doc.Find("script").Each(func(_ int, s *goquery.Selection) {
		if _, external := s.Attr("src"); external {
			return
		}
		sb.WriteString(s.Text())
		sb.WriteString("\n")
	})
	return sb.String()
}

// canvasID returns the id of the export's canvas element.
func canvasID(doc *goquery.Document, fallback string) string {
	if id, ok := doc.Find("canvas").First().Attr("id"); ok && id != "" {
		return id
	}
	return fallback
}
