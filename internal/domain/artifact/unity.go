package artifact

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Unity WebGL templates assign build URLs either as plain strings or as
// `buildUrl + "/suffix"` expressions. Both forms are accepted.
var (
	unityBuildURLPattern = regexp.MustCompile(`(?m)\bbuildUrl\s*=\s*["']([^"']+)["']`)
	unityKeyPatterns     = map[string]*regexp.Regexp{
		"loaderUrl":    unityURLPattern("loaderUrl"),
		"dataUrl":      unityURLPattern("dataUrl"),
		"frameworkUrl": unityURLPattern("frameworkUrl"),
		"codeUrl":      unityURLPattern("codeUrl"),
	}
)

func unityURLPattern(key string) *regexp.Regexp {
	return regexp.MustCompile(`\b` + key + `\s*[:=]\s*(?:buildUrl\s*\+\s*)?["']([^"']+)["']`)
}

// unityParams extracts the bootstrap parameters from a Unity WebGL export:
// the canvas id and the loader/data/framework/code URLs passed to
// createUnityInstance.
func unityParams(doc *goquery.Document) ([]Param, error) {
	scripts := inlineScripts(doc)
	if !strings.Contains(scripts, "createUnityInstance") {
		return nil, fmt.Errorf("%w: createUnityInstance call not found", ErrEntrypointParse)
	}

	buildURL := ""
	if m := unityBuildURLPattern.FindStringSubmatch(scripts); m != nil {
		buildURL = m[1]
	}

	params := []Param{{Name: "canvas", Value: canvasID(doc, "unity-canvas")}}
	for _, key := range []string{"loaderUrl", "dataUrl", "frameworkUrl", "codeUrl"} {
		value, ok := unityURL(scripts, key, buildURL)
		if !ok {
			if key == "loaderUrl" {
				// Some templates load the loader via a script src instead.
				if src, found := loaderScriptSrc(doc); found {
					params = append(params, Param{Name: key, Value: src})
					continue
				}
			}
			return nil, fmt.Errorf("%w: %s not found in bootstrap script", ErrEntrypointParse, key)
		}
		params = append(params, Param{Name: key, Value: value})
	}
	return params, nil
}

func unityURL(scripts, key, buildURL string) (string, bool) {
	m := unityKeyPatterns[key].FindStringSubmatch(scripts)
	if m == nil {
		return "", false
	}
	value := m[1]
	full := unityKeyPatterns[key].FindString(scripts)
	if strings.Contains(full, "buildUrl") {
		return strings.TrimSuffix(buildURL, "/") + "/" + strings.TrimPrefix(value, "/"), true
	}
	return value, true
}

func loaderScriptSrc(doc *goquery.Document) (string, bool) {
	var src string
	doc.Find("script[src]").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		v, _ := s.Attr("src")
		if strings.HasSuffix(v, ".loader.js") {
			src = v
			return false
		}
		return true
	})
	return src, src != ""
}
