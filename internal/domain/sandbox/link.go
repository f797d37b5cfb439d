// Package sandbox builds the deep link that opens the hosted web
// application pointed at the local dev server.
package sandbox

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/wavedash-gg/wvdsh/internal/domain/artifact"
	"github.com/wavedash-gg/wvdsh/internal/domain/project"
)

// LocalOrigin formats the origin of a dev server bound to a loopback port.
func LocalOrigin(port int) string {
	return fmt.Sprintf("https://localhost:%d", port)
}

// BuildLink assembles the sandbox URL. The parameter order is fixed
// (branch_slug, localOrigin, sandbox, engine, then entrypoint params) —
// identical inputs always produce an identical string, and url.Values would
// reorder the pairs alphabetically.
func BuildLink(siteHost, gameSlug, branchSlug string, port int, engine project.EngineTarget, info *artifact.EntrypointInfo) string {
	var sb strings.Builder
	sb.WriteString(strings.TrimSuffix(siteHost, "/"))
	sb.WriteString("/play/")
	sb.WriteString(url.PathEscape(gameSlug))

	sb.WriteString("?branch_slug=")
	sb.WriteString(url.QueryEscape(branchSlug))
	// localOrigin is constructed from the bound port, not user input; its
	// scheme separator must survive unescaped.
	sb.WriteString("&localOrigin=")
	sb.WriteString(LocalOrigin(port))
	sb.WriteString("&sandbox=true")
	sb.WriteString("&engine=")
	sb.WriteString(url.QueryEscape(engine.Label()))

	if info != nil {
		for _, p := range info.Params {
			sb.WriteString("&")
			sb.WriteString(url.QueryEscape(p.Name))
			sb.WriteString("=")
			sb.WriteString(url.QueryEscape(p.Value))
		}
	}
	return sb.String()
}
