package sandbox

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/wavedash-gg/wvdsh/internal/domain/artifact"
	"github.com/wavedash-gg/wvdsh/internal/domain/project"
)

const siteHost = "https://wavedash.gg"

func TestBuildLinkFixedShape(t *testing.T) {
	link := BuildLink(siteHost, "pgrc", "internal-1", 51234,
		project.EngineTarget{Kind: project.EngineGodot, Version: "4.3"},
		&artifact.EntrypointInfo{},
	)

	assert.Equal(t,
		"https://wavedash.gg/play/pgrc?branch_slug=internal-1&localOrigin=https://localhost:51234&sandbox=true&engine=godot",
		link,
	)
}

func TestBuildLinkDeterministic(t *testing.T) {
	info := &artifact.EntrypointInfo{
		Path: "index.html",
		Params: []artifact.Param{
			{Name: "canvas", Value: "canvas"},
			{Name: "executable", Value: "pgrc"},
		},
	}
	engine := project.EngineTarget{Kind: project.EngineGodot, Version: "4.3"}

	first := BuildLink(siteHost, "pgrc", "internal-1", 51234, engine, info)
	second := BuildLink(siteHost, "pgrc", "internal-1", 51234, engine, info)
	assert.Equal(t, first, second)
	assert.Equal(t,
		"https://wavedash.gg/play/pgrc?branch_slug=internal-1&localOrigin=https://localhost:51234&sandbox=true&engine=godot&canvas=canvas&executable=pgrc",
		first,
	)
}

func TestBuildLinkEscapesDynamicSegments(t *testing.T) {
	info := &artifact.EntrypointInfo{
		Params: []artifact.Param{{Name: "entrypoint", Value: "sub dir/play.html"}},
	}
	link := BuildLink(siteHost, "my game", "feature/launch", 443,
		project.EngineTarget{Kind: project.EngineCustom, Version: "1.0.0", Entrypoint: "sub dir/play.html"},
		info,
	)

	assert.Equal(t,
		"https://wavedash.gg/play/my%20game?branch_slug=feature%2Flaunch&localOrigin=https://localhost:443&sandbox=true&engine=custom&entrypoint=sub+dir%2Fplay.html",
		link,
	)
}

func TestBuildLinkTrimsTrailingSlashOnHost(t *testing.T) {
	link := BuildLink("https://staging.wavedash.gg/", "pgrc", "main", 50000,
		project.EngineTarget{Kind: project.EngineUnity, Version: "2022.3.10f1"}, nil)
	assert.Equal(t,
		"https://staging.wavedash.gg/play/pgrc?branch_slug=main&localOrigin=https://localhost:50000&sandbox=true&engine=unity",
		link,
	)
}
