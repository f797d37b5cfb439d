package trust

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

type fakePrompter struct {
	answer bool
	asked  int
}

func (p *fakePrompter) Confirm(string) bool {
	p.asked++
	return p.answer
}

// fakeRunner scripts external-process results keyed by the leading command
// words and records every invocation.
type fakeRunner struct {
	calls   []string
	outputs map[string][]byte
	errs    map[string]error
}

func (r *fakeRunner) run(_ context.Context, _ bool, name string, args ...string) ([]byte, error) {
	call := strings.Join(append([]string{name}, args...), " ")
	r.calls = append(r.calls, call)
	for prefix, err := range r.errs {
		if strings.HasPrefix(call, prefix) {
			return nil, err
		}
	}
	for prefix, out := range r.outputs {
		if strings.HasPrefix(call, prefix) {
			return out, nil
		}
	}
	return nil, nil
}

func testMaterial(t *testing.T) *cert.Material {
	t.Helper()
	material, err := cert.NewStore(t.TempDir(), logging.NewNop()).Acquire()
	require.NoError(t, err)
	return material
}

func TestDarwinAlreadyTrusted(t *testing.T) {
	material := testMaterial(t)
	prompter := &fakePrompter{answer: true}
	runner := &fakeRunner{outputs: map[string][]byte{
		"security find-certificate": []byte(fmt.Sprintf(
			"SHA-256 hash: %s\nkeychain: \"/Library/Keychains/System.keychain\"\n",
			strings.ToUpper(material.SHA256),
		)),
	}}
	installer := &darwinInstaller{logger: logging.NewNop(), prompter: prompter, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.True(t, state.Installed)
	assert.Equal(t, "macos-security", state.Method)
	// Idempotent: no prompt, no privileged invocation.
	assert.Zero(t, prompter.asked)
	assert.Len(t, runner.calls, 1)
}

func TestDarwinInstallsWithConsent(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{
		errs: map[string]error{"security find-certificate": errors.New("not found")},
	}
	installer := &darwinInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: true}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.True(t, state.Installed)
	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[1], "sudo security add-trusted-cert")
	assert.Contains(t, runner.calls[1], material.CertPath)
}

func TestDarwinDeclinedIsNonFatal(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{errs: map[string]error{"security": errors.New("not found")}}
	installer := &darwinInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: false}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.False(t, state.Installed)
	assert.Contains(t, state.Reason, "declined")
	// The privileged command must never have run.
	assert.Len(t, runner.calls, 1)
}

func TestDarwinElevationFailureIsNonFatal(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{errs: map[string]error{
		"security find-certificate": errors.New("not found"),
		"sudo":                      errors.New("sudo: 3 incorrect password attempts"),
	}}
	installer := &darwinInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: true}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.False(t, state.Installed)
	assert.Contains(t, state.Reason, "password")
}

func TestWindowsThumbprintMatch(t *testing.T) {
	material := testMaterial(t)
	// certutil prints the sha1 hash with spaces between byte pairs.
	spaced := strings.ToUpper(material.SHA1)
	runner := &fakeRunner{outputs: map[string][]byte{
		"certutil -user -store Root": []byte("Cert Hash(sha1): " + spaced + "\n"),
	}}
	installer := &windowsInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: false}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)
	assert.True(t, state.Installed)
}

func TestWindowsInstallsWithConsent(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{outputs: map[string][]byte{
		"certutil -user -store Root": []byte("no matching certs"),
	}}
	installer := &windowsInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: true}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.True(t, state.Installed)
	require.Len(t, runner.calls, 2)
	assert.Contains(t, runner.calls[1], "certutil -user -addstore Root -f")
}

func TestLinuxDeclined(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{}
	installer := &linuxInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: false}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.False(t, state.Installed)
	assert.Empty(t, runner.calls)
}

func TestLinuxInstallRunsRegeneration(t *testing.T) {
	material := testMaterial(t)
	runner := &fakeRunner{errs: map[string]error{
		"sudo update-ca-certificates": errors.New("command not found"),
	}}
	installer := &linuxInstaller{logger: logging.NewNop(), prompter: &fakePrompter{answer: true}, run: runner.run}

	state := installer.EnsureTrusted(context.Background(), material)

	assert.True(t, state.Installed)
	// mkdir, cp, chmod, failed update-ca-certificates, then update-ca-trust.
	require.GreaterOrEqual(t, len(runner.calls), 5)
	assert.Contains(t, runner.calls[1], material.CertPath)
	assert.Contains(t, runner.calls[4], "sudo update-ca-trust")
}

func TestUnsupportedPlatform(t *testing.T) {
	material := testMaterial(t)
	installer := forPlatform("plan9", logging.NewNop(), &fakePrompter{answer: true})

	state := installer.EnsureTrusted(context.Background(), material)

	assert.False(t, state.Installed)
	assert.Equal(t, "unsupported", state.Method)
	assert.Contains(t, state.Reason, "plan9")
}

func TestForPlatformSelection(t *testing.T) {
	logger := logging.NewNop()
	prompter := &fakePrompter{}

	assert.IsType(t, &darwinInstaller{}, forPlatform("darwin", logger, prompter))
	assert.IsType(t, &windowsInstaller{}, forPlatform("windows", logger, prompter))
	assert.IsType(t, &linuxInstaller{}, forPlatform("linux", logger, prompter))
	assert.IsType(t, &unsupportedInstaller{}, forPlatform("freebsd", logger, prompter))
}

func TestStdinPrompter(t *testing.T) {
	var out strings.Builder
	p := &StdinPrompter{In: strings.NewReader("y\n"), Out: &out}
	assert.True(t, p.Confirm("Install?"))
	assert.Contains(t, out.String(), "[y/N]")

	p = &StdinPrompter{In: strings.NewReader("\n"), Out: &out}
	assert.False(t, p.Confirm("Install?"))

	p = &StdinPrompter{In: strings.NewReader("no\n"), Out: &out}
	assert.False(t, p.Confirm("Install?"))
}
