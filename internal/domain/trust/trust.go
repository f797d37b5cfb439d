// Package trust installs the dev certificate into the host operating
// system's trust store. Installation is best-effort: every failure mode
// degrades to a browser certificate warning, never a fatal error.
package trust

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"runtime"
	"strings"
	"time"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

// State reports the trust-store situation for the dev certificate. It is
// recomputed on every invocation; nothing is cached on disk, so a store the
// user edited by hand is always re-checked against reality.
type State struct {
	Installed   bool
	Method      string
	Reason      string
	LastChecked time.Time
}

// Installer checks for and, with operator consent, installs the certificate
// into one platform's trust store.
type Installer interface {
	// EnsureTrusted is idempotent: when the fingerprint is already present
	// it returns installed=true without side effects.
	EnsureTrusted(ctx context.Context, material *cert.Material) State
}

// Prompter asks the operator a yes/no question before any privileged step.
type Prompter interface {
	Confirm(prompt string) bool
}

// New selects the installer for the current platform.
func New(logger *logging.Logger, prompter Prompter) Installer {
	return forPlatform(runtime.GOOS, logger, prompter)
}

func forPlatform(goos string, logger *logging.Logger, prompter Prompter) Installer {
	switch goos {
	case "darwin":
		return &darwinInstaller{logger: logger, prompter: prompter, run: runCommand}
	case "windows":
		return &windowsInstaller{logger: logger, prompter: prompter, run: runCommand}
	case "linux":
		return &linuxInstaller{logger: logger, prompter: prompter, run: runCommand}
	default:
		return &unsupportedInstaller{goos: goos, logger: logger}
	}
}

// runFunc abstracts external-process invocation so platform installers can
// be exercised in tests without a trust store.
type runFunc func(ctx context.Context, interactive bool, name string, args ...string) ([]byte, error)

func runCommand(ctx context.Context, interactive bool, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	if interactive {
		// sudo and security prompt on the controlling terminal.
		cmd.Stdin = os.Stdin
		cmd.Stderr = os.Stderr
	}
	out, err := cmd.Output()
	if err != nil {
		if ee, ok := err.(*exec.ExitError); ok && len(ee.Stderr) > 0 {
			return out, fmt.Errorf("%s: %s", name, strings.TrimSpace(string(ee.Stderr)))
		}
		return out, fmt.Errorf("%s: %w", name, err)
	}
	return out, nil
}

// StdinPrompter confirms on the terminal with a y/N question.
type StdinPrompter struct {
	In  io.Reader
	Out io.Writer
}

// NewStdinPrompter prompts on stderr and reads stdin.
func NewStdinPrompter() *StdinPrompter {
	return &StdinPrompter{In: os.Stdin, Out: os.Stderr}
}

func (p *StdinPrompter) Confirm(prompt string) bool {
	fmt.Fprintf(p.Out, "%s [y/N]: ", prompt)
	reader := bufio.NewReader(p.In)
	line, err := reader.ReadString('\n')
	if err != nil {
		return false
	}
	switch strings.ToLower(strings.TrimSpace(line)) {
	case "y", "yes":
		return true
	}
	return false
}

func declined(method string, now time.Time) State {
	return State{
		Installed:   false,
		Method:      method,
		Reason:      "operator declined trust installation",
		LastChecked: now,
	}
}

func failed(method string, now time.Time, err error) State {
	return State{
		Installed:   false,
		Method:      method,
		Reason:      err.Error(),
		LastChecked: now,
	}
}

func installed(method string, now time.Time) State {
	return State{Installed: true, Method: method, LastChecked: now}
}
