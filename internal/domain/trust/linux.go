package trust

import (
	"bytes"
	"context"
	"errors"
	"os"
	"time"

	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

const linuxInstallPath = "/usr/local/share/ca-certificates/wvdsh-dev.crt"

// linuxInstaller copies the certificate into the system CA directory and
// runs whichever CA-bundle regeneration utility the distro ships.
type linuxInstaller struct {
	logger   *logging.Logger
	prompter Prompter
	run      runFunc
}

func (l *linuxInstaller) EnsureTrusted(ctx context.Context, material *cert.Material) State {
	const method = "linux-ca-certificates"
	now := time.Now()

	if l.certPresent(material) {
		return installed(method, now)
	}

	if !l.prompter.Confirm("Linux needs to trust the localhost dev certificate for HTTPS previews. Install it into the system trust store now (requires sudo)?") {
		return declined(method, now)
	}

	steps := [][]string{
		{"mkdir", "-p", "/usr/local/share/ca-certificates"},
		{"cp", material.CertPath, linuxInstallPath},
		{"chmod", "644", linuxInstallPath},
	}
	for _, step := range steps {
		if _, err := l.run(ctx, true, "sudo", step...); err != nil {
			return failed(method, now, err)
		}
	}

	// Distros disagree on the regeneration command; first success wins.
	regenerate := [][]string{
		{"update-ca-certificates"},
		{"update-ca-trust"},
		{"update-ca-trust", "extract"},
		{"trust", "extract-compat"},
	}
	var lastErr error
	for _, args := range regenerate {
		_, err := l.run(ctx, true, "sudo", args...)
		if err == nil {
			l.logger.Info("Trusted dev certificate in the Linux system trust store")
			return installed(method, now)
		}
		lastErr = err
	}

	if lastErr == nil {
		lastErr = errors.New("no CA bundle regeneration utility available")
	}
	l.logger.Warn("Copied certificate but could not regenerate the CA bundle",
		zap.String("path", linuxInstallPath),
		zap.Error(lastErr),
	)
	return failed(method, now, lastErr)
}

// certPresent compares the installed CA file byte-for-byte with the current
// certificate, so a regenerated pair triggers reinstallation.
func (l *linuxInstaller) certPresent(material *cert.Material) bool {
	existing, err := os.ReadFile(linuxInstallPath)
	if err != nil {
		return false
	}
	return bytes.Equal(existing, material.CertPEM)
}
