package trust

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

const systemKeychain = "/Library/Keychains/System.keychain"

// darwinInstaller trusts the certificate in the System keychain via the
// security(1) utility.
type darwinInstaller struct {
	logger   *logging.Logger
	prompter Prompter
	run      runFunc
}

func (d *darwinInstaller) EnsureTrusted(ctx context.Context, material *cert.Material) State {
	const method = "macos-security"
	now := time.Now()

	present, err := d.certPresent(ctx, material)
	if err != nil {
		d.logger.Debug("Keychain lookup failed", zap.Error(err))
	}
	if present {
		return installed(method, now)
	}

	if !d.prompter.Confirm("macOS needs to trust the localhost dev certificate for HTTPS previews. Add it to the System keychain now (requires sudo)?") {
		return declined(method, now)
	}

	_, err = d.run(ctx, true, "sudo",
		"security", "add-trusted-cert",
		"-d", "-r", "trustRoot",
		"-k", systemKeychain,
		material.CertPath,
	)
	if err != nil {
		return failed(method, now, err)
	}

	d.logger.Info("Trusted dev certificate in the macOS System keychain")
	return installed(method, now)
}

// certPresent matches the stored fingerprint against the keychain entry for
// our common name. security -Z prints "SHA-256 hash: <hex>".
func (d *darwinInstaller) certPresent(ctx context.Context, material *cert.Material) (bool, error) {
	out, err := d.run(ctx, false, "security",
		"find-certificate", "-a", "-c", material.CommonName(), "-Z", systemKeychain,
	)
	if err != nil {
		// Exit 44 means not found; treat every lookup failure as absent.
		return false, err
	}
	needle := strings.ToUpper(material.SHA256)
	for _, line := range strings.Split(string(out), "\n") {
		line = strings.TrimSpace(line)
		if strings.HasPrefix(line, "SHA-256 hash:") && strings.Contains(strings.ToUpper(line), needle) {
			return true, nil
		}
	}
	return false, nil
}
