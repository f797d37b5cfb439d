package trust

import (
	"context"
	"strings"
	"time"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

// windowsInstaller trusts the certificate in the current user's Root store
// via certutil. certutil -user -addstore elevates through UAC on its own.
type windowsInstaller struct {
	logger   *logging.Logger
	prompter Prompter
	run      runFunc
}

func (w *windowsInstaller) EnsureTrusted(ctx context.Context, material *cert.Material) State {
	const method = "windows-certutil"
	now := time.Now()

	if present, _ := w.certPresent(ctx, material); present {
		return installed(method, now)
	}

	if !w.prompter.Confirm("Windows needs to trust the localhost dev certificate for HTTPS previews. Add it to your Root certificate store now?") {
		return declined(method, now)
	}

	_, err := w.run(ctx, true, "certutil", "-user", "-addstore", "Root", "-f", material.CertPath)
	if err != nil {
		return failed(method, now, err)
	}

	w.logger.Info("Trusted dev certificate in the Windows Root store (current user)")
	return installed(method, now)
}

// certPresent scans the user Root store for our SHA-1 thumbprint, the hash
// certutil prints as "Cert Hash(sha1)".
func (w *windowsInstaller) certPresent(ctx context.Context, material *cert.Material) (bool, error) {
	out, err := w.run(ctx, false, "certutil", "-user", "-store", "Root")
	if err != nil {
		return false, err
	}
	haystack := strings.ToLower(strings.ReplaceAll(string(out), " ", ""))
	return strings.Contains(haystack, strings.ToLower(material.SHA1)), nil
}
