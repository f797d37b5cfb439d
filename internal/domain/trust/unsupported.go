package trust

import (
	"context"
	"fmt"
	"time"

	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

// unsupportedInstaller covers platforms without an automatic mechanism. The
// server still starts; browsers show a certificate warning.
type unsupportedInstaller struct {
	goos   string
	logger *logging.Logger
}

func (u *unsupportedInstaller) EnsureTrusted(_ context.Context, material *cert.Material) State {
	u.logger.Warn(fmt.Sprintf(
		"Automatic certificate trust is not supported on %s; trust %s manually if browsers warn about HTTPS",
		u.goos, material.CertPath,
	))
	return State{
		Installed:   false,
		Method:      "unsupported",
		Reason:      fmt.Sprintf("no trust mechanism for %s", u.goos),
		LastChecked: time.Now(),
	}
}
