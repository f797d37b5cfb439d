// Package cert manages the self-signed TLS key pair the dev sandbox server
// presents for https://localhost. Material is persisted under the per-user
// config directory and reused across invocations until it nears expiry.
package cert

import (
	"crypto/ecdsa"
	"crypto/elliptic"
	"crypto/rand"
	"crypto/sha1"
	"crypto/sha256"
	"crypto/tls"
	"crypto/x509"
	"crypto/x509/pkix"
	"encoding/hex"
	"encoding/pem"
	"errors"
	"fmt"
	"math/big"
	"net"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

const (
	subdir     = "dev-server"
	certFile   = "cert.pem"
	keyFile    = "key.pem"
	commonName = "wvdsh dev server"

	validity = 365 * 24 * time.Hour
	// reuseMargin keeps a stored pair from being handed out when it is
	// about to expire mid-session.
	reuseMargin = 30 * 24 * time.Hour
)

var (
	ErrGeneration = errors.New("certificate generation failed")
	ErrPersist    = errors.New("certificate persistence failed")
)

// Material is the certificate/key pair the server, the trust installer, and
// the link builder share. It is immutable after acquisition.
type Material struct {
	CertPEM []byte
	KeyPEM  []byte

	CertPath string
	KeyPath  string

	Leaf      *x509.Certificate
	TLS       tls.Certificate
	NotBefore time.Time
	NotAfter  time.Time

	// Fingerprints of the DER-encoded certificate, lowercase hex. SHA1 is
	// what certutil prints; SHA256 is what security -Z prints.
	SHA1   string
	SHA256 string
}

// CommonName returns the subject CN the trust stores index the cert under.
func (m *Material) CommonName() string {
	return commonName
}

// Store acquires certificate material from a fixed location under the
// user's config directory.
type Store struct {
	dir    string
	logger *logging.Logger
	now    func() time.Time
}

// NewStore creates a store rooted at configDir (the per-user wvdsh dir, not
// the dev-server subdirectory).
func NewStore(configDir string, logger *logging.Logger) *Store {
	return &Store{
		dir:    filepath.Join(configDir, subdir),
		logger: logger,
		now:    time.Now,
	}
}

// Acquire returns existing material when the stored pair is still valid,
// otherwise generates, persists, and returns a fresh pair. Repeated calls
// against a valid pair return byte-identical material without rewriting.
func (s *Store) Acquire() (*Material, error) {
	certPath := filepath.Join(s.dir, certFile)
	keyPath := filepath.Join(s.dir, keyFile)

	material, err := s.loadExisting(certPath, keyPath)
	if err == nil {
		s.logger.Debug("Reusing stored dev certificate",
			zap.String("path", certPath),
			zap.Time("expires", material.NotAfter),
		)
		return material, nil
	}
	if !errors.Is(err, os.ErrNotExist) {
		s.logger.Info("Stored dev certificate unusable, regenerating", zap.Error(err))
	}

	certPEM, keyPEM, err := s.generate()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	if err := s.persist(certPath, keyPath, certPEM, keyPEM); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrPersist, err)
	}

	material, err = assemble(certPEM, keyPEM, certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrGeneration, err)
	}
	s.logger.Info("Generated dev certificate",
		zap.String("path", certPath),
		zap.Time("expires", material.NotAfter),
	)
	return material, nil
}

// loadExisting parses and validates the stored pair. Any failure means the
// caller regenerates.
func (s *Store) loadExisting(certPath, keyPath string) (*Material, error) {
	certPEM, err := os.ReadFile(certPath)
	if err != nil {
		return nil, err
	}
	keyPEM, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, err
	}

	material, err := assemble(certPEM, keyPEM, certPath, keyPath)
	if err != nil {
		return nil, fmt.Errorf("stored pair unparsable: %w", err)
	}

	now := s.now()
	if now.Before(material.NotBefore) {
		return nil, fmt.Errorf("stored certificate not yet valid (nbf %s)", material.NotBefore)
	}
	if !now.Before(material.NotAfter.Add(-reuseMargin)) {
		return nil, fmt.Errorf("stored certificate expires %s, within the reuse margin", material.NotAfter)
	}
	if err := validateSANs(material.Leaf); err != nil {
		return nil, err
	}
	return material, nil
}

// validateSANs requires the exact loopback SAN set the sandbox relies on.
func validateSANs(leaf *x509.Certificate) error {
	if len(leaf.DNSNames) != 1 || leaf.DNSNames[0] != "localhost" {
		return fmt.Errorf("stored certificate DNS SANs %v, want [localhost]", leaf.DNSNames)
	}
	hasV4 := false
	for _, ip := range leaf.IPAddresses {
		if ip.Equal(net.IPv4(127, 0, 0, 1)) {
			hasV4 = true
		} else if !ip.Equal(net.IPv6loopback) {
			return fmt.Errorf("stored certificate has unexpected IP SAN %s", ip)
		}
	}
	if !hasV4 {
		return errors.New("stored certificate missing 127.0.0.1 SAN")
	}
	return nil
}

func (s *Store) generate() (certPEM, keyPEM []byte, err error) {
	key, err := ecdsa.GenerateKey(elliptic.P256(), rand.Reader)
	if err != nil {
		return nil, nil, err
	}

	serial, err := rand.Int(rand.Reader, new(big.Int).Lsh(big.NewInt(1), 128))
	if err != nil {
		return nil, nil, err
	}

	now := s.now()
	template := x509.Certificate{
		SerialNumber: serial,
		Subject:      pkix.Name{CommonName: commonName},
		// Backdated an hour to tolerate clock skew between the generating
		// machine and the browser validating it.
		NotBefore:             now.Add(-time.Hour),
		NotAfter:              now.Add(validity),
		KeyUsage:              x509.KeyUsageDigitalSignature,
		ExtKeyUsage:           []x509.ExtKeyUsage{x509.ExtKeyUsageServerAuth},
		BasicConstraintsValid: true,
		DNSNames:              []string{"localhost"},
		IPAddresses:           []net.IP{net.IPv4(127, 0, 0, 1), net.IPv6loopback},
	}

	der, err := x509.CreateCertificate(rand.Reader, &template, &template, &key.PublicKey, key)
	if err != nil {
		return nil, nil, err
	}

	keyDER, err := x509.MarshalPKCS8PrivateKey(key)
	if err != nil {
		return nil, nil, err
	}

	certPEM = pem.EncodeToMemory(&pem.Block{Type: "CERTIFICATE", Bytes: der})
	keyPEM = pem.EncodeToMemory(&pem.Block{Type: "PRIVATE KEY", Bytes: keyDER})
	return certPEM, keyPEM, nil
}

// persist writes both files atomically: temp file in the target directory,
// fsync-free rename into place. A concurrent invocation never observes a
// half-written key.
func (s *Store) persist(certPath, keyPath string, certPEM, keyPEM []byte) error {
	if err := os.MkdirAll(s.dir, 0o700); err != nil {
		return err
	}
	if err := writeAtomic(certPath, certPEM, 0o644); err != nil {
		return err
	}
	return writeAtomic(keyPath, keyPEM, 0o600)
}

func writeAtomic(path string, data []byte, mode os.FileMode) error {
	dir := filepath.Dir(path)
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if err := tmp.Chmod(mode); err != nil {
		tmp.Close()
		return err
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}

func assemble(certPEM, keyPEM []byte, certPath, keyPath string) (*Material, error) {
	pair, err := tls.X509KeyPair(certPEM, keyPEM)
	if err != nil {
		return nil, err
	}

	block, _ := pem.Decode(certPEM)
	if block == nil {
		return nil, errors.New("no PEM block in certificate")
	}
	leaf, err := x509.ParseCertificate(block.Bytes)
	if err != nil {
		return nil, err
	}
	pair.Leaf = leaf

	sum1 := sha1.Sum(leaf.Raw)
	sum256 := sha256.Sum256(leaf.Raw)

	return &Material{
		CertPEM:   certPEM,
		KeyPEM:    keyPEM,
		CertPath:  certPath,
		KeyPath:   keyPath,
		Leaf:      leaf,
		TLS:       pair,
		NotBefore: leaf.NotBefore,
		NotAfter:  leaf.NotAfter,
		SHA1:      hex.EncodeToString(sum1[:]),
		SHA256:    hex.EncodeToString(sum256[:]),
	}, nil
}
