// Package server implements the dev sandbox server: a TLS static file
// server on an ephemeral loopback port with a restrictive CORS policy.
package server

import (
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"net"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/wavedash-gg/wvdsh/internal/api/middleware"
	"github.com/wavedash-gg/wvdsh/internal/domain/cert"
	"github.com/wavedash-gg/wvdsh/internal/infrastructure/logging"
)

// ErrBind wraps listener setup failures; fatal to the serve command.
var ErrBind = errors.New("failed to bind dev server")

// Config assembles a sandbox server.
type Config struct {
	Root           string
	Material       *cert.Material
	AllowedOrigins []string
	Logger         *logging.Logger
}

// Server serves one build directory over TLS until shut down. It owns the
// listener and every per-connection handler; none outlive it.
type Server struct {
	cfg      Config
	manifest *Manifest
	router   *gin.Engine
	httpSrv  *http.Server
	listener net.Listener
	port     int
	errCh    chan error
}

// New indexes the build directory and prepares the router. The listener is
// not bound until Start.
func New(cfg Config) (*Server, error) {
	if cfg.Logger == nil {
		cfg.Logger = logging.NewNop()
	}

	manifest, err := BuildManifest(cfg.Root)
	if err != nil {
		return nil, err
	}
	cfg.Logger.Debug("Indexed build directory",
		zap.String("root", cfg.Root),
		zap.Int("files", manifest.Len()),
	)

	s := &Server{
		cfg:      cfg,
		manifest: manifest,
		errCh:    make(chan error, 1),
	}

	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(middleware.AccessLog(cfg.Logger))
	router.Use(middleware.ResourcePolicy())

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.AllowedOrigins) > 0 {
		corsCfg.AllowedDomains = cfg.AllowedOrigins
	}
	router.Use(middleware.CORS(corsCfg))

	router.GET("/*filepath", s.serveFile)
	router.HEAD("/*filepath", s.serveFile)

	s.router = router
	return s, nil
}

// Start binds 127.0.0.1:0, wraps it in TLS, and begins accepting
// connections in the background.
func (s *Server) Start() error {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrBind, err)
	}
	s.listener = ln
	s.port = ln.Addr().(*net.TCPAddr).Port

	tlsLn := tls.NewListener(ln, &tls.Config{
		Certificates: []tls.Certificate{s.cfg.Material.TLS},
		MinVersion:   tls.VersionTLS12,
	})

	s.httpSrv = &http.Server{Handler: s.router}
	go func() {
		if err := s.httpSrv.Serve(tlsLn); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.errCh <- err
		}
		close(s.errCh)
	}()

	s.cfg.Logger.Info("Dev server listening",
		zap.Int("port", s.port),
		zap.String("root", s.cfg.Root),
	)
	return nil
}

// Port returns the bound ephemeral port. Valid after Start.
func (s *Server) Port() int {
	return s.port
}

// Origin returns the https://localhost origin of the running server.
func (s *Server) Origin() string {
	return fmt.Sprintf("https://localhost:%d", s.port)
}

// Fingerprint returns the hex SHA-256 of the served certificate.
func (s *Server) Fingerprint() string {
	return s.cfg.Material.SHA256
}

// Err reports a serve-loop failure, closed on clean shutdown.
func (s *Server) Err() <-chan error {
	return s.errCh
}

// Shutdown stops accepting connections and waits for in-flight responses to
// complete, bounded by ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	if s.httpSrv == nil {
		return nil
	}
	return s.httpSrv.Shutdown(ctx)
}

// serveFile serves one manifest entry with byte-range support. Directory
// requests fall through to their index.html; nothing is ever listed.
func (s *Server) serveFile(c *gin.Context) {
	rel := strings.TrimPrefix(path.Clean(c.Param("filepath")), "/")
	if rel == "" || rel == "." {
		rel = "index.html"
	}

	entry, ok := s.manifest.Lookup(rel)
	if !ok {
		// A directory path resolves to the index inside it.
		if indexEntry, found := s.manifest.Lookup(rel + "/index.html"); found {
			rel += "/index.html"
			entry, ok = indexEntry, true
		}
	}
	if !ok {
		c.Status(http.StatusNotFound)
		return
	}

	f, err := os.Open(filepath.Join(s.cfg.Root, filepath.FromSlash(rel)))
	if err != nil {
		s.cfg.Logger.Warn("Failed to open served file",
			zap.String("path", rel),
			zap.Error(err),
		)
		c.Status(http.StatusInternalServerError)
		return
	}
	defer f.Close()

	c.Header("Content-Type", entry.ContentType)
	if entry.Encoding != "" {
		c.Header("Content-Encoding", entry.Encoding)
	}
	// ServeContent honors Range and If-Modified-Since and keeps the
	// Content-Type set above.
	http.ServeContent(c.Writer, c.Request, path.Base(rel), entry.ModTime, f)
}
