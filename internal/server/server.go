package server

import (
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"strings"
	"time"

	"signlens/internal/imagecache"
	"signlens/internal/ocr"
	"signlens/internal/speech"
	"signlens/internal/store"
)

const (
	allowRemoteEnvKey      = "SIGNLENS_ALLOW_REMOTE"
	readHeaderTimeout      = 5 * time.Second
	readTimeout            = 30 * time.Second
	writeTimeout           = 120 * time.Second
	idleTimeout            = 60 * time.Second
	scanConcurrencyLimit   = 1
	speakConcurrencyLimit  = 1
	exportConcurrencyLimit = 2
)

// Info describes the running instance for the /v1/info endpoint.
type Info struct {
	Version  string
	DBPath   string
	CacheDir string
	OCRURL   string
}

// Deps collects the collaborators a Server needs.
type Deps struct {
	Store  store.CaptureStore
	Cache  *imagecache.Cache
	OCR    *ocr.Client
	Speech speech.Engine
	Logger *slog.Logger
	Info   Info
}

// Server wraps HTTP handlers for the signlens API.
type Server struct {
	addr          string
	store         store.CaptureStore
	cache         *imagecache.Cache
	service       *CaptureService
	logger        *slog.Logger
	info          Info
	scanLimiter   chan struct{}
	speakLimiter  chan struct{}
	exportLimiter chan struct{}
}

// New creates a new server instance.
func New(addr string, deps Deps) *Server {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Server{
		addr:          addr,
		store:         deps.Store,
		cache:         deps.Cache,
		service:       NewCaptureService(deps.Store, deps.Cache, deps.OCR, deps.Speech, logger),
		logger:        logger,
		info:          deps.Info,
		scanLimiter:   make(chan struct{}, scanConcurrencyLimit),
		speakLimiter:  make(chan struct{}, speakConcurrencyLimit),
		exportLimiter: make(chan struct{}, exportConcurrencyLimit),
	}
}

// ListenAndServe starts the HTTP server.
func (s *Server) ListenAndServe() error {
	s.log().Info("starting server", "addr", s.addr)
	server := &http.Server{
		Addr:              s.addr,
		Handler:           s.withRequestLogging(s.routes()),
		ReadHeaderTimeout: readHeaderTimeout,
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
	}

	return server.ListenAndServe()
}

// ListenAddr converts a base API URL into a listen address.
func ListenAddr(apiURL string) (string, error) {
	if apiURL == "" {
		return "", fmt.Errorf("api url is required")
	}
	if u, err := url.Parse(apiURL); err == nil && u.Host != "" {
		host := u.Hostname()
		if !isAllowedListenHost(host) {
			return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
		}
		return u.Host, nil
	}

	host, _, err := net.SplitHostPort(apiURL)
	if err == nil && !isAllowedListenHost(host) {
		return "", fmt.Errorf("remote listen host %q requires %s=true", host, allowRemoteEnvKey)
	}

	return apiURL, nil
}

func isAllowedListenHost(host string) bool {
	if host == "" {
		return true
	}
	if strings.EqualFold(strings.TrimSpace(os.Getenv(allowRemoteEnvKey)), "true") {
		return true
	}
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

func (s *Server) acquireLimiter(limiter chan struct{}, w http.ResponseWriter, r *http.Request, name string) bool {
	if limiter == nil {
		return true
	}
	select {
	case limiter <- struct{}{}:
		return true
	default:
		err := apiError{
			status:  http.StatusTooManyRequests,
			code:    "resource_exhausted",
			errCode: ErrCodeResourceExhausted,
			err:     fmt.Errorf("too many concurrent %s requests", name),
		}
		s.writeErrorReq(w, r, http.StatusTooManyRequests, err)
		return false
	}
}

func (s *Server) releaseLimiter(limiter chan struct{}) {
	if limiter == nil {
		return
	}
	select {
	case <-limiter:
	default:
	}
}

func (s *Server) log() *slog.Logger {
	if s != nil && s.logger != nil {
		return s.logger
	}
	return slog.Default()
}
