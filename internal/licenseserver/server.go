package licenseserver

import (
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/render"
	"github.com/go-playground/validator/v10"
	"github.com/pion/logging"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"golang.org/x/time/rate"

	"cdmbridge/internal/crypto"
	"cdmbridge/internal/domain"
	"cdmbridge/internal/metrics"
	"cdmbridge/internal/protocol/clearkey"
)

const maxRequestBytes = 64 << 10

// ErrNoSecret is returned by New without a master secret.
var ErrNoSecret = errors.New("licenseserver: master secret is required")

// Config configures a Server.
type Config struct {
	MasterSecret []byte
	// RequestsPerSecond and Burst bound POST /license. Zero disables the
	// limit.
	RequestsPerSecond float64
	Burst             int

	LoggerFactory logging.LoggerFactory
	Metrics       *metrics.Metrics
	// Gatherer backs GET /metrics. Defaults to prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer
}

// Server answers Clear Key license requests.
type Server struct {
	cfg      Config
	log      logging.LeveledLogger
	validate *validator.Validate
	limiter  *rate.Limiter
}

// New returns a Server.
func New(cfg Config) (*Server, error) {
	if len(cfg.MasterSecret) == 0 {
		return nil, ErrNoSecret
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	s := &Server{cfg: cfg, validate: validator.New()}
	if cfg.LoggerFactory != nil {
		s.log = cfg.LoggerFactory.NewLogger("licenseserver")
	} else {
		s.log = logging.NewDefaultLeveledLoggerForScope("licenseserver", logging.LogLevelDisabled, io.Discard)
	}
	if cfg.RequestsPerSecond > 0 {
		burst := cfg.Burst
		if burst <= 0 {
			burst = 1
		}
		s.limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSecond), burst)
	}
	return s, nil
}

// Handler returns the HTTP routes.
func (s *Server) Handler() http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(s.accessLog)
	r.Use(middleware.Recoverer)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		render.JSON(w, r, map[string]string{"status": "ok"})
	})
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(s.cfg.Gatherer, promhttp.HandlerOpts{}))
	r.With(s.rateLimit).Post("/license", s.handleLicense)
	return r
}

func (s *Server) handleLicense(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxRequestBytes))
	if err != nil {
		s.fail(w, r, start, newProblem(http.StatusRequestEntityTooLarge, "request too large", err))
		return
	}
	req, kids, err := clearkey.ParseRequest(body)
	if err != nil {
		s.fail(w, r, start, newProblem(http.StatusBadRequest, "malformed license request", err))
		return
	}
	if err := s.validate.Struct(req); err != nil {
		s.fail(w, r, start, newProblem(http.StatusBadRequest, "invalid license request", err))
		return
	}

	keys := make([]clearkey.Key, 0, len(kids))
	for _, kid := range kids {
		k, err := crypto.DeriveContentKey(s.cfg.MasterSecret, kid)
		if err != nil {
			s.fail(w, r, start, newProblem(http.StatusInternalServerError, "key derivation failed", err))
			return
		}
		keys = append(keys, clearkey.Key{ID: kid, Value: k})
	}
	resp, err := clearkey.NewResponse(domain.ParseLicenseType(req.Type), keys)
	for _, k := range keys {
		crypto.Wipe(k.Value)
	}
	if err != nil {
		s.fail(w, r, start, newProblem(http.StatusInternalServerError, "encode response", err))
		return
	}

	s.log.Debugf("%s: issued %d keys (%s)", middleware.GetReqID(r.Context()), len(keys), req.Type)
	s.cfg.Metrics.License("issued", time.Since(start).Seconds())
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write(resp)
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, start time.Time, p Problem) {
	s.log.Warnf("%s: %s: %s", middleware.GetReqID(r.Context()), p.Title, p.Detail)
	s.cfg.Metrics.License("rejected", time.Since(start).Seconds())
	p.Trace = middleware.GetReqID(r.Context())
	_ = render.Render(w, r, p)
}

func (s *Server) rateLimit(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if s.limiter != nil && !s.limiter.Allow() {
			w.Header().Set("Retry-After", "1")
			s.fail(w, r, time.Now(), Problem{
				Type:   "/errors/rate-limit-exceeded",
				Title:  "Too Many Requests",
				Status: http.StatusTooManyRequests,
			})
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (s *Server) accessLog(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		start := time.Now()
		next.ServeHTTP(ww, r)
		s.log.Infof("%s %s from %s: %d, %d bytes in %s",
			r.Method, r.URL.Path, r.RemoteAddr, ww.Status(), ww.BytesWritten(), time.Since(start))
	})
}
