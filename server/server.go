// Package server exposes the vorth compiler core over HTTP: POST /compile
// accepts source text and returns diagnostics plus compile metrics, guarded
// by a short-lived JWT issued from POST /login against a single
// bcrypt-hashed API key. There's no per-user account model here (unlike
// the game server this package started life as): a compile-verification
// service only needs to tell "a holder of the shared key" apart from
// everyone else, not track individual identities.
package server

import (
	"crypto/subtle"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/dekarrin/vorth/internal/codegen"
	"github.com/dekarrin/vorth/internal/optimize"
	"github.com/dekarrin/vorth/internal/sema"
	"github.com/dekarrin/vorth/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"
)

// Config configures a Server.
type Config struct {
	// APIKeyHash is the bcrypt hash of the single shared API key accepted
	// by POST /login. Generate it with bcrypt.GenerateFromPassword.
	APIKeyHash []byte

	// TokenSecret signs issued JWTs. Must be at least MinSecretSize bytes.
	TokenSecret []byte

	// TokenTTL is how long an issued JWT remains valid.
	TokenTTL time.Duration

	// UnauthDelay is additional latency added before an unauthorized or
	// bad-credentials response is sent, an anti-flood measure against
	// naive non-parallel clients guessing at the key.
	UnauthDelay time.Duration
}

const (
	MinSecretSize = 32
	MaxSecretSize = 64
)

// FillDefaults returns a copy of cfg with zero-valued fields set to their
// defaults.
func (cfg Config) FillDefaults() Config {
	out := cfg
	if out.TokenTTL == 0 {
		out.TokenTTL = time.Hour
	}
	if out.UnauthDelay == 0 {
		out.UnauthDelay = time.Second
	}
	return out
}

func (cfg Config) Validate() error {
	if len(cfg.TokenSecret) < MinSecretSize {
		return fmt.Errorf("token secret: must be at least %d bytes, got %d", MinSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.TokenSecret) > MaxSecretSize {
		return fmt.Errorf("token secret: must be no more than %d bytes, got %d", MaxSecretSize, len(cfg.TokenSecret))
	}
	if len(cfg.APIKeyHash) == 0 {
		return fmt.Errorf("api key hash: must be set")
	}
	return nil
}

// Server is the vorth HTTP compile-verification service.
type Server struct {
	cfg    Config
	router chi.Router
}

// New builds a Server and wires its routes. cfg must already be valid; call
// cfg.FillDefaults() first if any fields were left zero.
func New(cfg Config) (*Server, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	s := &Server{cfg: cfg}
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.Recoverer)
	r.Use(s.logRequest)

	r.Post("/login", s.handleLogin)
	r.With(s.requireAuth).Post("/compile", s.handleCompile)

	s.router = r
	return s, nil
}

func (s *Server) ServeForever(addr string, port int) error {
	listenAddr := fmt.Sprintf("%s:%d", addr, port)
	log.Printf("INFO  vorth compile server listening on %s", listenAddr)
	return http.ListenAndServe(listenAddr, s.router)
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		next.ServeHTTP(w, r)
		log.Printf("INFO  %s %s %s (%s)", middleware.GetReqID(r.Context()), r.Method, r.URL.Path, time.Since(start))
	})
}

type loginRequest struct {
	APIKey string `json:"api_key"`
}

type loginResponse struct {
	Token string `json:"token"`
}

func (s *Server) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}

	if bcrypt.CompareHashAndPassword(s.cfg.APIKeyHash, []byte(req.APIKey)) != nil {
		time.Sleep(s.cfg.UnauthDelay)
		writeJSONError(w, http.StatusUnauthorized, "invalid API key")
		return
	}

	claims := jwt.MapClaims{
		"iss": "vorth-server",
		"sub": uuid.NewString(),
		"exp": time.Now().Add(s.cfg.TokenTTL).Unix(),
	}
	tok := jwt.NewWithClaims(jwt.SigningMethodHS512, claims)
	signed, err := tok.SignedString(s.cfg.TokenSecret)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, "could not sign token")
		return
	}

	writeJSON(w, http.StatusCreated, loginResponse{Token: signed})
}

func (s *Server) requireAuth(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		tokStr := bearerToken(r)
		if tokStr == "" {
			time.Sleep(s.cfg.UnauthDelay)
			writeJSONError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		_, err := jwt.Parse(tokStr, func(t *jwt.Token) (interface{}, error) {
			return s.cfg.TokenSecret, nil
		}, jwt.WithValidMethods([]string{jwt.SigningMethodHS512.Alg()}), jwt.WithIssuer("vorth-server"), jwt.WithLeeway(time.Minute))
		if err != nil {
			time.Sleep(s.cfg.UnauthDelay)
			writeJSONError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next.ServeHTTP(w, r)
	})
}

func bearerToken(r *http.Request) string {
	h := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if len(h) <= len(prefix) || subtle.ConstantTimeCompare([]byte(h[:len(prefix)]), []byte(prefix)) != 1 {
		return ""
	}
	return h[len(prefix):]
}

type compileRequest struct {
	Source   string `json:"source"`
	Entry    string `json:"entry"`
	Opt      string `json:"opt"`      // "O0".."O3", defaults to "O1"
	Backend  string `json:"backend"`  // "direct" or "llvm", defaults to "direct"
	Redefine string `json:"redefine"` // "warn", "error", or "shadow"
}

type diagnosticDTO struct {
	Code     string `json:"code"`
	Severity string `json:"severity"`
	Message  string `json:"message"`
	Line     int    `json:"line"`
	Column   int    `json:"column"`
}

type compileResponse struct {
	Diagnostics []diagnosticDTO `json:"diagnostics"`
	Success     bool            `json:"success"`
	Metrics     metricsDTO      `json:"metrics"`
}

type metricsDTO struct {
	WordCountBefore  int `json:"word_count_before"`
	WordCountAfter   int `json:"word_count_after"`
	InstrCountBefore int `json:"instr_count_before"`
	InstrCountAfter  int `json:"instr_count_after"`
}

func (s *Server) handleCompile(w http.ResponseWriter, r *http.Request) {
	var req compileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSONError(w, http.StatusBadRequest, "malformed JSON body")
		return
	}
	if req.Source == "" {
		writeJSONError(w, http.StatusBadRequest, "source must not be empty")
		return
	}

	backend := backendOf(req.Backend)
	mode := codegen.ModeAOT
	if !backend.Supports(mode) {
		mode = codegen.ModeJIT
	}

	sess := session.New("<http>", policyOf(req.Redefine))
	result := sess.Compile([]byte(req.Source), session.Options{
		Mode:        session.ModeFull,
		OptLevel:    levelOf(req.Opt),
		Backend:     backend,
		BackendMode: mode,
		Entry:       req.Entry,
		EmitMetrics: true,
	})

	resp := compileResponse{Success: !result.HasErrors()}
	for _, d := range result.Diagnostics {
		resp.Diagnostics = append(resp.Diagnostics, diagnosticDTO{
			Code: d.Code, Severity: d.Severity.String(), Message: d.Message,
			Line: d.Location.Line, Column: d.Location.Column,
		})
	}
	resp.Metrics = metricsDTO{
		WordCountBefore:  result.Metrics.WordCountBefore,
		WordCountAfter:   result.Metrics.WordCountAfter,
		InstrCountBefore: result.Metrics.InstrCountBefore,
		InstrCountAfter:  result.Metrics.InstrCountAfter,
	}

	status := http.StatusOK
	if !resp.Success {
		status = http.StatusUnprocessableEntity
	}
	writeJSON(w, status, resp)
}

func policyOf(s string) sema.RedefinitionPolicy {
	switch s {
	case "error":
		return sema.RedefineError
	case "shadow":
		return sema.RedefineShadow
	default:
		return sema.RedefineWarn
	}
}

func levelOf(s string) optimize.Level {
	switch s {
	case "O0":
		return optimize.O0
	case "O2":
		return optimize.O2
	case "O3":
		return optimize.O3
	default:
		return optimize.O1
	}
}

func backendOf(s string) codegen.Backend {
	if s == "llvm" {
		return codegen.NewLLVMBackend()
	}
	return codegen.NewDirectBackend()
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}
