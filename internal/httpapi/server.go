// Package httpapi exposes the control plane's public surface: create a
// project, read its projection, trade against its pool, and claim a locked
// dev purchase. Server/routes()/middleware shape follows the teacher's
// explorer server convention, adapted from gorilla/mux onto chi.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"launchctl/internal/apperr"
	"launchctl/internal/project"
	"launchctl/internal/tradeservice"
)

// Store is the subset of internal/store.ProjectRepository the HTTP layer
// needs.
type Store interface {
	GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error)
	CreateProject(ctx context.Context, p *project.Project) error
}

// Server holds every dependency a handler might need and builds the chi
// router in routes().
type Server struct {
	store         Store
	trader        Trader
	uploader      Uploader
	blockhashes   BlockhashSource
	programID     project.Pubkey
	requestBudget time.Duration
	logger        *logrus.Entry
	router        chi.Router
}

// BlockhashSource supplies the fresh recent blockhash create_project's
// unsigned transaction needs, the same dependency internal/tradeservice
// uses for trade transactions.
type BlockhashSource interface {
	RecentBlockhash(ctx context.Context) ([32]byte, error)
}

// Trader executes the curve-pool buy/sell/claim operations; internal/tradeservice
// implements the concrete logic, kept behind an interface so handlers stay
// free of transaction-building detail.
type Trader interface {
	Buy(ctx context.Context, projectID uuid.UUID, buyer project.Pubkey, lamportsIn, minTokensOut uint64) (tradeservice.BuyResult, error)
	Sell(ctx context.Context, projectID uuid.UUID, seller project.Pubkey, tokensIn, minSolOut uint64) (tradeservice.SellResult, error)
	ClaimDevLock(ctx context.Context, projectID uuid.UUID, now time.Time) (tradeservice.ClaimResult, error)
}

// buyResponse is the wire shape for a landed buy quote; pubkeys are
// base58-encoded the same way the rest of the API encodes them.
type buyResponse struct {
	TransactionBytes []byte   `json:"transaction"`
	PreSignedSigners []string `json:"pre_signed_signers"`
	TokensOut        uint64   `json:"tokens_out"`
}

// sellResponse is the wire shape for a landed sell quote.
type sellResponse struct {
	TransactionBytes []byte   `json:"transaction"`
	PreSignedSigners []string `json:"pre_signed_signers"`
	SolOut           uint64   `json:"sol_out"`
}

// claimResponse is the wire shape for a dev-lock claim transaction.
type claimResponse struct {
	TransactionBytes []byte   `json:"transaction"`
	PreSignedSigners []string `json:"pre_signed_signers"`
}

// Uploader is the off-chain metadata upload dependency create_project uses.
type Uploader interface {
	Upload(ctx context.Context, data []byte, mimeType string) (uri string, err error)
}

// NewServer builds a Server and its routes.
func NewServer(store Store, trader Trader, uploader Uploader, blockhashes BlockhashSource, programID project.Pubkey, requestBudget time.Duration, logger *logrus.Entry) *Server {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	if requestBudget <= 0 {
		requestBudget = 2 * time.Second
	}
	s := &Server{
		store: store, trader: trader, uploader: uploader,
		blockhashes: blockhashes, programID: programID,
		requestBudget: requestBudget, logger: logger.WithField("component", "httpapi"),
	}
	s.router = s.routes()
	return s
}

// ServeHTTP implements http.Handler so a Server can be passed directly to
// http.ListenAndServe.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(s.logRequest)
	r.Use(s.budgetRequest)

	r.Route("/api/project", func(r chi.Router) {
		r.Post("/create", s.handleCreate)
		r.Get("/get", s.handleGet)
		r.Post("/buy", s.handleBuy)
		r.Post("/sell", s.handleSell)
		r.Post("/claim_dev_lock", s.handleClaimDevLock)
	})
	return r
}

// logRequest logs method, path, status, and latency for every request, the
// teacher's structured-logging idiom applied at the transport boundary.
func (s *Server) logRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)
		s.logger.WithFields(logrus.Fields{
			"method":   r.Method,
			"path":     r.URL.Path,
			"status":   ww.Status(),
			"duration": time.Since(start),
		}).Info("handled request")
	})
}

// budgetRequest wraps every handler's context with the configured request
// budget, per spec.md §5's HTTP request budget rule.
func (s *Server) budgetRequest(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx, cancel := context.WithTimeout(r.Context(), s.requestBudget)
		defer cancel()
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch apperr.KindOf(err) {
	case apperr.KindValidation:
		status = http.StatusBadRequest
	case apperr.KindStateConflict:
		status = http.StatusConflict
	case apperr.KindSlippageBreach:
		status = http.StatusUnprocessableEntity
	case apperr.KindResourceExhausted:
		status = http.StatusServiceUnavailable
	case apperr.KindTransient:
		status = http.StatusBadGateway
	case apperr.KindFatal:
		status = http.StatusInternalServerError
	}
	writeJSON(w, status, errorResponse{Error: err.Error()})
}
