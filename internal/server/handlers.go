package server

import (
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/aira-payment/walletdir/internal/walletset"
	wderr "github.com/aira-payment/walletdir/pkg/errors"
)

// CreateWalletRequest is the POST /wallet body.
type CreateWalletRequest struct {
	Email string `json:"email"`
}

// HealthResponse is the data of GET /health.
type HealthResponse struct {
	Status        string `json:"status"`
	Version       string `json:"version"`
	UptimeSeconds int64  `json:"uptimeSeconds"`
	Records       int    `json:"records"`
}

// Endpoint describes one route in GET /api/v1/docs.
type Endpoint struct {
	Method      string `json:"method"`
	Path        string `json:"path"`
	Description string `json:"description"`
}

func (s *Server) handleGetOrCreate(w http.ResponseWriter, r *http.Request) {
	var req CreateWalletRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeJSON(w, http.StatusRequestEntityTooLarge, Response{
				Message:   "Request body too large",
				Code:      "BODY_TOO_LARGE",
				Timestamp: timestamp(s.now()),
			})
			return
		}
		// An empty or unparsable body is treated as a missing email.
		req.Email = ""
	}

	ws, err := s.dir.GetOrCreate(req.Email)
	if err != nil {
		s.writeError(w, r, err, "Failed to get or create wallet")
		return
	}
	s.writeSuccess(w, http.StatusOK, ws, "Wallets retrieved/created successfully")
}

func (s *Server) handleLookup(w http.ResponseWriter, r *http.Request) {
	ws, err := s.dir.Lookup(r.PathValue("email"))
	if err != nil {
		s.writeError(w, r, err, "Failed to get wallet")
		return
	}
	s.writeSuccess(w, http.StatusOK, ws, "Wallets retrieved successfully")
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	sets, err := s.dir.ListAll()
	if err != nil {
		s.writeError(w, r, err, "Failed to get all wallets")
		return
	}
	if sets == nil {
		sets = []walletset.WalletSet{}
	}
	s.writeSuccess(w, http.StatusOK, sets, "All wallets retrieved successfully")
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	email := r.PathValue("email")
	removed, err := s.dir.Delete(email)
	if err != nil {
		s.writeError(w, r, err, "Failed to delete wallet")
		return
	}
	if !removed {
		s.writeError(w, r, wderr.WithDetails(wderr.ErrWalletNotFound, map[string]string{"email": email}), "")
		return
	}
	s.writeSuccess(w, http.StatusOK, nil, "Wallet deleted successfully")
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	health := HealthResponse{
		Status:        "ok",
		Version:       s.version,
		UptimeSeconds: int64(s.now().Sub(s.started) / time.Second),
	}

	st, err := s.dir.Stats()
	if err != nil {
		health.Status = "degraded"
		s.logger.Error("health check [%s]: %v", RequestID(r.Context()), err)
		s.writeJSON(w, http.StatusServiceUnavailable, Response{
			Data:      health,
			Message:   "Wallet store unavailable",
			Code:      wderr.Code(err),
			Timestamp: timestamp(s.now()),
		})
		return
	}
	health.Records = st.Records

	s.writeSuccess(w, http.StatusOK, health, "walletdir API is running")
}

// Endpoints lists the routes served, as reported by GET /api/v1/docs.
func Endpoints() []Endpoint {
	return []Endpoint{
		{http.MethodGet, "/health", "Health check"},
		{http.MethodGet, "/api/v1/docs", "API documentation"},
		{http.MethodGet, "/metrics", "Service counters"},
		{http.MethodPost, BasePath + "/wallet", "Get or create the wallet set for an email"},
		{http.MethodGet, BasePath + "/wallet/{email}", "Get the wallet set for an email"},
		{http.MethodGet, BasePath + "/wallets", "List every wallet set"},
		{http.MethodDelete, BasePath + "/wallet/{email}", "Delete the wallet set for an email"},
	}
}

func (s *Server) handleDocs(w http.ResponseWriter, _ *http.Request) {
	s.writeSuccess(w, http.StatusOK, map[string]any{
		"version":   s.version,
		"endpoints": Endpoints(),
	}, "walletdir API documentation")
}

func (s *Server) handleMetrics(w http.ResponseWriter, _ *http.Request) {
	s.writeSuccess(w, http.StatusOK, s.metrics.Snapshot(), "Metrics retrieved successfully")
}

func (s *Server) handleMethodNotAllowed(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, wderr.ErrMethodNotAllowed, "")
}

func (s *Server) handleNotFound(w http.ResponseWriter, r *http.Request) {
	s.writeError(w, r, wderr.WithDetails(wderr.ErrRouteNotFound, map[string]string{"path": r.URL.Path}), "")
}
