package httpapi

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"launchctl/internal/apperr"
	"launchctl/internal/project"
	"launchctl/internal/txbuilder"
)

func decodePubkey(s string) (project.Pubkey, error) {
	var pk project.Pubkey
	raw, err := base58.Decode(s)
	if err != nil || len(raw) != 32 {
		return pk, apperr.New(apperr.KindValidation, "invalid pubkey encoding")
	}
	copy(pk[:], raw)
	return pk, nil
}

func encodePubkey(pk *project.Pubkey) string {
	if pk == nil {
		return ""
	}
	return base58.Encode(pk[:])
}

func encodePreSigned(signers []project.Pubkey) []string {
	out := make([]string, len(signers))
	for i, s := range signers {
		out[i] = base58.Encode(s[:])
	}
	return out
}

// createProjectRequest is the multipart-form-decoded request body for
// POST /api/project/create. The metadata image itself is read from the
// multipart file field "image" rather than this struct.
type createProjectRequest struct {
	Owner              string `json:"owner"`
	HasStaticPool      bool   `json:"has_static_pool"`
	StaticLaunchTS      int64  `json:"static_launch_ts"`
	CurveVariant        string `json:"curve_variant"`
	DevPurchaseAmount   uint64 `json:"dev_purchase_amount"`
	DevLockEnabled      bool   `json:"dev_lock_enabled"`
	DevLockIntervalSecs int64  `json:"dev_lock_interval_seconds"`
	Name                string `json:"name"`
	Symbol              string `json:"symbol"`
	Description         string `json:"description"`
	Website             string `json:"website"`
	Twitter             string `json:"twitter"`
	Telegram            string `json:"telegram"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(10 << 20); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid multipart form"))
		return
	}

	var req createProjectRequest
	if raw := r.FormValue("metadata"); raw != "" {
		if err := json.Unmarshal([]byte(raw), &req); err != nil {
			writeError(w, apperr.New(apperr.KindValidation, "invalid metadata json"))
			return
		}
	}

	owner, err := decodePubkey(req.Owner)
	if err != nil {
		writeError(w, err)
		return
	}

	schema := project.DeploySchema{}
	if req.HasStaticPool {
		schema.StaticPool = &project.StaticPoolConfig{LaunchTS: time.Unix(req.StaticLaunchTS, 0)}
	}
	variant, ok := project.ParseCurveVariant(req.CurveVariant)
	if !ok {
		writeError(w, apperr.New(apperr.KindValidation, "unknown curve_variant"))
		return
	}
	schema.CurvePool = variant
	if req.DevPurchaseAmount > 0 {
		dp := &project.DevPurchase{Amount: req.DevPurchaseAmount, Lock: project.DevLockDisabled}
		if req.DevLockEnabled {
			dp.Lock = project.DevLockInterval
			dp.LockInterval = time.Duration(req.DevLockIntervalSecs) * time.Second
		}
		schema.DevPurchase = dp
	}
	if err := schema.Validate(); err != nil {
		writeError(w, apperr.Wrap(apperr.KindValidation, err, "invalid deploy schema"))
		return
	}

	metadataURI := ""
	if file, header, err := r.FormFile("image"); err == nil {
		defer file.Close()
		data := make([]byte, header.Size)
		if _, err := file.Read(data); err != nil {
			writeError(w, apperr.Wrap(apperr.KindTransient, err, "read uploaded image"))
			return
		}
		uri, err := s.uploader.Upload(r.Context(), data, header.Header.Get("Content-Type"))
		if err != nil {
			writeError(w, apperr.Wrap(apperr.KindTransient, err, "upload metadata image"))
			return
		}
		metadataURI = uri
	}

	p := &project.Project{
		ID:        uuid.New(),
		Owner:     owner,
		Schema:    schema,
		Stage:     project.StageCreated,
		CreatedAt: time.Now(),
		Metadata: project.TokenMetadata{
			Name: req.Name, Symbol: req.Symbol, Description: req.Description,
			Website: req.Website, Twitter: req.Twitter, Telegram: req.Telegram,
			MetadataURI: metadataURI,
		},
	}
	// CreateProject assigns the project's curve pool keypair (internal-curve
	// schemas only) and commits the row in one step, so p.CurvePoolKeypair is
	// populated here before the transaction below is built.
	if err := s.store.CreateProject(r.Context(), p); err != nil {
		writeError(w, err)
		return
	}

	blockhash, err := s.blockhashes.RecentBlockhash(r.Context())
	if err != nil {
		writeError(w, apperr.Wrap(apperr.KindTransient, err, "recent blockhash"))
		return
	}
	tx := txbuilder.BuildCreateProject(s.programID, blockhash, owner, p.CurvePoolKeypair, p.StaticPoolPubkey)
	writeJSON(w, http.StatusCreated, createProjectResponse{
		ProjectID:   p.ID,
		Transaction: tx.Bytes,
	})
}

// createProjectResponse is the wire shape for a landed create_project call:
// the committed project's id plus the unsigned transaction the caller signs
// and submits to actually create the on-chain accounts.
type createProjectResponse struct {
	ProjectID   uuid.UUID `json:"projectId"`
	Transaction []byte    `json:"transaction"`
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.URL.Query().Get("id"))
	if err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid id"))
		return
	}
	p, err := s.store.GetProject(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, projectionOf(p))
}

type buyRequest struct {
	ProjectID    uuid.UUID `json:"project_id"`
	Buyer        string    `json:"buyer"`
	LamportsIn   uint64    `json:"lamports_in"`
	MinTokensOut uint64    `json:"min_tokens_out"`
}

func (s *Server) handleBuy(w http.ResponseWriter, r *http.Request) {
	var req buyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	buyer, err := decodePubkey(req.Buyer)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.trader.Buy(r.Context(), req.ProjectID, buyer, req.LamportsIn, req.MinTokensOut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, buyResponse{
		TransactionBytes: result.TransactionBytes,
		PreSignedSigners: encodePreSigned(result.PreSignedSigners),
		TokensOut:        result.TokensOut,
	})
}

type sellRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
	Seller    string    `json:"seller"`
	TokensIn  uint64    `json:"tokens_in"`
	MinSolOut uint64    `json:"min_sol_out"`
}

func (s *Server) handleSell(w http.ResponseWriter, r *http.Request) {
	var req sellRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	seller, err := decodePubkey(req.Seller)
	if err != nil {
		writeError(w, err)
		return
	}
	result, err := s.trader.Sell(r.Context(), req.ProjectID, seller, req.TokensIn, req.MinSolOut)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, sellResponse{
		TransactionBytes: result.TransactionBytes,
		PreSignedSigners: encodePreSigned(result.PreSignedSigners),
		SolOut:           result.SolOut,
	})
}

type claimDevLockRequest struct {
	ProjectID uuid.UUID `json:"project_id"`
}

func (s *Server) handleClaimDevLock(w http.ResponseWriter, r *http.Request) {
	var req claimDevLockRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, apperr.New(apperr.KindValidation, "invalid request body"))
		return
	}
	result, err := s.trader.ClaimDevLock(r.Context(), req.ProjectID, time.Now())
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, claimResponse{
		TransactionBytes: result.TransactionBytes,
		PreSignedSigners: encodePreSigned(result.PreSignedSigners),
	})
}
