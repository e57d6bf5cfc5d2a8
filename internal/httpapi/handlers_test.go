package httpapi

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/mr-tron/base58"

	"launchctl/internal/apperr"
	"launchctl/internal/project"
	"launchctl/internal/tradeservice"
)

type fakeStore struct {
	projects map[uuid.UUID]*project.Project
}

func (s *fakeStore) GetProject(ctx context.Context, id uuid.UUID) (*project.Project, error) {
	p, ok := s.projects[id]
	if !ok {
		return nil, apperr.New(apperr.KindValidation, "not found")
	}
	return p, nil
}

func (s *fakeStore) CreateProject(ctx context.Context, p *project.Project) error {
	// Mirrors internal/store.ProjectRepository.CreateProject: an
	// internal-curve project is assigned a curve pool keypair as part of
	// creation; an external-curve project gets none.
	if p.Schema.CurvePool == project.CurveInternal {
		var kp project.Keypair
		kp[0] = byte(len(s.projects) + 1)
		p.CurvePoolKeypair = &kp
	}
	s.projects[p.ID] = p
	return nil
}

type fakeTrader struct{}

func (fakeTrader) Buy(ctx context.Context, projectID uuid.UUID, buyer project.Pubkey, lamportsIn, minTokensOut uint64) (tradeservice.BuyResult, error) {
	return tradeservice.BuyResult{
		TransactionBytes: []byte("tx"),
		PreSignedSigners: []project.Pubkey{{9}},
		TokensOut:        42,
	}, nil
}

func (fakeTrader) Sell(ctx context.Context, projectID uuid.UUID, seller project.Pubkey, tokensIn, minSolOut uint64) (tradeservice.SellResult, error) {
	return tradeservice.SellResult{TransactionBytes: []byte("tx"), SolOut: 7}, nil
}

func (fakeTrader) ClaimDevLock(ctx context.Context, projectID uuid.UUID, now time.Time) (tradeservice.ClaimResult, error) {
	return tradeservice.ClaimResult{TransactionBytes: []byte("tx")}, nil
}

type fakeUploader struct{}

func (fakeUploader) Upload(ctx context.Context, data []byte, mimeType string) (string, error) {
	return "ipfs://fake", nil
}

type fakeBlockhashSource struct{}

func (fakeBlockhashSource) RecentBlockhash(ctx context.Context) ([32]byte, error) {
	return [32]byte{7}, nil
}

func newTestServer() (*Server, *fakeStore) {
	store := &fakeStore{projects: map[uuid.UUID]*project.Project{}}
	return NewServer(store, fakeTrader{}, fakeUploader{}, fakeBlockhashSource{}, project.Pubkey{1}, 0, nil), store
}

func TestHandleCreateReturnsTransactionAndAssignsKeypair(t *testing.T) {
	s, store := newTestServer()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	ownerKey := base58.Encode(bytes.Repeat([]byte{1}, 32))
	metadata, _ := json.Marshal(map[string]any{
		"owner":         ownerKey,
		"curve_variant": "moonzip",
		"name":          "Test Token",
		"symbol":        "TST",
	})
	_ = w.WriteField("metadata", string(metadata))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/project/create", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var out createProjectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(out.Transaction) == 0 {
		t.Fatal("expected a non-empty unsigned transaction")
	}
	stored, ok := store.projects[out.ProjectID]
	if !ok {
		t.Fatal("expected the project to be committed to the store")
	}
	if stored.CurvePoolKeypair == nil {
		t.Fatal("expected an internal-curve project to be assigned a curve pool keypair before the response was built")
	}
}

func TestHandleCreateOmitsKeypairForExternalCurve(t *testing.T) {
	s, store := newTestServer()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	ownerKey := base58.Encode(bytes.Repeat([]byte{1}, 32))
	metadata, _ := json.Marshal(map[string]any{
		"owner":         ownerKey,
		"curve_variant": "pumpfun",
		"name":          "Test Token",
		"symbol":        "TST",
	})
	_ = w.WriteField("metadata", string(metadata))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/project/create", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var out createProjectResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if store.projects[out.ProjectID].CurvePoolKeypair != nil {
		t.Fatal("expected an external-curve project to have no assigned curve pool keypair")
	}
}

func TestHandleCreateRejectsUnknownCurveVariant(t *testing.T) {
	s, _ := newTestServer()

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	ownerKey := base58.Encode(bytes.Repeat([]byte{1}, 32))
	metadata, _ := json.Marshal(map[string]any{"owner": ownerKey, "curve_variant": "not_a_real_variant"})
	_ = w.WriteField("metadata", string(metadata))
	_ = w.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/project/create", &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	rec := httptest.NewRecorder()

	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleGetReturnsNotFoundForUnknownID(t *testing.T) {
	s, _ := newTestServer()

	req := httptest.NewRequest(http.MethodGet, "/api/project/get?id="+uuid.New().String(), nil)
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Fatalf("expected 400 for unknown project, got %d: %s", rec.Code, rec.Body.String())
	}
}

func TestHandleBuyEncodesPreSignedSignersAsBase58(t *testing.T) {
	s, store := newTestServer()
	p := &project.Project{ID: uuid.New(), Stage: project.StageOnCurvePool}
	store.projects[p.ID] = p

	reqBody, _ := json.Marshal(map[string]any{
		"project_id":     p.ID.String(),
		"buyer":          base58.Encode(bytes.Repeat([]byte{2}, 32)),
		"lamports_in":    1000,
		"min_tokens_out": 0,
	})
	req := httptest.NewRequest(http.MethodPost, "/api/project/buy", bytes.NewReader(reqBody))
	rec := httptest.NewRecorder()
	s.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}
	var out buyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if out.TokensOut != 42 {
		t.Fatalf("expected tokens_out 42, got %d", out.TokensOut)
	}
	if len(out.PreSignedSigners) != 1 {
		t.Fatalf("expected one pre-signed signer, got %d", len(out.PreSignedSigners))
	}
	want := project.Pubkey{9}
	if out.PreSignedSigners[0] != base58.Encode(want[:]) {
		t.Fatalf("expected base58 signer %q, got %q", base58.Encode(want[:]), out.PreSignedSigners[0])
	}
}
