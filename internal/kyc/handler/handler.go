package handler

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"onboard/internal/kyc/models"
	"onboard/internal/kyc/providers"
	"onboard/internal/kyc/service"
	id "onboard/pkg/domain"
	dErrors "onboard/pkg/domain-errors"
	"onboard/pkg/platform/httputil"
	authmw "onboard/pkg/platform/middleware/auth"
	"onboard/pkg/requestcontext"
)

// Service defines the KYC operations exposed over HTTP.
type Service interface {
	Verify(ctx context.Context, req service.VerifyRequest) (*service.VerifyResult, error)
	Submit(ctx context.Context, req service.SubmitRequest) (*models.Case, error)
	AcceptAgreement(ctx context.Context, userID id.UserID, companyID id.CompanyID, version string) (*models.Case, error)
	GetCase(ctx context.Context, userID id.UserID) (*models.Case, error)
	LookupIFSC(ctx context.Context, code string) (*providers.IFSCDetails, error)

	ListCases(ctx context.Context, filter models.CaseFilter) (*models.CasePage, error)
	CountByState(ctx context.Context) (map[models.CaseState]int, error)
	GetCaseByID(ctx context.Context, caseID id.CaseID) (*models.Case, error)
	Approve(ctx context.Context, req service.ReviewRequest) (*models.Case, error)
	Reject(ctx context.Context, req service.ReviewRequest) (*models.Case, error)
	Invalidate(ctx context.Context, req service.InvalidateRequest) (*models.Case, error)
}

// Handler wires KYC endpoints to the KYC service. Authentication runs
// upstream; admin routes additionally require the admin role.
type Handler struct {
	service Service
	logger  *slog.Logger
}

// New constructs a KYC handler.
func New(service Service, logger *slog.Logger) *Handler {
	return &Handler{service: service, logger: logger}
}

// Register mounts the seller routes under /kyc and the reviewer routes under
// /admin/kyc.
func (h *Handler) Register(r chi.Router) {
	r.Route("/kyc", func(r chi.Router) {
		r.Get("/case", h.HandleGetCase)
		r.Post("/documents/{documentType}/verify", h.HandleVerify)
		r.Post("/documents/{documentType}/invalidate", h.HandleInvalidateOwn)
		r.Post("/agreement", h.HandleAcceptAgreement)
		r.Post("/submit", h.HandleSubmit)
		r.Get("/ifsc/{code}", h.HandleLookupIFSC)
	})

	r.Route("/admin/kyc", func(r chi.Router) {
		r.Use(authmw.RequireAdmin(h.logger))
		r.Get("/cases", h.HandleListCases)
		r.Get("/cases/counts", h.HandleCountByState)
		r.Get("/cases/{caseID}", h.HandleGetCaseByID)
		r.Post("/cases/{caseID}/approve", h.HandleApprove)
		r.Post("/cases/{caseID}/reject", h.HandleReject)
		r.Post("/cases/{caseID}/documents/{documentType}/invalidate", h.HandleInvalidate)
	})
}

// =============================================================================
// Seller endpoints
// =============================================================================

// HandleVerify handles POST /kyc/documents/{documentType}/verify. A
// determinate provider failure is answered with 422 and the document's state.
func (h *Handler) HandleVerify(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)
	start := time.Now()

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	docType, err := models.ParseDocumentType(chi.URLParam(r, "documentType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[VerifyDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}

	result, err := h.service.Verify(ctx, service.VerifyRequest{
		UserID:       userID,
		CompanyID:    requestcontext.CompanyID(ctx),
		DocumentType: docType,
		Fields:       req.Fields,
	})
	if err != nil {
		h.logFailure(ctx, "kyc verification failed", err, "user_id", userID.String(), "document_type", docType)
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "kyc document verification handled",
		"request_id", requestID,
		"user_id", userID.String(),
		"document_type", docType,
		"state", result.Document.Status.State,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	resp := FromVerifyResult(result)
	if !result.Verified() {
		httputil.WriteJSON(w, http.StatusUnprocessableEntity, resp)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, resp)
}

// HandleInvalidateOwn handles POST /kyc/documents/{documentType}/invalidate.
// The case is always the caller's own.
func (h *Handler) HandleInvalidateOwn(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	docType, err := models.ParseDocumentType(chi.URLParam(r, "documentType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[InvalidateDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Invalidate(ctx, service.InvalidateRequest{
		UserID:       userID,
		DocumentType: docType,
		Reason:       req.Reason,
		ActorID:      userID.String(),
	})
	if err != nil {
		h.logFailure(ctx, "kyc document invalidation failed", err, "user_id", userID.String(), "document_type", docType)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleAcceptAgreement handles POST /kyc/agreement.
func (h *Handler) HandleAcceptAgreement(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[AcceptAgreementRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.AcceptAgreement(ctx, userID, requestcontext.CompanyID(ctx), req.Version)
	if err != nil {
		h.logFailure(ctx, "kyc agreement acceptance failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleSubmit handles POST /kyc/submit.
func (h *Handler) HandleSubmit(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[SubmitCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Submit(ctx, service.SubmitRequest{UserID: userID, Declared: req.declared})
	if err != nil {
		h.logFailure(ctx, "kyc submission failed", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	h.logger.InfoContext(ctx, "kyc case submitted",
		"request_id", requestID,
		"user_id", userID.String(),
		"case_id", c.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleGetCase handles GET /kyc/case.
func (h *Handler) HandleGetCase(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	userID, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	c, err := h.service.GetCase(ctx, userID)
	if err != nil {
		h.logFailure(ctx, "failed to load kyc case", err, "user_id", userID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleLookupIFSC handles GET /kyc/ifsc/{code}.
func (h *Handler) HandleLookupIFSC(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if _, ok := h.requireUser(w, ctx); !ok {
		return
	}
	details, err := h.service.LookupIFSC(ctx, chi.URLParam(r, "code"))
	if err != nil {
		h.logFailure(ctx, "ifsc lookup failed", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, details)
}

// =============================================================================
// Reviewer endpoints
// =============================================================================

// HandleListCases handles GET /admin/kyc/cases.
func (h *Handler) HandleListCases(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	filter, err := ParseCaseFilter(r.URL.Query())
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	page, err := h.service.ListCases(ctx, filter)
	if err != nil {
		h.logFailure(ctx, "failed to list kyc cases", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromPage(page, filter))
}

// HandleCountByState handles GET /admin/kyc/cases/counts.
func (h *Handler) HandleCountByState(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	counts, err := h.service.CountByState(ctx)
	if err != nil {
		h.logFailure(ctx, "failed to count kyc cases", err)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, CountsResponse{Counts: counts})
}

// HandleGetCaseByID handles GET /admin/kyc/cases/{caseID}.
func (h *Handler) HandleGetCaseByID(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	c, err := h.service.GetCaseByID(ctx, caseID)
	if err != nil {
		h.logFailure(ctx, "failed to load kyc case", err, "case_id", caseID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleApprove handles POST /admin/kyc/cases/{caseID}/approve.
func (h *Handler) HandleApprove(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, "approve", h.service.Approve)
}

// HandleReject handles POST /admin/kyc/cases/{caseID}/reject.
func (h *Handler) HandleReject(w http.ResponseWriter, r *http.Request) {
	h.handleReview(w, r, "reject", h.service.Reject)
}

func (h *Handler) handleReview(w http.ResponseWriter, r *http.Request, op string, decide func(context.Context, service.ReviewRequest) (*models.Case, error)) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	reviewer, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[ReviewCaseRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := decide(ctx, service.ReviewRequest{
		CaseID:   caseID,
		Reviewer: reviewer.String(),
		Notes:    req.Notes,
		Reason:   req.Reason,
	})
	if err != nil {
		h.logFailure(ctx, "kyc review failed", err, "operation", op, "case_id", caseID.String())
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// HandleInvalidate handles POST /admin/kyc/cases/{caseID}/documents/{documentType}/invalidate.
func (h *Handler) HandleInvalidate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	actor, ok := h.requireUser(w, ctx)
	if !ok {
		return
	}
	caseID, err := id.ParseCaseID(chi.URLParam(r, "caseID"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	docType, err := models.ParseDocumentType(chi.URLParam(r, "documentType"))
	if err != nil {
		httputil.WriteError(w, err)
		return
	}
	req, ok := httputil.DecodeAndPrepare[InvalidateDocumentRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	c, err := h.service.Invalidate(ctx, service.InvalidateRequest{
		CaseID:       caseID,
		DocumentType: docType,
		Reason:       req.Reason,
		ActorID:      actor.String(),
	})
	if err != nil {
		h.logFailure(ctx, "kyc document invalidation failed", err, "case_id", caseID.String(), "document_type", docType)
		httputil.WriteError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, FromCase(c))
}

// =============================================================================
// Helpers
// =============================================================================

func (h *Handler) requireUser(w http.ResponseWriter, ctx context.Context) (id.UserID, bool) {
	userID := requestcontext.UserID(ctx)
	if userID == (id.UserID{}) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
		return id.UserID{}, false
	}
	return userID, true
}

// logFailure logs client errors at warn and everything else at error.
func (h *Handler) logFailure(ctx context.Context, msg string, err error, attrs ...any) {
	attrs = append(attrs, "request_id", requestcontext.RequestID(ctx), "error", err)
	if httputil.StatusFor(dErrors.CodeOf(err)) < http.StatusInternalServerError {
		h.logger.WarnContext(ctx, msg, attrs...)
		return
	}
	h.logger.ErrorContext(ctx, msg, attrs...)
}
