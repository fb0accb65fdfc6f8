package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/campusbooks/fee_ledger_app/internal/apperrors"
	"github.com/campusbooks/fee_ledger_app/internal/core/domain"
	portssvc "github.com/campusbooks/fee_ledger_app/internal/core/ports/services"
	"github.com/campusbooks/fee_ledger_app/internal/core/services"
	"github.com/campusbooks/fee_ledger_app/internal/dto"
	"github.com/campusbooks/fee_ledger_app/internal/middleware"
	"github.com/gin-gonic/gin"
)

type LedgerHandler struct {
	ledgerService portssvc.LedgerSvcFacade
}

func NewLedgerHandler(ledgerService portssvc.LedgerSvcFacade) *LedgerHandler {
	return &LedgerHandler{ledgerService: ledgerService}
}

// respondError maps service errors to HTTP statuses.
func respondError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, apperrors.ErrNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrValidation),
		errors.Is(err, services.ErrBatchEmpty),
		errors.Is(err, services.ErrAmountNotPositive),
		errors.Is(err, services.ErrStudentRequired),
		errors.Is(err, services.ErrReferenceRequired):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, apperrors.ErrConflict), errors.Is(err, apperrors.ErrDuplicate):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
	}
}

// AppendEntry godoc
// @Summary Append one ledger entry
// @Description Records a single charge (DEBIT) or payment (CREDIT) on the student's fee ledger
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Param   entry body dto.CreateLedgerEntryRequest true "Ledger entry"
// @Success 201 {object} dto.LedgerEntryResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger [post]
func (h *LedgerHandler) AppendEntry(c *gin.Context) {
	studentID := c.Param("studentID")

	var req dto.CreateLedgerEntryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity missing"})
		return
	}

	entry, err := h.ledgerService.AppendEntry(c.Request.Context(), studentID, req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.ToLedgerEntryResponse(entry))
}

// AppendEntryBatch godoc
// @Summary Append a batch of ledger entries atomically
// @Description Records all ledger lines of one business event; either every line is stored or none
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Param   batch body dto.CreateLedgerEntryBatchRequest true "Ledger entries"
// @Success 201 {object} dto.LedgerStatementResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger/batch [post]
func (h *LedgerHandler) AppendEntryBatch(c *gin.Context) {
	studentID := c.Param("studentID")

	var req dto.CreateLedgerEntryBatchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity missing"})
		return
	}

	entries, err := h.ledgerService.AppendEntries(c.Request.Context(), studentID, req, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, dto.LedgerStatementResponse{Entries: dto.ToLedgerEntryResponses(entries)})
}

// GetStatement godoc
// @Summary Get a student's ledger statement
// @Description Returns non-reversed entries in chronological order, optionally scoped to one session
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Param   sessionID query string false "Session ID"
// @Param   limit query int false "Page size"
// @Param   nextToken query string false "Pagination token"
// @Success 200 {object} dto.LedgerStatementResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger [get]
func (h *LedgerHandler) GetStatement(c *gin.Context) {
	studentID := c.Param("studentID")

	var params dto.ListLedgerEntriesParams
	if err := c.ShouldBindQuery(&params); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	statement, err := h.ledgerService.GetStatement(c.Request.Context(), studentID, params)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, statement)
}

// GetLastEntry godoc
// @Summary Get the most recent ledger entry
// @Description Returns the latest entry regardless of reversal state; diagnostics only
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Success 200 {object} dto.LedgerEntryResponse
// @Failure 404 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger/last [get]
func (h *LedgerHandler) GetLastEntry(c *gin.Context) {
	studentID := c.Param("studentID")

	entry, err := h.ledgerService.GetLastEntry(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToLedgerEntryResponse(entry))
}

// GetBalance godoc
// @Summary Get a student's balance summary
// @Description Current running balance with total non-reversed debits and credits
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Success 200 {object} dto.BalanceSummaryResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/balance [get]
func (h *LedgerHandler) GetBalance(c *gin.Context) {
	studentID := c.Param("studentID")

	totals, err := h.ledgerService.GetBalanceSummary(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.ToBalanceSummaryResponse(totals))
}

// GetSessionCredits godoc
// @Summary Get a student's credit total for one session
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Param   sessionID path string true "Session ID"
// @Success 200 {object} dto.SessionCreditsResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/sessions/{sessionID}/credits [get]
func (h *LedgerHandler) GetSessionCredits(c *gin.Context) {
	studentID := c.Param("studentID")
	sessionID := c.Param("sessionID")

	total, err := h.ledgerService.TotalCreditsForSession(c.Request.Context(), studentID, sessionID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.SessionCreditsResponse{
		StudentID:    studentID,
		SessionID:    sessionID,
		TotalCredits: total,
	})
}

// Recompute godoc
// @Summary Recompute a student's running balances
// @Description Re-derives every cached balance chronologically; call after backdated inserts
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Success 200 {object} dto.RecomputeResponse
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger/recompute [post]
func (h *LedgerHandler) Recompute(c *gin.Context) {
	studentID := c.Param("studentID")

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity missing"})
		return
	}

	updated, err := h.ledgerService.RecomputeChronological(c.Request.Context(), studentID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	balance, err := h.ledgerService.CurrentBalance(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.RecomputeResponse{
		StudentID:      studentID,
		UpdatedEntries: updated,
		CurrentBalance: balance,
	})
}

// ReverseReference godoc
// @Summary Reverse the ledger effect of a cancelled payment
// @Description Flags all entries of the referenced record as reversed and recomputes balances; unknown references are a no-op
// @Tags ledger
// @Accept  json
// @Produce  json
// @Param   reversal body dto.ReverseReferenceRequest true "Reference to reverse"
// @Success 200 {object} dto.ReversalResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /reversals [post]
func (h *LedgerHandler) ReverseReference(c *gin.Context) {
	var req dto.ReverseReferenceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	userID, ok := middleware.GetUserIDFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "caller identity missing"})
		return
	}

	reversed, err := h.ledgerService.ReversePayment(c.Request.Context(), req.ReferenceType, req.ReferenceID, userID)
	if err != nil {
		respondError(c, err)
		return
	}

	if reversed == 0 {
		middleware.GetLoggerFromContext(c).Info("Reversal request matched no active entries",
			slog.String("reference_type", string(req.ReferenceType)), slog.Int64("reference_id", req.ReferenceID))
	}

	c.JSON(http.StatusOK, dto.ReversalResponse{ReversedCount: reversed})
}

// GetEntriesByReference godoc
// @Summary Get all ledger entries of one originating record
// @Description Audit view of a payment, charge or adjustment; reversed entries are included
// @Tags ledger
// @Produce  json
// @Param   referenceType path string true "Reference type"
// @Param   referenceID path int true "Reference ID"
// @Success 200 {object} dto.LedgerStatementResponse
// @Failure 400 {object} map[string]string
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /references/{referenceType}/{referenceID}/entries [get]
func (h *LedgerHandler) GetEntriesByReference(c *gin.Context) {
	refType := c.Param("referenceType")
	if !domain.ValidReferenceType(refType) {
		c.JSON(http.StatusBadRequest, gin.H{"error": "unknown reference type: " + refType})
		return
	}

	refID, err := strconv.ParseInt(c.Param("referenceID"), 10, 64)
	if err != nil || refID <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "reference id must be a positive integer"})
		return
	}

	entries, err := h.ledgerService.GetEntriesByReference(c.Request.Context(), domain.ReferenceType(refType), refID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, dto.LedgerStatementResponse{Entries: dto.ToLedgerEntryResponses(entries)})
}

// PurgeLedger godoc
// @Summary Delete a student's full ledger
// @Description Used only by the student-deletion workflow
// @Tags ledger
// @Produce  json
// @Param   studentID path string true "Student ID"
// @Success 200 {object} map[string]int64
// @Failure 500 {object} map[string]string
// @Security BearerAuth
// @Router /students/{studentID}/ledger [delete]
func (h *LedgerHandler) PurgeLedger(c *gin.Context) {
	studentID := c.Param("studentID")

	deleted, err := h.ledgerService.PurgeStudentLedger(c.Request.Context(), studentID)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"deletedEntries": deleted})
}

func registerLedgerRoutes(group *gin.RouterGroup, ledgerSvc portssvc.LedgerSvcFacade) {
	h := NewLedgerHandler(ledgerSvc)

	students := group.Group("/students/:studentID")
	{
		students.POST("/ledger", h.AppendEntry)
		students.POST("/ledger/batch", h.AppendEntryBatch)
		students.GET("/ledger", h.GetStatement)
		students.GET("/ledger/last", h.GetLastEntry)
		students.POST("/ledger/recompute", h.Recompute)
		students.DELETE("/ledger", h.PurgeLedger)
		students.GET("/balance", h.GetBalance)
		students.GET("/sessions/:sessionID/credits", h.GetSessionCredits)
	}

	group.POST("/reversals", h.ReverseReference)
	group.GET("/references/:referenceType/:referenceID/entries", h.GetEntriesByReference)
}
