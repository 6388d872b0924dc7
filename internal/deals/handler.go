package deals

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"dealbrief-backend/internal/shared/server/middleware"
	"dealbrief-backend/internal/shared/server/respond"
	"dealbrief-backend/internal/shared/telemetry"
)

// Handler wires HTTP handlers to the deals service.
type Handler struct {
	Svc *Service
	// CreateMiddleware runs before POST /deals, e.g. a rate limiter.
	CreateMiddleware []gin.HandlerFunc
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service, createMiddleware ...gin.HandlerFunc) *Handler {
	return &Handler{Svc: svc, CreateMiddleware: createMiddleware}
}

// RegisterRoutes attaches deal routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	create := append(append([]gin.HandlerFunc{}, h.CreateMiddleware...), h.createDeal)
	rg.POST("/deals", create...)
	rg.GET("/deals", h.listDeals)
	rg.GET("/deals/:id", h.getDeal)
}

type createDealRequest struct {
	RawText string `json:"raw_text" binding:"required"`
}

func (h *Handler) createDeal(c *gin.Context) {
	var req createDealRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "raw_text is required", []map[string]string{
			{"field": "raw_text", "issue": "required"},
		})
		return
	}

	deal, err := h.Svc.CreateBrief(requestContext(c), req.RawText)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, inputMessage(req.RawText), []map[string]string{
				{"field": "raw_text", "issue": inputIssue(req.RawText)},
			})
		case errors.Is(err, ErrDuplicateInput):
			respond.Error(c, http.StatusConflict, ErrorCodeDuplicate, "a deal with this text already exists", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to create deal", nil)
		}
		return
	}

	c.Set("dealId", deal.ID)
	c.Set("statusTransition", "pending->"+string(deal.Status))
	respond.JSON(c, http.StatusCreated, deal)
}

func (h *Handler) getDeal(c *gin.Context) {
	id := strings.TrimSpace(c.Param("id"))
	deal, err := h.Svc.Get(requestContext(c), id)
	if err != nil {
		switch {
		case errors.Is(err, ErrNotFound):
			respond.Error(c, http.StatusNotFound, ErrorCodeNotFound, "deal not found", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to fetch deal", nil)
		}
		return
	}
	c.Set("dealId", deal.ID)
	respond.OK(c, deal)
}

func (h *Handler) listDeals(c *gin.Context) {
	filter := ListFilter{
		Status:   Status(strings.TrimSpace(c.Query("status"))),
		Company:  c.Query("company"),
		Sector:   c.Query("sector"),
		Stage:    c.Query("stage"),
		Category: strings.TrimSpace(c.Query("category")),
		Limit:    defaultListLimit,
	}
	if v := c.Query("limit"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed <= 0 {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "limit must be a positive integer", []map[string]string{
				{"field": "limit", "issue": "invalid"},
			})
			return
		}
		filter.Limit = parsed
	}
	if v := c.Query("offset"); v != "" {
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "offset must be a non-negative integer", []map[string]string{
				{"field": "offset", "issue": "invalid"},
			})
			return
		}
		filter.Offset = parsed
	}

	page, err := h.Svc.List(requestContext(c), filter)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, ErrorCodeValidation, "status must be one of pending, processed, failed", []map[string]string{
				{"field": "status", "issue": "invalid"},
			})
		default:
			respond.Error(c, http.StatusInternalServerError, ErrorCodeInternal, "failed to list deals", nil)
		}
		return
	}
	respond.OK(c, page)
}

func requestContext(c *gin.Context) context.Context {
	return telemetry.WithRequestID(c.Request.Context(), middleware.RequestIDFromContext(c))
}

func inputIssue(rawText string) string {
	if strings.TrimSpace(rawText) == "" {
		return "blank"
	}
	return "too_long"
}

func inputMessage(rawText string) string {
	if strings.TrimSpace(rawText) == "" {
		return "raw_text must not be blank"
	}
	return "raw_text must be at most " + strconv.Itoa(MaxRawTextLength) + " characters"
}
