package handler

import (
	"fmt"
	"net/http"

	"marketplace_search_backend/internal/marketplace/transport"
	"marketplace_search_backend/internal/marketplace/validation"
	"marketplace_search_backend/internal/scraper/service"
	"marketplace_search_backend/platform/apperr"
	"marketplace_search_backend/platform/httpkit"
	"marketplace_search_backend/platform/validator"

	"github.com/gin-gonic/gin"
)

const msgInvalidRequest = "invalid request body"

// Handler handles HTTP requests for the scraper service.
type Handler struct {
	svc       *service.Service
	val       *validator.Validator
	searchVal *validation.Validator
}

// New creates a new scraper handler.
func New(svc *service.Service, val *validator.Validator) *Handler {
	return &Handler{svc: svc, val: val, searchVal: validation.New(val)}
}

// RegisterRoutes registers scraper routes on the /api group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/search/all", h.SearchAll)
	rg.POST("/search/:source", h.Search)
	rg.POST("/item/details", h.ItemDetails)
	rg.GET("/health", h.Health)
	rg.GET("/platforms", h.Platforms)
}

func (h *Handler) Search(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}

	items, err := h.svc.Search(c.Request.Context(), c.Param("source"), req)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OKMessage(c, items, fmt.Sprintf("found %d items", len(items)))
}

func (h *Handler) SearchAll(c *gin.Context) {
	req, ok := h.bindSearch(c)
	if !ok {
		return
	}

	httpkit.OK(c, h.svc.SearchAll(c.Request.Context(), req))
}

func (h *Handler) ItemDetails(c *gin.Context) {
	var req transport.ItemDetailsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.KindBadRequest.String(), msgInvalidRequest, nil)
		return
	}
	if err := h.val.Struct(req); err != nil {
		httpkit.HandleError(c, validator.AsAppError(err))
		return
	}

	item, err := h.svc.ItemDetails(c.Request.Context(), req.URL)
	if httpkit.HandleError(c, err) {
		return
	}

	httpkit.OK(c, item)
}

func (h *Handler) Health(c *gin.Context) {
	httpkit.OK(c, h.svc.Health())
}

func (h *Handler) Platforms(c *gin.Context) {
	httpkit.OK(c, h.svc.Platforms())
}

func (h *Handler) bindSearch(c *gin.Context) (transport.SearchRequest, bool) {
	var raw transport.SearchRequest
	if err := c.ShouldBindJSON(&raw); err != nil {
		httpkit.Error(c, http.StatusBadRequest, apperr.KindBadRequest.String(), msgInvalidRequest, nil)
		return transport.SearchRequest{}, false
	}

	req, err := h.searchVal.Validate(raw)
	if httpkit.HandleError(c, err) {
		return transport.SearchRequest{}, false
	}
	return req, true
}
