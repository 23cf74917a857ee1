/*
 * Copyright © 2025 Suparena Software Inc., All rights reserved.
 */

package rest

import (
	stderrors "errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/suparena/entityservice"
	"github.com/suparena/entityservice/errors"
	"github.com/suparena/entityservice/storagemodels"
)

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}

// Handler exposes the generic actions of one service over HTTP.
type Handler struct {
	svc    *entityservice.Service
	logger *zap.Logger
}

func NewHandler(svc *entityservice.Service, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{svc: svc, logger: logger.With(zap.String("service", svc.FullName()))}
}

// Register mounts the service routes on rg under /<service name>.
//
//	GET    /posts/:id           get
//	GET    /posts?id=a&id=b     get many
//	GET    /posts?page=2        list
//	POST   /posts/find          find
//	POST   /posts               create
//	PUT    /posts/:id           update
//	DELETE /posts/:id           delete
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/" + h.svc.Name())
	g.GET("", h.Collection)
	g.GET("/:id", h.Get)
	g.POST("/find", h.Find)
	g.POST("", h.Create)
	g.PUT("/:id", h.Update)
	g.DELETE("/:id", h.Delete)
}

// Get handles GET /:id.
func (h *Handler) Get(c *gin.Context) {
	h.call(c, entityservice.ActionGet, entityservice.Params{"id": c.Param("id")}, http.StatusOK)
}

// Collection handles GET / as a multi-get when id query values are present, a paged list otherwise.
func (h *Handler) Collection(c *gin.Context) {
	if ids, ok := c.GetQueryArray("id"); ok {
		h.call(c, entityservice.ActionGet, entityservice.Params{"id": ids}, http.StatusOK)
		return
	}

	params := entityservice.Params{}
	if v, ok := c.GetQuery("page"); ok {
		params["page"] = v
	}
	if v, ok := c.GetQuery("pageSize"); ok {
		params["pageSize"] = v
	}
	if v := c.Query("orderBy"); v != "" {
		params["orderBy"] = strings.Split(v, ",")
	}
	h.call(c, entityservice.ActionList, params, http.StatusOK)
}

// Find handles POST /find with a body of {"conditions": [[field, op, value]], "limit": n, "orderBy": [...]}.
func (h *Handler) Find(c *gin.Context) {
	var params entityservice.Params
	if !h.bind(c, &params) {
		return
	}
	h.call(c, entityservice.ActionFind, params, http.StatusOK)
}

// Create handles POST / with a body of {"doc": {...}}.
func (h *Handler) Create(c *gin.Context) {
	var params entityservice.Params
	if !h.bind(c, &params) {
		return
	}
	h.call(c, entityservice.ActionCreate, params, http.StatusCreated)
}

// Update handles PUT /:id with a body of {"values": {...}}.
func (h *Handler) Update(c *gin.Context) {
	var params entityservice.Params
	if !h.bind(c, &params) {
		return
	}
	params["id"] = c.Param("id")
	h.call(c, entityservice.ActionUpdate, params, http.StatusOK)
}

// Delete handles DELETE /:id. Deleting an absent entity succeeds with a null body.
func (h *Handler) Delete(c *gin.Context) {
	result, ok := h.run(c, entityservice.ActionDelete, entityservice.Params{"id": c.Param("id")})
	if ok {
		c.JSON(http.StatusOK, result)
	}
}

func (h *Handler) bind(c *gin.Context, params *entityservice.Params) bool {
	if err := c.ShouldBindJSON(params); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid request payload", Details: err.Error()})
		return false
	}
	if *params == nil {
		*params = entityservice.Params{}
	}
	return true
}

// call runs action and answers 404 for an absent result.
func (h *Handler) call(c *gin.Context, action string, params entityservice.Params, status int) {
	result, ok := h.run(c, action, params)
	if !ok {
		return
	}
	if isNil(result) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errors.ErrNotFound.Error()})
		return
	}
	c.JSON(status, result)
}

// run executes action and writes the error response on failure.
func (h *Handler) run(c *gin.Context, action string, params entityservice.Params) (any, bool) {
	ctx := entityservice.WithRequest(c.Request.Context(), &entityservice.Request{
		Action: action,
		Params: params,
		Meta: map[string]any{
			"method":   c.Request.Method,
			"path":     c.FullPath(),
			"clientIP": c.ClientIP(),
		},
	})

	result, err := h.svc.Call(ctx, action, params)
	if err != nil {
		h.writeError(c, err)
		return nil, false
	}
	return result, true
}

func isNil(v any) bool {
	switch r := v.(type) {
	case nil:
		return true
	case storagemodels.Entity:
		return r == nil
	}
	return false
}

// writeError maps service errors to HTTP status codes.
func (h *Handler) writeError(c *gin.Context, err error) {
	_ = c.Error(err)

	switch {
	case errors.IsValidationError(err):
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Details: err.Error()})
	case errors.IsNotFound(err):
		c.JSON(http.StatusNotFound, ErrorResponse{Error: errors.ErrNotFound.Error(), Details: err.Error()})
	case errors.IsConfiguration(err), stderrors.Is(err, errors.ErrNotConnected):
		c.JSON(http.StatusServiceUnavailable, ErrorResponse{Error: "service unavailable", Details: err.Error()})
	default:
		h.logger.Error("action failed", zap.String("path", c.FullPath()), zap.Error(err))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "an unexpected internal server error occurred"})
	}
}
