// Package http provides the CRUD handlers of the gateway's collection routes.
package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"

	"github.com/gin-gonic/gin"

	accessDomain "github.com/allisson/restgate/internal/access/domain"
	accessHTTP "github.com/allisson/restgate/internal/access/http"
	"github.com/allisson/restgate/internal/httputil"
	identityHTTP "github.com/allisson/restgate/internal/identity/http"
	resourceUseCase "github.com/allisson/restgate/internal/resource/usecase"
	"github.com/allisson/restgate/internal/store"
)

// TotalCountHeader carries the number of matching records on paged listings.
const TotalCountHeader = "X-Total-Count"

// ResourceHandler handles the collection routes. Requests reach it only after
// AuthorizationMiddleware has allowed them.
type ResourceHandler struct {
	resourceUseCase resourceUseCase.ResourceUseCase
	logger          *slog.Logger
}

// NewResourceHandler creates a new resource handler with required dependencies.
func NewResourceHandler(useCase resourceUseCase.ResourceUseCase, logger *slog.Logger) *ResourceHandler {
	return &ResourceHandler{
		resourceUseCase: useCase,
		logger:          logger,
	}
}

// ListHandler lists a collection.
// GET /:collection - supports field filters, _sort/_order, _page/_limit and _start/_end.
// Listings granted only through ownership are restricted to the caller's records.
func (h *ResourceHandler) ListHandler(c *gin.Context) {
	query, err := httputil.ParseListQuery(c)
	if err != nil {
		httputil.HandleBadRequestGin(c, err, h.logger)
		return
	}

	opts := resourceUseCase.ListOptions{Query: query}
	if decision, ok := accessHTTP.GetDecision(c.Request.Context()); ok && decision.Scope == accessDomain.ScopeOwned {
		opts.OwnerField = decision.OwnerField
		if caller, ok := identityHTTP.GetCaller(c.Request.Context()); ok {
			opts.OwnerID = caller.ID
		}
	}

	result, err := h.resourceUseCase.List(c.Request.Context(), c.Param("collection"), opts)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}

	if query.Paginated() || query.Sliced() {
		c.Header(TotalCountHeader, strconv.Itoa(result.Total))
	}
	if query.Paginated() && !query.Sliced() {
		if link := paginationLinks(c.Request.URL, query, result.Total); link != "" {
			c.Header("Link", link)
		}
	}

	c.JSON(http.StatusOK, result.Records)
}

// GetHandler returns one record.
// GET /:collection/:id
func (h *ResourceHandler) GetHandler(c *gin.Context) {
	rec, err := h.resourceUseCase.Get(c.Request.Context(), c.Param("collection"), c.Param("id"))
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, rec)
}

// CreateHandler stores a new record. The id is generated unless the body has one.
// POST /:collection - Returns 201 Created.
func (h *ResourceHandler) CreateHandler(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	created, err := h.resourceUseCase.Create(c.Request.Context(), c.Param("collection"), rec)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusCreated, created)
}

// ReplaceHandler overwrites a record. The id cannot change.
// PUT /:collection/:id
func (h *ResourceHandler) ReplaceHandler(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	replaced, err := h.resourceUseCase.Replace(c.Request.Context(), c.Param("collection"), c.Param("id"), rec)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, replaced)
}

// PatchHandler merges top-level fields into a record. The id cannot change.
// PATCH /:collection/:id
func (h *ResourceHandler) PatchHandler(c *gin.Context) {
	rec, ok := h.bindRecord(c)
	if !ok {
		return
	}

	patched, err := h.resourceUseCase.Patch(c.Request.Context(), c.Param("collection"), c.Param("id"), rec)
	if err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, patched)
}

// DeleteHandler removes a record.
// DELETE /:collection/:id - Returns 200 OK with an empty object.
func (h *ResourceHandler) DeleteHandler(c *gin.Context) {
	if err := h.resourceUseCase.Delete(c.Request.Context(), c.Param("collection"), c.Param("id")); err != nil {
		httputil.HandleErrorGin(c, err, h.logger)
		return
	}
	c.JSON(http.StatusOK, gin.H{})
}

// bindRecord decodes a JSON object body. An empty body is an empty record.
func (h *ResourceHandler) bindRecord(c *gin.Context) (store.Record, bool) {
	var rec store.Record
	if err := json.NewDecoder(c.Request.Body).Decode(&rec); err != nil && !errors.Is(err, io.EOF) {
		httputil.HandleBadRequestGin(c, fmt.Errorf("request body must be a JSON object: %w", err), h.logger)
		return nil, false
	}
	if rec == nil {
		rec = store.Record{}
	}
	return rec, true
}

// paginationLinks builds an RFC 8288 Link header with first, prev, next and last pages.
func paginationLinks(u *url.URL, query httputil.ListQuery, total int) string {
	if query.Limit <= 0 {
		return ""
	}
	page := max(query.Page, 1)
	last := max((total+query.Limit-1)/query.Limit, 1)

	link := func(p int, rel string) string {
		values := u.Query()
		values.Set("_page", strconv.Itoa(p))
		values.Set("_limit", strconv.Itoa(query.Limit))
		target := url.URL{Path: u.Path, RawQuery: values.Encode()}
		return fmt.Sprintf("<%s>; rel=%q", target.String(), rel)
	}

	out := link(1, "first")
	if page > 1 {
		out += ", " + link(page-1, "prev")
	}
	if page < last {
		out += ", " + link(page+1, "next")
	}
	return out + ", " + link(last, "last")
}
