package handlers

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klauspost/compress/gzip"

	"majifix/internal/core/apperror"
	"majifix/internal/core/id"
	"majifix/internal/core/locale"
	"majifix/internal/domain/reference"
	"majifix/internal/domain/service"
	"majifix/internal/infrastructure/http/v1/dto"
	"majifix/pkg/logger"
)

// ServiceHandler serves the service resource.
type ServiceHandler struct {
	*BaseHandler
	manager *service.Manager
	locales locale.Config
}

// NewServiceHandler creates the handler.
func NewServiceHandler(manager *service.Manager, locales locale.Config) *ServiceHandler {
	if locales.Default == "" {
		locales = locale.DefaultConfig()
	}
	return &ServiceHandler{
		BaseHandler: NewBaseHandler(),
		manager:     manager,
		locales:     locales,
	}
}

// List handles GET /services.
func (h *ServiceHandler) List(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	f, err := req.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	res, err := h.manager.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(
		dto.FromServices(res.Items),
		res.Total,
		res.Limit,
		res.Skip,
		dto.LastModifiedOf(res.Items),
	))
}

// ListByJurisdiction handles GET /jurisdictions/:jurisdiction/services.
func (h *ServiceHandler) ListByJurisdiction(c *gin.Context) {
	jID, ok := h.ParseID(c, "jurisdiction")
	if !ok {
		return
	}

	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	f, err := req.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}
	f.Jurisdiction = &jID

	res, err := h.manager.List(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.NewListResponse(
		dto.FromServices(res.Items),
		res.Total,
		res.Limit,
		res.Skip,
		dto.LastModifiedOf(res.Items),
	))
}

// Get handles GET /services/:id.
func (h *ServiceHandler) Get(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.manager.Get(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromService(s))
}

// Create handles POST /services.
func (h *ServiceHandler) Create(c *gin.Context) {
	var req dto.ServiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.manager.Create(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.Created(c, dto.FromService(s))
}

// Update handles PUT and PATCH /services/:id. Both merge the supplied fields
// into the existing record.
func (h *ServiceHandler) Update(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	var req dto.ServiceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	s, err := h.manager.Get(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(s); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.manager.Update(c.Request.Context(), s); err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromService(s))
}

// Delete handles DELETE /services/:id, answering with the deleted record.
func (h *ServiceHandler) Delete(c *gin.Context) {
	serviceID, ok := h.ParseID(c, "id")
	if !ok {
		return
	}

	s, err := h.manager.Delete(c.Request.Context(), serviceID)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, dto.FromService(s))
}

// Schema handles GET /services/schema.
func (h *ServiceHandler) Schema(c *gin.Context) {
	h.OK(c, service.JSONSchema())
}

// Open311 handles GET /open311/services: the externally reportable services
// in their flattened Open311 form.
func (h *ServiceHandler) Open311(c *gin.Context) {
	var jurisdiction *id.ID
	if raw := c.Query("jurisdiction_id"); raw != "" {
		jID, err := id.Parse(raw)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid jurisdiction_id").
				WithDetail("jurisdiction_id", raw))
			return
		}
		jurisdiction = &jID
	}

	services, err := h.manager.Open311Services(c.Request.Context(), jurisdiction)
	if err != nil {
		h.Error(c, err)
		return
	}
	h.OK(c, services)
}

var exportHeader = []string{
	"code", "name", "description", "group", "jurisdiction", "priority",
	"color", "ttr", "external", "account", "default", "updatedAt",
}

// Export handles GET /services/export: all matching services as CSV,
// gzip-compressed when the client accepts it.
func (h *ServiceHandler) Export(c *gin.Context) {
	var req dto.ListRequest
	if !h.BindQuery(c, &req) {
		return
	}

	f, err := req.ToListFilter()
	if err != nil {
		h.Error(c, err)
		return
	}

	services, err := h.manager.ListAll(c.Request.Context(), f)
	if err != nil {
		h.Error(c, err)
		return
	}

	filename := fmt.Sprintf("services_exports_%d.csv", time.Now().UnixMilli())
	c.Header("Content-Type", "text/csv; charset=utf-8")
	c.Header("Content-Disposition", `attachment; filename="`+filename+`"`)

	var out io.Writer = c.Writer
	if strings.Contains(c.GetHeader("Accept-Encoding"), "gzip") {
		c.Header("Content-Encoding", "gzip")
		gz := gzip.NewWriter(c.Writer)
		defer gz.Close()
		out = gz
	}
	c.Status(http.StatusOK)

	if err := h.writeCSV(out, services); err != nil {
		// Headers are out; all that is left is to log the broken stream.
		logger.Error(c.Request.Context(), "csv export aborted", "error", err)
	}
}

func (h *ServiceHandler) writeCSV(out io.Writer, services []*service.Service) error {
	w := csv.NewWriter(out)
	if err := w.Write(exportHeader); err != nil {
		return err
	}
	for _, s := range services {
		if err := w.Write(h.exportRow(s)); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func (h *ServiceHandler) exportRow(s *service.Service) []string {
	refName := func(p *reference.Projection) string {
		if p == nil {
			return ""
		}
		return p.Name.Get(h.locales.Default)
	}

	return []string{
		s.Code,
		s.Name.Get(h.locales.Default),
		s.Description.Get(h.locales.Default),
		refName(s.Group),
		refName(s.Jurisdiction),
		refName(s.Priority),
		s.Color,
		strconv.FormatFloat(s.Sla.TTR, 'f', -1, 64),
		strconv.FormatBool(s.Flags.External),
		strconv.FormatBool(s.Flags.Account),
		strconv.FormatBool(s.Default),
		s.UpdatedAt.UTC().Format(time.RFC3339),
	}
}
