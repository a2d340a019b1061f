package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gogotex/employees/internal/employee"
	"github.com/gogotex/employees/internal/employee/query"
	"github.com/gogotex/employees/internal/employee/service"
	"github.com/gogotex/employees/internal/export"
	"github.com/gogotex/employees/pkg/apperr"
)

// Exporter is implemented by *export.Exporter.
type Exporter interface {
	Export(ctx context.Context, r query.Request, f export.Format) (*export.Result, error)
}

type Handler struct {
	svc service.Service
	exp Exporter
}

// NewHandler wires the employee routes. exp may be nil when object storage
// is not configured; the export route then answers 503.
func NewHandler(svc service.Service, exp Exporter) *Handler {
	return &Handler{svc: svc, exp: exp}
}

type bulkCreateRequest struct {
	Employees []employee.NewEmployee `json:"employees" binding:"required,dive"`
}

type bulkUpdateRequest struct {
	Employees []employee.Patch `json:"employees" binding:"required,dive"`
}

type deleteRequest struct {
	IDs []string `json:"ids" binding:"required"`
}

// Register mounts the routes under rg (typically API_PREFIX).
func (h *Handler) Register(rg *gin.RouterGroup) {
	g := rg.Group("/employees")
	g.POST("/create", h.createOne)
	g.POST("/create-bulk", h.createMany)
	g.PUT("/update-by-id", h.updateOne)
	g.PUT("/update-bulk", h.updateMany)
	g.DELETE("/delete", h.delete)
	g.GET("/get-by-id/:id", h.findByID)
	g.GET("/get-all", h.findAll)
	g.GET("/department/:department", h.findByDepartment)
	g.GET("/position/:position", h.findByPosition)
	g.GET("/search/advanced", h.search)
	g.GET("/export", h.export)
}

func (h *Handler) createOne(c *gin.Context) {
	var req employee.NewEmployee
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalidBody(err))
		return
	}
	res, err := h.svc.CreateOne(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "employee created", res)
}

func (h *Handler) createMany(c *gin.Context) {
	var req bulkCreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalidBody(err))
		return
	}
	res, err := h.svc.CreateMany(c.Request.Context(), req.Employees)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusCreated
	if res.InsertedCount < len(req.Employees) {
		status = http.StatusMultiStatus
	}
	ok(c, status, fmt.Sprintf("%d of %d employees created", res.InsertedCount, len(req.Employees)), res)
}

func (h *Handler) updateOne(c *gin.Context) {
	var req employee.Patch
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalidBody(err))
		return
	}
	res, err := h.svc.UpdateOne(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "employee updated", res)
}

func (h *Handler) updateMany(c *gin.Context) {
	var req bulkUpdateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalidBody(err))
		return
	}
	res, err := h.svc.UpdateMany(c.Request.Context(), req.Employees)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if len(res.Failures) > 0 {
		status = http.StatusMultiStatus
	}
	ok(c, status, fmt.Sprintf("%d employees updated", res.ModifiedCount), res)
}

func (h *Handler) delete(c *gin.Context) {
	var req deleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, invalidBody(err))
		return
	}
	res, err := h.svc.Delete(c.Request.Context(), req.IDs)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("%d employee(s) logically deleted", res.DeletedCount), res)
}

func (h *Handler) findByID(c *gin.Context) {
	e, err := h.svc.FindByID(c.Request.Context(), c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", e)
}

func (h *Handler) findAll(c *gin.Context) {
	h.listing(c, func(ctx context.Context, r query.Request) (*employee.Page, error) {
		return h.svc.FindAll(ctx, r)
	})
}

func (h *Handler) findByDepartment(c *gin.Context) {
	dept := c.Param("department")
	h.listing(c, func(ctx context.Context, r query.Request) (*employee.Page, error) {
		return h.svc.FindByDepartment(ctx, dept, r)
	})
}

func (h *Handler) findByPosition(c *gin.Context) {
	pos := c.Param("position")
	h.listing(c, func(ctx context.Context, r query.Request) (*employee.Page, error) {
		return h.svc.FindByPosition(ctx, pos, r)
	})
}

func (h *Handler) search(c *gin.Context) {
	h.listing(c, func(ctx context.Context, r query.Request) (*employee.Page, error) {
		return h.svc.Search(ctx, r)
	})
}

func (h *Handler) listing(c *gin.Context, run func(context.Context, query.Request) (*employee.Page, error)) {
	var r query.Request
	if err := c.ShouldBindQuery(&r); err != nil {
		fail(c, apperr.Wrap(err, apperr.ErrInvalidArgument, err.Error()))
		return
	}
	page, err := run(c.Request.Context(), r)
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"success":    true,
		"data":       page.Data,
		"pagination": page.Pagination,
	})
}

func (h *Handler) export(c *gin.Context) {
	if h.exp == nil {
		fail(c, apperr.Newf(apperr.ErrStorageUnavailable, "export storage is not configured"))
		return
	}
	format, err := export.ParseFormat(c.Query("format"))
	if err != nil {
		fail(c, err)
		return
	}
	var r query.Request
	if err := c.ShouldBindQuery(&r); err != nil {
		fail(c, apperr.Wrap(err, apperr.ErrInvalidArgument, err.Error()))
		return
	}
	res, err := h.exp.Export(c.Request.Context(), r, format)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, fmt.Sprintf("%d employees exported", res.Rows), res)
}

func ok(c *gin.Context, status int, message string, data any) {
	body := gin.H{"success": true, "data": data}
	if message != "" {
		body["message"] = message
	}
	c.JSON(status, body)
}

func fail(c *gin.Context, err error) {
	c.JSON(apperr.Status(err), gin.H{
		"success": false,
		"message": apperr.Message(err),
		"error":   apperr.Payload(err),
	})
}

func invalidBody(err error) error {
	return apperr.Wrap(err, apperr.ErrInvalidArgument, "invalid request body: "+err.Error())
}
