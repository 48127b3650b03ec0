package importjob

import (
	"context"
	"io"
	"net/http"
	"strconv"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	appctx "github.com/Ramsey-B/clover/pkg/context"
	"github.com/Ramsey-B/clover/pkg/importer"
	"github.com/Ramsey-B/clover/pkg/models"
	"github.com/Ramsey-B/clover/pkg/utils"
)

// ImportService is the import pipeline surface the handler exposes
type ImportService interface {
	Upload(ctx context.Context, tenantID, filename string, file io.Reader) (*models.ImportPreview, error)
	Execute(ctx context.Context, tenantID, jobID string, mappings []models.ColumnMapping, strategy models.DuplicateStrategy) (*models.ImportResult, error)
	GetJob(ctx context.Context, tenantID, jobID string) (*models.ImportJob, error)
	History(ctx context.Context, tenantID string, page, pageSize int) (*models.ImportJobListResponse, error)
}

// Handler handles import API requests
type Handler struct {
	service ImportService
	logger  ectologger.Logger
}

// NewHandler creates a new import handler
func NewHandler(service ImportService, logger ectologger.Logger) *Handler {
	return &Handler{
		service: service,
		logger:  logger,
	}
}

// RegisterRoutes registers the import routes
func (h *Handler) RegisterRoutes(g *echo.Group) {
	imports := g.Group("/import")
	imports.POST("/upload-preview", h.UploadPreview)
	imports.POST("/execute/:jobId", h.Execute)
	imports.GET("/job/:jobId", h.GetJob)
	imports.GET("/history", h.History)
	imports.GET("/template/:format", h.Template)
}

// UploadPreview handles the multipart file upload and returns the parsed
// preview
func (h *Handler) UploadPreview(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := tenantID(c)
	if err != nil {
		return err
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "a file upload is required")
	}

	src, err := fh.Open()
	if err != nil {
		return httperror.NewHTTPError(http.StatusBadRequest, "could not read uploaded file")
	}
	defer src.Close()

	preview, err := h.service.Upload(ctx, tenantID, fh.Filename, src)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, preview)
}

// ExecuteRequest is the request body for executing a previewed job
type ExecuteRequest struct {
	Mappings          []models.ColumnMapping   `json:"mappings" validate:"required,min=1"`
	DuplicateStrategy models.DuplicateStrategy `json:"duplicate_strategy" validate:"required"`
}

// Execute runs a previewed job with the operator's mapping and strategy
func (h *Handler) Execute(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := tenantID(c)
	if err != nil {
		return err
	}

	jobID := c.Param("jobId")
	if jobID == "" {
		return httperror.NewHTTPError(http.StatusBadRequest, "missing jobId")
	}

	req, err := utils.BindRequest[ExecuteRequest](c)
	if err != nil {
		return err
	}

	result, err := h.service.Execute(ctx, tenantID, jobID, req.Mappings, req.DuplicateStrategy)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, result)
}

// GetJob returns one job's status and metadata
func (h *Handler) GetJob(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := tenantID(c)
	if err != nil {
		return err
	}

	job, err := h.service.GetJob(ctx, tenantID, c.Param("jobId"))
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, job)
}

// History lists past import jobs
func (h *Handler) History(c echo.Context) error {
	ctx := c.Request().Context()

	tenantID, err := tenantID(c)
	if err != nil {
		return err
	}

	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	history, err := h.service.History(ctx, tenantID, page, pageSize)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, history)
}

// Template serves the static import template in the requested format
func (h *Handler) Template(c echo.Context) error {
	switch c.Param("format") {
	case "csv":
		data, err := importer.RenderCSVTemplate()
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="import-template.csv"`)
		return c.Blob(http.StatusOK, "text/csv", data)
	case "xlsx":
		data, err := importer.RenderXLSXTemplate()
		if err != nil {
			return err
		}
		c.Response().Header().Set(echo.HeaderContentDisposition, `attachment; filename="import-template.xlsx"`)
		return c.Blob(http.StatusOK, "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet", data)
	default:
		return httperror.NewHTTPError(http.StatusBadRequest, "template format must be csv or xlsx")
	}
}

func tenantID(c echo.Context) (string, error) {
	id := appctx.GetTenantID(c.Request().Context())
	if id == "" {
		return "", httperror.NewHTTPError(http.StatusUnauthorized, "authentication required")
	}
	return id, nil
}
