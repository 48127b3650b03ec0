package importjob

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Ramsey-B/clover/pkg/middleware"
	"github.com/Ramsey-B/clover/pkg/models"
)

type stubService struct {
	preview *models.ImportPreview
	result  *models.ImportResult
	job     *models.ImportJob
	history *models.ImportJobListResponse
	err     error

	uploadFilename string
	uploadTenant   string
	executeJobID   string
	executeBody    []models.ColumnMapping
	strategy       models.DuplicateStrategy
}

func (s *stubService) Upload(_ context.Context, tenantID, filename string, _ io.Reader) (*models.ImportPreview, error) {
	s.uploadTenant = tenantID
	s.uploadFilename = filename
	return s.preview, s.err
}

func (s *stubService) Execute(_ context.Context, _ string, jobID string, mappings []models.ColumnMapping, strategy models.DuplicateStrategy) (*models.ImportResult, error) {
	s.executeJobID = jobID
	s.executeBody = mappings
	s.strategy = strategy
	return s.result, s.err
}

func (s *stubService) GetJob(_ context.Context, _, _ string) (*models.ImportJob, error) {
	return s.job, s.err
}

func (s *stubService) History(_ context.Context, _ string, _, _ int) (*models.ImportJobListResponse, error) {
	return s.history, s.err
}

func newTestServer(service ImportService) *echo.Echo {
	logger := ectologger.NewEctoLogger(func(_ ectologger.EctoLogMessage) {})
	e := echo.New()
	e.Use(middleware.Context())
	e.HTTPErrorHandler = middleware.Error(logger)
	NewHandler(service, logger).RegisterRoutes(e.Group("/api/v1"))
	return e
}

func multipartUpload(t *testing.T, filename, content string) (*bytes.Buffer, string) {
	t.Helper()
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	fw, err := w.CreateFormFile("file", filename)
	require.NoError(t, err)
	_, err = fw.Write([]byte(content))
	require.NoError(t, err)
	require.NoError(t, w.Close())
	return &body, w.FormDataContentType()
}

func TestUploadPreview_ReturnsPreview(t *testing.T) {
	service := &stubService{preview: &models.ImportPreview{JobID: "job-1", TotalRows: 2}}
	e := newTestServer(service)

	body, contentType := multipartUpload(t, "clients.csv", "Name\nJane\nJohn\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload-preview", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "t1", service.uploadTenant)
	assert.Equal(t, "clients.csv", service.uploadFilename)

	var preview models.ImportPreview
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &preview))
	assert.Equal(t, "job-1", preview.JobID)
	assert.Equal(t, 2, preview.TotalRows)
}

func TestUploadPreview_MissingFile(t *testing.T) {
	e := newTestServer(&stubService{})

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload-preview", &body)
	req.Header.Set(echo.HeaderContentType, w.FormDataContentType())
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUploadPreview_MissingTenant(t *testing.T) {
	e := newTestServer(&stubService{})

	body, contentType := multipartUpload(t, "clients.csv", "Name\nJane\n")
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/upload-preview", body)
	req.Header.Set(echo.HeaderContentType, contentType)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestExecute_BindsMappingsAndStrategy(t *testing.T) {
	service := &stubService{result: &models.ImportResult{SuccessCount: 1}}
	e := newTestServer(service)

	payload := `{
		"mappings": [{"source_column": "Name", "target_field": "name", "transform": "none"}],
		"duplicate_strategy": "update"
	}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/execute/job-1", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "job-1", service.executeJobID)
	require.Len(t, service.executeBody, 1)
	assert.Equal(t, models.TargetName, service.executeBody[0].TargetField)
	assert.Equal(t, models.StrategyUpdate, service.strategy)
}

func TestExecute_EmptyMappingsRejected(t *testing.T) {
	e := newTestServer(&stubService{})

	payload := `{"mappings": [], "duplicate_strategy": "update"}`
	req := httptest.NewRequest(http.MethodPost, "/api/v1/import/execute/job-1", strings.NewReader(payload))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestGetJob_ReturnsJob(t *testing.T) {
	service := &stubService{job: &models.ImportJob{ID: "job-1", Status: models.JobStatusCompleted}}
	e := newTestServer(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/job/job-1", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var job models.ImportJob
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &job))
	assert.Equal(t, models.JobStatusCompleted, job.Status)
}

func TestHistory_ReturnsEnvelope(t *testing.T) {
	service := &stubService{history: &models.ImportJobListResponse{TotalCount: 3, Page: 1, PageSize: 20}}
	e := newTestServer(service)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/history?page=1&page_size=20", nil)
	req.Header.Set("X-Tenant-ID", "t1")
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	var resp models.ImportJobListResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, 3, resp.TotalCount)
}

func TestTemplate_CSV(t *testing.T) {
	e := newTestServer(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/template/csv", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Header().Get(echo.HeaderContentDisposition), "import-template.csv")
	assert.Contains(t, rec.Body.String(), "Name")
}

func TestTemplate_UnknownFormat(t *testing.T) {
	e := newTestServer(&stubService{})

	req := httptest.NewRequest(http.MethodGet, "/api/v1/import/template/pdf", nil)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
