package routes

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"catalog-service/controllers"
	"catalog-service/importer"
	"catalog-service/services"

	"github.com/gin-gonic/gin"
)

func newTestEngine(opts Options) (*gin.Engine, *importer.Metrics) {
	gin.SetMode(gin.TestMode)
	metrics := importer.NewMetrics()
	im := importer.New(importer.Deps{Metrics: metrics})
	svc := services.NewImportService(services.ImportServiceDeps{Runner: im})
	handler := controllers.NewImportHandler(svc, controllers.NewRequestValidator())

	r := gin.New()
	if opts.Registry == nil {
		opts.Registry = metrics.Registry
	}
	RegisterRoutes(r, handler, opts)
	return r, metrics
}

func TestRegisterRoutes_HealthAndMetrics(t *testing.T) {
	r, metrics := newTestEngine(Options{})
	metrics.IncJob("completed")

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/health", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}

	rec = httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), "catalog_import_jobs_total") {
		t.Fatalf("expected import metrics in output")
	}
}

func TestRegisterRoutes_ProgressIdle(t *testing.T) {
	r, _ := newTestEngine(Options{})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/imports/progress", nil))
	if rec.Code != http.StatusOK {
		t.Fatalf("expected status %d, got %d", http.StatusOK, rec.Code)
	}
	if !strings.Contains(rec.Body.String(), `"status":"idle"`) {
		t.Fatalf("unexpected progress body %s", rec.Body.String())
	}
}

func TestRegisterRoutes_UploadRateLimit(t *testing.T) {
	r, _ := newTestEngine(Options{UploadsPerMinute: 1, UploadBurst: 1})

	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		req := httptest.NewRequest(http.MethodPost, "/imports", nil)
		req.RemoteAddr = "10.0.0.1:1234"
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		codes = append(codes, rec.Code)
	}
	if codes[1] != http.StatusTooManyRequests {
		t.Fatalf("expected second upload to be rate limited, got %v", codes)
	}
}
