package routes

import (
	"net/http"

	"catalog-service/common/middleware"
	"catalog-service/controllers"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Options tune the routes that are not plain handlers.
type Options struct {
	// Registry is served on /metrics when set.
	Registry *prometheus.Registry
	// UploadsPerMinute limits POST /imports per client IP; 0 disables the limit.
	UploadsPerMinute int
	UploadBurst      int
}

// RegisterRoutes wires the import API, the health check and the metrics endpoint.
func RegisterRoutes(r *gin.Engine, importHandler *controllers.ImportHandler, opts Options) {
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "OK"})
	})
	if opts.Registry != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(opts.Registry, promhttp.HandlerOpts{})))
	}

	upload := []gin.HandlerFunc{}
	if opts.UploadsPerMinute > 0 {
		burst := opts.UploadBurst
		if burst <= 0 {
			burst = 1
		}
		upload = append(upload, middleware.RateLimit(opts.UploadsPerMinute, burst))
	}

	importRoutes := r.Group("/imports")
	{
		importRoutes.POST("", append(upload, importHandler.StartImport)...)
		importRoutes.GET("/progress", importHandler.GetProgress)
		importRoutes.POST("/cancel", importHandler.CancelImport)
		importRoutes.POST("/preview", importHandler.PreviewImport)
		importRoutes.GET("/template", importHandler.DownloadTemplate)
		importRoutes.GET("/jobs/:id", importHandler.GetJobStatus)
	}
}
