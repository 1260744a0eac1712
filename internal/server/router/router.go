package router

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/mamadbah2/warehouse/internal/domain/models"
	"github.com/mamadbah2/warehouse/internal/server/handlers"
	"github.com/mamadbah2/warehouse/internal/server/views"
)

// New wires the Gin engine with required routes and middlewares.
func New(handler *handlers.InventoryHandler, logger *zap.Logger) (*gin.Engine, error) {
	gin.SetMode(gin.ReleaseMode)

	tmpl, err := views.Load()
	if err != nil {
		return nil, fmt.Errorf("load templates: %w", err)
	}

	r := gin.New()
	// Item names are path segments and may contain escaped slashes. Handlers
	// decode the item segment themselves.
	r.UseRawPath = true
	r.UnescapePathValues = false
	r.Use(gin.Recovery())
	r.Use(zapLoggerMiddleware(logger))
	r.SetHTMLTemplate(tmpl)

	r.GET("/", handler.Home)
	r.POST("/add", handler.Add)
	r.GET("/filter", handler.Filter)
	r.GET("/edit/:item", handler.EditForm)
	r.POST("/edit/:item", handler.Take)
	r.GET("/view_reports", handler.Reports)

	api := r.Group("/api")
	api.GET("/data", handler.Snapshot(models.TableStock))
	api.GET("/report", handler.Snapshot(models.TableReport))
	api.GET("/total_taken", handler.Snapshot(models.TableTotal))

	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	if logger != nil {
		logger.Info("router initialized")
	}

	return r, nil
}

func zapLoggerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	if logger == nil {
		logger = zap.NewNop()
	}

	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		logger.Info("request completed",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("duration", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}
