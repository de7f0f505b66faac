package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/annel0/hexvoxel/internal/app"
	"github.com/annel0/hexvoxel/internal/logging"
	"github.com/annel0/hexvoxel/internal/middleware"
)

// Version - версия API, отдаётся в /api/server
const Version = "v0.3.0"

// RestServer - REST API карты для рендера
type RestServer struct {
	router  *gin.Engine
	maps    *app.MapService
	port    string
	metrics *ServerMetrics
	logger  *logging.Logger
	server  *http.Server
}

// Config содержит конфигурацию для REST сервера
type Config struct {
	Port        string               // адрес для запуска сервера, например ":8088"
	Maps        *app.MapService      // сервис карты
	Logger      *logging.Logger      // логгер запросов; nil - глобальный
	Registry    *prometheus.Registry // регистр HTTP-метрик; nil - дефолтный
	ServiceName string               // имя сервиса для otelgin и метрик
}

// NewRestServer создает новый REST API сервер
func NewRestServer(config Config) *RestServer {
	if config.Port == "" {
		config.Port = ":8088"
	}
	if config.ServiceName == "" {
		config.ServiceName = "hexvoxel"
	}

	router := gin.New()        // без стандартного logger/recovery
	router.Use(gin.Recovery()) // добавим только recovery

	// === Observability middleware ===
	router.Use(otelgin.Middleware(config.ServiceName))

	loggerMw := middleware.NewRequestLogger(config.Logger)
	router.Use(loggerMw.Handler())

	promMw := middleware.NewPrometheusMiddleware(config.ServiceName, config.Registry)
	router.Use(promMw.Handler())
	promMw.RegisterMetricsEndpoint(router)

	logger := config.Logger
	if logger == nil {
		logger = logging.Default()
	}

	rs := &RestServer{
		router:  router,
		maps:    config.Maps,
		port:    config.Port,
		metrics: NewServerMetrics(),
		logger:  logger,
		server: &http.Server{
			Addr:              config.Port,
			Handler:           router,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	rs.setupRoutes()
	return rs
}

// setupRoutes настраивает маршруты REST API
func (rs *RestServer) setupRoutes() {
	// CORS: рендер открывается с другого origin
	rs.router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, PUT, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	})

	api := rs.router.Group("/api")
	{
		api.GET("/landmasses", rs.handleListLandmasses)
		api.GET("/landmasses/:id", rs.handleGetLandmass)
		api.PUT("/landmasses/:id/status", rs.handleSetStatus)
		api.GET("/landmasses/:id/mesh", rs.handleMesh)

		api.GET("/tiles", rs.handleTileAt)
		api.GET("/tiles/:tileID", rs.handleTileByID)

		api.GET("/server", rs.handleServerInfo)
	}

	rs.router.GET("/health", rs.handleHealth)
}

// GenericResponse представляет общий ответ API
type GenericResponse struct {
	Success bool        `json:"success"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func (rs *RestServer) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":     "ok",
		"time":       time.Now().Unix(),
		"landmasses": rs.maps.Map().Len(),
	})
}

// handleServerInfo возвращает информацию о процессе
func (rs *RestServer) handleServerInfo(c *gin.Context) {
	memoryMB, _ := rs.metrics.GetMemoryUsage()
	cpuPercent, _ := rs.metrics.GetCPUUsage()

	c.JSON(http.StatusOK, GenericResponse{
		Success: true,
		Message: "Информация о сервере",
		Data: map[string]interface{}{
			"version":     Version,
			"name":        "Hexvoxel Map Server",
			"status":      "running",
			"uptime":      rs.metrics.GetUptime(),
			"memory_mb":   fmt.Sprintf("%.1f", memoryMB),
			"cpu_percent": fmt.Sprintf("%.1f", cpuPercent),
			"memory":      rs.metrics.GetDetailedMemoryStats(),
			"voxel":       rs.maps.Params(),
			"tiles":       rs.maps.Map().TileCount(),
		},
	})
}

// Handler возвращает http.Handler с маршрутами (для тестов и встраивания)
func (rs *RestServer) Handler() http.Handler {
	return rs.router
}

// Start запускает REST сервер и блокируется до Stop
func (rs *RestServer) Start() error {
	rs.logger.Info("🌐 REST API слушает %s", rs.port)

	err := rs.server.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}
	return err
}

// Stop останавливает сервер, дожидаясь текущих запросов
func (rs *RestServer) Stop(ctx context.Context) error {
	return rs.server.Shutdown(ctx)
}
