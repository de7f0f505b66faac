package middleware

import (
	"fmt"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/annel0/hexvoxel/internal/logging"
)

// TraceIDKey - ключ gin.Context с trace-ID запроса
const TraceIDKey = "trace_id"

// TraceHeader - заголовок ответа с trace-ID, по нему рендер сопоставляет свои логи
const TraceHeader = "X-Trace-Id"

// RequestLogger выдаёт каждому запросу trace-ID и пишет строку на вход и выход.
type RequestLogger struct {
	logger *logging.Logger
}

// NewRequestLogger создаёт middleware; nil - глобальный логгер
func NewRequestLogger(logger *logging.Logger) *RequestLogger {
	if logger == nil {
		logger = logging.Default()
	}
	return &RequestLogger{logger: logger}
}

// Handler возвращает middleware для router.Use()
func (rl *RequestLogger) Handler() gin.HandlerFunc {
	return func(c *gin.Context) {
		traceID := requestTraceID(c)
		c.Set(TraceIDKey, traceID)
		c.Header(TraceHeader, traceID)

		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}
		subject := route
		if id := c.Param("id"); id != "" {
			subject = fmt.Sprintf("%s [landmass=%s]", route, id)
		}

		rl.logger.Debug("[HTTP] ▶ %s %s ip=%s trace=%s", c.Request.Method, subject, c.ClientIP(), traceID)

		c.Next()

		status := c.Writer.Status()
		latency := time.Since(start)
		if status >= 500 {
			rl.logger.Warn("[HTTP] ◀ %s %s %d %s trace=%s errors=%s", c.Request.Method, subject, status, latency, traceID, c.Errors.String())
			return
		}
		rl.logger.Info("[HTTP] ◀ %s %s %d %s trace=%s", c.Request.Method, subject, status, latency, traceID)
	}
}

// requestTraceID берёт trace-ID из span'а otelgin, иначе генерирует uuid
func requestTraceID(c *gin.Context) string {
	if sc := trace.SpanContextFromContext(c.Request.Context()); sc.IsValid() {
		return sc.TraceID().String()
	}
	return uuid.NewString()
}
