package middleware

import (
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/grigta/covid-tracker/pkg/logger"
)

const (
	RequestIDHeader = "X-Request-ID"
	// SessionIDHeader selects a dashboard session for clients without cookies.
	SessionIDHeader = "X-Session-ID"
)

// RequestLogger tags each request with an id and logs its outcome.
func RequestLogger(log logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()

		requestID := c.GetHeader(RequestIDHeader)
		if requestID == "" {
			requestID = uuid.NewString()
		}
		c.Set("request_id", requestID)
		c.Header(RequestIDHeader, requestID)

		c.Next()

		fields := []logger.Field{
			{Key: "request_id", Value: requestID},
			{Key: "method", Value: c.Request.Method},
			{Key: "path", Value: c.FullPath()},
			{Key: "status", Value: c.Writer.Status()},
			{Key: "duration", Value: time.Since(start).Seconds()},
		}

		switch {
		case len(c.Errors) > 0:
			log.Error("Request failed", append(fields, logger.Field{Key: "error", Value: c.Errors.String()})...)
		case c.Writer.Status() >= 500:
			log.Error("Request failed", fields...)
		default:
			log.Debug("Request completed", fields...)
		}
	}
}
