package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/turtacn/ARChemistry/internal/infrastructure/monitoring/prometheus"
)

// Metrics records request count, duration and in-flight gauge.  The path label
// is the matched route template so parameterised paths share a series;
// unmatched routes are reported as "unmatched".
func Metrics(m *prometheus.AppMetrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil {
			c.Next()
			return
		}
		method := c.Request.Method
		active := m.HTTPActiveRequests.WithLabelValues(method)
		active.Inc()
		start := time.Now()

		c.Next()

		active.Dec()
		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTPRequest(method, path, c.Writer.Status(), time.Since(start))
	}
}
