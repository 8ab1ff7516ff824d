package http

import (
	"time"

	"github.com/crosslove/eventhub/internal/http/middlewares"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
)

const (
	defaultMaxBody = 1 << 20

	authRateLimit  = 20
	authRateWindow = time.Minute
)

// globalChain is the middleware every route goes through. The span starts first so
// request logs carry its trace id.
func globalChain(d Deps) []gin.HandlerFunc {
	chain := make([]gin.HandlerFunc, 0, 10)

	if d.TracingEnabled {
		chain = append(chain, otelgin.Middleware(d.ServiceName))
	}
	if d.Prom != nil {
		chain = append(chain, d.Prom.GinHandleMiddleware())
	}

	maxBody := d.MaxBodyBytes
	if maxBody <= 0 {
		maxBody = defaultMaxBody
	}

	return append(chain,
		middlewares.RequestID(),
		middlewares.RequestLogger(d.Logger),
		gin.Recovery(),
		middlewares.SecurityHeaders(),
		middlewares.CORSMiddleware(d.Config.CORSOrigins),
		middlewares.RequireJSON(),
		middlewares.MaxBodyBytes(maxBody),
	)
}

// authLimiter throttles signup and login per client address.
func authLimiter(d Deps) gin.HandlerFunc {
	limit := d.AuthRateLimit
	if limit <= 0 {
		limit = authRateLimit
	}
	return middlewares.NewRateLimiter(limit, authRateWindow).RateLimiterMiddleware(middlewares.KeyByIP)
}
