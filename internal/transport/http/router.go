package httptransport

import (
	"log/slog"
	"time"

	"github.com/gin-gonic/gin"
	sloggin "github.com/samber/slog-gin"

	"github.com/voicepay/scheduler/internal/executor"
	"github.com/voicepay/scheduler/internal/serviceauth"
	"github.com/voicepay/scheduler/internal/transport/http/handler"
	"github.com/voicepay/scheduler/internal/transport/http/middleware"
)

// NewRouter builds the client-facing control-plane API: wallet login,
// recipients, intent parsing, and transactions, all behind the bearer
// JWT minted by /auth/verify.
func NewRouter(
	authHandler *handler.AuthHandler,
	recipientHandler *handler.RecipientHandler,
	transactionHandler *handler.TransactionHandler,
	jwtKey []byte,
	logger *slog.Logger,
) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Security(), sloggin.New(logger), middleware.Metrics())

	r.POST("/auth/nonce", authHandler.IssueNonce)
	r.POST("/auth/verify", authHandler.Verify)

	authed := r.Group("/", middleware.Auth(jwtKey))

	authed.GET("/recipients", recipientHandler.List)
	authed.POST("/recipients", recipientHandler.Add)
	authed.PUT("/recipients", recipientHandler.Update)
	authed.DELETE("/recipients", recipientHandler.Delete)

	authed.POST("/intent/parse-intent", transactionHandler.ParseIntent)
	authed.POST("/transactions/setup-recurring", transactionHandler.SetupRecurring)
	authed.GET("/transactions", transactionHandler.List)
	authed.POST("/transactions/store", transactionHandler.Store)

	return r
}

// NewExecutorRouter builds the privileged Executor Bridge API (C4): a
// single HMAC-authenticated endpoint the Dispatcher calls to fire a due
// schedule on-chain. It is served on its own port, never exposed to
// end-user clients.
func NewExecutorRouter(bridge *executor.Bridge, hmacSecret string, clockSkew time.Duration, logger *slog.Logger) *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), middleware.RequestID(), middleware.Security(), sloggin.New(logger), middleware.Metrics())

	r.POST("/transactions/process-recurring",
		serviceauth.Middleware(hmacSecret, clockSkew),
		bridge.ProcessRecurring)

	return r
}
