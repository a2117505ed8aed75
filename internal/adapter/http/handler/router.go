package handler

import (
	"time"

	"payme-wallet/internal/adapter/http/middleware"
	"payme-wallet/internal/core/ports"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

// RouterDeps holds all dependencies needed to set up routes.
type RouterDeps struct {
	AuthSvc        ports.AuthService
	Engine         ports.TransactionEngine
	Ledger         ports.Ledger
	Instruments    ports.InstrumentRegistry
	Rates          ports.RateService
	TokenSvc       ports.TokenService
	ThrottleStore  ports.ThrottleStore // nil = throttling disabled
	OTPLimit       int64               // overrides the otp_request rule when > 0
	OTPWindow      time.Duration
	HealthCheckers []ports.HealthChecker
	Logger         zerolog.Logger
}

// SetupRouter initialises the Gin engine with all routes and middleware.
func SetupRouter(deps RouterDeps) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()

	// Global middleware
	r.Use(middleware.RequestID())
	r.Use(middleware.Recovery(deps.Logger))
	r.Use(middleware.RequestLogger(deps.Logger))
	r.Use(middleware.MaxBodySize(1 << 20)) // 1 MB request body limit

	// Health check (deep — verifies PostgreSQL + Redis)
	r.GET("/health", HealthCheck(deps.HealthCheckers...))

	rules := middleware.DefaultThrottleRules()
	if deps.OTPLimit > 0 && deps.OTPWindow > 0 {
		rules["otp_request"] = middleware.ThrottleRule{Limit: deps.OTPLimit, Window: deps.OTPWindow}
	}

	// Helper: return throttle middleware if a store is available, else noop.
	rl := func(group string) gin.HandlerFunc {
		if deps.ThrottleStore == nil {
			return func(c *gin.Context) { c.Next() }
		}
		rule, ok := rules[group]
		if !ok {
			return func(c *gin.Context) { c.Next() }
		}
		return middleware.Throttle(deps.ThrottleStore, group, rule, deps.Logger)
	}

	// API v1 routes
	v1 := r.Group("/api/v1")

	// --- Public routes (no auth) ---
	authHandler := NewAuthHandler(deps.AuthSvc)
	auth := v1.Group("/auth")
	{
		auth.POST("/register", rl("auth_register"), authHandler.Register)
		auth.POST("/login", rl("auth_login"), authHandler.Login)
	}

	// --- JWT-authenticated routes ---
	jwtAuth := middleware.JWTAuth(deps.TokenSvc, deps.Logger)
	walletHandler := NewWalletHandler(deps.Engine, deps.Ledger)
	cardHandler := NewCardHandler(deps.Instruments)
	rateHandler := NewRateHandler(deps.Rates)

	wallet := v1.Group("/wallet", jwtAuth)
	{
		wallet.GET("/balance", rl("read"), walletHandler.GetBalance)
		wallet.GET("/transactions", rl("read"), walletHandler.ListTransactions)
		wallet.POST("/deposit", rl("money"), walletHandler.Deposit)
		wallet.POST("/exchange", rl("money"), walletHandler.Exchange)
		wallet.POST("/transfer", rl("money"), walletHandler.Transfer)
		wallet.POST("/withdraw/request-otp", rl("otp_request"), walletHandler.RequestWithdrawOTP)
		wallet.POST("/withdraw/confirm", rl("money"), walletHandler.ConfirmWithdraw)
	}

	cards := v1.Group("/cards", jwtAuth)
	{
		cards.POST("", rl("money"), cardHandler.Register)
		cards.GET("", rl("read"), cardHandler.List)
		cards.DELETE("/:id", rl("money"), cardHandler.Delete)
	}

	rates := v1.Group("/rates", jwtAuth)
	{
		rates.GET("", rl("read"), rateHandler.GetTable)
	}

	return r
}
