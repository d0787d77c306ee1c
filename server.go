package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"bitbucket.org/mmdatafocus/garage_backend/config"
	"bitbucket.org/mmdatafocus/garage_backend/deletion"
	"bitbucket.org/mmdatafocus/garage_backend/middlewares"
	"bitbucket.org/mmdatafocus/garage_backend/models"
	"bitbucket.org/mmdatafocus/garage_backend/models/reports"
	"bitbucket.org/mmdatafocus/garage_backend/utils"
	"bitbucket.org/mmdatafocus/garage_backend/workflow"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"go.opentelemetry.io/otel"
)

const defaultPort = "8080"

var tracer = otel.Tracer("garage-backend")

func splitAndTrim(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// writeBindError renders binding failures; validator errors come back as
// a field->tag map so clients can highlight the offending inputs.
func writeBindError(c *gin.Context, err error) {
	if fields := utils.ProcessValidationErrors(err); fields != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "validation failed", "fields": fields})
		return
	}
	c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}

type loginRequest struct {
	Email    string `json:"email" binding:"required"`
	Password string `json:"password" binding:"required"`
}

func loginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "email and password are required"})
			return
		}

		var user models.User
		err := config.GetDB().WithContext(c.Request.Context()).
			Where("email = ? AND status = ?", req.Email, models.StatusActive).
			First(&user).Error
		if err != nil || utils.ComparePassword(user.PasswordHash, req.Password) != nil {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "invalid credentials"})
			return
		}

		role := user.Role
		if user.IsAdmin {
			role = "admin"
		}
		token, err := utils.JwtGenerate(user.ID, user.Name, user.BusinessId, user.BranchId, role, user.CapabilityList())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": "could not issue token"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"token": token})
	}
}

type previewRequest struct {
	Entity    models.EntityType `json:"entity" binding:"required"`
	RecordId  int               `json:"record_id" binding:"required"`
	Operation models.Operation  `json:"operation"`
}

func previewHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "deletion.preview")
		defer span.End()

		var req previewRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		result, err := engine.Preview(ctx, req.Entity, req.RecordId, req.Operation)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

func confirmHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "deletion.confirm")
		defer span.End()

		var req deletion.ConfirmationRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		result, err := engine.Confirm(ctx, &req)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

type actionRequest struct {
	Entity    models.EntityType `json:"entity" binding:"required"`
	RecordId  int               `json:"record_id" binding:"required"`
	Operation models.Operation  `json:"operation" binding:"required"`
	Reason    string            `json:"reason"`
}

func dependencyActionHandler(engine *workflow.Engine) gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx, span := tracer.Start(c.Request.Context(), "deletion.action")
		defer span.End()

		var req actionRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			writeBindError(c, err)
			return
		}

		result, err := engine.ExecuteDependencyAction(ctx, req.Entity, req.Operation, req.RecordId, req.Reason)
		if err != nil {
			writeEngineError(c, err)
			return
		}
		c.JSON(http.StatusOK, result)
	}
}

// writeEngineError maps the deletion/reversal error taxonomy onto HTTP.
// Blocked operations carry their blocker list so the client can render the
// remediation steps.
func writeEngineError(c *gin.Context, err error) {
	var blocked *utils.BlockedError
	if errors.As(err, &blocked) {
		c.JSON(http.StatusConflict, gin.H{
			"error":        "operation blocked by dependent records",
			"blockers":     blocked.Blockers,
			"remediations": blocked.Remediations,
		})
		return
	}

	switch {
	case errors.Is(err, utils.ErrorRecordNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorUnsupportedEntity),
		errors.Is(err, utils.ErrorActionNotSupported),
		errors.Is(err, utils.ErrorInvalidSummary):
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorPreviewRequired),
		errors.Is(err, utils.ErrorConfirmationRequired),
		errors.Is(err, utils.ErrorReasonRequired):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorPreviewExpired),
		errors.Is(err, utils.ErrorScopeChanged),
		errors.Is(err, utils.ErrorPreviewMismatch):
		c.JSON(http.StatusGone, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorPermissionDenied):
		c.JSON(http.StatusForbidden, gin.H{"error": err.Error()})
	case errors.Is(err, utils.ErrorAlreadyReversed),
		errors.Is(err, utils.ErrorAlreadyDeleted),
		errors.Is(err, utils.ErrorDownstreamConsumption):
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
	default:
		config.LogError(config.GetLogger(), "server.go", "writeEngineError", c.FullPath(), nil, err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
	}
}

func registerReportRoutes(rg *gin.RouterGroup) {
	rg.GET("/trial-balance", func(c *gin.Context) {
		toDate := time.Now()
		if v := c.Query("to_date"); v != "" {
			if parsed, err := time.Parse("2006-01-02", v); err == nil {
				toDate = parsed
			}
		}
		var branchId *int
		if v := c.Query("branch_id"); v != "" {
			if n, err := strconv.Atoi(v); err == nil {
				branchId = &n
			}
		}
		rows, err := reports.GetTrialBalanceReport(c.Request.Context(), toDate, branchId)
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/deletion-activity", func(c *gin.Context) {
		from, to := reportPeriod(c)
		summary, err := reports.GetDeletionActivityReport(c.Request.Context(), from, to, queryInt(c, "limit"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, summary)
	})

	rg.GET("/reversal-history", func(c *gin.Context) {
		from, to := reportPeriod(c)
		rows, err := reports.GetReversalHistoryReport(c.Request.Context(), from, to, queryInt(c, "limit"))
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/stock-summary", func(c *gin.Context) {
		rows, err := reports.GetStockSummaryReport(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})

	rg.GET("/receivables", func(c *gin.Context) {
		rows, err := reports.GetReceivableSummaryReport(c.Request.Context())
		if err != nil {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, rows)
	})
}

func reportPeriod(c *gin.Context) (time.Time, time.Time) {
	to := time.Now()
	from := to.AddDate(0, -1, 0)
	if v := c.Query("from_date"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			from = parsed
		}
	}
	if v := c.Query("to_date"); v != "" {
		if parsed, err := time.Parse("2006-01-02", v); err == nil {
			to = parsed.Add(24*time.Hour - time.Second)
		}
	}
	return from, to
}

func queryInt(c *gin.Context, key string) int {
	if v := c.Query(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return 0
}

func main() {
	port := os.Getenv("API_PORT")
	if port == "" {
		// Cloud Run standard env var.
		port = os.Getenv("PORT")
	}
	if port == "" {
		port = defaultPort
	}

	logger := config.GetLogger()

	// Cloud Run sends SIGTERM on revision shutdown; handle it for graceful drain.
	sigCtx, stopSignals := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stopSignals()

	// Start the HTTP server ASAP so Cloud Run considers the revision healthy.
	// Until DB/Redis are ready, app endpoints return 503.
	r := gin.New()
	// Correlation IDs: generate once per request and attach to context.
	r.Use(func(c *gin.Context) {
		cid := c.GetHeader("x-correlation-id")
		if cid == "" {
			cid = uuid.NewString()
		}
		c.Request = c.Request.WithContext(utils.SetCorrelationIdInContext(c.Request.Context(), cid))
		c.Next()
	})
	r.Use(func(c *gin.Context) {
		// Always allow Cloud Run startup probe.
		if c.Request.URL.Path == "/healthz" {
			c.Status(http.StatusNoContent)
			c.Abort()
			return
		}
		// Gate business endpoints on DB readiness; Redis stays optional.
		if config.GetDB() == nil {
			c.AbortWithStatus(http.StatusServiceUnavailable)
			return
		}
		c.Next()
	})

	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	corsConfig := cors.DefaultConfig()
	// Production-safe CORS:
	// - In production, require explicit allowlist via CORS_ALLOWED_ORIGINS (comma-separated).
	// - In non-production, allow all (developer convenience).
	allowedOrigins := strings.TrimSpace(os.Getenv("CORS_ALLOWED_ORIGINS"))
	if strings.EqualFold(strings.TrimSpace(os.Getenv("GO_ENV")), "production") {
		if allowedOrigins == "" {
			corsConfig.AllowOrigins = []string{}
		} else {
			corsConfig.AllowOrigins = splitAndTrim(allowedOrigins)
		}
	} else {
		corsConfig.AllowAllOrigins = true
	}
	corsConfig.AddAllowMethods("GET", "POST", "PUT", "DELETE", "OPTIONS")
	corsConfig.AddAllowHeaders("token", "Origin", "Content-Type", "Authorization")
	corsConfig.AddExposeHeaders("Content-Length")
	corsConfig.AllowCredentials = true
	r.Use(cors.New(corsConfig))

	r.Use(middlewares.AuthMiddleware())
	r.Use(customErrorLogger(logger))
	r.Use(gin.Recovery())

	engine := workflow.NewEngine()

	r.POST("/login", loginHandler())

	api := r.Group("/api", middlewares.RequireAuth())
	{
		del := api.Group("/deletion")
		del.POST("/preview", previewHandler(engine))
		del.POST("/confirm", confirmHandler(engine))
		del.POST("/action", dependencyActionHandler(engine))

		registerReportRoutes(api.Group("/reports"))
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
	})

	// Start listening immediately (Cloud Run startup probe is TCP based).
	srv := &http.Server{
		Addr:    ":" + port,
		Handler: r,
	}
	serverErrCh := make(chan error, 1)
	go func() {
		serverErrCh <- srv.ListenAndServe()
	}()

	// Connect dependencies after the port is open.
	config.ConnectDatabaseWithRetry()
	config.ConnectRedisWithRetry()

	db := config.GetDB()
	sqlDB, _ := db.DB()
	defer func() {
		if sqlDB != nil {
			_ = sqlDB.Close()
		}
	}()
	// AutoMigrate can run DDL that blocks tables; allow running migrations as
	// a separate job instead.
	if !strings.EqualFold(strings.TrimSpace(os.Getenv("SKIP_MIGRATIONS")), "true") {
		models.MigrateTable()
	} else {
		logger.WithFields(logrus.Fields{"field": "migrations"}).Warn("SKIP_MIGRATIONS=true; skipping AutoMigrate on startup")
	}

	// Set the session isolation level to READ COMMITTED
	for attempt := 1; ; attempt++ {
		err := db.Exec("SET SESSION TRANSACTION ISOLATION LEVEL READ COMMITTED").Error
		if err == nil {
			break
		}
		sleep := time.Second * time.Duration(1<<minInt(attempt, 5))
		if sleep > 30*time.Second {
			sleep = 30 * time.Second
		}
		logger.WithFields(logrus.Fields{
			"field":   "database",
			"attempt": attempt,
		}).Warn("failed to set isolation level; retrying in " + sleep.String() + ": " + err.Error())
		time.Sleep(sleep)
	}

	logger.WithFields(logrus.Fields{
		"info": "Connection Established",
	}).Info("listening on http://localhost:", port)

	// Block until shutdown or server error.
	select {
	case <-sigCtx.Done():
		// graceful shutdown below
	case err := <-serverErrCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithFields(logrus.Fields{"field": "http"}).Error("server stopped unexpectedly: " + err.Error())
		}
	}

	// Drain HTTP requests.
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.WithFields(logrus.Fields{"field": "http"}).Error("graceful shutdown failed: " + err.Error())
	}

	// Close Redis (best-effort).
	if rdb := config.GetRedisDB(); rdb != nil {
		_ = rdb.Close()
	}
}

// customErrorLogger logs only requests that attached errors.
func customErrorLogger(logger *logrus.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()
		if len(c.Errors) > 0 {
			logger.Error(c.Errors.String())
		}
	}
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}
