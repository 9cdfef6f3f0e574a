package server

import (
	"context"
	"net/http"

	"leavedesk/internal/booking"
	"leavedesk/internal/calendar"
	"leavedesk/internal/config"
	"leavedesk/internal/ledger"
	"leavedesk/internal/mailer"
	"leavedesk/internal/pipeline"
	"leavedesk/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"github.com/redis/go-redis/v9"
)

type Server struct {
	router *gin.Engine
	http   *http.Server
	db     *sqlx.DB
	config *config.Config
	mail   *mailer.Service
}

func New(db *sqlx.DB, cfg *config.Config, mailService *mailer.Service, cache *redis.Client) *Server {
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(corsMiddleware())
	router.Use(RequestLoggingMiddleware())
	router.Use(MetricsMiddleware())
	router.Use(RateLimitMiddleware(50, 100))

	ledgerRepo := ledger.NewRepository(db, cfg.DefaultAllowance)
	userRepo := user.NewRepository(db)
	bookingService := booking.NewService(ledgerRepo, userRepo)
	bookingHandler := booking.NewHandler(bookingService)

	holidaySource := calendar.NewGovUKSource(cfg.HolidayAPIURL, cfg.HolidayDivision, cache)
	pipelineService := pipeline.NewService(bookingService, holidaySource, mailService)
	pipelineHandler := pipeline.NewHandler(pipelineService)

	holidays := router.Group("/holidays")
	{
		holidays.POST("/book", bookingHandler.Book)
		holidays.GET("/:email", bookingHandler.BookedDays)
		holidays.GET("/:email/remaining", bookingHandler.RemainingAllowance)
		holidays.GET("/:email/name", bookingHandler.DisplayName)
		holidays.POST("/:email/reset", bookingHandler.ResetAllowance)
	}

	router.POST("/process", pipelineHandler.Process)

	router.GET("/health", Health)
	router.GET("/metrics", Metrics())
	router.GET("/test-email", TestEmail(mailService))

	return &Server{
		router: router,
		db:     db,
		config: cfg,
		mail:   mailService,
	}
}

func (s *Server) Start(port string) error {
	s.http = &http.Server{
		Addr:    ":" + port,
		Handler: s.router,
	}
	return s.http.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	if s.http == nil {
		return nil
	}
	return s.http.Shutdown(ctx)
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")
		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}
		c.Next()
	}
}
