package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/gatsishub/gatsishub-api/config"
	"github.com/gatsishub/gatsishub-api/controllers"
	"github.com/gatsishub/gatsishub-api/logger"
	"github.com/gatsishub/gatsishub-api/middleware"
	"github.com/gatsishub/gatsishub-api/models"
	"github.com/gatsishub/gatsishub-api/realtime"
	"github.com/gatsishub/gatsishub-api/services"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger.Initialize(cfg.GoEnv, cfg.LogLevel)
	defer logger.Sync()
	logger.Log.Info("Starting GatsisHub API server...", zap.String("env", cfg.GoEnv))

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Connect to database
	if err := config.ConnectDatabase(); err != nil {
		logger.Log.Fatal("Failed to connect to database", zap.Error(err))
	}

	// Auto-migrate database models
	db := config.GetDB()
	if err := config.AutoMigrate(db); err != nil {
		logger.Log.Fatal("Failed to migrate database", zap.Error(err))
	}
	logger.Log.Info("Database migration completed successfully")

	broker, closeBroker := connectBroker(cfg)
	defer closeBroker()
	hub := realtime.InitHub(broker)

	storage, err := services.InitStorage(ctx, cfg)
	if err != nil {
		logger.Log.Fatal("Failed to initialize file storage", zap.Error(err))
	}
	files := services.InitFileService(storage)

	if cfg.SNSTopicARN != "" {
		awsCfg, err := services.LoadAWSConfig(ctx, cfg)
		if err != nil {
			logger.Log.Fatal("Failed to load AWS configuration", zap.Error(err))
		}
		services.SetNotifier(services.NewSNSNotifier(services.NewSNSClient(awsCfg), cfg.SNSTopicARN))
		logger.Log.Info("Status notifications enabled", zap.String("topic", cfg.SNSTopicARN))
	}

	if mailer, err := services.NewResendEmailService(cfg.ResendAPIKey, cfg.EmailFrom, cfg.ContactEmailTo); err != nil {
		logger.Log.Warn("Contact form relay disabled", zap.Error(err))
	} else {
		services.SetEmailService(mailer)
	}

	services.InitOrderService(services.OrderDeps{
		DB:       db,
		Hub:      hub,
		Notifier: services.GetNotifier(),
		Invoices: services.NewInvoiceService(db, cfg.VATRate),
		Files:    files,
	})

	dashboard := services.InitOrderDashboard(db, hub)
	go func() {
		if err := dashboard.Run(ctx); err != nil {
			logger.Log.Error("Order dashboard stopped", zap.Error(err))
		}
	}()

	if err := middleware.RegisterValidators(); err != nil {
		logger.Log.Fatal("Failed to register validators", zap.Error(err))
	}

	router := setupRouter(cfg, middleware.EnsureValidToken(cfg))

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		logger.Log.Info("Server is running", zap.String("addr", "http://localhost:"+cfg.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logger.Log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Log.Error("Server forced to shutdown", zap.Error(err))
	}
}

// connectBroker picks Redis pub/sub when REDIS_URL is set and an in-process broker otherwise
func connectBroker(cfg *config.Config) (realtime.Broker, func()) {
	if cfg.RedisURL == "" {
		logger.Log.Info("REDIS_URL not set, realtime events stay in-process")
		broker := realtime.NewMemoryBroker()
		return broker, func() { _ = broker.Close() }
	}

	client, err := config.ConnectRedis(cfg.RedisURL)
	if err != nil {
		logger.Log.Fatal("Failed to connect to redis", zap.Error(err))
	}
	logger.Log.Info("Realtime events use redis pub/sub")
	return realtime.NewRedisBroker(client), func() { _ = client.Close() }
}

// setupRouter builds the HTTP API. auth validates bearer tokens; tests pass a stub.
func setupRouter(cfg *config.Config, auth gin.HandlerFunc) *gin.Engine {
	router := gin.New()
	router.Use(gin.Recovery(), logger.RequestLogger(), cors.New(corsConfig(cfg)))

	contactLimiter := middleware.NewRateLimiter(rate.Every(time.Minute/5), 5, 10*time.Minute)

	v1 := router.Group("/api/v1")
	{
		// Health check endpoint
		v1.GET("/health", healthCheck)

		// Database status endpoint
		v1.GET("/database/status", databaseStatus)

		v1.GET("/products", controllers.ListProducts)
		v1.GET("/products/:id", controllers.GetProduct)
		v1.GET("/materials", controllers.ListMaterials)
		v1.POST("/contact", middleware.RateLimit(contactLimiter), controllers.SubmitContact)

		if !cfg.UsesS3() {
			v1.GET("/uploads/:filename", controllers.GetUploadedFile)
		}
	}

	authed := v1.Group("", auth)
	authed.POST("/users", controllers.CreateUser)

	session := authed.Group("", middleware.LoadCurrentUser())
	adminOnly := middleware.RequireRole(models.RoleAdmin)
	customerOnly := middleware.RequireRole(models.RoleCustomer)

	users := session.Group("/users")
	{
		users.GET("/me", controllers.GetMyProfile)
		users.PUT("/me", controllers.UpdateMyProfile)
	}

	orders := session.Group("/orders")
	{
		orders.POST("", customerOnly, controllers.CreateOrder)
		orders.POST("/quote", customerOnly, controllers.QuoteOrder)
		orders.GET("/all", adminOnly, controllers.ListAllOrders)
		orders.GET("/user/:id", controllers.ListUserOrders)
		orders.GET("/user/:id/full", controllers.ListUserOrdersFull)
		orders.GET("/:id", controllers.GetOrder)
		orders.GET("/:id/actions", controllers.GetOrderActions)
		orders.GET("/:id/history", controllers.GetOrderHistory)
		orders.GET("/:id/invoice", controllers.GetInvoice)
		orders.GET("/:id/contract", controllers.GetContract)
		orders.POST("/:id/contract/sign", customerOnly, controllers.SignContract)
		orders.PATCH("/:id", adminOnly, controllers.UpdateOrder)
		orders.DELETE("/:id", controllers.CancelOrder)
		orders.POST("/:id/cancel", controllers.CancelOrder)
	}

	payments := session.Group("/payments")
	{
		payments.POST("/submit", customerOnly, controllers.SubmitPayment)
		payments.GET("", adminOnly, controllers.ListPayments)
		payments.GET("/order/:id", controllers.GetOrderPayment)
		payments.PATCH("/:id/verify", adminOnly, controllers.VerifyPayment)
		payments.DELETE("/:id", adminOnly, controllers.DeletePayment)
	}

	products := session.Group("/products", adminOnly)
	{
		products.POST("", controllers.CreateProduct)
		products.PATCH("/:id", controllers.UpdateProduct)
		products.DELETE("/:id", controllers.DeleteProduct)
		products.POST("/:id/image", controllers.UploadProductImage)
	}

	materials := session.Group("/materials", adminOnly)
	{
		materials.POST("", controllers.CreateMaterial)
		materials.PATCH("/:id", controllers.UpdateMaterial)
	}

	employees := session.Group("/employees", adminOnly)
	{
		employees.GET("", controllers.ListEmployees)
		employees.POST("", controllers.CreateEmployee)
		employees.PATCH("/:id", controllers.UpdateEmployee)
		employees.DELETE("/:id", controllers.ArchiveEmployee)
	}

	teams := session.Group("/teams", adminOnly)
	{
		teams.GET("", controllers.ListTeams)
		teams.POST("", controllers.CreateTeam)
		teams.PATCH("/:id", controllers.UpdateTeam)
		teams.DELETE("/:id", controllers.DeleteTeam)
		teams.POST("/:id/orders", controllers.AssignTeamOrders)
	}

	quotas := session.Group("/quotas", adminOnly)
	{
		quotas.GET("", controllers.ListQuotas)
		quotas.POST("", controllers.CreateQuota)
		quotas.PATCH("/:id", controllers.UpdateQuota)
		quotas.DELETE("/:id", controllers.DeleteQuota)
	}

	feedbacks := session.Group("/feedbacks")
	{
		feedbacks.POST("", customerOnly, controllers.CreateFeedback)
		feedbacks.GET("", adminOnly, controllers.ListFeedbacks)
		feedbacks.GET("/order/:id", controllers.GetOrderFeedback)
	}

	messages := session.Group("/messages")
	{
		messages.POST("/send", controllers.SendMessage)
		messages.GET("/conversation/:customerId", controllers.GetConversation)
	}

	session.POST("/uploads/logo", customerOnly, controllers.UploadLogo)

	session.GET("/realtime/orders", controllers.StreamOrders)
	session.GET("/realtime/payments", controllers.StreamPayments)
	session.GET("/dashboard/orders", adminOnly, controllers.GetOrderDashboard)

	return router
}

func corsConfig(cfg *config.Config) cors.Config {
	return cors.Config{
		AllowOrigins:     cfg.CORSAllowedOrigins,
		AllowMethods:     []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "X-Request-ID"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "X-Request-ID"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}
}

// healthCheck handles the health check endpoint
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "GatsisHub API is running",
	})
}

// databaseStatus checks database connectivity and returns table information
func databaseStatus(c *gin.Context) {
	db := config.GetDB()

	// Get the underlying SQL database to check connection
	sqlDB, err := db.DB()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_ERROR",
				"message": "Failed to get database instance",
			},
		})
		return
	}

	// Ping the database to verify connection
	if err := sqlDB.PingContext(c.Request.Context()); err != nil {
		logger.Error(c, "Database ping failed", err)
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_CONNECTION_ERROR",
				"message": "Database connection failed",
			},
		})
		return
	}

	tables, err := db.Migrator().GetTables()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{
			"success": false,
			"error": gin.H{
				"code":    "DATABASE_QUERY_ERROR",
				"message": "Failed to query tables",
			},
		})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success": true,
		"message": "Database connected",
		"tables":  tables,
	})
}
