package main

import (
	"fmt"
	"log"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"

	"github.com/orderpipe/ecommerce-api/config"
	"github.com/orderpipe/ecommerce-api/events"
	"github.com/orderpipe/ecommerce-api/middleware"
	"github.com/orderpipe/ecommerce-api/models"
	"github.com/orderpipe/ecommerce-api/repository"
	"github.com/orderpipe/ecommerce-api/routes"
	"github.com/orderpipe/ecommerce-api/settlement"
)

func main() {
	log.Println("Starting application...")

	// Load environment variables
	_ = godotenv.Load()
	cfg := config.LoadConfig()

	// Init DB
	db := initDatabase(cfg)

	// Auto-migrate all tables
	if err := db.AutoMigrate(
		&models.User{},
		&models.Product{},
		&models.Cart{},
		&models.CartItem{},
		&models.Wallet{},
		&models.Coupon{},
		&models.UserCouponUsage{},
		&models.Order{},
		&models.OrderItem{},
		&models.PaymentTransaction{},
	); err != nil {
		log.Fatalf("AutoMigrate failed: %v", err)
	}

	// Settlement engine over the gorm store
	engine := settlement.NewEngine(repository.NewGorm(db), cfg.SettlementTimeout)

	// Event publishing is optional; the API runs without a broker.
	var publisher *events.Publisher
	if cfg.RabbitMQURL != "" {
		pub, err := events.NewPublisher(cfg)
		if err != nil {
			log.Printf("RabbitMQ unavailable, order events disabled: %v", err)
		} else if err := pub.SetupQueues(); err != nil {
			log.Printf("Failed to setup RabbitMQ queues, order events disabled: %v", err)
			pub.Close()
		} else {
			publisher = pub
			defer publisher.Close()
		}
	}

	// Gin setup
	r := gin.Default()

	// CORS settings
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "Authorization", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Length"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	// Prometheus metrics
	r.Use(middleware.PrometheusMiddleware())
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Health check endpoint
	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	// Setup routes
	routes.SetupRoutes(r, db, engine, publisher)

	// Start server
	log.Printf("Server running on port %s...", cfg.Port)
	if err := r.Run(":" + cfg.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}

// initDatabase sets up the GORM DB connection
func initDatabase(cfg *config.Config) *gorm.DB {
	if cfg.DatabaseURL != "" {
		db, err := gorm.Open(postgres.Open(cfg.DatabaseURL), &gorm.Config{})
		if err != nil {
			log.Fatalf("DB connection failed: %v", err)
		}
		return db
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s password=%s dbname=%s port=%s sslmode=disable",
		cfg.DBHost, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBPort,
	)

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect DB: %v", err)
	}
	return db
}
