package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-redis/redis/v8"
	"github.com/joho/godotenv"
	_ "github.com/lib/pq"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/pgdialect"

	"course-manager/internal/auth"
	"course-manager/internal/config"
	"course-manager/internal/course"
	"course-manager/internal/course/course_api"
	coursedb "course-manager/internal/course/db"
	"course-manager/internal/database/migrations"
	"course-manager/internal/enrollment"
	enrolldb "course-manager/internal/enrollment/db"
	"course-manager/internal/enrollment/enrollment_api"
	rediswrap "course-manager/internal/enrollment/redis"
	"course-manager/internal/kafka"
	"course-manager/internal/logger"
	"course-manager/internal/mailer"
)

func verifyConnections(ctx context.Context, cfg *config.Config, logger *logger.Logger) (*bun.DB, *redis.Client) {
	if cfg.Database.DSN == "" {
		logger.Fatal("CONFIG", "POSTGRES_DSN not set")
	}

	var sqldb *sql.DB
	var err error
	maxRetries := 5

	for i := 0; i < maxRetries; i++ {
		logger.Info("DATABASE", fmt.Sprintf("Attempting to connect to PostgreSQL (attempt %d/%d)", i+1, maxRetries))
		sqldb, err = sql.Open("postgres", cfg.Database.DSN)
		if err != nil {
			logger.Error("DATABASE", fmt.Sprintf("Failed to open PostgreSQL: %v", err))
			time.Sleep(2 * time.Second)
			continue
		}

		err = sqldb.Ping()
		if err == nil {
			break
		}

		logger.Error("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL: %v", err))
		if i < maxRetries-1 {
			time.Sleep(2 * time.Second)
		}
	}

	if err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Failed to connect to PostgreSQL after %d attempts: %v", maxRetries, err))
	}

	sqldb.SetMaxOpenConns(cfg.Database.MaxOpenConns)
	sqldb.SetMaxIdleConns(cfg.Database.MaxIdleConns)
	sqldb.SetConnMaxLifetime(cfg.Database.MaxLifetime)

	logger.Info("DATABASE", "✅ PostgreSQL connection successful")

	bunDB := bun.NewDB(sqldb, pgdialect.New())

	if cfg.Redis.Addr == "" {
		logger.Fatal("CONFIG", "REDIS_ADDR not set")
	}
	redisClient := redis.NewClient(&redis.Options{
		Addr: cfg.Redis.Addr,
	})
	if err := redisClient.Ping(ctx).Err(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Redis connection error: %v", err))
	}
	logger.Info("DATABASE", fmt.Sprintf("✅ Redis connection successful to %s (DB: %d)", cfg.Redis.Addr, redisClient.Options().DB))

	return bunDB, redisClient
}

func main() {
	logger := logger.NewLogger()
	defer logger.Close()

	logger.Info("APP", "Starting Course Manager initialization")

	if err := godotenv.Load(); err != nil {
		logger.Warn("CONFIG", ".env file not found, using environment variables")
	} else {
		logger.Info("CONFIG", "Loaded environment variables from .env file")
	}

	cfg := config.Load()
	ctx := context.Background()

	logger.Info("APP", "Verifying database connections")
	bunDB, redisClient := verifyConnections(ctx, cfg, logger)
	defer bunDB.Close()
	defer redisClient.Close()

	runner := migrations.NewRunner(bunDB, migrations.DefaultOptions(), logger)
	if err := runner.RunMigrations(); err != nil {
		logger.Fatal("DATABASE", fmt.Sprintf("Migrations failed: %v", err))
	}
	defer runner.Close()

	var producer *kafka.Producer
	if cfg.Kafka.Enabled {
		logger.Info("KAFKA", fmt.Sprintf("Using Kafka brokers: %v", cfg.Kafka.Brokers))
		producer = kafka.NewProducer(cfg.Kafka.Brokers, cfg.Kafka.Topic)
		defer producer.Close()

		if err := kafka.EnsureTopicsExist(cfg.Kafka.Brokers, []string{cfg.Kafka.Topic}); err != nil {
			logger.Warn("KAFKA", fmt.Sprintf("Topic creation might have failed: %v", err))
		} else {
			logger.Info("KAFKA", "Required topics ensured successfully")
		}
	} else {
		logger.Info("KAFKA", "Kafka publishing disabled")
	}

	enrollment.InitStripe(cfg.Stripe)

	enrollmentDB := &enrolldb.DB{Bun: bunDB}
	courseDB := &coursedb.DB{Bun: bunDB}
	redisLock := rediswrap.NewRedis(redisClient, cfg.Enrollment.FormTokenTTL, cfg.Enrollment.DateLockTTL)
	mail := mailer.NewMailer(cfg.Email, logger)
	checkout := enrollment.NewStripeCheckout(cfg.Stripe)

	var publisher enrollment.KafkaPublisher
	if producer != nil {
		publisher = producer
	}

	enrollmentService := enrollment.NewService(enrollmentDB, redisLock, publisher, mail, checkout, cfg.Email, logger)
	courseService := course.NewService(courseDB, enrollmentDB, cfg.Catalog.ItemsPerPage)

	enrollmentHandler := enrollment_api.NewHandler(enrollmentService, cfg.Stripe.WebhookSecret)
	courseHandler := course_api.NewHandler(courseService)

	logger.Info("HTTP", "Setting up router and middleware")
	r := chi.NewRouter()

	// --- Public Routes ---
	r.Route("/api/courses", func(r chi.Router) {
		r.Get("/", courseHandler.ListCourses)
		r.Get("/{courseId}", courseHandler.GetCourse)
		r.Get("/{courseId}/enroll-token", enrollmentHandler.GetFormToken)
		r.Get("/{courseId}/dates/{dateId}/availability", enrollmentHandler.GetAvailability)
		r.Get("/{courseId}/dates/{dateId}/terms", courseHandler.GetDateTerms)
	})
	r.Post("/api/enrollments", enrollmentHandler.SubmitEnrollment)
	r.Post("/api/webhook/stripe", enrollmentHandler.StripeWebhook)
	logger.Info("ROUTER", "Public course and enrollment routes registered under /api")

	// --- Admin Routes ---
	adminSecret := os.Getenv("ADMIN_JWT_SECRET")
	if adminSecret == "" {
		logger.Fatal("CONFIG", "ADMIN_JWT_SECRET not set")
	}
	r.Group(func(r chi.Router) {
		r.Use(auth.Middleware(adminSecret))
		logger.Info("AUTH", "JWT middleware applied to admin API routes")

		r.Route("/api/admin", func(r chi.Router) {
			r.Route("/courses", func(r chi.Router) {
				r.Post("/", courseHandler.CreateCourse)
				r.Put("/{courseId}", courseHandler.UpdateCourse)
				r.Delete("/{courseId}", courseHandler.DeleteCourse)
				r.Post("/{courseId}/dates", courseHandler.AddCourseDate)
				r.Put("/{courseId}/terms/{taxonomy}", courseHandler.SetTerms)
				r.Get("/{courseId}/enrollments", enrollmentHandler.ListEnrollments)
			})
			r.Put("/dates/{dateId}", courseHandler.UpdateCourseDate)
			r.Delete("/dates/{dateId}", courseHandler.DeleteCourseDate)

			r.Route("/taxonomies", func(r chi.Router) {
				r.Get("/", courseHandler.ListTaxonomies)
				r.Put("/", courseHandler.SaveTaxonomy)
				r.Delete("/{slug}", courseHandler.DeleteTaxonomy)
			})

			r.Get("/enrollments/{enrollmentId}", enrollmentHandler.GetEnrollment)
		})
		logger.Info("ROUTER", "Admin routes registered under /api/admin")
	})

	server := &http.Server{
		Addr:         ":" + cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	go func() {
		logger.Info("HTTP", fmt.Sprintf("🚀 Course Manager running on :%s", cfg.Server.Port))
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP", fmt.Sprintf("HTTP server error: %v", err))
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	logger.Info("APP", "Service started successfully, waiting for shutdown signal")
	<-stop

	logger.Info("APP", "Shutdown signal received, initiating graceful shutdown")
	ctxShutdown, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := server.Shutdown(ctxShutdown); err != nil {
		logger.Error("HTTP", fmt.Sprintf("Server Shutdown Failed: %v", err))
	} else {
		logger.Info("HTTP", "✅ Course Manager shutdown complete")
	}
}
