package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"time"

	"cabshare/backend/internal/api/handler"
	"cabshare/backend/internal/cache"
	"cabshare/backend/internal/expiry"
	"cabshare/backend/internal/models"
	"cabshare/backend/internal/notify"
	"cabshare/backend/internal/ridehub"
	"cabshare/backend/internal/rides"
	"cabshare/backend/internal/storage"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
)

func setupDependencies() (*gorm.DB, *redis.Client) {
	dsn := os.Getenv("DATABASE_DSN")
	if dsn == "" {
		dsn = "host=localhost user=user password=password dbname=cabsharedb port=5432 sslmode=disable"
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{})
	if err != nil {
		log.Fatalf("Failed to connect PostgreSQL: %v", err)
	}

	redisAddr := os.Getenv("REDIS_ADDR")
	if redisAddr == "" {
		redisAddr = "localhost:6379"
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     redisAddr,
		Password: os.Getenv("REDIS_PASSWORD"),
		DB:       0,
	})

	ctx := context.Background()
	if _, err := rdb.Ping(ctx).Result(); err != nil {
		log.Fatalf("Failed to connect Redis: %v", err)
	}

	err = db.AutoMigrate(
		&models.Ride{},
		&models.Message{},
		&models.Notification{},
		&models.User{},
	)
	if err != nil {
		log.Fatalf("Failed to run migrations: %v", err)
	}

	log.Println("Database and Redis connections established, migrations complete.")
	return db, rdb
}

// rescheduleActiveRides rebuilds the in-process expiry timers after a
// restart. Anything missed between crash and boot is caught here or by the
// overdue sweep.
func rescheduleActiveRides(s storage.Storage, scheduler *expiry.Scheduler) {
	active, err := s.GetActiveRides()
	if err != nil {
		log.Printf("ERROR: Failed to reload active rides for scheduling: %v", err)
		return
	}
	for _, ride := range active {
		scheduler.Schedule(ride.ID, ride.DepartureTime)
	}
	log.Printf("Rescheduled expiry for %d active ride(s)", len(active))
}

func main() {
	log.Println("Starting CabShare Backend...")

	if err := godotenv.Load(); err != nil {
		log.Println("Warning: Error loading .env file")
	}

	db, rdb := setupDependencies()
	s := storage.NewStorageService(db, rdb)
	c := cache.NewService(rdb)
	publisher := ridehub.NewRedisPublisher(rdb)
	hub := ridehub.NewManager(s, rdb)

	var notifier notify.Notifier = notify.NewHubNotifier(s, publisher)
	if token := os.Getenv("TELEGRAM_BOT_TOKEN"); token != "" {
		tg, err := notify.NewTelegramNotifier(token, notifier, s)
		if err != nil {
			log.Printf("WARNING: Telegram notifier disabled: %v", err)
		} else {
			notifier = tg
		}
	}

	worker := expiry.NewWorker(s, c, publisher, notifier)
	scheduler := expiry.NewScheduler(worker)
	sweeper := expiry.NewSweeper(s, worker)

	rideService := rides.NewService(s, c, publisher, scheduler, notifier)
	hub.SetChatService(rideService)

	rescheduleActiveRides(s, scheduler)

	go hub.Run()
	go sweeper.Run()

	r := gin.Default()
	h := handler.NewHandler(rideService, hub, s, rdb)

	r.POST("/auth/token", h.IssueToken)
	r.GET("/ws", h.ServeWebSocket)

	api := r.Group("/", h.AuthRequired(), h.RateLimit())
	{
		api.GET("/rides", h.ListRides)
		api.GET("/rides/suggestions", h.Suggestions)
		api.GET("/rides/:id", h.GetRide)
		api.GET("/rides/:id/messages", h.GetMessages)
		api.GET("/notifications", h.ListNotifications)
		api.POST("/notifications/:id/read", h.MarkNotificationRead)

		api.POST("/rides", h.BanGuard(), h.CreateRide)
		api.POST("/rides/:id/messages", h.BanGuard(), h.PostMessage)
		api.POST("/rides/:id/join", h.JoinRide)
		api.POST("/rides/:id/leave", h.LeaveRide)
		api.POST("/rides/:id/kick", h.KickParticipant)
		api.POST("/rides/:id/lock", h.LockRide)
		api.POST("/rides/:id/unlock", h.UnlockRide)
		api.DELETE("/rides/:id", h.DeleteRide)
	}

	addr := os.Getenv("LISTEN_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	server := &http.Server{
		Addr:           addr,
		Handler:        r,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   10 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	log.Fatal(server.ListenAndServe())
}
