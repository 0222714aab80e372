package appServer

import (
	"context"
	"crypto/tls"
	"database/sql"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/config"
	repository "github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/database/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/service"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/transport"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/internal/worker"

	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/broker"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/mailer"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/postgres"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/queue"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/redis"
	"github.com/Emmanuelayeni3000/ELIVRA-sub000/pkg/sqlite"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
)

const queueStatsInterval = 5 * time.Minute

type Server struct {
	httpServer *http.Server
}

func (s *Server) Run(cfg *config.Config, handler http.Handler) error {
	s.httpServer = &http.Server{
		Addr:              cfg.Server.Host + ":" + cfg.Server.Port,
		Handler:           handler,
		MaxHeaderBytes:    1 << 20,
		ReadTimeout:       10 * time.Second,
		WriteTimeout:      cfg.Server.Timeout + 5*time.Second,
		IdleTimeout:       cfg.Server.IdleTimeout,
		ReadHeaderTimeout: 3 * time.Second,
		TLSConfig:         &tls.Config{MinVersion: tls.VersionTLS12},
		ErrorLog:          log.New(os.Stderr, "SERVER ERROR: ", log.LstdFlags),
	}
	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func openDatabase(cfg *config.DatabaseConfig) (*sql.DB, error) {
	switch strings.ToLower(cfg.Driver) {
	case "", "postgres":
		return postgres.NewPostgresDB(cfg)
	case "sqlite":
		return sqlite.NewSQLiteDB(cfg.Path)
	}
	return nil, fmt.Errorf("unknown database driver %q", cfg.Driver)
}

func newMailer(cfg *config.EmailConfig) mailer.Mailer {
	if !cfg.Enabled || cfg.APIKey == "" {
		logrus.Warn("Email delivery disabled, messages will only be logged")
		return mailer.LogMailer{}
	}
	return mailer.NewSendGridMailer(mailer.SendGridConfig{
		APIKey:   cfg.APIKey,
		From:     cfg.From,
		FromName: cfg.FromName,
		Templates: map[string]string{
			string(service.NotifyInvitation):        cfg.Templates.Invitation,
			string(service.NotifyConfirmation):      cfg.Templates.Confirmation,
			string(service.NotifyCompanionInvite):   cfg.Templates.CompanionInvite,
			string(service.NotifyOwnerNotification): cfg.Templates.OwnerNotification,
			string(service.NotifyReminder):          cfg.Templates.Reminder,
		},
	})
}

func NewServer(cfg *config.Config) {
	if err := cfg.Validate(); err != nil {
		logrus.Fatalf("Invalid configuration: %v", err)
	}

	// Initialize database
	db, err := openDatabase(&cfg.Database)
	if err != nil {
		logrus.Fatalf("Failed to initialize database: %v", err)
	}
	defer db.Close()

	// Run database migrations
	if err := postgres.RunMigrations(db); err != nil {
		logrus.Fatalf("Failed to run migrations: %v", err)
	}

	// Initialize repositories
	eventRepo := repository.NewEventRepository(db)
	inviteRepo := repository.NewInviteRepository(db)
	companionRepo := repository.NewCompanionRepository(db)
	reminderRepo := repository.NewReminderRepository(db)
	userRepo := repository.NewUserRepository(db)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	emailer := newMailer(&cfg.Email)

	var redisQueue *queue.RedisQueue
	var taskPublisher service.TaskPublisher

	if cfg.Queue.Enabled {
		redisClient, err := redis.NewRedisClient(&cfg.Redis)
		if err != nil {
			logrus.Errorf("Failed to initialize Redis queue: %v. Continuing without queue...", err)
		} else {
			defer redisClient.Close()

			retryManager := queue.NewRetryManager(cfg.Queue.MaxRetries, cfg.Queue.BaseDelay)
			dlqHandler := queue.NewDefaultDLQHandler(redisClient, queue.DLQKey(cfg.Queue.Prefix))
			queueConfig := queue.DefaultRedisQueueConfig()
			queueConfig.Prefix = cfg.Queue.Prefix
			queueConfig.MaxRetries = cfg.Queue.MaxRetries
			queueConfig.BaseDelay = cfg.Queue.BaseDelay

			redisQueue = queue.NewRedisQueue(redisClient, queueConfig, retryManager, dlqHandler)
			defer redisQueue.Close()

			taskPublisher = service.NewQueueAdapter(redisQueue)
			logrus.Info("Redis queue initialized")
		}
	}

	publisher, err := broker.New(broker.Config{
		Type:     cfg.Broker.Type,
		URL:      cfg.Broker.URL,
		Exchange: cfg.Broker.Exchange,
		Brokers:  cfg.Broker.Brokers,
		Topic:    cfg.Broker.Topic,
	})
	if err != nil {
		logrus.Errorf("Failed to initialize event broker: %v. Domain events will not be published", err)
		publisher = broker.NoopPublisher{}
	}
	defer publisher.Close()

	// Initialize services
	notificationService := service.NewNotificationService(emailer, taskPublisher, &cfg.App, cfg.Queue.MaxRetries)
	authService := service.NewAuthService(userRepo, &cfg.JWT)
	eventService := service.NewEventService(eventRepo, inviteRepo)
	inviteService := service.NewInviteService(eventRepo, inviteRepo, notificationService, &cfg.App)
	rsvpService := service.NewRSVPService(eventRepo, inviteRepo, companionRepo, userRepo, notificationService, publisher)
	reminderService := service.NewReminderService(eventRepo, inviteRepo, reminderRepo, notificationService, &cfg.App)

	// Start queue consumer
	if redisQueue != nil {
		notificationWorker := worker.NewNotificationWorker(emailer, redisQueue, queueStatsInterval)
		if err := redisQueue.Subscribe(ctx, notificationWorker.HandleTask); err != nil {
			logrus.Errorf("Queue subscriber error: %v", err)
		} else {
			go notificationWorker.Start(ctx)
			logrus.Info("Notification worker started")
		}
	}

	// Initialize handlers
	handlers := &transport.Handlers{
		RSVP:     transport.NewRSVPHandler(rsvpService),
		Event:    transport.NewEventHandler(eventService),
		Invite:   transport.NewInviteHandler(inviteService),
		Reminder: transport.NewReminderHandler(reminderService),
		Auth:     transport.NewAuthHandler(authService),
	}

	if cfg.Server.Env == "production" || cfg.Server.Mode == "release" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := transport.InitRoutes(handlers, authService, transport.RouterConfig{
		Timeout:           cfg.Server.Timeout,
		RequestsPerSecond: cfg.RateLimit.RequestsPerSecond,
	})

	srv := new(Server)
	go func() {
		if err := srv.Run(cfg, router); err != nil && err != http.ErrServerClosed {
			logrus.Fatalf("error occured while running http server: %s", err.Error())
		}
	}()

	logrus.WithField("port", cfg.Server.Port).Print("App Started")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGTERM, syscall.SIGINT)
	<-quit

	logrus.Print("App Shutting Down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logrus.Errorf("error occured on server shutting down: %s", err.Error())
	}
	cancel()
}
