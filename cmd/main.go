package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"
	"github.com/ukydev/service-desk/internal/auth"
	"github.com/ukydev/service-desk/internal/config"
	"github.com/ukydev/service-desk/internal/db"
	"github.com/ukydev/service-desk/internal/events"
	"github.com/ukydev/service-desk/internal/handlers"
	"github.com/ukydev/service-desk/internal/middleware"
	"github.com/ukydev/service-desk/internal/orders"
	"go.mongodb.org/mongo-driver/mongo"
)

const shutdownTimeout = 10 * time.Second

// stores are the collections the API runs on.
type stores struct {
	users     db.UserCollection
	clients   db.ClientCollection
	materials db.MaterialCollection
	orders    db.ServiceOrderCollection
}

func mongoStores(database *mongo.Database) stores {
	return stores{
		users:     &db.MongoUserCollection{Collection: database.Collection(db.CollectionUsers)},
		clients:   &db.MongoClientCollection{Collection: database.Collection(db.CollectionClients)},
		materials: &db.MongoMaterialCollection{Collection: database.Collection(db.CollectionMaterials)},
		orders:    &db.MongoServiceOrderCollection{Collection: database.Collection(db.CollectionServiceOrders)},
	}
}

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		logrus.WithError(err).Warn("Failed to load .env file")
	}
	cfg := config.Load()
	logger := cfg.NewLogger()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.WithError(err).Fatal("Server stopped")
	}
}

func run(ctx context.Context, cfg config.Config, logger *logrus.Logger) error {
	client, err := db.ConnectMongo(ctx, cfg.MongoURI)
	if err != nil {
		return err
	}
	defer func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.WithError(err).Warn("Failed to disconnect from MongoDB")
		}
	}()
	logger.WithField("database", cfg.MongoDB).Info("Connected to MongoDB")

	database := client.Database(cfg.MongoDB)
	if err := db.EnsureIndexes(ctx, database); err != nil {
		return err
	}

	publisher, closePublisher, err := newPublisher(cfg, logger)
	if err != nil {
		return err
	}
	defer closePublisher()

	handler, err := newHandler(cfg, logger, mongoStores(database), publisher)
	if err != nil {
		return err
	}

	srv := &http.Server{
		Addr:              cfg.HTTPAddr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		logger.WithField("addr", cfg.HTTPAddr).Info("HTTP server listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down HTTP server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}

// newPublisher connects to the MQTT broker, or returns a no-op publisher when none is configured.
func newPublisher(cfg config.Config, logger logrus.FieldLogger) (events.Publisher, func(), error) {
	if cfg.MQTTBroker == "" {
		logger.Info("MQTT_BROKER not set, service order events are disabled")
		return events.NopPublisher{}, func() {}, nil
	}
	publisher, err := events.NewMQTTPublisher(cfg.MQTTBroker, cfg.MQTTClientID, cfg.MQTTTopicPrefix)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("broker", cfg.MQTTBroker).Info("Publishing service order events over MQTT")
	return publisher, publisher.Close, nil
}

func newHandler(cfg config.Config, logger *logrus.Logger, st stores, publisher events.Publisher) (http.Handler, error) {
	authService, err := auth.NewService(cfg.JWTSecret, cfg.JWTExpiry)
	if err != nil {
		return nil, err
	}
	orderService, err := orders.NewService(orders.Deps{
		Orders:    st.orders,
		Clients:   st.clients,
		Users:     st.users,
		Materials: st.materials,
		Publisher: publisher,
		Logger:    logger.WithField("component", "orders"),
	})
	if err != nil {
		return nil, err
	}

	return handlers.NewRouter(handlers.Router{
		Auth:           handlers.NewAuthHandler(authService, st.users, logger),
		Users:          handlers.NewUserHandler(authService, st.users, logger),
		Clients:        handlers.NewClientHandler(st.clients, logger),
		Materials:      handlers.NewMaterialHandler(st.materials, logger),
		ServiceOrders:  handlers.NewServiceOrderHandler(orderService),
		AuthMiddleware: middleware.NewAuthMiddleware(authService),
		RateLimiter: middleware.NewRateLimitMiddleware(
			cfg.RateLimitRequests, time.Duration(cfg.RateLimitWindow)*time.Second),
		Logger: logger,
	}), nil
}
