package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/simplepost/simplepost/internal/idem"
	"github.com/simplepost/simplepost/pkg/simplepost"
	"github.com/simplepost/simplepost/pkg/simplepost/config"
	"github.com/simplepost/simplepost/pkg/simplepost/dispatch"
	"github.com/simplepost/simplepost/pkg/simplepost/store"
	memorystore "github.com/simplepost/simplepost/pkg/simplepost/store/memory"
	mongostore "github.com/simplepost/simplepost/pkg/simplepost/store/mongo"
	kafkatransport "github.com/simplepost/simplepost/pkg/simplepost/transport/kafka"
)

func main() {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load configuration", "err", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	postStore, cleanup, err := buildStore(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to build store", "err", err)
		os.Exit(1)
	}
	defer cleanup()

	brokers := cfg.Kafka.BrokerList()
	publisher := kafkatransport.NewPublisher(brokers, cfg.Kafka.EventsTopic)
	defer publisher.Close()

	svc, err := simplepost.New(
		simplepost.WithRepository(simplepost.NewPostRepository(postStore)),
		simplepost.WithPublisher(publisher),
		simplepost.WithLogger(logger),
	)
	if err != nil {
		logger.Error("failed to build service", "err", err)
		os.Exit(1)
	}

	dispatcher := dispatch.NewDispatcher(svc, logger)

	var dedup idem.Store
	if cfg.Redis.Addr != "" {
		dedup = idem.New(redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr}))
	}

	commands := kafkatransport.NewCommandConsumer(
		brokers, cfg.Kafka.CommandGroup, cfg.Kafka.CommandsTopic, dispatcher, dedup, logger)
	events := kafkatransport.NewEventConsumer(
		brokers, cfg.Kafka.EventGroup, cfg.Kafka.EventsTopic, dispatcher, logger)

	logger.Info("post service starting",
		"env", cfg.Environment,
		"store", cfg.Store.Backend,
		"commands_topic", cfg.Kafka.CommandsTopic,
		"events_topic", cfg.Kafka.EventsTopic,
	)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		if err := commands.Run(ctx); err != nil {
			logger.Error("command consumer stopped", "err", err)
			cancel()
		}
	}()
	go func() {
		defer wg.Done()
		if err := events.Run(ctx); err != nil {
			logger.Error("event consumer stopped", "err", err)
			cancel()
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down")
	wg.Wait()
	logger.Info("post service exiting")
}

// buildStore wires the configured document store backend.
func buildStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (store.Store[*simplepost.Post], func(), error) {
	if cfg.Store.Backend == "memory" {
		return memorystore.New[*simplepost.Post](simplepost.PostCodec{}), func() {}, nil
	}

	connectCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(connectCtx, options.Client().ApplyURI(cfg.Store.MongoURI))
	if err != nil {
		return nil, nil, err
	}
	if err := client.Ping(connectCtx, readpref.Primary()); err != nil {
		_ = client.Disconnect(ctx)
		return nil, nil, err
	}

	coll := client.Database(cfg.Store.Database).Collection(cfg.Store.Collection)
	cleanup := func() {
		disconnectCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := client.Disconnect(disconnectCtx); err != nil {
			logger.Error("mongo disconnect failed", "err", err)
		}
	}

	s := mongostore.New[*simplepost.Post](client, coll, simplepost.PostCodec{},
		func() *simplepost.Post { return &simplepost.Post{} })
	return s, cleanup, nil
}
