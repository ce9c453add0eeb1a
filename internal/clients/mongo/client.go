package mongo

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"buzzaar/internal/config"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

var (
	// ErrNotInitialized is returned by Shutdown when Init never produced a client.
	ErrNotInitialized = errors.New("mongo client not initialized")
	// ErrShutdown is returned by Shutdown after the connection is already closed.
	ErrShutdown = errors.New("mongo client already shut down")
)

var (
	client  *mongo.Client
	db      *mongo.Database
	initErr error
	mu      sync.Mutex

	initOnce     sync.Once
	shutdownOnce sync.Once
	txnProbeOnce sync.Once

	// 0 = stand-alone, 1 = replica set
	isReplicaSet atomic.Bool
)

// IsReplicaSet reports whether the current deployment is a replica set.
// Callers MUST treat the result as a hint (cached & eventually consistent).
func IsReplicaSet() bool { return isReplicaSet.Load() }

// Init initializes the MongoDB connection (first call wins, thread-safe).
// On connect or ping failure both return values are nil and the error is
// cached for subsequent callers.
func Init(ctx context.Context, cfg config.Config, log *slog.Logger) (*mongo.Client, *mongo.Database, error) {
	initOnce.Do(func() {
		opts := options.Client().
			ApplyURI(cfg.MongoURI).
			SetServerAPIOptions(options.ServerAPI(options.ServerAPIVersion1)).
			SetConnectTimeout(10 * time.Second).
			SetAppName("buzzaar")

		ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
		defer cancel()

		cli, err := drv.Connect(ctx, opts)
		if err != nil {
			log.Error("failed to connect to mongo", "err", err)
			initErr = err
			return
		}

		if err := drv.Ping(ctx, cli); err != nil {
			log.Error("failed to ping mongo", "err", err)
			initErr = err
			return
		}

		mu.Lock()
		client = cli
		db = cli.Database(cfg.MongoDBName)
		mu.Unlock()

		probeReplicaSet(ctx, cli, log)

		log.Info("successfully connected to mongo", "db", cfg.MongoDBName)
	})

	mu.Lock()
	defer mu.Unlock()
	return client, db, initErr
}

// probeReplicaSet caches whether the deployment is a replica set (one probe per process).
func probeReplicaSet(ctx context.Context, cli *mongo.Client, log *slog.Logger) {
	txnProbeOnce.Do(func() {
		var hello struct {
			SetName string `bson:"setName"`
		}
		err := cli.Database("admin").RunCommand(ctx, bson.D{{Key: "hello", Value: 1}}).Decode(&hello)
		if err != nil {
			log.Debug("replica set probe failed, assuming stand-alone", "err", err)
			return
		}
		isReplicaSet.Store(hello.SetName != "")
	})
}

// Client returns the singleton MongoDB client instance.
func Client() *mongo.Client {
	mu.Lock()
	defer mu.Unlock()
	return client
}

// DB returns the singleton MongoDB database instance.
func DB() *mongo.Database {
	mu.Lock()
	defer mu.Unlock()
	return db
}

// Shutdown closes the MongoDB connection. The first call reports
// ErrNotInitialized when Init never produced a client; every later call
// reports ErrShutdown.
func Shutdown(ctx context.Context) error {
	var err error
	ran := false

	shutdownOnce.Do(func() {
		ran = true

		mu.Lock()
		cli := client
		client = nil
		db = nil
		mu.Unlock()

		if cli == nil {
			err = ErrNotInitialized
			return
		}

		ctx, cancel := context.WithTimeout(ctx, 5*time.Second)
		defer cancel()

		err = drv.Disconnect(ctx, cli)
	})

	if !ran {
		return ErrShutdown
	}
	return err
}
