// Package main runs the launchpad service: the engine behind a JSON API,
// with post-commit sinks for the swap journal, candle export, Kafka and
// the websocket candle feed.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"token-launchpad/internal/amm"
	"token-launchpad/internal/api"
	"token-launchpad/internal/config"
	"token-launchpad/internal/engine"
	"token-launchpad/internal/ledger"
	"token-launchpad/internal/queue"
	"token-launchpad/internal/solana"
	"token-launchpad/internal/storage"
	chstore "token-launchpad/internal/storage/clickhouse"
	"token-launchpad/internal/storage/memory"
	"token-launchpad/internal/storage/migrations"
	pgstore "token-launchpad/internal/storage/postgres"
	"token-launchpad/internal/stream"
	"token-launchpad/internal/transferfee"
)

// stores holds the storage implementations used by the engine and API.
type stores struct {
	records ledger.Store
	swaps   storage.SwapLogStore
	candles storage.CandleStore
}

func main() {
	envFile := os.Getenv("ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := config.LoadEnvFile(envFile); err != nil {
		log.Fatalf("Failed to load env file: %v", err)
	}

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("Failed to read configuration: %v", err)
	}

	// Parse flags (env vars as defaults)
	flag.StringVar(&cfg.HTTPAddr, "http-addr", cfg.HTTPAddr, "HTTP listen address")
	flag.StringVar(&cfg.RPCEndpoint, "rpc-endpoint", cfg.RPCEndpoint, "Solana RPC HTTP endpoint")
	flag.StringVar(&cfg.PostgresDSN, "postgres-dsn", cfg.PostgresDSN, "PostgreSQL connection string")
	flag.StringVar(&cfg.ClickHouseDSN, "clickhouse-dsn", cfg.ClickHouseDSN, "ClickHouse connection string")
	flag.BoolVar(&cfg.UseMemory, "use-memory", cfg.UseMemory, "Use in-memory storage instead of PostgreSQL/ClickHouse")
	flag.StringVar(&cfg.RedisAddr, "redis-addr", cfg.RedisAddr, "Redis address for the transfer fee cache and request nonces")
	flag.Parse()

	logger := log.New(os.Stdout, "[server] ", log.LstdFlags|log.Lshortfile)

	if err := cfg.Validate(); err != nil {
		logger.Fatal(err)
	}
	logger.Printf("Network: %s (program %s, faucet %v)", cfg.Network, cfg.Params.ProgramID, cfg.Params.FaucetEnabled)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	st, closeStores, err := createStores(ctx, cfg, logger)
	if err != nil {
		logger.Fatalf("Failed to create stores: %v", err)
	}
	defer closeStores()

	var redisClient *redis.Client
	if cfg.RedisAddr != "" {
		redisClient = redis.NewClient(&redis.Options{
			Addr:     cfg.RedisAddr,
			Password: cfg.RedisPassword,
			DB:       cfg.RedisDB,
		})
		defer redisClient.Close()
	}

	fees, err := createFeeLookup(cfg, redisClient, logger)
	if err != nil {
		logger.Fatalf("Failed to create transfer fee lookup: %v", err)
	}

	broadcaster := stream.NewCandleBroadcaster(log.New(os.Stdout, "[stream] ", log.LstdFlags|log.Lshortfile))
	defer broadcaster.Close()

	sinks := []engine.Sink{
		engine.NewSwapLogSink(st.swaps),
		engine.NewCandleSink(st.candles),
		broadcaster,
	}
	if len(cfg.KafkaBrokers) > 0 {
		publisher := queue.NewKafkaPublisher(queue.KafkaConfig{
			Brokers: cfg.KafkaBrokers,
			Topic:   cfg.KafkaTopic,
		})
		defer publisher.Close()
		sinks = append(sinks, publisher)
		logger.Printf("Publishing events to Kafka topic %s", cfg.KafkaTopic)
	}

	eng, err := engine.New(engine.Options{
		Params: cfg.Params,
		Store:  st.records,
		Fees:   fees,
		Sinks:  sinks,
		Logger: log.New(os.Stdout, "[engine] ", log.LstdFlags|log.Lshortfile),
	})
	if err != nil {
		logger.Fatalf("Failed to create engine: %v", err)
	}

	server := api.NewServer(api.Options{
		Addr:        cfg.HTTPAddr,
		Engine:      eng,
		Swaps:       st.swaps,
		Broadcaster: broadcaster,
		Nonces:      nonceStore(redisClient, logger),
		MaxSkew:     cfg.AuthMaxSkew,
		Logger:      log.New(os.Stdout, "[api] ", log.LstdFlags|log.Lshortfile),
	})

	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigCh:
		logger.Printf("Received signal %v, initiating graceful shutdown...", sig)
	case err := <-errCh:
		logger.Printf("HTTP server error: %v", err)
	}
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Printf("HTTP shutdown error: %v", err)
	}

	logger.Println("Shutdown complete")
}

func createStores(ctx context.Context, cfg *config.Config, logger *log.Logger) (*stores, func(), error) {
	if cfg.UseMemory {
		logger.Println("Using in-memory storage")
		return &stores{
			records: memory.NewRecordStore(),
			swaps:   memory.NewSwapLogStore(),
			candles: memory.NewCandleStore(),
		}, func() {}, nil
	}

	pool, err := pgstore.NewPool(ctx, cfg.PostgresDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("connect to postgres: %w", err)
	}
	applied, err := migrations.RunPostgresMigrations(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("postgres migrations: %w", err)
	}
	for _, name := range applied {
		logger.Printf("Applied postgres migration %s", name)
	}

	chConn, chApplied, err := migrations.RunClickhouseMigrations(ctx, cfg.ClickHouseDSN)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("clickhouse migrations: %w", err)
	}
	for _, name := range chApplied {
		logger.Printf("Applied clickhouse migration %s", name)
	}

	cleanup := func() {
		chConn.Close()
		pool.Close()
	}

	return &stores{
		records: pgstore.NewRecordStore(pool),
		swaps:   pgstore.NewSwapLogStore(pool),
		candles: chstore.NewCandleStore(chConn),
	}, cleanup, nil
}

func createFeeLookup(cfg *config.Config, client *redis.Client, logger *log.Logger) (amm.FeeLookup, error) {
	var source transferfee.Source
	switch cfg.Params.TransferFeeSource {
	case config.TransferFeeRPC:
		source = transferfee.NewRPCSource(solana.NewHTTPClient(cfg.RPCEndpoint))
		logger.Printf("Resolving transfer fees from %s", cfg.RPCEndpoint)
	default:
		schedules, err := transferfee.ParseSchedules(cfg.StaticTransferFees)
		if err != nil {
			return nil, err
		}
		source = transferfee.NewStaticSource(schedules)
		logger.Printf("Using %d static transfer fee schedules", len(schedules))
	}

	if client == nil {
		return transferfee.NewLookup(source), nil
	}
	cache := transferfee.NewRedisCache(client, source, cfg.RedisTTL,
		log.New(os.Stdout, "[transferfee] ", log.LstdFlags|log.Lshortfile))
	logger.Printf("Caching transfer fee schedules in Redis at %s (ttl %v)", cfg.RedisAddr, cfg.RedisTTL)
	return transferfee.NewLookup(cache), nil
}

// nonceStore shares request nonces through Redis when it is configured.
func nonceStore(client *redis.Client, logger *log.Logger) api.NonceStore {
	if client == nil {
		logger.Println("Tracking request nonces in memory")
		return api.NewMemoryNonceStore(nil)
	}
	logger.Println("Tracking request nonces in Redis")
	return api.NewRedisNonceStore(client)
}
