package main

import (
	"context"
	"log"
	"net"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fekuna/affiliate-catalog-service/config"
	"github.com/fekuna/affiliate-catalog-service/internal/broker"
	"github.com/fekuna/affiliate-catalog-service/internal/cache"
	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/database"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	"github.com/fekuna/affiliate-catalog-service/internal/middleware"
	"github.com/fekuna/affiliate-catalog-service/internal/search"

	catH "github.com/fekuna/affiliate-catalog-service/internal/category/handler"
	catRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/category/repository"
	catUCPkg "github.com/fekuna/affiliate-catalog-service/internal/category/usecase"

	clsH "github.com/fekuna/affiliate-catalog-service/internal/classifier/handler"

	kwRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/keyword/repository"
	kwUCPkg "github.com/fekuna/affiliate-catalog-service/internal/keyword/usecase"

	prodH "github.com/fekuna/affiliate-catalog-service/internal/product/handler"
	prodListenerPkg "github.com/fekuna/affiliate-catalog-service/internal/product/listener"
	prodRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/affiliate-catalog-service/internal/product/usecase"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/reflection"
)

func main() {
	// 1. Load Configuration
	_ = godotenv.Load()
	cfg := config.LoadEnv()

	// 2. Initialize Logger
	logConfig := &logger.ZapLoggerConfig{
		IsDevelopment:     false,
		Encoding:          cfg.Logger.Encoding,
		Level:             cfg.Logger.Level,
		DisableCaller:     cfg.Logger.DisableCaller,
		DisableStacktrace: cfg.Logger.DisableStacktrace,
	}
	if cfg.Server.AppEnv == "development" || cfg.Server.AppEnv == "dev" {
		logConfig.IsDevelopment = true
	}

	appLogger := logger.NewZapLogger(logConfig)
	defer appLogger.Sync()

	// 3. Connect to Database
	db, err := database.NewPostgres(&database.Config{
		Host:            cfg.Postgres.Host,
		Port:            cfg.Postgres.Port,
		User:            cfg.Postgres.User,
		Password:        cfg.Postgres.Password,
		DBName:          cfg.Postgres.DBName,
		SSLMode:         cfg.Postgres.SSLMode,
		MaxOpenConns:    cfg.Postgres.MaxOpenConns,
		MaxIdleConns:    cfg.Postgres.MaxIdleConns,
		ConnMaxLifetime: time.Duration(cfg.Postgres.ConnMaxLifetime) * time.Second,
		ConnMaxIdleTime: time.Duration(cfg.Postgres.ConnMaxIdleTime) * time.Second,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to database", zap.Error(err))
	}
	defer db.Close()
	appLogger.Info("Connected to PostgreSQL database", zap.String("db_name", cfg.Postgres.DBName))

	// 4. Initialize Repositories
	catRepo := catRepoPkg.NewPGRepository(db)
	kwRepo := kwRepoPkg.NewPGRepository(db)
	prodRepo := prodRepoPkg.NewPGRepository(db)

	// 5. Initialize Redis
	redisClient, err := cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Fatal("Could not connect to Redis", zap.Error(err))
	}
	defer redisClient.Close()
	appLogger.Info("Connected to Redis", zap.String("addr", cfg.Redis.Addr))

	// The classifier reads the keyword universe through redis.
	keywordStore := kwRepoPkg.NewCachedStore(kwRepo, redisClient.Client, cfg.Classifier.CachePrefix, cfg.Classifier.SnapshotTTL, appLogger)
	cls := classifier.NewClassifier(keywordStore, appLogger)

	// 6. Initialize Kafka Consumer
	kafkaConsumer := broker.NewConsumer(&broker.Config{
		Brokers: cfg.Kafka.Brokers,
		Topic:   cfg.Kafka.Topic,
		GroupID: cfg.Kafka.GroupID,
	})
	defer kafkaConsumer.Close()
	appLogger.Info("Connected to Kafka Consumer", zap.Strings("brokers", cfg.Kafka.Brokers), zap.String("topic", cfg.Kafka.Topic))

	// 7. Initialize Elasticsearch
	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Could not connect to Elasticsearch, product search falls back to PostgreSQL", zap.Error(err))
		esClient = nil
	} else {
		appLogger.Info("Connected to Elasticsearch", zap.Strings("addresses", cfg.Elastic.Addresses))
	}

	// 8. Initialize UseCases
	catUC := catUCPkg.NewCategoryUseCase(catRepo, keywordStore, appLogger)
	kwUC := kwUCPkg.NewKeywordUseCase(kwRepo, catRepo, keywordStore, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepo, cls, redisClient, esClient, appLogger)

	// 9. Start Listeners
	importListener := prodListenerPkg.NewImportListener(kafkaConsumer, prodUC, appLogger)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go importListener.Start(ctx)

	// 10. Initialize Handlers
	catHandler := catH.NewCategoryHandler(catUC, kwUC, appLogger)
	clsHandler := clsH.NewClassifierHandler(cls, appLogger)
	prodHandler := prodH.NewProductHandler(prodUC, appLogger)

	// 11. Start gRPC Server
	port := cfg.Server.GRPCPort
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	lis, err := net.Listen("tcp", port)
	if err != nil {
		log.Fatalf("failed to listen: %v", err)
	}

	grpcServer := grpc.NewServer(
		grpc.UnaryInterceptor(middleware.ContextInterceptor(appLogger)),
	)

	catH.RegisterCategoryServer(grpcServer, catHandler)
	clsH.RegisterClassifierServer(grpcServer, clsHandler)
	prodH.RegisterProductServer(grpcServer, prodHandler)

	healthServer := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthServer)
	for _, svc := range []string{catH.ServiceName, clsH.ServiceName, prodH.ServiceName} {
		healthServer.SetServingStatus(svc, healthpb.HealthCheckResponse_SERVING)
	}

	reflection.Register(grpcServer)

	appLogger.Info("Starting gRPC server", zap.String("port", port))

	go func() {
		if err := grpcServer.Serve(lis); err != nil {
			appLogger.Fatal("failed to serve", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	appLogger.Info("Shutting down server...")
	healthServer.Shutdown()
	cancel()
	grpcServer.GracefulStop()
	prodUC.Wait()
	appLogger.Info("Server stopped")
}
