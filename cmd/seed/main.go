// Command seed registers category keyword sets from a JSON file and can
// re-run classification over uncategorized products afterwards.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fekuna/affiliate-catalog-service/config"
	"github.com/fekuna/affiliate-catalog-service/internal/cache"
	"github.com/fekuna/affiliate-catalog-service/internal/category"
	catRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/category/repository"
	"github.com/fekuna/affiliate-catalog-service/internal/classifier"
	"github.com/fekuna/affiliate-catalog-service/internal/database"
	"github.com/fekuna/affiliate-catalog-service/internal/keyword"
	"github.com/fekuna/affiliate-catalog-service/internal/keyword/dto"
	kwRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/keyword/repository"
	kwUCPkg "github.com/fekuna/affiliate-catalog-service/internal/keyword/usecase"
	"github.com/fekuna/affiliate-catalog-service/internal/logger"
	prodRepoPkg "github.com/fekuna/affiliate-catalog-service/internal/product/repository"
	prodUCPkg "github.com/fekuna/affiliate-catalog-service/internal/product/usecase"
	"github.com/fekuna/affiliate-catalog-service/internal/search"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

type seedFile struct {
	Categories []dto.SeedCategory `json:"categories"`
}

func main() {
	file := flag.String("file", "seeds/categories.json", "path to the JSON seed file")
	reclassify := flag.Bool("reclassify", false, "classify uncategorized products after seeding")
	flag.Parse()

	_ = godotenv.Load()
	cfg := config.LoadEnv()

	appLogger := logger.NewZapLogger(&logger.ZapLoggerConfig{
		IsDevelopment:     true,
		Encoding:          "console",
		Level:             cfg.Logger.Level,
		DisableStacktrace: true,
	})
	defer appLogger.Sync()

	seeds, err := loadSeedFile(*file)
	if err != nil {
		appLogger.Fatal("Could not read seed file", zap.String("file", *file), zap.Error(err))
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

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

	catRepo := catRepoPkg.NewPGRepository(db)
	kwRepo := kwRepoPkg.NewPGRepository(db)

	// Without redis there is no cached snapshot to drop.
	var (
		invalidator category.SnapshotInvalidator
		redisClient *cache.RedisClient
		store       keyword.Store = kwRepo
	)
	redisClient, err = cache.NewRedisClient(&cache.Config{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err != nil {
		appLogger.Warn("Redis unavailable, classifier cache will expire on its own", zap.Error(err))
		redisClient = nil
	} else {
		defer redisClient.Close()
		cached := kwRepoPkg.NewCachedStore(kwRepo, redisClient.Client, cfg.Classifier.CachePrefix, cfg.Classifier.SnapshotTTL, appLogger)
		invalidator = cached
		store = cached
	}

	kwUC := kwUCPkg.NewKeywordUseCase(kwRepo, catRepo, invalidator, appLogger)
	report, err := kwUC.Seed(ctx, seeds)
	if err != nil {
		appLogger.Fatal("Seeding failed", zap.Error(err))
	}
	appLogger.Info("Seed finished",
		zap.Int("categories_created", report.CategoriesCreated),
		zap.Int("categories_seeded", report.CategoriesSeeded),
		zap.Int("keywords_inserted", report.KeywordsInserted),
		zap.Int("keywords_skipped", report.KeywordsSkipped),
	)

	if !*reclassify {
		return
	}

	esClient, err := search.NewClient(&search.Config{
		Addresses: cfg.Elastic.Addresses,
		Username:  cfg.Elastic.Username,
		Password:  cfg.Elastic.Password,
	})
	if err != nil {
		appLogger.Warn("Elasticsearch unavailable, search index keeps the old categories", zap.Error(err))
		esClient = nil
	}

	cls := classifier.NewClassifier(store, appLogger)
	prodUC := prodUCPkg.NewProductUseCase(prodRepoPkg.NewPGRepository(db), cls, redisClient, esClient, appLogger)
	result, err := prodUC.ReclassifyUncategorized(ctx)
	if err != nil {
		appLogger.Fatal("Reclassification failed", zap.Error(err))
	}
	// List cache invalidation and index sync run in the background.
	prodUC.Wait()
	appLogger.Info("Reclassification finished",
		zap.Int("scanned", result.Scanned),
		zap.Int("categorized", result.Categorized),
	)
}

func loadSeedFile(path string) ([]dto.SeedCategory, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var f seedFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	if len(f.Categories) == 0 {
		return nil, fmt.Errorf("%s: no categories", path)
	}
	return f.Categories, nil
}
