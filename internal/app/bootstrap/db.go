// internal/app/bootstrap/db.go
package bootstrap

import (
	"context"
	"fmt"

	"github.com/dalemusser/stratadrive/internal/app/system/blobstore"
	"github.com/dalemusser/stratadrive/internal/app/system/indexes"
	"github.com/dalemusser/stratadrive/internal/app/system/validators"
	"github.com/dalemusser/waffle/config"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/dalemusser/waffle/pantry/storage"
	"go.uber.org/zap"
)

// ConnectDB connects to MongoDB and initializes the blob backend.
//
// WAFFLE calls this after configuration is loaded but before EnsureSchema and
// Startup. Clients stored in DBDeps live for the whole process.
func ConnectDB(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, logger *zap.Logger) (DBDeps, error) {
	// Configure MongoDB connection pool
	poolCfg := wafflemongo.DefaultPoolConfig()
	if appCfg.MongoMaxPoolSize > 0 {
		poolCfg.MaxPoolSize = appCfg.MongoMaxPoolSize
	}
	if appCfg.MongoMinPoolSize > 0 {
		poolCfg.MinPoolSize = appCfg.MongoMinPoolSize
	}

	client, err := wafflemongo.ConnectWithPool(ctx, appCfg.MongoURI, appCfg.MongoDatabase, poolCfg)
	if err != nil {
		return DBDeps{}, err
	}

	db := client.Database(appCfg.MongoDatabase)

	logger.Info("connected to MongoDB",
		zap.String("database", appCfg.MongoDatabase),
		zap.Uint64("max_pool_size", poolCfg.MaxPoolSize),
		zap.Uint64("min_pool_size", poolCfg.MinPoolSize),
	)

	deps := DBDeps{
		MongoClient:   client,
		MongoDatabase: db,
	}
	if err := connectBlobs(ctx, appCfg, &deps, logger); err != nil {
		_ = client.Disconnect(ctx)
		return DBDeps{}, err
	}
	return deps, nil
}

// connectBlobs selects the blob backend named by storage_type.
func connectBlobs(ctx context.Context, appCfg AppConfig, deps *DBDeps, logger *zap.Logger) error {
	switch appCfg.StorageType {
	case "r2":
		r2, err := blobstore.NewR2(ctx, blobstore.R2Config{
			Endpoint:        appCfg.R2Endpoint,
			Bucket:          appCfg.R2Bucket,
			AccessKeyID:     appCfg.R2AccessKeyID,
			SecretAccessKey: appCfg.R2SecretAccessKey,
			PublicURL:       appCfg.R2PublicURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize R2 storage: %w", err)
		}
		deps.Blobs = r2
		logger.Info("initialized R2 blob storage",
			zap.String("endpoint", appCfg.R2Endpoint),
			zap.String("bucket", appCfg.R2Bucket),
		)

	case "s3":
		store, err := storage.NewS3(ctx, storage.S3Config{
			Region:                   appCfg.StorageS3Region,
			Bucket:                   appCfg.StorageS3Bucket,
			Prefix:                   appCfg.StorageS3Prefix,
			CloudFrontURL:            appCfg.StorageCFURL,
			CloudFrontKeyPairID:      appCfg.StorageCFKeyPairID,
			CloudFrontPrivateKeyPath: appCfg.StorageCFKeyPath,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize S3 storage: %w", err)
		}
		w := blobstore.NewWaffle(store, []byte(appCfg.BlobSignKey), appCfg.BaseURL)
		deps.Blobs, deps.BlobResolver = w, w
		logger.Info("initialized S3/CloudFront blob storage",
			zap.String("bucket", appCfg.StorageS3Bucket),
			zap.String("prefix", appCfg.StorageS3Prefix),
		)

	case "local", "":
		store, err := storage.NewLocal(storage.LocalConfig{
			BasePath: appCfg.StorageLocalPath,
			BaseURL:  appCfg.StorageLocalURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize local storage: %w", err)
		}
		w := blobstore.NewWaffle(store, []byte(appCfg.BlobSignKey), appCfg.BaseURL)
		deps.Blobs, deps.BlobResolver = w, w
		logger.Info("initialized local blob storage",
			zap.String("path", appCfg.StorageLocalPath),
		)

	case "memory":
		deps.Blobs = blobstore.NewMemory()
		logger.Warn("using in-memory blob storage; contents are lost on restart")

	default:
		return fmt.Errorf("unknown storage type: %s", appCfg.StorageType)
	}
	return nil
}

// EnsureSchema creates collections, validators and indexes.
//
// This runs after ConnectDB succeeds but before Startup and before the HTTP
// handler is built. The context has a timeout based on
// coreCfg.IndexBootTimeout.
func EnsureSchema(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	db := deps.MongoDatabase

	// Validators first so indexes are created on existing collections.
	logger.Info("ensuring collections and validators")
	if err := validators.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure validators", zap.Error(err))
		return err
	}

	logger.Info("ensuring database indexes")
	if err := indexes.EnsureAll(ctx, db); err != nil {
		logger.Error("failed to ensure indexes", zap.Error(err))
		return err
	}

	logger.Info("database schema ensured successfully")
	return nil
}
