// internal/app/bootstrap/startup.go
package bootstrap

import (
	"context"

	"github.com/dalemusser/stratadrive/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/config"
	"go.uber.org/zap"
)

// Startup runs once after DB connections and schema/index setup are complete,
// but before the HTTP handler is built and requests are served.
//
// Returning a non-nil error aborts startup.
func Startup(ctx context.Context, coreCfg *config.CoreConfig, appCfg AppConfig, deps DBDeps, logger *zap.Logger) error {
	timeouts.Configure(timeouts.Config{
		Ping:  appCfg.PingTimeout,
		Query: appCfg.QueryTimeout,
		Blob:  appCfg.BlobTimeout,
	})
	current := timeouts.Current()
	logger.Info("operation timeouts configured",
		zap.Duration("ping", current.Ping),
		zap.Duration("query", current.Query),
		zap.Duration("blob", current.Blob),
	)
	return nil
}
