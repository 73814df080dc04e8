package common

import (
	"fmt"

	"github.com/jonesrussell/goindexer/internal/config"
	"github.com/jonesrussell/goindexer/internal/credentials"
	"github.com/jonesrussell/goindexer/internal/logger"
	"github.com/jonesrussell/goindexer/internal/queue"
)

// OpenQueue loads the URL queue from the configured snapshot file.
// This consolidates the open pattern used across all commands.
func OpenQueue(cfg config.Interface, log logger.Interface) (*queue.Queue, error) {
	queueCfg := cfg.GetQueueConfig()
	q, err := queue.Load(queue.Params{
		Path:        queueCfg.URLsFile,
		MaxAttempts: queueCfg.MaxAttempts,
		Logger:      log,
	})
	if err != nil {
		return nil, fmt.Errorf("open URL queue: %w", err)
	}
	return q, nil
}

// OpenCredentials loads the service account keys from the configured
// directory. An empty directory surfaces as credentials.ErrNoCredentials.
func OpenCredentials(cfg config.Interface, log logger.Interface) (*credentials.Store, error) {
	return credentials.Load(cfg.GetIndexerConfig().APIKeysDir, log)
}
