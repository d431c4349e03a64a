package background

import (
	"context"
	"log/slog"
	"time"
)

// TokenPruner drops expired per-user form tokens
type TokenPruner interface {
	PruneExpired() int
}

// DenyFileSyncer rewrites the web-server deny file from the repository
type DenyFileSyncer interface {
	Enabled() bool
	SyncFile(ctx context.Context) error
}

// MaintenanceManager periodically prunes form tokens and re-syncs the deny file,
// so a sync that failed during a request is retried.
type MaintenanceManager struct {
	tokens   TokenPruner
	denyList DenyFileSyncer
	logger   *slog.Logger
	interval time.Duration
	stopCh   chan struct{}
}

// NewMaintenanceManager creates a new maintenance manager
func NewMaintenanceManager(tokens TokenPruner, denyList DenyFileSyncer, logger *slog.Logger, interval time.Duration) *MaintenanceManager {
	return &MaintenanceManager{
		tokens:   tokens,
		denyList: denyList,
		logger:   logger,
		interval: interval,
		stopCh:   make(chan struct{}),
	}
}

// Start runs the maintenance loop until Stop is called or ctx is cancelled
func (m *MaintenanceManager) Start(ctx context.Context) {
	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	// Run immediately on startup
	m.run(ctx)

	for {
		select {
		case <-ticker.C:
			m.run(ctx)
		case <-m.stopCh:
			m.logger.Info("maintenance manager stopped")
			return
		case <-ctx.Done():
			m.logger.Info("maintenance manager context cancelled")
			return
		}
	}
}

func (m *MaintenanceManager) run(ctx context.Context) {
	if pruned := m.tokens.PruneExpired(); pruned > 0 {
		m.logger.Info("expired form tokens pruned", slog.Int("count", pruned))
	}

	if !m.denyList.Enabled() {
		return
	}

	syncCtx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	if err := m.denyList.SyncFile(syncCtx); err != nil {
		m.logger.Error("failed to sync deny file", slog.Any("error", err))
	}
}

// Stop signals the maintenance manager to stop
func (m *MaintenanceManager) Stop() {
	close(m.stopCh)
}
