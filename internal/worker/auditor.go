package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	applog "fintrack/internal/log"
	"fintrack/internal/storage"
)

// AuditorConfig holds configuration for the balance auditor
type AuditorConfig struct {
	// Interval is how often balances are rebuilt and compared (default: 1h)
	Interval time.Duration
}

// DefaultAuditorConfig returns sensible defaults
func DefaultAuditorConfig() AuditorConfig {
	return AuditorConfig{Interval: time.Hour}
}

// AuditStore is the storage the auditor reads from.
type AuditStore interface {
	AuditAccountBalances(ctx context.Context) ([]storage.BalanceAudit, error)
}

// BalanceAuditor periodically checks that every stored running balance
// equals the balance rebuilt from the account's history, and reports drift.
type BalanceAuditor struct {
	store  AuditStore
	config AuditorConfig
	logger *applog.Logger

	// Lifecycle management
	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

func NewBalanceAuditor(store AuditStore, config AuditorConfig) *BalanceAuditor {
	if config.Interval <= 0 {
		config.Interval = DefaultAuditorConfig().Interval
	}
	return &BalanceAuditor{
		store:  store,
		config: config,
		logger: applog.Default(applog.ComponentLedger),
	}
}

// Start begins the audit loop. Returns an error if already running.
func (a *BalanceAuditor) Start(ctx context.Context) error {
	a.mu.Lock()
	if a.running {
		a.mu.Unlock()
		return fmt.Errorf("balance auditor is already running")
	}
	a.running = true
	stopCh, doneCh := make(chan struct{}), make(chan struct{})
	a.stopCh, a.doneCh = stopCh, doneCh
	a.mu.Unlock()

	go a.runLoop(ctx, stopCh, doneCh)

	a.logger.InfoContext(ctx, "Balance auditor started", "interval", a.config.Interval)
	return nil
}

// Stop signals the loop and waits for it to exit. After a timed out Stop
// the loop is still winding down; calling Stop again waits for it.
func (a *BalanceAuditor) Stop(ctx context.Context) error {
	a.mu.Lock()
	if !a.running {
		a.mu.Unlock()
		return nil
	}
	if a.stopCh != nil {
		close(a.stopCh)
		a.stopCh = nil
	}
	doneCh := a.doneCh
	a.mu.Unlock()

	select {
	case <-doneCh:
		a.logger.InfoContext(ctx, "Balance auditor stopped gracefully")
		return nil
	case <-ctx.Done():
		a.logger.WarnContext(ctx, "Balance auditor stop timed out")
		return ctx.Err()
	}
}

// IsRunning returns whether the auditor is currently running
func (a *BalanceAuditor) IsRunning() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.running
}

func (a *BalanceAuditor) runLoop(ctx context.Context, stopCh <-chan struct{}, doneCh chan struct{}) {
	defer close(doneCh)
	defer func() {
		a.mu.Lock()
		a.running = false
		a.stopCh, a.doneCh = nil, nil
		a.mu.Unlock()
	}()

	ticker := time.NewTicker(a.config.Interval)
	defer ticker.Stop()

	// Audit immediately on startup
	a.auditLogged(ctx)

	for {
		select {
		case <-stopCh:
			return
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.auditLogged(ctx)
		}
	}
}

func (a *BalanceAuditor) auditLogged(ctx context.Context) {
	if _, err := a.Audit(ctx); err != nil {
		a.logger.ErrorContext(ctx, "Balance audit failed", applog.FieldError, err)
	}
}

// Audit runs one pass and returns the accounts whose balance drifted.
func (a *BalanceAuditor) Audit(ctx context.Context) ([]storage.BalanceAudit, error) {
	audits, err := a.store.AuditAccountBalances(ctx)
	if err != nil {
		return nil, err
	}

	var drifted []storage.BalanceAudit
	for _, au := range audits {
		if au.Drift().IsZero() {
			continue
		}
		drifted = append(drifted, au)
		a.logger.ErrorContext(ctx, "Account balance drift detected",
			applog.FieldUserID, au.UserID,
			applog.FieldAccountID, au.AccountID,
			"current_cents", au.Current.Cents,
			"expected_cents", au.Expected.Cents,
			applog.FieldDeltaCents, au.Drift().Cents)
	}

	a.logger.DebugContext(ctx, "Balance audit completed",
		applog.FieldCount, len(audits), "drifted", len(drifted))
	return drifted, nil
}
