package license

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"purepresenter/internal/config"
	apperrors "purepresenter/internal/errors"
)

// StateStore persists the activation record
type StateStore interface {
	Save(ctx context.Context, token, label string) (*State, error)
	Load(ctx context.Context) (*State, error)
	Delete(ctx context.Context) error
}

// RevocationSource provides the current revocation registry
type RevocationSource interface {
	Load(ctx context.Context) *Registry
}

// Manager combines token verification, revocation and expiry into a single
// authorization verdict. Checks never fail: every problem is folded into the
// returned Verdict or ActivationResult.
type Manager struct {
	codec            *TokenCodec
	store            StateStore
	revocations      RevocationSource
	expiringSoonDays int
	clock            Clock
	metrics          *Metrics
	logger           *slog.Logger

	// mu serializes activation and deactivation within the process
	mu sync.Mutex
}

// Option configures a Manager
type Option func(*Manager)

// WithClock replaces time.Now
func WithClock(clock Clock) Option {
	return func(m *Manager) {
		if clock != nil {
			m.clock = clock
		}
	}
}

// WithExpiringSoonDays sets the window in which a valid license is flagged
func WithExpiringSoonDays(days int) Option {
	return func(m *Manager) {
		if days >= 0 {
			m.expiringSoonDays = days
		}
	}
}

// WithMetrics records checks and activations
func WithMetrics(metrics *Metrics) Option {
	return func(m *Manager) {
		m.metrics = metrics
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(m *Manager) {
		if logger != nil {
			m.logger = logger
		}
	}
}

// NewManager creates a decision engine
func NewManager(codec *TokenCodec, store StateStore, revocations RevocationSource, opts ...Option) *Manager {
	m := &Manager{
		codec:            codec,
		store:            store,
		revocations:      revocations,
		expiringSoonDays: config.DefaultExpiringSoonDays,
		clock:            time.Now,
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		opt(m)
	}
	m.logger = m.logger.With(slog.String("component", "license.manager"))
	return m
}

// Check loads the stored license and classifies it. Order matters:
// missing state, then revocation, then token validity, then expiry.
func (m *Manager) Check(ctx context.Context) Verdict {
	start := time.Now()
	verdict := m.check(ctx)
	m.metrics.RecordCheck(ctx, verdict.Status, time.Since(start))

	m.logger.InfoContext(ctx, "License checked",
		slog.String("status", string(verdict.Status)),
		slog.Bool("authorized", verdict.Authorized),
		slog.String("customer_id", verdict.CustomerID),
		slog.Int("days_remaining", intValue(verdict.DaysRemaining)))

	return verdict
}

func (m *Manager) check(ctx context.Context) Verdict {
	now := m.clock()

	state, err := m.store.Load(ctx)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNoLicense) {
			m.logger.WarnContext(ctx, "Stored license is unusable, treating as not activated",
				slog.String("error", err.Error()))
		}
		return Verdict{
			Status:    StatusNoLicense,
			Message:   MsgNoLicense,
			CheckedAt: now,
		}
	}

	if rev := m.revocations.Load(ctx).IsRevoked(state.LicenseKey); rev.Revoked {
		m.logger.WarnContext(ctx, "Stored license is revoked",
			slog.String("license_key", MaskLicenseKey(state.LicenseKey)),
			slog.String("scope", rev.Scope))
		return Verdict{
			Status:       StatusRevoked,
			Message:      rev.Message,
			CustomerID:   CustomerOf(state.LicenseKey),
			CustomerInfo: state.CustomerInfo,
			CheckedAt:    now,
		}
	}

	validation, err := m.codec.ParseAndVerifyAt(state.LicenseKey, now)
	if err != nil {
		m.logger.WarnContext(ctx, "Stored license failed verification",
			slog.String("license_key", MaskLicenseKey(state.LicenseKey)),
			slog.String("error", err.Error()))
		return Verdict{
			Status:       StatusInvalid,
			Message:      rejectionMessage(err),
			CustomerInfo: state.CustomerInfo,
			CheckedAt:    now,
		}
	}

	verdict := Verdict{
		CustomerID:    validation.CustomerID,
		Expiry:        timePtr(validation.Expiry),
		DaysRemaining: intPtr(validation.DaysRemaining),
		ActivatedDate: timePtr(state.ActivatedDate),
		CustomerInfo:  state.CustomerInfo,
		CheckedAt:     now,
	}

	switch {
	case validation.Expired:
		verdict.Status = StatusExpired
		verdict.Message = fmt.Sprintf(msgExpiredOnFormat, validation.Expiry.Format(DateLayout))
	case validation.DaysRemaining <= m.expiringSoonDays:
		verdict.Status = StatusExpiringSoon
		verdict.Message = fmt.Sprintf(msgExpiresInFormat, validation.DaysRemaining)
	default:
		verdict.Status = StatusActive
		verdict.Message = MsgActive
	}
	verdict.Authorized = verdict.Status.Authorized()

	return verdict
}

// Activate verifies token and, only if it is usable, stores it as the
// installation's license. Already expired keys are refused here even though
// an expired stored license is merely reported by Check.
func (m *Manager) Activate(ctx context.Context, token, label string) ActivationResult {
	m.mu.Lock()
	defer m.mu.Unlock()

	token = strings.TrimSpace(token)
	label = strings.TrimSpace(label)

	result := m.activate(ctx, token, label)
	m.metrics.RecordActivation(ctx, result)

	if result.Success {
		m.logger.InfoContext(ctx, "License activated",
			slog.String("license_key", MaskLicenseKey(token)),
			slog.String("customer_id", result.CustomerID),
			slog.Int("days_remaining", intValue(result.DaysRemaining)))
	} else {
		m.logger.WarnContext(ctx, "License activation rejected",
			slog.String("license_key", MaskLicenseKey(token)),
			slog.String("status", string(result.Status)),
			slog.String("reason", result.Message))
	}

	return result
}

func (m *Manager) activate(ctx context.Context, token, label string) ActivationResult {
	if rev := m.revocations.Load(ctx).IsRevoked(token); rev.Revoked {
		return ActivationResult{
			Status:  StatusRevoked,
			Message: rev.Message,
			Err:     apperrors.NewRevokedError(rev.Message),
		}
	}

	validation, err := m.codec.ParseAndVerifyAt(token, m.clock())
	if err != nil {
		return ActivationResult{
			Status:  StatusInvalid,
			Message: rejectionMessage(err),
			Err:     err,
		}
	}

	if validation.Expired {
		return ActivationResult{
			Status:        StatusExpired,
			Message:       MsgAlreadyExpired,
			CustomerID:    validation.CustomerID,
			Expiry:        timePtr(validation.Expiry),
			DaysRemaining: intPtr(validation.DaysRemaining),
			Err:           apperrors.NewExpiredError(MsgAlreadyExpired),
		}
	}

	if _, err := m.store.Save(ctx, token, label); err != nil {
		return ActivationResult{
			Message: MsgSaveFailed,
			Err:     err,
		}
	}

	status := StatusActive
	if validation.DaysRemaining <= m.expiringSoonDays {
		status = StatusExpiringSoon
	}

	return ActivationResult{
		Success:       true,
		Status:        status,
		Message:       MsgActivated,
		CustomerID:    validation.CustomerID,
		Expiry:        timePtr(validation.Expiry),
		DaysRemaining: intPtr(validation.DaysRemaining),
	}
}

// Deactivate removes the stored license. It reports false only when the file
// exists and could not be removed.
func (m *Manager) Deactivate(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	if err := m.store.Delete(ctx); err != nil {
		m.logger.ErrorContext(ctx, "License deactivation failed", slog.String("error", err.Error()))
		return false
	}

	m.logger.InfoContext(ctx, "License deactivated")
	return true
}

// LicenseData returns the stored record, or nil when there is none
func (m *Manager) LicenseData(ctx context.Context) *State {
	state, err := m.store.Load(ctx)
	if err != nil {
		return nil
	}
	return state
}

// rejectionMessage returns the user-facing text of a token rejection
func rejectionMessage(err error) string {
	var licErr *apperrors.LicenseError
	if errors.As(err, &licErr) {
		return licErr.Message
	}
	return MsgInvalidFormat
}
