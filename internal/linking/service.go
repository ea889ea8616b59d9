package linking

import (
	"context"
	"crypto/rand"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/events"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/metrics"
)

// codeAlphabet excludes visually confusable characters (I, L, O, 0, 1).
const codeAlphabet = "ABCDEFGHJKMNPQRSTUVWXYZ23456789"

// SessionInvalidator drops cached session state after a link change.
type SessionInvalidator interface {
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// Status reports the link state for one identity.
type Status struct {
	Linked        bool       `json:"linked"`
	LineUserID    string     `json:"line_user_id,omitempty"`
	CodeIssued    bool       `json:"code_issued"`
	CodeExpiresAt *time.Time `json:"code_expires_at,omitempty"`
}

// IssuedCode is returned to the identity that requested a link code.
type IssuedCode struct {
	Code      string    `json:"code"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Service drives the identity-link state machine:
// unlinked → code_issued → linked, with reissue and lazy expiry edges.
type Service interface {
	CreateCode(ctx context.Context, userID uuid.UUID) (*IssuedCode, error)
	ConsumeCode(ctx context.Context, code, lineUserID string) error
	Unlink(ctx context.Context, userID uuid.UUID) error
	Status(ctx context.Context, userID uuid.UUID) (*Status, error)
}

type service struct {
	repo      Repository
	sessions  SessionInvalidator
	publisher events.Publisher
	authz     *metrics.AuthzMetrics
	logg      *logger.Logger
	cfg       config.LinkingConfig
	now       func() time.Time
}

// NewService wires linking dependencies.
func NewService(repo Repository, sessions SessionInvalidator, publisher events.Publisher, authz *metrics.AuthzMetrics, cfg config.LinkingConfig, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "linking repository required")
	}
	if sessions == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session invalidator required")
	}
	if publisher == nil {
		publisher = events.NoopPublisher{}
	}
	if cfg.CodeLength <= 0 {
		cfg.CodeLength = 6
	}
	if cfg.CodeTTL <= 0 {
		cfg.CodeTTL = 10 * time.Minute
	}
	return &service{
		repo:      repo,
		sessions:  sessions,
		publisher: publisher,
		authz:     authz,
		logg:      logg,
		cfg:       cfg,
		now:       func() time.Time { return time.Now().UTC() },
	}, nil
}

// CreateCode issues a fresh code, deleting any prior code for the
// identity in the same transaction so at most one code is ever live.
func (s *service) CreateCode(ctx context.Context, userID uuid.UUID) (*IssuedCode, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}
	if user.IsLinked() {
		return nil, pkgerrors.New(pkgerrors.CodeStateConflict, "identity already linked")
	}

	value, err := generateCode(s.cfg.CodeLength)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "generate link code")
	}

	hadPrior := false
	if _, err := s.repo.GetCodeByUser(ctx, userID); err == nil {
		hadPrior = true
	}

	code := &models.LinkCode{
		UserID:    userID,
		Code:      value,
		ExpiresAt: s.now().Add(s.cfg.CodeTTL),
	}

	err = s.repo.Transaction(ctx, func(repo Repository) error {
		if err := repo.DeleteCodesForUser(ctx, userID); err != nil {
			return err
		}
		return repo.CreateCode(ctx, code)
	})
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "issue link code")
	}

	if hadPrior {
		s.authz.IncLinkOutcome("reissued")
	} else {
		s.authz.IncLinkOutcome("issued")
	}
	return &IssuedCode{Code: code.Code, ExpiresAt: code.ExpiresAt}, nil
}

// ConsumeCode binds the LINE account to the code's identity and burns
// the code atomically. Failed preconditions return typed errors; the
// webhook boundary treats them as silent no-ops.
func (s *service) ConsumeCode(ctx context.Context, code, lineUserID string) error {
	code = strings.ToUpper(strings.TrimSpace(code))
	if code == "" || strings.TrimSpace(lineUserID) == "" {
		return pkgerrors.New(pkgerrors.CodeValidation, "code and line user id required")
	}

	row, err := s.repo.GetCodeByValue(ctx, code)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			s.authz.IncLinkOutcome("invalid")
			return pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired code")
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link code")
	}

	if row.ExpiredAt(s.now()) {
		s.authz.IncLinkOutcome("expired")
		return pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired code")
	}

	err = s.repo.Transaction(ctx, func(repo Repository) error {
		deleted, err := repo.DeleteCode(ctx, row.ID)
		if err != nil {
			return err
		}
		if !deleted {
			// A concurrent consumer already burned it.
			return pkgerrors.New(pkgerrors.CodeNotFound, "invalid or expired code")
		}
		return repo.BindLineUser(ctx, row.UserID, lineUserID)
	})
	if err != nil {
		if typed := pkgerrors.As(err); typed != nil && typed.Code() == pkgerrors.CodeNotFound {
			s.authz.IncLinkOutcome("invalid")
			return err
		}
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "consume link code")
	}

	s.authz.IncLinkOutcome("consumed")
	s.afterLinkChange(ctx, row.UserID, map[string]string{"op": "linked"})
	return nil
}

// Unlink clears the external binding; no code exchange is required.
func (s *service) Unlink(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	if err := s.repo.UnbindLineUser(ctx, userID); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "unlink identity")
	}
	// Drop any outstanding code too; an unlinked identity starts clean.
	if err := s.repo.DeleteCodesForUser(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "stale link code cleanup failed")
	}

	s.afterLinkChange(ctx, userID, map[string]string{"op": "unlinked"})
	return nil
}

// Status reports link state, lazily treating an expired code as absent.
func (s *service) Status(ctx context.Context, userID uuid.UUID) (*Status, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	user, err := s.repo.GetUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, pkgerrors.New(pkgerrors.CodeNotFound, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load user")
	}

	status := &Status{Linked: user.IsLinked()}
	if user.LineUserID != nil {
		status.LineUserID = *user.LineUserID
	}

	code, err := s.repo.GetCodeByUser(ctx, userID)
	if err != nil {
		if err == gorm.ErrRecordNotFound {
			return status, nil
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load link code")
	}
	if !code.ExpiredAt(s.now()) {
		status.CodeIssued = true
		status.CodeExpiresAt = &code.ExpiresAt
	}
	return status, nil
}

func (s *service) afterLinkChange(ctx context.Context, userID uuid.UUID, payload any) {
	if err := s.sessions.Invalidate(ctx, userID); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "session invalidation failed after link change")
	}
	event, err := events.NewChangeEvent(enums.EventLineLinkChanged, &userID, nil, payload)
	if err != nil {
		if s.logg != nil {
			s.logg.Error(ctx, "build link change event", err)
		}
		return
	}
	if err := s.publisher.Publish(ctx, event); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "link change event publish failed")
	}
}

func generateCode(length int) (string, error) {
	if length <= 0 {
		return "", fmt.Errorf("code length must be positive")
	}
	buf := make([]byte, length)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("reading randomness: %w", err)
	}
	out := make([]byte, length)
	for i, b := range buf {
		out[i] = codeAlphabet[int(b)%len(codeAlphabet)]
	}
	return string(out), nil
}
