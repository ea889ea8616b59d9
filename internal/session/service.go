package session

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	redislib "github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/internal/permissions"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/logger"
)

const snapshotCacheTTL = 5 * time.Minute

// Service loads and caches session snapshots. Every mutation that could
// change status, roles, or store binding must call Invalidate so the
// next load rebuilds from the database.
type Service interface {
	Load(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	Refresh(ctx context.Context, userID uuid.UUID) (*Snapshot, error)
	Invalidate(ctx context.Context, userID uuid.UUID) error
}

// SnapshotCache is the Redis surface the loader needs.
type SnapshotCache interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key string, value any, ttl time.Duration) error
	Del(ctx context.Context, keys ...string) error
	SessionSnapshotKey(userID string) string
}

type service struct {
	repo  Repository
	cache SnapshotCache
	logg  *logger.Logger
	now   func() time.Time
}

// NewService wires the session loader dependencies. The cache is
// optional; without it every load hits the database.
func NewService(repo Repository, cache SnapshotCache, logg *logger.Logger) (Service, error) {
	if repo == nil {
		return nil, pkgerrors.New(pkgerrors.CodeDependency, "session repository required")
	}
	return &service{
		repo:  repo,
		cache: cache,
		logg:  logg,
		now:   func() time.Time { return time.Now().UTC() },
	}, nil
}

func (s *service) Load(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
	if userID == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}

	if snap := s.cached(ctx, userID); snap != nil {
		return snap, nil
	}
	return s.Refresh(ctx, userID)
}

func (s *service) Refresh(ctx context.Context, userID uuid.UUID) (*Snapshot, error) {
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

	roles, err := s.repo.ListRoles(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load role grants")
	}

	row, err := s.repo.GetMembership(ctx, userID)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "load store membership")
	}

	snap := &Snapshot{
		UserID:      user.ID,
		Email:       user.Email,
		DisplayName: user.DisplayName,
		Status:      user.Status,
		Roles:       roles,
		LineLinked:  user.IsLinked(),
		LoadedAt:    s.now(),
	}

	if row != nil {
		snap.Membership = &Membership{
			StoreID:         row.StoreID,
			StoreName:       row.StoreName,
			IsOwner:         row.IsOwner,
			Role:            row.Role,
			Approved:        row.Approved,
			WebhookVerified: row.WebhookVerified,
			Capabilities: permissions.Resolve(permissions.Input{
				IsOwner:     row.IsOwner,
				SystemRoles: roles,
				HasStore:    true,
				Grant:       row.Permissions,
			}),
		}
	}

	s.storeCached(ctx, snap)
	return snap, nil
}

func (s *service) Invalidate(ctx context.Context, userID uuid.UUID) error {
	if userID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "user id required")
	}
	if s.cache == nil {
		return nil
	}
	if err := s.cache.Del(ctx, s.cache.SessionSnapshotKey(userID.String())); err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeDependency, err, "invalidate session snapshot")
	}
	return nil
}

func (s *service) cached(ctx context.Context, userID uuid.UUID) *Snapshot {
	if s.cache == nil {
		return nil
	}
	raw, err := s.cache.Get(ctx, s.cache.SessionSnapshotKey(userID.String()))
	if err != nil {
		if err != redislib.Nil && s.logg != nil {
			s.logg.Warn(ctx, "session snapshot cache read failed")
		}
		return nil
	}
	snap := &Snapshot{}
	if err := json.Unmarshal([]byte(raw), snap); err != nil {
		return nil
	}
	return snap
}

func (s *service) storeCached(ctx context.Context, snap *Snapshot) {
	if s.cache == nil || snap == nil {
		return
	}
	raw, err := json.Marshal(snap)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, s.cache.SessionSnapshotKey(snap.UserID.String()), string(raw), snapshotCacheTTL); err != nil && s.logg != nil {
		s.logg.Warn(ctx, "session snapshot cache write failed")
	}
}
