package linking

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/MarMoonz01/tiresync-hub-backend/pkg/config"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/db/models"
	"github.com/MarMoonz01/tiresync-hub-backend/pkg/enums"
	pkgerrors "github.com/MarMoonz01/tiresync-hub-backend/pkg/errors"
)

type noopInvalidator struct{}

func (noopInvalidator) Invalidate(ctx context.Context, userID uuid.UUID) error { return nil }

func newTestService(t *testing.T) (*service, *gorm.DB) {
	t.Helper()
	conn, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{
		SkipDefaultTransaction: true,
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := conn.AutoMigrate(&models.User{}, &models.LinkCode{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	svc, err := NewService(NewRepository(conn), noopInvalidator{}, nil, nil, config.LinkingConfig{
		CodeLength: 6,
		CodeTTL:    10 * time.Minute,
	}, nil)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}
	return svc.(*service), conn
}

func seedUser(t *testing.T, conn *gorm.DB) uuid.UUID {
	t.Helper()
	user := &models.User{
		Email:       uuid.NewString() + "@example.com",
		DisplayName: "Test User",
		Status:      enums.UserStatusApproved,
	}
	if err := conn.Create(user).Error; err != nil {
		t.Fatalf("seed user: %v", err)
	}
	return user.ID
}

func TestCreateCodeReissueInvalidatesPrior(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	first, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("first issue: %v", err)
	}
	second, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("reissue: %v", err)
	}
	if first.Code == second.Code {
		t.Fatal("reissue returned the same code")
	}

	var count int64
	conn.Model(&models.LinkCode{}).Where("user_id = ?", userID).Count(&count)
	if count != 1 {
		t.Fatalf("expected exactly one live code, got %d", count)
	}

	// The superseded code must no longer consume.
	err = svc.ConsumeCode(ctx, first.Code, "U-line-1")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected superseded code rejected, got %v", err)
	}
	if err := svc.ConsumeCode(ctx, second.Code, "U-line-1"); err != nil {
		t.Fatalf("consume live code: %v", err)
	}
}

func TestConsumeCodeIsSingleUse(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	issued, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	if err := svc.ConsumeCode(ctx, issued.Code, "U-line-2"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	var user models.User
	if err := conn.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.LineUserID == nil || *user.LineUserID != "U-line-2" {
		t.Fatalf("expected binding to U-line-2, got %v", user.LineUserID)
	}

	err = svc.ConsumeCode(ctx, issued.Code, "U-line-other")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected burned code rejected, got %v", err)
	}
	if err := conn.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("reload user: %v", err)
	}
	if *user.LineUserID != "U-line-2" {
		t.Fatalf("binding must not change on replay, got %s", *user.LineUserID)
	}
}

func TestConsumeCodeExpiryBoundaryIsInclusive(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	issuedAt := time.Now().UTC()
	svc.now = func() time.Time { return issuedAt }

	issued, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}

	// Exactly at the TTL the code is already invalid.
	svc.now = func() time.Time { return issuedAt.Add(10 * time.Minute) }
	err = svc.ConsumeCode(ctx, issued.Code, "U-line-3")
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeNotFound {
		t.Fatalf("expected expiry at boundary, got %v", err)
	}

	var user models.User
	if err := conn.First(&user, "id = ?", userID).Error; err != nil {
		t.Fatalf("load user: %v", err)
	}
	if user.LineUserID != nil {
		t.Fatalf("expired consumption must not bind, got %s", *user.LineUserID)
	}

	// One instant earlier it still consumes.
	svc.now = func() time.Time { return issuedAt.Add(10*time.Minute - time.Nanosecond) }
	if err := svc.ConsumeCode(ctx, issued.Code, "U-line-3"); err != nil {
		t.Fatalf("consume before boundary: %v", err)
	}
}

func TestCreateCodeRejectsLinkedIdentity(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	issued, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.ConsumeCode(ctx, issued.Code, "U-line-4"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	_, err = svc.CreateCode(ctx, userID)
	if typed := pkgerrors.As(err); typed == nil || typed.Code() != pkgerrors.CodeStateConflict {
		t.Fatalf("expected state conflict for linked identity, got %v", err)
	}
}

func TestUnlinkClearsBindingAndCodes(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	issued, err := svc.CreateCode(ctx, userID)
	if err != nil {
		t.Fatalf("issue: %v", err)
	}
	if err := svc.ConsumeCode(ctx, issued.Code, "U-line-5"); err != nil {
		t.Fatalf("consume: %v", err)
	}

	if err := svc.Unlink(ctx, userID); err != nil {
		t.Fatalf("unlink: %v", err)
	}

	status, err := svc.Status(ctx, userID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.Linked || status.CodeIssued {
		t.Fatalf("expected clean slate after unlink, got %+v", status)
	}

	var count int64
	conn.Model(&models.LinkCode{}).Where("user_id = ?", userID).Count(&count)
	if count != 0 {
		t.Fatalf("expected codes removed on unlink, got %d", count)
	}
}

func TestStatusHidesExpiredCode(t *testing.T) {
	svc, conn := newTestService(t)
	ctx := context.Background()
	userID := seedUser(t, conn)

	issuedAt := time.Now().UTC()
	svc.now = func() time.Time { return issuedAt }
	if _, err := svc.CreateCode(ctx, userID); err != nil {
		t.Fatalf("issue: %v", err)
	}

	svc.now = func() time.Time { return issuedAt.Add(time.Hour) }
	status, err := svc.Status(ctx, userID)
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if status.CodeIssued {
		t.Fatal("expired code must not be reported as issued")
	}
}

func TestGeneratedCodesUseRestrictedAlphabet(t *testing.T) {
	for i := 0; i < 50; i++ {
		code, err := generateCode(6)
		if err != nil {
			t.Fatalf("generate: %v", err)
		}
		if len(code) != 6 {
			t.Fatalf("expected length 6, got %q", code)
		}
		for _, c := range code {
			switch c {
			case 'I', 'L', 'O', '0', '1':
				t.Fatalf("confusable character %q in %q", c, code)
			}
		}
	}
}
