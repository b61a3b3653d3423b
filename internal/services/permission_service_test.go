package services

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"testing"

	sqlite "github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/tbourn/go-relay-bot/internal/domain"
)

const (
	guild   = "100000000000000001"
	channel = "200000000000000001"
	owner   = "300000000000000001"
	admin   = "300000000000000002"
	staff   = "300000000000000003"
	nobody  = "300000000000000004"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	dsn := fmt.Sprintf("file:permsvc_%s?mode=memory&cache=shared", uuid.NewString())

	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&domain.Community{}, &domain.CommunityMember{}); err != nil {
		t.Fatalf("automigrate: %v", err)
	}
	return db
}

func seeded(t *testing.T) *PermissionService {
	t.Helper()
	svc := NewPermissionService(newTestDB(t), owner)
	ctx := context.Background()
	if err := svc.AddAdmin(ctx, owner, guild, admin); err != nil {
		t.Fatalf("seed admin: %v", err)
	}
	if err := svc.AddStaff(ctx, admin, guild, staff); err != nil {
		t.Fatalf("seed staff: %v", err)
	}
	return svc
}

func TestGet_Unconfigured(t *testing.T) {
	svc := NewPermissionService(newTestDB(t))
	cfg, err := svc.Get(context.Background(), guild)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !cfg.IsEmpty() {
		t.Fatalf("expected empty config, got %+v", cfg)
	}
	if _, err := svc.Get(context.Background(), "not-a-snowflake"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
}

func TestAuthorize_Ladder(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()

	cases := []struct {
		actor string
		lvl   Level
		want  error
	}{
		{owner, LevelOwner, nil},
		{owner, LevelAdmin, nil},
		{owner, LevelStaff, nil},
		{Operator, LevelOwner, nil},
		{admin, LevelOwner, ErrNotOwner},
		{admin, LevelAdmin, nil},
		{admin, LevelStaff, nil},
		{staff, LevelAdmin, ErrNotAdmin},
		{staff, LevelStaff, nil},
		{nobody, LevelStaff, ErrNotStaff},
	}
	for _, tc := range cases {
		err := svc.Authorize(ctx, guild, tc.actor, tc.lvl)
		if !errors.Is(err, tc.want) {
			t.Fatalf("Authorize(%s, %d) = %v; want %v", tc.actor, tc.lvl, err, tc.want)
		}
	}
}

func TestAddAdmin_OwnerOnly(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()

	if err := svc.AddAdmin(ctx, admin, guild, nobody); !errors.Is(err, ErrNotOwner) {
		t.Fatalf("admin adding admin: expected ErrNotOwner, got %v", err)
	}
	if err := svc.AddAdmin(ctx, owner, guild, admin); !errors.Is(err, ErrAlreadyListed) {
		t.Fatalf("expected ErrAlreadyListed, got %v", err)
	}
	if err := svc.RemoveAdmin(ctx, owner, guild, nobody); !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}
	if err := svc.RemoveAdmin(ctx, owner, guild, admin); err != nil {
		t.Fatalf("RemoveAdmin: %v", err)
	}
	if ok, _ := svc.IsAdmin(ctx, guild, admin); ok {
		t.Fatalf("admin should have been removed")
	}
}

func TestStaffManagement_AdminRequired(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()

	if err := svc.AddStaff(ctx, staff, guild, nobody); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("staff adding staff: expected ErrNotAdmin, got %v", err)
	}
	if err := svc.AddStaff(ctx, owner, guild, nobody); err != nil {
		t.Fatalf("owner adding staff: %v", err)
	}
	if err := svc.RemoveStaff(ctx, admin, guild, nobody); err != nil {
		t.Fatalf("RemoveStaff: %v", err)
	}
	if err := svc.RemoveStaff(ctx, admin, guild, nobody); !errors.Is(err, ErrNotListed) {
		t.Fatalf("expected ErrNotListed, got %v", err)
	}

	cfg, err := svc.Get(ctx, guild)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !reflect.DeepEqual(cfg.AdminIDs, []string{admin}) || !reflect.DeepEqual(cfg.StaffIDs, []string{staff}) {
		t.Fatalf("unexpected config: %+v", cfg)
	}
}

func TestIsStaff_AdminsCount(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()
	for _, id := range []string{owner, admin, staff} {
		if ok, err := svc.IsStaff(ctx, guild, id); err != nil || !ok {
			t.Fatalf("IsStaff(%s) = %v, %v", id, ok, err)
		}
	}
	if ok, _ := svc.IsStaff(ctx, guild, nobody); ok {
		t.Fatalf("nobody should not be staff")
	}
}

func TestSetRelayChannel(t *testing.T) {
	svc := seeded(t)
	ctx := context.Background()

	if err := svc.SetRelayChannel(ctx, staff, guild, channel); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("expected ErrNotAdmin, got %v", err)
	}
	if err := svc.SetRelayChannel(ctx, admin, guild, "#general"); !errors.Is(err, ErrInvalidID) {
		t.Fatalf("expected ErrInvalidID, got %v", err)
	}
	if err := svc.SetRelayChannel(ctx, admin, guild, channel); err != nil {
		t.Fatalf("SetRelayChannel: %v", err)
	}
	cfg, _ := svc.Get(ctx, guild)
	if cfg.RelayChannelID != channel || !cfg.HasRelayChannel() {
		t.Fatalf("relay channel not stored: %+v", cfg)
	}
}

func TestListPage(t *testing.T) {
	svc := NewPermissionService(newTestDB(t), owner)
	ctx := context.Background()
	for _, id := range []string{"100000000000000003", "100000000000000001", "100000000000000002"} {
		if err := svc.SetRelayChannel(ctx, Operator, id, channel); err != nil {
			t.Fatalf("seed %s: %v", id, err)
		}
	}

	items, total, err := svc.ListPage(ctx, 1, 2)
	if err != nil {
		t.Fatalf("ListPage: %v", err)
	}
	if total != 3 || len(items) != 2 || items[0].ID != "100000000000000001" || items[1].ID != "100000000000000002" {
		t.Fatalf("page 1 unexpected: total=%d items=%+v", total, items)
	}
	items, _, err = svc.ListPage(ctx, 2, 2)
	if err != nil || len(items) != 1 || items[0].ID != "100000000000000003" {
		t.Fatalf("page 2 unexpected: %+v (%v)", items, err)
	}
	items, _, err = svc.ListPage(ctx, 0, 0)
	if err != nil || len(items) != 1 {
		t.Fatalf("clamped page unexpected: %+v (%v)", items, err)
	}
}

func TestOwners(t *testing.T) {
	svc := NewPermissionService(nil, "2", "", "1")
	svc.AddOwner("3")
	if got := svc.Owners(); !reflect.DeepEqual(got, []string{"1", "2", "3"}) {
		t.Fatalf("Owners() = %v", got)
	}
	if !svc.IsOwner(Operator) || svc.IsOwner("4") {
		t.Fatalf("IsOwner misreported")
	}
}

func TestValidID(t *testing.T) {
	for _, ok := range []string{"1", "201559221520269312"} {
		if !ValidID(ok) {
			t.Fatalf("ValidID(%q) = false", ok)
		}
	}
	for _, bad := range []string{"", "abc", "-1", "12 3", "123456789012345678901", "../x"} {
		if ValidID(bad) {
			t.Fatalf("ValidID(%q) = true", bad)
		}
	}
}
