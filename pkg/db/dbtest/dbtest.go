// Package dbtest opens throwaway SQLite databases migrated with the embedded
// schema for repository and workflow tests.
package dbtest

import (
	"context"
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	"github.com/angelmondragon/storepay-backend/pkg/db"
	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	"github.com/angelmondragon/storepay-backend/pkg/migrate"
)

// Open returns a client over a private in-memory database. The pool is capped
// at one connection, so concurrent transactions run one after another and
// every statement inside a transaction must go through the tx handle.
func Open(t testing.TB) *db.Client {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	conn, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{
		SkipDefaultTransaction: true,
		Logger:                 gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)

	sqlDB, err := conn.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, migrate.ApplySQLite(context.Background(), sqlDB))
	return db.NewFromGorm(conn)
}

// Fixture is a paying tenant with an unpaid subscription on an unpaid store.
type Fixture struct {
	User         models.User
	Admin        models.User
	Store        models.Store
	Plan         models.Plan
	Subscription models.Subscription
	Bank         models.Bank
}

// Seed inserts a fresh Fixture.
func Seed(t testing.TB, client *db.Client) Fixture {
	t.Helper()

	f := Fixture{}
	f.User = SeedUser(t, client, enums.UserRoleMember)
	f.Admin = SeedUser(t, client, enums.UserRolePlatformAdmin)
	f.Store = SeedStore(t, client, f.User.ID, enums.StoreStatusUnpaid)
	f.Plan = models.Plan{ID: uuid.New(), Name: "Starter", PricePoint: decimal.NewFromInt(5000)}
	require.NoError(t, client.DB().Create(&f.Plan).Error)
	f.Subscription = SeedSubscription(t, client, f.User.ID, f.Store.ID, &f.Plan.ID, enums.SubscriptionStatusUnpaid)
	f.Bank = SeedBank(t, client, true)
	return f
}

func SeedUser(t testing.TB, client *db.Client, role enums.UserRole) models.User {
	t.Helper()
	id := uuid.New()
	user := models.User{
		ID:        id,
		Email:     id.String() + "@storepay.test",
		FirstName: "Ada",
		LastName:  "Obi",
		Role:      role,
	}
	require.NoError(t, client.DB().Create(&user).Error)
	return user
}

func SeedStore(t testing.TB, client *db.Client, ownerID uuid.UUID, status enums.StoreStatus) models.Store {
	t.Helper()
	store := models.Store{ID: uuid.New(), OwnerID: ownerID, Name: "Corner Shop", Status: status}
	require.NoError(t, client.DB().Create(&store).Error)
	return store
}

func SeedSubscription(t testing.TB, client *db.Client, userID, storeID uuid.UUID, planID *uuid.UUID, status enums.SubscriptionStatus) models.Subscription {
	t.Helper()
	sub := models.Subscription{
		ID:         uuid.New(),
		UserID:     userID,
		StoreID:    storeID,
		PlanID:     planID,
		PricePoint: decimal.NewFromInt(5000),
		Status:     status,
	}
	require.NoError(t, client.DB().Create(&sub).Error)
	return sub
}

func SeedBank(t testing.TB, client *db.Client, active bool) models.Bank {
	t.Helper()
	bank := models.Bank{
		ID:            uuid.New(),
		Name:          "First Bank",
		AccountName:   "Storepay Ltd",
		AccountNumber: "0123456789",
		IsActive:      active,
	}
	require.NoError(t, client.DB().Create(&bank).Error)
	return bank
}
