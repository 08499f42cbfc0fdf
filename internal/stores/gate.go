package stores

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	"github.com/angelmondragon/storepay-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

const msgStoreNotFound = "Store not found."

// Gate unlocks and locks the store a subscription pays for.
type Gate interface {
	WithTx(tx *gorm.DB) Gate
	FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error)
	Unlock(ctx context.Context, storeID uuid.UUID) error
	Lock(ctx context.Context, storeID uuid.UUID) error
}

type gate struct {
	repo Repository
}

// NewGate wires a store gate with the provided repository.
func NewGate(repo Repository) (Gate, error) {
	if repo == nil {
		return nil, fmt.Errorf("store repository required")
	}
	return &gate{repo: repo}, nil
}

func (g *gate) WithTx(tx *gorm.DB) Gate {
	if tx == nil {
		return g
	}
	return &gate{repo: g.repo.WithTx(tx)}
}

func (g *gate) FindByID(ctx context.Context, id uuid.UUID) (*models.Store, error) {
	store, err := g.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, msgStoreNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load store")
	}
	return store, nil
}

// Unlock marks the store paid. An already paid store is left as is.
func (g *gate) Unlock(ctx context.Context, storeID uuid.UUID) error {
	return g.setStatus(ctx, storeID, enums.StoreStatusPaid)
}

// Lock marks the store unpaid. An already unpaid store is left as is.
func (g *gate) Lock(ctx context.Context, storeID uuid.UUID) error {
	return g.setStatus(ctx, storeID, enums.StoreStatusUnpaid)
}

func (g *gate) setStatus(ctx context.Context, storeID uuid.UUID, status enums.StoreStatus) error {
	if storeID == uuid.Nil {
		return pkgerrors.New(pkgerrors.CodeValidation, "store id is required")
	}
	rows, err := g.repo.SetStatusIfDifferent(ctx, storeID, status)
	if err != nil {
		return pkgerrors.Wrap(pkgerrors.CodeInternal, err, "update store status")
	}
	if rows > 0 {
		return nil
	}
	// Nothing changed: either the store is already there or it does not exist.
	_, err = g.FindByID(ctx, storeID)
	return err
}
