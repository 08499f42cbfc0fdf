package banks

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/angelmondragon/storepay-backend/pkg/db/models"
	pkgerrors "github.com/angelmondragon/storepay-backend/pkg/errors"
)

const MsgBankNotFound = "Bank not found."

type bankRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bank, error)
	ListActive(ctx context.Context) ([]models.Bank, error)
}

// Service exposes bank lookups.
type Service interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.Bank, error)
	ListActive(ctx context.Context) ([]BankDTO, error)
}

// BankDTO is the transport shape for a bank a tenant can transfer to.
type BankDTO struct {
	ID            uuid.UUID `json:"id"`
	Name          string    `json:"name"`
	AccountName   string    `json:"account_name"`
	AccountNumber string    `json:"account_number"`
}

type service struct {
	repo bankRepository
}

// NewService builds a bank service with the provided repository.
func NewService(repo bankRepository) (Service, error) {
	if repo == nil {
		return nil, fmt.Errorf("bank repository required")
	}
	return &service{repo: repo}, nil
}

// FindByID loads a bank; inactive banks are still returned so historic
// transfers keep resolving.
func (s *service) FindByID(ctx context.Context, id uuid.UUID) (*models.Bank, error) {
	if id == uuid.Nil {
		return nil, pkgerrors.New(pkgerrors.CodeNotFound, MsgBankNotFound)
	}
	bank, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeNotFound, err, MsgBankNotFound)
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load bank")
	}
	return bank, nil
}

func (s *service) ListActive(ctx context.Context) ([]BankDTO, error) {
	banks, err := s.repo.ListActive(ctx)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list banks")
	}
	out := make([]BankDTO, 0, len(banks))
	for _, bank := range banks {
		out = append(out, FromModel(bank))
	}
	return out, nil
}

func FromModel(bank models.Bank) BankDTO {
	return BankDTO{
		ID:            bank.ID,
		Name:          bank.Name,
		AccountName:   bank.AccountName,
		AccountNumber: bank.AccountNumber,
	}
}
