package users

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

type userLookup interface {
	FindByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	ListIDsByRole(ctx context.Context, role enums.UserRole) ([]uuid.UUID, error)
}

// Directory resolves acting users and answers role questions about them.
// The stored role is authoritative; the role in the access token is not
// trusted for admin decisions.
type Directory struct {
	repo userLookup
}

// NewDirectory wires a directory over the users repository.
func NewDirectory(repo userLookup) (*Directory, error) {
	if repo == nil {
		return nil, fmt.Errorf("users repository required")
	}
	return &Directory{repo: repo}, nil
}

// Get loads the acting user.
func (d *Directory) Get(ctx context.Context, userID uuid.UUID) (*models.User, error) {
	user, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "user not found")
		}
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user, nil
}

// IsPlatformAdmin reports whether userID may approve or disprove payments.
// An unknown user is simply not an admin.
func (d *Directory) IsPlatformAdmin(ctx context.Context, userID uuid.UUID) (bool, error) {
	user, err := d.repo.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return false, nil
		}
		return false, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "load user")
	}
	return user.Role == enums.UserRolePlatformAdmin, nil
}

// PlatformAdminIDs lists every platform admin.
func (d *Directory) PlatformAdminIDs(ctx context.Context) ([]uuid.UUID, error) {
	ids, err := d.repo.ListIDsByRole(ctx, enums.UserRolePlatformAdmin)
	if err != nil {
		return nil, pkgerrors.Wrap(pkgerrors.CodeInternal, err, "list platform admins")
	}
	return ids, nil
}
