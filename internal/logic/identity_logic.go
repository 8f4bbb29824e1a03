package logic

import (
	"context"

	"github.com/blues/pledges/internal/model"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// IdentityLogic resolves raw username hints against registered users.
// Implements IdentityResolver.
type IdentityLogic struct {
	db *gorm.DB
}

// NewIdentityLogic creates the resolver.
func NewIdentityLogic(db *gorm.DB) *IdentityLogic {
	return &IdentityLogic{db: db}
}

// ResolveGithubUsername returns the id of the user with this username, or
// nil when no such user has signed up.
func (i *IdentityLogic) ResolveGithubUsername(ctx context.Context, username string) (*uuid.UUID, error) {
	var user model.User
	if err := i.db.WithContext(ctx).First(&user, "github_username = ?", username).Error; err != nil {
		if err == gorm.ErrRecordNotFound {
			return nil, nil
		}
		return nil, err
	}
	return &user.ID, nil
}
