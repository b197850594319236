// Package identity は外部IdPのidentityからローカルユーザーへの解決を提供する。
// 初回アクセス時にusersレコードとidentitiesレコードを遅延プロビジョニングする。
package identity

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/hitoshi/travira/internal/model"
	"github.com/hitoshi/travira/internal/repository"
)

// ExternalIdentity は外部IdPから取得したidentity情報を表す。
type ExternalIdentity struct {
	Provider       string // "google" 等
	ProviderUserID string
	Email          string
	Name           string
	Picture        string
}

// Resolver は外部identityをローカルユーザーに解決する。
type Resolver struct {
	userRepo  repository.UserRepository
	identRepo repository.IdentityRepository
}

// NewResolver はResolverを生成する。
func NewResolver(userRepo repository.UserRepository, identRepo repository.IdentityRepository) *Resolver {
	return &Resolver{
		userRepo:  userRepo,
		identRepo: identRepo,
	}
}

// Resolve は外部identityに対応するローカルユーザーを返す。
// 未登録の場合はusersとidentitiesを同一トランザクションで作成する。
// 同一identityの同時初回アクセスでユニーク制約違反が発生した場合は、
// 勝者が作成したレコードを再取得してフォールバックする。
// どちらの経路でも返るユーザーIDは同一になる。
func (r *Resolver) Resolve(ctx context.Context, ext ExternalIdentity) (*model.User, error) {
	ident, err := r.identRepo.FindByProviderAndProviderUserID(ctx, ext.Provider, ext.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find identity: %w", err)
	}

	if ident != nil {
		user, err := r.userRepo.FindByID(ctx, ident.UserID)
		if err != nil {
			return nil, fmt.Errorf("failed to find user: %w", err)
		}
		if user == nil {
			return nil, fmt.Errorf("identity %s references missing user %s", ident.ID, ident.UserID)
		}
		return user, nil
	}

	now := time.Now()
	newUser := &model.User{
		ID:        uuid.New().String(),
		Email:     ext.Email,
		Name:      ext.Name,
		Picture:   ext.Picture,
		CreatedAt: now,
		UpdatedAt: now,
	}
	newIdent := &model.Identity{
		ID:             uuid.New().String(),
		UserID:         newUser.ID,
		Provider:       ext.Provider,
		ProviderUserID: ext.ProviderUserID,
		CreatedAt:      now,
	}

	err = r.userRepo.CreateWithIdentity(ctx, newUser, newIdent)
	if err == nil {
		slog.Info("new user provisioned",
			slog.String("user_id", newUser.ID),
			slog.String("provider", ext.Provider),
		)
		return newUser, nil
	}

	if !repository.IsUniqueViolation(err) {
		return nil, fmt.Errorf("failed to create user and identity: %w", err)
	}

	// 同時初回アクセスに敗けた側: 勝者のレコードを再取得する
	slog.Info("concurrent provisioning detected, refetching",
		slog.String("provider", ext.Provider),
	)
	ident, err = r.identRepo.FindByProviderAndProviderUserID(ctx, ext.Provider, ext.ProviderUserID)
	if err != nil {
		return nil, fmt.Errorf("failed to refetch identity: %w", err)
	}
	if ident == nil {
		return nil, fmt.Errorf("identity disappeared after unique violation")
	}

	user, err := r.userRepo.FindByID(ctx, ident.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to find user: %w", err)
	}
	if user == nil {
		return nil, fmt.Errorf("identity %s references missing user %s", ident.ID, ident.UserID)
	}

	return user, nil
}
