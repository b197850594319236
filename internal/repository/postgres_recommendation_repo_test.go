package repository

import (
	"context"
	"testing"
	"time"
)

// TestPostgresRecommendationRepo_ImplementsInterface はPostgresRecommendationRepoがRecommendationRepositoryを実装することを検証する。
func TestPostgresRecommendationRepo_ImplementsInterface(t *testing.T) {
	// コンパイル時チェック：PostgresRecommendationRepoがRecommendationRepositoryを満たすことを検証
	var _ RecommendationRepository = (*PostgresRecommendationRepo)(nil)
}

// TestNewPostgresRecommendationRepo_Initializes は初期化を検証する。
func TestNewPostgresRecommendationRepo_Initializes(t *testing.T) {
	repo := NewPostgresRecommendationRepo(nil)
	if repo == nil {
		t.Fatal("expected non-nil repo")
	}
}

// TestDeleteByUserAndIDs_EmptyList は空リストがDBアクセスなしで0件を返すことを検証する。
func TestDeleteByUserAndIDs_EmptyList(t *testing.T) {
	repo := NewPostgresRecommendationRepo(nil)

	deleted, err := repo.DeleteByUserAndIDs(context.Background(), "user-1", []string{})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if deleted != 0 {
		t.Errorf("deleted = %d, want 0", deleted)
	}
}

// TestMarkNotified_EmptyList は空リストがDBアクセスなしで成功することを検証する。
func TestMarkNotified_EmptyList(t *testing.T) {
	repo := NewPostgresRecommendationRepo(nil)

	if err := repo.MarkNotified(context.Background(), "user-1", nil, time.Now()); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
