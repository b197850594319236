// Package repository はデータ永続化のインターフェースを定義する。
package repository

import (
	"context"
	"time"

	"github.com/hitoshi/travira/internal/model"
)

// UserRepository はユーザーデータの永続化インターフェース。
type UserRepository interface {
	// FindByID は指定IDのユーザーを取得する。見つからない場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.User, error)

	// CreateWithIdentity はユーザーとidentityを同一トランザクションで作成する。
	// identitiesの(provider, provider_user_id)ユニーク制約に違反した場合、
	// IsUniqueViolationがtrueを返すエラーを返す。
	CreateWithIdentity(ctx context.Context, user *model.User, identity *model.Identity) error

	// UpdateTrial はユーザーのトライアルメタデータを書き込む。
	// トライアル開始時にのみ呼ばれる（再呼び出しはウィンドウのリセット）。
	UpdateTrial(ctx context.Context, userID, status string, trialEndsAt time.Time) error

	// DeleteByID は指定IDのユーザーを削除する。
	// 関連データは外部キーのCASCADE削除で処理される。
	DeleteByID(ctx context.Context, id string) error
}

// IdentityRepository は外部IdP紐付け情報の永続化インターフェース。
type IdentityRepository interface {
	// FindByProviderAndProviderUserID はproviderとprovider_user_idでidentityを検索する。
	// 見つからない場合はnilを返す。
	FindByProviderAndProviderUserID(ctx context.Context, provider, providerUserID string) (*model.Identity, error)
}

// SessionRepository はセッションデータの永続化インターフェース。
type SessionRepository interface {
	// Create はセッションを作成する。
	Create(ctx context.Context, session *model.Session) error
	// FindByID は指定IDのセッションを取得する。期限切れの場合はnilを返す。
	FindByID(ctx context.Context, id string) (*model.Session, error)
	// DeleteByID は指定IDのセッションを削除する。
	DeleteByID(ctx context.Context, id string) error
	// DeleteByUserID は指定ユーザーの全セッションを削除する。
	DeleteByUserID(ctx context.Context, userID string) error
	// DeleteExpired は期限切れセッションを削除し、削除件数を返す。
	DeleteExpired(ctx context.Context) (int64, error)
}

// PreferenceUpdate は旅行設定の部分更新を表す。
// nilフィールドは変更せず、既存の値を維持する。
type PreferenceUpdate struct {
	HomeAirports      *[]string
	DreamDestinations *[]string
	DeliveryFrequency *model.DeliveryFrequency
	MaxBudget         *float64
	PreferredAirlines *[]string
	Currency          *string
	HeaderImageURL    *string
}

// PreferenceRepository は旅行設定の永続化インターフェース。
// 1ユーザーにつき最大1レコード（UNIQUE(user_id)）を前提とする。
type PreferenceRepository interface {
	// FindByUserID はユーザーの旅行設定を取得する。
	// 未設定の場合はnilを返す。nilはエラーではない。
	FindByUserID(ctx context.Context, userID string) (*model.TravelPreferences, error)

	// Upsert は旅行設定を冪等にUPSERTする。
	// レコードが無ければデフォルト値で作成した上で指定フィールドを適用し、
	// 既存レコードにはnil以外のフィールドのみを上書きする部分更新を行う。
	Upsert(ctx context.Context, userID string, update PreferenceUpdate) (*model.TravelPreferences, error)

	// UpdateLastNotified はダイジェスト送信日時を記録する。
	UpdateLastNotified(ctx context.Context, userID string, at time.Time) error

	// ListDigestCandidates はダイジェスト送信候補（設定を持つ全ユーザー）を
	// ユーザー情報と結合して返す。送信要否の判定は呼び出し側で行う。
	ListDigestCandidates(ctx context.Context) ([]DigestCandidate, error)
}

// RecommendationRepository はフライトディールの永続化インターフェース。
// 全てのクエリ・更新はuser_idでスコープする。レコードID単独の操作は提供しない。
type RecommendationRepository interface {
	// FindByUserAndID はユーザーIDとディールIDでディールを取得する。
	// 存在しない、または他ユーザー所有の場合はnilを返す。
	FindByUserAndID(ctx context.Context, userID, recommendationID string) (*model.FlightRecommendation, error)

	// ListActiveByUserID はユーザーのアクティブなディールを作成日時降順で返す。
	ListActiveByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error)

	// ListWatchedByUserID はユーザーのウォッチ中かつアクティブなディールを返す。
	ListWatchedByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error)

	// ListUnnotifiedByUserID はダイジェスト未送信のアクティブなディールを返す。
	ListUnnotifiedByUserID(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error)

	// Create はディールを作成する。外部の生成プロセスから呼ばれる。
	Create(ctx context.Context, rec *model.FlightRecommendation) error

	// UpdateWatched はユーザー所有のディールのウォッチフラグを更新する。
	// 対象が存在しない場合はfalseを返す。
	UpdateWatched(ctx context.Context, userID, recommendationID string, isWatched bool) (bool, error)

	// DeleteByUserAndID はユーザー所有のディールを削除する。
	// 削除された場合はtrueを返す。
	DeleteByUserAndID(ctx context.Context, userID, recommendationID string) (bool, error)

	// DeleteByUserAndIDs は指定IDのうちユーザー所有のディールのみを削除し、
	// 実際に削除した件数を返す。他ユーザー所有のIDは黙って無視される。
	DeleteByUserAndIDs(ctx context.Context, userID string, ids []string) (int64, error)

	// MarkNotified は指定ディールに送信日時を記録する。
	MarkNotified(ctx context.Context, userID string, ids []string, at time.Time) error

	// DeactivateOlderThan は保持期間を超過したディールを非アクティブ化し、
	// 対象件数を返す。
	DeactivateOlderThan(ctx context.Context, retention time.Duration) (int64, error)
}

// DigestCandidate はダイジェスト送信判定に必要なユーザー情報と設定の結合行。
type DigestCandidate struct {
	UserID             string
	Email              string
	Name               string
	SubscriptionStatus *string
	TrialEndsAt        *time.Time
	DeliveryFrequency  model.DeliveryFrequency
	HeaderImageURL     *string
	LastNotifiedAt     *time.Time
}
