// Package model はドメインモデルを定義する。
package model

import "time"

// User はサービス利用ユーザーを表す。
// トライアル関連のメタデータはこのサブシステムが所有し、
// トライアル開始時のみ書き込まれる。
type User struct {
	ID                 string
	Email              string
	Name               string
	Picture            string
	SubscriptionStatus *string    // "trial", "active" 等。未設定の場合はnil。
	TrialEndsAt        *time.Time // トライアル終了日時。未開始の場合はnil。
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// Identity は外部IdPとの紐付け情報を表す。
// (provider, provider_user_id) はUNIQUE制約で保護され、作成後は不変。
// 将来的に複数のIdP（Google, GitHub等）に対応可能な構造。
type Identity struct {
	ID             string
	UserID         string
	Provider       string
	ProviderUserID string
	CreatedAt      time.Time
}

// Session はユーザーのログインセッションを表す。
type Session struct {
	ID        string
	UserID    string
	ExpiresAt time.Time
	CreatedAt time.Time
}
