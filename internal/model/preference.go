// Package model はドメインモデルを定義する。
package model

import "time"

// DeliveryFrequency はディールダイジェストの配信頻度を表す。
type DeliveryFrequency string

const (
	// FrequencyDaily は毎日配信。
	FrequencyDaily DeliveryFrequency = "daily"
	// FrequencyEvery3Days は3日ごとの配信。
	FrequencyEvery3Days DeliveryFrequency = "every_3_days"
	// FrequencyWeekly は週1回の配信（デフォルト）。
	FrequencyWeekly DeliveryFrequency = "weekly"
	// FrequencyBiWeekly は隔週配信。
	FrequencyBiWeekly DeliveryFrequency = "bi_weekly"
)

// IsValid は配信頻度が定義済みの値かどうかを返す。
func (f DeliveryFrequency) IsValid() bool {
	switch f {
	case FrequencyDaily, FrequencyEvery3Days, FrequencyWeekly, FrequencyBiWeekly:
		return true
	}
	return false
}

// Interval は配信頻度に対応するダイジェスト間隔を返す。
func (f DeliveryFrequency) Interval() time.Duration {
	switch f {
	case FrequencyDaily:
		return 24 * time.Hour
	case FrequencyEvery3Days:
		return 3 * 24 * time.Hour
	case FrequencyBiWeekly:
		return 14 * 24 * time.Hour
	default:
		return 7 * 24 * time.Hour
	}
}

// TravelPreferences はユーザーごとの旅行検索条件を表す。
// 1ユーザーにつき最大1レコード（UNIQUE(user_id)）。
type TravelPreferences struct {
	ID                string
	UserID            string
	HomeAirports      []string // 出発空港コード（自由形式の短い文字列）
	DreamDestinations []string // 行きたい目的地コード
	DeliveryFrequency DeliveryFrequency
	MaxBudget         *float64 // 上限予算。未設定の場合はnil。
	PreferredAirlines []string
	Currency          string
	HeaderImageURL    *string    // ダイジェストメールのヘッダー画像URL（任意）
	LastNotifiedAt    *time.Time // 最後にダイジェストを送信した日時
	CreatedAt         time.Time
	UpdatedAt         time.Time
}
