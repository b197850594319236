// Package model はドメインモデルを定義する。
package model

import "time"

// DealQuality はディールの品質ティアを表す。
type DealQuality string

const (
	// DealQualityExcellent は特に優れたディール。
	DealQualityExcellent DealQuality = "excellent"
	// DealQualityGood は良質なディール。
	DealQualityGood DealQuality = "good"
	// DealQualityAverage は平均的なディール。
	DealQualityAverage DealQuality = "average"
)

// FlightRecommendation はユーザーに届けるフライトディールを表す。
// 必ず1人のユーザーに属し、クエリ・更新は常にuser_idでスコープする。
// レコードID単独での操作は所有権チェックを迂回するため行わない。
type FlightRecommendation struct {
	ID            string
	UserID        string
	Origin        string
	Destination   string
	DepartureDate time.Time
	ReturnDate    *time.Time // 片道の場合はnil
	Price         float64
	Currency      string
	Airline       string
	FlightNumber  string
	DealQuality   DealQuality
	Summary       string // 生成プロセスが付与する説明文
	BookingURL    string
	IsWatched     bool
	IsActive      bool
	NotifiedAt    *time.Time // ダイジェストで送信済みの場合の送信日時
	CreatedAt     time.Time
	UpdatedAt     time.Time
}
