// Package model はドメインモデルを定義する。
package model

import "fmt"

// APIError は統一エラーフォーマットを表す。
// UIに表示する原因カテゴリと対処方法を含む。
type APIError struct {
	Code     string // エラーコード
	Message  string // エラーメッセージ
	Category string // カテゴリ: auth, validation, deal, system
	Action   string // ユーザー向け対処方法
}

// Error はerrorインターフェースを実装する。
func (e *APIError) Error() string {
	return fmt.Sprintf("[%s] %s", e.Code, e.Message)
}

// 定義済みエラーコード
const (
	ErrCodeUnauthorized           = "UNAUTHORIZED"
	ErrCodeUserMismatch           = "USER_MISMATCH"
	ErrCodeUserNotFound           = "USER_NOT_FOUND"
	ErrCodeRecommendationNotFound = "RECOMMENDATION_NOT_FOUND"
	ErrCodeInvalidRequest         = "INVALID_REQUEST"
	ErrCodeInvalidFrequency       = "INVALID_FREQUENCY"
	ErrCodeInvalidBudget          = "INVALID_BUDGET"
	ErrCodeInvalidImageURL        = "INVALID_IMAGE_URL"
	ErrCodeEmptyDealIDs           = "EMPTY_DEAL_IDS"
	ErrCodeEmailSendFailed        = "EMAIL_SEND_FAILED"
)

// NewUnauthorizedError は未認証エラーを生成する。
func NewUnauthorizedError() *APIError {
	return &APIError{
		Code:     ErrCodeUnauthorized,
		Message:  "認証が必要です。",
		Category: "auth",
		Action:   "ログインしてください。",
	}
}

// NewUserMismatchError は認証済みユーザーとリクエスト対象ユーザーの不一致エラーを生成する。
func NewUserMismatchError() *APIError {
	return &APIError{
		Code:     ErrCodeUserMismatch,
		Message:  "リクエスト対象のユーザーIDが認証情報と一致しません。",
		Category: "auth",
		Action:   "自分のアカウントに対してのみ操作を実行してください。",
	}
}

// NewUserNotFoundError はユーザーが見つからない場合のエラーを生成する。
func NewUserNotFoundError() *APIError {
	return &APIError{
		Code:     ErrCodeUserNotFound,
		Message:  "ユーザーが見つかりません。",
		Category: "auth",
		Action:   "ログインし直してください。",
	}
}

// NewRecommendationNotFoundError はディール未検出エラーを生成する。
// 他ユーザー所有のレコードへのアクセスも同じエラーを返し、存在を漏らさない。
func NewRecommendationNotFoundError(recommendationID string) *APIError {
	return &APIError{
		Code:     ErrCodeRecommendationNotFound,
		Message:  fmt.Sprintf("指定されたディールが見つかりません: %s", recommendationID),
		Category: "deal",
		Action:   "ディール一覧を再読み込みしてください。",
	}
}

// NewInvalidRequestError はリクエスト形式不正エラーを生成する。
func NewInvalidRequestError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidRequest,
		Message:  fmt.Sprintf("リクエストが不正です: %s", reason),
		Category: "validation",
		Action:   "リクエスト内容を確認して再度お試しください。",
	}
}

// NewInvalidFrequencyError は無効な配信頻度エラーを生成する。
func NewInvalidFrequencyError(frequency string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidFrequency,
		Message:  fmt.Sprintf("無効な配信頻度です: %s", frequency),
		Category: "validation",
		Action:   "配信頻度には daily、every_3_days、weekly、bi_weekly のいずれかを指定してください。",
	}
}

// NewInvalidBudgetError は無効な予算エラーを生成する。
func NewInvalidBudgetError(budget float64) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidBudget,
		Message:  fmt.Sprintf("無効な上限予算です: %g", budget),
		Category: "validation",
		Action:   "上限予算には0以上の値を指定してください。",
	}
}

// NewInvalidImageURLError は無効なヘッダー画像URLエラーを生成する。
func NewInvalidImageURLError(reason string) *APIError {
	return &APIError{
		Code:     ErrCodeInvalidImageURL,
		Message:  fmt.Sprintf("無効なヘッダー画像URLです: %s", reason),
		Category: "validation",
		Action:   "公開されているhttps://のURLを指定してください。",
	}
}

// NewEmptyDealIDsError は一括削除対象が空の場合のエラーを生成する。
func NewEmptyDealIDsError() *APIError {
	return &APIError{
		Code:     ErrCodeEmptyDealIDs,
		Message:  "削除対象のディールIDが指定されていません。",
		Category: "validation",
		Action:   "削除するディールを1件以上選択してください。",
	}
}

// NewEmailSendFailedError はメール送信失敗エラーを生成する。
func NewEmailSendFailedError() *APIError {
	return &APIError{
		Code:     ErrCodeEmailSendFailed,
		Message:  "通知メールの送信に失敗しました。",
		Category: "system",
		Action:   "しばらく待ってから再度お試しください。",
	}
}
