package handler

import (
	"github.com/hitoshi/travira/internal/auth"
	"github.com/hitoshi/travira/internal/preference"
	"github.com/hitoshi/travira/internal/recommendation"
	"github.com/hitoshi/travira/internal/trial"
	"github.com/hitoshi/travira/internal/user"
	"github.com/hitoshi/travira/internal/worker/digest"
)

// 各ハンドラーインターフェースに注入される具象サービスの
// シグネチャ整合性をコンパイル時に検証する。
var (
	_ AuthServiceInterface           = (*auth.Service)(nil)
	_ PreferenceServiceInterface     = (*preference.Service)(nil)
	_ RecommendationServiceInterface = (*recommendation.Service)(nil)
	_ TrialServiceInterface          = (*trial.Service)(nil)
	_ UserServiceInterface           = (*user.Service)(nil)
	_ NotificationServiceInterface   = (*digest.Sender)(nil)
)
