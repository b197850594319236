package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"
	"github.com/hitoshi/travira/internal/model"
)

// PostgresPreferenceRepo はPostgreSQLを使用した旅行設定リポジトリ。
type PostgresPreferenceRepo struct {
	db *sql.DB
}

// NewPostgresPreferenceRepo はPostgresPreferenceRepoを生成する。
func NewPostgresPreferenceRepo(db *sql.DB) *PostgresPreferenceRepo {
	return &PostgresPreferenceRepo{db: db}
}

// FindByUserID はユーザーの旅行設定を取得する。未設定の場合はnilを返す。
func (r *PostgresPreferenceRepo) FindByUserID(ctx context.Context, userID string) (*model.TravelPreferences, error) {
	prefs := &model.TravelPreferences{}
	var maxBudget sql.NullFloat64
	var headerImageURL sql.NullString
	var lastNotifiedAt sql.NullTime
	var homeAirports, dreamDestinations, preferredAirlines pq.StringArray

	err := r.db.QueryRowContext(ctx,
		`SELECT id, user_id, home_airports, dream_destinations, delivery_frequency,
		        max_budget, preferred_airlines, currency, header_image_url,
		        last_notified_at, created_at, updated_at
		 FROM travel_preferences WHERE user_id = $1`,
		userID,
	).Scan(
		&prefs.ID, &prefs.UserID, &homeAirports, &dreamDestinations, &prefs.DeliveryFrequency,
		&maxBudget, &preferredAirlines, &prefs.Currency, &headerImageURL,
		&lastNotifiedAt, &prefs.CreatedAt, &prefs.UpdatedAt,
	)

	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("旅行設定の取得に失敗しました: %w", err)
	}

	prefs.HomeAirports = homeAirports
	prefs.DreamDestinations = dreamDestinations
	prefs.PreferredAirlines = preferredAirlines
	if maxBudget.Valid {
		prefs.MaxBudget = &maxBudget.Float64
	}
	if headerImageURL.Valid {
		prefs.HeaderImageURL = &headerImageURL.String
	}
	if lastNotifiedAt.Valid {
		prefs.LastNotifiedAt = &lastNotifiedAt.Time
	}

	return prefs, nil
}

// Upsert は旅行設定を冪等にUPSERTする。
// nilフィールドは変更せず、既存の値を維持する部分更新を行う。
// UNIQUE(user_id)制約を利用したINSERT ON CONFLICTで実装する。
func (r *PostgresPreferenceRepo) Upsert(ctx context.Context, userID string, update PreferenceUpdate) (*model.TravelPreferences, error) {
	now := time.Now().UTC()

	// 既存レコードを確認
	existing, err := r.FindByUserID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		// 新規作成: デフォルト値の上に指定フィールドを適用する
		prefs := &model.TravelPreferences{
			ID:                uuid.New().String(),
			UserID:            userID,
			HomeAirports:      []string{},
			DreamDestinations: []string{},
			DeliveryFrequency: model.FrequencyWeekly,
			PreferredAirlines: []string{},
			Currency:          "USD",
			CreatedAt:         now,
			UpdatedAt:         now,
		}
		applyPreferenceUpdate(prefs, update)

		_, err := r.db.ExecContext(ctx,
			`INSERT INTO travel_preferences
			     (id, user_id, home_airports, dream_destinations, delivery_frequency,
			      max_budget, preferred_airlines, currency, header_image_url, created_at, updated_at)
			 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
			 ON CONFLICT (user_id) DO UPDATE SET
			     home_airports = EXCLUDED.home_airports,
			     dream_destinations = EXCLUDED.dream_destinations,
			     delivery_frequency = EXCLUDED.delivery_frequency,
			     max_budget = EXCLUDED.max_budget,
			     preferred_airlines = EXCLUDED.preferred_airlines,
			     currency = EXCLUDED.currency,
			     header_image_url = EXCLUDED.header_image_url,
			     updated_at = EXCLUDED.updated_at`,
			prefs.ID, prefs.UserID,
			pq.Array(prefs.HomeAirports), pq.Array(prefs.DreamDestinations), prefs.DeliveryFrequency,
			prefs.MaxBudget, pq.Array(prefs.PreferredAirlines), prefs.Currency, prefs.HeaderImageURL,
			prefs.CreatedAt, prefs.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("旅行設定の作成に失敗しました: %w", err)
		}

		return prefs, nil
	}

	// 既存レコードの部分更新
	applyPreferenceUpdate(existing, update)
	existing.UpdatedAt = now

	_, err = r.db.ExecContext(ctx,
		`UPDATE travel_preferences SET
		    home_airports = $2, dream_destinations = $3, delivery_frequency = $4,
		    max_budget = $5, preferred_airlines = $6, currency = $7,
		    header_image_url = $8, updated_at = $9
		 WHERE user_id = $1`,
		existing.UserID,
		pq.Array(existing.HomeAirports), pq.Array(existing.DreamDestinations), existing.DeliveryFrequency,
		existing.MaxBudget, pq.Array(existing.PreferredAirlines), existing.Currency,
		existing.HeaderImageURL, existing.UpdatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("旅行設定の更新に失敗しました: %w", err)
	}

	return existing, nil
}

// applyPreferenceUpdate はnil以外のフィールドをprefsに適用する。
func applyPreferenceUpdate(prefs *model.TravelPreferences, update PreferenceUpdate) {
	if update.HomeAirports != nil {
		prefs.HomeAirports = *update.HomeAirports
	}
	if update.DreamDestinations != nil {
		prefs.DreamDestinations = *update.DreamDestinations
	}
	if update.DeliveryFrequency != nil {
		prefs.DeliveryFrequency = *update.DeliveryFrequency
	}
	if update.MaxBudget != nil {
		prefs.MaxBudget = update.MaxBudget
	}
	if update.PreferredAirlines != nil {
		prefs.PreferredAirlines = *update.PreferredAirlines
	}
	if update.Currency != nil {
		prefs.Currency = *update.Currency
	}
	if update.HeaderImageURL != nil {
		prefs.HeaderImageURL = update.HeaderImageURL
	}
}

// UpdateLastNotified はダイジェスト送信日時を記録する。
func (r *PostgresPreferenceRepo) UpdateLastNotified(ctx context.Context, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE travel_preferences SET last_notified_at = $2, updated_at = now()
		 WHERE user_id = $1`,
		userID, at,
	)
	if err != nil {
		return fmt.Errorf("ダイジェスト送信日時の記録に失敗しました: %w", err)
	}
	return nil
}

// ListDigestCandidates はダイジェスト送信候補をユーザー情報と結合して返す。
func (r *PostgresPreferenceRepo) ListDigestCandidates(ctx context.Context) ([]DigestCandidate, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT u.id, u.email, u.name, u.subscription_status, u.trial_ends_at,
		        p.delivery_frequency, p.header_image_url, p.last_notified_at
		 FROM travel_preferences p
		 JOIN users u ON u.id = p.user_id
		 ORDER BY u.created_at`,
	)
	if err != nil {
		return nil, fmt.Errorf("ダイジェスト候補の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var candidates []DigestCandidate
	for rows.Next() {
		var c DigestCandidate
		var status, headerImageURL sql.NullString
		var trialEndsAt, lastNotifiedAt sql.NullTime

		if err := rows.Scan(
			&c.UserID, &c.Email, &c.Name, &status, &trialEndsAt,
			&c.DeliveryFrequency, &headerImageURL, &lastNotifiedAt,
		); err != nil {
			return nil, fmt.Errorf("ダイジェスト候補のスキャンに失敗しました: %w", err)
		}

		if status.Valid {
			c.SubscriptionStatus = &status.String
		}
		if trialEndsAt.Valid {
			c.TrialEndsAt = &trialEndsAt.Time
		}
		if headerImageURL.Valid {
			c.HeaderImageURL = &headerImageURL.String
		}
		if lastNotifiedAt.Valid {
			c.LastNotifiedAt = &lastNotifiedAt.Time
		}

		candidates = append(candidates, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("ダイジェスト候補の読み取りに失敗しました: %w", err)
	}

	return candidates, nil
}

// compile-time interface check
var _ PreferenceRepository = (*PostgresPreferenceRepo)(nil)
