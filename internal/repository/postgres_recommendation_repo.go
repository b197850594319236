package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/hitoshi/travira/internal/model"
)

// PostgresRecommendationRepo はPostgreSQLを使用したフライト推薦リポジトリ。
// 全ての読み書きは必ずuser_idでスコープする。
type PostgresRecommendationRepo struct {
	db *sql.DB
}

// NewPostgresRecommendationRepo はPostgresRecommendationRepoを生成する。
func NewPostgresRecommendationRepo(db *sql.DB) *PostgresRecommendationRepo {
	return &PostgresRecommendationRepo{db: db}
}

const recommendationColumns = `id, user_id, origin, destination, departure_date, return_date,
	price, currency, airline, flight_number, deal_quality, summary, booking_url,
	is_watched, is_active, notified_at, created_at, updated_at`

// scanRecommendation は1行をFlightRecommendationに読み込む。
func scanRecommendation(scan func(dest ...any) error) (*model.FlightRecommendation, error) {
	rec := &model.FlightRecommendation{}
	var returnDate, notifiedAt sql.NullTime

	err := scan(
		&rec.ID, &rec.UserID, &rec.Origin, &rec.Destination, &rec.DepartureDate, &returnDate,
		&rec.Price, &rec.Currency, &rec.Airline, &rec.FlightNumber, &rec.DealQuality,
		&rec.Summary, &rec.BookingURL,
		&rec.IsWatched, &rec.IsActive, &notifiedAt, &rec.CreatedAt, &rec.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if returnDate.Valid {
		rec.ReturnDate = &returnDate.Time
	}
	if notifiedAt.Valid {
		rec.NotifiedAt = &notifiedAt.Time
	}

	return rec, nil
}

// FindByUserAndID は指定ユーザーが所有する推薦を取得する。
// 他ユーザーの推薦は存在しないものとして扱い、nilを返す。
func (r *PostgresRecommendationRepo) FindByUserAndID(ctx context.Context, userID, recID string) (*model.FlightRecommendation, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+recommendationColumns+`
		 FROM flight_recommendations
		 WHERE user_id = $1 AND id = $2`,
		userID, recID,
	)

	rec, err := scanRecommendation(row.Scan)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("フライト推薦の取得に失敗しました: %w", err)
	}

	return rec, nil
}

// ListActiveByUserID はユーザーのアクティブな推薦を新しい順で返す。
func (r *PostgresRecommendationRepo) ListActiveByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	return r.list(ctx,
		`SELECT `+recommendationColumns+`
		 FROM flight_recommendations
		 WHERE user_id = $1 AND is_active = true
		 ORDER BY created_at DESC`,
		userID,
	)
}

// ListWatchedByUserID はユーザーがウォッチ中の推薦を新しい順で返す。
func (r *PostgresRecommendationRepo) ListWatchedByUserID(ctx context.Context, userID string) ([]*model.FlightRecommendation, error) {
	return r.list(ctx,
		`SELECT `+recommendationColumns+`
		 FROM flight_recommendations
		 WHERE user_id = $1 AND is_watched = true AND is_active = true
		 ORDER BY created_at DESC`,
		userID,
	)
}

// ListUnnotifiedByUserID は未通知のアクティブな推薦を古い順で最大limit件返す。
func (r *PostgresRecommendationRepo) ListUnnotifiedByUserID(ctx context.Context, userID string, limit int) ([]*model.FlightRecommendation, error) {
	return r.list(ctx,
		`SELECT `+recommendationColumns+`
		 FROM flight_recommendations
		 WHERE user_id = $1 AND is_active = true AND notified_at IS NULL
		 ORDER BY created_at ASC
		 LIMIT $2`,
		userID, limit,
	)
}

func (r *PostgresRecommendationRepo) list(ctx context.Context, query string, args ...any) ([]*model.FlightRecommendation, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("フライト推薦一覧の取得に失敗しました: %w", err)
	}
	defer rows.Close()

	var recs []*model.FlightRecommendation
	for rows.Next() {
		rec, err := scanRecommendation(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("フライト推薦のスキャンに失敗しました: %w", err)
		}
		recs = append(recs, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("フライト推薦一覧の読み取りに失敗しました: %w", err)
	}

	return recs, nil
}

// Create はフライト推薦を作成する。
func (r *PostgresRecommendationRepo) Create(ctx context.Context, rec *model.FlightRecommendation) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO flight_recommendations
		     (id, user_id, origin, destination, departure_date, return_date,
		      price, currency, airline, flight_number, deal_quality, summary, booking_url,
		      is_watched, is_active, notified_at, created_at, updated_at)
		 VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`,
		rec.ID, rec.UserID, rec.Origin, rec.Destination, rec.DepartureDate, rec.ReturnDate,
		rec.Price, rec.Currency, rec.Airline, rec.FlightNumber, rec.DealQuality,
		rec.Summary, rec.BookingURL,
		rec.IsWatched, rec.IsActive, rec.NotifiedAt, rec.CreatedAt, rec.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("フライト推薦の作成に失敗しました: %w", err)
	}
	return nil
}

// UpdateWatched はウォッチフラグを更新する。
// 指定ユーザーが所有する推薦のみ対象とし、更新できたかどうかを返す。
func (r *PostgresRecommendationRepo) UpdateWatched(ctx context.Context, userID, recID string, isWatched bool) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`UPDATE flight_recommendations SET is_watched = $3, updated_at = now()
		 WHERE user_id = $1 AND id = $2`,
		userID, recID, isWatched,
	)
	if err != nil {
		return false, fmt.Errorf("ウォッチフラグの更新に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserAndID は指定ユーザーが所有する推薦を削除する。
// 削除できたかどうかを返す。
func (r *PostgresRecommendationRepo) DeleteByUserAndID(ctx context.Context, userID, recID string) (bool, error) {
	result, err := r.db.ExecContext(ctx,
		`DELETE FROM flight_recommendations WHERE user_id = $1 AND id = $2`,
		userID, recID,
	)
	if err != nil {
		return false, fmt.Errorf("フライト推薦の削除に失敗しました: %w", err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return rowsAffected > 0, nil
}

// DeleteByUserAndIDs は指定IDのうちユーザーが所有するものだけを削除し、
// 削除件数を返す。他ユーザーの推薦が混ざっていても黙って無視される。
func (r *PostgresRecommendationRepo) DeleteByUserAndIDs(ctx context.Context, userID string, ids []string) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	result, err := r.db.ExecContext(ctx,
		`DELETE FROM flight_recommendations WHERE user_id = $1 AND id = ANY($2)`,
		userID, pq.Array(ids),
	)
	if err != nil {
		return 0, fmt.Errorf("フライト推薦の一括削除に失敗しました: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

// MarkNotified は指定推薦に通知済み日時を記録する。
func (r *PostgresRecommendationRepo) MarkNotified(ctx context.Context, userID string, ids []string, at time.Time) error {
	if len(ids) == 0 {
		return nil
	}

	_, err := r.db.ExecContext(ctx,
		`UPDATE flight_recommendations SET notified_at = $3, updated_at = now()
		 WHERE user_id = $1 AND id = ANY($2)`,
		userID, pq.Array(ids), at,
	)
	if err != nil {
		return fmt.Errorf("通知済み日時の記録に失敗しました: %w", err)
	}
	return nil
}

// DeactivateOlderThan は保持期間を過ぎた推薦を非アクティブ化し、件数を返す。
// ウォッチ中の推薦は対象外とする。
func (r *PostgresRecommendationRepo) DeactivateOlderThan(ctx context.Context, retention time.Duration) (int64, error) {
	cutoff := time.Now().UTC().Add(-retention)

	result, err := r.db.ExecContext(ctx,
		`UPDATE flight_recommendations SET is_active = false, updated_at = now()
		 WHERE is_active = true AND is_watched = false AND created_at < $1`,
		cutoff,
	)
	if err != nil {
		return 0, fmt.Errorf("古いフライト推薦の非アクティブ化に失敗しました: %w", err)
	}
	deactivated, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deactivated, nil
}

// compile-time interface check
var _ RecommendationRepository = (*PostgresRecommendationRepo)(nil)
