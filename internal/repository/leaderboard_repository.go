package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/whosaidit/internal/model"
)

type LeaderboardRepo struct{ db *sql.DB }

func NewLeaderboardRepo(db *sql.DB) *LeaderboardRepo { return &LeaderboardRepo{db: db} }

const leaderboardColumns = "id, quiz_id, player_uuid, player_name, score, created_at"

// Create records a finished play-through.
func (r *LeaderboardRepo) Create(ctx context.Context, e model.LeaderboardEntry) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO leaderboard_entries (quiz_id, player_uuid, player_name, score) VALUES (?,?,?,?)",
		e.QuizID, e.PlayerUUID, e.PlayerName, e.Score)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *LeaderboardRepo) GetByID(ctx context.Context, id uint64) (model.LeaderboardEntry, error) {
	var e model.LeaderboardEntry
	err := r.db.QueryRowContext(ctx, "SELECT "+leaderboardColumns+" FROM leaderboard_entries WHERE id=?", id).
		Scan(&e.ID, &e.QuizID, &e.PlayerUUID, &e.PlayerName, &e.Score, &e.CreatedAt)
	return e, notFound(err)
}

// ListByQuiz returns the best scores first.
func (r *LeaderboardRepo) ListByQuiz(ctx context.Context, quizID uint64, limit int) ([]model.LeaderboardEntry, error) {
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+leaderboardColumns+" FROM leaderboard_entries WHERE quiz_id=? ORDER BY score DESC, created_at ASC LIMIT ?",
		quizID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.LeaderboardEntry{}
	for rows.Next() {
		var e model.LeaderboardEntry
		if err := rows.Scan(&e.ID, &e.QuizID, &e.PlayerUUID, &e.PlayerName, &e.Score, &e.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func (r *LeaderboardRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM leaderboard_entries WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IsOwnedBy follows entry -> quiz -> group chat -> uploader.
func (r *LeaderboardRepo) IsOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	return ownedBy(ctx, r.db, ownerOfLeaderboardEntry, id, userID)
}
