package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/whosaidit/internal/model"
)

type ParticipantRepo struct{ db *sql.DB }

func NewParticipantRepo(db *sql.DB) *ParticipantRepo { return &ParticipantRepo{db: db} }

func (r *ParticipantRepo) Create(ctx context.Context, groupChatID uint64, name string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO participants (group_chat_id, name) VALUES (?,?)", groupChatID, name)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *ParticipantRepo) GetByID(ctx context.Context, id uint64) (model.Participant, error) {
	var p model.Participant
	err := r.db.QueryRowContext(ctx,
		"SELECT id, group_chat_id, name FROM participants WHERE id=?", id).
		Scan(&p.ID, &p.GroupChatID, &p.Name)
	return p, notFound(err)
}

func (r *ParticipantRepo) ListByGroupChat(ctx context.Context, groupChatID uint64) ([]model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT id, group_chat_id, name FROM participants WHERE group_chat_id=? ORDER BY name, id", groupChatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Participant{}
	for rows.Next() {
		var p model.Participant
		if err := rows.Scan(&p.ID, &p.GroupChatID, &p.Name); err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}

// Rename sets the display name shown in quizzes.
func (r *ParticipantRepo) Rename(ctx context.Context, id uint64, name string) error {
	res, err := r.db.ExecContext(ctx, "UPDATE participants SET name=? WHERE id=?", name, id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

func (r *ParticipantRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM participants WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IsOwnedBy follows participant -> group chat -> uploader.
func (r *ParticipantRepo) IsOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	return ownedBy(ctx, r.db, ownerOfParticipant, id, userID)
}
