package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/whosaidit/internal/model"
)

type GroupChatRepo struct{ db *sql.DB }

func NewGroupChatRepo(db *sql.DB) *GroupChatRepo { return &GroupChatRepo{db: db} }

// Create stores a parsed chat upload for userID.
func (r *GroupChatRepo) Create(ctx context.Context, userID uint64, name, fileName string) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO group_chats (user_id, name, file_name) VALUES (?,?,?)", userID, name, fileName)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

func (r *GroupChatRepo) GetByID(ctx context.Context, id uint64) (model.GroupChat, error) {
	var g model.GroupChat
	err := r.db.QueryRowContext(ctx,
		"SELECT id, user_id, name, file_name, uploaded_at FROM group_chats WHERE id=?", id).
		Scan(&g.ID, &g.UserID, &g.Name, &g.FileName, &g.UploadedAt)
	return g, notFound(err)
}

// ListByUser returns a user's uploads, newest first.
func (r *GroupChatRepo) ListByUser(ctx context.Context, userID uint64) ([]model.GroupChat, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, user_id, name, file_name, uploaded_at
		 FROM group_chats WHERE user_id=? ORDER BY uploaded_at DESC, id DESC`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.GroupChat{}
	for rows.Next() {
		var g model.GroupChat
		if err := rows.Scan(&g.ID, &g.UserID, &g.Name, &g.FileName, &g.UploadedAt); err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

func (r *GroupChatRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM group_chats WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IsOwnedBy reports whether userID uploaded the group chat.
func (r *GroupChatRepo) IsOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	return ownedBy(ctx, r.db, ownerOfGroupChat, id, userID)
}
