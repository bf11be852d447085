package repository

import (
	"context"
	"database/sql"

	"github.com/iliyamo/whosaidit/internal/model"
)

type MessageRepo struct{ db *sql.DB }

func NewMessageRepo(db *sql.DB) *MessageRepo { return &MessageRepo{db: db} }

const messageColumns = "id, group_chat_id, participant_id, content, sent_at"

func (r *MessageRepo) GetByID(ctx context.Context, id uint64) (model.Message, error) {
	var m model.Message
	err := r.db.QueryRowContext(ctx, "SELECT "+messageColumns+" FROM messages WHERE id=?", id).
		Scan(&m.ID, &m.GroupChatID, &m.ParticipantID, &m.Content, &m.SentAt)
	return m, notFound(err)
}

// ListByQuiz returns the messages picked for a quiz in chat order.
func (r *MessageRepo) ListByQuiz(ctx context.Context, quizID uint64) ([]model.Message, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT m.id, m.group_chat_id, m.participant_id, m.content, m.sent_at
		 FROM quiz_messages qm
		 JOIN messages m ON m.id = qm.message_id
		 WHERE qm.quiz_id=? ORDER BY m.sent_at, m.id`, quizID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Message{}
	for rows.Next() {
		var m model.Message
		if err := rows.Scan(&m.ID, &m.GroupChatID, &m.ParticipantID, &m.Content, &m.SentAt); err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (r *MessageRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM messages WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IsOwnedBy follows message -> group chat -> uploader.
func (r *MessageRepo) IsOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	return ownedBy(ctx, r.db, ownerOfMessage, id, userID)
}
