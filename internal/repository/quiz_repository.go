package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/iliyamo/whosaidit/internal/model"
)

type QuizRepo struct{ db *sql.DB }

func NewQuizRepo(db *sql.DB) *QuizRepo { return &QuizRepo{db: db} }

const quizColumns = "id, group_chat_id, name, description, quiz_type, shareable_token, url_token, created_at"

func (r *QuizRepo) Create(ctx context.Context, q model.Quiz) (uint64, error) {
	res, err := r.db.ExecContext(ctx,
		"INSERT INTO quizzes (group_chat_id, name, description, quiz_type) VALUES (?,?,?,?)",
		q.GroupChatID, q.Name, q.Description, q.Type)
	if err != nil {
		return 0, err
	}
	id, err := res.LastInsertId()
	return uint64(id), err
}

// FindByID fetches one quiz including its share tokens.
func (r *QuizRepo) FindByID(ctx context.Context, id uint64) (model.Quiz, error) {
	return scanQuiz(r.db.QueryRowContext(ctx, "SELECT "+quizColumns+" FROM quizzes WHERE id=?", id))
}

func (r *QuizRepo) ListByGroupChat(ctx context.Context, groupChatID uint64) ([]model.Quiz, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT "+quizColumns+" FROM quizzes WHERE group_chat_id=? ORDER BY created_at DESC, id DESC", groupChatID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []model.Quiz{}
	for rows.Next() {
		q, err := scanQuiz(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, q)
	}
	return out, rows.Err()
}

// SetShareTokens replaces the quiz's share token pair. The previous pair
// stops working immediately.
func (r *QuizRepo) SetShareTokens(ctx context.Context, id uint64, shareableToken, urlToken string) error {
	res, err := r.db.ExecContext(ctx,
		"UPDATE quizzes SET shareable_token=?, url_token=? WHERE id=?", shareableToken, urlToken, id)
	if err != nil {
		if _, ok := duplicateKey(err); ok {
			return ErrURLTokenExists
		}
		return err
	}
	return expectOne(res)
}

// URLTokenExists reports whether any quiz already uses urlToken.
func (r *QuizRepo) URLTokenExists(ctx context.Context, urlToken string) (bool, error) {
	var one int
	err := r.db.QueryRowContext(ctx, "SELECT 1 FROM quizzes WHERE url_token=? LIMIT 1", urlToken).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

// AddMessages links messages to the quiz. Only messages from the quiz's own
// group chat are linked; the rest are ignored. Returns how many were added.
func (r *QuizRepo) AddMessages(ctx context.Context, quizID uint64, messageIDs []uint64) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, quizID, quizID)
	for _, id := range messageIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx,
		`INSERT IGNORE INTO quiz_messages (quiz_id, message_id)
		 SELECT ?, m.id FROM messages m
		 JOIN quizzes q ON q.group_chat_id = m.group_chat_id
		 WHERE q.id = ? AND m.id IN (`+placeholders(len(messageIDs))+`)`, args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// RemoveMessages unlinks messages from the quiz and returns how many were removed.
func (r *QuizRepo) RemoveMessages(ctx context.Context, quizID uint64, messageIDs []uint64) (int64, error) {
	if len(messageIDs) == 0 {
		return 0, nil
	}
	args := make([]any, 0, len(messageIDs)+1)
	args = append(args, quizID)
	for _, id := range messageIDs {
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx,
		"DELETE FROM quiz_messages WHERE quiz_id=? AND message_id IN ("+placeholders(len(messageIDs))+")", args...)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

func (r *QuizRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, "DELETE FROM quizzes WHERE id=?", id)
	if err != nil {
		return err
	}
	return expectOne(res)
}

// IsOwnedBy follows quiz -> group chat -> uploader.
func (r *QuizRepo) IsOwnedBy(ctx context.Context, id, userID uint64) (bool, error) {
	return ownedBy(ctx, r.db, ownerOfQuiz, id, userID)
}

type rowScanner interface{ Scan(dest ...any) error }

func scanQuiz(row rowScanner) (model.Quiz, error) {
	var (
		q          model.Quiz
		share, url sql.NullString
	)
	if err := row.Scan(&q.ID, &q.GroupChatID, &q.Name, &q.Description, &q.Type, &share, &url, &q.CreatedAt); err != nil {
		return model.Quiz{}, notFound(err)
	}
	q.ShareableToken = share.String
	q.URLToken = url.String
	return q, nil
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
