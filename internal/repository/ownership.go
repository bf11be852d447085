package repository

import (
	"context"
	"database/sql"
)

// ownerQueries resolve a resource id to the id of the user that uploaded the
// group chat it belongs to. Each takes exactly one argument: the resource id.
const (
	ownerOfGroupChat = `SELECT gc.user_id FROM group_chats gc WHERE gc.id = ?`

	ownerOfMessage = `SELECT gc.user_id
	                  FROM messages m
	                  JOIN group_chats gc ON gc.id = m.group_chat_id
	                  WHERE m.id = ?`

	ownerOfParticipant = `SELECT gc.user_id
	                      FROM participants p
	                      JOIN group_chats gc ON gc.id = p.group_chat_id
	                      WHERE p.id = ?`

	ownerOfQuiz = `SELECT gc.user_id
	               FROM quizzes q
	               JOIN group_chats gc ON gc.id = q.group_chat_id
	               WHERE q.id = ?`

	ownerOfLeaderboardEntry = `SELECT gc.user_id
	                           FROM leaderboard_entries le
	                           JOIN quizzes q ON q.id = le.quiz_id
	                           JOIN group_chats gc ON gc.id = q.group_chat_id
	                           WHERE le.id = ?`
)

// ownedBy runs one of the owner queries. A missing resource yields
// ErrNotFound rather than false so callers can tell the cases apart.
func ownedBy(ctx context.Context, db *sql.DB, query string, resourceID, userID uint64) (bool, error) {
	var owner uint64
	if err := db.QueryRowContext(ctx, query, resourceID).Scan(&owner); err != nil {
		return false, notFound(err)
	}
	return owner == userID, nil
}
