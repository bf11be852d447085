package model

import "time"

// Quiz types stored in quizzes.quiz_type.
const (
	QuizTimeAttack = "TIME_ATTACK"
	QuizSurvival   = "SURVIVAL"
)

// Quiz is built from a subset of one group chat's messages.
//
// ShareableToken and URLToken are empty until the owner first shares the
// quiz. Only the stored ShareableToken is honoured; regenerating it revokes
// the previous one.
type Quiz struct {
	ID             uint64    // quizzes.id
	GroupChatID    uint64    // quizzes.group_chat_id
	Name           string    // quizzes.name
	Description    string    // quizzes.description
	Type           string    // quizzes.quiz_type
	ShareableToken string    // quizzes.shareable_token (nullable)
	URLToken       string    // quizzes.url_token (nullable, unique)
	CreatedAt      time.Time // quizzes.created_at
}

// LeaderboardEntry is one play-through result recorded against a quiz.
type LeaderboardEntry struct {
	ID         uint64    // leaderboard_entries.id
	QuizID     uint64    // leaderboard_entries.quiz_id
	PlayerUUID string    // leaderboard_entries.player_uuid
	PlayerName string    // leaderboard_entries.player_name
	Score      int       // leaderboard_entries.score
	CreatedAt  time.Time // leaderboard_entries.created_at
}
