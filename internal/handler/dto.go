package handler

import (
	"time"

	"github.com/iliyamo/whosaidit/internal/model"
)

// Response shapes. Password hashes and stored quiz tokens never leave the
// service through these.

type userResp struct {
	ID        uint64    `json:"id"`
	Username  string    `json:"username"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"createdAt"`
}

type groupChatResp struct {
	ID         uint64    `json:"id"`
	UserID     uint64    `json:"userId"`
	Name       string    `json:"name"`
	FileName   string    `json:"fileName"`
	UploadedAt time.Time `json:"uploadedAt"`
}

type participantResp struct {
	ID          uint64 `json:"id"`
	GroupChatID uint64 `json:"groupChatId"`
	Name        string `json:"name"`
}

type messageResp struct {
	ID            uint64    `json:"id"`
	GroupChatID   uint64    `json:"groupChatId"`
	ParticipantID uint64    `json:"participantId"`
	Content       string    `json:"content"`
	SentAt        time.Time `json:"sentAt"`
}

type quizResp struct {
	ID          uint64        `json:"id"`
	GroupChatID uint64        `json:"groupChatId"`
	Name        string        `json:"name"`
	Description string        `json:"description"`
	Type        string        `json:"type"`
	Shared      bool          `json:"shared"`
	CreatedAt   time.Time     `json:"createdAt"`
	Messages    []messageResp `json:"messages,omitempty"`
}

type leaderboardResp struct {
	ID         uint64    `json:"id"`
	QuizID     uint64    `json:"quizId"`
	PlayerUUID string    `json:"playerUuid"`
	PlayerName string    `json:"playerName"`
	Score      int       `json:"score"`
	CreatedAt  time.Time `json:"createdAt"`
}

func toUser(u model.User) userResp {
	return userResp{ID: u.ID, Username: u.Username, Email: u.Email, CreatedAt: u.CreatedAt}
}

func toGroupChat(g model.GroupChat) groupChatResp {
	return groupChatResp{ID: g.ID, UserID: g.UserID, Name: g.Name, FileName: g.FileName, UploadedAt: g.UploadedAt}
}

func toParticipant(p model.Participant) participantResp {
	return participantResp{ID: p.ID, GroupChatID: p.GroupChatID, Name: p.Name}
}

func toMessage(m model.Message) messageResp {
	return messageResp{ID: m.ID, GroupChatID: m.GroupChatID, ParticipantID: m.ParticipantID, Content: m.Content, SentAt: m.SentAt}
}

func toQuiz(q model.Quiz) quizResp {
	return quizResp{
		ID:          q.ID,
		GroupChatID: q.GroupChatID,
		Name:        q.Name,
		Description: q.Description,
		Type:        q.Type,
		Shared:      q.ShareableToken != "",
		CreatedAt:   q.CreatedAt,
	}
}

func toLeaderboard(e model.LeaderboardEntry) leaderboardResp {
	return leaderboardResp{ID: e.ID, QuizID: e.QuizID, PlayerUUID: e.PlayerUUID, PlayerName: e.PlayerName, Score: e.Score, CreatedAt: e.CreatedAt}
}

// mapAll converts a slice with f and never returns nil, so empty lists
// encode as [].
func mapAll[T, R any](in []T, f func(T) R) []R {
	out := make([]R, 0, len(in))
	for _, v := range in {
		out = append(out, f(v))
	}
	return out
}
