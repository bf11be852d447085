package security

import (
	"context"
	"sync"
	"time"

	"github.com/iliyamo/whosaidit/internal/model"
	"github.com/iliyamo/whosaidit/internal/repository"
)

// chatStore is an in-memory stand-in for the MySQL repositories, enough to
// answer user lookups, quiz lookups and the ownership chains.
type chatStore struct {
	mu           sync.Mutex
	users        map[string]model.User
	groupChats   map[uint64]model.GroupChat
	messages     map[uint64]model.Message
	participants map[uint64]model.Participant
	quizzes      map[uint64]model.Quiz
	leaderboard  map[uint64]model.LeaderboardEntry
	lookups      int
}

func newChatStore() *chatStore {
	return &chatStore{
		users:        map[string]model.User{},
		groupChats:   map[uint64]model.GroupChat{},
		messages:     map[uint64]model.Message{},
		participants: map[uint64]model.Participant{},
		quizzes:      map[uint64]model.Quiz{},
		leaderboard:  map[uint64]model.LeaderboardEntry{},
	}
}

func (s *chatStore) addUser(id uint64, name string, modified time.Time) model.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	u := model.User{ID: id, Username: name, PasswordModifiedAt: modified}
	s.users[name] = u
	return u
}

func (s *chatStore) FindByUsername(_ context.Context, username string) (model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lookups++
	u, ok := s.users[username]
	if !ok {
		return model.User{}, repository.ErrNotFound
	}
	return u, nil
}

func (s *chatStore) FindByID(_ context.Context, id uint64) (model.Quiz, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	q, ok := s.quizzes[id]
	if !ok {
		return model.Quiz{}, repository.ErrNotFound
	}
	return q, nil
}

func (s *chatStore) groupChatOwner(id uint64) (uint64, error) {
	gc, ok := s.groupChats[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return gc.UserID, nil
}

func (s *chatStore) quizOwner(id uint64) (uint64, error) {
	q, ok := s.quizzes[id]
	if !ok {
		return 0, repository.ErrNotFound
	}
	return s.groupChatOwner(q.GroupChatID)
}

// oracle wraps one of the owner functions as an OwnershipOracle.
func (s *chatStore) oracle(owner func(id uint64) (uint64, error)) OwnershipOracle {
	return OracleFunc(func(_ context.Context, id, userID uint64) (bool, error) {
		s.mu.Lock()
		defer s.mu.Unlock()
		got, err := owner(id)
		if err != nil {
			return false, err
		}
		return got == userID, nil
	})
}

func (s *chatStore) oracles() Oracles {
	return Oracles{
		GroupChats: s.oracle(s.groupChatOwner),
		Messages: s.oracle(func(id uint64) (uint64, error) {
			m, ok := s.messages[id]
			if !ok {
				return 0, repository.ErrNotFound
			}
			return s.groupChatOwner(m.GroupChatID)
		}),
		Participants: s.oracle(func(id uint64) (uint64, error) {
			p, ok := s.participants[id]
			if !ok {
				return 0, repository.ErrNotFound
			}
			return s.groupChatOwner(p.GroupChatID)
		}),
		Leaderboard: s.oracle(func(id uint64) (uint64, error) {
			e, ok := s.leaderboard[id]
			if !ok {
				return 0, repository.ErrNotFound
			}
			return s.quizOwner(e.QuizID)
		}),
	}
}

func (s *chatStore) policy() *Policy {
	return NewPolicy(PolicyDeps{
		Quizzes:    s,
		Oracles:    s.oracles(),
		QuizOwners: s.oracle(s.quizOwner),
	})
}

// fixture: alice (1) uploaded chat 5 with participant 11, message 21,
// quiz 7 and leaderboard entry 31. bob (2) uploaded chat 6.
func seededStore() *chatStore {
	s := newChatStore()
	s.addUser(1, "alice", time.Time{})
	s.addUser(2, "bob", time.Time{})
	s.groupChats[5] = model.GroupChat{ID: 5, UserID: 1}
	s.groupChats[6] = model.GroupChat{ID: 6, UserID: 2}
	s.participants[11] = model.Participant{ID: 11, GroupChatID: 5, Name: "Al"}
	s.messages[21] = model.Message{ID: 21, GroupChatID: 5, ParticipantID: 11}
	s.quizzes[7] = model.Quiz{ID: 7, GroupChatID: 5}
	s.quizzes[8] = model.Quiz{ID: 8, GroupChatID: 6}
	s.leaderboard[31] = model.LeaderboardEntry{ID: 31, QuizID: 7}
	return s
}

const testSecret = "0123456789abcdef0123456789abcdef"

func newTestCodec(now time.Time) *Codec {
	c, err := NewCodec(testSecret)
	if err != nil {
		panic(err)
	}
	c.now = func() time.Time { return now }
	return c
}

var testTTLs = TTLs{Access: 10 * time.Minute, Refresh: 14 * 24 * time.Hour, PasswordReset: 30 * time.Minute}
