package handler

import (
	"context"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/model"
	"github.com/iliyamo/whosaidit/internal/repository"
)

// ResourceHandler serves the owned-resource endpoints. Every route it backs
// sits behind the authorizer, so it does no ownership checks of its own
// except where two path IDs must agree.
type ResourceHandler struct {
	Users        *repository.UserRepo
	GroupChats   *repository.GroupChatRepo
	Participants *repository.ParticipantRepo
	Messages     *repository.MessageRepo
	Quizzes      *repository.QuizRepo
	Leaderboard  *repository.LeaderboardRepo
}

type createQuizReq struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

type renameReq struct {
	Name string `json:"name"`
}

type messageIDsReq struct {
	MessageIDs []uint64 `json:"messageIds"`
}

type leaderboardReq struct {
	PlayerUUID string `json:"playerUuid"`
	PlayerName string `json:"playerName"`
	Score      int    `json:"score"`
}

const maxNameLen = 100

// GetUser: GET /api/users/:id
func (h *ResourceHandler) GetUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	u, err := h.Users.FindByID(ctx, id)
	if err != nil {
		return storeError(c, "user", err)
	}
	return c.JSON(http.StatusOK, toUser(u))
}

// DeleteUser: DELETE /api/users/:id
func (h *ResourceHandler) DeleteUser(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Users.Delete(ctx, id); err != nil {
		return storeError(c, "user", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListUserGroupChats: GET /api/users/:id/group-chats
func (h *ResourceHandler) ListUserGroupChats(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid user id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	chats, err := h.GroupChats.ListByUser(ctx, id)
	if err != nil {
		return internalError(c, "list group chats", err)
	}
	return c.JSON(http.StatusOK, mapAll(chats, toGroupChat))
}

// GetGroupChat: GET /api/group-chats/:id
func (h *ResourceHandler) GetGroupChat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	g, err := h.GroupChats.GetByID(ctx, id)
	if err != nil {
		return storeError(c, "group chat", err)
	}
	return c.JSON(http.StatusOK, toGroupChat(g))
}

// DeleteGroupChat: DELETE /api/group-chats/:id
func (h *ResourceHandler) DeleteGroupChat(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.GroupChats.Delete(ctx, id); err != nil {
		return storeError(c, "group chat", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// ListParticipants: GET /api/group-chats/:id/participants
func (h *ResourceHandler) ListParticipants(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	ps, err := h.Participants.ListByGroupChat(ctx, id)
	if err != nil {
		return internalError(c, "list participants", err)
	}
	return c.JSON(http.StatusOK, mapAll(ps, toParticipant))
}

// ListQuizzes: GET /api/group-chats/:id/quizzes
func (h *ResourceHandler) ListQuizzes(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	qs, err := h.Quizzes.ListByGroupChat(ctx, id)
	if err != nil {
		return internalError(c, "list quizzes", err)
	}
	return c.JSON(http.StatusOK, mapAll(qs, toQuiz))
}

// CreateQuiz: POST /api/group-chats/:id/quizzes
func (h *ResourceHandler) CreateQuiz(c echo.Context) error {
	gcID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	var req createQuizReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	req.Name = strings.TrimSpace(req.Name)
	if req.Name == "" || len(req.Name) > maxNameLen {
		return badRequest(c, "name is required (max 100 chars)")
	}
	if req.Type == "" {
		req.Type = model.QuizTimeAttack
	}
	if req.Type != model.QuizTimeAttack && req.Type != model.QuizSurvival {
		return badRequest(c, "type must be TIME_ATTACK or SURVIVAL")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	q := model.Quiz{GroupChatID: gcID, Name: req.Name, Description: strings.TrimSpace(req.Description), Type: req.Type}
	id, err := h.Quizzes.Create(ctx, q)
	if err != nil {
		return internalError(c, "create quiz", err)
	}
	q.ID = id
	return c.JSON(http.StatusCreated, toQuiz(q))
}

// DeleteQuiz: DELETE /api/group-chats/:id/quizzes/:quizId
//
// The authorizer only saw the group chat id, so the quiz must belong to it.
func (h *ResourceHandler) DeleteQuiz(c echo.Context) error {
	gcID, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid group chat id")
	}
	quizID, ok := pathID(c, "quizId")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	q, err := h.Quizzes.FindByID(ctx, quizID)
	if err != nil {
		return storeError(c, "quiz", err)
	}
	if q.GroupChatID != gcID {
		return c.JSON(http.StatusNotFound, echo.Map{"error": "quiz not found"})
	}
	if err := h.Quizzes.Delete(ctx, quizID); err != nil {
		return storeError(c, "quiz", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetMessage: GET /api/messages/:id
func (h *ResourceHandler) GetMessage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid message id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	m, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		return storeError(c, "message", err)
	}
	return c.JSON(http.StatusOK, toMessage(m))
}

// DeleteMessage: DELETE /api/messages/:id
func (h *ResourceHandler) DeleteMessage(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid message id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Messages.Delete(ctx, id); err != nil {
		return storeError(c, "message", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetParticipant: GET /api/participants/:id
func (h *ResourceHandler) GetParticipant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	p, err := h.Participants.GetByID(ctx, id)
	if err != nil {
		return storeError(c, "participant", err)
	}
	return c.JSON(http.StatusOK, toParticipant(p))
}

// RenameParticipant: PATCH /api/participants/:id/name
func (h *ResourceHandler) RenameParticipant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}
	var req renameReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	name := strings.TrimSpace(req.Name)
	if name == "" || len(name) > maxNameLen {
		return badRequest(c, "name is required (max 100 chars)")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Participants.Rename(ctx, id, name); err != nil {
		return storeError(c, "participant", err)
	}
	return c.JSON(http.StatusOK, participantResp{ID: id, Name: name})
}

// DeleteParticipant: DELETE /api/participants/:id
func (h *ResourceHandler) DeleteParticipant(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid participant id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Participants.Delete(ctx, id); err != nil {
		return storeError(c, "participant", err)
	}
	return c.NoContent(http.StatusNoContent)
}

// GetQuiz: GET /api/quizzes/:id returns the quiz with its messages, which
// is what a player needs to play it.
func (h *ResourceHandler) GetQuiz(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	q, err := h.Quizzes.FindByID(ctx, id)
	if err != nil {
		return storeError(c, "quiz", err)
	}
	msgs, err := h.Messages.ListByQuiz(ctx, id)
	if err != nil {
		return internalError(c, "list quiz messages", err)
	}
	resp := toQuiz(q)
	resp.Messages = mapAll(msgs, toMessage)
	return c.JSON(http.StatusOK, resp)
}

// AddQuizMessages: POST /api/quizzes/:id/messages
func (h *ResourceHandler) AddQuizMessages(c echo.Context) error {
	return h.editQuizMessages(c, h.Quizzes.AddMessages, "added")
}

// RemoveQuizMessages: PATCH /api/quizzes/:id/messages
func (h *ResourceHandler) RemoveQuizMessages(c echo.Context) error {
	return h.editQuizMessages(c, h.Quizzes.RemoveMessages, "removed")
}

func (h *ResourceHandler) editQuizMessages(c echo.Context,
	apply func(ctx context.Context, quizID uint64, ids []uint64) (int64, error), verb string) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	var req messageIDsReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	if len(req.MessageIDs) == 0 {
		return badRequest(c, "messageIds required")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	n, err := apply(ctx, id, req.MessageIDs)
	if err != nil {
		return internalError(c, "quiz messages "+verb, err)
	}
	return c.JSON(http.StatusOK, echo.Map{verb: n})
}

// ListLeaderboard: GET /api/quizzes/:id/leaderboard[?limit=n]
func (h *ResourceHandler) ListLeaderboard(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	limit := 0
	if s := c.QueryParam("limit"); s != "" {
		n, err := strconv.Atoi(s)
		if err != nil || n < 1 {
			return badRequest(c, "invalid limit")
		}
		limit = n
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	entries, err := h.Leaderboard.ListByQuiz(ctx, id, limit)
	if err != nil {
		return internalError(c, "list leaderboard", err)
	}
	return c.JSON(http.StatusOK, mapAll(entries, toLeaderboard))
}

// SubmitScore: POST /api/quizzes/:id/leaderboard
//
// Anonymous players get a generated uuid they can send back on later runs.
func (h *ResourceHandler) SubmitScore(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid quiz id")
	}
	var req leaderboardReq
	if err := c.Bind(&req); err != nil {
		return badRequest(c, "invalid body")
	}
	name := strings.TrimSpace(req.PlayerName)
	if name == "" || len(name) > maxNameLen {
		return badRequest(c, "playerName is required (max 100 chars)")
	}
	if req.Score < 0 {
		return badRequest(c, "score must be >= 0")
	}
	player := req.PlayerUUID
	if player == "" {
		player = uuid.NewString()
	} else if _, err := uuid.Parse(player); err != nil {
		return badRequest(c, "invalid playerUuid")
	}

	ctx, cancel := dbCtx(c)
	defer cancel()

	e := model.LeaderboardEntry{QuizID: id, PlayerUUID: player, PlayerName: name, Score: req.Score}
	entryID, err := h.Leaderboard.Create(ctx, e)
	if err != nil {
		return internalError(c, "submit score", err)
	}
	e.ID = entryID
	return c.JSON(http.StatusCreated, toLeaderboard(e))
}

// GetLeaderboardEntry: GET /api/leaderboard/:id
func (h *ResourceHandler) GetLeaderboardEntry(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid leaderboard id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	e, err := h.Leaderboard.GetByID(ctx, id)
	if err != nil {
		return storeError(c, "leaderboard entry", err)
	}
	return c.JSON(http.StatusOK, toLeaderboard(e))
}

// DeleteLeaderboardEntry: DELETE /api/leaderboard/:id
func (h *ResourceHandler) DeleteLeaderboardEntry(c echo.Context) error {
	id, ok := pathID(c, "id")
	if !ok {
		return badRequest(c, "invalid leaderboard id")
	}
	ctx, cancel := dbCtx(c)
	defer cancel()

	if err := h.Leaderboard.Delete(ctx, id); err != nil {
		return storeError(c, "leaderboard entry", err)
	}
	return c.NoContent(http.StatusNoContent)
}
