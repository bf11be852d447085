package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/whosaidit/internal/handler"
)

// RegisterResources registers the owned-resource endpoints. There is no
// DELETE /api/quizzes/:id: a share link holder passes the quiz rule, so
// deletion lives under the group chat where only the owner gets through.
func RegisterResources(e *echo.Echo, a *handler.AuthHandler, r *handler.ResourceHandler) {
	users := e.Group("/api/users")
	users.GET("/:id", r.GetUser)
	users.DELETE("/:id", r.DeleteUser)
	users.GET("/:id/group-chats", r.ListUserGroupChats)
	users.PATCH("/:id/password", a.UpdatePassword)
	users.PATCH("/:id/email", a.UpdateEmail)

	gc := e.Group("/api/group-chats")
	gc.GET("/:id", r.GetGroupChat)
	gc.DELETE("/:id", r.DeleteGroupChat)
	gc.GET("/:id/participants", r.ListParticipants)
	gc.GET("/:id/quizzes", r.ListQuizzes)
	gc.POST("/:id/quizzes", r.CreateQuiz)
	gc.DELETE("/:id/quizzes/:quizId", r.DeleteQuiz)

	e.GET("/api/messages/:id", r.GetMessage)
	e.DELETE("/api/messages/:id", r.DeleteMessage)

	e.GET("/api/participants/:id", r.GetParticipant)
	e.DELETE("/api/participants/:id", r.DeleteParticipant)
	e.PATCH("/api/participants/:id/name", r.RenameParticipant)

	q := e.Group("/api/quizzes")
	q.GET("/:id", r.GetQuiz)
	q.POST("/:id/messages", r.AddQuizMessages)
	q.PATCH("/:id/messages", r.RemoveQuizMessages)
	q.POST("/:id/generate-token", a.GenerateQuizToken)
	q.GET("/:id/leaderboard", r.ListLeaderboard)
	q.POST("/:id/leaderboard", r.SubmitScore)

	e.GET("/api/leaderboard/:id", r.GetLeaderboardEntry)
	e.DELETE("/api/leaderboard/:id", r.DeleteLeaderboardEntry)
}
