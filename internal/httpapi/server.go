// Package httpapi exposes the reminder engine to UI clients: read
// accessors for badges and lists, idempotent acknowledge transitions,
// the fire-and-forget send entry point, chat message ingress, and a
// server-sent-events stream for live updates.
package httpapi

import (
	"github.com/gin-gonic/gin"
	"github.com/jonboulle/clockwork"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/chatbot"
	"github.com/haseebgb92/blooms-journey-sub000/internal/eventbus"
	"github.com/haseebgb92/blooms-journey-sub000/internal/notify"
	"github.com/haseebgb92/blooms-journey-sub000/internal/scheduler"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

type Server struct {
	repo  store.Repo
	sched *scheduler.Service
	chat  *chatbot.Service
	chain *notify.Chain
	bus   eventbus.Bus
	clock clockwork.Clock
	log   *zap.Logger
}

func NewServer(repo store.Repo, sched *scheduler.Service, chat *chatbot.Service, chain *notify.Chain, bus eventbus.Bus, clock clockwork.Clock, log *zap.Logger) *Server {
	if clock == nil {
		clock = clockwork.NewRealClock()
	}
	return &Server{
		repo:  repo,
		sched: sched,
		chat:  chat,
		chain: chain,
		bus:   bus,
		clock: clock,
		log:   log,
	}
}

// Router builds the gin engine with all routes mounted.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) { c.Status(200) })

	v1 := r.Group("/v1")
	{
		v1.POST("/users/:id/session", s.initializeSession)
		v1.DELETE("/users/:id/session", s.teardownSession)

		v1.GET("/users/:id/notifications", s.listNotifications)
		v1.GET("/users/:id/reminders", s.listReminders)
		v1.POST("/users/:id/notifications", s.sendNotification)
		v1.POST("/users/:id/notifications/:nid/read", s.markRead)
		v1.POST("/users/:id/reminders/:nid/complete", s.markCompleted)
		v1.GET("/users/:id/events", s.streamEvents)

		v1.POST("/conversations/:cid/messages", s.postChatMessage)
		v1.DELETE("/conversations/:cid", s.closeConversation)
	}
	return r
}
