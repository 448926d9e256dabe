package httpapi

import (
	"context"
	"errors"
	"io"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/haseebgb92/blooms-journey-sub000/internal/domain"
	"github.com/haseebgb92/blooms-journey-sub000/internal/store"
)

type notificationDTO struct {
	ID            string            `json:"id"`
	Type          string            `json:"type"`
	Title         string            `json:"title"`
	Body          string            `json:"body"`
	ScheduledTime time.Time         `json:"scheduledTime"`
	CreatedAt     time.Time         `json:"createdAt"`
	UserID        string            `json:"userId"`
	Data          map[string]string `json:"data"`
	Sound         bool              `json:"sound"`
	Read          bool              `json:"read"`
	Completed     bool              `json:"completed"`
}

func toDTO(n *domain.Notification) notificationDTO {
	return notificationDTO{
		ID:            n.ID,
		Type:          n.Type.String(),
		Title:         n.Title,
		Body:          n.Body,
		ScheduledTime: n.ScheduledTime,
		CreatedAt:     n.CreatedAt,
		UserID:        n.UserID,
		Data:          n.Data,
		Sound:         n.Sound,
		Read:          n.Read,
		Completed:     n.Completed,
	}
}

// initializeSession starts the user's polling session. The response
// mirrors the client-side initialize() contract: initialized=false means
// reminders are unavailable and the caller should degrade gracefully,
// never error.
func (s *Server) initializeSession(c *gin.Context) {
	userID := c.Param("id")
	if err := s.sched.StartPolling(userID); err != nil {
		s.log.Warn("start polling failed", zap.String("user", userID), zap.Error(err))
		c.JSON(http.StatusOK, gin.H{"initialized": false})
		return
	}
	c.JSON(http.StatusOK, gin.H{"initialized": true})
}

func (s *Server) teardownSession(c *gin.Context) {
	s.sched.StopPolling(c.Param("id"))
	c.Status(http.StatusNoContent)
}

func (s *Server) listNotifications(c *gin.Context) {
	s.list(c, s.repo.ListNotifications)
}

func (s *Server) listReminders(c *gin.Context) {
	s.list(c, s.repo.ListReminders)
}

func (s *Server) list(c *gin.Context, query func(ctx context.Context, userID string, limit int) ([]domain.Notification, error)) {
	userID := c.Param("id")
	items, err := query(c.Request.Context(), userID, 200)
	if err != nil {
		s.log.Warn("list failed", zap.String("user", userID), zap.Error(err))
		// Degrade to an empty list; this surface never errors to the UI.
		c.JSON(http.StatusOK, gin.H{"items": []notificationDTO{}})
		return
	}
	out := make([]notificationDTO, 0, len(items))
	for i := range items {
		out = append(out, toDTO(&items[i]))
	}
	c.JSON(http.StatusOK, gin.H{"items": out})
}

type sendRequest struct {
	Type  string            `json:"type" binding:"required"`
	Title string            `json:"title" binding:"required"`
	Body  string            `json:"body"`
	Data  map[string]string `json:"data"`
	Sound *bool             `json:"sound"`
}

// sendNotification is the fire-and-forget entry point any trigger (or
// an internal tool) can use to push a fully-formed payload through the
// delivery chain.
func (s *Server) sendNotification(c *gin.Context) {
	var req sendRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	cat, err := domain.ParseCategory(req.Type)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	sound := true
	if req.Sound != nil {
		sound = *req.Sound
	}
	n := &domain.Notification{
		Type:   cat,
		Title:  req.Title,
		Body:   req.Body,
		UserID: c.Param("id"),
		Data:   req.Data,
		Sound:  sound,
	}
	if err := s.chain.Send(c.Request.Context(), n); err != nil {
		s.log.Warn("send failed", zap.String("user", n.UserID), zap.Error(err))
		c.JSON(http.StatusAccepted, gin.H{"sent": false})
		return
	}
	c.JSON(http.StatusAccepted, gin.H{"sent": true, "id": n.ID})
}

// markRead flips the read flag; already-read ids and unknown ids are
// no-ops. The interaction also opportunistically refreshes the user's
// activity record.
func (s *Server) markRead(c *gin.Context) {
	s.mark(c, s.repo.MarkNotificationRead)
}

func (s *Server) markCompleted(c *gin.Context) {
	s.mark(c, s.repo.MarkReminderCompleted)
}

func (s *Server) mark(c *gin.Context, op func(ctx context.Context, id string) error) {
	userID := c.Param("id")
	if err := op(c.Request.Context(), c.Param("nid")); err != nil {
		s.log.Warn("mark failed", zap.String("user", userID), zap.Error(err))
	}
	if err := s.repo.TouchActivity(c.Request.Context(), userID, s.clock.Now().UTC()); err != nil {
		s.log.Debug("touch activity failed", zap.String("user", userID), zap.Error(err))
	}
	c.Status(http.StatusNoContent)
}

// streamEvents is the live event channel: server-sent events carrying
// new-notification payloads for badge updates, popups and tones.
func (s *Server) streamEvents(c *gin.Context) {
	userID := c.Param("id")
	ch, unsub := s.bus.Subscribe(16)
	defer unsub()

	c.Stream(func(io.Writer) bool {
		select {
		case e, ok := <-ch:
			if !ok {
				return false
			}
			if e.UserID != userID {
				return true
			}
			payload := gin.H{"kind": e.Kind, "time": e.Time}
			if e.Notification != nil {
				payload["notification"] = toDTO(e.Notification)
			}
			if e.Tone != nil {
				payload["tone"] = e.Tone
			}
			c.SSEvent(string(e.Kind), payload)
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}

type chatMessageRequest struct {
	UserID string `json:"userId" binding:"required"`
	Body   string `json:"body" binding:"required"`
}

func (s *Server) postChatMessage(c *gin.Context) {
	var req chatMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	m := &domain.ChatMessage{
		ConversationID: c.Param("cid"),
		UserID:         req.UserID,
		Body:           req.Body,
	}
	if err := s.chat.OnHumanMessage(c.Request.Context(), m); err != nil {
		if errors.Is(err, store.ErrPermissionDenied) || errors.Is(err, store.ErrUnavailable) {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "try again"})
			return
		}
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"id": m.ID})
}

func (s *Server) closeConversation(c *gin.Context) {
	s.chat.CloseConversation(c.Param("cid"))
	c.Status(http.StatusNoContent)
}

