// internal/httpapi/handlers.go
package httpapi

import (
	"context"
	"net/http"
	"sort"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/tamzrod/attendance-notifier/internal/attendance"
	"github.com/tamzrod/attendance-notifier/internal/poller"
	"github.com/tamzrod/attendance-notifier/internal/session"
	"github.com/tamzrod/attendance-notifier/internal/status"
)

type handler struct {
	d Deps
}

// ---- response shapes ----

type statusResponse struct {
	Health  string          `json:"health"`
	Status  status.Snapshot `json:"status"`
	Session sessionView     `json:"session"`
}

type sessionView struct {
	State     session.State  `json:"state"`
	CreatedAt *time.Time     `json:"created_at,omitempty"`
	RenewAt   *time.Time     `json:"renew_at,omitempty"`
	ExpiresAt *time.Time     `json:"expires_at,omitempty"`
	Ledger    session.Ledger `json:"ledger"`
}

type courseView struct {
	Code     string              `json:"code"`
	Present  int                 `json:"present"`
	Total    int                 `json:"total"`
	Advisory attendance.Advisory `json:"advisory"`
}

type pollResponse struct {
	CycleID        string     `json:"cycle_id"`
	At             time.Time  `json:"at"`
	Skipped        bool       `json:"skipped"`
	SkipReason     string     `json:"skip_reason,omitempty"`
	Courses        int        `json:"courses"`
	Events         []eventRef `json:"events"`
	Notified       int        `json:"notified"`
	NotifyFailures int        `json:"notify_failures"`
	Error          string     `json:"error,omitempty"`
}

type eventRef struct {
	Course string               `json:"course"`
	Kind   attendance.EventKind `json:"kind"`
}

// ---- handlers ----

func (h *handler) health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

func (h *handler) status(c *gin.Context) {
	var resp statusResponse

	if h.d.Status != nil {
		resp.Status = h.d.Status.Snapshot()
	}
	resp.Health = status.HealthName(resp.Status.Health)

	if h.d.Sessions != nil {
		resp.Session.State = h.d.Sessions.State()
		resp.Session.Ledger = h.d.Sessions.Ledger()
		if s, ok := h.d.Sessions.Current(); ok {
			resp.Session.CreatedAt = &s.CreatedAt
			resp.Session.RenewAt = &s.RenewAt
			resp.Session.ExpiresAt = &s.ExpiresAt
		}
	}

	c.JSON(http.StatusOK, resp)
}

func (h *handler) attendance(c *gin.Context) {
	if h.d.Snapshots == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no snapshot store"})
		return
	}

	snap, err := h.d.Snapshots.Load(c.Request.Context())
	if err != nil {
		h.d.Logger.Error("snapshot load failed", "error", err)
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "snapshot unavailable"})
		return
	}

	codes := make([]string, 0, len(snap))
	for code := range snap {
		codes = append(codes, code)
	}
	sort.Strings(codes)

	courses := make([]courseView, 0, len(codes))
	for _, code := range codes {
		cc := snap[code]
		courses = append(courses, courseView{
			Code:     code,
			Present:  cc.Present,
			Total:    cc.Total,
			Advisory: attendance.Advise(cc.Present, cc.Total),
		})
	}

	c.JSON(http.StatusOK, gin.H{"courses": courses})
}

func (h *handler) poll(c *gin.Context) {
	if h.d.Poller == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "poller unavailable"})
		return
	}

	// a client hanging up must not tear down a cycle halfway
	res := h.d.Poller.PollOnce(context.WithoutCancel(c.Request.Context()))
	if h.d.OnResult != nil {
		h.d.OnResult(res)
	}

	resp := pollResponse{
		CycleID:        res.CycleID,
		At:             res.At,
		Skipped:        res.Skipped,
		SkipReason:     res.SkipReason,
		Courses:        res.Courses,
		Events:         make([]eventRef, 0, len(res.Events)),
		Notified:       res.Notified,
		NotifyFailures: res.NotifyFailures,
	}
	for _, ev := range res.Events {
		resp.Events = append(resp.Events, eventRef{Course: ev.CourseCode, Kind: ev.Kind})
	}

	code := http.StatusOK
	switch {
	case res.Err != nil:
		resp.Error = res.Err.Error()
		code = http.StatusBadGateway
	case res.Skipped && res.SkipReason == poller.SkipInFlight:
		code = http.StatusConflict
	}

	c.JSON(code, resp)
}
