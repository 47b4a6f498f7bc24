package handlers

import (
	"net/http"
	"time"
)

// Health reports liveness plus a few process counters.
func (a *App) Health(w http.ResponseWriter, r *http.Request) {
	a.json(w, http.StatusOK, map[string]any{
		"status":    "ok",
		"model":     a.Model,
		"sessions":  a.Sessions.Len(),
		"analytics": a.Analytics != nil,
		"uptime_s":  int(time.Since(a.started).Seconds()),
	})
}
