package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"merabuchpan/internal/controller"
	"merabuchpan/internal/domain"
	"merabuchpan/internal/infra"
	"merabuchpan/internal/middleware"
	"merabuchpan/internal/page"
	"merabuchpan/internal/session"
)

// SessionCookie holds the opaque session id.
const SessionCookie = "mb_session"

// StatsReader serves the analytics API. It is nil when no database is configured.
type StatsReader interface {
	Daily(ctx context.Context, limit int) ([]domain.DailyStats, error)
	TopCountries(ctx context.Context, days, limit int) ([]domain.CountryCount, error)
}

// App carries the dependencies shared by every handler.
type App struct {
	Config    *infra.Config
	Logger    zerolog.Logger
	Sessions  *session.Store
	Pages     *page.Templator
	Analytics StatsReader
	Model     string

	started  time.Time
	inflight sync.WaitGroup
}

// NewApp wires the handler dependencies. stats may be nil.
func NewApp(cfg *infra.Config, logger zerolog.Logger, sessions *session.Store, stats StatsReader) *App {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		Sessions:  sessions,
		Pages:     &page.Templator{},
		Analytics: stats,
		started:   time.Now(),
	}
	if cfg != nil {
		app.Model = cfg.GeminiModel
	}
	return app
}

// Drain waits for background generations to finish or ctx to end.
func (a *App) Drain(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		a.inflight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// session returns the caller's controller when the cookie names a live session.
func (a *App) session(r *http.Request) (*controller.Controller, bool) {
	c, err := r.Cookie(SessionCookie)
	if err != nil {
		return nil, false
	}
	ctrl, err := a.Sessions.Get(c.Value)
	if err != nil {
		return nil, false
	}
	return ctrl, true
}

// snapshotFor reads the caller's state. Callers without a session see the
// initial state and no session is started.
func (a *App) snapshotFor(r *http.Request) domain.Snapshot {
	if ctrl, ok := a.session(r); ok {
		return ctrl.Snapshot()
	}
	return domain.Snapshot{State: domain.StateInitial}
}

// controllerFor returns the caller's controller, starting a session and
// setting the cookie when there is none or it has expired. Only actions that
// change state call it.
func (a *App) controllerFor(w http.ResponseWriter, r *http.Request) (*controller.Controller, error) {
	if ctrl, ok := a.session(r); ok {
		return ctrl, nil
	}
	id, ctrl, err := a.Sessions.Create()
	if err != nil {
		return nil, err
	}
	http.SetCookie(w, &http.Cookie{
		Name:     SessionCookie,
		Value:    id,
		Path:     "/",
		HttpOnly: true,
		Secure:   a.Config != nil && a.Config.SessionCookieSecure,
		SameSite: http.SameSiteLaxMode,
	})
	zerolog.Ctx(r.Context()).Debug().Str("session", id[:8]).Msg("session started")
	return ctrl, nil
}

// sessionUnavailable answers when no session could be started.
func (a *App) sessionUnavailable(w http.ResponseWriter, r *http.Request, err error) {
	zerolog.Ctx(r.Context()).Warn().Err(err).Int("live", a.Sessions.Len()).Msg("session not started")
	w.Header().Set("Retry-After", "60")
	a.error(w, http.StatusServiceUnavailable, "busy", "too many active sessions, please try again later")
}

func (a *App) json(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}

type errorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message"`
}

func (a *App) error(w http.ResponseWriter, code int, errCode, msg string) {
	a.json(w, code, errorResponse{Error: errCode, Message: msg})
}

// done finishes a form action: JSON callers get the state, browsers go back
// to the page.
func (a *App) done(w http.ResponseWriter, r *http.Request, snap domain.Snapshot, code int) {
	if wantsJSON(r) {
		a.json(w, code, newStateView(middleware.LocaleFromContext(r.Context()), snap))
		return
	}
	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func wantsJSON(r *http.Request) bool {
	return strings.Contains(r.Header.Get("Accept"), "application/json")
}

func noStore(w http.ResponseWriter) {
	w.Header().Set("Cache-Control", "no-store")
}
