package handlers

import (
	"net/http"

	"github.com/rs/zerolog"

	"merabuchpan/internal/middleware"
	"merabuchpan/internal/page"
)

// Index renders the view for the session's current state.
func (a *App) Index(w http.ResponseWriter, r *http.Request) {
	params := page.NewParams(middleware.LocaleFromContext(r.Context()), a.snapshotFor(r))
	body, err := a.Pages.Render(r.Context(), params)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("render page")
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}
	noStore(w)
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}
