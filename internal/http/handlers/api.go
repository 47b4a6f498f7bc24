package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog"

	"merabuchpan/internal/domain"
	"merabuchpan/internal/middleware"
	"merabuchpan/internal/page"
)

type stateView struct {
	State        domain.State `json:"state"`
	HasChild     bool         `json:"has_child"`
	HasAdult     bool         `json:"has_adult"`
	CanGenerate  bool         `json:"can_generate"`
	ErrorMessage string       `json:"error_message,omitempty"`
	DownloadURL  string       `json:"download_url,omitempty"`
}

func newStateView(locale string, snap domain.Snapshot) stateView {
	v := stateView{
		State:        snap.State,
		HasChild:     snap.HasPhoto(domain.SlotChild),
		HasAdult:     snap.HasPhoto(domain.SlotAdult),
		CanGenerate:  snap.CanGenerate,
		ErrorMessage: page.Message(locale, snap.ErrorMessage),
	}
	if snap.State == domain.StateResult {
		v.DownloadURL = "/download"
	}
	return v
}

// State returns the session's state without image payloads.
func (a *App) State(w http.ResponseWriter, r *http.Request) {
	snap := a.snapshotFor(r)
	noStore(w)
	a.json(w, http.StatusOK, newStateView(middleware.LocaleFromContext(r.Context()), snap))
}

type dailyView struct {
	Day       string `json:"day"`
	Attempts  int    `json:"attempts"`
	Successes int    `json:"successes"`
	Failures  int    `json:"failures"`
}

type countryView struct {
	Country  string `json:"country"`
	Attempts int    `json:"attempts"`
}

// Stats returns daily generation counters and top countries.
func (a *App) Stats(w http.ResponseWriter, r *http.Request) {
	if a.Analytics == nil {
		a.error(w, http.StatusNotFound, "not_found", "analytics disabled")
		return
	}
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 || n > 365 {
			a.error(w, http.StatusBadRequest, "bad_request", "days must be between 1 and 365")
			return
		}
		days = n
	}

	daily, err := a.Analytics.Daily(r.Context(), days)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("load daily stats")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}
	countries, err := a.Analytics.TopCountries(r.Context(), days, 10)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("load country stats")
		a.error(w, http.StatusInternalServerError, "internal", "failed to load stats")
		return
	}

	resp := struct {
		Days      int           `json:"days"`
		Daily     []dailyView   `json:"daily"`
		Countries []countryView `json:"countries"`
	}{Days: days, Daily: []dailyView{}, Countries: []countryView{}}
	for _, d := range daily {
		resp.Daily = append(resp.Daily, dailyView{
			Day:       d.Day.Format(time.DateOnly),
			Attempts:  d.Attempts,
			Successes: d.Successes,
			Failures:  d.Failures,
		})
	}
	for _, c := range countries {
		resp.Countries = append(resp.Countries, countryView{Country: c.Country, Attempts: c.Attempts})
	}
	a.json(w, http.StatusOK, resp)
}
