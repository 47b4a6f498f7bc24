package handlers

import (
	"context"
	"encoding/base64"
	"errors"
	"mime"
	"net/http"
	"strconv"

	"github.com/rs/zerolog"

	"merabuchpan/internal/domain"
	"merabuchpan/internal/middleware"
)

// Generate handles POST /generate. The controller moves to loading before
// the response is sent; the remote call continues in the background and the
// page polls until the state changes.
func (a *App) Generate(w http.ResponseWriter, r *http.Request) {
	ctrl, err := a.controllerFor(w, r)
	if err != nil {
		a.sessionUnavailable(w, r, err)
		return
	}
	log := zerolog.Ctx(r.Context())

	job, err := ctrl.Begin()
	switch {
	case errors.Is(err, domain.ErrGenerationInProgress):
		a.error(w, http.StatusConflict, "in_progress", "a generation is already running")
		return
	case errors.Is(err, domain.ErrInvalidState):
		a.error(w, http.StatusConflict, "invalid_state", "start over before generating again")
		return
	case errors.Is(err, domain.ErrMissingPhotos):
		log.Info().Msg("generate requested without both photos")
		a.done(w, r, ctrl.Snapshot(), http.StatusOK)
		return
	case err != nil:
		log.Error().Err(err).Msg("begin generation")
		a.error(w, http.StatusInternalServerError, "internal", domain.MessageUnknownError)
		return
	}

	job.Country = middleware.CountryFromContext(r.Context())
	ctx := context.WithoutCancel(r.Context())
	a.inflight.Add(1)
	go func() {
		defer a.inflight.Done()
		defer func() {
			if rec := recover(); rec != nil {
				zerolog.Ctx(ctx).Error().Interface("panic", rec).Msg("generation panicked")
			}
		}()
		_ = job.Run(ctx)
	}()

	log.Info().Str("model", a.Model).Msg("generation started")
	a.done(w, r, ctrl.Snapshot(), http.StatusAccepted)
}

// Reset handles POST /reset from any state. Without a session there is
// nothing to clear.
func (a *App) Reset(w http.ResponseWriter, r *http.Request) {
	if ctrl, ok := a.session(r); ok {
		ctrl.Reset()
	}
	a.done(w, r, a.snapshotFor(r), http.StatusOK)
}

// Download serves the generated image as an attachment.
func (a *App) Download(w http.ResponseWriter, r *http.Request) {
	snap := a.snapshotFor(r)
	if snap.State != domain.StateResult || snap.GeneratedB64 == "" {
		a.error(w, http.StatusNotFound, "not_found", "no generated image")
		return
	}
	data, err := base64.StdEncoding.DecodeString(snap.GeneratedB64)
	if err != nil {
		zerolog.Ctx(r.Context()).Error().Err(err).Msg("decode generated image")
		a.error(w, http.StatusInternalServerError, "internal", domain.MessageUnknownError)
		return
	}
	noStore(w)
	w.Header().Set("Content-Type", snap.ResultMIME())
	w.Header().Set("Content-Disposition", mime.FormatMediaType("attachment", map[string]string{"filename": domain.ResultFilename}))
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}
