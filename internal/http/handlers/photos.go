package handlers

import (
	"errors"
	"io"
	"net/http"
	"path/filepath"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"

	"merabuchpan/internal/domain"
	"merabuchpan/internal/imgutil"
)

// multipart overhead allowed on top of the file itself
const formOverhead = 64 << 10

// SelectPhoto handles POST /photos/{slot}: the multipart field "photo"
// replaces the slot's selection. A request without a file changes nothing.
// A session is only started once an accepted photo arrives.
func (a *App) SelectPhoto(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown photo slot")
		return
	}
	log := zerolog.Ctx(r.Context()).With().Str("slot", string(slot)).Logger()

	limit := a.Config.MaxUploadBytes
	r.Body = http.MaxBytesReader(w, r.Body, limit+formOverhead)
	if err := r.ParseMultipartForm(limit); err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			log.Warn().Int64("limit", limit).Msg("upload rejected: too large")
			a.error(w, http.StatusRequestEntityTooLarge, "too_large", "photo exceeds "+strconv.FormatInt(limit>>20, 10)+" MiB")
			return
		}
		if !errors.Is(err, http.ErrNotMultipart) {
			log.Warn().Err(err).Msg("upload rejected: bad form")
			a.error(w, http.StatusBadRequest, "bad_request", "invalid upload form")
			return
		}
	}
	if r.MultipartForm != nil {
		defer func() { _ = r.MultipartForm.RemoveAll() }()
	}

	file, header, err := r.FormFile("photo")
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			a.done(w, r, a.snapshotFor(r), http.StatusOK)
			return
		}
		a.error(w, http.StatusBadRequest, "bad_request", "invalid upload form")
		return
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, limit+1))
	if err != nil {
		a.error(w, http.StatusBadRequest, "bad_request", "could not read photo")
		return
	}
	if int64(len(data)) > limit {
		log.Warn().Int64("limit", limit).Msg("upload rejected: too large")
		a.error(w, http.StatusRequestEntityTooLarge, "too_large", "photo exceeds "+strconv.FormatInt(limit>>20, 10)+" MiB")
		return
	}
	if len(data) == 0 {
		a.done(w, r, a.snapshotFor(r), http.StatusOK)
		return
	}

	photo, err := imgutil.NewPhoto(filepath.Base(header.Filename), data)
	if err != nil {
		log.Warn().Err(err).Str("declared", header.Header.Get("Content-Type")).Msg("upload rejected: not an accepted image")
		a.error(w, http.StatusUnsupportedMediaType, "unsupported_media_type", "please choose a PNG, JPG, or WEBP image")
		return
	}

	ctrl, err := a.controllerFor(w, r)
	if err != nil {
		a.sessionUnavailable(w, r, err)
		return
	}
	if !ctrl.SelectPhoto(slot, photo) {
		log.Debug().Msg("selection ignored outside initial state")
	} else {
		log.Info().
			Str("mime", photo.MIMEType).
			Int("bytes", len(photo.Data)).
			Int("width", photo.Width).
			Int("height", photo.Height).
			Msg("photo selected")
	}
	a.done(w, r, ctrl.Snapshot(), http.StatusOK)
}

// Preview serves the raw bytes of the selected photo.
func (a *App) Preview(w http.ResponseWriter, r *http.Request) {
	slot, err := domain.ParseSlot(chi.URLParam(r, "slot"))
	if err != nil {
		a.error(w, http.StatusNotFound, "not_found", "unknown photo slot")
		return
	}
	photo := a.snapshotFor(r).Photo(slot)
	if photo.IsZero() {
		a.error(w, http.StatusNotFound, "not_found", "no photo selected")
		return
	}
	noStore(w)
	w.Header().Set("Content-Type", photo.MIMEType)
	w.Header().Set("Content-Length", strconv.Itoa(len(photo.Data)))
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(photo.Data)
}
