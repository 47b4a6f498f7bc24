// Package page renders the single HTML view for every application state.
package page

import (
	"bytes"
	"context"
	_ "embed"
	"html/template"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"merabuchpan/internal/domain"
)

//go:embed assets/index.html
var indexTmpl string

// RefreshSeconds is how often the loading view reloads itself.
const RefreshSeconds = 3

// SlotView is one upload area.
type SlotView struct {
	Slot       domain.Slot
	Label      string
	HasPhoto   bool
	Filename   string
	PreviewURL template.URL
	Editable   bool
}

// Params is the data handed to the template.
type Params struct {
	Locale         string
	State          domain.State
	Slots          []SlotView
	Accept         string
	CanGenerate    bool
	ResultURL      template.URL
	ErrorMessage   string
	Filename       string
	RefreshSeconds int
}

// NewParams builds the view model for snap.
func NewParams(locale string, snap domain.Snapshot) Params {
	p := Params{
		Locale:       locale,
		State:        snap.State,
		Accept:       strings.Join(domain.AcceptedMIMETypes, ","),
		CanGenerate:  snap.CanGenerate,
		ErrorMessage: Message(locale, snap.ErrorMessage),
		Filename:     domain.ResultFilename,
	}
	for _, slot := range domain.Slots {
		photo := snap.Photo(slot)
		view := SlotView{
			Slot:     slot,
			Label:    T(locale, slot.LabelKey()),
			HasPhoto: !photo.IsZero(),
			Filename: photo.Filename,
			Editable: snap.State == domain.StateInitial,
		}
		if view.HasPhoto {
			// MIME type was sniffed from the content on upload.
			view.PreviewURL = template.URL(photo.DataURL())
		}
		p.Slots = append(p.Slots, view)
	}
	if snap.State == domain.StateLoading {
		p.RefreshSeconds = RefreshSeconds
	}
	if url := snap.ResultDataURL(); url != "" {
		// Base64 payload with an image/* type from the provider.
		p.ResultURL = template.URL(url)
	}
	return p
}

// Templator renders the index page. The zero value is ready to use.
type Templator struct {
	tmpl *template.Template
	once sync.Once
}

func (g *Templator) parse() {
	g.tmpl = template.Must(template.New("index").Funcs(template.FuncMap{
		"t": T,
	}).Parse(indexTmpl))
}

// Render executes the template for params.
func (g *Templator) Render(ctx context.Context, params Params) ([]byte, error) {
	g.once.Do(g.parse)

	zerolog.Ctx(ctx).Debug().
		Str("state", string(params.State)).
		Str("locale", params.Locale).
		Msg("rendering page")

	var data bytes.Buffer
	if err := g.tmpl.Execute(&data, params); err != nil {
		return nil, err
	}
	return data.Bytes(), nil
}
