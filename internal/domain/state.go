package domain

// State is the application state driving which view is rendered.
type State string

const (
	StateInitial State = "initial"
	StateLoading State = "loading"
	StateResult  State = "result"
	StateError   State = "error"
)

const (
	// ResultFilename is offered when the user downloads the composite.
	ResultFilename = "merabuchpan_reunion.png"
	// ResultMIMEType is used when the model does not label its payload.
	ResultMIMEType = "image/png"
)

// GeneratedImage is the composite returned by the model.
type GeneratedImage struct {
	B64      string
	MIMEType string
}

// Snapshot is a read-only copy of a controller's fields.
type Snapshot struct {
	State         State
	Child         Photo
	Adult         Photo
	GeneratedB64  string
	GeneratedMIME string
	ErrorMessage  string
	CanGenerate   bool
}

// HasPhoto reports whether the given slot is filled.
func (s Snapshot) HasPhoto(slot Slot) bool {
	return !s.Photo(slot).IsZero()
}

// Photo returns the photo held in slot.
func (s Snapshot) Photo(slot Slot) Photo {
	if slot == SlotAdult {
		return s.Adult
	}
	return s.Child
}

// ResultDataURL returns the generated image as a data: URL, or "".
func (s Snapshot) ResultDataURL() string {
	if s.GeneratedB64 == "" {
		return ""
	}
	return DataURL(s.ResultMIME(), s.GeneratedB64)
}

// ResultMIME returns the generated image's MIME type, defaulting to PNG.
func (s Snapshot) ResultMIME() string {
	if s.GeneratedMIME == "" {
		return ResultMIMEType
	}
	return s.GeneratedMIME
}
