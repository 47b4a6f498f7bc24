package domain

import (
	"encoding/base64"
	"strings"
)

// Slot identifies one of the two upload areas.
type Slot string

const (
	SlotChild Slot = "child"
	SlotAdult Slot = "adult"
)

// Slots lists the upload areas in display order.
var Slots = []Slot{SlotChild, SlotAdult}

// ParseSlot validates a slot name taken from a URL.
func ParseSlot(raw string) (Slot, error) {
	switch Slot(strings.ToLower(strings.TrimSpace(raw))) {
	case SlotChild:
		return SlotChild, nil
	case SlotAdult:
		return SlotAdult, nil
	default:
		return "", ErrInvalidSlot
	}
}

// LabelKey returns the message key for the slot's display label.
func (s Slot) LabelKey() string {
	return "label_" + string(s)
}

// AcceptedMIMETypes mirrors the file picker's accept list.
var AcceptedMIMETypes = []string{"image/png", "image/jpeg", "image/webp"}

// IsAcceptedMIME reports whether mime is one of AcceptedMIMETypes.
func IsAcceptedMIME(mime string) bool {
	mime = strings.ToLower(strings.TrimSpace(mime))
	for _, m := range AcceptedMIMETypes {
		if m == mime {
			return true
		}
	}
	return false
}

// Photo is a user-selected image. It lives in memory until reset or session expiry.
type Photo struct {
	Filename string
	MIMEType string
	Data     []byte
	Width    int
	Height   int
}

// IsZero reports whether the photo carries no payload.
func (p Photo) IsZero() bool {
	return len(p.Data) == 0
}

// Encode returns the base64 form of the payload.
func (p Photo) Encode() (string, error) {
	if p.IsZero() {
		return "", ErrEmptyPhoto
	}
	return base64.StdEncoding.EncodeToString(p.Data), nil
}

// DataURL returns a data: URL suitable for an <img> preview, or "" when empty.
func (p Photo) DataURL() string {
	encoded, err := p.Encode()
	if err != nil {
		return ""
	}
	return DataURL(p.MIMEType, encoded)
}

// DataURL joins a MIME type and an already encoded payload.
func DataURL(mime, encoded string) string {
	if mime == "" {
		mime = "application/octet-stream"
	}
	return "data:" + mime + ";base64," + encoded
}
