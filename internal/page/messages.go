package page

import (
	"strings"

	"merabuchpan/internal/domain"
)

// Supported locales. The first one is the fallback.
var Locales = []string{"en", "id"}

var catalog = map[string]map[string]string{
	"en": {
		"title":            "MeraBuchpan",
		"subtitle":         "Reunite with your inner child. Upload two photos to create a timeless moment of you hugging your younger self.",
		"label_child":      "Your Childhood Photo",
		"label_adult":      "Your Recent Photo",
		"upload_cta":       "Click to upload",
		"upload_hint":      "PNG, JPG, or WEBP",
		"upload_submit":    "Upload",
		"change_photo":     "Change Photo",
		"generate":         "Create Magic",
		"loading_title":    "Creating your moment...",
		"loading_subtitle": "This magical process can take a minute. Please wait.",
		"result_title":     "Your Memory, Reimagined",
		"result_alt":       "Generated reunion photo",
		"download":         "Download",
		"start_over":       "Start Over",
		"error_title":      "Oops!",
		"try_again":        "Try Again",
		"preview_alt":      "Selected photo preview",

		"error_missing_photos":    domain.MessageMissingPhotos,
		"error_generation_failed": domain.MessageGenerationFailed,
		"error_unknown":           domain.MessageUnknownError,
	},
	"id": {
		"title":            "MeraBuchpan",
		"subtitle":         "Bertemu kembali dengan dirimu di masa kecil. Unggah dua foto untuk menciptakan momen abadi saat kamu memeluk dirimu yang lebih muda.",
		"label_child":      "Foto Masa Kecilmu",
		"label_adult":      "Foto Terbarumu",
		"upload_cta":       "Klik untuk mengunggah",
		"upload_hint":      "PNG, JPG, atau WEBP",
		"upload_submit":    "Unggah",
		"change_photo":     "Ganti Foto",
		"generate":         "Ciptakan Keajaiban",
		"loading_title":    "Sedang membuat momenmu...",
		"loading_subtitle": "Proses ajaib ini bisa memakan waktu satu menit. Mohon tunggu.",
		"result_title":     "Kenanganmu, Dibayangkan Ulang",
		"result_alt":       "Foto pertemuan yang dihasilkan",
		"download":         "Unduh",
		"start_over":       "Mulai Lagi",
		"error_title":      "Ups!",
		"try_again":        "Coba Lagi",
		"preview_alt":      "Pratinjau foto terpilih",

		"error_missing_photos":    "Silakan unggah kedua foto sebelum membuat gambar.",
		"error_generation_failed": "Gagal membuat gambar. Model mungkin sedang tidak tersedia atau permintaan telah diblokir.",
		"error_unknown":           "Terjadi kesalahan yang tidak diketahui. Silakan coba lagi.",
	},
}

// T looks up key for locale, falling back to English and then to the key.
func T(locale, key string) string {
	if msgs, ok := catalog[strings.ToLower(locale)]; ok {
		if v, ok := msgs[key]; ok {
			return v
		}
	}
	if v, ok := catalog[Locales[0]][key]; ok {
		return v
	}
	return key
}

var messageKeys = map[string]string{
	domain.MessageMissingPhotos:    "error_missing_photos",
	domain.MessageGenerationFailed: "error_generation_failed",
	domain.MessageUnknownError:     "error_unknown",
}

// Message translates one of the fixed user-facing messages. Any other text
// is returned unchanged.
func Message(locale, msg string) string {
	if key, ok := messageKeys[msg]; ok {
		return T(locale, key)
	}
	return msg
}
