package metadata

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"
)

// uploadedAtLayout renders timestamps as "2023-05-01 10:30:00+00:00".
const uploadedAtLayout = "2006-01-02 15:04:05-07:00"

// Record is the metadata entry kept for one uploaded object, keyed by ObjectKey.
type Record struct {
	ObjectKey   string  `json:"object_key"`
	SizeBytes   float64 `json:"size_bytes"`
	ContentType string  `json:"content_type"`
	UploadedAt  string  `json:"uploaded_at"`
}

// MarshalJSON always writes size_bytes with a fractional part (1024.0), so
// clients that check the JSON number type see a float.
func (r Record) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		ObjectKey   string      `json:"object_key"`
		SizeBytes   json.Number `json:"size_bytes"`
		ContentType string      `json:"content_type"`
		UploadedAt  string      `json:"uploaded_at"`
	}{
		ObjectKey:   r.ObjectKey,
		SizeBytes:   formatSize(r.SizeBytes),
		ContentType: r.ContentType,
		UploadedAt:  r.UploadedAt,
	})
}

func formatSize(size float64) json.Number {
	s := strconv.FormatFloat(size, 'f', -1, 64)
	if !strings.Contains(s, ".") {
		s += ".0"
	}
	return json.Number(s)
}

// FormatUploadedAt renders a last-modified time in UTC.
func FormatUploadedAt(t time.Time) string {
	return t.UTC().Format(uploadedAtLayout)
}

// Page is one slice of a table scan. An empty Next marks the final page.
type Page struct {
	Records []Record
	Next    string
}

// Stats summarises every record in the table.
type Stats struct {
	Largest      string         `json:"maior_imagem"`
	Smallest     string         `json:"menor_imagem"`
	ContentTypes []string       `json:"tipos_imagem"`
	TypeCounts   map[string]int `json:"quantidades_tipos"`
}

// DownloadResult confirms a retrieval.
type DownloadResult struct {
	Message string `json:"message"`
	Path    string `json:"-"`
}

const downloadSuccessMessage = "Download successful!"
