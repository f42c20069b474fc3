package pkgrouter

import (
	"mime"
	"net/http"
	"strconv"
)

// File is a handler result written as a raw attachment instead of the JSON
// envelope.
type File struct {
	Name        string
	ContentType string
	Body        []byte
}

func writeFile(w http.ResponseWriter, f File) {
	contentType := f.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}

	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": f.Name})
	if disposition == "" {
		disposition = "attachment"
	}

	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Disposition", disposition)
	w.Header().Set("Content-Length", strconv.Itoa(len(f.Body)))
	w.WriteHeader(http.StatusOK)

	//nolint:errcheck,gosec // client went away, nothing left to report
	w.Write(f.Body)
}
