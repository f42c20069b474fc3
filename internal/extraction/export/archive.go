package export

import (
	"archive/zip"
	"fmt"
	"io"
	"time"
)

// Entry is one file of an archive.
type Entry struct {
	Name string
	Body []byte
}

// WriteArchive writes entries as a deflated zip in order. Every entry gets
// the modified time mod, so equal input gives equal bytes. Colliding names
// get a "_2", "_3", ... suffix.
func WriteArchive(w io.Writer, entries []Entry, mod time.Time) error {
	zw := zip.NewWriter(w)
	used := make(map[string]struct{}, len(entries))

	for _, e := range entries {
		fw, err := zw.CreateHeader(&zip.FileHeader{
			Name:     uniqueName(e.Name, used),
			Method:   zip.Deflate,
			Modified: mod.UTC(),
		})
		if err != nil {
			return fmt.Errorf("add %q: %w", e.Name, err)
		}
		if _, err := fw.Write(e.Body); err != nil {
			return fmt.Errorf("write %q: %w", e.Name, err)
		}
	}
	return zw.Close()
}
