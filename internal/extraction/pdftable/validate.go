package pdftable

import (
	"bytes"
	"errors"
	"fmt"
	"sync"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
)

var ErrNotPDF = errors.New("not a PDF document")

var pdfcpuConfig = sync.OnceValue(func() *model.Configuration {
	// No config directory on disk.
	model.ConfigPath = "disable"
	conf := model.NewDefaultConfiguration()
	conf.ValidationMode = model.ValidationRelaxed
	return conf
})

// Validate checks that data is a readable PDF document.
func Validate(data []byte) (err error) {
	if !bytes.HasPrefix(bytes.TrimLeft(data, "\x00\t\n\r "), []byte("%PDF-")) {
		return ErrNotPDF
	}

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("validate pdf: %v", r)
		}
	}()

	if err := api.Validate(bytes.NewReader(data), pdfcpuConfig()); err != nil {
		return fmt.Errorf("validate pdf: %w", err)
	}
	return nil
}
