package app

import (
	"context"
	"log/slog"
	"os"

	"github.com/shandysiswandi/gobordereau/internal/extraction"
)

func (a *App) initModules() {
	if a.config.GetBool("modules.extraction.enabled") {
		closer, err := extraction.New(extraction.Dependency{
			Config:    a.config,
			Router:    a.router,
			Goroutine: a.goroutine,
			Context:   a.ctx,
			ID:        a.uuid,
			DocID:     a.snowflake,
		})
		if err != nil {
			slog.Error("failed to init module extraction", "error", err)
			os.Exit(1)
		}
		if closer != nil {
			if a.closerFn == nil {
				a.closerFn = map[string]func(context.Context) error{}
			}
			a.closerFn["Extraction"] = closer
		}
	}
}
