package app

import (
	"context"
	"log/slog"
	"net/http"
	"os"
	"time"

	"github.com/rs/cors"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkguid"
)

// Defaults apply when neither the config file nor the environment sets a key.
//
//nolint:gochecknoglobals // read-only table
var Defaults = map[string]any{
	"tz":                               "Europe/Paris",
	"server.address.http":              ":8080",
	"server.max_upload_bytes":          64 << 20,
	"server.max_files":                 50,
	"server.node_id":                   -1,
	"server.timeout.read_header":       "10s",
	"server.timeout.read":              "5m",
	"server.timeout.write":             "10m",
	"server.timeout.idle":              "2m",
	"server.timeout.shutdown":          defaultShutdownTimeout.String(),
	"modules.extraction.enabled":       true,
	"pipeline.workers":                 1,
	"pipeline.unclassified_policy":     "skip",
	"pipeline.detector.min_rows":       2,
	"pipeline.detector.min_cols":       2,
	"pipeline.detector.min_confidence": 0.4,
	"export.csv.bom":                   true,
	"export.xlsx.sheet_per_category":   false,
	"runs.ttl":                         "1h",
	"runs.max_active":                  8,
	"runs.janitor_interval":            "1m",
}

// ConfigPath resolves the config file used when none is given.
func ConfigPath(path string) string {
	if path != "" {
		return path
	}
	if os.Getenv("LOCAL") == "true" {
		return "./config/config.yaml"
	}
	return "/config/config.yaml"
}

func (a *App) initConfig(path string) {
	cfg, err := pkgconfig.NewViper(ConfigPath(path), pkgconfig.WithDefaults(Defaults))
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	//nolint:errcheck,gosec // ignore error
	os.Setenv("TZ", cfg.GetString("tz"))
	if loc, err := time.LoadLocation(cfg.GetString("tz")); err == nil {
		time.Local = loc
	}

	a.config = cfg
}

func (a *App) initLibraries() {
	// one slot per active run plus the run janitor
	a.goroutine = pkgroutine.NewManager(int(a.config.GetInt("runs.max_active")) + 1)
	a.uuid = pkguid.NewUUID()

	snowflake, err := pkguid.NewSnowflake(a.config.GetInt("server.node_id"))
	if err != nil {
		slog.Error("failed to init snowflake", "error", err)
		os.Exit(1)
	}
	a.snowflake = snowflake
}

func (a *App) initHTTPServer() {
	a.router = pkgrouter.NewRouter(a.uuid)

	corsHandler := cors.New(cors.Options{
		AllowedOrigins: []string{"*"},
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodPut,
			http.MethodPatch,
			http.MethodDelete,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		ExposedHeaders:   []string{"Content-Disposition"},
		AllowCredentials: true,
	})

	a.httpServer = &http.Server{
		Addr:              a.config.GetString("server.address.http"),
		Handler:           corsHandler.Handler(a.router),
		ReadHeaderTimeout: a.config.GetDuration("server.timeout.read_header"),
		// uploads of many large PDFs and the streamed exports need more than
		// the header budget
		ReadTimeout:  a.config.GetDuration("server.timeout.read"),
		WriteTimeout: a.config.GetDuration("server.timeout.write"),
		IdleTimeout:  a.config.GetDuration("server.timeout.idle"),
	}
}

//nolint:unparam // is always nil
func (a *App) initClosers() {
	if a.closerFn == nil {
		a.closerFn = map[string]func(context.Context) error{}
	}

	a.closerFn[closerHTTPServer] = func(ctx context.Context) error {
		return a.httpServer.Shutdown(ctx)
	}
	a.closerFn["Config"] = func(context.Context) error {
		return a.config.Close()
	}
}
