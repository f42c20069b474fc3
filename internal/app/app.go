package app

import (
	"context"
	"net/http"

	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgconfig"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkglog"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgrouter"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgroutine"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkguid"
)

type App struct {
	ctx    context.Context
	cancel context.CancelFunc

	// configuration
	config pkgconfig.Config

	// libraries
	uuid      pkguid.StringID
	snowflake pkguid.NumberID
	goroutine *pkgroutine.Manager

	// resources

	// server
	router     *pkgrouter.Router
	httpServer *http.Server

	//
	closerFn map[string]func(context.Context) error
}

// Options selects where the service reads its configuration. An empty
// ConfigPath uses /config/config.yaml, or ./config/config.yaml when LOCAL=true.
type Options struct {
	ConfigPath string
}

func New(opts Options) *App {
	pkglog.InitLogging(pkglog.Options{})

	ctx, cancel := context.WithCancel(context.Background())
	app := &App{
		ctx:    ctx,
		cancel: cancel,
	}

	app.initConfig(opts.ConfigPath)
	app.initLibraries()
	app.initHTTPServer()
	app.initModules()
	app.initClosers()

	return app
}
