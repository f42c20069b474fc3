package pkgconfig

import "time"

// Config is the read-only view of configuration used by the application.
type Config interface {
	GetInt(key string) int64
	GetBool(key string) bool
	GetFloat(key string) float64
	GetString(key string) string
	GetDuration(key string) time.Duration
	GetBinary(key string) []byte
	GetArray(key string) []string
	GetMap(key string) map[string]string
	Close() error
}

// EnvPrefix is the prefix of environment variables overriding file values,
// for example GOBORDEREAU_PIPELINE_WORKERS for "pipeline.workers".
const EnvPrefix = "GOBORDEREAU"

// Option customizes NewViper.
type Option func(*options)

type options struct {
	defaults map[string]any
	optional bool
	watch    bool
}

// WithDefaults registers fallback values used when neither the file nor the
// environment sets a key.
func WithDefaults(values map[string]any) Option {
	return func(o *options) {
		if o.defaults == nil {
			o.defaults = make(map[string]any, len(values))
		}
		for k, v := range values {
			o.defaults[k] = v
		}
	}
}

// Optional makes a missing config file a non-error; defaults and
// environment overrides still apply.
func Optional() Option {
	return func(o *options) {
		o.optional = true
	}
}

// WithoutWatch disables live reloading of the config file.
func WithoutWatch() Option {
	return func(o *options) {
		o.watch = false
	}
}
