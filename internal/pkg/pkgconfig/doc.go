// Package pkgconfig provides a small abstraction for reading configuration values.
//
// The application expects config values to come from a concrete implementation
// (Viper). Business code should depend on the Config interface so it stays
// easy to test and does not care where values come from (file, env, etc).
//
// Values are read from a YAML file and can be overridden from the
// environment with the GOBORDEREAU_ prefix, dots replaced by underscores.
package pkgconfig
