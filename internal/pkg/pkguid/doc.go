// Package pkguid provides helpers for generating unique identifiers.
//
// Processing runs are keyed by UUID v7 strings (sortable by creation time)
// and uploaded documents by Snowflake numbers, which stay short in URLs.
package pkguid
