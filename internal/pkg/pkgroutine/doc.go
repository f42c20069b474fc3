// Package pkgroutine contains helpers for running goroutines safely.
//
// The Manager type limits concurrency, collects returned errors, and logs
// panics so that background work does not crash the process silently.
// Go waits for a free slot while TryGo refuses work when the manager is
// full, which lets request handlers answer "busy" instead of blocking.
package pkgroutine
