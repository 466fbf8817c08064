// Package sqlite provides the SQLite-backed auth store.
package sqlite
