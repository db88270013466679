// Package database provides the Postgres connection pool used by the
// data recorder.
package database
