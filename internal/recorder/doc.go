// Package recorder persists the tagged outbound data stream.
//
// The adapter's upstream port feeds a growable ring buffer; a batching
// writer drains it and inserts one row per data message (type,
// correlation ids, subscriber tags, payload JSON, timestamps) into
// Postgres. Recording is an optional tap on the pipeline: the adapter's
// subscription state itself is never persisted.
package recorder
