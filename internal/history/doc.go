// Package history keeps an audit ledger of conversion jobs in SQLite.
//
// Every job handled by the dispatcher appends one row: the source path, the
// terminal pipeline state, the preview that was produced (if any), and how
// delivery went. Nothing in the watcher reads the ledger back to make
// decisions; dedup state lives only in memory. The `videowatch history`
// command is the only reader.
//
// Schema changes bump schemaVersion in schema.go; users delete history.db to
// adopt the new schema.
package history
