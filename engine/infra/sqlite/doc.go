// Package sqlite provides the modernc.org/sqlite backed artifact registry.
//
// Versions, aliases, runs and run lineage live in one database file; payloads
// live in a blob bucket and are referenced by key.
package sqlite
