// Package schema holds the process-wide table of field definitions and the
// typed codec that turns field values into backend representations and back.
//
// Every backend reads and writes through this table: adding a field here is
// enough for the KV store, descriptor files, and both interchange dialects to
// carry it.
package schema
