// Package storage contains concrete core.MemoryStore implementations. The
// store interface and the record types reside in the core package. Import
// github.com/hupe1980/agentcore/core and depend on core.MemoryStore in your
// code; select an implementation (the in‑memory store below, or the SQLite
// store in the sqlite subpackage) at wiring time.
//
// All implementations upsert by record id, so persisting the same block or
// message twice never duplicates data.
package storage
