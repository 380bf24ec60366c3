// Package state owns the in-memory modpack collections.
//
// A Manager holds one ordered collection per entity type. Every mutation
// is applied to memory synchronously under a mutex, then queued for the
// durable store and, unless an inbound sync is settling, broadcast to
// peers as a whole snapshot.
//
// Thread-safety model:
//   - mutations and reads: safe from any goroutine
//   - Run: drains the write queue; call from exactly one goroutine
//   - Flush: blocks until every write queued before it is applied
//
// Memory is never rolled back when a write fails; the failure is logged.
package state
