// Package store provides SQLite-backed durable storage for modpack records.
//
// The store is a keyed table per collection:
//   - categories, resources, recipes, machines: full JSON records
//   - plugins: {id, scriptContent} only; plugins are re-evaluated on load
//
// Every table has the same shape: (id TEXT PRIMARY KEY, position INTEGER,
// data TEXT). The store knows nothing about the records it holds; business
// rules live in package state.
//
// # Ordering
//
// position preserves collection order across reloads. A new ID is appended
// (MAX(position)+1); an upsert of an existing ID keeps its position. All
// reads use ORDER BY position ASC, id ASC COLLATE BINARY.
//
// # Database Configuration
//
//   - WAL mode: Concurrent reads during writes
//   - synchronous=NORMAL: Balance durability/performance
//   - busy_timeout=5000: Wait for locks up to 5 seconds
//   - Single open connection: SQLite serializes writers anyway
package store
