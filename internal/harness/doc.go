// Package harness runs multi-client sync scenarios.
//
// A scenario starts an in-process relay and one client per name. Each
// client is a state.Manager over its own in-memory SQLite store, wired to
// a livesync.Channel. Steps mutate one client at a time; after each step
// the harness waits until every online peer has applied the resulting
// broadcast and, unless told otherwise, until every echo guard has
// settled. Assertions then inspect each client's final snapshot.
//
// # Scenario Format
//
//	name: convergence
//	description: "A resource added on one client reaches the other"
//	clients: [a, b]
//	settle_delay: 50ms
//	steps:
//	  - client: a
//	    action: put
//	    collection: resources
//	    record: {id: copper_ingot, name: Copper Ingot, type: item}
//	  - client: b
//	    action: delete
//	    collection: resources
//	    id: iron_ore
//	assertions:
//	  - type: has
//	    client: b
//	    collection: resources
//	    id: copper_ingot
//	    expect: {name: Copper Ingot}
//	  - type: converged
//
// # Actions
//
//   - add, put: insert (add rejects an existing id) or upsert a record
//   - delete: remove a record by id
//   - install: install a plugin from script or script_file
//   - import: replace the client's state from an inline snapshot
//   - force_sync: broadcast the client's current snapshot
//   - connect, disconnect: join or leave the relay
//   - settle: wait for every echo guard to clear (no client)
//
// # Assertions
//
//   - has, missing: a record is or is not present (has checks expect as a subset)
//   - count: a collection holds exactly count records
//   - converged, diverged: all client snapshots are or are not identical
//   - persisted: the client's store reloads to the same snapshot it holds in memory
package harness
