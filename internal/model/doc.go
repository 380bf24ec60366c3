// Package model defines the records that make up a modpack: categories,
// resources, machines, recipes and plugins, plus the Snapshot that bundles
// them for persistence, export and network sync.
//
// This package contains type definitions and pure helpers only. All other
// internal packages import model; model imports nothing internal.
//
// Key design constraints:
//   - Every record is identified by a string ID, unique within its collection
//   - IDs are the only cross-reference key; nothing enforces referential integrity
//   - JSON and YAML tags use the camelCase wire names shared with peers
//   - Slot and stack order is significant (matched positionally)
package model
