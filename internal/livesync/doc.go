// Package livesync keeps a Manager in step with its peers over a single
// WebSocket connection to a relay.
//
// Every local mutation is sent as a whole SYNC_STATE snapshot; every
// inbound SYNC_STATE replaces the local collections it carries. There is
// no merge and no reconnect: a dropped connection leaves the channel idle
// until it is configured again.
package livesync
