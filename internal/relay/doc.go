// Package relay accepts position reports from trackers over TCP and fans
// them out to browser clients over WebSocket.
//
// - Hub keeps the last known position and the subscriber set
// - Ingest speaks the tracker's newline-delimited JSON dialogue
// - The HTTP server exposes /ws, /api/status and the embedded map UI
package relay
