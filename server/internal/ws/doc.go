// Package ws implements the WebSocket hub for arterycheck-server.
//
// Hub keeps a set of connected dashboard clients and pushes the dashboard
// summary to all of them on a configurable interval (default 5s) and after
// every Notify. The server wires Notify to successful API writes so a newly
// recorded assessment reaches open dashboards without waiting for a tick.
//
// Every frame has the same envelope:
//
//	{
//	  "event": "dashboard",
//	  "data":  { /* same schema as GET /api/v1/dashboard */ }
//	}
//
// Clients that fall behind by more than a few frames are disconnected. The
// endpoint is mounted at /ws/dashboard.
package ws
