package realtime

// Frame is one outbound event on a streaming connection. The transport
// renders it as `event: <name>\ndata: <payload>\n\n`.
type Frame struct {
	Event string
	Data  string
}

const (
	EventMessage   = "message"
	EventHeartbeat = "heartbeat"
	EventUpdate    = "update"
)

func heartbeatFrame() Frame {
	return Frame{Event: EventHeartbeat, Data: "heartbeat"}
}
