package websocket

// ─── Actions (Client → Server) ──────────────────────────────────────

type Action string

const (
	// ActionSync asks for an immediate countdown resync, e.g. after the
	// exam tab regains visibility.
	ActionSync Action = "sync"
	ActionPing Action = "ping"
)

// RequestEnvelope is used to peek at the action before full parsing.
type RequestEnvelope struct {
	Action Action `json:"action"`
}

// ─── Events (Server → Client) ───────────────────────────────────────

type Event string

const (
	EventTick     Event = "tick"
	EventFinished Event = "finished"
	EventError    Event = "error"
	EventPong     Event = "pong"
)

// TimerResponse carries the countdown state pushed on every tick and on
// expiry.
type TimerResponse struct {
	Event    Event `json:"event"`
	TimeLeft int   `json:"time_left"`
	Running  bool  `json:"running"`
}

type ErrorResponse struct {
	Event Event  `json:"event"`
	Error string `json:"error"`
}

type PongResponse struct {
	Event Event `json:"event"`
}
