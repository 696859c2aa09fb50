package ipc

// Remote commands understood by a running session.
const (
	CommandStatus = "status"
	CommandStart  = "start"
	CommandStop   = "stop"
	CommandToggle = "toggle"
	CommandSkip   = "skip"
	CommandFinish = "finish"
)

// Commands lists every remote command in help order.
var Commands = []string{CommandStatus, CommandStart, CommandStop, CommandToggle, CommandSkip, CommandFinish}

// IsCommand reports whether name is a known remote command.
func IsCommand(name string) bool {
	for _, command := range Commands {
		if command == name {
			return true
		}
	}
	return false
}

// Request is one remote-control command for the running session.
type Request struct {
	Command string `json:"command"`
}

// Response reports the outcome of a Request plus a compact view of the session.
type Response struct {
	OK        bool   `json:"ok"`
	State     string `json:"state,omitempty"`
	Question  int    `json:"question,omitempty"`
	Total     int    `json:"total,omitempty"`
	Remaining int    `json:"remaining,omitempty"`
	Message   string `json:"message,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Failure builds a rejected response carrying msg.
func Failure(msg string) Response {
	return Response{OK: false, Error: msg}
}
