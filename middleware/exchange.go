package middleware

// state tracks one request/response exchange through the error handling
// middleware.
type state int

const (
	stateIdle state = iota
	stateInvoking
	stateResponseStarted
	stateHandling
	stateCompleted
)

func (s state) String() string {
	switch s {
	case stateIdle:
		return "idle"
	case stateInvoking:
		return "invoking"
	case stateResponseStarted:
		return "response_started"
	case stateHandling:
		return "handling"
	case stateCompleted:
		return "completed"
	default:
		return "unknown"
	}
}

var transitions = map[state][]state{
	stateIdle:            {stateInvoking},
	stateInvoking:        {stateResponseStarted, stateHandling, stateCompleted},
	stateResponseStarted: {stateCompleted},
	stateHandling:        {stateCompleted},
}

// exchange is owned by a single request and never shared.
type exchange struct {
	state state
}

// to moves the exchange to next and reports whether the transition is legal.
// Illegal transitions leave the state unchanged.
func (x *exchange) to(next state) bool {
	for _, allowed := range transitions[x.state] {
		if allowed == next {
			x.state = next
			return true
		}
	}
	return false
}
