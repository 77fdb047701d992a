package protocol

// ClientState is a step of the client request cycle.
//
//	Idle -> CreatingRequest -> WaitingResponse -> ReadingResponse -> Completed
//	                 ^                                  |
//	                 +------------- Error <-------------+
type ClientState int

const (
	ClientIdle ClientState = iota
	ClientCreatingRequest
	ClientWaitingResponse
	ClientReadingResponse
	ClientCompleted
	ClientError
)

// String returns the state name.
func (s ClientState) String() string {
	switch s {
	case ClientIdle:
		return "Idle"
	case ClientCreatingRequest:
		return "CreatingRequest"
	case ClientWaitingResponse:
		return "WaitingResponse"
	case ClientReadingResponse:
		return "ReadingResponse"
	case ClientCompleted:
		return "Completed"
	case ClientError:
		return "Error"
	default:
		return "Unknown"
	}
}

// ServerState is a step of the server serve cycle.
//
//	Idle -> WaitingRequest -> ProcessingRequest -> SendingResponse -> Completed
//	                                  |
//	                                  +-> Error
type ServerState int

const (
	ServerIdle ServerState = iota
	ServerWaitingRequest
	ServerProcessingRequest
	ServerSendingResponse
	ServerCompleted
	ServerError
)

// String returns the state name.
func (s ServerState) String() string {
	switch s {
	case ServerIdle:
		return "Idle"
	case ServerWaitingRequest:
		return "WaitingRequest"
	case ServerProcessingRequest:
		return "ProcessingRequest"
	case ServerSendingResponse:
		return "SendingResponse"
	case ServerCompleted:
		return "Completed"
	case ServerError:
		return "Error"
	default:
		return "Unknown"
	}
}
