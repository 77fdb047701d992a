package protocol

// Role identifies which side of the exchange a session plays.
type Role int

const (
	// RoleClient sends requests and waits for replies.
	RoleClient Role = iota
	// RoleServer waits for requests and answers them.
	RoleServer
)

// String returns the role name used in logs and events.
func (r Role) String() string {
	switch r {
	case RoleClient:
		return "CLIENT"
	case RoleServer:
		return "SERVER"
	default:
		return "UNKNOWN"
	}
}
