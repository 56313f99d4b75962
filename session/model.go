package session

// Token kinds as stored in session records.
const (
	// KindAccess is an exported constant or variable used by the authentication engine.
	KindAccess uint8 = 0
	// KindRefresh is an exported constant or variable used by the authentication engine.
	KindRefresh uint8 = 1
)

// Record defines a public type used by fastauth APIs.
//
// Record instances are intended to be configured during initialization and then treated as immutable unless documented otherwise.
type Record struct {
	TokenID     string
	PrincipalID string
	Kind        uint8
	ParentID    string
	Revoked     bool

	IssuedAt  int64
	ExpiresAt int64
}
