package domain

import "time"

// Role is the authorization level carried by an identity and its tokens.
type Role string

const (
	RoleAdmin    Role = "ADMIN"
	RoleAnalyst  Role = "ANALYST"
	RoleOperator Role = "OPERATOR"
)

// Roles lists every accepted role in a stable order.
var Roles = []Role{RoleAdmin, RoleAnalyst, RoleOperator}

// Valid reports whether r is one of the enumerated roles.
func (r Role) Valid() bool {
	switch r {
	case RoleAdmin, RoleAnalyst, RoleOperator:
		return true
	default:
		return false
	}
}

func (r Role) String() string { return string(r) }

// ParseRole maps a wire value onto a Role. Matching is exact: "admin" is not
// accepted, mirroring the directory's stored values.
func ParseRole(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}

// Identity is the user record owned by the remote directory. The gateway only
// holds it for the duration of a single register or login call.
type Identity struct {
	ID           string
	Username     string
	Email        string
	PasswordHash string
	Role         Role
	CreatedAt    time.Time
}

// Credential is the username/password pair supplied on login.
type Credential struct {
	Username string
	Password string
}

// Claims is the verified content of a session token.
type Claims struct {
	Subject   string
	Username  string
	Role      Role
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// Principal is the authenticated caller attached to a request.
type Principal struct {
	SubjectID string `json:"sub"`
	Username  string `json:"username"`
	Role      Role   `json:"role"`
}

// PrincipalFromClaims builds the request principal from validated claims.
func PrincipalFromClaims(c Claims) Principal {
	return Principal{SubjectID: c.Subject, Username: c.Username, Role: c.Role}
}
