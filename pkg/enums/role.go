package enums

// Role is the caller's role as asserted by the identity provider.
type Role string

const (
	RoleCustomer Role = "customer"
	RoleAdmin    Role = "admin"
)

var validRoles = []Role{RoleCustomer, RoleAdmin}

func (r Role) String() string { return string(r) }

func (r Role) IsValid() bool { return contains(validRoles, r) }

func ParseRole(value string) (Role, error) {
	return parse(validRoles, "role", value)
}
