package domain

type Role string

const (
	RoleCustomer Role = "customer"
	RoleVendor   Role = "vendor"
	RoleAdmin    Role = "admin"
)

func (r Role) Valid() bool {
	return r == RoleCustomer || r == RoleVendor || r == RoleAdmin
}

// Actor is the authenticated caller. For vendors ID is the vendor id.
type Actor struct {
	ID   string
	Role Role
}
