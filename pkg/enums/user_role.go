package enums

// UserRole is the account-level role carried in access tokens.
type UserRole string

const (
	UserRoleCustomer UserRole = "customer"
	UserRoleStaff    UserRole = "staff"
	UserRoleAdmin    UserRole = "admin"
)

var validUserRoles = []UserRole{UserRoleCustomer, UserRoleStaff, UserRoleAdmin}

func (r UserRole) String() string {
	return string(r)
}

func (r UserRole) IsValid() bool {
	return contains(validUserRoles, r)
}

// IsStaff reports whether the role works the rental counter. Admins count as staff.
func (r UserRole) IsStaff() bool {
	return r == UserRoleStaff || r == UserRoleAdmin
}

func ParseUserRole(value string) (UserRole, error) {
	return parse("user role", value, validUserRoles)
}
