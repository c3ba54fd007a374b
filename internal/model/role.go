package model

// Roles carried in API token claims. There is no local user store — tokens are
// minted by the surrounding platform's auth system.
const (
	RoleManager    = "manager"
	RoleTechnician = "technician"
)

// RoleAtLeast checks if role meets or exceeds the minimum required role.
func RoleAtLeast(role, minimum string) bool {
	levels := map[string]int{
		RoleManager:    2,
		RoleTechnician: 1,
	}
	return levels[role] >= levels[minimum]
}
