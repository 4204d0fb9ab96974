package models

// Role adalah peran pengguna di perpustakaan.
type Role string

const (
	RoleMember    Role = "member"
	RoleAssistant Role = "assistant"
	RoleAdmin     Role = "admin"
)

// Capability adalah izin bernama yang dimiliki oleh satu atau lebih role.
type Capability string

const (
	CapManageCatalog     Capability = "catalog:manage"
	CapManageOrders      Capability = "orders:manage"
	CapViewAllOrders     Capability = "orders:view-all"
	CapActOnAnyLoan      Capability = "loans:any"
	CapViewAllLoans      Capability = "loans:view-all"
	CapManageUsers       Capability = "users:manage"
	CapSendNotifications Capability = "notifications:send"
)

var staffCapabilities = []Capability{
	CapManageCatalog,
	CapManageOrders,
	CapViewAllOrders,
	CapActOnAnyLoan,
	CapViewAllLoans,
}

var roleCapabilities = map[Role]map[Capability]bool{
	RoleMember:    {},
	RoleAssistant: capabilitySet(staffCapabilities...),
	RoleAdmin:     capabilitySet(append(staffCapabilities, CapManageUsers, CapSendNotifications)...),
}

func capabilitySet(caps ...Capability) map[Capability]bool {
	set := make(map[Capability]bool, len(caps))
	for _, c := range caps {
		set[c] = true
	}
	return set
}

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	_, ok := roleCapabilities[r]
	return ok
}

// Can reports whether the role has been granted capability c.
// Unknown roles have no capabilities.
func (r Role) Can(c Capability) bool {
	return roleCapabilities[r][c]
}
