package model

// Role determines what an account may do on the marketplace.
type Role string

// Role codes as constants
const (
	RoleVillager Role = "VILLAGER" // seller: owns products, views sales
	RoleUser     Role = "USER"     // buyer: purchases products
)

// Valid reports whether r is one of the known role codes.
func (r Role) Valid() bool {
	return r == RoleVillager || r == RoleUser
}
