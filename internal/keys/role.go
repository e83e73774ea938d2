package keys

// Role is the fourth index of the derivation path (spec.md §4.2); used
// verbatim as the BIP32 child index (never hardened).
type Role uint32

const (
	RoleNightExternal Role = 0
	RoleNightInternal Role = 1
	RoleDust          Role = 2
	RoleZswap         Role = 3
	RoleMetadata      Role = 4
)

func (r Role) String() string {
	switch r {
	case RoleNightExternal:
		return "NightExternal"
	case RoleNightInternal:
		return "NightInternal"
	case RoleDust:
		return "Dust"
	case RoleZswap:
		return "Zswap"
	case RoleMetadata:
		return "Metadata"
	default:
		return "Unknown"
	}
}
