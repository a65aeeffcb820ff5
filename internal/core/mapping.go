package core

import "fmt"

// Role is the meaning a user assigns to a grid column.
type Role string

// Column roles understood by the pricing service.
const (
	RolePartNumber   Role = "partNumber"
	RoleQuantity     Role = "quantity"
	RoleManufacturer Role = "manufacturer"
)

// Roles lists the selectable roles in display order.
var Roles = []Role{RolePartNumber, RoleQuantity, RoleManufacturer}

var roleLabels = map[Role]string{
	RolePartNumber:   "Part Number",
	RoleQuantity:     "Quantity",
	RoleManufacturer: "Manufacturer",
}

// ParseRole validates a role name coming from a form or flag.
func ParseRole(s string) (Role, error) {
	r := Role(s)
	if _, ok := roleLabels[r]; !ok {
		return "", fmt.Errorf("%w: %q", ErrInvalidRole, s)
	}
	return r, nil
}

// Label returns the human readable role name.
func (r Role) Label() string {
	if l, ok := roleLabels[r]; ok {
		return l
	}
	return string(r)
}

// Mapping assigns roles to column indexes. Each role is held by at most one
// column: assigning a role moves it away from whichever column had it.
// It marshals to JSON as {"0":"partNumber","1":"quantity"}.
type Mapping map[int]Role

// DefaultMapping is the mapping offered right after a parse: the first column
// is the part number, the rest are unassigned.
func DefaultMapping(width int) Mapping {
	m := Mapping{}
	if width > 0 {
		m[0] = RolePartNumber
	}
	return m
}

// Assign gives role to col, evicting it from any other column.
func (m Mapping) Assign(col int, role Role) error {
	if col < 0 {
		return fmt.Errorf("%w: %d", ErrInvalidColumn, col)
	}
	if _, err := ParseRole(string(role)); err != nil {
		return err
	}

	for c, r := range m {
		if r == role && c != col {
			delete(m, c)
		}
	}
	m[col] = role
	return nil
}

// Unassign clears the role of col.
func (m Mapping) Unassign(col int) {
	delete(m, col)
}

// RoleOf returns the role of col, or "" if unassigned.
func (m Mapping) RoleOf(col int) Role {
	return m[col]
}

// Column returns the column holding role.
func (m Mapping) Column(role Role) (int, bool) {
	for c, r := range m {
		if r == role {
			return c, true
		}
	}
	return 0, false
}

// HasPartNumber reports whether processing may start.
func (m Mapping) HasPartNumber() bool {
	_, ok := m.Column(RolePartNumber)
	return ok
}

// Clone returns an independent copy.
func (m Mapping) Clone() Mapping {
	out := make(Mapping, len(m))
	for c, r := range m {
		out[c] = r
	}
	return out
}
