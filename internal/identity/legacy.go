package identity

import (
	"regexp"
	"strconv"
	"strings"

	"hostel-management-backend/internal/model"
)

var wardenBlock = regexp.MustCompile(`warden(\d+)`)

// LegacyRole derives a role from an email address the way accounts were
// classified before roles were stored: "admin" anywhere in the address makes
// an admin, "ward" makes a warden whose block is the number after "warden",
// and anything else is a student. A warden address without a valid block
// number yields ok == false.
func LegacyRole(email string) (role model.Role, block *int, ok bool) {
	email = strings.ToLower(email)
	switch {
	case strings.Contains(email, "admin"):
		return model.RoleAdmin, nil, true
	case strings.Contains(email, "ward"):
		m := wardenBlock.FindStringSubmatch(email)
		if m == nil {
			return "", nil, false
		}
		n, err := strconv.Atoi(m[1])
		if err != nil || !model.ValidHostelID(n) {
			return "", nil, false
		}
		return model.RoleWarden, &n, true
	default:
		return model.RoleStudent, nil, true
	}
}
