package model

import "strconv"

// RNTI is the session scoped identifier of a connected terminal.
type RNTI uint16

func (r RNTI) String() string { return strconv.FormatUint(uint64(r), 10) }

// IMSI is the persistent identity of a terminal.
type IMSI uint64

// User is a terminal connected under the macro cell during one cycle.
type User struct {
	RNTI    RNTI
	IMSI    IMSI
	Serving CellID
}

// ConnectionState is the live connection table of the macro cell.
type ConnectionState struct {
	// Serving maps each user to the cell currently carrying its traffic.
	Serving map[RNTI]CellID `json:"serving"`
	// Identity maps each user to its persistent identity.
	Identity map[RNTI]IMSI `json:"identity"`
}

// Users returns the connection table as a slice ordered by RNTI.
func (s ConnectionState) Users() []User {
	out := make([]User, 0, len(s.Serving))
	for rnti, cell := range s.Serving {
		out = append(out, User{RNTI: rnti, IMSI: s.Identity[rnti], Serving: cell})
	}
	SortUsers(out)
	return out
}
