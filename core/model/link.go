package model

import "sort"

// LinkKey identifies the radio link between a user and a cell.
type LinkKey struct {
	RNTI RNTI
	Cell CellID
}

// SortCells sorts ids in ascending order.
func SortCells(ids []CellID) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// SortRNTIs sorts ids in ascending order.
func SortRNTIs(ids []RNTI) {
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
}

// SortUsers sorts users by RNTI.
func SortUsers(us []User) {
	sort.Slice(us, func(i, j int) bool { return us[i].RNTI < us[j].RNTI })
}
