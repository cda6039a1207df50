package model

// SleepPolicy is the decision produced by one scheduling cycle.
type SleepPolicy struct {
	// SleepCells lists the small cells to deactivate, in ascending order.
	SleepCells []CellID `json:"sleep_cells"`
	// Reassignment maps users that must move to their new cell.
	Reassignment map[RNTI]CellID `json:"reassignment"`
}
