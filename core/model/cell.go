package model

import "strconv"

const (
	smallIndexMask CellID = 0x003F
	macroMask      CellID = 0xFFC0
)

// CellID identifies a cell. The upper ten bits carry the id of the macro cell
// and the lower six bits the index of a small cell under it. A macro cell has
// index zero.
type CellID uint16

// IsSmall reports whether the id designates a small cell.
func (c CellID) IsSmall() bool { return c&smallIndexMask != 0 }

// Macro returns the id of the macro cell owning c.
func (c CellID) Macro() CellID { return c & macroMask }

// BelongsTo reports whether c is a small cell supervised by macro.
func (c CellID) BelongsTo(macro CellID) bool {
	return c.IsSmall() && c.Macro() == macro
}

// SmallCell builds the id of the small cell with the given index under macro.
func SmallCell(macro CellID, index uint8) CellID {
	return macro.Macro() | CellID(index)&smallIndexMask
}

func (c CellID) String() string { return strconv.FormatUint(uint64(c), 10) }
