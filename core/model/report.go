package model

import "math"

// MaxRSRPRange is the highest RSRP reporting range value (TS 36.133).
const MaxRSRPRange RSRPRange = 97

// MaxCQI is the highest valid channel quality index.
const MaxCQI uint8 = 15

// RSRPRange is a reference signal received power expressed as a reporting
// range index. Index r maps to r-140 dBm.
type RSRPRange uint8

// Dbm returns the received power in dBm.
func (r RSRPRange) Dbm() float64 { return float64(r) - 140 }

// Watts returns the received power in watts.
func (r RSRPRange) Watts() float64 { return DbmToWatts(r.Dbm()) }

// RSRPRangeFromDbm converts a power in dBm to the closest reporting range,
// clamped to the valid interval.
func RSRPRangeFromDbm(dbm float64) RSRPRange {
	r := math.Round(dbm + 140)
	if r < 0 {
		return 0
	}
	if r > float64(MaxRSRPRange) {
		return MaxRSRPRange
	}
	return RSRPRange(r)
}

// DbmToWatts converts dBm to watts.
func DbmToWatts(dbm float64) float64 { return math.Pow(10, dbm/10) / 1000 }

// NeighborMeasurement is one entry of a measurement report.
type NeighborMeasurement struct {
	Cell CellID    `json:"cell" yaml:"cell"`
	RSRP RSRPRange `json:"rsrp" yaml:"rsrp"`
}

// MeasurementReport lists the neighbour cells heard by a user.
type MeasurementReport struct {
	MeasID    uint8                 `json:"meas_id" yaml:"meas_id"`
	Neighbors []NeighborMeasurement `json:"neighbors" yaml:"neighbors"`
}

// QualityEntry is the channel quality one user reported for a cell.
type QualityEntry struct {
	RNTI RNTI  `json:"rnti" yaml:"rnti"`
	CQI  uint8 `json:"cqi" yaml:"cqi"`
}

// QualityReport holds the downlink channel quality feedback of a cell.
type QualityReport struct {
	Entries []QualityEntry `json:"entries" yaml:"entries"`
}
