package sleep

import "github.com/kilianp07/cellsleep/core/model"

// Reports is the set of reports used by one cycle.
type Reports struct {
	Measurements map[model.RNTI]model.MeasurementReport
	Quality      map[model.CellID]model.QualityReport
}

// ReportStore keeps the latest report of each user and cell. It is owned by a
// single goroutine and performs no locking.
type ReportStore struct {
	meas    map[model.RNTI]model.MeasurementReport
	quality map[model.CellID]model.QualityReport
}

// NewReportStore returns an empty store.
func NewReportStore() *ReportStore {
	return &ReportStore{
		meas:    make(map[model.RNTI]model.MeasurementReport),
		quality: make(map[model.CellID]model.QualityReport),
	}
}

// PutMeasurement replaces the measurement report of rnti.
func (s *ReportStore) PutMeasurement(rnti model.RNTI, rep model.MeasurementReport) {
	s.meas[rnti] = rep
}

// PutQuality replaces the quality report of cell.
func (s *ReportStore) PutQuality(cell model.CellID, rep model.QualityReport) {
	s.quality[cell] = rep
}

// Len returns the number of stored measurement and quality reports.
func (s *ReportStore) Len() (meas, quality int) { return len(s.meas), len(s.quality) }

// Take returns the stored reports and leaves the store empty.
func (s *ReportStore) Take() Reports {
	r := Reports{Measurements: s.meas, Quality: s.quality}
	s.meas = make(map[model.RNTI]model.MeasurementReport)
	s.quality = make(map[model.CellID]model.QualityReport)
	return r
}
