package api

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/snapshot"
)

// SnapshotQuerier is the read side of a snapshot store.
type SnapshotQuerier interface {
	Query(ctx context.Context, q snapshot.Query) ([]snapshot.Record, error)
}

// NewSnapshotHandler returns an HTTP handler exposing cycle snapshots via
// GET /api/snapshots. The macro parameter accepts a comma separated list;
// start and end are RFC3339 timestamps.
func NewSnapshotHandler(store SnapshotQuerier) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		q, err := parseQuery(r)
		if err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)
			return
		}
		records, err := store.Query(r.Context(), q)
		if err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
		if records == nil {
			records = []snapshot.Record{}
		}
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(records); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	})
}

func parseQuery(r *http.Request) (snapshot.Query, error) {
	var q snapshot.Query
	values := r.URL.Query()
	for _, raw := range values["macro"] {
		for _, s := range strings.Split(raw, ",") {
			if s = strings.TrimSpace(s); s == "" {
				continue
			}
			id, err := strconv.ParseUint(s, 10, 16)
			if err != nil {
				return q, fmt.Errorf("invalid macro %q", s)
			}
			q.Macros = append(q.Macros, model.CellID(id))
		}
	}
	var err error
	if q.Start, err = parseTime(values.Get("start")); err != nil {
		return q, fmt.Errorf("invalid start: %w", err)
	}
	if q.End, err = parseTime(values.Get("end")); err != nil {
		return q, fmt.Errorf("invalid end: %w", err)
	}
	return q, nil
}

func parseTime(s string) (time.Time, error) {
	if s == "" {
		return time.Time{}, nil
	}
	return time.Parse(time.RFC3339, s)
}
