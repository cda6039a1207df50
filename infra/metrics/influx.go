package metrics

import (
	"context"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	influxdb2 "github.com/influxdata/influxdb-client-go/v2"
	"github.com/influxdata/influxdb-client-go/v2/api"
	"github.com/influxdata/influxdb-client-go/v2/api/write"

	coremetrics "github.com/kilianp07/cellsleep/core/metrics"
	"github.com/kilianp07/cellsleep/infra/logger"
)

// InfluxSink writes cycle metrics to an InfluxDB instance using the official client.
type InfluxSink struct {
	client   influxdb2.Client
	writeAPI api.WriteAPIBlocking
	log      logger.Logger
}

// NewInfluxSink creates a new sink configured for the given InfluxDB endpoint.
func NewInfluxSink(url, token, org, bucket string) *InfluxSink {
	base := strings.TrimSuffix(url, "/api/v2/write")
	client := influxdb2.NewClientWithOptions(base, token,
		influxdb2.DefaultOptions().SetHTTPClient(&http.Client{Timeout: 5 * time.Second}))
	return &InfluxSink{
		client:   client,
		writeAPI: client.WriteAPIBlocking(org, bucket),
		log:      logger.New("influx-sink"),
	}
}

// NewInfluxSinkWithFallback tries to ping the InfluxDB instance and
// returns a NopSink if the health check fails.
func NewInfluxSinkWithFallback(url, token, org, bucket string) coremetrics.MetricsSink {
	sink := NewInfluxSink(url, token, org, bucket)
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	health, err := sink.client.Health(ctx)
	if err != nil || health.Status != "pass" {
		if err != nil {
			sink.log.Errorf("influx health check error: %v", err)
		} else {
			sink.log.Errorf("influx health status: %s", health.Status)
		}
		sink.client.Close()
		return coremetrics.NopSink{}
	}
	return sink
}

// RecordCycle writes one sleep_cycle point.
func (s *InfluxSink) RecordCycle(m coremetrics.CycleMetrics) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.writeAPI.WritePoint(ctx, cyclePoint(m))
}

// RecordReport writes rejected report entries.
func (s *InfluxSink) RecordReport(r coremetrics.ReportMetrics) error {
	if r.Rejected == 0 {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	p := write.NewPointWithMeasurement("sleep_report_rejected").
		AddTag("macro", r.Macro.String()).
		AddTag("kind", r.Kind).
		AddField("entries", r.Rejected).
		SetTime(r.Time)
	return s.writeAPI.WritePoint(ctx, p)
}

// Close releases the client.
func (s *InfluxSink) Close() { s.client.Close() }

func cyclePoint(m coremetrics.CycleMetrics) *write.Point {
	return write.NewPointWithMeasurement("sleep_cycle").
		AddTag("macro", m.Macro.String()).
		AddTag("failed", strconv.FormatBool(m.Failed)).
		AddTag("component", "sleep_controller").
		AddField("cycle_id", m.CycleID).
		AddField("managed_cells", m.ManagedCells).
		AddField("sleeping_cells", m.SleepingCells).
		AddField("active_cells", m.ActiveCells).
		AddField("users", m.Users).
		AddField("reassigned", m.Reassigned).
		AddField("unserved", m.Unserved).
		AddField("mean_se", round3(m.MeanEfficiency)).
		AddField("duration_ms", round3(m.Duration.Seconds()*1000)).
		SetTime(m.Time)
}

func round3(f float64) float64 {
	return math.Round(f*1000) / 1000
}
