package mqtt

import (
	"encoding/json"
	"fmt"

	paho "github.com/eclipse/paho.mqtt.golang"

	"github.com/kilianp07/cellsleep/core/model"
	"github.com/kilianp07/cellsleep/core/sleep"
	"github.com/kilianp07/cellsleep/infra/logger"
)

// ReportListener forwards measurement and channel quality reports published
// on the broker to a sleep.ReportSink. The id in the topic takes precedence
// over the one in the payload.
type ReportListener struct {
	sink sleep.ReportSink
	log  logger.Logger
}

// NewReportListener subscribes to the report topics of macro.
func NewReportListener(client *PahoClient, macro model.CellID, sink sleep.ReportSink) (*ReportListener, error) {
	l := &ReportListener{sink: sink, log: logger.New("mqtt_listener")}
	topics := NewTopics(client.cfg.TopicRoot, macro)
	qos := client.cfg.qos("report")
	if err := client.Subscribe(topics.MeasurementFilter(), qos, l.onMeasurement); err != nil {
		return nil, fmt.Errorf("subscribe measurements: %w", err)
	}
	if err := client.Subscribe(topics.QualityFilter(), qos, l.onQuality); err != nil {
		return nil, fmt.Errorf("subscribe quality: %w", err)
	}
	return l, nil
}

func (l *ReportListener) onMeasurement(_ paho.Client, msg paho.Message) {
	var m MeasurementMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		l.log.Errorf("invalid measurement report on %s: %v", msg.Topic(), err)
		return
	}
	if id, ok := lastSegmentID(msg.Topic()); ok {
		m.RNTI = model.RNTI(id)
	}
	l.sink.ReportUeMeas(m.RNTI, model.MeasurementReport{MeasID: m.MeasID, Neighbors: m.Neighbors})
}

func (l *ReportListener) onQuality(_ paho.Client, msg paho.Message) {
	var m QualityMessage
	if err := json.Unmarshal(msg.Payload(), &m); err != nil {
		l.log.Errorf("invalid quality report on %s: %v", msg.Topic(), err)
		return
	}
	if id, ok := lastSegmentID(msg.Topic()); ok {
		m.Cell = model.CellID(id)
	}
	l.sink.ReportQuality(m.Cell, model.QualityReport{Entries: m.Entries})
}
