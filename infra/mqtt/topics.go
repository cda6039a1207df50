package mqtt

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/kilianp07/cellsleep/core/model"
)

// Request kinds exchanged with the network.
const (
	KindCells       = "cells"
	KindConnections = "connections"
	KindSubscribe   = "subscribe"
)

// Topics builds the topics of one macro cell under a root prefix.
type Topics struct {
	base string
}

// NewTopics returns the topics of macro under root.
func NewTopics(root string, macro model.CellID) Topics {
	return Topics{base: fmt.Sprintf("%s/%d", strings.TrimSuffix(root, "/"), macro)}
}

func (t Topics) Measurement(rnti model.RNTI) string { return t.base + "/meas/" + rnti.String() }
func (t Topics) MeasurementFilter() string          { return t.base + "/meas/+" }
func (t Topics) Quality(cell model.CellID) string   { return t.base + "/cqi/" + cell.String() }
func (t Topics) QualityFilter() string              { return t.base + "/cqi/+" }
func (t Topics) Request(kind string) string         { return t.base + "/request/" + kind }
func (t Topics) Response(kind, id string) string    { return t.base + "/response/" + kind + "/" + id }
func (t Topics) ResponseFilter() string             { return t.base + "/response/+/+" }
func (t Topics) Policy() string                     { return t.base + "/policy" }

// lastSegmentID parses the final topic level as a 16 bit id.
func lastSegmentID(topic string) (uint16, bool) {
	i := strings.LastIndexByte(topic, '/')
	v, err := strconv.ParseUint(topic[i+1:], 10, 16)
	if err != nil {
		return 0, false
	}
	return uint16(v), true
}
