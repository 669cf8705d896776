package processing

// DCSO MTUCORR
// Copyright (c) 2024, DCSO GmbH

import (
	"encoding/json"
	"io"
	"sync"

	"github.com/DCSO/mtucorr/types"
	"github.com/DCSO/mtucorr/util"
)

// JSONLinesHandler writes each report as one line of JSON.
type JSONLinesHandler struct {
	sync.Mutex
	Writer io.Writer
}

// MakeJSONLinesHandler returns a new JSONLinesHandler writing to w.
func MakeJSONLinesHandler(w io.Writer) *JSONLinesHandler {
	return &JSONLinesHandler{
		Writer: w,
	}
}

// GetName returns the name of the handler.
func (h *JSONLinesHandler) GetName() string {
	return "JSON lines writer"
}

// Consume writes the report.
func (h *JSONLinesHandler) Consume(r *types.HourReport) error {
	out, err := json.Marshal(r)
	if err != nil {
		return err
	}
	h.Lock()
	defer h.Unlock()
	_, err = h.Writer.Write(append(out, '\n'))
	return err
}

// ForwardHandler publishes each report as JSON via a Submitter.
type ForwardHandler struct {
	Submitter  util.Submitter
	RoutingKey string
}

// DefaultRoutingKey is the routing key used for forwarded reports.
const DefaultRoutingKey = "hourly"

// MakeForwardHandler returns a new ForwardHandler using the given submitter.
func MakeForwardHandler(s util.Submitter, key string) *ForwardHandler {
	if key == "" {
		key = DefaultRoutingKey
	}
	return &ForwardHandler{
		Submitter:  s,
		RoutingKey: key,
	}
}

// GetName returns the name of the handler.
func (h *ForwardHandler) GetName() string {
	return "report forwarder"
}

// Consume submits the report.
func (h *ForwardHandler) Consume(r *types.HourReport) error {
	out, err := json.Marshal(r)
	if err != nil {
		return err
	}
	h.Submitter.SubmitWithHeaders(out, h.RoutingKey, "application/json",
		map[string]string{
			"datetime": r.Datetime,
		})
	return nil
}
