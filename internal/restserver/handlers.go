package restserver

import (
	"encoding/json"
	"fmt"
	"mime"
	"net/http"
	"time"

	"github.com/vmihailenco/msgpack/v5"

	"github.com/glucolab/agata/internal/analysis"
	"github.com/glucolab/agata/internal/loader"
	"github.com/glucolab/agata/internal/target"
	"github.com/glucolab/agata/internal/trace"
	"github.com/glucolab/agata/pkg/responseformat"
)

// Handlers contains all HTTP handlers for the REST server
type Handlers struct {
	controller *Controller
	formatter  *responseformat.Formatter
}

// NewHandlers creates a new handlers instance
func NewHandlers(ctrl *Controller) *Handlers {
	return &Handlers{
		controller: ctrl,
		formatter:  responseformat.NewFormatter(),
	}
}

// samplePayload is one reading on the wire. Glucose is null for a
// missing reading.
type samplePayload struct {
	T       time.Time `json:"t" msgpack:"t"`
	Glucose *float64  `json:"glucose" msgpack:"glucose"`
}

func toTrace(payload []samplePayload) *trace.Trace {
	samples := make([]trace.Sample, 0, len(payload))
	for _, p := range payload {
		s := trace.Sample{Time: p.T}
		if p.Glucose == nil {
			s.Missing = true
		} else {
			s.Value = *p.Glucose
		}
		samples = append(samples, s)
	}
	return trace.NewFiltered(samples)
}

// readTrace decodes the request body into a trace. CSV and MessagePack
// bodies are selected by Content-Type; anything else is read as a JSON
// sample array.
func (h *Handlers) readTrace(req *http.Request) (*trace.Trace, error) {
	ct := req.Header.Get("Content-Type")
	if ct != "" {
		if parsed, _, err := mime.ParseMediaType(ct); err == nil {
			ct = parsed
		}
	}

	switch ct {
	case "text/csv":
		return loader.FromCSV(req.Body)
	case "application/x-msgpack":
		return loader.FromMsgpack(req.Body)
	default:
		var payload []samplePayload
		if err := json.NewDecoder(req.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decoding sample array: %w", err)
		}
		return toTrace(payload), nil
	}
}

// Analyze runs the full metric report on the posted trace. The glycemic
// target is selected with the profile query parameter.
func (h *Handlers) Analyze(w http.ResponseWriter, req *http.Request) {
	profile := req.URL.Query().Get("profile")
	if profile == "" {
		profile = h.controller.cfg.DefaultProfile
	}

	analyzer, err := analysis.New(profile)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	tr, err := h.readTrace(req)
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, err.Error())
		return
	}

	report, err := analyzer.Analyze(tr)
	if err != nil {
		h.controller.logger.Errorw("analysis failed", "error", err)
		h.formatter.WriteError(w, req, http.StatusInternalServerError, err.Error())
		return
	}
	h.formatter.WriteResponse(w, req, http.StatusOK, report)
}

// comparePayload carries the two traces of a comparison request.
type comparePayload struct {
	Reference []samplePayload `json:"reference" msgpack:"reference"`
	Candidate []samplePayload `json:"candidate" msgpack:"candidate"`
}

// Compare measures agreement between the posted reference and candidate
// traces.
func (h *Handlers) Compare(w http.ResponseWriter, req *http.Request) {
	var payload comparePayload

	ct := req.Header.Get("Content-Type")
	if parsed, _, err := mime.ParseMediaType(ct); err == nil {
		ct = parsed
	}
	var err error
	if ct == "application/x-msgpack" {
		err = msgpack.NewDecoder(req.Body).Decode(&payload)
	} else {
		err = json.NewDecoder(req.Body).Decode(&payload)
	}
	if err != nil {
		h.formatter.WriteError(w, req, http.StatusBadRequest, fmt.Sprintf("decoding comparison request: %v", err))
		return
	}

	report := analysis.CompareTraces(toTrace(payload.Reference), toTrace(payload.Candidate))
	h.formatter.WriteResponse(w, req, http.StatusOK, report)
}

// ListTargets returns the built-in glycemic target profiles.
func (h *Handlers) ListTargets(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, target.Profiles())
}

// Health is a liveness endpoint.
func (h *Handlers) Health(w http.ResponseWriter, req *http.Request) {
	h.formatter.WriteResponse(w, req, http.StatusOK, map[string]string{"status": "ok"})
}
