package videooutput

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"

	"videooutputd/internal/aspect"
	"videooutputd/internal/platform/eventloop"
	"videooutputd/internal/platform/metrics"
	"videooutputd/internal/subscription"

	"github.com/go-chi/chi/v5"
)

const (
	jsonContentType   = "application/json"
	ndjsonContentType = "application/x-ndjson"
	maxBodyBytes      = 64 << 10
)

var errUnavailable = errors.New("service unavailable")

// Runner executes closures on the goroutine that owns the Service.
type Runner interface {
	Do(ctx context.Context, fn func()) error
}

// Handler exposes the service methods as JSON-over-HTTP endpoints using go-chi.
type Handler struct {
	svc     *Service
	loop    Runner
	hub     *subscription.Hub[Status]
	log     *slog.Logger
	metrics *metrics.Metrics
}

// NewHandler returns a Handler that calls svc through loop and streams
// status updates from hub. Metrics may be nil to disable metric recording
// (e.g. in tests).
func NewHandler(svc *Service, loop Runner, hub *subscription.Hub[Status], log *slog.Logger, m *metrics.Metrics) *Handler {
	return &Handler{svc: svc, loop: loop, hub: hub, log: log, metrics: m}
}

// Routes registers every method on r.
func (h *Handler) Routes(r chi.Router) {
	r.Post("/register", h.Register)
	r.Post("/unregister", h.Unregister)
	r.Post("/connect", h.Connect)
	r.Post("/disconnect", h.Disconnect)
	r.Post("/blankVideo", h.BlankVideo)
	r.Post("/setVideoData", h.SetVideoData)
	r.Post("/getStatus", h.GetStatus)
	r.Route("/display", func(r chi.Router) {
		r.Post("/setDisplayWindow", h.SetDisplayWindow)
		r.Post("/setCompositing", h.SetCompositing)
		r.Post("/getVideoLimits", h.GetVideoLimits)
		r.Post("/getOutputCapabilities", h.GetOutputCapabilities)
		r.Post("/getSupportedResolutions", h.NotImplemented)
		r.Post("/setDisplayResolution", h.NotImplemented)
		r.Post("/setParam", h.NotImplemented)
		r.Post("/getParam", h.NotImplemented)
	})
	r.Route("/settings", func(r chi.Router) {
		r.Post("/getAspectRatio", h.GetAspectRatio)
		r.Post("/setAspectRatio", h.SetAspectRatio)
	})
}

type reply struct {
	ReturnValue bool `json:"returnValue"`
}

var success = reply{ReturnValue: true}

type errorReply struct {
	ReturnValue bool   `json:"returnValue"`
	ErrorCode   int    `json:"errorCode"`
	ErrorText   string `json:"errorText"`
}

type contextRequest struct {
	Context string `json:"context"`
}

// Register handles POST /register. Body: {"context": "client-1"}.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if !h.decode(w, r, "register", &req) {
		return
	}
	err := h.run(r, func() error { return h.svc.Register(req.Context) })
	h.finish(w, "register", err, success)
}

// Unregister handles POST /unregister. Body: {"context": "client-1"}.
func (h *Handler) Unregister(w http.ResponseWriter, r *http.Request) {
	var req contextRequest
	if !h.decode(w, r, "unregister", &req) {
		return
	}
	err := h.run(r, func() error { return h.svc.Unregister(req.Context) })
	h.finish(w, "unregister", err, success)
}

// Connect handles POST /connect. source, sourcePort and sink are required.
// Body: {"source": "VDEC", "sourcePort": 0, "sink": "MAIN", "context": "...", "appId": "..."}.
func (h *Handler) Connect(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ConnectRequest
		SourcePort *uint8 `json:"sourcePort"`
	}
	if !h.decode(w, r, "connect", &body) {
		return
	}
	req := body.ConnectRequest
	if req.Source == "" || req.Sink == "" || body.SourcePort == nil {
		h.fail(w, "connect", fmt.Errorf("%w: source, sourcePort and sink are required", ErrSchemaValidation))
		return
	}
	req.SourcePort = *body.SourcePort
	var planeID uint32
	err := h.run(r, func() error {
		var err error
		planeID, err = h.svc.Connect(req)
		return err
	})
	h.finish(w, "connect", err, struct {
		reply
		PlaneID uint32 `json:"planeID"`
	}{success, planeID})
}

// Disconnect handles POST /disconnect. Body: {"sink": "MAIN", "context": "..."}.
func (h *Handler) Disconnect(w http.ResponseWriter, r *http.Request) {
	var req DisconnectRequest
	if !h.decode(w, r, "disconnect", &req) {
		return
	}
	if req.Sink == "" {
		h.fail(w, "disconnect", fmt.Errorf("%w: sink is required", ErrSchemaValidation))
		return
	}
	err := h.run(r, func() error { return h.svc.Disconnect(req) })
	h.finish(w, "disconnect", err, success)
}

// BlankVideo handles POST /blankVideo. Body: {"sink": "MAIN", "blank": true}.
func (h *Handler) BlankVideo(w http.ResponseWriter, r *http.Request) {
	var req BlankRequest
	if !h.decode(w, r, "blankVideo", &req) {
		return
	}
	err := h.run(r, func() error { return h.svc.BlankVideo(req) })
	h.finish(w, "blankVideo", err, success)
}

// SetVideoData handles POST /setVideoData. width, height and frameRate are
// required.
func (h *Handler) SetVideoData(w http.ResponseWriter, r *http.Request) {
	var body struct {
		VideoDataRequest
		Width     *uint16  `json:"width"`
		Height    *uint16  `json:"height"`
		FrameRate *float64 `json:"frameRate"`
	}
	if !h.decode(w, r, "setVideoData", &body) {
		return
	}
	if body.Width == nil || body.Height == nil || body.FrameRate == nil {
		h.fail(w, "setVideoData", fmt.Errorf("%w: width, height and frameRate are required", ErrSchemaValidation))
		return
	}
	req := body.VideoDataRequest
	req.Width, req.Height, req.FrameRate = *body.Width, *body.Height, *body.FrameRate
	err := h.run(r, func() error { return h.svc.SetVideoData(req) })
	h.finish(w, "setVideoData", err, success)
}

// SetDisplayWindow handles POST /display/setDisplayWindow.
func (h *Handler) SetDisplayWindow(w http.ResponseWriter, r *http.Request) {
	var req DisplayWindowRequest
	if !h.decode(w, r, "setDisplayWindow", &req) {
		return
	}
	err := h.run(r, func() error { return h.svc.SetDisplayWindow(req) })
	h.finish(w, "setDisplayWindow", err, success)
}

// SetCompositing handles POST /display/setCompositing.
// Body: {"composeOrder": [{"sink": "MAIN", "opacity": 255, "zOrder": 0}]}.
func (h *Handler) SetCompositing(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ComposeOrder []Composition `json:"composeOrder"`
	}
	if !h.decode(w, r, "setCompositing", &req) {
		return
	}
	if req.ComposeOrder == nil {
		h.fail(w, "setCompositing", fmt.Errorf("%w: composeOrder is required", ErrSchemaValidation))
		return
	}
	err := h.run(r, func() error { return h.svc.SetCompositing(req.ComposeOrder) })
	h.finish(w, "setCompositing", err, success)
}

// GetVideoLimits handles POST /display/getVideoLimits. Body: {"sink": "MAIN"}.
func (h *Handler) GetVideoLimits(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Sink string `json:"sink"`
	}
	if !h.decode(w, r, "getVideoLimits", &req) {
		return
	}
	var limits VideoLimits
	err := h.run(r, func() error {
		var err error
		limits, err = h.svc.VideoLimits(req.Sink)
		return err
	})
	h.finish(w, "getVideoLimits", err, struct {
		reply
		VideoLimits
	}{success, limits})
}

// GetOutputCapabilities handles POST /display/getOutputCapabilities.
func (h *Handler) GetOutputCapabilities(w http.ResponseWriter, r *http.Request) {
	if !h.decode(w, r, "getOutputCapabilities", &struct{}{}) {
		return
	}
	var caps OutputCapabilities
	err := h.run(r, func() error {
		caps = h.svc.OutputCapabilities()
		return nil
	})
	h.finish(w, "getOutputCapabilities", err, struct {
		reply
		OutputCapabilities
	}{success, caps})
}

// NotImplemented answers display methods the platform does not support.
func (h *Handler) NotImplemented(w http.ResponseWriter, r *http.Request) {
	h.fail(w, r.URL.Path, ErrNotImplemented)
}

type aspectReply struct {
	reply
	AppID string `json:"appId,omitempty"`
	aspect.Params
}

// GetAspectRatio handles POST /settings/getAspectRatio. Body: {"appId": "..."}.
func (h *Handler) GetAspectRatio(w http.ResponseWriter, r *http.Request) {
	var req struct {
		AppID string `json:"appId"`
	}
	if !h.decode(w, r, "getAspectRatio", &req) {
		return
	}
	var p aspect.Params
	err := h.run(r, func() error {
		p = h.svc.AspectSettings().For(req.AppID)
		return nil
	})
	h.finish(w, "getAspectRatio", err, aspectReply{success, req.AppID, p})
}

// SetAspectRatio handles POST /settings/setAspectRatio. Fields left out of
// the body keep their current value.
func (h *Handler) SetAspectRatio(w http.ResponseWriter, r *http.Request) {
	body, ok := h.readBody(w, r, "setAspectRatio")
	if !ok {
		return
	}
	var target struct {
		AppID string `json:"appId"`
	}
	if err := json.Unmarshal(body, &target); err != nil {
		h.fail(w, "setAspectRatio", fmt.Errorf("%w: %v", ErrSchemaValidation, err))
		return
	}

	var applied aspect.Params
	err := h.run(r, func() error {
		req := struct {
			AppID string `json:"appId"`
			aspect.Params
		}{AppID: target.AppID, Params: h.svc.AspectSettings().For(target.AppID)}
		if err := strictUnmarshal(body, &req); err != nil {
			return err
		}
		applied = req.Params
		return h.svc.SetAspectRatio(req.AppID, req.Params)
	})
	h.finish(w, "setAspectRatio", err, aspectReply{success, target.AppID, applied})
}

type statusReply struct {
	reply
	Status
	Subscribed bool `json:"subscribed"`
}

// GetStatus handles POST /getStatus. With {"subscribe": true} the response
// is a stream of newline-delimited status objects, the current one first,
// until the client goes away.
func (h *Handler) GetStatus(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Subscribe bool `json:"subscribe"`
	}
	if !h.decode(w, r, "getStatus", &req) {
		return
	}
	if !req.Subscribe || h.hub == nil {
		var st Status
		err := h.run(r, func() error {
			st = h.svc.Status()
			return nil
		})
		h.finish(w, "getStatus", err, statusReply{success, st, false})
		return
	}
	h.stream(w, r)
}

func (h *Handler) stream(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	_, updates, cancel := h.hub.Subscribe(ctx)
	defer func() {
		cancel()
		h.setSubscribers()
	}()
	h.setSubscribers()

	var st Status
	if err := h.run(r, func() error {
		st = h.svc.Status()
		return nil
	}); err != nil {
		h.fail(w, "getStatus", err)
		return
	}
	h.observe("getStatus", nil)

	rc := http.NewResponseController(w)
	w.Header().Set("Content-Type", ndjsonContentType)
	w.WriteHeader(http.StatusOK)
	enc := json.NewEncoder(w)

	send := func(st Status) bool {
		if err := enc.Encode(statusReply{success, st, true}); err != nil {
			return false
		}
		if err := rc.Flush(); err != nil {
			h.log.Debug("status stream cannot flush", slog.String("error", err.Error()))
		}
		return true
	}
	if !send(st) {
		return
	}
	h.log.Debug("status subscriber attached", slog.String("remote", r.RemoteAddr))

	for {
		select {
		case <-ctx.Done():
			return
		case st, ok := <-updates:
			if !ok || !send(st) {
				return
			}
		}
	}
}

func (h *Handler) setSubscribers() {
	if h.metrics != nil {
		h.metrics.SetStatusSubscribers(h.hub.Len())
	}
}

// run executes fn on the event loop.
func (h *Handler) run(r *http.Request, fn func() error) error {
	var opErr error
	if err := h.loop.Do(r.Context(), func() { opErr = fn() }); err != nil {
		if errors.Is(err, eventloop.ErrPanicked) {
			return err
		}
		return fmt.Errorf("%w: %v", errUnavailable, err)
	}
	return opErr
}

func (h *Handler) readBody(w http.ResponseWriter, r *http.Request, method string) ([]byte, bool) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		h.fail(w, method, fmt.Errorf("%w: %v", ErrSchemaValidation, err))
		return nil, false
	}
	return body, true
}

// decode parses the JSON body into v. An empty body is an empty object.
func (h *Handler) decode(w http.ResponseWriter, r *http.Request, method string, v any) bool {
	body, ok := h.readBody(w, r, method)
	if !ok {
		return false
	}
	if err := strictUnmarshal(body, v); err != nil {
		h.log.Debug("invalid request body", slog.String("method", method), slog.String("error", err.Error()))
		h.fail(w, method, err)
		return false
	}
	return true
}

func strictUnmarshal(body []byte, v any) error {
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: %v", ErrSchemaValidation, err)
	}
	return nil
}

func (h *Handler) finish(w http.ResponseWriter, method string, err error, v any) {
	if err != nil {
		h.fail(w, method, err)
		return
	}
	h.observe(method, nil)
	writeJSON(w, http.StatusOK, v)
}

func (h *Handler) fail(w http.ResponseWriter, method string, err error) {
	code := ErrorCode(err)
	status := httpStatus(err, code)
	if status >= http.StatusInternalServerError {
		h.log.Error("request failed", slog.String("method", method), slog.Int("error_code", code), slog.String("error", err.Error()))
	} else {
		h.log.Info("request rejected", slog.String("method", method), slog.Int("error_code", code), slog.String("error", err.Error()))
	}
	h.observe(method, err)
	writeJSON(w, status, errorReply{ErrorCode: code, ErrorText: err.Error()})
}

func (h *Handler) observe(method string, err error) {
	if h.metrics == nil {
		return
	}
	if err == nil {
		h.metrics.ObserveOperation(method, "ok")
		return
	}
	code := ErrorCode(err)
	h.metrics.ObserveOperation(method, strconv.Itoa(code))
	if code == CodeHALError {
		h.metrics.IncHALErrors()
	}
}

func httpStatus(err error, code int) int {
	if errors.Is(err, errUnavailable) {
		return http.StatusServiceUnavailable
	}
	switch code {
	case CodeSchemaValidation, CodeInvalidParameters, CodeDownscaleLimit, CodeUpscaleLimit:
		return http.StatusBadRequest
	case CodeVideoNotConnected:
		return http.StatusConflict
	case CodeNotImplemented:
		return http.StatusNotImplemented
	case CodeHALError:
		return http.StatusBadGateway
	}
	return http.StatusInternalServerError
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", jsonContentType)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
