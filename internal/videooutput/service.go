package videooutput

import (
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"videooutputd/internal/aspect"
	"videooutputd/internal/geometry"
	"videooutputd/internal/hal"
)

// Notifier receives the full status after every state change.
type Notifier interface {
	Notify(Status)
}

// NotifierFunc adapts a function to Notifier.
type NotifierFunc func(Status)

func (f NotifierFunc) Notify(st Status) { f(st) }

// SettingsStore persists aspect-ratio settings changed at runtime.
type SettingsStore interface {
	Save(aspect.Settings) error
}

// Options configures a Service. Zero values are usable.
type Options struct {
	// NegativePosition clips placements hanging off screen instead of
	// rejecting them.
	NegativePosition bool
	Settings         aspect.Settings
	Store            SettingsStore
	Notifier         Notifier
}

// Service runs the video output operations. It holds no locks: every
// method must be called from a single goroutine.
type Service struct {
	hal      hal.HAL
	log      *slog.Logger
	sinks    *SinkRegistry
	clients  *ClientRegistry
	notifier Notifier
	store    SettingsStore

	settings         aspect.Settings
	foregroundApp    string
	negativePosition bool
	dualVideo        bool
}

// NewService creates one sink per plane reported by driver.
func NewService(driver hal.HAL, log *slog.Logger, opts Options) *Service {
	settings := opts.Settings
	if settings.Apps == nil && settings.Default == (aspect.Params{}) {
		settings = aspect.DefaultSettings()
	}
	return &Service{
		hal:              driver,
		log:              log,
		sinks:            NewSinkRegistry(driver.Planes()),
		clients:          NewClientRegistry(),
		notifier:         opts.Notifier,
		store:            opts.Store,
		settings:         settings,
		negativePosition: opts.NegativePosition,
	}
}

func (s *Service) notify() {
	if s.notifier == nil {
		return
	}
	s.notifier.Notify(s.Status())
}

// Register creates an explicitly identified client.
func (s *Service) Register(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: context is required", ErrSchemaValidation)
	}
	if _, err := s.clients.Register(clientID); err != nil {
		return fmt.Errorf("%w: %s", err, clientID)
	}
	s.log.Info("client registered", slog.String("context", clientID))
	return nil
}

// Unregister removes an explicitly identified client. A connected sink the
// client was bound to stays connected.
func (s *Service) Unregister(clientID string) error {
	if clientID == "" {
		return fmt.Errorf("%w: context is required", ErrSchemaValidation)
	}
	if err := s.clients.Unregister(clientID); err != nil {
		return fmt.Errorf("%w: %s", err, clientID)
	}
	s.log.Info("client unregistered", slog.String("context", clientID))
	s.notify()
	return nil
}

type ConnectRequest struct {
	Source     string `json:"source"`
	SourcePort uint8  `json:"sourcePort"`
	Sink       string `json:"sink"`
	Context    string `json:"context,omitempty"`
	AppID      string `json:"appId,omitempty"`
}

// Connect routes a source into a sink and binds the requesting client to
// it. A sink that is already connected is disconnected first.
func (s *Service) Connect(req ConnectRequest) (uint32, error) {
	s.log.Debug("connect",
		slog.String("source", req.Source),
		slog.Int("source_port", int(req.SourcePort)),
		slog.String("sink", req.Sink),
		slog.String("context", req.Context))

	src, err := hal.ParseSource(req.Source)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrInvalidParameters, err)
	}
	sink := s.sinks.Find(req.Sink)
	if sink == nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidSink, req.Sink)
	}
	id := IdentityFor(req.Context, req.Sink)
	var c *Client
	if id.Mode == ExplicitIdentity {
		if c = s.clients.FindByID(id.ClientID); c == nil {
			return 0, fmt.Errorf("%w: %s", ErrInvalidClient, id.ClientID)
		}
	}

	if sink.Connected {
		if err := s.disconnectSink(sink); err != nil {
			s.log.Warn("implicit disconnect incomplete",
				slog.String("sink", sink.Name),
				slog.String("error", err.Error()))
		}
		s.notify()
		sink.ConnectedClientID = Unknown
	}

	if isSubSink(sink.Name) {
		if err := s.setDualVideo(true); err != nil {
			return 0, err
		}
	}

	handle, err := s.hal.Connect(sink.PlaneID, hal.Source{Type: src, Port: req.SourcePort})
	if err != nil {
		s.log.Error("hal connect failed", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		return 0, halError("connect", err)
	}
	minSize, maxSize, err := s.hal.Capabilities(sink.PlaneID)
	if err != nil {
		s.log.Error("hal capabilities failed", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		if derr := s.hal.Disconnect(sink.PlaneID); derr != nil {
			s.log.Error("hal disconnect failed", slog.String("sink", sink.Name), slog.String("error", derr.Error()))
		}
		return 0, halError("capabilities", err)
	}

	if c == nil {
		if c = s.clients.FindByID(id.ClientID); c == nil {
			c, _ = s.clients.Register(id.ClientID)
			c.Implicit = true
		}
	}
	s.sinks.MarkConnected(sink, c.ID, minSize, maxSize)
	if prev := s.clients.Bind(c, sink.Name); prev != nil {
		s.log.Debug("client superseded", slog.String("sink", sink.Name), slog.String("context", prev.ID))
	}
	c.SourceName = req.Source
	c.SourceType = src
	c.SourcePort = req.SourcePort
	c.VideoInfo, _ = ParseVideoInfo(src, nil)

	s.foregroundApp = req.AppID

	s.log.Info("sink connected",
		slog.String("sink", sink.Name),
		slog.String("context", c.ID),
		slog.String("source", req.Source),
		slog.Uint64("plane", uint64(handle)))
	s.notify()
	return handle, nil
}

type DisconnectRequest struct {
	Sink    string `json:"sink"`
	Context string `json:"context,omitempty"`
}

// Disconnect releases a sink. The sink state is reset even when the driver
// reports a failure; the failure is still returned.
func (s *Service) Disconnect(req DisconnectRequest) error {
	s.log.Debug("disconnect", slog.String("sink", req.Sink), slog.String("context", req.Context))

	sink := s.sinks.Find(req.Sink)
	if sink == nil {
		return fmt.Errorf("%w: %q", ErrInvalidSink, req.Sink)
	}
	if !sink.Connected {
		return fmt.Errorf("%w: %s", ErrVideoNotConnected, sink.Name)
	}

	err := s.disconnectSink(sink)
	s.notify()
	sink.ConnectedClientID = Unknown
	if err != nil {
		return err
	}
	s.log.Info("sink disconnected", slog.String("sink", sink.Name))
	return nil
}

// disconnectSink resets sink and its bound client before asking the driver
// to tear the route down.
func (s *Service) disconnectSink(sink *Sink) error {
	bound := s.clients.FindBoundTo(sink.Name)
	s.sinks.MarkDisconnected(sink)
	if bound != nil {
		bound.detach()
		if bound.Implicit {
			_ = s.clients.Unregister(bound.ID)
		}
	}

	var errs []error
	if err := s.hal.Disconnect(sink.PlaneID); err != nil {
		s.log.Error("hal disconnect failed", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		errs = append(errs, halError("disconnect", err))
	}
	if isSubSink(sink.Name) {
		if err := s.setDualVideo(false); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func isSubSink(name string) bool {
	return strings.Contains(name, "SUB")
}

func (s *Service) setDualVideo(enable bool) error {
	if enable == s.dualVideo {
		return nil
	}
	if err := s.hal.SetDualVideo(enable); err != nil {
		s.log.Error("hal dual video failed", slog.Bool("enable", enable), slog.String("error", err.Error()))
		return halError("setDualVideo", err)
	}
	s.dualVideo = enable
	return nil
}

type BlankRequest struct {
	Sink  string `json:"sink"`
	Blank *bool  `json:"blank"`
}

// BlankVideo mutes or unmutes a sink. The sink does not need to be
// connected.
func (s *Service) BlankVideo(req BlankRequest) error {
	if req.Blank == nil {
		return fmt.Errorf("%w: blank is required", ErrSchemaValidation)
	}
	sink := s.sinks.Find(req.Sink)
	if sink == nil {
		return fmt.Errorf("%w: %q", ErrInvalidSink, req.Sink)
	}
	blank := *req.Blank
	if blank && sink.Muted {
		s.log.Debug("sink already muted", slog.String("sink", sink.Name))
		return nil
	}
	if err := s.hal.SetBlanking(sink.PlaneID, blank, sink.AppliedInputRect, sink.ScaledOutputRect); err != nil {
		s.log.Error("hal blanking failed", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		return halError("setBlanking", err)
	}
	sink.Muted = blank
	s.log.Info("sink blanking changed", slog.String("sink", sink.Name), slog.Bool("blank", blank))
	s.notify()
	return nil
}

type VideoDataRequest struct {
	Sink        string          `json:"sink,omitempty"`
	Context     string          `json:"context,omitempty"`
	ContentType string          `json:"contentType,omitempty"`
	Width       uint16          `json:"width"`
	Height      uint16          `json:"height"`
	FrameRate   float64         `json:"frameRate"`
	ScanType    string          `json:"scanType,omitempty"`
	VideoInfo   json.RawMessage `json:"videoInfo,omitempty"`
}

// SetVideoData records the producer's frame format. A placement already
// committed, or a full-screen window, is recomputed for the new size.
func (s *Service) SetVideoData(req VideoDataRequest) error {
	s.log.Debug("set video data",
		slog.String("sink", req.Sink),
		slog.String("context", req.Context),
		slog.Int("width", int(req.Width)),
		slog.Int("height", int(req.Height)))

	scan, err := ParseScanType(req.ScanType)
	if err != nil {
		return err
	}
	if req.FrameRate < 0 {
		return fmt.Errorf("%w: frameRate must not be negative", ErrSchemaValidation)
	}
	c, sink, err := s.boundClient(IdentityFor(req.Context, req.Sink))
	if err != nil {
		return err
	}
	var info VideoInfo
	if len(req.VideoInfo) > 0 {
		if info, err = ParseVideoInfo(c.SourceType, req.VideoInfo); err != nil {
			return err
		}
	}

	c.SourceRect = geometry.NewRect(req.Width, req.Height)
	c.ContentType = req.ContentType
	if c.ContentType == "" {
		c.ContentType = Unknown
	}
	c.FrameRate = req.FrameRate
	c.ScanType = scan
	c.InputRect = geometry.Rect{}
	if len(req.VideoInfo) > 0 {
		c.VideoInfo = info
	}
	if c.SourceRect.IsValid() {
		c.State = HasSource
	} else {
		c.State = NoSource
	}

	if sink.ScaledOutputRect.IsValid() || c.FullScreen {
		input, output := c.SourceRect, sink.ScaledOutputRect
		switch {
		case c.FullScreen:
			input, output = s.fullScreenWindow(sink, c, sink.Screen(), input, output)
		case s.negativePosition:
			if c.OutputRect.IsValid() {
				output = c.OutputRect
			}
			input, output = clipToScreen(sink.MaxUpscaleSize, input, output)
		}
		err = s.applyGeometry(sink, c, input, output)
	}
	s.notify()
	return err
}

type DisplayWindowRequest struct {
	Sink          string         `json:"sink,omitempty"`
	Context       string         `json:"context,omitempty"`
	FullScreen    *bool          `json:"fullScreen"`
	DisplayOutput *geometry.Rect `json:"displayOutput,omitempty"`
	SourceInput   *geometry.Rect `json:"sourceInput,omitempty"`
	Opacity       *int           `json:"opacity,omitempty"`
}

// SetDisplayWindow places the client's video. Either fullScreen is set and
// the aspect-ratio settings derive the window, or displayOutput gives the
// placement literally.
func (s *Service) SetDisplayWindow(req DisplayWindowRequest) error {
	if req.FullScreen == nil {
		return fmt.Errorf("%w: fullScreen is required", ErrSchemaValidation)
	}
	if req.Opacity != nil && (*req.Opacity < 0 || *req.Opacity > 255) {
		return fmt.Errorf("%w: opacity must be in 0..255", ErrSchemaValidation)
	}
	fullScreen := *req.FullScreen

	var input, output geometry.Rect
	if req.DisplayOutput != nil {
		output = *req.DisplayOutput
	}
	if req.SourceInput != nil {
		input = *req.SourceInput
	}
	s.log.Debug("set display window",
		slog.String("sink", req.Sink),
		slog.String("context", req.Context),
		slog.Bool("full_screen", fullScreen),
		slog.String("output", output.String()),
		slog.String("input", input.String()))

	c, sink, err := s.boundClient(IdentityFor(req.Context, req.Sink))
	if err != nil {
		return err
	}
	if fullScreen {
		output = sink.Screen()
	}
	if err := checkWindow(sink, c, input, output, s.negativePosition); err != nil {
		return err
	}

	c.FullScreen = fullScreen
	if req.DisplayOutput != nil {
		c.OutputRect = output
	}
	if req.SourceInput != nil {
		c.InputRect = input
	} else {
		input = c.SourceRect
	}

	if s.negativePosition && !fullScreen {
		input, output = clipToScreen(sink.MaxUpscaleSize, input, output)
	}
	if fullScreen {
		input, output = s.fullScreenWindow(sink, c, output, input, output)
	}

	if err := s.applyGeometry(sink, c, input, output); err != nil {
		return err
	}
	if err := s.hal.SetBlanking(sink.PlaneID, false, sink.AppliedInputRect, sink.ScaledOutputRect); err != nil {
		s.log.Error("hal unblank failed", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		return halError("setBlanking", err)
	}
	sink.Muted = false
	c.Available = true
	if req.Opacity != nil {
		sink.Opacity = uint8(*req.Opacity)
	}

	s.log.Info("display window applied",
		slog.String("sink", sink.Name),
		slog.String("context", c.ID),
		slog.String("input", sink.AppliedInputRect.String()),
		slog.String("output", sink.ScaledOutputRect.String()))
	s.notify()
	return nil
}

// fullScreenWindow runs the aspect-ratio engine for c inside screen. While
// the source size is unknown the fallback pair is returned unchanged.
func (s *Service) fullScreenWindow(sink *Sink, c *Client, screen, input, output geometry.Rect) (geometry.Rect, geometry.Rect) {
	in, out, err := aspect.ComputeWindow(screen, c.SourceRect, s.paramsFor(c))
	if err != nil {
		s.log.Debug("aspect ratio pending", slog.String("sink", sink.Name), slog.String("error", err.Error()))
		return input, output
	}
	return in, out
}

func (s *Service) paramsFor(c *Client) aspect.Params {
	p := s.settings.For(s.foregroundApp)
	if c.VideoInfo.ForcesJustScan() {
		p.JustScan = true
	}
	return p
}

// boundClient resolves the client a request acts for and the connected
// sink it is bound to.
func (s *Service) boundClient(id Identity) (*Client, *Sink, error) {
	c := s.clients.FindByID(id.ClientID)
	if c == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidClient, id.ClientID)
	}
	if !c.Activation {
		return nil, nil, fmt.Errorf("%w: %s is not bound to a sink", ErrVideoNotConnected, c.ID)
	}
	sink := s.sinks.Find(c.SinkName)
	if sink == nil {
		return nil, nil, fmt.Errorf("%w: %q", ErrInvalidSink, c.SinkName)
	}
	if !sink.Connected {
		return nil, nil, fmt.Errorf("%w: %s", ErrVideoNotConnected, sink.Name)
	}
	return c, sink, nil
}

// SetCompositing assigns opacity and z-order to the listed sinks and
// commits the resulting layer stack. Nothing changes when validation or
// the driver commit fails.
func (s *Service) SetCompositing(order []Composition) error {
	if err := ValidateComposition(order, s.sinks); err != nil {
		return err
	}

	saved := s.sinks.snapshotComposition()
	for _, c := range order {
		sink := s.sinks.Find(c.Sink)
		sink.Opacity = uint8(c.Opacity)
		sink.ZOrder = uint8(c.ZOrder)
	}
	if err := s.hal.CommitComposition(layers(s.sinks)); err != nil {
		s.sinks.restoreComposition(saved)
		s.log.Error("hal composition failed", slog.String("error", err.Error()))
		return halError("commitComposition", err)
	}

	s.log.Info("compositing applied", slog.Int("entries", len(order)))
	s.notify()
	return nil
}

type VideoLimits struct {
	Sink             string        `json:"sink"`
	DisplaySize      geometry.Size `json:"displaySize"`
	MinDownscaleSize geometry.Size `json:"minDownscaleSize"`
	MaxUpscaleSize   geometry.Size `json:"maxUpscaleSize"`
}

// VideoLimits reports the scaling bounds of a connected sink.
func (s *Service) VideoLimits(sinkName string) (VideoLimits, error) {
	sink := s.sinks.Find(sinkName)
	if sink == nil {
		return VideoLimits{}, fmt.Errorf("%w: %q", ErrInvalidSink, sinkName)
	}
	if !sink.Connected {
		return VideoLimits{}, fmt.Errorf("%w: %s", ErrVideoNotConnected, sink.Name)
	}
	return VideoLimits{
		Sink:             sink.Name,
		DisplaySize:      sink.MaxUpscaleSize,
		MinDownscaleSize: sink.MinDownscaleSize,
		MaxUpscaleSize:   sink.MaxUpscaleSize,
	}, nil
}

type OutputCapabilities struct {
	NumPlanes int         `json:"numPlanes"`
	Planes    []hal.Plane `json:"planes"`
}

// OutputCapabilities lists the hardware planes.
func (s *Service) OutputCapabilities() OutputCapabilities {
	planes := s.hal.Planes()
	return OutputCapabilities{NumPlanes: len(planes), Planes: planes}
}

// AspectSettings returns the current aspect-ratio settings.
func (s *Service) AspectSettings() aspect.Settings {
	return s.settings.With("", s.settings.Default)
}

// SetAspectRatio changes the parameters used for appID, or the default
// ones when appID is empty, persists them and re-applies the full-screen
// window of the first sink.
func (s *Service) SetAspectRatio(appID string, p aspect.Params) error {
	if err := p.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	next := s.settings.With(appID, p)
	if s.store != nil {
		if err := s.store.Save(next); err != nil {
			return fmt.Errorf("persist aspect ratio settings: %w", err)
		}
	}
	s.settings = next
	s.log.Info("aspect ratio changed", slog.String("app", appID), slog.String("mode", p.Mode.String()))
	return s.reapplyAspectRatio()
}

// ApplySettings replaces every aspect-ratio setting, as after a reload of
// the settings file.
func (s *Service) ApplySettings(settings aspect.Settings) error {
	if err := settings.Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrOutOfRange, err)
	}
	s.settings = settings
	s.log.Info("aspect ratio settings reloaded", slog.Int("apps", len(settings.Apps)))
	return s.reapplyAspectRatio()
}

func (s *Service) reapplyAspectRatio() error {
	if s.sinks.Len() == 0 {
		return nil
	}
	sink := s.sinks.At(0)
	c := s.clients.FindBoundTo(sink.Name)
	if c == nil || !sink.Connected || !c.FullScreen {
		return nil
	}
	input, output := s.fullScreenWindow(sink, c, sink.Screen(), c.SourceRect, sink.ScaledOutputRect)
	if err := s.applyGeometry(sink, c, input, output); err != nil {
		return err
	}
	s.notify()
	return nil
}
