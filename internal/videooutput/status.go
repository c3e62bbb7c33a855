package videooutput

import "videooutputd/internal/geometry"

// Status is the multi-sink snapshot sent to subscribers.
type Status struct {
	Video []SinkStatus `json:"video"`
}

// SinkStatus describes one sink and the client bound to it.
type SinkStatus struct {
	Sink                string        `json:"sink"`
	Connected           bool          `json:"connected"`
	Context             string        `json:"context"`
	Muted               bool          `json:"muted"`
	Opacity             uint8         `json:"opacity"`
	ZOrder              uint8         `json:"zOrder"`
	DisplayOutput       geometry.Rect `json:"displayOutput"`
	SourceInput         geometry.Rect `json:"sourceInput"`
	ConnectedSource     *string       `json:"connectedSource"`
	ConnectedSourcePort uint8         `json:"connectedSourcePort"`
	FrameRate           float64       `json:"frameRate"`
	ContentType         string        `json:"contentType"`
	ScanType            string        `json:"scanType"`
	Width               uint16        `json:"width"`
	Height              uint16        `json:"height"`
	FullScreen          bool          `json:"fullScreen"`
	VideoInfo           *VideoInfo    `json:"videoInfo"`
}

// ConnectedSinks counts the connected sinks in st.
func (st Status) ConnectedSinks() int {
	n := 0
	for _, v := range st.Video {
		if v.Connected {
			n++
		}
	}
	return n
}

// Status builds the current snapshot.
func (s *Service) Status() Status {
	st := Status{Video: make([]SinkStatus, 0, s.sinks.Len())}
	for _, sink := range s.sinks.All() {
		v := SinkStatus{
			Sink:          sink.Name,
			Connected:     sink.Connected,
			Context:       sink.ConnectedClientID,
			Muted:         sink.Muted,
			Opacity:       sink.Opacity,
			ZOrder:        sink.ZOrder,
			DisplayOutput: sink.ScaledOutputRect,
			SourceInput:   sink.AppliedInputRect,
			ContentType:   Unknown,
			ScanType:      Unknown,
		}
		if c := s.clients.FindBoundTo(sink.Name); c != nil && sink.Connected {
			source := c.SourceName
			v.ConnectedSource = &source
			v.ConnectedSourcePort = c.SourcePort
			v.FrameRate = c.FrameRate
			v.ContentType = c.ContentType
			v.ScanType = c.ScanType.String()
			v.Width = c.SourceRect.W
			v.Height = c.SourceRect.H
			v.FullScreen = c.FullScreen
			if c.VideoInfo.Kind != InfoNone {
				info := c.VideoInfo
				v.VideoInfo = &info
			}
		}
		st.Video = append(st.Video, v)
	}
	return st
}
