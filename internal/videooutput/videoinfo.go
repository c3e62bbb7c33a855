package videooutput

import (
	"encoding/json"
	"fmt"

	"videooutputd/internal/hal"
)

// InfoKind selects the VideoInfo payload.
type InfoKind int

const (
	InfoNone InfoKind = iota
	InfoMedia
	InfoHDMI
)

// InfoKindFor derives the payload kind from the connected source.
func InfoKindFor(src hal.SourceType) InfoKind {
	switch src {
	case hal.SourceVDEC, hal.SourceJPEG:
		return InfoMedia
	case hal.SourceHDMI:
		return InfoHDMI
	}
	return InfoNone
}

type PixelAspectRatio struct {
	Width  uint16 `json:"width"`
	Height uint16 `json:"height"`
}

type VUI struct {
	TransferCharacteristics uint8 `json:"transferCharacteristics"`
	ColorPrimaries          uint8 `json:"colorPrimaries"`
	MatrixCoeffs            uint8 `json:"matrixCoeffs"`
	VideoFullRangeFlag      bool  `json:"videoFullRangerFlag"`
}

type SEI struct {
	DisplayPrimariesX0           uint16 `json:"displayPrimariesX0"`
	DisplayPrimariesX1           uint16 `json:"displayPrimariesX1"`
	DisplayPrimariesX2           uint16 `json:"displayPrimariesX2"`
	DisplayPrimariesY0           uint16 `json:"displayPrimariesY0"`
	DisplayPrimariesY1           uint16 `json:"displayPrimariesY1"`
	DisplayPrimariesY2           uint16 `json:"displayPrimariesY2"`
	WhitePointX                  uint16 `json:"whitePointX"`
	WhitePointY                  uint16 `json:"whitePointY"`
	MinDisplayMasteringLuminance uint32 `json:"minDisplayMasteringLuminance"`
	MaxDisplayMasteringLuminance uint32 `json:"maxDisplayMasteringLuminance"`
	MaxContentLightLevel         uint16 `json:"maxContentLightLevel"`
	MaxPicAverageLightLevel      uint16 `json:"maxPicAverageLightLevel"`
}

// MediaInfo is reported by decoder and still-image producers.
type MediaInfo struct {
	HDRType          string           `json:"hdrType"`
	AFD              int16            `json:"afd"`
	PixelAspectRatio PixelAspectRatio `json:"pixelAspectRatio"`
	Rotation         string           `json:"rotation"`
	Adaptive         bool             `json:"adaptive"`
	Path             string           `json:"path"`
	VUI              VUI              `json:"vui"`
	SEI              SEI              `json:"sei"`
}

// HDMIInfo is reported by external HDMI inputs.
type HDMIInfo struct {
	HDRType            string `json:"hdrType"`
	AFD                int16  `json:"afd"`
	EnableJustScan     bool   `json:"enableJustScan"`
	TimingMode         string `json:"timingMode"`
	HDMIMode           string `json:"HDMIMode"`
	PixelEncoding      string `json:"pixelEncoding"`
	Colormetry         string `json:"colormetry"`
	ExtendedColormetry string `json:"extendedColormetry"`
}

// VideoInfo holds at most one of the Media and HDMI payloads, selected by
// Kind. The zero value carries no metadata.
type VideoInfo struct {
	Kind  InfoKind
	Media MediaInfo
	HDMI  HDMIInfo
}

// ParseVideoInfo decodes raw into the payload matching src. An empty raw
// message yields the defaults of that payload.
func ParseVideoInfo(src hal.SourceType, raw json.RawMessage) (VideoInfo, error) {
	info := VideoInfo{Kind: InfoKindFor(src)}
	switch info.Kind {
	case InfoMedia:
		info.Media = MediaInfo{Rotation: "Deg0"}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &info.Media); err != nil {
				return VideoInfo{}, fmt.Errorf("%w: videoInfo: %v", ErrSchemaValidation, err)
			}
		}
	case InfoHDMI:
		info.HDMI = HDMIInfo{Colormetry: "none", ExtendedColormetry: "none"}
		if len(raw) > 0 {
			if err := json.Unmarshal(raw, &info.HDMI); err != nil {
				return VideoInfo{}, fmt.Errorf("%w: videoInfo: %v", ErrSchemaValidation, err)
			}
		}
	}
	return info, nil
}

// Adaptive reports whether the producer requested adaptive scaling.
func (v VideoInfo) Adaptive() bool {
	return v.Kind == InfoMedia && v.Media.Adaptive
}

// ForcesJustScan reports whether the source asked to skip overscan cropping.
func (v VideoInfo) ForcesJustScan() bool {
	return v.Kind == InfoHDMI && v.HDMI.EnableJustScan
}

func (v VideoInfo) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case InfoMedia:
		return json.Marshal(v.Media)
	case InfoHDMI:
		return json.Marshal(v.HDMI)
	}
	return []byte("{}"), nil
}
