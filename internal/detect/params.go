package detect

import (
	"strings"

	"shelf-vision/internal/config"
)

// Params holds detection filtering and crop parameters.
type Params struct {
	ConfidenceThreshold float64  // Drop candidates below this confidence
	IoUThreshold        float64  // Same-class overlap above this is a duplicate
	MaxDetections       int      // Cap per image, highest confidence first
	Classes             []string // Whitelist; other classes are silently dropped
	CropPadding         float64  // Fraction of box width/height added per side before cropping
	Enhance             bool     // Run the contrast enhancer before inference
}

// DefaultParams returns the parameters used for back-bar shelf photos.
func DefaultParams() Params {
	return ParamsFromConfig(config.Default().Detector)
}

// ParamsFromConfig converts the [detector] config section.
func ParamsFromConfig(c config.DetectorConfig) Params {
	return Params{
		ConfidenceThreshold: c.ConfidenceThreshold,
		IoUThreshold:        c.IoUThreshold,
		MaxDetections:       c.MaxDetections,
		Classes:             append([]string(nil), c.Classes...),
		CropPadding:         c.CropPadding,
		Enhance:             c.Enhance,
	}
}

func (p Params) allowed() map[string]bool {
	set := make(map[string]bool, len(p.Classes))
	for _, c := range p.Classes {
		set[strings.ToLower(strings.TrimSpace(c))] = true
	}
	return set
}
