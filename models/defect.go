package models

// DefectType identifies the kind of anomaly found on the tire.
type DefectType string

const (
	DefectSidewallCrack   DefectType = "sidewall_crack"
	DefectBulge           DefectType = "bulge"
	DefectPuncture        DefectType = "puncture"
	DefectCut             DefectType = "cut"
	DefectTreadSeparation DefectType = "tread_separation"
	DefectDryRot          DefectType = "dry_rot"
	DefectBeadDamage      DefectType = "bead_damage"
	DefectForeignObject   DefectType = "foreign_object"
	DefectIrregularWear   DefectType = "irregular_wear"
	DefectOther           DefectType = "other"
)

// Label returns a display name for the defect type.
func (t DefectType) Label() string {
	switch t {
	case DefectSidewallCrack:
		return "Sidewall crack"
	case DefectBulge:
		return "Sidewall bulge"
	case DefectPuncture:
		return "Puncture"
	case DefectCut:
		return "Cut"
	case DefectTreadSeparation:
		return "Tread separation"
	case DefectDryRot:
		return "Dry rot"
	case DefectBeadDamage:
		return "Bead damage"
	case DefectForeignObject:
		return "Foreign object"
	case DefectIrregularWear:
		return "Irregular wear"
	case DefectOther:
		return "Surface anomaly"
	default:
		return "Surface anomaly"
	}
}

// DefectSeverity grades a defect.
type DefectSeverity string

const (
	SeverityNone     DefectSeverity = "none"
	SeverityLow      DefectSeverity = "low"
	SeverityMedium   DefectSeverity = "medium"
	SeverityHigh     DefectSeverity = "high"
	SeverityCritical DefectSeverity = "critical"
)

// Priority returns the numeric priority 0-4 (higher = more severe).
func (s DefectSeverity) Priority() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	case SeverityLow:
		return 1
	case SeverityNone:
		return 0
	default:
		return 0
	}
}

// BoundingRegion is the detection box in image pixels.
type BoundingRegion struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Center returns the center of the region.
func (b BoundingRegion) Center() (x, y float64) {
	return b.X + b.Width/2, b.Y + b.Height/2
}

// Area returns the region area in square pixels.
func (b BoundingRegion) Area() float64 {
	return b.Width * b.Height
}

type TireDefect struct {
	Type        DefectType      `json:"type"`
	Severity    DefectSeverity  `json:"severity"`
	Confidence  float64         `json:"confidence"`
	Region      *BoundingRegion `json:"region,omitempty"`
	Description string          `json:"description"`
}

// Summary returns the description, falling back to the type label.
func (d TireDefect) Summary() string {
	if d.Description != "" {
		return d.Description
	}
	return d.Type.Label() + " (" + string(d.Severity) + ")"
}
