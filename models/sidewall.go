package models

import "time"

// TireSizeInfo is a decoded sidewall size and service description.
type TireSizeInfo struct {
	Raw          string  `json:"raw"`
	Width        int     `json:"width"`
	AspectRatio  int     `json:"aspect_ratio"`
	Construction string  `json:"construction"`
	RimDiameter  float64 `json:"rim_diameter"`
	LoadIndex    int     `json:"load_index"`
	MaxLoadKg    int     `json:"max_load_kg"`
	SpeedRating  string  `json:"speed_rating"`
	MaxSpeedKmh  int     `json:"max_speed_kmh"`
	TableVersion string  `json:"table_version,omitempty"`
	Confidence   float64 `json:"confidence"`
}

// AgeStatus buckets tire age. Severity never decreases with age.
type AgeStatus string

const (
	AgeNew     AgeStatus = "new"
	AgeGood    AgeStatus = "good"
	AgeAging   AgeStatus = "aging"
	AgeOld     AgeStatus = "old"
	AgeExpired AgeStatus = "expired"
	AgeUnknown AgeStatus = "unknown"
)

// AgeStatusForMonths buckets an age in months.
func AgeStatusForMonths(months int) AgeStatus {
	switch {
	case months < 36:
		return AgeNew
	case months < 60:
		return AgeGood
	case months < 72:
		return AgeAging
	case months < 120:
		return AgeOld
	default:
		return AgeExpired
	}
}

// Severity orders age buckets; unknown ages carry no weight.
func (a AgeStatus) Severity() int {
	switch a {
	case AgeAging:
		return 1
	case AgeOld:
		return 2
	case AgeExpired:
		return 3
	case AgeNew, AgeGood, AgeUnknown:
		return 0
	default:
		return 0
	}
}

// DotCodeInfo is a decoded manufacture week/year.
type DotCodeInfo struct {
	Raw            string     `json:"raw"`
	Week           int        `json:"week"`
	Year           int        `json:"year"`
	ManufacturedAt *time.Time `json:"manufactured_at,omitempty"`
	AgeInMonths    int        `json:"age_in_months"`
	AgeStatus      AgeStatus  `json:"age_status"`
	Confidence     float64    `json:"confidence"`
}

// Known reports whether the code decoded to a real manufacture date.
func (d DotCodeInfo) Known() bool {
	return d.AgeStatus != AgeUnknown && d.AgeStatus != "" && d.Confidence > 0
}
