package decoder

import (
	"strings"

	"tirecheck/models"
)

var defectAliases = map[string]models.DefectType{
	"crack":            models.DefectSidewallCrack,
	"cracks":           models.DefectSidewallCrack,
	"sidewall_crack":   models.DefectSidewallCrack,
	"bulge":            models.DefectBulge,
	"bubble":           models.DefectBulge,
	"sidewall_bulge":   models.DefectBulge,
	"puncture":         models.DefectPuncture,
	"hole":             models.DefectPuncture,
	"cut":              models.DefectCut,
	"gash":             models.DefectCut,
	"tread_separation": models.DefectTreadSeparation,
	"separation":       models.DefectTreadSeparation,
	"belt_separation":  models.DefectTreadSeparation,
	"dry_rot":          models.DefectDryRot,
	"weather_cracking": models.DefectDryRot,
	"ozone_cracking":   models.DefectDryRot,
	"bead_damage":      models.DefectBeadDamage,
	"bead":             models.DefectBeadDamage,
	"foreign_object":   models.DefectForeignObject,
	"nail":             models.DefectForeignObject,
	"screw":            models.DefectForeignObject,
	"stone":            models.DefectForeignObject,
	"irregular_wear":   models.DefectIrregularWear,
	"uneven_wear":      models.DefectIrregularWear,
	"cupping":          models.DefectIrregularWear,
	"feathering":       models.DefectIrregularWear,
	"flat_spot":        models.DefectIrregularWear,
}

var severityAliases = map[string]models.DefectSeverity{
	"none":     models.SeverityNone,
	"low":      models.SeverityLow,
	"minor":    models.SeverityLow,
	"medium":   models.SeverityMedium,
	"moderate": models.SeverityMedium,
	"high":     models.SeverityHigh,
	"severe":   models.SeverityHigh,
	"critical": models.SeverityCritical,
}

// MapDefectType normalises a detector label; unknown labels become DefectOther.
func MapDefectType(label string) models.DefectType {
	if t, ok := defectAliases[normaliseLabel(label)]; ok {
		return t
	}
	return models.DefectOther
}

// MapSeverity normalises a detector severity; unknown values become SeverityLow.
func MapSeverity(raw string) models.DefectSeverity {
	if s, ok := severityAliases[normaliseLabel(raw)]; ok {
		return s
	}
	return models.SeverityLow
}

// DecodeDefects converts raw detections, dropping entries graded "none"
// and entries with no confidence at all.
func DecodeDefects(raw []Detection) []models.TireDefect {
	out := make([]models.TireDefect, 0, len(raw))
	for _, d := range raw {
		sev := MapSeverity(d.Severity)
		conf := clampUnit(d.Confidence)
		if sev == models.SeverityNone || conf == 0 {
			continue
		}
		defect := models.TireDefect{
			Type:        MapDefectType(d.Label),
			Severity:    sev,
			Confidence:  conf,
			Description: strings.TrimSpace(d.Description),
		}
		if d.Width > 0 && d.Height > 0 {
			defect.Region = &models.BoundingRegion{X: d.X, Y: d.Y, Width: d.Width, Height: d.Height}
		}
		out = append(out, defect)
	}
	return out
}

func normaliseLabel(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	return strings.NewReplacer(" ", "_", "-", "_").Replace(s)
}
