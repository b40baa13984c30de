package decoder

import (
	"regexp"
	"strconv"
	"strings"

	"tirecheck/models"
)

// SizeTableVersion identifies the load index and speed rating tables below.
const SizeTableVersion = "etrto-2024.1"

// sizePattern matches e.g. "225/45R17 94V", "P215/65R15 95H", "LT265/70R17 121/118S", "245/40ZR18 (97Y)".
var sizePattern = regexp.MustCompile(`(P|LT|ST|T)?\s*(\d{3})\s*/\s*(\d{2,3})\s*(ZR|R|D|B)\s*(\d{2}(?:\.\d)?)(?:\s*\(?\s*(\d{2,3})(?:/\d{2,3})?\s*([A-Z])\s*\)?)?`)

// loadIndexFirst is the first index in loadCapacityKg.
const loadIndexFirst = 60

// loadCapacityKg holds max load per tire for indices 60..130.
var loadCapacityKg = []int{
	250, 257, 265, 272, 280, 290, 300, 307, 315, 325, // 60-69
	335, 345, 355, 365, 375, 387, 400, 412, 425, 437, // 70-79
	450, 462, 475, 487, 500, 515, 530, 545, 560, 580, // 80-89
	600, 615, 630, 650, 670, 690, 710, 730, 750, 775, // 90-99
	800, 825, 850, 875, 900, 925, 950, 975, 1000, 1030, // 100-109
	1060, 1090, 1120, 1150, 1180, 1215, 1250, 1285, 1320, 1360, // 110-119
	1400, 1450, 1500, 1550, 1600, 1650, 1700, 1750, 1800, 1850, // 120-129
	1900, // 130
}

var speedRatingKmh = map[string]int{
	"L": 120,
	"M": 130,
	"N": 140,
	"P": 150,
	"Q": 160,
	"R": 170,
	"S": 180,
	"T": 190,
	"U": 200,
	"H": 210,
	"V": 240,
	"W": 270,
	"Y": 300,
	"Z": 300,
}

// LoadCapacityKg returns the max load for a load index, 0 when the index is not in the table.
func LoadCapacityKg(index int) int {
	i := index - loadIndexFirst
	if i < 0 || i >= len(loadCapacityKg) {
		return 0
	}
	return loadCapacityKg[i]
}

// MaxSpeedKmh returns the max speed for a speed rating letter, 0 when unknown.
func MaxSpeedKmh(letter string) int {
	return speedRatingKmh[strings.ToUpper(strings.TrimSpace(letter))]
}

// EmptySize is the sentinel for an unreadable size marking.
func EmptySize(raw string) models.TireSizeInfo {
	return models.TireSizeInfo{Raw: raw, TableVersion: SizeTableVersion}
}

// DecodeSize parses a sidewall size/service description string.
// A string with only the size part decodes with reduced confidence.
func DecodeSize(r TextReading) models.TireSizeInfo {
	raw := strings.TrimSpace(r.Text)
	m := sizePattern.FindStringSubmatch(strings.ToUpper(raw))
	if m == nil {
		return EmptySize(raw)
	}

	width, _ := strconv.Atoi(m[2])
	aspect, _ := strconv.Atoi(m[3])
	rim, err := strconv.ParseFloat(m[5], 64)
	if err != nil || width == 0 || aspect == 0 || rim == 0 {
		return EmptySize(raw)
	}

	info := models.TireSizeInfo{
		Raw:          raw,
		Width:        width,
		AspectRatio:  aspect,
		Construction: m[4],
		RimDiameter:  rim,
		TableVersion: SizeTableVersion,
		Confidence:   clampUnit(r.Confidence) * 0.8,
	}

	if m[6] != "" {
		idx, _ := strconv.Atoi(m[6])
		if load := LoadCapacityKg(idx); load > 0 {
			info.LoadIndex = idx
			info.MaxLoadKg = load
		}
	}
	if speed := MaxSpeedKmh(m[7]); speed > 0 {
		info.SpeedRating = m[7]
		info.MaxSpeedKmh = speed
	}
	if info.MaxLoadKg > 0 && info.MaxSpeedKmh > 0 {
		info.Confidence = clampUnit(r.Confidence)
	}
	return info
}
