// Package recommend turns a scored assessment into a prioritised, costed
// service plan and an urgency level.
package recommend

import (
	"sort"

	"tirecheck/models"
	"tirecheck/scoring"
)

// Currency of every cost in the service table.
const Currency = "USD"

// serviceCosts is the per-tire price band of each service; services without
// an entry carry no cost.
var serviceCosts = map[models.ServiceType]models.CostRange{
	models.ServiceRotation:    {Min: 20, Max: 50, Currency: Currency},
	models.ServiceBalancing:   {Min: 40, Max: 75, Currency: Currency},
	models.ServiceAlignment:   {Min: 80, Max: 150, Currency: Currency},
	models.ServiceRepair:      {Min: 20, Max: 45, Currency: Currency},
	models.ServiceReplacement: {Min: 120, Max: 300, Currency: Currency},
	models.ServiceInspection:  {Min: 25, Max: 60, Currency: Currency},
}

// Plan is the generator output.
type Plan struct {
	Recommendations []models.TireRecommendation
	ActionRequired  models.ActionRequired
	EstimatedCost   *models.CostRange
}

// CostFor returns the cost band of a service, nil when the service is free.
func CostFor(s models.ServiceType) *models.CostRange {
	c, ok := serviceCosts[s]
	if !ok {
		return nil
	}
	return &c
}

// Generate builds the plan for r.
func Generate(r scoring.Result) Plan {
	recs := dedupe(collect(r))
	sortRecommendations(recs)
	return Plan{
		Recommendations: recs,
		ActionRequired:  Action(r),
		EstimatedCost:   totalCost(recs),
	}
}

// Action is the most urgent level among the overall status, the defects,
// tread legality and tire age.
func Action(r scoring.Result) models.ActionRequired {
	levels := []models.ActionRequired{statusAction(r.Status)}
	for _, d := range r.Defects {
		switch d.Severity {
		case models.SeverityCritical:
			levels = append(levels, models.ActionDoNotDrive)
		case models.SeverityHigh:
			levels = append(levels, models.ActionServiceImmediately)
		case models.SeverityNone, models.SeverityLow, models.SeverityMedium:
		}
	}
	if r.TreadCondition == scoring.TreadCritical {
		levels = append(levels, models.ActionReplace)
	}
	if r.DOT.AgeStatus == models.AgeExpired {
		levels = append(levels, models.ActionReplace)
	}
	return models.MaxAction(levels...)
}

func statusAction(s models.HealthStatus) models.ActionRequired {
	switch s {
	case models.StatusExcellent:
		return models.ActionNone
	case models.StatusGood:
		return models.ActionMonitor
	case models.StatusFair:
		return models.ActionScheduleService
	case models.StatusPoor:
		return models.ActionServiceImmediately
	case models.StatusCritical:
		return models.ActionReplace
	default:
		return models.ActionNone
	}
}

// collect walks the concerns in scorer order and maps each cause through the
// fixed tables.
func collect(r scoring.Result) []models.TireRecommendation {
	var out []models.TireRecommendation
	add := func(s models.ServiceType, p models.RecommendationPriority, text, reason string) {
		out = append(out, models.TireRecommendation{
			ServiceType:    s,
			Priority:       p,
			Recommendation: text,
			Reason:         reason,
			EstimatedCost:  CostFor(s),
		})
	}

	for _, c := range r.Concerns {
		switch c.Source {
		case scoring.SourceTread:
			if c.WearPattern != "" {
				s, p, text := forWearPattern(c.WearPattern)
				if s != "" {
					add(s, p, text, c.Text)
				}
				continue
			}
			s, p, text := forTreadCondition(r.TreadCondition)
			if s != "" {
				add(s, p, text, c.Text)
			}
		case scoring.SourceDefect:
			if c.Defect == nil {
				continue
			}
			s, text := forDefect(*c.Defect)
			add(s, models.PriorityFromLevel(c.Defect.Severity.Priority()), text, c.Text)
		case scoring.SourceAge:
			s, p, text := forAge(c.AgeStatus)
			if s != "" {
				add(s, p, text, c.Text)
			}
		}
	}
	return out
}

func forTreadCondition(tc scoring.TreadCondition) (models.ServiceType, models.RecommendationPriority, string) {
	switch tc {
	case scoring.TreadCritical:
		return models.ServiceReplacement, models.PriorityUrgent, "Replace the tire: tread is below the legal minimum"
	case scoring.TreadPoor:
		return models.ServiceReplacement, models.PriorityHigh, "Plan tire replacement within the next few weeks"
	case scoring.TreadFair:
		return models.ServiceRotation, models.PriorityMedium, "Rotate tires to even out wear and recheck tread depth in 3 months"
	case scoring.TreadUnreliable:
		return models.ServiceInspection, models.PriorityLow, "Retake the tread photo or have the tread depth gauged by hand"
	case scoring.TreadGood, scoring.TreadExcellent:
		return "", "", ""
	default:
		return "", "", ""
	}
}

func forWearPattern(w models.WearPattern) (models.ServiceType, models.RecommendationPriority, string) {
	switch w {
	case models.WearCenter:
		return models.ServicePressureAdjustment, models.PriorityMedium, "Lower inflation pressure to the vehicle placard value"
	case models.WearEdges:
		return models.ServicePressureAdjustment, models.PriorityHigh, "Raise inflation pressure to the vehicle placard value"
	case models.WearInnerEdge, models.WearOuterEdge:
		return models.ServiceAlignment, models.PriorityHigh, "Have the wheel alignment checked and corrected"
	case models.WearEven, models.WearUnknown:
		return "", "", ""
	default:
		return "", "", ""
	}
}

func forDefect(d models.TireDefect) (models.ServiceType, string) {
	severe := d.Severity.Priority() >= models.SeverityHigh.Priority()
	switch d.Type {
	case models.DefectBulge:
		return models.ServiceReplacement, "Replace the tire: a bulge means internal cord damage"
	case models.DefectTreadSeparation:
		return models.ServiceReplacement, "Replace the tire: tread separation can cause a blowout"
	case models.DefectSidewallCrack:
		if severe {
			return models.ServiceReplacement, "Replace the tire: sidewall cracks cannot be repaired"
		}
		return models.ServiceInspection, "Have the sidewall cracking inspected by a tire technician"
	case models.DefectPuncture:
		if severe {
			return models.ServiceReplacement, "Replace the tire: the puncture is outside the repairable area"
		}
		return models.ServiceRepair, "Have the puncture plugged and patched from the inside"
	case models.DefectCut:
		if severe {
			return models.ServiceReplacement, "Replace the tire: the cut exposes the carcass"
		}
		return models.ServiceInspection, "Have the cut inspected for depth"
	case models.DefectDryRot:
		if severe {
			return models.ServiceReplacement, "Replace the tire: the rubber is degraded"
		}
		return models.ServiceInspection, "Have the weather cracking inspected"
	case models.DefectBeadDamage:
		if d.Severity.Priority() >= models.SeverityMedium.Priority() {
			return models.ServiceReplacement, "Replace the tire: a damaged bead cannot seal reliably"
		}
		return models.ServiceInspection, "Have the bead area inspected"
	case models.DefectForeignObject:
		if d.Severity == models.SeverityCritical {
			return models.ServiceReplacement, "Replace the tire: the embedded object caused structural damage"
		}
		return models.ServiceRepair, "Remove the embedded object and repair the tread"
	case models.DefectIrregularWear:
		return models.ServiceBalancing, "Balance the wheels to stop irregular wear"
	case models.DefectOther:
		return models.ServiceInspection, "Have the detected anomaly inspected"
	default:
		return models.ServiceInspection, "Have the detected anomaly inspected"
	}
}

func forAge(a models.AgeStatus) (models.ServiceType, models.RecommendationPriority, string) {
	switch a {
	case models.AgeExpired:
		return models.ServiceReplacement, models.PriorityUrgent, "Replace the tire: it is older than 10 years"
	case models.AgeOld:
		return models.ServiceInspection, models.PriorityMedium, "Have the tire inspected for age related cracking every year"
	case models.AgeAging:
		return models.ServiceInspection, models.PriorityLow, "Start yearly inspections now that the tire is over 5 years old"
	case models.AgeNew, models.AgeGood, models.AgeUnknown:
		return "", "", ""
	default:
		return "", "", ""
	}
}

// dedupe keeps one recommendation per service type: the highest priority
// one, the earliest on ties.
func dedupe(recs []models.TireRecommendation) []models.TireRecommendation {
	index := make(map[models.ServiceType]int, len(recs))
	out := make([]models.TireRecommendation, 0, len(recs))
	for _, r := range recs {
		i, seen := index[r.ServiceType]
		if !seen {
			index[r.ServiceType] = len(out)
			out = append(out, r)
			continue
		}
		if r.Priority.Weight() > out[i].Priority.Weight() {
			out[i] = r
		}
	}
	return out
}

// sortRecommendations orders by priority, then cost (highest first, costless last).
func sortRecommendations(recs []models.TireRecommendation) {
	sort.SliceStable(recs, func(i, j int) bool {
		a, b := recs[i], recs[j]
		if a.Priority.Weight() != b.Priority.Weight() {
			return a.Priority.Weight() > b.Priority.Weight()
		}
		switch {
		case a.EstimatedCost == nil && b.EstimatedCost == nil:
			return false
		case a.EstimatedCost == nil:
			return false
		case b.EstimatedCost == nil:
			return true
		}
		if a.EstimatedCost.Max != b.EstimatedCost.Max {
			return a.EstimatedCost.Max > b.EstimatedCost.Max
		}
		return a.EstimatedCost.Min > b.EstimatedCost.Min
	})
}

func totalCost(recs []models.TireRecommendation) *models.CostRange {
	var total *models.CostRange
	for _, r := range recs {
		if r.EstimatedCost == nil {
			continue
		}
		if total == nil {
			total = &models.CostRange{Currency: Currency}
		}
		total.Min += r.EstimatedCost.Min
		total.Max += r.EstimatedCost.Max
	}
	return total
}
