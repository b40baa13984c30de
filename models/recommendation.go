package models

// ServiceType is the kind of shop work a recommendation asks for.
type ServiceType string

const (
	ServiceRotation           ServiceType = "rotation"
	ServiceBalancing          ServiceType = "balancing"
	ServiceAlignment          ServiceType = "alignment"
	ServiceRepair             ServiceType = "repair"
	ServiceReplacement        ServiceType = "replacement"
	ServicePressureAdjustment ServiceType = "pressure_adjustment"
	ServiceInspection         ServiceType = "inspection"
)

// RecommendationPriority orders recommendations.
type RecommendationPriority string

const (
	PriorityLow    RecommendationPriority = "low"
	PriorityMedium RecommendationPriority = "medium"
	PriorityHigh   RecommendationPriority = "high"
	PriorityUrgent RecommendationPriority = "urgent"
)

// Weight returns a numeric weight for sorting (higher = more urgent).
func (p RecommendationPriority) Weight() int {
	switch p {
	case PriorityUrgent:
		return 4
	case PriorityHigh:
		return 3
	case PriorityMedium:
		return 2
	case PriorityLow:
		return 1
	default:
		return 0
	}
}

// PriorityFromLevel converts a 1-4 level into a priority, clamping out of range values.
func PriorityFromLevel(level int) RecommendationPriority {
	switch {
	case level >= 4:
		return PriorityUrgent
	case level == 3:
		return PriorityHigh
	case level == 2:
		return PriorityMedium
	default:
		return PriorityLow
	}
}

type TireRecommendation struct {
	ServiceType    ServiceType            `json:"service_type"`
	Priority       RecommendationPriority `json:"priority"`
	Recommendation string                 `json:"recommendation"`
	Reason         string                 `json:"reason"`
	EstimatedCost  *CostRange             `json:"estimated_cost,omitempty"`
}

// ActionRequired is the ordinal urgency of an analysis.
type ActionRequired string

const (
	ActionNone               ActionRequired = "none"
	ActionMonitor            ActionRequired = "monitor"
	ActionScheduleService    ActionRequired = "schedule_service"
	ActionServiceImmediately ActionRequired = "service_immediately"
	ActionReplace            ActionRequired = "replace"
	ActionDoNotDrive         ActionRequired = "do_not_drive"
)

// Rank returns the ordinal position of the level, 0 for none.
func (a ActionRequired) Rank() int {
	switch a {
	case ActionDoNotDrive:
		return 5
	case ActionReplace:
		return 4
	case ActionServiceImmediately:
		return 3
	case ActionScheduleService:
		return 2
	case ActionMonitor:
		return 1
	case ActionNone:
		return 0
	default:
		return 0
	}
}

// AtLeast reports whether a is as urgent as other.
func (a ActionRequired) AtLeast(other ActionRequired) bool {
	return a.Rank() >= other.Rank()
}

// MaxAction returns the most urgent of the given levels.
func MaxAction(levels ...ActionRequired) ActionRequired {
	out := ActionNone
	for _, l := range levels {
		if l.Rank() > out.Rank() {
			out = l
		}
	}
	return out
}
