package trigger

type Type string

const (
	TypeLowConfidence     Type = "low_confidence"
	TypeUserFrustration   Type = "user_frustration"
	TypeComplexTopic      Type = "complex_topic"
	TypeExplicitRequest   Type = "explicit_request"
	TypeRepeatedQuestions Type = "repeated_questions"
)

type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// Weight maps severity onto the ordering used for primary-trigger selection
// and priority computation.
func (s Severity) Weight() int {
	switch s {
	case SeverityCritical:
		return 4
	case SeverityHigh:
		return 3
	case SeverityMedium:
		return 2
	default:
		return 1
	}
}

// Trigger is a transient signal that a conversation may need a human. It is
// never stored on its own, only attached to an intervention request.
type Trigger struct {
	Type     Type     `json:"type"`
	Severity Severity `json:"severity"`
	Reason   string   `json:"reason"`
}

// Primary selects the trigger that drives routing: highest severity weight
// wins, and on equal weight the earliest-detected trigger wins. Evaluate
// returns triggers in rule order, so the choice is deterministic.
func Primary(triggers []Trigger) (Trigger, bool) {
	if len(triggers) == 0 {
		return Trigger{}, false
	}
	best := triggers[0]
	for _, t := range triggers[1:] {
		if t.Severity.Weight() > best.Severity.Weight() {
			best = t
		}
	}
	return best, true
}
