package aggregate

import (
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/ppiankov/verity/internal/calc"
	"github.com/ppiankov/verity/internal/model"
)

const (
	// MaxContradictions caps the listed confirm/contradict pairs
	MaxContradictions = 5
	// UnspecifiedSource stands in for a tool that reported no source
	UnspecifiedSource = "non spécifiée"

	defaultConfidence = 0.3
)

// Aggregator reduces tool outcomes to a single verification result.
// It never fails: insufficient evidence yields unverified.
type Aggregator struct {
	now func() time.Time
}

// New creates an aggregator
func New() *Aggregator {
	return &Aggregator{now: time.Now}
}

// tally partitions outcomes by the validity each tool reported
type tally struct {
	verified, contradicted, partial, absence, uncertain []model.ToolOutcome
}

func partition(outcomes []model.ToolOutcome) tally {
	var t tally
	for _, o := range outcomes {
		switch o.Result.Validity() {
		case model.ValidityTrue:
			t.verified = append(t.verified, o)
		case model.ValidityFalse:
			t.contradicted = append(t.contradicted, o)
		case model.ValidityPartial:
			t.partial = append(t.partial, o)
		case model.ValidityAbsence:
			t.absence = append(t.absence, o)
		default:
			t.uncertain = append(t.uncertain, o)
		}
	}
	return t
}

// Aggregate combines outcomes (in tool-selection order) and optional
// calculation results. prior, when set, caps the confidence of an empty
// outcome list.
func (a *Aggregator) Aggregate(outcomes []model.ToolOutcome, calcs []model.CalculationResult, prior *float64) model.VerificationResult {
	result := model.VerificationResult{
		Sources:              []string{},
		VerificationSteps:    []string{},
		VerifiedCalculations: calcs,
		Timestamp:            a.now(),
	}

	if len(outcomes) == 0 {
		confidence := defaultConfidence
		if prior != nil {
			confidence = math.Min(defaultConfidence, *prior)
		}
		result.Status = model.StatusUnverified
		result.Confidence = round(confidence)
		result.VerificationSteps = append(result.VerificationSteps, "Aucun outil de vérification n'a fourni de résultat exploitable")
		result.Notes = "Aucun résultat d'outil disponible." + calculationNote(calcs)
		return result
	}

	t := partition(outcomes)
	status, confidence, formula := decide(t)
	result.Status = status
	result.Confidence = round(confidence)

	for _, o := range outcomes {
		result.Sources = append(result.Sources, sourceLine(o))
		result.VerificationSteps = append(result.VerificationSteps, stepLine(o))
	}
	result.VerificationSteps = append(result.VerificationSteps,
		fmt.Sprintf("Statut retenu: %s (confiance %.2f = %s)", status, result.Confidence, formula))

	contradictions, total := contradictionPairs(t.verified, t.contradicted)
	if len(contradictions) > 0 {
		result.Contradictions = contradictions
	}

	notes := fmt.Sprintf("Vérification effectuée avec %d outil(s): %d confirmé(s), %d contredit(s), %d partiel(s), %d absence(s) d'information, %d incertain(s).",
		len(outcomes), len(t.verified), len(t.contradicted), len(t.partial), len(t.absence), len(t.uncertain))
	if total > MaxContradictions {
		notes += fmt.Sprintf(" %d contradictions détectées, %d affichées.", total, MaxContradictions)
	}
	result.Notes = notes + calculationNote(calcs)

	return result
}

// decide applies the fixed-priority status rules; the first match wins
func decide(t tally) (model.Status, float64, string) {
	switch {
	case len(t.verified) > 0 && len(t.contradicted) == 0:
		n := float64(len(t.verified))
		return model.StatusVerified,
			math.Min(meanConfidence(t.verified)+n*0.05, 0.95),
			"min(moyenne des confiances confirmées + n*0.05, 0.95)"
	case len(t.partial) > 0:
		return model.StatusPartiallyVerified,
			math.Min(meanConfidence(t.partial), 0.75),
			"min(moyenne des confiances partielles, 0.75)"
	case len(t.verified) > 0 && len(t.contradicted) > 0:
		return model.StatusContradictory, 0.4, "valeur fixe 0.4"
	case len(t.absence) > 0:
		n := float64(len(t.absence))
		return model.StatusAbsenceOfInformation,
			math.Min(0.6+n*0.05, 0.8),
			"min(0.6 + n*0.05, 0.8)"
	case len(t.uncertain) > 0:
		return model.StatusUncertain, defaultConfidence, "valeur fixe 0.3"
	default:
		return model.StatusUnverified, defaultConfidence, "valeur fixe 0.3"
	}
}

// FromCalculations derives a result from inline arithmetic checks alone
func (a *Aggregator) FromCalculations(calcs []model.CalculationResult) model.VerificationResult {
	correct, incorrect, pending := calc.Tally(calcs)

	result := model.VerificationResult{
		Sources:              []string{},
		VerificationSteps:    []string{fmt.Sprintf("Détection de calculs: %d trouvé(s)", correct+incorrect+pending)},
		VerifiedCalculations: calcs,
		Timestamp:            a.now(),
	}

	switch {
	case pending > 0:
		result.Status = model.StatusInProgress
		result.Confidence = 0.5
	case correct > 0 && incorrect == 0:
		result.Status = model.StatusVerified
		result.Confidence = round(math.Min(0.7+float64(correct)*0.05, 0.95))
		result.Sources = append(result.Sources, "calculator: évaluation arithmétique")
	case correct > 0 && incorrect > 0:
		result.Status = model.StatusContradictory
		result.Confidence = 0.4
		result.Sources = append(result.Sources, "calculator: évaluation arithmétique")
	default:
		result.Status = model.StatusUnverified
		result.Confidence = defaultConfidence
	}

	result.Notes = "Vérification préliminaire des calculs." + calculationNote(calcs)
	return result
}

func meanConfidence(outcomes []model.ToolOutcome) float64 {
	if len(outcomes) == 0 {
		return 0
	}
	sum := 0.0
	for _, o := range outcomes {
		sum += o.Confidence
	}
	return sum / float64(len(outcomes))
}

func contradictionPairs(positive, negative []model.ToolOutcome) ([]string, int) {
	total := len(positive) * len(negative)
	var pairs []string
	for _, p := range positive {
		for _, n := range negative {
			if len(pairs) == MaxContradictions {
				return pairs, total
			}
			pairs = append(pairs, fmt.Sprintf("%s confirme l'affirmation, %s la contredit", p.ToolName, n.ToolName))
		}
	}
	return pairs, total
}

func sourceLine(o model.ToolOutcome) string {
	src := UnspecifiedSource
	if len(o.Result.Sources) > 0 {
		src = strings.Join(o.Result.Sources, ", ")
	}
	return o.ToolName + ": " + src
}

func stepLine(o model.ToolOutcome) string {
	line := fmt.Sprintf("%s: %s (confiance %.2f)", o.ToolName, validityLabel(o.Result.Validity()), o.Confidence)
	if o.Stage != "" {
		line += " [" + o.Stage + "]"
	}
	if o.Result.Details != "" {
		line += " - " + o.Result.Details
	}
	return line
}

func validityLabel(v model.Validity) string {
	switch v {
	case model.ValidityTrue:
		return "confirmé"
	case model.ValidityFalse:
		return "contredit"
	case model.ValidityPartial:
		return "partiellement confirmé"
	case model.ValidityAbsence:
		return "absence d'information"
	default:
		return "incertain"
	}
}

func calculationNote(calcs []model.CalculationResult) string {
	correct, incorrect, pending := calc.Tally(calcs)
	if correct+incorrect+pending == 0 {
		return ""
	}
	note := fmt.Sprintf(" Calculs: %d correct(s), %d incorrect(s)", correct, incorrect)
	if pending > 0 {
		note += fmt.Sprintf(", %d en attente", pending)
	}
	return note + "."
}

func round(v float64) float64 {
	return math.Round(v*1e4) / 1e4
}
