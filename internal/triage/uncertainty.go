package triage

import (
	"fmt"
	"sort"
	"strings"

	"sentrybot/internal/domain"
)

const (
	lowConfidenceFloor     = 60
	conflictSpreadCeiling  = 40
	verdictConfidenceFloor = 50
)

// ExplainUncertainty derives explicit caveats from a signal set and its
// fused assessment. Notes are emitted in a fixed order: low-confidence
// sources, conflicting scores, sparse data, low overall confidence. When
// nothing applies the list is empty; there is no "all clear" filler.
func ExplainUncertainty(signals []domain.Signal, assessment domain.RiskAssessment) []string {
	var notes []string

	var lowConf []string
	for _, sig := range signals {
		if sig.Confidence < lowConfidenceFloor {
			lowConf = append(lowConf, sig.Source)
		}
	}
	if len(lowConf) > 0 {
		sort.Strings(lowConf)
		notes = append(notes, fmt.Sprintf("Low confidence data from %s", strings.Join(lowConf, ", ")))
	}

	if len(signals) >= 2 && scoreSpread(signals) > conflictSpreadCeiling {
		notes = append(notes, "Conflicting assessments across sources")
	}

	if len(signals) < 2 {
		notes = append(notes, "Limited data sources available for analysis")
	}

	if assessment.Confidence < verdictConfidenceFloor {
		notes = append(notes, "Overall confidence is below threshold for definitive verdict")
	}

	return notes
}
