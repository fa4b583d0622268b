package workflow

import (
	"strings"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// ValidatePayload checks that a decision payload is complete for the given
// stage. Every missing field is collected so callers can surface all problems
// in one response. Rejections only need a comment; the stage-specific fields
// apply to approvals.
func ValidatePayload(step int, decision Decision, p Payload) error {
	if _, err := StageAt(step); err != nil {
		return err
	}

	var missing []string

	if strings.TrimSpace(p.Comment) == "" {
		missing = append(missing, "comment")
	}

	if decision == DecisionApproved {
		switch step {
		case 3:
			if p.Lead == nil || strings.TrimSpace(p.Lead.InitiativeLead) == "" {
				missing = append(missing, "initiativeLead")
			}
		case 4:
			if p.MOC == nil {
				missing = append(missing, "mocRequired")
			} else if p.MOC.Required && strings.TrimSpace(p.MOC.Number) == "" {
				missing = append(missing, "mocNumber")
			}
		case 5:
			if p.Capex == nil {
				missing = append(missing, "capexRequired")
			} else if p.Capex.Required && strings.TrimSpace(p.Capex.Details) == "" {
				missing = append(missing, "capexDetails")
			}
		}
	}

	if len(missing) > 0 {
		return errors.InvalidPayload(missing)
	}
	return nil
}
