// Package workflow implements the five-stage approval engine for
// operational-excellence initiatives: the stage registry, the role/site
// authorization rule, per-stage payload validation, and the pure transition
// function the service layer commits through the storage layer.
package workflow

import (
	"fmt"

	"github.com/opexhub/be-opex-initiatives/internal/errors"
)

// Role codes recognized by the stage registry. Every role except CTSD is
// scoped to a single site.
const (
	RoleSiteTSDLead    = "STLD"
	RoleSiteHead       = "SH"
	RoleEnggHead       = "EH"
	RoleInitiativeLead = "IL"
	RoleCorpTSD        = "CTSD"
)

// StageDefinition is one entry of the fixed approval chain.
type StageDefinition struct {
	Step           int    `json:"step_number"`
	Activity       string `json:"activity"`
	Responsibility string `json:"responsibility"`
	RoleCode       string `json:"role_code"`
	Annexure       string `json:"annexure,omitempty"`
	RequiresMOC    bool   `json:"requires_moc"`
	RequiresCapex  bool   `json:"requires_capex"`
}

// stages is the complete ordered registry. The chain is fixed: changing it
// would invalidate the stage numbers recorded in existing transaction logs.
var stages = []StageDefinition{
	{Step: 1, Activity: "Register initiative", Responsibility: "Site TSD Lead", RoleCode: RoleSiteTSDLead},
	{Step: 2, Activity: "Approval", Responsibility: "Site Head", RoleCode: RoleSiteHead},
	{Step: 3, Activity: "Define Responsibilities", Responsibility: "Engg Head", RoleCode: RoleEnggHead, Annexure: "Annexure 2"},
	{Step: 4, Activity: "MOC Assessment & Process", Responsibility: "Initiative Lead", RoleCode: RoleInitiativeLead, RequiresMOC: true},
	{Step: 5, Activity: "CAPEX Assessment & Process", Responsibility: "Initiative Lead", RoleCode: RoleInitiativeLead, RequiresCapex: true},
}

// FirstStage is where every new initiative starts.
const FirstStage = 1

// TotalStages returns the number of stages in the chain.
func TotalStages() int { return len(stages) }

// StageAt returns the definition for a step number.
func StageAt(step int) (StageDefinition, error) {
	if step < 1 || step > len(stages) {
		return StageDefinition{}, errors.New(errors.ErrCodeInvalidStage,
			fmt.Sprintf("stage %d is outside the defined range 1..%d", step, len(stages)))
	}
	return stages[step-1], nil
}

// NextStage returns the stage after step, or ok=false when step is terminal.
func NextStage(step int) (StageDefinition, bool, error) {
	if _, err := StageAt(step); err != nil {
		return StageDefinition{}, false, err
	}
	if step >= len(stages) {
		return StageDefinition{}, false, nil
	}
	return stages[step], true, nil
}

// AllStages returns a copy of the full registry, ordered by step number.
func AllStages() []StageDefinition {
	out := make([]StageDefinition, len(stages))
	copy(out, stages)
	return out
}

// StepsForRole returns the step numbers whose required role matches roleCode.
func StepsForRole(roleCode string) []int {
	var steps []int
	for _, st := range stages {
		if st.RoleCode == roleCode {
			steps = append(steps, st.Step)
		}
	}
	return steps
}
