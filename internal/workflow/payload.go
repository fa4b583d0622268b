package workflow

// Decision is the outcome recorded for a stage.
type Decision string

const (
	DecisionApproved Decision = "APPROVED"
	DecisionRejected Decision = "REJECTED"
)

// LeadAssignment is the stage-3 payload variant: the Engg Head names the
// initiative lead.
type LeadAssignment struct {
	InitiativeLead string `json:"initiative_lead"`
}

// MOCAssessment is the stage-4 payload variant. Number is required only when
// Required is true.
type MOCAssessment struct {
	Required bool   `json:"required"`
	Number   string `json:"number,omitempty"`
}

// CapexAssessment is the stage-5 payload variant. Details are required only
// when Required is true.
type CapexAssessment struct {
	Required bool   `json:"required"`
	Details  string `json:"details,omitempty"`
}

// Payload carries the comment plus the stage-specific variant for a decision.
// Exactly one variant is consulted per stage; the validator rejects approve
// calls whose variant for the current stage is absent or incomplete.
type Payload struct {
	Comment string           `json:"comment"`
	Lead    *LeadAssignment  `json:"lead,omitempty"`
	MOC     *MOCAssessment   `json:"moc,omitempty"`
	Capex   *CapexAssessment `json:"capex,omitempty"`
}

// StageOutputs is what a successful approval merges into the initiative's
// accumulated stage data.
type StageOutputs struct {
	InitiativeLead *string
	MOCRequired    *bool
	MOCNumber      *string
	CapexRequired  *bool
	CapexDetails   *string
}

// outputsFor extracts the fields a given stage captures from the payload.
// Called only after validation has passed.
func outputsFor(step int, p Payload) StageOutputs {
	var out StageOutputs
	switch step {
	case 3:
		if p.Lead != nil {
			out.InitiativeLead = &p.Lead.InitiativeLead
		}
	case 4:
		if p.MOC != nil {
			out.MOCRequired = &p.MOC.Required
			if p.MOC.Required {
				out.MOCNumber = &p.MOC.Number
			}
		}
	case 5:
		if p.Capex != nil {
			out.CapexRequired = &p.Capex.Required
			if p.Capex.Required {
				out.CapexDetails = &p.Capex.Details
			}
		}
	}
	return out
}
