package workflow

// Actor is the authenticated identity acting on an initiative, supplied by
// the authentication collaborator on every call.
type Actor struct {
	Email string `json:"email"`
	Role  string `json:"role"`
	Site  string `json:"site"`
}

// CanAct decides whether an actor may act on the given stage of an initiative
// registered at initiativeSite.
//
// The rule: the actor's role must equal the stage's required role. CTSD is
// corporate-wide and skips the site check; everyone else must match the
// initiative's site. An initiative with no site fails closed for non-corporate
// roles.
func CanAct(actor Actor, initiativeSite string, step int) bool {
	stage, err := StageAt(step)
	if err != nil {
		return false
	}

	if actor.Role != stage.RoleCode {
		return false
	}
	// CTSD is corporate-wide: the site check does not apply.
	if actor.Role == RoleCorpTSD {
		return true
	}
	// Fail closed when either side has no site.
	if initiativeSite == "" || actor.Site == "" {
		return false
	}
	return actor.Site == initiativeSite
}
