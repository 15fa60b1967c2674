// pdp/model/verdict.go
package model

import "time"

// Access types attached to a grant.
const (
	AccessTypeStandard  = "standard"
	AccessTypeTemporary = "temporary"
)

// StepResult records the outcome of one policy step for the trace.
type StepResult struct {
	Step   string `json:"step"`
	Passed bool   `json:"passed"`
	Detail string `json:"detail,omitempty"`
}

// Verdict is the output of one access-decision evaluation.
type Verdict struct {
	Granted    bool         `json:"granted"`
	Reason     string       `json:"reason"`
	UserID     string       `json:"user_id,omitempty"` // store identity, empty when unresolved
	UserName   string       `json:"user_name,omitempty"`
	AccessType string       `json:"access_type,omitempty"`
	PlanName   string       `json:"plan_name,omitempty"`
	Trace      []StepResult `json:"trace,omitempty"`
	Timestamp  time.Time    `json:"timestamp"`
}
