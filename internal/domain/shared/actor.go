package shared

import "strings"

// SystemActor attributes work that was not triggered by a person
var SystemActor = Actor{ID: "system", Name: "system"}

// Actor identifies who performed an operation. Every state-changing call
// receives one explicitly and stamps it on the ledger entries it writes.
type Actor struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// Validate checks the actor carries an identity
func (a Actor) Validate() error {
	if strings.TrimSpace(a.ID) == "" {
		return NewDomainError(CodeInvalidInput, "Actor ID is required")
	}
	return nil
}

// String returns the display form of the actor
func (a Actor) String() string {
	if a.Name == "" {
		return a.ID
	}
	return a.Name + " (" + a.ID + ")"
}
