package provision

import (
	"errors"
	"fmt"

	"github.com/aws/smithy-go"
)

// Class sorts a provisioning failure into how the chain should react:
// conflicts resolve to the existing resource, transient faults get
// retried on idempotent steps, everything else aborts the run.
type Class int

const (
	ClassPermanent Class = iota
	ClassTransient
	ClassConflict
)

func (c Class) String() string {
	switch c {
	case ClassTransient:
		return "transient"
	case ClassConflict:
		return "conflict"
	default:
		return "permanent"
	}
}

// conflictCodes are the "already exists" shapes across the services
// the chain talks to. Each maps to a by-name lookup of the existing
// resource.
var conflictCodes = map[string]bool{
	"ConflictException":              true,
	"EntityAlreadyExists":            true,
	"ResourceConflictException":      true,
	"ResourceAlreadyExistsException": true,
	"EntityAlreadyExistsException":   true,
	"BucketAlreadyOwnedByYou":        true,
}

var transientCodes = map[string]bool{
	"ThrottlingException":         true,
	"TooManyRequestsException":    true,
	"ServiceUnavailableException": true,
	"InternalServerException":     true,
	"InternalFailure":             true,
	"RequestTimeout":              true,
}

// Classify inspects a service error and decides the chain's reaction.
func Classify(err error) Class {
	var ae smithy.APIError
	if !errors.As(err, &ae) {
		return ClassPermanent
	}
	code := ae.ErrorCode()
	switch {
	case conflictCodes[code]:
		return ClassConflict
	case transientCodes[code]:
		return ClassTransient
	case ae.ErrorFault() == smithy.FaultServer:
		return ClassTransient
	default:
		return ClassPermanent
	}
}

// StepError wraps a failure with the chain step it came from. A failed
// step aborts the rest of the run; resources created by earlier steps
// stay in the ledger.
type StepError struct {
	Step string
	Err  error
}

func (e *StepError) Error() string {
	return fmt.Sprintf("provision step %s: %v", e.Step, e.Err)
}

func (e *StepError) Unwrap() error { return e.Err }
