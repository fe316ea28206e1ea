package stepfunctions

import "encoding/json"

// State types that carry nested state sets or invoke functions.
const (
	TaskType     = "Task"
	ParallelType = "Parallel"
	MapType      = "Map"
)

// StateMachine represents a Step Functions state machine
type StateMachine struct {
	Name         string
	ARN          string
	RoleARN      string
	Type         string
	CreationDate string
	// Definition is nil for state machines returned by ListStateMachines.
	Definition *Definition
}

// Definition is an Amazon States Language document. Fields other than
// States are kept verbatim and in their original order.
type Definition struct {
	States []*State

	fields []field
}

// State represents an individual state of a definition. Type and Resource are
// typed views; every other field round-trips untouched.
type State struct {
	Name     string
	Type     string
	Resource *string

	// Branches holds the nested definitions of a Parallel state.
	Branches []*Definition
	// Processor holds the nested definition of a Map state.
	Processor *Definition

	processorKey string
	fields       []field
}

type field struct {
	key   string
	value json.RawMessage
}

// IdentifierMap maps an original function short name to the ARN of the
// function created for it.
type IdentifierMap map[string]string
