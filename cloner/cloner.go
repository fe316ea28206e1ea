// Package cloner runs the export and import pipelines. Both run strictly
// sequentially and stop at the first failure; resources created before a
// failure are left in place.
package cloner

import (
	"context"

	"stepfunction-cloner/lambdas"
	"stepfunction-cloner/stepfunctions"
)

// DefinitionFileName is the exported copy of the source definition.
const DefinitionFileName = "state-machine.json"

type WorkflowReader interface {
	DescribeDefinition(ctx context.Context, arn string) (*stepfunctions.StateMachine, error)
}

type WorkflowPublisher interface {
	CreateStateMachine(ctx context.Context, name, definition, roleArn string) (string, error)
}

type FunctionDownloader interface {
	Download(ctx context.Context, resourceArn, outputDir string) (*lambdas.Package, error)
}

// RetentionStore reads and applies function log retention.
type RetentionStore interface {
	Lookup(ctx context.Context, functionName string) (int32, bool, error)
	Apply(ctx context.Context, functionName string, days int32) error
}
