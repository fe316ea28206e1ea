package cloner

import (
	"context"
	"path/filepath"

	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
	"stepfunction-cloner/lambdas"
	"stepfunction-cloner/logs"
	"stepfunction-cloner/stepfunctions"
)

type ImportRequest struct {
	// Name of the new state machine, before the prefix is applied.
	Name   string
	Prefix string
	// Definition takes precedence over DefinitionPath. With neither set the
	// exported state-machine.json in PackageDir is used.
	Definition     *stepfunctions.Definition
	DefinitionPath string
	RoleArn        string
	// FunctionRoleArn falls back to RoleArn when empty.
	FunctionRoleArn  string
	PackageDir       string
	EnvFilePath      string
	EnvIncluded      bool
	Runtime          string
	Handler          string
	CopyLogRetention bool
}

type ImportResult struct {
	StateMachineArn  string
	StateMachineName string
	Functions        []lambdas.Function
	Identifiers      stepfunctions.IdentifierMap
	Rewritten        int
}

type Importer struct {
	functions lambdas.API
	workflows WorkflowPublisher
	retention RetentionStore
	logger    *zap.Logger
}

// NewImporter wires an Importer. retention may be nil when log retention is
// never imported.
func NewImporter(functions lambdas.API, workflows WorkflowPublisher, retention RetentionStore, logger *zap.Logger) *Importer {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Importer{functions: functions, workflows: workflows, retention: retention, logger: logger}
}

// Import uploads every package in req.PackageDir as a new function, points the
// definition at them and publishes it. Nothing is published unless every
// package was uploaded.
func (i *Importer) Import(ctx context.Context, req ImportRequest) (*ImportResult, error) {
	if err := req.validate(); err != nil {
		return nil, err
	}

	def, err := req.definition()
	if err != nil {
		return nil, err
	}

	records, err := lambdas.ScanPackages(req.PackageDir)
	if err != nil {
		return nil, err
	}
	resolver, err := lambdas.NewEnvironmentResolver(lambdas.EnvSource{
		FilePath:   req.EnvFilePath,
		Included:   req.EnvIncluded,
		PackageDir: req.PackageDir,
	}, i.logger)
	if err != nil {
		return nil, err
	}
	retentions, err := i.retentions(req)
	if err != nil {
		return nil, err
	}

	roleArn := req.FunctionRoleArn
	if roleArn == "" {
		roleArn = req.RoleArn
	}
	uploader := lambdas.NewUploader(i.functions, lambdas.UploadOptions{
		Prefix:  req.Prefix,
		RoleArn: roleArn,
		Runtime: req.Runtime,
		Handler: req.Handler,
	}, i.logger)

	result := &ImportResult{Identifiers: stepfunctions.IdentifierMap{}}
	for _, rec := range records {
		rec.Environment = resolver.Resolve(rec.BaseName)
		fn, err := uploader.Upload(ctx, rec)
		if err != nil {
			i.logAbandoned(result.Functions)
			return nil, err
		}
		result.Functions = append(result.Functions, *fn)
		result.Identifiers[rec.BaseName] = fn.ARN

		if days, ok := retentions[rec.BaseName]; ok {
			if err := i.retention.Apply(ctx, fn.Name, days); err != nil {
				i.logger.Warn("log retention not applied", zap.String("function", fn.Name), zap.Error(err))
			}
		}
	}

	if len(result.Identifiers) == 0 {
		return nil, cloneerr.New(cloneerr.CreateFailed, "no function packages uploaded from %s", req.PackageDir)
	}

	rewritten, n, err := stepfunctions.Rewrite(def, result.Identifiers)
	if err != nil {
		i.logAbandoned(result.Functions)
		return nil, err
	}
	result.Rewritten = n
	result.StateMachineName = req.Prefix + req.Name

	result.StateMachineArn, err = i.workflows.CreateStateMachine(ctx, result.StateMachineName, rewritten.String(), req.RoleArn)
	if err != nil {
		i.logAbandoned(result.Functions)
		return nil, err
	}

	i.logger.Info("clone complete",
		zap.String("stateMachine", result.StateMachineArn),
		zap.Int("functions", len(result.Functions)),
		zap.Int("rewritten", n))
	return result, nil
}

func (r ImportRequest) validate() error {
	switch {
	case r.Name == "":
		return cloneerr.New(cloneerr.InvalidConfig, "state machine name is required")
	case r.RoleArn == "":
		return cloneerr.New(cloneerr.InvalidConfig, "role ARN is required")
	case r.PackageDir == "":
		return cloneerr.New(cloneerr.InvalidConfig, "package directory is required")
	}
	return nil
}

func (r ImportRequest) definition() (*stepfunctions.Definition, error) {
	if r.Definition != nil {
		return r.Definition, nil
	}
	path := r.DefinitionPath
	if path == "" {
		path = filepath.Join(r.PackageDir, DefinitionFileName)
	}
	return stepfunctions.LoadDefinition(path)
}

func (i *Importer) retentions(req ImportRequest) (map[string]int32, error) {
	if !req.CopyLogRetention || i.retention == nil {
		return nil, nil
	}
	return logs.ReadRetentions(req.PackageDir)
}

// logAbandoned reports functions that stay behind after an aborted run.
func (i *Importer) logAbandoned(functions []lambdas.Function) {
	for _, fn := range functions {
		i.logger.Warn("function left in place after failed import",
			zap.String("function", fn.Name),
			zap.String("arn", fn.ARN))
	}
}
