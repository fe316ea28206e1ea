package cloner

import (
	"context"
	"os"
	"path/filepath"

	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
	"stepfunction-cloner/lambdas"
	"stepfunction-cloner/logs"
	"stepfunction-cloner/stepfunctions"
)

type ExportRequest struct {
	StateMachineArn  string
	OutputDir        string
	CopyLogRetention bool
}

type ExportResult struct {
	StateMachine   *stepfunctions.StateMachine
	FunctionArns   []string
	Packages       []lambdas.Package
	SnapshotPath   string
	DefinitionPath string
	// RetentionPath is empty unless log retention was exported.
	RetentionPath string
}

type Exporter struct {
	workflows  WorkflowReader
	downloader FunctionDownloader
	retention  RetentionStore
	logger     *zap.Logger
}

// NewExporter wires an Exporter. retention may be nil when log retention is
// never exported.
func NewExporter(workflows WorkflowReader, downloader FunctionDownloader, retention RetentionStore, logger *zap.Logger) *Exporter {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Exporter{workflows: workflows, downloader: downloader, retention: retention, logger: logger}
}

func (e *Exporter) Export(ctx context.Context, req ExportRequest) (*ExportResult, error) {
	if req.StateMachineArn == "" {
		return nil, cloneerr.New(cloneerr.InvalidConfig, "state machine ARN is required")
	}
	if req.OutputDir == "" {
		return nil, cloneerr.New(cloneerr.InvalidConfig, "output directory is required")
	}

	sm, err := e.workflows.DescribeDefinition(ctx, req.StateMachineArn)
	if err != nil {
		return nil, err
	}
	arns, err := stepfunctions.ExtractFunctionArns(sm.Definition)
	if err != nil {
		return nil, err
	}
	e.logger.Info("found functions", zap.String("stateMachine", sm.Name), zap.Strings("arns", arns))

	result := &ExportResult{StateMachine: sm, FunctionArns: arns}
	snapshot := lambdas.Snapshot{}
	for _, arn := range arns {
		pkg, err := e.downloader.Download(ctx, arn, req.OutputDir)
		if err != nil {
			return nil, err
		}
		result.Packages = append(result.Packages, *pkg)
		snapshot[pkg.ShortName] = pkg.Environment
	}

	if result.SnapshotPath, err = lambdas.WriteSnapshot(req.OutputDir, snapshot); err != nil {
		return nil, err
	}

	result.DefinitionPath = filepath.Join(req.OutputDir, DefinitionFileName)
	if err := os.WriteFile(result.DefinitionPath, []byte(sm.Definition.String()), 0644); err != nil {
		return nil, cloneerr.Wrap(cloneerr.WriteFailed, err, "write %s", result.DefinitionPath)
	}

	if req.CopyLogRetention && e.retention != nil {
		if result.RetentionPath, err = e.exportRetention(ctx, req.OutputDir, result.Packages); err != nil {
			return nil, err
		}
	}

	e.logger.Info("export complete",
		zap.String("outputDir", req.OutputDir),
		zap.Int("functions", len(result.Packages)))
	return result, nil
}

// exportRetention records the retention of every downloaded function. Lookup
// failures are logged and skipped.
func (e *Exporter) exportRetention(ctx context.Context, dir string, packages []lambdas.Package) (string, error) {
	retentions := map[string]int32{}
	for _, pkg := range packages {
		if _, done := retentions[pkg.ShortName]; done {
			continue
		}
		days, ok, err := e.retention.Lookup(ctx, pkg.ShortName)
		if err != nil {
			e.logger.Warn("skipping log retention", zap.String("function", pkg.ShortName), zap.Error(err))
			continue
		}
		if ok {
			retentions[pkg.ShortName] = days
		}
	}
	return logs.WriteRetentions(dir, retentions)
}
