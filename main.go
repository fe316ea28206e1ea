package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"stepfunction-cloner/cloner"
	"stepfunction-cloner/config"
	"stepfunction-cloner/lambdas"
	"stepfunction-cloner/logs"
	"stepfunction-cloner/stepfunctions"
)

type cli struct {
	cfg    config.Config
	logger *zap.Logger
}

func main() {
	c := &cli{}

	cmd := &cobra.Command{
		Use:               "stepfunction-cloner",
		Short:             "Clone a Step Functions state machine and its Lambda functions",
		SilenceUsage:      true,
		PersistentPreRunE: c.setupConfig,
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = c.logger.Sync()
		},
	}
	setupFlags(cmd)
	cmd.AddCommand(c.listCommand(), c.exportCommand(), c.importCommand())

	if err := cmd.Execute(); err != nil {
		log.Fatal(err)
	}
}

func setupFlags(cmd *cobra.Command) {
	flags := cmd.PersistentFlags()
	flags.String(config.KeyConfigFile, "", "Path to config file.")
	flags.String(config.KeyLogLevel, config.DefaultLogLevel, "Log level (debug, info, warn, error)")
	flags.String(config.KeyAccessKeyID, "", "AWS access key id (default credential chain if empty)")
	flags.String(config.KeySecretAccessKey, "", "AWS secret access key")
	flags.String(config.KeySessionToken, "", "AWS session token")
	flags.String(config.KeyRegion, config.DefaultRegion, "AWS region")
	flags.Bool(config.KeyCopyLogRetention, false, "Carry CloudWatch log retention over to the cloned functions")
}

func (c *cli) setupConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(viper.GetViper(), cmd.Flags())
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		return err
	}
	c.cfg = cfg
	c.logger = logger
	return nil
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("invalid log level %q: %w", level, err)
	}
	encoderConfig := zap.NewDevelopmentEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	core := zapcore.NewCore(zapcore.NewConsoleEncoder(encoderConfig), zapcore.Lock(os.Stderr), lvl)
	return zap.New(core, zap.AddStacktrace(zapcore.FatalLevel)), nil
}

func (c *cli) listCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the state machines of the account",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			awsCfg, err := c.cfg.AWS(ctx)
			if err != nil {
				return err
			}
			stateMachines, err := stepfunctions.NewFromConfig(awsCfg, c.logger).ListStateMachines(ctx)
			if err != nil {
				return err
			}
			displayStateMachines(stateMachines)
			return nil
		},
	}
}

func (c *cli) exportCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Download a state machine definition and the Lambda packages it invokes",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateExport(); err != nil {
				return err
			}
			return c.runExport(cmd.Context())
		},
	}
	cmd.Flags().String(config.KeyStateMachineArn, "", "ARN of the state machine to export")
	cmd.Flags().String(config.KeyOutputDir, config.DefaultOutputDir, "Directory to save packages, environment snapshot and definition")
	return cmd
}

func (c *cli) importCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "import",
		Short: "Re-create exported Lambda packages and publish the rewritten state machine",
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := c.cfg.ValidateImport(); err != nil {
				return err
			}
			return c.runImport(cmd.Context())
		},
	}
	flags := cmd.Flags()
	flags.String(config.KeyName, "", "Name of the new state machine (prefix is prepended)")
	flags.String(config.KeyDefinition, "", "Definition file (default <input-dir>/"+cloner.DefinitionFileName+")")
	flags.String(config.KeyInputDir, config.DefaultOutputDir, "Directory holding the exported packages")
	flags.String(config.KeyPrefix, "", "Prefix for the new state machine and function names")
	flags.String(config.KeyRoleArn, "", "Execution role of the new state machine")
	flags.String(config.KeyLambdaRoleArn, "", "Execution role of the new functions (defaults to --role-arn)")
	flags.String(config.KeyEnvFile, "", "JSON file with environment variables per function")
	flags.Bool(config.KeyEnvIncluded, false, "Use the exported "+lambdas.SnapshotFileName+" for environment variables")
	flags.String(config.KeyRuntime, lambdas.DefaultRuntime, "Runtime of the new functions")
	flags.String(config.KeyHandler, lambdas.DefaultHandler, "Handler of the new functions")
	return cmd
}

func (c *cli) runExport(ctx context.Context) error {
	awsCfg, err := c.cfg.AWS(ctx)
	if err != nil {
		return err
	}

	exporter := cloner.NewExporter(
		stepfunctions.NewFromConfig(awsCfg, c.logger),
		lambdas.NewDownloader(lambdas.NewAPI(awsCfg), lambdas.HTTPFetcher{}, c.logger),
		logs.NewRetentionFromConfig(awsCfg, c.logger),
		c.logger,
	)
	result, err := exporter.Export(ctx, cloner.ExportRequest{
		StateMachineArn:  c.cfg.StateMachineArn,
		OutputDir:        c.cfg.OutputDir,
		CopyLogRetention: c.cfg.CopyLogRetention,
	})
	if err != nil {
		return err
	}

	displayPackages(result.Packages)
	fmt.Printf("Definition saved to %s\n", result.DefinitionPath)
	fmt.Printf("Environment snapshot saved to %s\n", result.SnapshotPath)
	if result.RetentionPath != "" {
		fmt.Printf("Log retention saved to %s\n", result.RetentionPath)
	}
	fmt.Println("Done.")
	return nil
}

func (c *cli) runImport(ctx context.Context) error {
	awsCfg, err := c.cfg.AWS(ctx)
	if err != nil {
		return err
	}

	importer := cloner.NewImporter(
		lambdas.NewAPI(awsCfg),
		stepfunctions.NewFromConfig(awsCfg, c.logger),
		logs.NewRetentionFromConfig(awsCfg, c.logger),
		c.logger,
	)
	result, err := importer.Import(ctx, cloner.ImportRequest{
		Name:             c.cfg.Name,
		Prefix:           c.cfg.Prefix,
		DefinitionPath:   c.cfg.DefinitionPath,
		RoleArn:          c.cfg.RoleArn,
		FunctionRoleArn:  c.cfg.FunctionRoleArn(),
		PackageDir:       c.cfg.InputDir,
		EnvFilePath:      c.cfg.EnvFile,
		EnvIncluded:      c.cfg.EnvIncluded,
		Runtime:          c.cfg.Runtime,
		Handler:          c.cfg.Handler,
		CopyLogRetention: c.cfg.CopyLogRetention,
	})
	if err != nil {
		return err
	}

	displayFunctions(result.Functions)
	fmt.Printf("Rewrote %d task state(s)\n", result.Rewritten)
	fmt.Printf("Clone completed: %s -> %s\n", result.StateMachineName, result.StateMachineArn)
	return nil
}

func displayStateMachines(stateMachines []stepfunctions.StateMachine) {
	smTable := tablewriter.NewWriter(os.Stdout)
	smTable.SetHeader([]string{"Name", "ARN", "Type", "Creation Date"})
	for _, sm := range stateMachines {
		smTable.Append([]string{
			sm.Name,
			sm.ARN,
			sm.Type,
			sm.CreationDate,
		})
	}
	fmt.Println("State Machines:")
	smTable.Render()
	fmt.Println()
}

func displayPackages(packages []lambdas.Package) {
	pkgTable := tablewriter.NewWriter(os.Stdout)
	pkgTable.SetHeader([]string{"Function", "Package", "Variables"})
	for _, pkg := range packages {
		pkgTable.Append([]string{
			pkg.ShortName,
			pkg.Path,
			fmt.Sprintf("%d", len(pkg.Environment)),
		})
	}
	fmt.Println("Downloaded Lambdas:")
	pkgTable.Render()
	fmt.Println()
}

func displayFunctions(functions []lambdas.Function) {
	fnTable := tablewriter.NewWriter(os.Stdout)
	fnTable.SetHeader([]string{"Function", "ARN"})
	for _, fn := range functions {
		fnTable.Append([]string{fn.Name, fn.ARN})
	}
	fmt.Println("Created Lambdas:")
	fnTable.Render()
	fmt.Println()
}
