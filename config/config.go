// Package config resolves the CLI configuration from flags, environment
// variables and an optional config file.
package config

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"stepfunction-cloner/cloneerr"
)

// EnvPrefix prefixes environment variables, e.g. SFN_CLONER_ROLE_ARN.
const EnvPrefix = "SFN_CLONER"

const (
	KeyConfigFile       = "config-file"
	KeyLogLevel         = "log-level"
	KeyAccessKeyID      = "access-key-id"
	KeySecretAccessKey  = "secret-access-key"
	KeySessionToken     = "session-token"
	KeyRegion           = "region"
	KeyStateMachineArn  = "state-machine-arn"
	KeyOutputDir        = "output-dir"
	KeyName             = "name"
	KeyDefinition       = "definition"
	KeyInputDir         = "input-dir"
	KeyPrefix           = "prefix"
	KeyRoleArn          = "role-arn"
	KeyLambdaRoleArn    = "lambda-role-arn"
	KeyEnvFile          = "env-file"
	KeyEnvIncluded      = "env-included"
	KeyRuntime          = "runtime"
	KeyHandler          = "handler"
	KeyCopyLogRetention = "copy-log-retention"
)

const (
	DefaultRegion    = "us-west-2"
	DefaultOutputDir = "./downloaded-lambdas"
	DefaultLogLevel  = "info"
)

type Config struct {
	LogLevel string

	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	Region          string

	StateMachineArn string
	OutputDir       string

	Name           string
	DefinitionPath string
	InputDir       string
	Prefix         string
	RoleArn        string
	LambdaRoleArn  string
	EnvFile        string
	EnvIncluded    bool
	Runtime        string
	Handler        string

	CopyLogRetention bool
}

// Load binds flags into v, layers environment variables and the config file
// named by --config-file under them, and returns the result.
func Load(v *viper.Viper, flags *pflag.FlagSet) (Config, error) {
	if err := v.BindPFlags(flags); err != nil {
		return Config{}, cloneerr.Wrap(cloneerr.InvalidConfig, err, "bind flags")
	}
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	if file := v.GetString(KeyConfigFile); file != "" {
		v.SetConfigFile(file)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, cloneerr.Wrap(cloneerr.InvalidConfig, err, "read config file %s", file)
		}
	}

	cfg := Config{
		LogLevel:         v.GetString(KeyLogLevel),
		AccessKeyID:      v.GetString(KeyAccessKeyID),
		SecretAccessKey:  v.GetString(KeySecretAccessKey),
		SessionToken:     v.GetString(KeySessionToken),
		Region:           v.GetString(KeyRegion),
		StateMachineArn:  v.GetString(KeyStateMachineArn),
		OutputDir:        v.GetString(KeyOutputDir),
		Name:             v.GetString(KeyName),
		DefinitionPath:   v.GetString(KeyDefinition),
		InputDir:         v.GetString(KeyInputDir),
		Prefix:           v.GetString(KeyPrefix),
		RoleArn:          v.GetString(KeyRoleArn),
		LambdaRoleArn:    v.GetString(KeyLambdaRoleArn),
		EnvFile:          v.GetString(KeyEnvFile),
		EnvIncluded:      v.GetBool(KeyEnvIncluded),
		Runtime:          v.GetString(KeyRuntime),
		Handler:          v.GetString(KeyHandler),
		CopyLogRetention: v.GetBool(KeyCopyLogRetention),
	}
	if cfg.Region == "" {
		cfg.Region = DefaultRegion
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = DefaultLogLevel
	}
	return cfg, nil
}

func (c Config) validateCredentials() error {
	if (c.AccessKeyID == "") != (c.SecretAccessKey == "") {
		return cloneerr.New(cloneerr.InvalidConfig, "%s and %s must be set together", KeyAccessKeyID, KeySecretAccessKey)
	}
	return nil
}

func (c Config) ValidateExport() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	if c.StateMachineArn == "" {
		return missing(KeyStateMachineArn)
	}
	if c.OutputDir == "" {
		return missing(KeyOutputDir)
	}
	return nil
}

func (c Config) ValidateImport() error {
	if err := c.validateCredentials(); err != nil {
		return err
	}
	switch {
	case c.Name == "":
		return missing(KeyName)
	case c.RoleArn == "":
		return missing(KeyRoleArn)
	case c.InputDir == "":
		return missing(KeyInputDir)
	}
	return nil
}

// FunctionRoleArn is the role new functions run under.
func (c Config) FunctionRoleArn() string {
	if c.LambdaRoleArn != "" {
		return c.LambdaRoleArn
	}
	return c.RoleArn
}

// AWS loads the SDK configuration. Static credentials are used when an access
// key is configured, the default credential chain otherwise.
func (c Config) AWS(ctx context.Context) (aws.Config, error) {
	opts := []func(*awsconfig.LoadOptions) error{
		awsconfig.WithRegion(c.Region),
	}
	if c.AccessKeyID != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(c.AccessKeyID, c.SecretAccessKey, c.SessionToken),
		))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("failed to load AWS config: %w", err)
	}
	return cfg, nil
}

func missing(key string) error {
	return cloneerr.New(cloneerr.InvalidConfig, "%s is required", key)
}
