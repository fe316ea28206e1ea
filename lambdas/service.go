// Package lambdas downloads Lambda deployment packages and re-creates them
// as new functions.
package lambdas

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// API is the subset of the Lambda client used by this package.
type API interface {
	GetFunction(ctx context.Context, params *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error)
}

func NewAPI(cfg aws.Config) *lambda.Client {
	return lambda.NewFromConfig(cfg)
}

// Package is a downloaded deployment package.
type Package struct {
	Path        string
	ShortName   string
	Environment map[string]string
}

// PackageRecord is a deployment package found in an import directory.
type PackageRecord struct {
	BaseName    string
	ZipPath     string
	Environment map[string]string
}

// Function is a function created by Uploader.
type Function struct {
	Name string
	ARN  string
}
