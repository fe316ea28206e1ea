package lambdas

import (
	"context"
	"os"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/lambda/types"
	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
)

const (
	DefaultRuntime     = "nodejs18.x"
	DefaultHandler     = "index.handler"
	DefaultDescription = "Cloned Lambda uploaded by stepfunction-cloner"
)

type UploadOptions struct {
	// Prefix is prepended to every package base name.
	Prefix      string
	RoleArn     string
	Runtime     string
	Handler     string
	Description string
}

type Uploader struct {
	api    API
	opts   UploadOptions
	logger *zap.Logger
}

func NewUploader(api API, opts UploadOptions, logger *zap.Logger) *Uploader {
	if opts.Runtime == "" {
		opts.Runtime = DefaultRuntime
	}
	if opts.Handler == "" {
		opts.Handler = DefaultHandler
	}
	if opts.Description == "" {
		opts.Description = DefaultDescription
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Uploader{api: api, opts: opts, logger: logger}
}

// FunctionName is the name the package with the given base name is created
// under.
func (u *Uploader) FunctionName(baseName string) string {
	return u.opts.Prefix + baseName
}

// Upload creates a new function from rec. A missing ARN in the response is
// a failure.
func (u *Uploader) Upload(ctx context.Context, rec PackageRecord) (*Function, error) {
	name := u.FunctionName(rec.BaseName)

	zip, err := os.ReadFile(rec.ZipPath)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ReadFailed, err, "read package %s", rec.ZipPath)
	}

	env := rec.Environment
	if env == nil {
		env = map[string]string{}
	}

	result, err := u.api.CreateFunction(ctx, &lambda.CreateFunctionInput{
		FunctionName: aws.String(name),
		Role:         aws.String(u.opts.RoleArn),
		Runtime:      types.Runtime(u.opts.Runtime),
		Handler:      aws.String(u.opts.Handler),
		Code:         &types.FunctionCode{ZipFile: zip},
		Description:  aws.String(u.opts.Description),
		Environment:  &types.Environment{Variables: env},
	})
	if err != nil {
		u.logger.Error("create function failed",
			zap.String("function", name),
			zap.String("code", cloneerr.APICode(err)))
		return nil, cloneerr.Wrap(cloneerr.CreateFailed, err, "create function %s", name)
	}
	arn := aws.ToString(result.FunctionArn)
	if arn == "" {
		return nil, cloneerr.New(cloneerr.CreateFailed, "create function %s returned no ARN", name)
	}

	u.logger.Info("created function",
		zap.String("function", name),
		zap.String("arn", arn),
		zap.Int("variables", len(env)))

	return &Function{Name: name, ARN: arn}, nil
}
