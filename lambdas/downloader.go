package lambdas

import (
	"context"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
	"stepfunction-cloner/stepfunctions"
)

type Downloader struct {
	api     API
	fetcher Fetcher
	logger  *zap.Logger
}

func NewDownloader(api API, fetcher Fetcher, logger *zap.Logger) *Downloader {
	if fetcher == nil {
		fetcher = HTTPFetcher{}
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Downloader{api: api, fetcher: fetcher, logger: logger}
}

// Download saves the deployment package of the function referenced by
// resourceArn to <outputDir>/<shortName>.zip.
func (d *Downloader) Download(ctx context.Context, resourceArn, outputDir string) (*Package, error) {
	name, err := stepfunctions.ShortName(resourceArn)
	if err != nil {
		return nil, err
	}

	result, err := d.api.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ResourceNotFound, err, "get function %s", name)
	}

	var location string
	if result.Code != nil {
		location = aws.ToString(result.Code.Location)
	}
	if location == "" {
		return nil, cloneerr.New(cloneerr.DownloadFailed, "no code location found for %s", name)
	}

	data, err := d.fetcher.Fetch(ctx, location)
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.DownloadFailed, err, "fetch package of %s", name)
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, cloneerr.Wrap(cloneerr.WriteFailed, err, "create output directory %s", outputDir)
	}
	path := filepath.Join(outputDir, name+PackageExt)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, cloneerr.Wrap(cloneerr.WriteFailed, err, "write %s", path)
	}

	env := map[string]string{}
	if result.Configuration != nil && result.Configuration.Environment != nil {
		for k, v := range result.Configuration.Environment.Variables {
			env[k] = v
		}
	}

	d.logger.Info("downloaded function",
		zap.String("function", name),
		zap.String("path", path),
		zap.Int("bytes", len(data)),
		zap.Int("variables", len(env)))

	return &Package{Path: path, ShortName: name, Environment: env}, nil
}
