// Package logs carries CloudWatch log retention settings from exported
// functions over to their clones.
package logs

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatchlogs/types"
	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
)

// RetentionFileName is written next to the downloaded packages.
const RetentionFileName = "log-retention.json"

// API is the subset of the CloudWatch Logs client used by Retention.
type API interface {
	DescribeLogGroups(ctx context.Context, params *cloudwatchlogs.DescribeLogGroupsInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.DescribeLogGroupsOutput, error)
	CreateLogGroup(ctx context.Context, params *cloudwatchlogs.CreateLogGroupInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.CreateLogGroupOutput, error)
	PutRetentionPolicy(ctx context.Context, params *cloudwatchlogs.PutRetentionPolicyInput, optFns ...func(*cloudwatchlogs.Options)) (*cloudwatchlogs.PutRetentionPolicyOutput, error)
}

type Retention struct {
	api    API
	logger *zap.Logger
}

func NewRetention(api API, logger *zap.Logger) *Retention {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Retention{api: api, logger: logger}
}

func NewRetentionFromConfig(cfg aws.Config, logger *zap.Logger) *Retention {
	return NewRetention(cloudwatchlogs.NewFromConfig(cfg), logger)
}

// LogGroupName is the log group Lambda writes to for a function.
func LogGroupName(functionName string) string {
	return "/aws/lambda/" + functionName
}

// Lookup returns the retention of the function's log group. ok is false if
// the group does not exist or never expires.
func (r *Retention) Lookup(ctx context.Context, functionName string) (days int32, ok bool, err error) {
	group := LogGroupName(functionName)

	paginator := cloudwatchlogs.NewDescribeLogGroupsPaginator(r.api, &cloudwatchlogs.DescribeLogGroupsInput{
		LogGroupNamePrefix: aws.String(group),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return 0, false, cloneerr.Wrap(cloneerr.ResourceNotFound, err, "describe log group %s", group)
		}
		for _, lg := range page.LogGroups {
			if aws.ToString(lg.LogGroupName) != group || lg.RetentionInDays == nil {
				continue
			}
			return *lg.RetentionInDays, true, nil
		}
	}
	return 0, false, nil
}

// Apply creates the function's log group if needed and sets its retention.
func (r *Retention) Apply(ctx context.Context, functionName string, days int32) error {
	group := LogGroupName(functionName)

	_, err := r.api.CreateLogGroup(ctx, &cloudwatchlogs.CreateLogGroupInput{
		LogGroupName: aws.String(group),
	})
	var exists *types.ResourceAlreadyExistsException
	if err != nil && !errors.As(err, &exists) {
		return cloneerr.Wrap(cloneerr.CreateFailed, err, "create log group %s", group)
	}

	_, err = r.api.PutRetentionPolicy(ctx, &cloudwatchlogs.PutRetentionPolicyInput{
		LogGroupName:    aws.String(group),
		RetentionInDays: aws.Int32(days),
	})
	if err != nil {
		return cloneerr.Wrap(cloneerr.CreateFailed, err, "put retention policy on %s", group)
	}

	r.logger.Info("applied log retention", zap.String("logGroup", group), zap.Int32("days", days))
	return nil
}

// WriteRetentions saves short name -> retention days to
// <dir>/log-retention.json.
func WriteRetentions(dir string, retentions map[string]int32) (string, error) {
	data, err := json.MarshalIndent(retentions, "", "  ")
	if err != nil {
		return "", cloneerr.Wrap(cloneerr.WriteFailed, err, "marshal log retentions")
	}
	path := filepath.Join(dir, RetentionFileName)
	if err := os.WriteFile(path, data, 0644); err != nil {
		return "", cloneerr.Wrap(cloneerr.WriteFailed, err, "write %s", path)
	}
	return path, nil
}

// ReadRetentions loads <dir>/log-retention.json. A missing file yields an
// empty map.
func ReadRetentions(dir string) (map[string]int32, error) {
	path := filepath.Join(dir, RetentionFileName)
	data, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return map[string]int32{}, nil
	}
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ReadFailed, err, "read %s", path)
	}

	retentions := map[string]int32{}
	if err := json.Unmarshal(data, &retentions); err != nil {
		return nil, cloneerr.Wrap(cloneerr.MalformedEnvironment, err, "parse %s", path)
	}
	return retentions, nil
}
