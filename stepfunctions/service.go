package stepfunctions

import (
	"context"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sfn"
	"github.com/aws/aws-sdk-go-v2/service/sfn/types"
	"go.uber.org/zap"

	"stepfunction-cloner/cloneerr"
)

// API is the subset of the Step Functions client used by Service.
type API interface {
	sfn.ListStateMachinesAPIClient
	DescribeStateMachine(ctx context.Context, params *sfn.DescribeStateMachineInput, optFns ...func(*sfn.Options)) (*sfn.DescribeStateMachineOutput, error)
	CreateStateMachine(ctx context.Context, params *sfn.CreateStateMachineInput, optFns ...func(*sfn.Options)) (*sfn.CreateStateMachineOutput, error)
}

type Service struct {
	api    API
	logger *zap.Logger
}

func New(api API, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{api: api, logger: logger}
}

func NewFromConfig(cfg aws.Config, logger *zap.Logger) *Service {
	return New(sfn.NewFromConfig(cfg), logger)
}

func (s *Service) ListStateMachines(ctx context.Context) ([]StateMachine, error) {
	var stateMachines []StateMachine
	input := &sfn.ListStateMachinesInput{}

	paginator := sfn.NewListStateMachinesPaginator(s.api, input)
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			return nil, cloneerr.Wrap(cloneerr.ResourceNotFound, err, "list state machines")
		}

		for _, sm := range page.StateMachines {
			stateMachines = append(stateMachines, StateMachine{
				Name:         aws.ToString(sm.Name),
				ARN:          aws.ToString(sm.StateMachineArn),
				Type:         string(sm.Type),
				CreationDate: formatDate(sm.CreationDate),
			})
		}
	}

	return stateMachines, nil
}

// DescribeDefinition fetches a state machine and parses its definition.
func (s *Service) DescribeDefinition(ctx context.Context, arn string) (*StateMachine, error) {
	result, err := s.api.DescribeStateMachine(ctx, &sfn.DescribeStateMachineInput{
		StateMachineArn: aws.String(arn),
	})
	if err != nil {
		return nil, cloneerr.Wrap(cloneerr.ResourceNotFound, err, "describe state machine %s", arn)
	}
	if result.Definition == nil {
		return nil, cloneerr.New(cloneerr.MalformedDefinition, "state machine %s has no definition", arn)
	}

	def, err := ParseDefinition([]byte(*result.Definition))
	if err != nil {
		return nil, err
	}

	s.logger.Debug("described state machine",
		zap.String("arn", arn),
		zap.String("type", string(result.Type)),
		zap.Int("states", len(def.States)))

	return &StateMachine{
		Name:         aws.ToString(result.Name),
		ARN:          aws.ToString(result.StateMachineArn),
		RoleARN:      aws.ToString(result.RoleArn),
		Type:         string(result.Type),
		CreationDate: formatDate(result.CreationDate),
		Definition:   def,
	}, nil
}

// CreateStateMachine publishes definition as a new STANDARD state machine.
// There is a single attempt.
func (s *Service) CreateStateMachine(ctx context.Context, name, definition, roleArn string) (string, error) {
	result, err := s.api.CreateStateMachine(ctx, &sfn.CreateStateMachineInput{
		Name:       aws.String(name),
		Definition: aws.String(definition),
		RoleArn:    aws.String(roleArn),
		Type:       types.StateMachineTypeStandard,
	})
	if err != nil {
		return "", cloneerr.Wrap(cloneerr.PublishFailed, err, "create state machine %s", name)
	}
	arn := aws.ToString(result.StateMachineArn)
	if arn == "" {
		return "", cloneerr.New(cloneerr.PublishFailed, "create state machine %s returned no ARN", name)
	}

	s.logger.Info("created state machine", zap.String("name", name), zap.String("arn", arn))
	return arn, nil
}

func formatDate(t *time.Time) string {
	if t == nil {
		return ""
	}
	return t.Format(time.RFC3339)
}
