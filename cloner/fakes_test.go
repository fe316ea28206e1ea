package cloner

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/lambda"

	"stepfunction-cloner/lambdas"
	"stepfunction-cloner/stepfunctions"
)

type fakeWorkflows struct {
	definition string
	describeFn func(arn string) error

	created []createdStateMachine
	arn     string
	err     error
}

type createdStateMachine struct {
	name, definition, roleArn string
}

func (f *fakeWorkflows) DescribeDefinition(ctx context.Context, arn string) (*stepfunctions.StateMachine, error) {
	if f.describeFn != nil {
		if err := f.describeFn(arn); err != nil {
			return nil, err
		}
	}
	def, err := stepfunctions.ParseDefinition([]byte(f.definition))
	if err != nil {
		return nil, err
	}
	return &stepfunctions.StateMachine{Name: "orders", ARN: arn, Definition: def}, nil
}

func (f *fakeWorkflows) CreateStateMachine(ctx context.Context, name, definition, roleArn string) (string, error) {
	if f.err != nil {
		return "", f.err
	}
	f.created = append(f.created, createdStateMachine{name: name, definition: definition, roleArn: roleArn})
	return f.arn, nil
}

type fakeDownloader struct {
	env   map[string]map[string]string
	fail  map[string]error
	calls []string
}

func (f *fakeDownloader) Download(ctx context.Context, resourceArn, outputDir string) (*lambdas.Package, error) {
	f.calls = append(f.calls, resourceArn)
	if err := f.fail[resourceArn]; err != nil {
		return nil, err
	}
	name, err := stepfunctions.ShortName(resourceArn)
	if err != nil {
		return nil, err
	}
	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, name+lambdas.PackageExt)
	if err := os.WriteFile(path, []byte(name), 0644); err != nil {
		return nil, err
	}
	env := f.env[name]
	if env == nil {
		env = map[string]string{}
	}
	return &lambdas.Package{Path: path, ShortName: name, Environment: env}, nil
}

// fakeLambda records CreateFunction calls and fails the ones named in fail.
type fakeLambda struct {
	fail    map[string]error
	created []*lambda.CreateFunctionInput
	calls   []string
}

func (f *fakeLambda) GetFunction(ctx context.Context, params *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error) {
	return nil, fmt.Errorf("unexpected GetFunction %s", aws.ToString(params.FunctionName))
}

func (f *fakeLambda) CreateFunction(ctx context.Context, params *lambda.CreateFunctionInput, optFns ...func(*lambda.Options)) (*lambda.CreateFunctionOutput, error) {
	name := aws.ToString(params.FunctionName)
	f.calls = append(f.calls, name)
	if err := f.fail[name]; err != nil {
		return nil, err
	}
	f.created = append(f.created, params)
	return &lambda.CreateFunctionOutput{
		FunctionArn: aws.String("arn:aws:lambda:eu-west-1:222222222222:function:" + name),
	}, nil
}

type fakeRetention struct {
	days    map[string]int32
	applied map[string]int32
}

func (f *fakeRetention) Lookup(ctx context.Context, functionName string) (int32, bool, error) {
	days, ok := f.days[functionName]
	return days, ok, nil
}

func (f *fakeRetention) Apply(ctx context.Context, functionName string, days int32) error {
	if f.applied == nil {
		f.applied = map[string]int32{}
	}
	f.applied[functionName] = days
	return nil
}
