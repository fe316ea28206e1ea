package stepfunctions

import (
	"os"
	"strings"

	"stepfunction-cloner/cloneerr"
)

// FunctionServiceMarker identifies Task resources that invoke a Lambda
// function.
const FunctionServiceMarker = "lambda"

// ShortName returns the function name carried by a resource identifier: its
// last colon-delimited segment.
func ShortName(identifier string) (string, error) {
	if strings.TrimSpace(identifier) == "" {
		return "", cloneerr.New(cloneerr.MalformedDefinition, "empty resource identifier")
	}
	name := identifier[strings.LastIndex(identifier, ":")+1:]
	if name == "" {
		return "", cloneerr.New(cloneerr.MalformedDefinition, "resource identifier %q has no name segment", identifier)
	}
	return name, nil
}

func IsFunctionResource(resource string) bool {
	return strings.Contains(resource, FunctionServiceMarker)
}

// ExtractFunctionArns returns the Resource of every Task state that invokes a
// function, in discovery order. Duplicates are kept.
func ExtractFunctionArns(def *Definition) ([]string, error) {
	var arns []string
	err := def.Walk(func(s *State) error {
		if s.Type != TaskType {
			return nil
		}
		if s.Resource == nil {
			return cloneerr.New(cloneerr.MalformedDefinition, "task state %q has no Resource", s.Name)
		}
		if IsFunctionResource(*s.Resource) {
			arns = append(arns, *s.Resource)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return arns, nil
}

// Rewrite returns a copy of def in which every function Task whose short name
// is a key of arns points at the mapped ARN, along with the number of states
// rewritten. Tasks whose short name is not mapped are left as they are.
func Rewrite(def *Definition, arns IdentifierMap) (*Definition, int, error) {
	out, err := def.Clone()
	if err != nil {
		return nil, 0, err
	}

	rewritten := 0
	err = out.Walk(func(s *State) error {
		if s.Type != TaskType || s.Resource == nil || !IsFunctionResource(*s.Resource) {
			return nil
		}
		name, err := ShortName(*s.Resource)
		if err != nil {
			return err
		}
		arn, ok := arns[name]
		if !ok {
			return nil
		}
		s.Resource = &arn
		rewritten++
		return nil
	})
	if err != nil {
		return nil, 0, err
	}
	return out, rewritten, nil
}

// RewriteString parses data, rewrites it and returns the indented result.
func RewriteString(data []byte, arns IdentifierMap) (string, int, error) {
	def, err := ParseDefinition(data)
	if err != nil {
		return "", 0, err
	}
	out, n, err := Rewrite(def, arns)
	if err != nil {
		return "", 0, err
	}
	return out.String(), n, nil
}

// RewriteFile is RewriteString over the definition stored at path.
func RewriteFile(path string, arns IdentifierMap) (string, int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return "", 0, cloneerr.Wrap(cloneerr.ReadFailed, err, "read definition %s", path)
	}
	return RewriteString(data, arns)
}
