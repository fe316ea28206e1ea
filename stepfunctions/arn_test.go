package stepfunctions

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"stepfunction-cloner/cloneerr"
)

func TestShortName(t *testing.T) {
	tests := []struct {
		identifier string
		want       string
		wantErr    bool
	}{
		{identifier: "arn:aws:lambda:us-east-1:111111111111:function:orders", want: "orders"},
		{identifier: "arn:aws:states:::lambda:invoke:fn-hello", want: "fn-hello"},
		{identifier: "plain-name", want: "plain-name"},
		{identifier: "", wantErr: true},
		{identifier: "   ", wantErr: true},
		{identifier: "arn:aws:lambda:us-east-1:111111111111:function:", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.identifier, func(t *testing.T) {
			got, err := ShortName(tt.identifier)
			if tt.wantErr {
				assert.ErrorIs(t, err, cloneerr.ErrMalformedDefinition)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestExtractFunctionArns(t *testing.T) {
	def, err := ParseDefinition([]byte(nestedDefinition))
	require.NoError(t, err)

	arns, err := ExtractFunctionArns(def)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"arn:aws:lambda:us-east-1:111111111111:function:validate",
		"arn:aws:lambda:us-east-1:111111111111:function:charge",
		"arn:aws:lambda:us-east-1:111111111111:function:ship",
	}, arns)
}

func TestExtractFunctionArnsKeepsDuplicates(t *testing.T) {
	data := `{"States":{
		"A":{"Type":"Task","Resource":"arn:aws:lambda:us-east-1:1:function:same"},
		"B":{"Type":"Pass","Resource":"arn:aws:lambda:us-east-1:1:function:ignored"},
		"C":{"Type":"Task","Resource":"arn:aws:states:::dynamodb:putItem"},
		"D":{"Type":"Task","Resource":"arn:aws:lambda:us-east-1:1:function:same"}
	}}`
	def, err := ParseDefinition([]byte(data))
	require.NoError(t, err)

	arns, err := ExtractFunctionArns(def)
	require.NoError(t, err)
	assert.Equal(t, []string{
		"arn:aws:lambda:us-east-1:1:function:same",
		"arn:aws:lambda:us-east-1:1:function:same",
	}, arns)
}

func TestExtractFunctionArnsTaskWithoutResource(t *testing.T) {
	def, err := ParseDefinition([]byte(`{"States":{"A":{"Type":"Task"}}}`))
	require.NoError(t, err)

	_, err = ExtractFunctionArns(def)
	assert.ErrorIs(t, err, cloneerr.ErrMalformedDefinition)
}

func TestRewrite(t *testing.T) {
	def, err := ParseDefinition([]byte(`{"States":{"A":{"Type":"Task","Resource":"arn:aws:states:::lambda:invoke:fn-hello"}}}`))
	require.NoError(t, err)

	out, n, err := Rewrite(def, IdentifierMap{"fn-hello": "arn:new:fn-hello-v2"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, "arn:new:fn-hello-v2", *out.States[0].Resource)
	assert.Equal(t, "arn:aws:states:::lambda:invoke:fn-hello", *def.States[0].Resource, "input must not change")
}

func TestRewriteOnlyTouchesMappedFunctionTasks(t *testing.T) {
	def, err := ParseDefinition([]byte(nestedDefinition))
	require.NoError(t, err)

	arns := IdentifierMap{
		"charge":  "arn:aws:lambda:eu-west-1:222222222222:function:dev-charge",
		"publish": "arn:should-not-apply",
	}
	out, n, err := Rewrite(def, arns)
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	var before, after map[string]any
	require.NoError(t, json.Unmarshal([]byte(def.String()), &before))
	require.NoError(t, json.Unmarshal([]byte(out.String()), &after))

	branch := after["States"].(map[string]any)["Fan"].(map[string]any)["Branches"].([]any)[0].(map[string]any)
	charge := branch["States"].(map[string]any)["Charge"].(map[string]any)
	assert.Equal(t, arns["charge"], charge["Resource"])

	charge["Resource"] = "arn:aws:lambda:us-east-1:111111111111:function:charge"
	assert.Equal(t, before, after)
}

func TestRewriteIsIdempotent(t *testing.T) {
	def, err := ParseDefinition([]byte(nestedDefinition))
	require.NoError(t, err)

	arns := IdentifierMap{
		"validate": "arn:aws:lambda:eu-west-1:222222222222:function:dev-validate",
		"ship":     "arn:aws:lambda:eu-west-1:222222222222:function:dev-ship",
	}
	once, _, err := Rewrite(def, arns)
	require.NoError(t, err)
	twice, n, err := Rewrite(once, arns)
	require.NoError(t, err)

	assert.Equal(t, 0, n)
	assert.Equal(t, once.String(), twice.String())
}

func TestRewriteNeverTouchesNonFunctionTasks(t *testing.T) {
	data := `{"States":{"Put":{"Type":"Task","Resource":"arn:aws:states:::dynamodb:putItem"}}}`

	out, n, err := RewriteString([]byte(data), IdentifierMap{"putItem": "arn:new"})
	require.NoError(t, err)
	assert.Equal(t, 0, n)
	assert.JSONEq(t, data, out)
}

func TestRewriteFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "definition.json")
	require.NoError(t, os.WriteFile(path, []byte(`{"StartAt":"A","States":{"A":{"Type":"Task","Resource":"arn:aws:lambda:us-east-1:1:function:a","End":true}}}`), 0644))

	out, n, err := RewriteFile(path, IdentifierMap{"a": "arn:aws:lambda:us-east-1:2:function:dev-a"})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, `{
  "StartAt": "A",
  "States": {
    "A": {
      "Type": "Task",
      "Resource": "arn:aws:lambda:us-east-1:2:function:dev-a",
      "End": true
    }
  }
}`, out)

	_, _, err = RewriteFile(filepath.Join(t.TempDir(), "missing.json"), nil)
	assert.ErrorIs(t, err, cloneerr.ErrReadFailed)
}
