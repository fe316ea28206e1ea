package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	logger, err := newLogger("warn")
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	_, err = newLogger("loud")
	assert.Error(t, err)
}

func TestCommands(t *testing.T) {
	c := &cli{}
	names := map[string]bool{}
	for _, cmd := range []interface{ Name() string }{c.listCommand(), c.exportCommand(), c.importCommand()} {
		names[cmd.Name()] = true
	}
	assert.Equal(t, map[string]bool{"list": true, "export": true, "import": true}, names)

	importCmd := c.importCommand()
	for _, flag := range []string{"name", "definition", "input-dir", "prefix", "role-arn", "lambda-role-arn", "env-file", "env-included", "runtime", "handler"} {
		assert.NotNil(t, importCmd.Flags().Lookup(flag), flag)
	}
}
