package main

import (
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"legal-rag/internal/config"
)

func TestRootCommands(t *testing.T) {
	root := newRootCmd()

	for _, name := range []string{"serve", "ask"} {
		cmd, _, err := root.Find([]string{name})
		require.NoError(t, err)
		assert.Equal(t, name, cmd.Name())
	}

	flag := root.PersistentFlags().Lookup("config")
	require.NotNil(t, flag)
	assert.Equal(t, configFilePath, flag.DefValue)
}

func TestAskRequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ask"})
	assert.Error(t, root.Execute())
}

func TestSetupLogger(t *testing.T) {
	defer zerolog.SetGlobalLevel(zerolog.GlobalLevel())

	setupLogger(&config.LogConfig{Level: "debug"})
	assert.Equal(t, zerolog.DebugLevel, zerolog.GlobalLevel())

	setupLogger(&config.LogConfig{Level: "loud"})
	assert.Equal(t, zerolog.InfoLevel, zerolog.GlobalLevel())
}
