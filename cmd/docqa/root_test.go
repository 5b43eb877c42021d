package main

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCmd_Subcommands(t *testing.T) {
	root := newRootCmd()
	names := map[string]bool{}
	for _, c := range root.Commands() {
		names[c.Name()] = true
	}
	for _, want := range []string{"serve", "ingest", "ask"} {
		assert.True(t, names[want], want)
	}
}

func TestAskCmd_RequiresQuestion(t *testing.T) {
	root := newRootCmd()
	root.SetArgs([]string{"ask"})
	root.SetOut(&bytes.Buffer{})
	root.SetErr(&bytes.Buffer{})
	assert.Error(t, root.Execute())
}

func TestRootCmd_InvalidConfig(t *testing.T) {
	t.Setenv("DOCQA_GENERATION_PROVIDER", "nonsense")
	root := newRootCmd()
	root.SetArgs([]string{"ingest", "--config", t.TempDir() + "/missing.yaml", "x.txt"})
	err := root.Execute()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}

func TestOneShotCommands_RejectMemoryStore(t *testing.T) {
	t.Setenv("DOCQA_LOG_FILE", t.TempDir()+"/app.log")
	t.Setenv("DOCQA_VECTORSTORE_TYPE", "memory")

	for _, args := range [][]string{{"ingest", "doc.txt"}, {"ask", "what?"}} {
		root := newRootCmd()
		root.SetArgs(append(args, "--config", t.TempDir()+"/missing.yaml"))
		err := root.Execute()
		require.Error(t, err, args[0])
		assert.Contains(t, err.Error(), "persistent vector store")
	}
}
