package main

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRootCommandRejectsInvalidFormat(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetArgs([]string{"--format", "xml", "optimize", "examples/filter_over_project.json"})
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})

	err := cmd.Execute()
	assert.Error(t, err)
}

func TestOptimizeCommandPushesFilterIntoScan(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"optimize", "examples/filter_over_project.json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "Filter[")
	assert.Contains(t, out.String(), "TableScan(t)")
}

func TestExplainCommandPrintsBeforeAndAfter(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"explain", "examples/join_transitive_equality.json"})

	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "-- before --")
	assert.Contains(t, out.String(), "-- after --")
	assert.Contains(t, out.String(), "INNERJoin")
}

func TestOptimizeCommandJSONFormat(t *testing.T) {
	cmd := NewRootCommand()
	out := &bytes.Buffer{}
	cmd.SetOut(out)
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"--format", "json", "optimize", "examples/filter_over_project.json"})

	require.NoError(t, cmd.Execute())

	var result jsonResult
	require.NoError(t, json.Unmarshal(out.Bytes(), &result))
	assert.NotEmpty(t, result.After)
	assert.Empty(t, result.Before)
}

func TestOptimizeCommandMissingFileFails(t *testing.T) {
	cmd := NewRootCommand()
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetErr(&bytes.Buffer{})
	cmd.SetArgs([]string{"optimize", "examples/does_not_exist.json"})

	err := cmd.Execute()
	require.Error(t, err)
	assert.Equal(t, 2, ExitCodeFor(err))
}
