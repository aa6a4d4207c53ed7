package notebook

import (
	"testing"

	"github.com/citetrace/citetrace/pkg/refs"
	"github.com/stretchr/testify/require"
)

const twoMarkdownCells = `{
  "cells": [
    {"cell_type": "markdown", "source": ["# Roasting\n", "See 10.1234/zenodo.1234567\n"]},
    {"cell_type": "code", "source": ["roast()"], "outputs": []},
    {"cell_type": "markdown", "source": "Timings from 10.5281/zenodo.1185316"},
    {"cell_type": "markdown", "source": []}
  ],
  "metadata": {},
  "nbformat": 4,
  "nbformat_minor": 5
}`

func TestScanMarkdownCells(t *testing.T) {
	findings, err := NewScanner().Scan("kitchen.ipynb", []byte(twoMarkdownCells))
	require.NoError(t, err)
	require.Equal(t, "kitchen", findings.Package)
	require.Len(t, findings.DocBlocks, 2)

	require.Equal(t, "cell[0]", findings.DocBlocks[0].Name)
	require.Equal(t, refs.NoLine, findings.DocBlocks[0].Line)
	require.Equal(t, "# Roasting\nSee 10.1234/zenodo.1234567\n", findings.DocBlocks[0].Text)

	require.Equal(t, "cell[2]", findings.DocBlocks[1].Name)
	require.Equal(t, "Timings from 10.5281/zenodo.1185316", findings.DocBlocks[1].Text)
	require.Empty(t, findings.Annotations)
}

func TestScanRejectsInvalidJSON(t *testing.T) {
	_, err := NewScanner().Scan("broken.ipynb", []byte("{not json"))
	require.Error(t, err)
}

func TestScanReportsUnsupportedSource(t *testing.T) {
	findings, err := NewScanner().Scan("odd.ipynb", []byte(`{"cells":[{"cell_type":"markdown","source":42}]}`))
	require.NoError(t, err)
	require.Empty(t, findings.DocBlocks)
	require.Len(t, findings.Issues, 1)
}
