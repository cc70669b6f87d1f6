package main

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rx-safety-engine/internal/domain"
	"github.com/rx-safety-engine/internal/service"
	"github.com/rx-safety-engine/internal/setup"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root, a := newRootCmd()
	t.Cleanup(func() { a.close() })

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&bytes.Buffer{})
	root.SetArgs(append([]string{"--store", "memory"}, args...))

	err := root.Execute()
	return out.String(), err
}

func TestCheckCommand(t *testing.T) {
	out, err := execute(t, "check", "Warfarin", "Ibuprofen")
	require.NoError(t, err)

	var report service.InteractionReport
	require.NoError(t, json.Unmarshal([]byte(out), &report))
	require.Len(t, report.Findings, 1)
	assert.Equal(t, domain.SeverityHigh, report.Findings[0].Severity)

	_, err = execute(t, "check", "Warfarin")
	assert.Error(t, err)
}

func TestDosageCommand(t *testing.T) {
	out, err := execute(t, "dosage", "Metformin", "--age", "70", "--weight", "65", "--condition", "Kidney disease")
	require.NoError(t, err)

	var outcome domain.DosageOutcome
	require.NoError(t, json.Unmarshal([]byte(out), &outcome))
	require.NotNil(t, outcome.Recommendation)
	assert.Equal(t, "Metformin", outcome.Recommendation.DrugName)

	_, err = execute(t, "dosage", "Unobtainium", "--age", "40", "--weight", "70")
	assert.ErrorIs(t, err, domain.ErrUnavailable)

	_, err = execute(t, "dosage", "Metformin", "--weight", "70")
	assert.Error(t, err)
}

func TestAlternativesCommand(t *testing.T) {
	out, err := execute(t, "alternatives", "Lisinopril", "--age", "50", "--weight", "80", "--reason", "cost")
	require.NoError(t, err)

	var result domain.AlternativesResult
	require.NoError(t, json.Unmarshal([]byte(out), &result))
	assert.Equal(t, "Lisinopril", result.Drug)

	_, err = execute(t, "alternatives", "Lisinopril", "--age", "50", "--weight", "80", "--reason", "taste")
	assert.Error(t, err)
}

func TestSearchCommand(t *testing.T) {
	out, err := execute(t, "search", "pril")
	require.NoError(t, err)

	var results []domain.DrugSummary
	require.NoError(t, json.Unmarshal([]byte(out), &results))
	require.Len(t, results, 1)
	assert.Equal(t, "Lisinopril", results[0].Name)
}

func TestAnalyzeCommand(t *testing.T) {
	file := filepath.Join(t.TempDir(), "meds.json")
	require.NoError(t, os.WriteFile(file, []byte(`{
  "medications": [
    {"name": "Atorvastatin", "dosage": "20mg", "frequency": "once daily", "confidence": 0.9},
    {"name": "Azithromycin", "dosage": "500mg", "frequency": "once daily", "confidence": 0.8}
  ],
  "patient": {"age": 58, "weight": 77}
}`), 0644))

	out, err := execute(t, "analyze", "--file", file)
	require.NoError(t, err)

	var analysis domain.PrescriptionAnalysis
	require.NoError(t, json.Unmarshal([]byte(out), &analysis))
	assert.Equal(t, 2, analysis.TotalDrugs)
	assert.NotEmpty(t, analysis.Interactions)

	_, err = execute(t, "analyze", "--file", filepath.Join(t.TempDir(), "missing.json"))
	assert.Error(t, err)
}

func TestSeedCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "kb.db")

	out, err := execute(t, "--sqlite", path, "seed")
	require.NoError(t, err)
	assert.Contains(t, out, "Seeded 11 drugs")

	out, err = execute(t, "--store", "sqlite", "--sqlite", path, "search", "amox")
	require.NoError(t, err)
	assert.Contains(t, out, "Amoxicillin")
}

func TestSetupCommand(t *testing.T) {
	dir := t.TempDir()
	configPath := filepath.Join(dir, "claude_desktop_config.json")
	binary := filepath.Join(dir, "mcp-server-lite")
	require.NoError(t, os.WriteFile(binary, []byte("#!/bin/sh\n"), 0755))

	out, err := execute(t, "setup", "--config", configPath, "--binary", binary, "--data-dir", dir)
	require.NoError(t, err)
	assert.Contains(t, out, "Registered "+setup.ServerName)

	out, err = execute(t, "setup", "--config", configPath, "--status")
	require.NoError(t, err)

	var status setup.Status
	require.NoError(t, json.Unmarshal([]byte(out), &status))
	assert.True(t, status.Registered)
	assert.Equal(t, dir, status.DataDir)
}
