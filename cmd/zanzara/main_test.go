package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"zanzara-go/internal/credentials"
	"zanzara-go/internal/pipeline"
	"zanzara-go/internal/processor"
)

type cliEnv struct {
	dir        string
	configPath string
}

func setupCLITestEnv(t *testing.T, mock bool, withTemplate bool) cliEnv {
	t.Helper()
	for _, k := range []string{"OPENAI_API_KEY", "USE_MOCK_TRANSCRIBE", "USE_MOCK_LLM", "LOG_LEVEL", "ENVIRONMENT"} {
		t.Setenv(k, "")
	}
	dir := t.TempDir()
	if withTemplate {
		require.NoError(t, os.WriteFile(filepath.Join(dir, "prompt.txt"), []byte("Scrivi un articolo."), 0o644))
	}
	require.NoError(t, os.Mkdir(filepath.Join(dir, "esempi"), 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "esempi", "zanzara1.txt"), []byte("EX-1"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "puntata.mp3"), []byte("ID3audio"), 0o644))

	cfg := fmt.Sprintf(`log_level = "error"

[templates]
prompt_file = %q
examples_dir = %q
num_examples = 1

[mock]
transcribe = %t
llm = %t
`, filepath.Join(dir, "prompt.txt"), filepath.Join(dir, "esempi"), mock, mock)
	path := filepath.Join(dir, "zanzara.toml")
	require.NoError(t, os.WriteFile(path, []byte(cfg), 0o644))
	return cliEnv{dir: dir, configPath: path}
}

func runCLI(t *testing.T, args []string, configPath string) (string, string, error) {
	t.Helper()
	cmd := newRootCommand()
	var stdout, stderr bytes.Buffer
	cmd.SetOut(&stdout)
	cmd.SetErr(&stderr)
	cmd.SetArgs(append([]string{"--config", configPath}, args...))
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

func TestRunCommand(t *testing.T) {
	env := setupCLITestEnv(t, true, true)
	out, _, err := runCLI(t, []string{"run", filepath.Join(env.dir, "puntata.mp3"), "--show-prompt", "-i", "breve"}, env.configPath)
	require.NoError(t, err)

	assert.Contains(t, out, "File: puntata.mp3")
	assert.Contains(t, out, "== Transcript ==")
	assert.Contains(t, out, "== Prompt ==")
	assert.Contains(t, out, "<additional_instructions>\nbreve\n</additional_instructions>")
	assert.Contains(t, out, "## MOCK ANALYSIS")
	assert.Contains(t, out, "state: done")
}

func TestRunCommandJSON(t *testing.T) {
	env := setupCLITestEnv(t, true, true)
	out, _, err := runCLI(t, []string{"run", filepath.Join(env.dir, "puntata.mp3"), "--json", "--transcribe-only"}, env.configPath)
	require.NoError(t, err)

	var rep processor.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, pipeline.ModeTranscribeOnly, rep.Mode)
	assert.Equal(t, pipeline.StateDone, rep.State)
	assert.Empty(t, rep.Analysis)
}

func TestRunCommandMissingTemplate(t *testing.T) {
	env := setupCLITestEnv(t, true, false)
	out, _, err := runCLI(t, []string{"run", filepath.Join(env.dir, "puntata.mp3")}, env.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "prompt template not found")
	assert.Contains(t, out, "== Transcript ==")
	assert.Contains(t, out, "== Hint ==")
}

func TestRunCommandRejectsUnsupportedFile(t *testing.T) {
	env := setupCLITestEnv(t, true, true)
	notes := filepath.Join(env.dir, "notes.txt")
	require.NoError(t, os.WriteFile(notes, []byte("x"), 0o644))

	_, _, err := runCLI(t, []string{"run", notes}, env.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported media format")
}

func TestRunCommandNeedsKey(t *testing.T) {
	env := setupCLITestEnv(t, false, true)
	prev := newPrompter
	newPrompter = func() credentials.Prompter { return nil }
	t.Cleanup(func() { newPrompter = prev })

	_, _, err := runCLI(t, []string{"run", filepath.Join(env.dir, "puntata.mp3")}, env.configPath)
	assert.ErrorIs(t, err, credentials.ErrCredentialMissing)
}

func TestPromptCommand(t *testing.T) {
	env := setupCLITestEnv(t, false, true)
	transcript := filepath.Join(env.dir, "t.txt")
	require.NoError(t, os.WriteFile(transcript, []byte("riga uno\nriga due"), 0o644))

	out, _, err := runCLI(t, []string{"prompt", transcript}, env.configPath)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(out, "Scrivi un articolo.\n\n<esempi>\n"))
	assert.Contains(t, out, "            EX-1\n")
	assert.Contains(t, out, "<input>\n    riga uno riga due\n</input>\n")
}

func TestCheckCommand(t *testing.T) {
	env := setupCLITestEnv(t, true, false)
	out, _, err := runCLI(t, []string{"check"}, env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "Prompt template")
	assert.Contains(t, out, "prompt template not found")
	assert.Contains(t, out, "1/1")
	assert.Contains(t, out, "25 MiB")
	assert.Contains(t, out, "transcription, analysis")
}

func TestBatchCommand(t *testing.T) {
	env := setupCLITestEnv(t, true, true)
	f := excelize.NewFile()
	rows := [][]interface{}{{"id", "file", "transcribe_only"}, {"ep1", "puntata.mp3", ""}, {"ep2", "missing.mp3", ""}}
	for i := range rows {
		cellName, _ := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, f.SetSheetRow("Sheet1", cellName, &rows[i]))
	}
	manifest := filepath.Join(env.dir, "manifest.xlsx")
	require.NoError(t, f.SaveAs(manifest))
	require.NoError(t, f.Close())

	report := filepath.Join(env.dir, "report.xlsx")
	out, _, err := runCLI(t, []string{"batch", manifest, "--out", report}, env.configPath)
	require.NoError(t, err)
	assert.Contains(t, out, "[1/2] ep1: done")
	assert.Contains(t, out, "[2/2] ep2: transcription_failed")
	assert.Contains(t, out, "Report written to")

	rf, err := excelize.OpenFile(report)
	require.NoError(t, err)
	defer rf.Close()
	got, err := rf.GetRows("results")
	require.NoError(t, err)
	assert.Len(t, got, 3)
}

func TestBatchCommandRequiresOut(t *testing.T) {
	env := setupCLITestEnv(t, true, true)
	_, _, err := runCLI(t, []string{"batch", "manifest.xlsx"}, env.configPath)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "out")
}
