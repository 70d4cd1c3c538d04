package cmd

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempFile(t *testing.T, dir, name, contents string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("writing %s: %v", path, err)
	}
	return path
}

func TestRunRun_WritesReportArtifacts(t *testing.T) {
	dir := t.TempDir()
	cfgPath := writeTempFile(t, dir, "config.txt", "num_gpus 1\nvram_bytes 8589934592\nmax_concurrent 2\nprefill_tps 1000\ndecode_tps 500\nkv_bytes_per_token 2048\n")
	tracePath := writeTempFile(t, dir, "trace.txt", "req1 0 200 400 0\nreq2 50 150 300 0\n")
	outDir := filepath.Join(dir, "out")

	runConfigPath, runTracePath, runOutDir = cfgPath, tracePath, outDir
	runSeed, runSeedSet = 0, false

	exitCode := -1
	origExit := exit
	exit = func(code int) { exitCode = code }
	defer func() { exit = origExit }()

	runRun(runCmd, nil)

	if exitCode != -1 {
		t.Fatalf("runRun() called exit(%d), want no exit", exitCode)
	}
	for _, f := range []string{"summary.json", "timeseries.csv", "events.jsonl", "run_meta.json"} {
		if _, err := os.Stat(filepath.Join(outDir, f)); err != nil {
			t.Errorf("missing report artifact %s: %v", f, err)
		}
	}
}

func TestRunRun_MissingTraceExitsNonzero(t *testing.T) {
	dir := t.TempDir()
	runConfigPath = filepath.Join(dir, "nonexistent-config.txt")
	runTracePath = filepath.Join(dir, "nonexistent-trace.txt")
	runOutDir = filepath.Join(dir, "out")
	runSeed, runSeedSet = 0, false

	exitCode := -1
	origExit := exit
	exit = func(code int) { exitCode = code }
	defer func() { exit = origExit }()

	runRun(runCmd, nil)

	if exitCode != 1 {
		t.Errorf("runRun() exit code = %d, want 1", exitCode)
	}
}
