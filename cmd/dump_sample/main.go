// dump_sample runs the seed and the index inspector, writing all output to
// cmd/sample_run_output.txt. Run from repo root: go run ./cmd/dump_sample
package main

import (
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
)

const (
	baseDir    = "databases/demo"
	outputFile = "cmd/sample_run_output.txt"
)

func main() {
	outPath := outputFile
	// If run from cmd/dump_sample, output next to binary
	if _, err := os.Stat("cmd"); os.IsNotExist(err) {
		outPath = "sample_run_output.txt"
	}

	f, err := os.Create(outPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "create output file: %v\n", err)
		os.Exit(1)
	}
	defer f.Close()

	root := repoRoot()
	steps := []struct {
		title string
		args  []string
	}{
		{"SEED (file backend, three indexes)", []string{"run", "./cmd/seed", "-root", baseDir}},
		{"INSPECT every index", []string{"run", "./cmd/inspect_idx", baseDir}},
		{"SEED (pebble backend)", []string{"run", "./cmd/seed", "-root", baseDir + "_pebble", "-pebble"}},
		{"INSPECT grades (pebble)", []string{"run", "./cmd/inspect_idx", baseDir + "_pebble", "grades"}},
	}
	for _, step := range steps {
		fmt.Fprintf(f, "========== %s ==========\n", step.title)
		cmd := exec.Command("go", step.args...)
		cmd.Stdout = f
		cmd.Stderr = f
		cmd.Dir = root
		if err := cmd.Run(); err != nil {
			fmt.Fprintf(f, "%s exited with error: %v\n", step.args[1], err)
		}
		fmt.Fprintln(f)
	}

	fmt.Printf("Output written to %s\n", outPath)
}

func repoRoot() string {
	dir, err := os.Getwd()
	if err != nil {
		return "."
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return dir
		}
		dir = parent
	}
}
