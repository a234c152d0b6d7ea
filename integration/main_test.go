//go:build integration
// +build integration

package integration

import (
	"context"
	"flag"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"casefile/integration/runner"
)

var suiteFlag = flag.String("suite", "", "Name of a single suite to run (from integration/suites/)")
var errFlag = flag.String("err", "continue", "Error handling mode: 'continue' (run all steps) or 'exit' (stop on first failure)")

func TestMain(m *testing.M) {
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}

	fmt.Printf("Running Casefile Integration Tests\n")
	fmt.Printf("   API Base URL: %s\n", apiBaseURL)

	code := m.Run()
	os.Exit(code)
}

func TestIntegrationSuites(t *testing.T) {
	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}
	timeoutSeconds := getIntEnv("TEST_TIMEOUT_SECONDS", 30)

	testRunner := runner.NewRunner(apiBaseURL)
	testRunner.Timeout = time.Duration(timeoutSeconds) * time.Second
	testRunner.ErrorHandlingMode = runner.ErrorHandlingContinue
	testRunner.Logger = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}

	suiteFiles, err := discoverSuiteFiles("suites")
	if err != nil {
		t.Fatalf("Failed to discover suite files: %v", err)
	}
	if len(suiteFiles) == 0 {
		t.Fatal("No suite files found in suites directory")
	}

	var jobs []runner.TestJob
	for _, file := range suiteFiles {
		job, err := runner.LoadTestSuite(file)
		if err != nil {
			t.Errorf("Failed to load suite %s: %v", file, err)
			continue
		}
		jobs = append(jobs, job)
	}
	if len(jobs) == 0 {
		t.Fatal("No valid suites loaded")
	}

	t.Logf("Loaded %d suites", len(jobs))
	for _, job := range jobs {
		t.Logf("   - %s (%d steps)", job.Name, len(job.Suite.Steps))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	var failed []string
	var passed []string

	for i, job := range jobs {
		t.Logf("[%d/%d] Running suite: %s (%d steps)", i+1, len(jobs), job.Name, len(job.Suite.Steps))

		result, err := testRunner.RunSuite(ctx, job.Suite)
		if err != nil && result.Error == nil {
			result.Error = err
		}
		result.Job = job

		t.Logf("Player ID: %s", result.PlayerID)

		if result.Error != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", job.Name, result.Error))
			t.Errorf("[%d/%d] FAILED: Suite '%s' failed: %v", i+1, len(jobs), job.Name, result.Error)
		} else {
			passed = append(passed, job.Name)
			t.Logf("[%d/%d] PASSED: Suite '%s' completed in %v", i+1, len(jobs), job.Name, result.Duration)
		}

		for _, stepResult := range result.Results {
			if stepResult.Success {
				t.Logf("   ✓ %s (%v)", stepResult.StepName, stepResult.Duration)
			} else {
				t.Errorf("   ✗ %s: %v", stepResult.StepName, stepResult.Error)
			}
		}
		t.Logf("")
	}

	t.Logf("\nIntegration Test Summary:")
	t.Logf("   Passed: %d", len(passed))
	t.Logf("   Failed: %d", len(failed))

	if len(failed) > 0 {
		t.Logf("\nFailed suites:")
		for _, failure := range failed {
			t.Logf("   - %s", failure)
		}
		t.Fatalf("Integration tests failed")
	}
}

// TestSingleSuite allows running individual suites for debugging.
// Supports multiple suites comma-separated: -suite "a,b,c"
func TestSingleSuite(t *testing.T) {
	flag.Parse()

	if *suiteFlag == "" {
		t.Skip("Skipping single suite test (use -suite flag to run)")
	}

	if *errFlag != "exit" && *errFlag != "continue" {
		t.Fatalf("Invalid -err flag value: %s (must be 'exit' or 'continue')", *errFlag)
	}

	var suiteFiles []string
	for _, name := range strings.Split(*suiteFlag, ",") {
		name = strings.TrimSpace(name)
		if name == "" {
			continue
		}
		file := "suites/" + name
		if !strings.HasSuffix(file, ".json") {
			file += ".json"
		}
		suiteFiles = append(suiteFiles, file)
	}
	if len(suiteFiles) == 0 {
		t.Fatalf("No valid suites found in -suite flag: %s", *suiteFlag)
	}

	apiBaseURL := os.Getenv("API_BASE_URL")
	if apiBaseURL == "" {
		apiBaseURL = "http://localhost:8080"
	}
	timeoutSeconds := getIntEnv("TEST_TIMEOUT_SECONDS", 30)

	testRunner := runner.NewRunner(apiBaseURL)
	testRunner.Timeout = time.Duration(timeoutSeconds) * time.Second
	testRunner.ErrorHandlingMode = runner.ErrorHandlingMode(*errFlag)
	testRunner.Logger = func(format string, args ...interface{}) {
		fmt.Printf(format+"\n", args...)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	failures := 0
	for i, suiteFile := range suiteFiles {
		job, err := runner.LoadTestSuite(suiteFile)
		if err != nil {
			t.Errorf("[%d/%d] Failed to load suite %s: %v", i+1, len(suiteFiles), suiteFile, err)
			failures++
			continue
		}

		t.Logf("[%d/%d] Running suite: %s", i+1, len(suiteFiles), job.Name)
		result, err := testRunner.RunSuite(ctx, job.Suite)
		if err != nil && result.Error == nil {
			result.Error = err
		}

		t.Logf("Player ID: %s", result.PlayerID)
		for _, stepResult := range result.Results {
			if stepResult.Success {
				t.Logf("   ✓ %s (%v)", stepResult.StepName, stepResult.Duration)
			} else {
				t.Errorf("   ✗ %s: %v", stepResult.StepName, stepResult.Error)
			}
		}

		if result.Error != nil {
			failures++
			t.Errorf("[%d/%d] FAILED: Suite '%s' failed: %v", i+1, len(suiteFiles), job.Name, result.Error)
			if *errFlag == "exit" {
				t.Fatalf("Suite(s) had errors")
			}
		} else {
			t.Logf("[%d/%d] PASSED: Suite '%s' completed in %v", i+1, len(suiteFiles), job.Name, result.Duration)
		}
		t.Logf("--------------------------------")
	}

	if failures > 0 {
		t.Fatalf("Suite(s) had errors")
	}
}

func discoverSuiteFiles(dir string) ([]string, error) {
	var files []string
	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if !info.IsDir() && strings.HasSuffix(path, ".json") {
			files = append(files, path)
		}
		return nil
	})
	return files, err
}

func getIntEnv(name string, defaultValue int) int {
	str := os.Getenv(name)
	if str == "" {
		return defaultValue
	}
	val, err := strconv.Atoi(str)
	if err != nil {
		return defaultValue
	}
	return val
}
