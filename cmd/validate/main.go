package main

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"casefile/pkg/casedef"
)

func main() {
	if len(os.Args) < 2 {
		fmt.Fprintf(os.Stderr, "Usage: %s <case-file> [<case-file>...]\n", os.Args[0])
		os.Exit(1)
	}

	failed := false
	for _, filename := range os.Args[1:] {
		validator := &CaseValidator{}
		if err := validator.validateFile(filename); err != nil {
			fmt.Fprintf(os.Stderr, "Validation failed: %v\n", err)
			failed = true
			continue
		}
		fmt.Printf("%s is valid\n", filename)
	}

	if failed {
		os.Exit(1)
	}
}

type CaseValidator struct {
	errors []string
}

func (v *CaseValidator) validateFile(filename string) error {
	fmt.Printf("Validating %s...\n", filename)

	baseName := filepath.Base(filename)
	ext := strings.ToLower(filepath.Ext(baseName))
	if ext != ".json" && ext != ".yaml" && ext != ".yml" {
		return fmt.Errorf("case file must have .json, .yaml or .yml extension: %s", baseName)
	}

	nameWithoutExt := strings.TrimSuffix(baseName, ext)
	if !isValidCaseFilename(nameWithoutExt) {
		return fmt.Errorf("case filename '%s' must be lowercase snake_case (e.g., muddy_footprints.json)", baseName)
	}

	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("failed to read file %s: %w", filename, err)
	}

	cd, err := casedef.Parse(data, baseName)
	if err != nil {
		return err
	}

	v.errors = nil
	v.validateCase(cd)

	if len(v.errors) > 0 {
		return fmt.Errorf("validation errors in %s:\n%s", filename, strings.Join(v.errors, "\n"))
	}
	return nil
}

// validateCase applies style checks beyond the structural validation
// Parse already ran: snake_case IDs and solvability warnings.
func (v *CaseValidator) validateCase(cd *casedef.CaseDefinition) {
	v.validateIDFormat("case ID", cd.ID)

	for _, clue := range cd.Clues {
		v.validateIDFormat("clue ID", clue.ID)
	}
	for _, s := range cd.Suspects {
		v.validateIDFormat("suspect ID", s.ID)
	}

	if len(cd.Suspects) < 2 {
		v.addError(fmt.Sprintf("case '%s' has fewer than 2 suspects; accusations are trivial", cd.ID))
	}

	// Every required clue must be reachable from the prerequisite roots
	discovered := make(map[string]bool)
	for {
		progressed := false
		for _, clue := range cd.EligibleClues(discovered) {
			discovered[clue.ID] = true
			progressed = true
		}
		if !progressed {
			break
		}
	}
	for _, id := range cd.Solution.RequiredClueIDs {
		if !discovered[id] {
			v.addError(fmt.Sprintf("required clue '%s' can never become eligible", id))
		}
	}
}

func (v *CaseValidator) validateIDFormat(fieldName, id string) {
	if id == "" {
		return
	}
	if !isValidID(id) {
		v.addError(fmt.Sprintf("%s '%s' should be lowercase snake_case", fieldName, id))
	}
}

func (v *CaseValidator) addError(msg string) {
	v.errors = append(v.errors, "  - "+msg)
}

var (
	validIDRegex       = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
	validFilenameRegex = regexp.MustCompile(`^[a-z][a-z0-9_]*[a-z0-9]$|^[a-z]$`)
)

func isValidID(id string) bool {
	return validIDRegex.MatchString(id)
}

func isValidCaseFilename(name string) bool {
	return validFilenameRegex.MatchString(name)
}
