package ci

import (
	"fmt"
	"sort"

	"golang.org/x/tools/cover"
)

// FileCoverage is the statement coverage of one source file.
type FileCoverage struct {
	File       string
	Statements int64
	Covered    int64
}

// Percent returns covered statements as a percentage of all statements.
func (f FileCoverage) Percent() float64 {
	if f.Statements == 0 {
		return 0
	}
	return 100 * float64(f.Covered) / float64(f.Statements)
}

// CoverageSummary totals a coverage profile.
type CoverageSummary struct {
	Mode  string
	Total FileCoverage
	Files []FileCoverage
}

// Summarize reads a coverage profile as written by go test -coverprofile
// and totals statement coverage per file, sorted by file name.
func Summarize(profilePath string) (*CoverageSummary, error) {
	profiles, err := cover.ParseProfiles(profilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to parse coverage profile: %w", err)
	}

	summary := &CoverageSummary{Total: FileCoverage{File: "total"}}
	for _, p := range profiles {
		summary.Mode = p.Mode
		fc := FileCoverage{File: p.FileName}
		for _, b := range p.Blocks {
			fc.Statements += int64(b.NumStmt)
			if b.Count > 0 {
				fc.Covered += int64(b.NumStmt)
			}
		}
		summary.Files = append(summary.Files, fc)
		summary.Total.Statements += fc.Statements
		summary.Total.Covered += fc.Covered
	}
	sort.Slice(summary.Files, func(i, j int) bool {
		return summary.Files[i].File < summary.Files[j].File
	})
	return summary, nil
}
