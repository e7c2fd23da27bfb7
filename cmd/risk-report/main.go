package main

import (
	"flag"
	"fmt"
	"log"
	"path/filepath"

	"github.com/tygwan/risk-engine/internal/state"
	"github.com/tygwan/risk-engine/pkg/reporting"
)

func main() {
	var (
		statePath = flag.String("state", filepath.Join("state", "engine_state.json"), "Path to the persisted engine state")
		limit     = flag.Int("limit", 30, "Number of recent decisions to print (0 = all)")
		xlsxPath  = flag.String("xlsx", "", "Export the audit trail to an Excel file")
		csvPath   = flag.String("csv", "", "Export the audit trail to a CSV file")
	)
	flag.Parse()

	engineState, err := state.LoadFrom(*statePath)
	if err != nil {
		log.Fatalf("Failed to load state from %s: %v", *statePath, err)
	}

	console := reporting.NewConsoleReporter()
	console.PrintSessionHeader(engineState.SessionStart, engineState.SavedAt)
	console.PrintRiskSummary(engineState.Portfolio, nil)
	console.PrintOpenPositions(engineState.Portfolio, nil)
	console.PrintDecisionLog(engineState.Assessments, *limit)

	if *xlsxPath != "" {
		if err := reporting.WriteDecisionsXLSX(engineState, *xlsxPath); err != nil {
			log.Fatalf("Failed to write Excel report: %v", err)
		}
		fmt.Printf("📄 Excel report written to %s\n", *xlsxPath)
	}

	if *csvPath != "" {
		if err := reporting.WriteDecisionsCSV(engineState.Assessments, *csvPath); err != nil {
			log.Fatalf("Failed to write CSV report: %v", err)
		}
		fmt.Printf("📄 CSV report written to %s\n", *csvPath)
	}
}
