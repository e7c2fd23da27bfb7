package reporting

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/tygwan/risk-engine/internal/risk"
)

// CSVReporter exports the decision audit trail as CSV
type CSVReporter struct{}

// NewCSVReporter creates a new CSV reporter
func NewCSVReporter() *CSVReporter {
	return &CSVReporter{}
}

// WriteDecisionsCSV writes assessments to a CSV file, newest last
func (r *CSVReporter) WriteDecisionsCSV(assessments []risk.RiskAssessment, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	defer w.Flush()

	if err := w.Write([]string{
		"Timestamp",
		"ID",
		"Outcome",
		"Violated_Rule",
		"Risk_Score",
		"Recommended_Size",
		"Reason",
	}); err != nil {
		return err
	}

	approved := 0
	for _, a := range assessments {
		outcome := "APPROVED"
		rule := ""
		if a.Approved {
			approved++
		} else {
			outcome = "REJECTED"
			rule = string(a.ViolatedRule)
		}

		row := []string{
			a.Timestamp.Format("2006-01-02 15:04:05"),
			a.ID,
			outcome,
			rule,
			fmt.Sprintf("%.4f", a.RiskScore),
			fmt.Sprintf("%.2f", a.RecommendedSize),
			strings.ReplaceAll(a.Reason, "\n", " "),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	summary := fmt.Sprintf("SUMMARY: total=%d; approved=%d; rejected=%d",
		len(assessments), approved, len(assessments)-approved)
	summaryRow := make([]string, 7)
	summaryRow[6] = summary
	return w.Write(summaryRow)
}

// WriteDecisionsCSV is a package-level convenience function
func WriteDecisionsCSV(assessments []risk.RiskAssessment, path string) error {
	reporter := NewCSVReporter()
	return reporter.WriteDecisionsCSV(assessments, path)
}
