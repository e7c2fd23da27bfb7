package reporting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/xuri/excelize/v2"

	"github.com/tygwan/risk-engine/internal/state"
)

// ExcelReporter exports the persisted engine state as an Excel workbook
// with one sheet for decisions and one for the portfolio summary
type ExcelReporter struct{}

// ExcelStyles holds the style IDs shared across sheets
type ExcelStyles struct {
	HeaderStyle   int
	CurrencyStyle int
	PercentStyle  int
	RedStyle      int
	GreenStyle    int
}

// NewExcelReporter creates a new Excel reporter
func NewExcelReporter() *ExcelReporter {
	return &ExcelReporter{}
}

// WriteDecisionsXLSX writes the decision audit trail and portfolio summary
// to an Excel file
func (r *ExcelReporter) WriteDecisionsXLSX(engineState *state.EngineState, path string) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create directory %s: %w", dir, err)
		}
	}

	fx := excelize.NewFile()
	defer fx.Close()

	const decisionsSheet = "Decisions"
	const summarySheet = "Summary"

	fx.SetSheetName(fx.GetSheetName(0), decisionsSheet)
	fx.NewSheet(summarySheet)

	styles, err := r.createStyles(fx)
	if err != nil {
		return err
	}

	if err := r.writeDecisionsSheet(fx, decisionsSheet, engineState, styles); err != nil {
		return err
	}
	if err := r.writeSummarySheet(fx, summarySheet, engineState, styles); err != nil {
		return err
	}

	return fx.SaveAs(path)
}

func (r *ExcelReporter) createStyles(fx *excelize.File) (ExcelStyles, error) {
	var styles ExcelStyles
	var err error

	styles.HeaderStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{
			Bold:   true,
			Size:   11,
			Color:  "FFFFFF",
			Family: "Calibri",
		},
		Fill: excelize.Fill{
			Type:    "pattern",
			Color:   []string{"2F4F4F"},
			Pattern: 1,
		},
		Alignment: &excelize.Alignment{
			Horizontal: "center",
			Vertical:   "center",
		},
	})
	if err != nil {
		return styles, err
	}

	styles.CurrencyStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    7,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.PercentStyle, err = fx.NewStyle(&excelize.Style{
		NumFmt:    9,
		Alignment: &excelize.Alignment{Horizontal: "right"},
	})
	if err != nil {
		return styles, err
	}

	styles.RedStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "FF0000"},
	})
	if err != nil {
		return styles, err
	}

	styles.GreenStyle, err = fx.NewStyle(&excelize.Style{
		Font: &excelize.Font{Color: "008000"},
	})
	return styles, err
}

func (r *ExcelReporter) writeDecisionsSheet(fx *excelize.File, sheet string, engineState *state.EngineState, styles ExcelStyles) error {
	headers := []string{"Timestamp", "ID", "Outcome", "Violated Rule", "Risk Score", "Recommended Size", "Reason"}
	for i, h := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		fx.SetCellValue(sheet, cell, h)
	}
	headerEnd, _ := excelize.CoordinatesToCellName(len(headers), 1)
	fx.SetCellStyle(sheet, "A1", headerEnd, styles.HeaderStyle)

	for i, a := range engineState.Assessments {
		row := i + 2

		outcome := "APPROVED"
		outcomeStyle := styles.GreenStyle
		rule := ""
		if !a.Approved {
			outcome = "REJECTED"
			outcomeStyle = styles.RedStyle
			rule = string(a.ViolatedRule)
		}

		fx.SetCellValue(sheet, fmt.Sprintf("A%d", row), a.Timestamp.Format("2006-01-02 15:04:05"))
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", row), a.ID)
		fx.SetCellValue(sheet, fmt.Sprintf("C%d", row), outcome)
		fx.SetCellStyle(sheet, fmt.Sprintf("C%d", row), fmt.Sprintf("C%d", row), outcomeStyle)
		fx.SetCellValue(sheet, fmt.Sprintf("D%d", row), rule)
		fx.SetCellValue(sheet, fmt.Sprintf("E%d", row), a.RiskScore)
		fx.SetCellValue(sheet, fmt.Sprintf("F%d", row), a.RecommendedSize)
		fx.SetCellStyle(sheet, fmt.Sprintf("F%d", row), fmt.Sprintf("F%d", row), styles.CurrencyStyle)
		fx.SetCellValue(sheet, fmt.Sprintf("G%d", row), a.Reason)
	}

	fx.SetColWidth(sheet, "A", "A", 20)
	fx.SetColWidth(sheet, "B", "B", 38)
	fx.SetColWidth(sheet, "D", "D", 24)
	fx.SetColWidth(sheet, "G", "G", 60)

	return nil
}

func (r *ExcelReporter) writeSummarySheet(fx *excelize.File, sheet string, engineState *state.EngineState, styles ExcelStyles) error {
	pf := engineState.Portfolio

	approved := 0
	rejected := 0
	for _, a := range engineState.Assessments {
		if a.Approved {
			approved++
		} else {
			rejected++
		}
	}

	rows := []struct {
		label string
		value interface{}
		style int
	}{
		{"Session Start", engineState.SessionStart.Format("2006-01-02 15:04:05"), 0},
		{"State Saved", engineState.SavedAt.Format("2006-01-02 15:04:05"), 0},
		{"Portfolio Value", pf.TotalValue, styles.CurrencyStyle},
		{"Peak Value", pf.PeakValue, styles.CurrencyStyle},
		{"Drawdown", pf.Drawdown, styles.PercentStyle},
		{"Breaker State", pf.BreakerState, 0},
		{"Total Exposure", pf.TotalExposure, styles.CurrencyStyle},
		{"Open Positions", len(pf.OpenPositions), 0},
		{"Consecutive Losses", pf.ConsecutiveLosses, 0},
		{"Decisions Recorded", len(engineState.Assessments), 0},
		{"Approved", approved, 0},
		{"Rejected", rejected, 0},
	}

	fx.SetCellValue(sheet, "A1", "Metric")
	fx.SetCellValue(sheet, "B1", "Value")
	fx.SetCellStyle(sheet, "A1", "B1", styles.HeaderStyle)

	for i, row := range rows {
		n := i + 2
		fx.SetCellValue(sheet, fmt.Sprintf("A%d", n), row.label)
		fx.SetCellValue(sheet, fmt.Sprintf("B%d", n), row.value)
		if row.style != 0 {
			fx.SetCellStyle(sheet, fmt.Sprintf("B%d", n), fmt.Sprintf("B%d", n), row.style)
		}
	}

	fx.SetColWidth(sheet, "A", "A", 24)
	fx.SetColWidth(sheet, "B", "B", 24)

	return nil
}

// WriteDecisionsXLSX is a package-level convenience function
func WriteDecisionsXLSX(engineState *state.EngineState, path string) error {
	reporter := NewExcelReporter()
	return reporter.WriteDecisionsXLSX(engineState, path)
}
