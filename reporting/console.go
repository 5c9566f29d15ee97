package reporting

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	"github.com/acarl005/stripansi"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/ethereum-optimism/infra/asmtest/types"
)

// ConsoleConfig holds configuration for creating a new Console
type ConsoleConfig struct {
	Out          io.Writer // receives the report, usually stdout
	ReportFile   string    // optional plain text copy of everything written to Out
	Color        bool      // color PASS and FAIL markers
	SummaryTable bool      // print a per-suite table before the final line
}

// Console prints case results as they complete, one line per case followed
// by its mismatch messages, and the tally once the run is over.
type Console struct {
	out          io.Writer
	mirror       *os.File
	color        bool
	summaryTable bool
	err          error
}

func NewConsole(cfg ConsoleConfig) (*Console, error) {
	if cfg.Out == nil {
		cfg.Out = os.Stdout
	}
	c := &Console{
		out:          cfg.Out,
		color:        cfg.Color,
		summaryTable: cfg.SummaryTable,
	}
	if cfg.ReportFile != "" {
		if err := os.MkdirAll(filepath.Dir(cfg.ReportFile), 0755); err != nil {
			return nil, fmt.Errorf("failed to create report directory: %w", err)
		}
		f, err := os.Create(cfg.ReportFile)
		if err != nil {
			return nil, fmt.Errorf("failed to create report file: %w", err)
		}
		c.mirror = f
	}
	return c, nil
}

func (c *Console) CaseCompleted(outcome types.CaseOutcome) {
	marker := "PASS"
	if c.color {
		marker = text.FgGreen.Sprint(marker)
	}
	if !outcome.Passed {
		marker = "FAIL"
		if c.color {
			marker = text.FgRed.Sprint(marker)
		}
	}
	c.printf("[%s] %s: %s\n", marker, outcome.Suite, outcome.CaseName)
	for _, msg := range outcome.Messages {
		c.printf("  %s\n", msg)
	}
}

func (c *Console) SuiteFailed(suiteErr types.SuiteError) {
	marker := "ERROR"
	if c.color {
		marker = text.Colors{text.FgHiRed, text.Bold}.Sprint(marker)
	}
	c.printf("[%s] %s: %s\n", marker, suiteErr.Suite, suiteErr.Message)
}

// Summary prints the optional summary table and the final tally line. The
// tally line is always printed, whatever the outcome of the run.
func (c *Console) Summary(result *types.RunResult) {
	if c.summaryTable {
		c.printf("\n%s\n", c.renderTable(result))
	}
	c.printf("\n%s\n", result.Tally)
}

func (c *Console) renderTable(result *types.RunResult) string {
	t := table.NewWriter()
	t.SetTitle(fmt.Sprintf("asmtest results (%s)", formatDuration(result.Duration)))
	t.AppendHeader(table.Row{"Suite", "Cases", "Passed", "Failed", "Duration", "Status"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Suite", WidthMax: 60, WidthMaxEnforcer: text.WrapSoft},
		{Name: "Cases", Align: text.AlignRight},
		{Name: "Passed", Align: text.AlignRight},
		{Name: "Failed", Align: text.AlignRight},
		{Name: "Duration", Align: text.AlignRight},
	})

	for _, s := range result.Suites {
		t.AppendRow(table.Row{
			s.ID,
			s.Tally.Total,
			s.Tally.Successful,
			s.Tally.Failed(),
			formatDuration(s.Duration),
			getResultString(s.Status()),
		})
	}
	if len(result.SuiteErrors) > 0 {
		t.AppendSeparator()
		for _, e := range result.SuiteErrors {
			t.AppendRow(table.Row{e.Suite, "-", "-", "-", "-", getResultString(types.TestStatusError) + " (" + string(e.Reason) + ")"})
		}
	}

	t.AppendFooter(table.Row{
		"TOTAL",
		result.Tally.Total,
		result.Tally.Successful,
		result.Tally.Failed(),
		formatDuration(result.Duration),
		getResultString(result.Status()),
	})

	if c.color {
		switch result.Status() {
		case types.TestStatusPass:
			t.SetStyle(table.StyleColoredBlackOnGreenWhite)
		case types.TestStatusError:
			t.SetStyle(table.StyleColoredBlackOnYellowWhite)
		default:
			t.SetStyle(table.StyleColoredBlackOnRedWhite)
		}
	} else {
		t.SetStyle(table.StyleLight)
	}
	return t.Render()
}

// Err returns the first error hit while writing the report.
func (c *Console) Err() error {
	return c.err
}

// Close flushes and closes the report file, if any.
func (c *Console) Close() error {
	if c.mirror == nil {
		return c.err
	}
	err := c.mirror.Close()
	c.mirror = nil
	if c.err != nil {
		return c.err
	}
	if err != nil {
		return fmt.Errorf("failed to close report file: %w", err)
	}
	return nil
}

func (c *Console) printf(format string, args ...any) {
	line := fmt.Sprintf(format, args...)
	if _, err := io.WriteString(c.out, line); err != nil && c.err == nil {
		c.err = fmt.Errorf("failed to write report: %w", err)
	}
	if c.mirror == nil {
		return
	}
	if _, err := io.WriteString(c.mirror, stripansi.Strip(line)); err != nil && c.err == nil {
		c.err = fmt.Errorf("failed to write report file: %w", err)
	}
}

func getResultString(status types.TestStatus) string {
	switch status {
	case types.TestStatusPass:
		return "✓ pass"
	case types.TestStatusError:
		return "! error"
	default:
		return "✗ fail"
	}
}

// Helper function to format duration to seconds with 1 decimal place
func formatDuration(d time.Duration) string {
	return fmt.Sprintf("%.1fs", d.Seconds())
}
