package cli

import (
	"fmt"
	"io"
	"sort"
	"text/tabwriter"
	"time"

	"github.com/goccy/go-json"
	"github.com/lysyi3m/race-comb/app/ingest"
)

type OutputFormat string

const (
	FormatText OutputFormat = "text"
	FormatJSON OutputFormat = "json"
)

// WriteReport writes the run report in the requested format.
func WriteReport(w io.Writer, report *ingest.RunReport, format OutputFormat) error {
	switch format {
	case FormatJSON:
		return writeJSON(w, report)
	case FormatText:
		return writeText(w, report)
	default:
		return fmt.Errorf("unknown format: %s", format)
	}
}

func writeJSON(w io.Writer, report *ingest.RunReport) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(report)
}

func writeText(w io.Writer, report *ingest.RunReport) error {
	mode := ""
	if report.DryRun {
		mode = " (dry run)"
	}
	fmt.Fprintf(w, "Run %s%s\n", report.RunID, mode)
	fmt.Fprintf(w, "Duration: %s\n\n", report.FinishedAt.Sub(report.StartedAt).Round(time.Millisecond))

	if len(report.Providers) == 0 {
		fmt.Fprintln(w, "No providers ran.")
	} else {
		tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
		fmt.Fprintln(tw, "PROVIDER\tFETCHED\tNORMALIZED\tREJECTED\tCREATED\tUPDATED\tSKIPPED\tFAILED\tCLEANUP")
		for _, name := range report.ProviderNames() {
			p := report.Providers[name]
			writeRow(tw, name, p.Counters, yesNo(p.CleanupEligible))
		}
		writeRow(tw, "TOTAL", report.Totals.Counters, "")
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if len(report.Totals.Rejections) > 0 {
		fmt.Fprintln(w, "\nRejections:")
		reasons := make([]string, 0, len(report.Totals.Rejections))
		for r := range report.Totals.Rejections {
			reasons = append(reasons, r)
		}
		sort.Strings(reasons)
		for _, r := range reasons {
			fmt.Fprintf(w, "  %s: %d\n", r, report.Totals.Rejections[r])
		}
	}

	if len(report.Failures) > 0 {
		fmt.Fprintf(w, "\nFailures (%d):\n", len(report.Failures))
		for _, f := range report.Failures {
			if f.URL != "" {
				fmt.Fprintf(w, "  [%s] %s %s: %s\n", f.Provider, f.Kind, f.URL, f.Reason)
			} else {
				fmt.Fprintf(w, "  [%s] %s: %s\n", f.Provider, f.Kind, f.Reason)
			}
		}
	}

	return nil
}

func writeRow(w io.Writer, name string, c ingest.Counters, cleanup string) {
	fmt.Fprintf(w, "%s\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s\n",
		name, c.Fetched, c.Normalized, c.Rejected, c.Created, c.Updated, c.Skipped, c.Failed, cleanup)
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
