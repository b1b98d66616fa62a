package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/dustin/go-humanize"
	"github.com/mattn/go-isatty"

	"github.com/veykal/dux/internal/breakdown"
	"github.com/veykal/dux/internal/ops"
	"github.com/veykal/dux/internal/scan"
)

var (
	titleStyle = lipgloss.NewStyle().Bold(true)
	warnStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	faintStyle = lipgloss.NewStyle().Faint(true)
)

func render(w io.Writer, res *scan.Result, bd *breakdown.Result, opts *options, version string) error {
	if opts.jsonOut {
		env := ops.NewEnvelope(res, bd, version)
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(env)
	}

	styled := false
	if f, ok := w.(*os.File); ok {
		styled = isatty.IsTerminal(f.Fd())
	}
	return newRenderer(styled).render(w, res, bd)
}

// renderer writes the human-readable report. Styling is applied only to
// whole lines outside the tabwriter tables, since escape sequences would
// skew column widths.
type renderer struct {
	styled bool
}

func newRenderer(styled bool) *renderer {
	return &renderer{styled: styled}
}

func (r *renderer) style(st lipgloss.Style, s string) string {
	if !r.styled {
		return s
	}
	return st.Render(s)
}

func (r *renderer) render(w io.Writer, res *scan.Result, bd *breakdown.Result) error {
	fmt.Fprintln(w, r.style(titleStyle, fmt.Sprintf("Disk usage for %s", res.RootPath)))
	fmt.Fprintf(w, "Total: %s in %s directories (%s)\n",
		humanize.IBytes(uint64(res.TotalBytes)),
		humanize.Comma(res.Metadata.DirectoriesScanned),
		res.Metadata.Duration.Round(time.Millisecond))

	if res.Incomplete {
		fmt.Fprintln(w, r.style(warnStyle, fmt.Sprintf("Partial result: %s", reasonText(res.IncompleteReason))))
	}
	if res.SkippedCount > 0 {
		fmt.Fprintln(w, r.style(warnStyle, fmt.Sprintf("Skipped %d permission-denied directories", res.SkippedCount)))
	}

	if len(res.TopDirectories) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, r.style(titleStyle, "Top directories:"))
		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for i, d := range res.TopDirectories {
			fmt.Fprintf(tw, "  %d) %s\t%s\t(%.1f%%)\n",
				i+1, d.RelPath, humanize.IBytes(uint64(d.DirectBytes)), percent(d.DirectBytes, res.TotalBytes))
		}
		if err := tw.Flush(); err != nil {
			return err
		}
	}

	if bd == nil || len(bd.Parents) == 0 {
		return nil
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, r.style(titleStyle, "Breakdown:"))
	for _, parent := range bd.Parents {
		fmt.Fprintf(w, "\n%s  %s, %s files\n",
			r.style(titleStyle, parent.Path),
			humanize.IBytes(uint64(parent.Bytes)),
			humanize.Comma(int64(parent.FileCount)))

		tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
		for _, leaf := range parent.Leaves {
			fmt.Fprintf(tw, "  %s\t%s\t%s files\n",
				leaf.Path, humanize.IBytes(uint64(leaf.Bytes)), humanize.Comma(int64(leaf.FileCount)))
			for _, file := range leaf.Files {
				fmt.Fprintf(tw, "    %s\t%s\t\n", file.Name, humanize.IBytes(uint64(file.Bytes)))
			}
		}
		if err := tw.Flush(); err != nil {
			return err
		}
		if parent.Others != nil {
			fmt.Fprintln(w, r.style(faintStyle, fmt.Sprintf("  (others: %d directories, %s, %s files)",
				parent.Others.LeafDirs,
				humanize.IBytes(uint64(parent.Others.Bytes)),
				humanize.Comma(int64(parent.Others.FileCount)))))
		}
	}
	return nil
}

func reasonText(reason scan.StopReason) string {
	switch reason {
	case scan.StopCancelled:
		return "scan was cancelled"
	case scan.StopTimeLimit:
		return "time budget exhausted"
	case scan.StopDirLimit:
		return "directory budget exhausted"
	default:
		return string(reason)
	}
}

func percent(part, total int64) float64 {
	if total == 0 {
		return 0
	}
	return float64(part) / float64(total) * 100
}
