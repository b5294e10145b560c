package cmd

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/mattn/go-isatty"
	"github.com/slabworks/certlister/internal/export"
	"github.com/slabworks/certlister/internal/models"
)

const titleWidth = 60

func writeJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

func isTerminal(w io.Writer) bool {
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	fd := file.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

// resolveFormat picks table output for terminals and JSON for pipes when the
// user did not ask for a format.
func resolveFormat(format string, w io.Writer) (string, error) {
	format = strings.ToLower(strings.TrimSpace(format))
	switch format {
	case "":
		if isTerminal(w) {
			return "table", nil
		}
		return "json", nil
	case "table", "json", "yaml":
		return format, nil
	default:
		return "", fmt.Errorf("unsupported format: %s (use table, json or yaml)", format)
	}
}

func writeBatchResult(w io.Writer, format, input string, result *models.BatchResult) error {
	switch format {
	case "json":
		return writeJSON(w, result)
	case "yaml":
		return export.WriteYAML(w, input, result, time.Now())
	default:
		_, err := fmt.Fprintln(w, renderBatchTable(result))
		return err
	}
}

// renderBatchTable lists every certificate in input order with its title or
// the reason it failed.
func renderBatchTable(result *models.BatchResult) string {
	tw := table.NewWriter()
	tw.SetStyle(table.StyleRounded)
	tw.AppendHeader(table.Row{"Cert", "Status", "Title / Error"})

	for _, r := range result.Results {
		title := ""
		if r.Listing != nil {
			title = r.Listing.Title
		}
		tw.AppendRow(table.Row{r.CertNumber, "ok", title})
	}
	for _, e := range result.Errors {
		tw.AppendRow(table.Row{e.CertNumber, "failed", e.Error})
	}

	tw.AppendFooter(table.Row{"", "", fmt.Sprintf("%d processed, %d ok, %d failed", result.TotalProcessed, result.Successful, result.Failed)})
	tw.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight, AlignHeader: text.AlignLeft},
		{Number: 3, WidthMax: titleWidth},
	})
	return tw.Render()
}
