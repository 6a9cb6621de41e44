package tableio

import (
	"io"

	"github.com/agentic-research/kgtab/internal/table"
	"github.com/olekukonko/tablewriter"
)

// NAText is how RenderText shows NA cells.
const NAText = "NA"

// RenderText draws t as an aligned text grid with column names unchanged.
func RenderText(w io.Writer, t *table.Table) error {
	tw := tablewriter.NewWriter(w)
	tw.SetHeader(t.Names())
	tw.SetAutoFormatHeaders(false)
	tw.SetAutoWrapText(false)
	for i := 0; i < t.NumRows(); i++ {
		row := t.Row(i)
		rec := make([]string, len(row))
		for j, c := range row {
			if c.NA {
				rec[j] = NAText
				continue
			}
			s, err := cellText(c)
			if err != nil {
				return err
			}
			rec[j] = s
		}
		tw.Append(rec)
	}
	tw.Render()
	return nil
}
