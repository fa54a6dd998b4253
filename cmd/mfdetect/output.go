package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/fatih/color"

	"github.com/cwbudde/algo-matchfilter/detect"
	"github.com/cwbudde/algo-matchfilter/template"
)

var (
	headerColor = color.New(color.Bold)
	countColor  = color.New(color.FgGreen)
	emptyColor  = color.New(color.FgHiBlack)
)

// printParty writes one line per family followed by its detections.
func printParty(w io.Writer, party *detect.Party) {
	headerColor.Fprintf(w, "%d detections from %d templates\n", party.Len(), len(party.Families()))

	for _, f := range party.Families() {
		if f.Len() == 0 {
			emptyColor.Fprintf(w, "  %s: no detections\n", f.Name())
			continue
		}

		fmt.Fprintf(w, "  %s: %s\n", f.Name(), countColor.Sprintf("%d detections", f.Len()))

		for _, d := range f.Detections {
			fmt.Fprintf(w, "    %s  %+.4f  (threshold %.4f, %d channels)\n",
				d.DetectTime.UTC().Format("2006-01-02T15:04:05.000000Z"), d.DetectVal, d.Threshold, d.NoChans)
		}
	}
}

// printGroups lists the compatible template groups of a tribe.
func printGroups(w io.Writer, tribe *template.Tribe) {
	groups := tribe.Groups()
	headerColor.Fprintf(w, "%d templates in %d groups\n", tribe.Len(), len(groups))

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "GROUP\tTEMPLATES\tPROCESSING\tNAMES")

	for i, g := range groups {
		names := ""
		for j, t := range g {
			if j > 0 {
				names += ","
			}

			names += t.Name
		}

		fmt.Fprintf(tw, "%d\t%d\t%s\t%s\n", i+1, len(g), g[0].Processing, names)
	}

	tw.Flush()
}
