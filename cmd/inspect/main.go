// Command inspect prints the metadata, shape, and aperture mask of
// local target pixel files.
package main

import (
	"flag"
	"fmt"
	"log"
	"math"

	"github.com/skywatch-data/lightcurve.report/internal/tpf"
)

func main() {
	var showHeader bool
	flag.BoolVar(&showHeader, "header", false, "dump the primary header cards")
	flag.Parse()

	if flag.NArg() == 0 {
		log.Fatalf("usage: inspect [-header] file.fits [file2.fits ...]")
	}

	for _, path := range flag.Args() {
		if err := inspect(path, showHeader); err != nil {
			log.Fatalf("%s: %v", path, err)
		}
	}
}

func inspect(path string, showHeader bool) error {
	t, err := tpf.Open(path)
	if err != nil {
		return err
	}

	rows, cols := t.Shape()
	fmt.Printf("%s\n", path)
	fmt.Printf("  object:   %s\n", t.Object())
	fmt.Printf("  mission:  %s\n", t.Mission())
	if period := t.ObservingPeriod(); period >= 0 {
		fmt.Printf("  period:   %d\n", period)
	}
	fmt.Printf("  shape:    %d x %d pixels\n", rows, cols)
	fmt.Printf("  cadences: %d\n", t.NCadences())

	if start, end, ok := timeRange(t); ok {
		fmt.Printf("  time:     %.5f .. %.5f (%s)\n", start, end, t.TimeScale())
	}
	if ra, dec := t.RADec(); !math.IsNaN(ra) && !math.IsNaN(dec) {
		fmt.Printf("  ra/dec:   %.5f, %.5f\n", ra, dec)
	}

	pipeline := t.PipelineAperture()
	fmt.Printf("  aperture: %d pipeline pixel(s)\n", pipeline.CountSelected())
	for r := rows - 1; r >= 0; r-- {
		fmt.Printf("    ")
		for c := 0; c < cols; c++ {
			bits := t.ApertureAt(r, c)
			switch {
			case bits&tpf.AperturePipeline != 0:
				fmt.Print("#")
			case bits&tpf.ApertureCollected != 0:
				fmt.Print("+")
			default:
				fmt.Print(".")
			}
		}
		fmt.Println()
	}

	if showHeader {
		fmt.Println("  primary header:")
		for _, card := range t.PrimaryHeader().Cards() {
			if card.Comment != "" {
				fmt.Printf("    %-8s = %s / %s\n", card.Keyword, card.Value, card.Comment)
			} else {
				fmt.Printf("    %-8s = %s\n", card.Keyword, card.Value)
			}
		}
	}
	return nil
}

// timeRange returns the first and last finite timestamps.
func timeRange(t *tpf.TargetPixelFile) (float64, float64, bool) {
	start, end := math.NaN(), math.NaN()
	for i := 0; i < t.NCadences(); i++ {
		if v := t.Time(i); !math.IsNaN(v) {
			start = v
			break
		}
	}
	for i := t.NCadences() - 1; i >= 0; i-- {
		if v := t.Time(i); !math.IsNaN(v) {
			end = v
			break
		}
	}
	return start, end, !math.IsNaN(start)
}
