// Command curve extracts an aperture-photometry light curve from a local
// target pixel file and writes it as CSV, PNG, or HTML depending on the
// output extension.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/skywatch-data/lightcurve.report/internal/lightcurve"
	"github.com/skywatch-data/lightcurve.report/internal/render"
	"github.com/skywatch-data/lightcurve.report/internal/tpf"
	"github.com/skywatch-data/lightcurve.report/internal/units"
)

func main() {
	var aperture string
	var sigma float64
	var qualityName string
	var scale string
	var normalize bool
	var bin, flatten int
	var foldPeriod, foldEpoch float64
	var output string

	flag.StringVar(&aperture, "aperture", "pipeline", "aperture mask: pipeline, threshold, or all")
	flag.Float64Var(&sigma, "sigma", 3.0, "sigma cutoff for the threshold aperture")
	flag.StringVar(&qualityName, "quality", "default", "quality bitmask preset: none, default, or hard")
	flag.StringVar(&scale, "scale", "", "convert times to this scale (jd, mjd, bkjd, btjd)")
	flag.BoolVar(&normalize, "normalize", false, "divide flux by its median")
	flag.IntVar(&bin, "bin", 0, "bin every N cadences")
	flag.IntVar(&flatten, "flatten", 0, "remove trends with a running median of this window")
	flag.Float64Var(&foldPeriod, "fold-period", 0, "fold on this period in days")
	flag.Float64Var(&foldEpoch, "fold-epoch", 0, "reference epoch for folding")
	flag.StringVar(&output, "o", "", "output path; .csv, .png, or .html (default: stdout CSV)")
	flag.Parse()

	if flag.NArg() != 1 {
		log.Fatalf("usage: curve [flags] file.fits")
	}
	path := flag.Arg(0)

	t, err := tpf.Open(path)
	if err != nil {
		log.Fatalf("failed to open %s: %v", path, err)
	}

	var mask tpf.Mask
	switch aperture {
	case "pipeline":
		mask = t.PipelineAperture()
	case "threshold":
		mask = t.ThresholdAperture(sigma)
	case "all":
		mask = t.AllPixels()
	default:
		log.Fatalf("invalid -aperture %q (valid: pipeline, threshold, all)", aperture)
	}

	qualityMask, ok := tpf.QualityMaskByName(qualityName)
	if !ok {
		log.Fatalf("invalid -quality %q (valid: none, default, hard)", qualityName)
	}

	lc, err := t.ExtractLightCurve(mask, qualityMask)
	if err != nil {
		log.Fatalf("failed to extract light curve: %v", err)
	}

	if flatten > 0 {
		if lc, err = lc.Flatten(flatten); err != nil {
			log.Fatalf("failed to flatten: %v", err)
		}
	}
	if normalize {
		if lc, err = lc.Normalize(); err != nil {
			log.Fatalf("failed to normalize: %v", err)
		}
	}
	if bin > 1 {
		if lc, err = lc.Bin(bin); err != nil {
			log.Fatalf("failed to bin: %v", err)
		}
	}
	if foldPeriod > 0 {
		if lc, err = lc.Fold(foldPeriod, foldEpoch); err != nil {
			log.Fatalf("failed to fold: %v", err)
		}
	}
	if scale != "" {
		if !units.IsValid(scale) {
			log.Fatalf("invalid -scale %q (valid: %s)", scale, units.GetValidScalesString())
		}
		if lc, err = lc.ConvertTimeScale(scale); err != nil {
			log.Fatalf("failed to convert time scale: %v", err)
		}
	}

	stats := lc.Stats()
	fmt.Fprintf(os.Stderr, "%s: %d cadences, median %.4g, scatter %.0f ppm\n",
		t.Object(), stats.Cadences, stats.Median, stats.Scatter)

	if err := writeOutput(output, t, lc); err != nil {
		log.Fatalf("failed to write output: %v", err)
	}
}

func writeOutput(output string, t *tpf.TargetPixelFile, lc *lightcurve.LightCurve) error {
	if output == "" {
		return lc.WriteCSV(os.Stdout)
	}

	switch strings.ToLower(filepath.Ext(output)) {
	case ".csv":
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		return lc.WriteCSV(f)
	case ".png":
		return render.SaveCurvePNG(output, lc, t.Object())
	case ".html":
		f, err := os.Create(output)
		if err != nil {
			return err
		}
		defer f.Close()
		return render.WriteTargetHTML(f, t.MedianFrame(), lc, t.Object())
	default:
		return fmt.Errorf("unsupported output extension %q (use .csv, .png, or .html)", filepath.Ext(output))
	}
}
