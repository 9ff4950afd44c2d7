// Command linksim runs a BER/BLER sweep of the OFDM link over a range of
// Eb/N0 operating points and writes the results as CSV and JSON.
package main

import (
	"flag"
	"fmt"
	"os"
	"path/filepath"

	"github.com/fatih/color"
	"github.com/jszwec/csvutil"
	"github.com/schollz/progressbar/v3"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/viper"
	"github.com/wiless/linksim"
	"github.com/wiless/vlib"
)

var (
	indir   string
	outdir  string
	ebnoMin float64
	ebnoMax float64
	ebnoStp float64
	verbose bool
)

func init() {
	flag.StringVar(&indir, "indir", ".", "directory holding config.{json,yaml,toml}")
	flag.StringVar(&outdir, "outdir", ".", "directory for result files")
	flag.Float64Var(&ebnoMin, "ebno-min", 0.0, "first Eb/N0 point in dB")
	flag.Float64Var(&ebnoMax, "ebno-max", 20.0, "last Eb/N0 point in dB")
	flag.Float64Var(&ebnoStp, "ebno-step", 2.5, "Eb/N0 step in dB")
	flag.BoolVar(&verbose, "v", false, "debug logging")
}

// ReadSimConfig overlays config-file values on top of the defaults. Missing
// file is not an error; the defaults describe a complete link.
func ReadSimConfig() (linksim.SimConfig, error) {
	cfg := linksim.NewSimConfig()

	viper.AddConfigPath(indir)
	viper.SetConfigName("config")
	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return cfg, err
		}
		log.Infoln("No config file found, using defaults")
		return cfg, nil
	}

	log.Infoln("Loaded config from ", viper.ConfigFileUsed())
	if err := cfg.FromMap(linksim.GenericStruct(viper.AllSettings())); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func ebnoPoints() vlib.VectorF {
	var points vlib.VectorF
	for e := ebnoMin; e <= ebnoMax+1e-9; e += ebnoStp {
		points = append(points, e)
	}
	return points
}

func saveResults(results []linksim.LinkResult) error {
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		return err
	}
	csvdata, err := csvutil.Marshal(results)
	if err != nil {
		return err
	}
	csvname := filepath.Join(outdir, "ber-sweep.csv")
	if err := os.WriteFile(csvname, csvdata, 0o644); err != nil {
		return err
	}
	log.Infoln("Saved ", csvname)

	vlib.SaveStructure(results, filepath.Join(outdir, "ber-sweep.json"), true)
	return nil
}

func main() {
	flag.Parse()
	if verbose {
		log.SetLevel(log.DebugLevel)
	}

	cfg, err := ReadSimConfig()
	if err != nil {
		log.Fatalln("config: ", err)
	}

	sim, err := linksim.New(cfg)
	if err != nil {
		log.Fatalln("setup: ", err)
	}
	if err := os.MkdirAll(outdir, 0o755); err != nil {
		log.Fatalln("outdir: ", err)
	}
	vlib.SaveStructure(cfg, filepath.Join(outdir, "simconfig.json"), true)

	points := ebnoPoints()
	color.Cyan("OFDM link sweep: %d points, %.1f .. %.1f dB, batch %d",
		len(points), ebnoMin, ebnoMax, cfg.BatchSize)

	bar := progressbar.Default(int64(len(points)), "sweeping")
	results := make([]linksim.LinkResult, 0, len(points))
	for _, ebno := range points {
		r, err := sim.RunPoint(ebno)
		if err != nil {
			log.Fatalln("run: ", err)
		}
		results = append(results, r)
		_ = bar.Add(1)
	}

	if err := saveResults(results); err != nil {
		log.Fatalln("save: ", err)
	}

	fmt.Println()
	for _, r := range results {
		line := fmt.Sprintf("Eb/N0 %5.1f dB   BER %.6f   BLER %.3f   iters %4.1f", r.EbNoDb, r.BER, r.BLER, r.AvgIterations)
		if r.BitErrors == 0 {
			color.Green(line)
		} else {
			fmt.Println(line)
		}
	}
}
