// tilecodec - утилита для упакованных id тайлов и проверки файлов с исходными данными.
//
//	tilecodec encode -x 3 -z -7
//	tilecodec decode 2147450869
//	tilecodec summary -roughness 0.5 map.json
package main

import (
	"encoding/json"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"strconv"
	"text/tabwriter"

	"github.com/annel0/hexvoxel/internal/elevation"
	"github.com/annel0/hexvoxel/internal/hexgrid"
	"github.com/annel0/hexvoxel/internal/landmass"
	"github.com/annel0/hexvoxel/internal/sourcedata"
)

var errUsage = errors.New("usage: tilecodec encode|decode|summary [flags]")

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "❌", err)
		os.Exit(1)
	}
}

func run(args []string, out io.Writer) error {
	if len(args) == 0 {
		return errUsage
	}

	switch args[0] {
	case "encode":
		return encode(args[1:], out)
	case "decode":
		return decode(args[1:], out)
	case "summary":
		return summary(args[1:], out)
	}
	return fmt.Errorf("%w: unknown command %q", errUsage, args[0])
}

func encode(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("encode", flag.ContinueOnError)
	x := fs.Int("x", 0, "колонка")
	z := fs.Int("z", 0, "ряд")
	if err := fs.Parse(args); err != nil {
		return err
	}

	id, err := hexgrid.Encode(*x, *z)
	if err != nil {
		return err
	}
	fmt.Fprintln(out, uint32(id))
	return nil
}

func decode(args []string, out io.Writer) error {
	if len(args) == 0 {
		return fmt.Errorf("%w: decode needs at least one id", errUsage)
	}
	for _, a := range args {
		raw, err := strconv.ParseUint(a, 10, 32)
		if err != nil {
			return fmt.Errorf("id %q: %w", a, err)
		}
		c := hexgrid.Decode(hexgrid.TileID(raw))
		fmt.Fprintf(out, "%d\t%d\t%d\n", raw, c.X, c.Z)
	}
	return nil
}

func summary(args []string, out io.Writer) error {
	fs := flag.NewFlagSet("summary", flag.ContinueOnError)
	opts := elevation.DefaultOptions()
	fs.Float64Var(&opts.PeakScalar, "peak", opts.PeakScalar, "высота купола")
	fs.Float64Var(&opts.Roughness, "roughness", 0, "амплитуда шума")
	fs.Int64Var(&opts.Seed, "seed", 0, "зерно шума")
	asJSON := fs.Bool("json", false, "вывод в JSON")
	if err := fs.Parse(args); err != nil {
		return err
	}
	if fs.NArg() != 1 {
		return fmt.Errorf("%w: summary needs exactly one file", errUsage)
	}

	raw, err := sourcedata.Load(fs.Arg(0))
	if err != nil {
		return err
	}
	synth, err := elevation.NewSynthesizer(opts)
	if err != nil {
		return err
	}
	built, err := landmass.NewBuilder(synth).Build(raw)
	if err != nil {
		return err
	}
	m, err := landmass.NewMap(built)
	if err != nil {
		return err
	}

	summaries := make([]landmass.Summary, 0, m.Len())
	for _, id := range m.IDs() {
		lm, _ := m.Get(id)
		summaries = append(summaries, lm.Summary())
	}

	if *asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(summaries)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tSTATUS\tTILES\tMAX LEVEL\tBOX")
	for _, s := range summaries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%s\n", s.ID, s.Name, s.Status, s.TileCount, s.MaxLevel, s.BoundingBox)
	}
	fmt.Fprintf(tw, "\t\t\t%d\t\t\n", m.TileCount())
	return tw.Flush()
}
