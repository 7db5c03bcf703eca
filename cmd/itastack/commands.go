package main

import (
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/stat"

	"itastack/internal/models"
	"itastack/pkg/container"
	"itastack/pkg/reconstruction"
	"itastack/pkg/registration"
	"itastack/pkg/synth"
	"itastack/pkg/volume"
)

// selection holds the channel selection flags shared by the image commands.
type selection struct {
	masses []float64
	names  []string
	strict bool
	scans  []int
}

func (s *selection) bind(cmd *cobra.Command, withScans bool) {
	cmd.Flags().Float64SliceVarP(&s.masses, "mass", "m", nil, "masses to sum (channel containing each mass)")
	cmd.Flags().StringSliceVarP(&s.names, "name", "n", nil, "channel name patterns (regular expressions matched at the start)")
	cmd.Flags().BoolVar(&s.strict, "strict", false, "name patterns must match the whole name, up to a trailing charge sign")
	if withScans {
		cmd.Flags().IntSliceVar(&s.scans, "scans", nil, "scans to sum (default all)")
	}
}

func (s *selection) validate() error {
	if len(s.masses) == 0 && len(s.names) == 0 {
		return fmt.Errorf("one of --mass or --name is required")
	}
	if len(s.masses) > 0 && len(s.names) > 0 {
		return fmt.Errorf("--mass and --name are exclusive")
	}
	return nil
}

// correction holds the drift correction flags.
type correction struct {
	mode    string
	refMass []float64
	refName []string
}

func (c *correction) bind(cmd *cobra.Command, def string) {
	cmd.Flags().StringVar(&c.mode, "correct", def, "drift correction: none, saved or estimate")
	cmd.Flags().Float64SliceVar(&c.refMass, "ref-mass", nil, "masses used to estimate the drift")
	cmd.Flags().StringSliceVar(&c.refName, "ref-name", nil, "channel names used to estimate the drift")
}

// table returns the shift table selected by the correction flags, nil for none.
func (a *app) table(rec *reconstruction.Reconstructor, c *correction) (models.ShiftTable, error) {
	switch c.mode {
	case "", "none":
		return nil, nil
	case "saved":
		return rec.Stack().GetSavedShift()
	case "estimate":
		est := registration.NewEstimator(rec, a.cfg.EstimatorOptions()...)
		if len(c.refName) > 0 {
			return est.ByName(c.refName, false)
		}
		if len(c.refMass) == 0 {
			return nil, fmt.Errorf("--correct estimate needs --ref-mass or --ref-name")
		}
		return est.ByMass(c.refMass)
	}
	return nil, &models.ConfigError{Field: "correct", Msg: fmt.Sprintf("unknown correction %q", c.mode)}
}

// corrected returns rec reading per-scan images through the selected correction.
func (a *app) corrected(rec *reconstruction.Reconstructor, c *correction) (*reconstruction.Reconstructor, error) {
	table, err := a.table(rec, c)
	if err != nil || table == nil {
		return rec, err
	}
	opts, err := a.cfg.ShiftOptions(table)
	if err != nil {
		return nil, err
	}
	a.log.Debug().Int("scans", len(table)).Str("mode", c.mode).Msg("drift correction enabled")
	return rec.WithShift(opts), nil
}

func (a *app) outPath(name string) string {
	if filepath.IsAbs(name) {
		return name
	}
	return filepath.Join(a.cfg.Output.Dir, name)
}

// report prints a short summary of an image and writes it when out is set.
func (a *app) report(cmd *cobra.Command, img models.Image, out string) error {
	var peak float64
	if len(img.Pix) > 0 {
		peak = floats.Max(img.Pix)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s\n  size: %dx%d, total: %.0f, max: %.0f\n",
		img.Label, img.Width, img.Height, floats.Sum(img.Pix), peak)
	if out == "" {
		return nil
	}
	path := a.outPath(out)
	if err := volume.SaveSlice(volume.RasterImage(img.Raster), path); err != nil {
		return fmt.Errorf("write %s: %w", path, err)
	}
	a.log.Info().Str("file", path).Msg("image written")
	return nil
}

func (a *app) infoCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "info",
		Short: "Print the stack dimensions and field of view",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.open()
			if err != nil {
				return err
			}
			st := rec.Stack()
			sx, sy := st.Dims()
			w, h := st.PhysicalSize()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "image size:    %d x %d\n", sx, sy)
			fmt.Fprintf(out, "channels:      %d (%d in peak table)\n", st.Images(), rec.Channels().Len())
			fmt.Fprintf(out, "scans:         %d\n", st.Scans())
			fmt.Fprintf(out, "field of view: %.1f x %.1f um\n", w*1e6, h*1e6)
			if ov, ok := st.Overview(); ok {
				mean, std := stat.MeanStdDev(ov.Pix, nil)
				fmt.Fprintf(out, "SI image:      %d x %d, mean %.2f, std %.2f\n", ov.Width, ov.Height, mean, std)
			}
			return nil
		},
	}
}

func (a *app) channelsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "channels",
		Short: "List the peak table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.open()
			if err != nil {
				return err
			}
			for _, ch := range rec.Channels().Channels() {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d  %s\n", ch.ID, ch)
			}
			return nil
		},
	}
}

func (a *app) sumCmd() *cobra.Command {
	var sel selection
	var corr correction
	var out string
	cmd := &cobra.Command{
		Use:   "sum",
		Short: "Sum per-scan images of the selected channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sel.validate(); err != nil {
				return err
			}
			rec, err := a.open()
			if err != nil {
				return err
			}
			if rec, err = a.corrected(rec, &corr); err != nil {
				return err
			}
			var img models.Image
			if len(sel.masses) > 0 {
				img, _, err = rec.SumByMass(sel.masses, sel.scans)
			} else {
				img, _, err = rec.SumByName(sel.names, sel.scans, sel.strict)
			}
			if err != nil {
				return err
			}
			return a.report(cmd, img, out)
		},
	}
	sel.bind(cmd, true)
	corr.bind(cmd, "none")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the image as PNG")
	return cmd
}

func (a *app) addedCmd() *cobra.Command {
	var sel selection
	var out string
	cmd := &cobra.Command{
		Use:   "added",
		Short: "Sum the pre-summed images of the selected channels",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := sel.validate(); err != nil {
				return err
			}
			rec, err := a.open()
			if err != nil {
				return err
			}
			var img models.Image
			if len(sel.masses) > 0 {
				img, _, err = rec.AddedByMass(sel.masses)
			} else {
				img, _, err = rec.AddedByName(sel.names, sel.strict)
			}
			if err != nil {
				return err
			}
			return a.report(cmd, img, out)
		},
	}
	sel.bind(cmd, false)
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the image as PNG")
	return cmd
}

func (a *app) collectCmd() *cobra.Command {
	var masses []float64
	cmd := &cobra.Command{
		Use:   "collect",
		Short: "Write the pre-summed image of every channel (or of the given masses)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.open()
			if err != nil {
				return err
			}
			col, err := rec.CollectByMass(masses)
			if err != nil {
				return err
			}
			for _, s := range col.Skipped {
				a.log.Warn().Str("key", s.Key).Err(s.Err).Msg("skipped")
			}
			for i, name := range col.Order {
				path := a.outPath(fmt.Sprintf("%03d_%s.png", i, sanitize(name)))
				if err := volume.SaveSlice(volume.RasterImage(col.Images[name].Raster), path); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", name, path)
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVarP(&masses, "mass", "m", nil, "masses to collect (default every channel)")
	return cmd
}

// sanitize keeps a label usable as a file name.
func sanitize(name string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '.', r == '+', r == '-':
			return r
		}
		return '_'
	}, name)
}

func (a *app) shiftsCmd() *cobra.Command {
	var corr correction
	cmd := &cobra.Command{
		Use:   "shifts",
		Short: "Print the saved or an estimated per-scan drift table",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.open()
			if err != nil {
				return err
			}
			table, err := a.table(rec, &corr)
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), "scan    dx    dy")
			for i, s := range table {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d %5d %5d\n", i, s.DX, s.DY)
			}
			return nil
		},
	}
	corr.bind(cmd, "saved")
	return cmd
}

func parsePoint(s string) (reconstruction.Point, error) {
	parts := strings.Split(s, ",")
	if len(parts) != 2 {
		return reconstruction.Point{}, fmt.Errorf("point %q: expected x,y", s)
	}
	x, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return reconstruction.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	y, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return reconstruction.Point{}, fmt.Errorf("point %q: %w", s, err)
	}
	return reconstruction.Point{X: x, Y: y}, nil
}

func (a *app) profileCmd() *cobra.Command {
	var masses []float64
	var from, to, out string
	var samples int
	var corr correction
	cmd := &cobra.Command{
		Use:   "profile",
		Short: "Sample every scan along a line (depth profile)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			p1, err := parsePoint(from)
			if err != nil {
				return err
			}
			p2, err := parsePoint(to)
			if err != nil {
				return err
			}
			rec, err := a.open()
			if err != nil {
				return err
			}
			if rec, err = a.corrected(rec, &corr); err != nil {
				return err
			}
			prof, err := rec.Profile(p1, p2, masses, samples)
			if err != nil {
				return err
			}
			if out != "" {
				path := a.outPath(out)
				return volume.SaveSlice(volume.RasterImage(reconstruction.ProfileImage(prof)), path)
			}
			for s, row := range prof {
				fmt.Fprintf(cmd.OutOrStdout(), "%4d", s)
				for _, v := range row {
					fmt.Fprintf(cmd.OutOrStdout(), " %.2f", v)
				}
				fmt.Fprintln(cmd.OutOrStdout())
			}
			return nil
		},
	}
	cmd.Flags().Float64SliceVarP(&masses, "mass", "m", nil, "masses to sum")
	cmd.Flags().StringVar(&from, "from", "", "start point x,y in pixels (y from the bottom)")
	cmd.Flags().StringVar(&to, "to", "", "end point x,y in pixels")
	cmd.Flags().IntVar(&samples, "samples", 0, "number of samples (default one per pixel of length)")
	cmd.Flags().StringVarP(&out, "out", "o", "", "write the profile as PNG, one row per scan")
	corr.bind(cmd, "none")
	_ = cmd.MarkFlagRequired("from")
	_ = cmd.MarkFlagRequired("to")
	_ = cmd.MarkFlagRequired("mass")
	return cmd
}

func (a *app) sectionCmd() *cobra.Command {
	var masses []float64
	var axis string
	var pos int
	var corr correction
	cmd := &cobra.Command{
		Use:   "section",
		Short: "Write sections through the scan volume",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			rec, err := a.open()
			if err != nil {
				return err
			}
			if rec, err = a.corrected(rec, &corr); err != nil {
				return err
			}
			vol, err := volume.Build(rec, masses)
			if err != nil {
				return err
			}
			viewer := volume.NewViewer(vol)
			if pos < 0 {
				dir := a.outPath("section_" + axis)
				a.log.Info().Str("axis", axis).Str("dir", dir).Msg("writing sections")
				return viewer.SaveSliceSequence(axis, dir)
			}
			img, err := viewer.ExtractSlice(axis, pos)
			if err != nil {
				return err
			}
			return volume.SaveSlice(img, a.outPath(fmt.Sprintf("section_%s_%03d.png", axis, pos)))
		},
	}
	cmd.Flags().Float64SliceVarP(&masses, "mass", "m", nil, "masses to sum")
	cmd.Flags().StringVar(&axis, "axis", "y", "section axis: x, y (depth profile of a row) or z (one scan)")
	cmd.Flags().IntVar(&pos, "pos", -1, "section position, -1 for all")
	corr.bind(cmd, "none")
	_ = cmd.MarkFlagRequired("mass")
	return cmd
}

// parseDrift reads "dx,dy;dx,dy;..." into a table.
func parseDrift(s string) (models.ShiftTable, error) {
	var table models.ShiftTable
	for _, item := range strings.Split(s, ";") {
		p, err := parsePoint(item)
		if err != nil {
			return nil, err
		}
		table = append(table, models.Shift{DX: int(p.X), DY: int(p.Y)})
	}
	return table, nil
}

func (a *app) synthCmd() *cobra.Command {
	var out, drift string
	var size []int
	var seed int64
	cmd := &cobra.Command{
		Use:   "synth",
		Short: "Write a synthetic drifting measurement as a directory tree",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(size) != 2 {
				return fmt.Errorf("--size needs width,height")
			}
			table, err := parseDrift(drift)
			if err != nil {
				return err
			}
			b, err := synth.Drifting(size[0], size[1], table, seed)
			if err != nil {
				return err
			}
			if err := container.WriteDir(out, b.Tree); err != nil {
				return err
			}
			a.log.Info().Str("dir", out).Int("scans", len(table)).Msg("measurement written")
			return nil
		},
	}
	cmd.Flags().StringVarP(&out, "out", "o", "synthetic.d", "output directory")
	cmd.Flags().IntSliceVar(&size, "size", []int{64, 64}, "image width,height")
	cmd.Flags().StringVar(&drift, "drift", "0,0;2,1;-1,3;3,-2", "per-scan drift as dx,dy;dx,dy;...")
	cmd.Flags().Int64Var(&seed, "seed", 1, "random seed")
	return cmd
}
