package main

import (
	"fmt"
	"os"
	"runtime"
	"runtime/debug"
	"strings"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"
	pflag "github.com/spf13/pflag"

	"itastack/internal/logging"
	"itastack/pkg/channels"
	"itastack/pkg/config"
	"itastack/pkg/container"
	"itastack/pkg/reconstruction"
	"itastack/pkg/stack"
)

var longHelp = strings.TrimSpace(`
Reconstruct ion images from a ToF-SIMS image stack.

The measurement is read from a directory tree: every node of the file is a
directory, scalar attributes are files with a .int, .float or .txt suffix and
binary blocks are plain files.
`)

var exampleUsage = strings.TrimSpace(`
  itastack synth --out sample.d
  itastack --tree sample.d channels
  itastack --tree sample.d sum --mass 22.99 --correct estimate --ref-mass 22.99 --out na.png
  itastack --tree sample.d section --mass 38.96 --axis y --out sections
`)

func getVersion() string {
	if info, ok := debug.ReadBuildInfo(); ok && info.Main.Version != "" {
		return info.Main.Version
	}
	return "dev"
}

// app holds the state shared by all subcommands.
type app struct {
	cfg     *config.Config
	cfgPath string
	tree    string
	verbose bool
	log     zerolog.Logger
}

// load reads the configuration and applies the flags given on the command line.
func (a *app) load(cmd *cobra.Command) error {
	changed := map[string]bool{}
	cmd.Flags().Visit(func(f *pflag.Flag) { changed[f.Name] = true })

	if a.cfgPath != "" {
		fc, err := config.LoadConfig(a.cfgPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		// flags win over the file
		if changed["cores"] {
			fc.Processing.NumCores = a.cfg.Processing.NumCores
		}
		if changed["shift-mode"] {
			fc.Shift.Mode = a.cfg.Shift.Mode
		}
		if changed["out-dir"] {
			fc.Output.Dir = a.cfg.Output.Dir
		}
		a.cfg = fc
	}
	if changed["fill"] {
		fill, _ := cmd.Flags().GetFloat64("fill")
		a.cfg.Shift.FillConstant = &fill
	}
	if changed["verbose"] {
		a.cfg.Output.Verbose = a.verbose
	}
	logging.SetVerbose(a.cfg.Output.Verbose)
	a.log = logging.Logger()
	return a.cfg.Validate()
}

// open reads the measurement named by --tree.
func (a *app) open() (*reconstruction.Reconstructor, error) {
	if a.tree == "" {
		return nil, fmt.Errorf("--tree is required")
	}
	tree, err := container.OpenDir(a.tree)
	if err != nil {
		return nil, err
	}
	st, err := stack.Open(tree, stack.WithLogger(a.log))
	if err != nil {
		return nil, fmt.Errorf("open stack: %w", err)
	}
	table, err := channels.Parse(tree)
	if err != nil {
		return nil, fmt.Errorf("read peak table: %w", err)
	}
	a.log.Debug().
		Str("tree", a.tree).
		Int("channels", table.Len()).
		Int("scans", st.Scans()).
		Msg("measurement opened")
	return reconstruction.NewReconstructor(st, table, &reconstruction.Params{
		NumCores: a.cfg.Processing.NumCores,
		Logger:   &a.log,
	}), nil
}

func newApp() *app {
	return &app{cfg: config.DefaultConfig(), log: logging.Logger()}
}

// newRootCmd builds the command tree around a.
func newRootCmd(a *app) *cobra.Command {
	root := &cobra.Command{
		Use:           "itastack",
		Short:         "Reconstruct ion images from a ToF-SIMS image stack",
		Long:          longHelp,
		Example:       exampleUsage,
		Version:       fmt.Sprintf("%s %s/%s", getVersion(), runtime.GOOS, runtime.GOARCH),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
	}

	pf := root.PersistentFlags()
	pf.StringVar(&a.tree, "tree", "", "measurement directory tree")
	pf.StringVar(&a.cfgPath, "config", "", "path to a YAML or TOML config file")
	pf.BoolVarP(&a.verbose, "verbose", "v", false, "enable debug logging")
	pf.IntVar(&a.cfg.Processing.NumCores, "cores", a.cfg.Processing.NumCores, "number of scans decoded concurrently")
	pf.StringVar(&a.cfg.Shift.Mode, "shift-mode", a.cfg.Shift.Mode, "edge policy of shift correction: roll, const or nan")
	pf.Float64("fill", 0, "fill constant for --shift-mode const")
	pf.StringVar(&a.cfg.Output.Dir, "out-dir", a.cfg.Output.Dir, "directory for written images")

	root.AddCommand(
		a.infoCmd(),
		a.channelsCmd(),
		a.sumCmd(),
		a.addedCmd(),
		a.collectCmd(),
		a.shiftsCmd(),
		a.profileCmd(),
		a.sectionCmd(),
		a.synthCmd(),
	)
	return root
}

func main() {
	a := newApp()
	if err := newRootCmd(a).Execute(); err != nil {
		a.log.Error().Err(err).Msg("itastack")
		os.Exit(1)
	}
}
