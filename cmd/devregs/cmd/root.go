package cmd

import (
	"fmt"
	"os"

	"github.com/mattn/go-isatty"
	"github.com/retroenv/retrogolib/log"
	"github.com/spf13/cobra"

	"github.com/boundarydevices/devregs/internal/soc"
	"github.com/boundarydevices/devregs/pkg/physmem"
	"github.com/boundarydevices/devregs/pkg/regaccess"
	"github.com/boundarydevices/devregs/pkg/regdef"
	"github.com/boundarydevices/devregs/pkg/regspec"
)

var (
	// Global flags
	cpuName string
	defFile string
	device  string
	fancy   int // -f tty-gated color, -ff forced
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "devregs [register[.field|:bits]] [value]",
	Short: "Display and modify device registers at runtime",
	Long: `devregs inspects and mutates memory-mapped hardware registers through
/dev/mem, driven by a register definition file for the detected SoC.

Examples:
  devregs                        # display all known registers
  devregs UART1                  # display registers matching UART1
  devregs UART1_UCR1.TXMPTYEN    # also break out the named field
  devregs UART1_UCR1:13 1        # set an ad hoc bit field (value in hex)
  devregs 0x020e4000             # display by physical address
  devregs --cpu imx8mm GPIO1_DR  # override SoC detection`,
	Version:       "1.0.0",
	Args:          cobra.MaximumNArgs(2),
	RunE:          run,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute runs the root command
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cpuName, "cpu", "c", "",
		"SoC name when detection fails (imx51, imx53, imx6q, imx6dls, imx7d, imx8mq, imx8mm)")
	rootCmd.PersistentFlags().StringVar(&defFile, "file", "",
		"register definition file (overrides SoC detection)")
	rootCmd.PersistentFlags().StringVar(&device, "dev", physmem.DefaultDevice,
		"physical memory device")
	rootCmd.PersistentFlags().CountVarP(&fancy, "fancy", "f",
		"colored field output; repeat to force when not on a tty")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

func run(cmd *cobra.Command, args []string) error {
	logger := newLogger()

	path, err := definitionPath(logger)
	if err != nil {
		return err
	}

	loader, err := regdef.NewLoader(logger)
	if err != nil {
		return err
	}
	catalog, err := loader.LoadFile(path)
	if err != nil {
		return err
	}

	window, err := physmem.Open(device)
	if err != nil {
		return err
	}
	defer window.Close()

	accessor := regaccess.New(window, os.Stdout, colorEnabled())

	switch len(args) {
	case 0:
		return showAll(accessor, catalog)
	case 1:
		return show(accessor, catalog, args[0])
	default:
		return write(accessor, catalog, args[0], args[1])
	}
}

func showAll(accessor *regaccess.Accessor, catalog *regdef.Catalog) error {
	for _, inst := range regspec.All(catalog) {
		if err := accessor.Show(inst); err != nil {
			return err
		}
	}
	return nil
}

func show(accessor *regaccess.Accessor, catalog *regdef.Catalog, spec string) error {
	insts, err := regspec.Resolve(catalog, spec)
	if err != nil {
		return err
	}
	if len(insts) == 0 {
		return fmt.Errorf("nothing matched %s", spec)
	}
	for _, inst := range insts {
		if err := accessor.Show(inst); err != nil {
			return err
		}
	}
	return nil
}

// write resolves the spec and performs a single read-modify-write. When the
// spec matches more than one register the request is inherently ambiguous:
// every match is displayed but nothing is written.
func write(accessor *regaccess.Accessor, catalog *regdef.Catalog, spec, valueText string) error {

	value, err := regspec.ParseValue(valueText)
	if err != nil {
		return err
	}
	insts, err := regspec.Resolve(catalog, spec)
	if err != nil {
		return err
	}
	if len(insts) == 0 {
		return fmt.Errorf("nothing matched %s", spec)
	}
	if len(insts) > 1 {
		for _, inst := range insts {
			if err := accessor.Show(inst); err != nil {
				return err
			}
		}
		return fmt.Errorf("%d registers matched %s, not writing", len(insts), spec)
	}

	if err := accessor.Show(insts[0]); err != nil {
		return err
	}
	return accessor.Write(insts[0], value)
}

// definitionPath decides which definition file to load: --file wins, then
// --cpu, then SoC auto-detection.
func definitionPath(logger *log.Logger) (string, error) {
	if defFile != "" {
		return defFile, nil
	}
	var model soc.Model
	var err error
	if cpuName != "" {
		model, err = soc.Parse(cpuName)
	} else {
		model, err = soc.Detect()
	}
	if err != nil {
		return "", err
	}
	logger.Debug("Using register definitions",
		log.String("cpu", string(model)),
		log.String("file", soc.DataPath(model)))
	return soc.DataPath(model), nil
}

func colorEnabled() bool {
	if fancy >= 2 {
		return true
	}
	return fancy == 1 && isatty.IsTerminal(os.Stdout.Fd())
}

func newLogger() *log.Logger {
	cfg := log.DefaultConfig()
	if verbose {
		cfg.Level = log.DebugLevel
	}
	return log.NewWithConfig(cfg)
}
