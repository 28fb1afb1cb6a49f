package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/deepaksuthar40128/RemoteDx/pkg/config"
	"github.com/deepaksuthar40128/RemoteDx/pkg/logging"
)

// globals holds the persistent flags and the viper instance they are bound to.
type globals struct {
	cfgFile string
	output  string
	verbose bool
	v       *viper.Viper
}

// NewRootCmd returns the root command for the remotedx CLI
func NewRootCmd() *cobra.Command {
	g := &globals{v: viper.New()}

	rootCmd := &cobra.Command{
		Use:           "remotedx",
		Short:         "Remote machine diagnostics",
		Long:          "RemoteDx runs connectivity, software inventory and clock sync checks against a fleet of machines and reports the results.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.init(cmd)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&g.cfgFile, "config", "", "config file (default is $HOME/.remotedx/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&g.output, "output", "", "output format: json|text (default: text)")
	rootCmd.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "enable verbose logging")

	rootCmd.AddCommand(newRunCmd(g))
	rootCmd.AddCommand(newValidateCmd(g))
	rootCmd.AddCommand(newServeCmd(g))
	rootCmd.AddCommand(newVersionCmd(g))

	return rootCmd
}

// init loads .env files and the config file, then binds the running
// command's flags so each one can also come from REMOTEDX_* or the file.
func (g *globals) init(cmd *cobra.Command) error {
	config.LoadEnv(nil)

	if g.cfgFile != "" {
		g.v.SetConfigFile(g.cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err == nil {
			g.v.AddConfigPath(home + "/.remotedx")
			g.v.SetConfigName("config")
		}
		g.v.SetConfigType("yaml")
	}

	g.v.SetEnvPrefix("REMOTEDX")
	g.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	g.v.AutomaticEnv()

	if err := g.v.ReadInConfig(); err != nil {
		// A missing default config is fine; an explicit one must load.
		if g.cfgFile != "" {
			return fmt.Errorf("failed to read config file %s: %w", g.cfgFile, err)
		}
	}

	if err := g.v.BindPFlags(cmd.Flags()); err != nil {
		return err
	}
	if err := g.v.BindPFlags(cmd.InheritedFlags()); err != nil {
		return err
	}

	switch g.outputFormat() {
	case "text", "json":
		return nil
	default:
		return fmt.Errorf("unsupported output format %q (want json or text)", g.v.GetString("output"))
	}
}

func (g *globals) outputFormat() string {
	out := strings.ToLower(strings.TrimSpace(g.v.GetString("output")))
	if out == "" {
		return "text"
	}
	return out
}

func (g *globals) jsonOutput() bool {
	return g.outputFormat() == "json"
}

// logger writes to the command's stderr: human-readable on a terminal, JSON
// otherwise.
func (g *globals) logger(cmd *cobra.Command) logging.Logger {
	out := cmd.ErrOrStderr()
	var logger logging.Logger
	if isTerminal(out) {
		logger = logging.NewConsoleLogger(out)
	} else {
		logger = logging.NewLogger()
		logger.SetOutput(out)
	}
	if g.v.GetBool("verbose") {
		logger.SetLevel(logging.DebugLevel)
	}
	return logger
}

func isTerminal(w io.Writer) bool {
	f, ok := w.(*os.File)
	if !ok {
		return false
	}
	return isatty.IsTerminal(f.Fd()) || isatty.IsCygwinTerminal(f.Fd())
}
