package main

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/dusk-indust/analyst/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"
	"golang.org/x/term"
)

// rootOptions carries the persistent flags. Every flag can also be set
// through an ANALYST_* environment variable.
type rootOptions struct {
	v *viper.Viper
}

func newRootCmd(stdout, stderr io.Writer) *cobra.Command {
	root := &cobra.Command{
		Use:   "analyst",
		Short: "Ask plain-language questions about sales data",
		Long: `analyst turns a plain-language question into an intent, a SQL statement
and a result table. Every stage is simulated against fixed data.

Run "analyst serve" for the browser console or "analyst ask" for a one-off
question in the terminal.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetOut(stdout)
	root.SetErr(stderr)

	opts := newRootOptions(root.PersistentFlags())
	root.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if !opts.interactive(cmd.OutOrStdout()) {
			pterm.DisableStyling()
		}
	}

	root.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newWatchCmd(opts),
		newRunsCmd(opts),
		newExportCmd(opts),
		newMCPCmd(opts),
		newVersionCmd(),
	)
	return root
}

// newRootOptions registers the persistent flags on pf and binds each to its
// ANALYST_* environment variable.
func newRootOptions(pf *pflag.FlagSet) *rootOptions {
	pf.String("config-dir", ".", "directory containing analyst.yml")
	pf.String("addr", "", "console listen address (overrides config)")
	pf.String("log-level", "", "log level: debug, info, warn or error")
	pf.String("log-format", "", "log encoding: json or console")
	pf.Bool("no-delay", false, "skip the simulated stage latency")
	pf.Bool("plain", false, "disable spinners and colour")

	v := viper.New()
	v.SetEnvPrefix("ANALYST")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	_ = v.BindPFlag("config_dir", pf.Lookup("config-dir"))
	_ = v.BindPFlag("addr", pf.Lookup("addr"))
	_ = v.BindPFlag("logging.level", pf.Lookup("log-level"))
	_ = v.BindPFlag("logging.format", pf.Lookup("log-format"))
	_ = v.BindPFlag("no_delay", pf.Lookup("no-delay"))
	_ = v.BindPFlag("plain", pf.Lookup("plain"))

	return &rootOptions{v: v}
}

// loadConfig reads analyst.yml and applies flag and environment overrides.
func (o *rootOptions) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(o.v.GetString("config_dir"))
	if err != nil {
		return nil, err
	}
	if o.v.IsSet("addr") {
		cfg.Addr = o.v.GetString("addr")
	}
	if o.v.IsSet("logging.level") {
		cfg.Logging.Level = o.v.GetString("logging.level")
	}
	if o.v.IsSet("logging.format") {
		cfg.Logging.Format = o.v.GetString("logging.format")
	}
	if o.v.GetBool("no_delay") {
		cfg.NoLatency()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	return cfg, nil
}

// interactive reports whether w is a terminal that can show spinners and
// --plain is unset.
func (o *rootOptions) interactive(w io.Writer) bool {
	if o.v.GetBool("plain") {
		return false
	}
	f, ok := w.(*os.File)
	return ok && term.IsTerminal(int(f.Fd()))
}
