// Public domain.

package bmprog

import (
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/soniakeys/exit"
	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/skymask/brickmask/internal/logger"
)

const versionString = "brickmask version 0.1 Go source."
const copyrightString = "Public domain."

// envPrefix prefixes environment variables overriding flags.
const envPrefix = "BRICKMASK"

// Main runs the brickmask command with the process arguments.
func Main() {
	defer exit.Handler()
	log.SetFlags(0)
	rc := NewRootCommand(os.Stdin, os.Stdout, os.Stderr)
	if err := rc.Execute(); err != nil {
		exit.Log("Error: " + err.Error())
	}
}

// state is shared by the subcommands of one root command.
type state struct {
	stdin          io.Reader
	stdout, stderr io.Writer
	log            zerolog.Logger
}

// NewRootCommand returns the brickmask command with all subcommands.
func NewRootCommand(stdin io.Reader, stdout, stderr io.Writer) *cobra.Command {
	st := &state{stdin: stdin, stdout: stdout, stderr: stderr, log: zerolog.Nop()}
	var logCfg logger.Config
	rc := &cobra.Command{
		Use:   "brickmask",
		Short: "Mask bits and brick lists for legacy survey catalogues.",
		Long: `Brickmask assigns the maskbits of legacy survey bricks and supplementary
eBOSS ELG mask bits to catalogue objects, lists maskbit files of legacy
survey bricks, and finds the bricks containing catalogue objects.

Every flag may also be set in a TOML file given with --config, with
keys equal to flag names, or in an environment variable named
` + envPrefix + `_<FLAG>, upper case with dashes replaced by underscores.
Command line flags take precedence over the environment, which takes
precedence over the configuration file.

` + versionString + "\n",
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := setAllConfig(viper.New(), cmd.Flags()); err != nil {
				return err
			}
			logCfg.Component = cmd.Name()
			l, err := logger.Build(logCfg, st.stderr)
			if err != nil {
				return err
			}
			st.log = l
			return nil
		},
	}
	pf := rc.PersistentFlags()
	pf.StringP("config", "c", "", "Configuration file to read from.")
	pf.StringVar(&logCfg.Level, "log-level", "info", "Log level: debug, info, warn, error or disabled.")
	pf.BoolVar(&logCfg.Console, "log-console", false, "Human readable log output instead of JSON.")

	rc.AddCommand(newAssignCommand(st))
	rc.AddCommand(newMaskCommand(st))
	rc.AddCommand(newListCommand(st))
	rc.AddCommand(newLocateCommand(st))
	rc.AddCommand(newVersionCommand(st))

	rc.SetIn(stdin)
	rc.SetOut(stdout)
	rc.SetErr(stderr)
	return rc
}

// setAllConfig takes a FlagSet to be the definition of all configuration
// options, as well as their defaults.  It then reads from the command line,
// the environment, and a config file (if specified), and applies the
// configuration in that priority order.
//
// Environment variables are capitalized versions of the flag names with
// dashes replaced by underscores, prefixed with envPrefix and an underscore.
func setAllConfig(v *viper.Viper, flags *pflag.FlagSet) error {
	if err := v.BindPFlags(flags); err != nil {
		return err
	}
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_", ".", "_"))
	v.AutomaticEnv()

	validTags := make(map[string]bool)
	flags.VisitAll(func(f *pflag.Flag) {
		validTags[f.Name] = true
	})
	if c := v.GetString("config"); c != "" {
		v.SetConfigFile(c)
		v.SetConfigType("toml")
		if err := v.ReadInConfig(); err != nil {
			return fmt.Errorf("error reading configuration file '%s': %v", c, err)
		}
		for _, key := range v.AllKeys() {
			if !validTags[key] {
				return fmt.Errorf("invalid option in configuration file: %v", key)
			}
		}
	}

	var flagErr error
	flags.VisitAll(func(f *pflag.Flag) {
		if flagErr != nil || f.Changed {
			// a command line value wins, and setting a slice flag again
			// would append to it
			return
		}
		var value string
		if f.Value.Type() == "stringSlice" {
			// v.GetString is empty for slices read from a config file
			value = strings.Join(v.GetStringSlice(f.Name), ",")
		} else {
			value = v.GetString(f.Name)
		}
		if err := f.Value.Set(value); err != nil {
			flagErr = fmt.Errorf("invalid value %q for %s: %v", value, f.Name, err)
		}
	})
	return flagErr
}

func newVersionCommand(st *state) *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Fprintln(st.stdout, versionString)
			fmt.Fprintln(st.stdout, copyrightString)
			return nil
		},
	}
}
