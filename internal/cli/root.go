// Package cli implements the factboard command line client.
package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"factboard/api/internal/board"
	"factboard/api/internal/client"
	"factboard/api/internal/logging"
)

// Version is overridden at build time with -ldflags.
var Version = "dev"

const retrievalProblem = "There was a problem getting data!"

type options struct {
	cfgFile string
	verbose bool
	v       *viper.Viper
}

// NewRootCmd builds the command tree. Each call gets its own viper instance.
func NewRootCmd() *cobra.Command {
	opts := &options{v: viper.New()}

	root := &cobra.Command{
		Use:   "factboard",
		Short: "Share and vote on facts from the terminal",
		Long: `factboard talks to a factboard server. It lists facts by category,
submits new ones and records votes.

Configuration hierarchy (highest to lowest priority):
1. CLI flags
2. Environment variables (FACTBOARD_*)
3. Config file (~/.factboard/config.yaml)
4. Defaults`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return opts.initConfig(cmd.ErrOrStderr())
		},
	}

	root.PersistentFlags().StringVar(&opts.cfgFile, "config", "", "config file (default: $HOME/.factboard/config.yaml)")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "verbose output")
	root.PersistentFlags().String("server", client.DefaultBaseURL, "factboard server URL")
	root.PersistentFlags().Duration("timeout", 15*time.Second, "request timeout")
	_ = opts.v.BindPFlag("server", root.PersistentFlags().Lookup("server"))
	_ = opts.v.BindPFlag("timeout", root.PersistentFlags().Lookup("timeout"))
	_ = opts.v.BindPFlag("verbose", root.PersistentFlags().Lookup("verbose"))

	root.AddCommand(
		newCategoriesCmd(opts),
		newListCmd(opts),
		newSubmitCmd(opts),
		newVoteCmd(opts),
		newSearchCmd(opts),
		newVersionCmd(),
	)
	return root
}

// Execute runs the root command against os.Args.
func Execute() error {
	return NewRootCmd().Execute()
}

func (o *options) initConfig(stderr io.Writer) error {
	if o.cfgFile != "" {
		o.v.SetConfigFile(o.cfgFile)
	} else if home, err := os.UserHomeDir(); err == nil {
		o.v.AddConfigPath(filepath.Join(home, ".factboard"))
		o.v.SetConfigType("yaml")
		o.v.SetConfigName("config")
	}

	o.v.SetEnvPrefix("FACTBOARD")
	o.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	o.v.AutomaticEnv()

	if err := o.v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if o.cfgFile != "" || !errors.As(err, &notFound) {
			return fmt.Errorf("read config: %w", err)
		}
	} else if o.v.GetBool("verbose") {
		fmt.Fprintf(stderr, "Using config file: %s\n", o.v.ConfigFileUsed())
	}
	return nil
}

func (o *options) client() *client.Client {
	return client.New(o.v.GetString("server"), client.WithTimeout(o.v.GetDuration("timeout")))
}

func (o *options) logger() *zap.Logger {
	return logging.NewConsole(o.v.GetBool("verbose"))
}

// newBoard wires a board to the server. Retrieval failures are reported on
// stderr the way the web client shows its alert.
func (o *options) newBoard(stderr io.Writer) *board.Board {
	return board.New(board.Options{
		Store: o.client(),
		Notifier: board.NotifierFunc(func(context.Context, *board.RetrievalError) {
			fmt.Fprintln(stderr, retrievalProblem)
		}),
		Logger: o.logger(),
	})
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "factboard %s\n", Version)
		},
	}
}
