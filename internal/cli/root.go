// Package cli implements debatectl, an offline admin tool for the debate
// session store.
package cli

import (
	"context"
	"io"
	"log/slog"
	"strings"

	"github.com/ashureev/debate-labs/internal/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// app carries the state shared by every subcommand.
type app struct {
	v      *viper.Viper
	out    io.Writer
	logger *slog.Logger
	styles styles
}

type styles struct {
	header    lipgloss.Style
	user      lipgloss.Style
	assistant lipgloss.Style
	system    lipgloss.Style
	muted     lipgloss.Style
}

func newStyles(out io.Writer) styles {
	r := lipgloss.NewRenderer(out)
	return styles{
		header:    r.NewStyle().Bold(true),
		user:      r.NewStyle().Foreground(lipgloss.Color("39")).Bold(true),
		assistant: r.NewStyle().Foreground(lipgloss.Color("170")).Bold(true),
		system:    r.NewStyle().Foreground(lipgloss.Color("244")),
		muted:     r.NewStyle().Faint(true),
	}
}

// NewRootCommand builds the debatectl command tree. Output goes to out;
// store settings come from flags, then STORE_* environment variables, then
// an optional YAML config file.
func NewRootCommand(out io.Writer) *cobra.Command {
	a := &app{
		v:      viper.New(),
		out:    out,
		logger: slog.New(slog.NewTextHandler(io.Discard, nil)),
		styles: newStyles(out),
	}

	root := &cobra.Command{
		Use:           "debatectl",
		Short:         "Inspect and maintain persisted debate sessions",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.initConfig()
		},
	}
	root.SetOut(out)

	flags := root.PersistentFlags()
	flags.StringP("config", "c", "", "config file (YAML)")
	flags.String("store-driver", store.DriverFile, "session store driver: file or sqlite")
	flags.String("store-path", "./data/sessions.json", "snapshot file for the file driver")
	flags.String("db-path", "./data/debate.db", "database file for the sqlite driver")
	flags.Bool("verbose", false, "log store warnings to stderr")
	for _, name := range []string{"config", "store-driver", "store-path", "db-path", "verbose"} {
		_ = a.v.BindPFlag(name, flags.Lookup(name))
	}

	root.AddCommand(a.sessionsCommand())
	return root
}

func (a *app) initConfig() error {
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	if cfgFile := a.v.GetString("config"); cfgFile != "" {
		a.v.SetConfigFile(cfgFile)
		if err := a.v.ReadInConfig(); err != nil {
			return err
		}
	}

	if a.v.GetBool("verbose") {
		a.logger = slog.Default()
	}
	return nil
}

func (a *app) openStore(ctx context.Context) (store.Store, error) {
	return store.Open(ctx, store.Options{
		Driver: strings.ToLower(a.v.GetString("store-driver")),
		Path:   a.v.GetString("store-path"),
		DBPath: a.v.GetString("db-path"),
	}, a.logger)
}
