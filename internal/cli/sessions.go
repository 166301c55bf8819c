package cli

import (
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"

	"github.com/ashureev/debate-labs/internal/domain"
	"github.com/ashureev/debate-labs/internal/store"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"
)

var errConfirmationRequired = errors.New("refusing to overwrite sessions without --yes")

func (a *app) sessionsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "sessions",
		Short: "Manage persisted debate sessions",
		Long: `Commands for listing, inspecting, exporting, importing, and clearing
debate sessions. Run them while the server is stopped: the server holds
its own copy of active sessions and will overwrite concurrent edits.`,
	}

	var exportOut string
	exportCmd := &cobra.Command{
		Use:   "export",
		Short: "Write the whole snapshot as JSON",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runExport(cmd, exportOut)
		},
	}
	exportCmd.Flags().StringVarP(&exportOut, "output", "o", "", "write to file instead of stdout")

	var importYes bool
	importCmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace the snapshot with a previously exported one",
		Long: `Replace every stored session with the contents of an exported snapshot.
Combined with export this moves sessions between store drivers.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runImport(cmd, args[0], importYes)
		},
	}
	importCmd.Flags().BoolVar(&importYes, "yes", false, "confirm replacing all sessions")

	var clearYes bool
	clearCmd := &cobra.Command{
		Use:   "clear",
		Short: "Delete every session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return a.runClear(cmd, clearYes)
		},
	}
	clearCmd.Flags().BoolVar(&clearYes, "yes", false, "confirm deleting all sessions")

	cmd.AddCommand(
		&cobra.Command{
			Use:   "list",
			Short: "List sessions with their topic and length",
			Args:  cobra.NoArgs,
			RunE:  a.runList,
		},
		&cobra.Command{
			Use:   "show <session-id>",
			Short: "Print one session's history",
			Args:  cobra.ExactArgs(1),
			RunE:  a.runShow,
		},
		exportCmd,
		importCmd,
		clearCmd,
	)
	return cmd
}

func (a *app) runList(cmd *cobra.Command, _ []string) error {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	snap := s.Load(cmd.Context())
	if len(snap) == 0 {
		_, err := fmt.Fprintln(a.out, a.styles.muted.Render("No sessions found."))
		return err
	}

	// Session IDs are UUIDv7, so lexical order is creation order.
	ids := make([]string, 0, len(snap))
	for id := range snap {
		ids = append(ids, id)
	}
	slices.Sort(ids)

	t := table.New().
		Headers("SESSION", "TOPIC", "AI SIDE", "MESSAGES").
		StyleFunc(func(row, _ int) lipgloss.Style {
			if row == table.HeaderRow {
				return a.styles.header
			}
			return lipgloss.NewStyle()
		})
	for _, id := range ids {
		sess := snap[id]
		topic, side := "-", "-"
		if sess.Debate != nil {
			topic, side = sess.Debate.Topic, string(sess.Debate.AIPosition)
		}
		t.Row(id, topic, side, fmt.Sprint(len(sess.History)))
	}

	_, err = fmt.Fprintln(a.out, t.Render())
	return err
}

func (a *app) runShow(cmd *cobra.Command, args []string) error {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	sess, ok := s.Load(cmd.Context())[args[0]]
	if !ok {
		return fmt.Errorf("session %s not found", args[0])
	}

	var b strings.Builder
	if sess.Debate != nil {
		fmt.Fprintf(&b, "%s %s (user %s, AI %s)\n\n",
			a.styles.header.Render("Topic:"), sess.Debate.Topic, sess.Debate.UserPosition, sess.Debate.AIPosition)
	}
	for _, m := range sess.History {
		fmt.Fprintf(&b, "%s %s\n", a.roleLabel(m.Role), m.Content)
	}
	_, err = fmt.Fprint(a.out, b.String())
	return err
}

func (a *app) roleLabel(role domain.Role) string {
	label := string(role) + ":"
	switch role {
	case domain.RoleUser:
		return a.styles.user.Render(label)
	case domain.RoleAssistant:
		return a.styles.assistant.Render(label)
	default:
		return a.styles.system.Render(label)
	}
}

func (a *app) runExport(cmd *cobra.Command, output string) error {
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	data, err := store.EncodeSnapshot(s.Load(cmd.Context()))
	if err != nil {
		return err
	}
	if output == "" {
		_, err = a.out.Write(append(data, '\n'))
		return err
	}
	if err := os.WriteFile(output, data, 0o600); err != nil {
		return fmt.Errorf("write export: %w", err)
	}
	return nil
}

func (a *app) runImport(cmd *cobra.Command, path string, yes bool) error {
	if !yes {
		return errConfirmationRequired
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read import: %w", err)
	}
	snap, err := store.DecodeSnapshot(data)
	if err != nil {
		return fmt.Errorf("decode import: %w", err)
	}

	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Save(cmd.Context(), snap); err != nil {
		return err
	}
	_, err = fmt.Fprintf(a.out, "Imported %d sessions.\n", len(snap))
	return err
}

func (a *app) runClear(cmd *cobra.Command, yes bool) error {
	if !yes {
		return errConfirmationRequired
	}
	s, err := a.openStore(cmd.Context())
	if err != nil {
		return err
	}
	defer func() { _ = s.Close() }()

	if err := s.Clear(cmd.Context()); err != nil {
		return err
	}
	_, err = fmt.Fprintln(a.out, "All sessions cleared.")
	return err
}
