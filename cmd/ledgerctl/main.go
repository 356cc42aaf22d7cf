// Command ledgerctl exports, imports and summarizes a tracker database from
// the command line.
package main

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"spending-tracker/internal/config"
	"spending-tracker/internal/logging"
	"spending-tracker/internal/storage"
	"spending-tracker/internal/tracker"

	"github.com/spf13/cobra"
	"golang.org/x/term"
)

func main() {
	if err := run(os.Args[1:], os.Stdin, os.Stdout, os.Stderr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

type options struct {
	dbPath   string
	userID   string
	logLevel string
}

func run(args []string, stdin io.Reader, stdout, stderr io.Writer) error {
	cmd := newRootCmd(stdin)
	cmd.SetArgs(args)
	cmd.SetIn(stdin)
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	return cmd.Execute()
}

func newRootCmd(stdin io.Reader) *cobra.Command {
	opts := &options{}
	root := &cobra.Command{
		Use:           "ledgerctl",
		Short:         "Manage spending tracker data",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.dbPath, "db", config.DefaultDBPath, "Path to database file")
	root.PersistentFlags().StringVar(&opts.userID, "user", "", "Owner recorded on new collections")
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level")

	root.AddCommand(
		newExportCmd(opts),
		newImportCmd(opts, stdin),
		newReportCmd(opts),
		newResetCmd(opts, stdin),
	)
	return root
}

// path resolves the database file. DB_PATH overrides the default --db.
func (o *options) path(cmd *cobra.Command) string {
	if path := os.Getenv("DB_PATH"); path != "" && !cmd.Flags().Changed("db") {
		return path
	}
	return o.dbPath
}

// open loads the tracker.
func (o *options) open(cmd *cobra.Command) (*tracker.Tracker, func(), error) {
	logger, err := logging.New(o.logLevel, false)
	if err != nil {
		return nil, nil, err
	}

	db, err := storage.NewDB(o.path(cmd))
	if err != nil {
		return nil, nil, fmt.Errorf("failed to open database: %w", err)
	}
	t := tracker.New(db, tracker.Options{UserID: o.userID, Logger: logger})
	return t, func() {
		_ = logger.Sync()
		db.Close()
	}, nil
}

func newExportCmd(opts *options) *cobra.Command {
	var output string
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write every collection as one export file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			t, closeFn, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			blob, err := t.Export()
			if err != nil {
				return fmt.Errorf("failed to export: %w", err)
			}
			if output == "" || output == "-" {
				_, err = fmt.Fprintln(cmd.OutOrStdout(), blob)
				return err
			}
			if err := os.WriteFile(output, []byte(blob), 0o600); err != nil {
				return fmt.Errorf("failed to write %s: %w", output, err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Exported to %s\n", output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Output file (default stdout)")
	return cmd
}

func newImportCmd(opts *options, stdin io.Reader) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Replace stored data with an export file",
		Long: "Replace stored data with an export file. Combined exports replace " +
			"expenses, income and lending; older expense-only files replace expenses.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := os.Open(args[0])
			if err != nil {
				return fmt.Errorf("failed to open import file: %w", err)
			}
			defer f.Close()

			if !yes {
				ok, err := confirm(stdin, cmd.OutOrStdout(), fmt.Sprintf("Replace stored data with %s?", args[0]))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(cmd.OutOrStdout(), "Import cancelled")
					return nil
				}
			}

			t, closeFn, err := opts.open(cmd)
			if err != nil {
				return err
			}
			defer closeFn()

			if err := t.ImportReader(f); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Imported %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}

func confirm(stdin io.Reader, stdout io.Writer, question string) (bool, error) {
	fmt.Fprintf(stdout, "%s [y/N]: ", question)
	answer, err := readLine(stdin, stdout)
	if err != nil {
		return false, fmt.Errorf("failed to read answer: %w", err)
	}
	a := strings.ToLower(strings.TrimSpace(answer))
	return a == "y" || a == "yes", nil
}

func readLine(stdin io.Reader, stdout io.Writer) (string, error) {
	if f, ok := stdin.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		state, err := term.MakeRaw(int(f.Fd()))
		if err != nil {
			return "", err
		}
		defer func() { _ = term.Restore(int(f.Fd()), state) }()

		line, err := term.NewTerminal(struct {
			io.Reader
			io.Writer
		}{f, stdout}, "").ReadLine()
		if err != nil {
			return "", err
		}
		return line, nil
	}

	// Fallback for non-terminal (e.g. tests, pipes)
	scanner := bufio.NewScanner(stdin)
	if scanner.Scan() {
		return scanner.Text(), nil
	}
	if err := scanner.Err(); err != nil {
		return "", err
	}
	return "", io.EOF
}
