package main

import (
	"fmt"
	"io"

	"spending-tracker/internal/storage"

	"github.com/spf13/cobra"
)

func newResetCmd(opts *options, stdin io.Reader) *cobra.Command {
	var yes bool
	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete every stored collection",
		Long:  "Delete every key in the database. The next start seeds default categories again.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path := opts.path(cmd)
			db, err := storage.NewDB(path)
			if err != nil {
				return fmt.Errorf("failed to open database: %w", err)
			}
			defer db.Close()

			keys, err := db.Keys()
			if err != nil {
				return fmt.Errorf("failed to list keys: %w", err)
			}
			out := cmd.OutOrStdout()
			if len(keys) == 0 {
				fmt.Fprintln(out, "Nothing to reset")
				return nil
			}

			if !yes {
				ok, err := confirm(stdin, out, fmt.Sprintf("Delete %d stored collections from %s?", len(keys), path))
				if err != nil {
					return err
				}
				if !ok {
					fmt.Fprintln(out, "Reset cancelled")
					return nil
				}
			}

			for _, k := range keys {
				if err := db.Delete(k); err != nil {
					return err
				}
				fmt.Fprintf(out, "Deleted %s\n", k)
			}
			return nil
		},
	}
	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "Do not ask for confirmation")
	return cmd
}
