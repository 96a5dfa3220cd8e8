package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/dusk-indust/analyst/internal/export"
	"github.com/spf13/cobra"
)

func newExportCmd(opts *rootOptions) *cobra.Command {
	var server, format, output string

	cmd := &cobra.Command{
		Use:   "export <run-id>",
		Short: "Download the result table of a finished run",
		Example: `  analyst export 6f1c... --format csv
  analyst export 6f1c... --format xlsx --output revenue.xlsx`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := export.ParseFormat(format)
			if err != nil {
				return err
			}
			if f == export.FormatXLSX && output == "" {
				return errors.New("xlsx output is binary; pass --output")
			}
			client, err := opts.consoleClient(server)
			if err != nil {
				return err
			}

			if output == "" {
				return client.Export(cmd.Context(), args[0], f, cmd.OutOrStdout())
			}
			if output == "-" {
				output = export.Filename(args[0], f)
			}
			file, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("create %s: %w", output, err)
			}
			if err := client.Export(cmd.Context(), args[0], f, file); err != nil {
				_ = file.Close()
				_ = os.Remove(output)
				return err
			}
			if err := file.Close(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.ErrOrStderr(), "Wrote %s\n", output)
			return nil
		},
	}

	addServerFlag(cmd, &server)
	cmd.Flags().StringVar(&format, "format", "csv", "json, csv, markdown or xlsx")
	cmd.Flags().StringVarP(&output, "output", "o", "", `file to write; "-" picks a name from the run ID`)
	return cmd
}
