package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	jsoniter "github.com/json-iterator/go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/woxQAQ/wasmtoys/internal/engine"
)

var importsJSON bool

var importsCmd = &cobra.Command{
	Use:   "imports <module.wasm>",
	Short: "List the module's env imports and whether the host provides them",
	Long: `Imports compiles the module without running it. Imports the host does not
provide are stubbed in workers but fail instantiation of the main module.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := zap.NewNop()
		if globalLogLevel != "" {
			var err error
			if logger, err = newLogger(globalLogLevel); err != nil {
				return err
			}
		}

		report, err := engine.Inspect(cmd.Context(), args[0], logger)
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if importsJSON {
			enc := jsoniter.ConfigCompatibleWithStandardLibrary.NewEncoder(out)
			enc.SetIndent("", "  ")
			if err := enc.Encode(report); err != nil {
				return err
			}
		} else if err := printImports(out, report); err != nil {
			return err
		}

		if missing := report.Unprovided(); len(missing) > 0 {
			return fmt.Errorf("%d imports not provided by the host", len(missing))
		}
		return nil
	},
}

func printImports(out io.Writer, report *engine.Report) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "IMPORT\tPROVIDED")
	for _, imp := range report.Imports {
		fmt.Fprintf(tw, "%s\t%t\n", imp.Name, imp.Provided)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	for _, name := range report.MissingExports {
		fmt.Fprintf(out, "missing export: %s\n", name)
	}
	return nil
}

func init() {
	importsCmd.Flags().BoolVar(&importsJSON, "json", false, "print the report as JSON")
}
