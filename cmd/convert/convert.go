// Package convert handles offline statement conversion commands
package convert

import (
	"context"
	"os"

	"github.com/spf13/cobra"

	"github.com/salmenktata/quelyosSuite-sub025/cmd/root"
	"github.com/salmenktata/quelyosSuite-sub025/internal/common"
	"github.com/salmenktata/quelyosSuite-sub025/internal/logging"
	"github.com/salmenktata/quelyosSuite-sub025/internal/models"
	"github.com/salmenktata/quelyosSuite-sub025/internal/statement"
)

// Cmd represents the convert command
var Cmd = &cobra.Command{
	Use:   "convert",
	Short: "Convert a bank statement to the normalized CSV format",
	Long: `Convert parses a bank statement (CSV, OFX, CAMT.053 or MT940) and writes
its transactions to a normalized CSV file, without touching the ledger.`,
	Run: convertFunc,
}

func convertFunc(cmd *cobra.Command, args []string) {
	if root.SharedFlags.Input == "" || root.SharedFlags.Output == "" {
		root.Log.Fatal("Both --input and --output are required")
	}

	format, err := statement.ParseFormat(root.SharedFlags.Format)
	if err != nil {
		root.Log.WithError(err).Fatal("Unsupported statement format")
	}

	root.Log.Info("Converting statement",
		logging.F(logging.FieldFile, root.SharedFlags.Input),
		logging.F(logging.FieldFormat, string(format)))

	adapter, err := statement.GetAdapter(format, root.Log)
	if err != nil {
		root.Log.WithError(err).Fatal("Error getting statement adapter")
	}

	file, err := os.Open(root.SharedFlags.Input)
	if err != nil {
		root.Log.WithError(err).Fatal("Error opening input file")
	}
	defer func() {
		if err := file.Close(); err != nil {
			root.Log.WithError(err).Warn("Failed to close input file")
		}
	}()

	result, err := adapter.Parse(context.Background(), file)
	if err != nil {
		root.Log.WithError(err).Fatal("Error parsing statement")
	}

	lines := make([]models.RawLine, 0, len(result.Lines))
	for i := range result.Lines {
		line := result.Lines[i]
		if err := statement.ApplyMapping(&line, result.DetectedColumns); err != nil {
			root.Log.WithError(err).Warn("Skipping unparseable line",
				logging.F(logging.FieldLine, line.Index+1))
			continue
		}
		lines = append(lines, line)
	}

	if err := common.WriteLinesToCSV(lines, root.SharedFlags.Output); err != nil {
		root.Log.WithError(err).Fatal("Error writing CSV output")
	}
	root.Log.Info("Statement conversion completed successfully!",
		logging.F(logging.FieldCount, len(lines)))
}
