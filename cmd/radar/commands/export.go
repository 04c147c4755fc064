// ABOUTME: CLI command to export the indexed collection
// ABOUTME: Writes YAML that can be re-seeded, a Markdown review sheet, or raw vectors
package commands

import (
	"fmt"
	"io"
	"os"

	"github.com/harper/feedback-radar/internal/stack"
	"github.com/harper/feedback-radar/internal/storage/sqlite"
	"github.com/spf13/cobra"
)

var (
	exportAs      string
	exportOutput  string
	exportVectors bool
)

// NewExportCmd creates the export command
func NewExportCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export the labeled examples",
		Long: `Export every example in the collection.

YAML output uses the example-set layout, so it can be passed back to
"radar seed --examples". Markdown output groups examples by category for
review. --vectors dumps the stored embeddings as JSON instead.`,
		Args: cobra.NoArgs,
		RunE: runExport,
	}

	cmd.Flags().StringVar(&exportAs, "as", "yaml", "Export layout: yaml or markdown")
	cmd.Flags().StringVarP(&exportOutput, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&exportVectors, "vectors", false, "Export stored vectors as JSON")

	return cmd
}

func runExport(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	if exportAs != "yaml" && exportAs != "markdown" {
		return fmt.Errorf("invalid export layout %q (use yaml or markdown)", exportAs)
	}

	a, err := openApp(ctx, stack.Options{})
	if err != nil {
		return err
	}
	defer a.Close()

	var w io.Writer = cmd.OutOrStdout()
	if exportOutput != "" {
		f, err := os.Create(exportOutput)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer func() { _ = f.Close() }()
		w = f
	}

	if exportVectors {
		if err := sqlite.WriteVectorsJSON(ctx, a.DB, a.Store.Name(), w); err != nil {
			return err
		}
	} else {
		data, err := sqlite.Export(ctx, a.DB, a.Store.Name())
		if err != nil {
			return err
		}
		if exportAs == "markdown" {
			err = sqlite.WriteMarkdown(w, data)
		} else {
			err = sqlite.WriteYAML(w, data)
		}
		if err != nil {
			return err
		}
	}

	if exportOutput != "" {
		logger.Info("exported collection", "collection", a.Store.Name(), "path", exportOutput)
	}
	return nil
}
