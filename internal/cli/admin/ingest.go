package admin

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/cloo-solutions/msassist/internal/service"
	"github.com/spf13/cobra"
)

func IngestCmd() *cobra.Command {
	var title, description string

	cmd := &cobra.Command{
		Use:   "ingest <file>...",
		Short: "Ingest documents into the knowledge base",
		Long: "Extract, chunk, embed and store each file. Re-ingesting an unchanged file " +
			"updates it in place.",
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, rt, err := newRuntime(context.Background())
			if err != nil {
				return err
			}
			defer rt.Close()

			a, err := buildApp(ctx, rt)
			if err != nil {
				return err
			}
			defer a.Close()

			if len(args) > 1 && title != "" {
				return fmt.Errorf("--title applies to a single file")
			}

			out := cmd.OutOrStdout()
			failed := 0
			for _, path := range args {
				n, err := ingestFile(ctx, a.ingestion, path, title, description)
				if err != nil {
					failed++
					fmt.Fprintf(cmd.ErrOrStderr(), "%s: %v (%d chunks committed)\n", path, err, n)
					continue
				}
				fmt.Fprintf(out, "%s: %d chunks indexed\n", path, n)
			}

			if failed > 0 {
				return fmt.Errorf("%d of %d files failed", failed, len(args))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&title, "title", "", "Document title (single file only, defaults to the file name)")
	cmd.Flags().StringVar(&description, "description", "", "Document description")

	return cmd
}

type ingester interface {
	Ingest(ctx context.Context, in service.IngestInput) (*service.IngestResult, error)
}

func ingestFile(ctx context.Context, ing ingester, path, title, description string) (int, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return 0, err
	}

	result, err := ing.Ingest(ctx, service.IngestInput{
		Filename:    filepath.Base(path),
		Title:       title,
		Description: description,
		Data:        data,
	})
	if result == nil {
		return 0, err
	}
	return result.ChunksIndexed, err
}
