package main

import (
	"fmt"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/sells-group/violation-assistant/internal/corpus"
)

var ingestFile string

var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Embed a normative-document corpus into the vector index",
	Long:  "Reads a YAML corpus of documents and clauses, embeds every clause and upserts it into the configured collection. Re-running with the same file is idempotent.",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		if err := cfg.Validate("ingest"); err != nil {
			return err
		}

		docs, err := corpus.LoadFile(ingestFile)
		if err != nil {
			return err
		}

		idx, coll, err := initIndex(ctx)
		if err != nil {
			return err
		}
		defer idx.Close() //nolint:errcheck

		n, err := corpus.Ingest(ctx, coll, docs)
		if err != nil {
			return err
		}
		total, err := coll.Count(ctx)
		if err != nil {
			return err
		}

		zap.L().Info("ingest complete",
			zap.String("file", ingestFile),
			zap.Int("documents", len(docs)),
			zap.Int("fragments", n),
			zap.Int("collection_size", total),
		)
		fmt.Fprintf(cmd.OutOrStdout(), "ingested %d fragments from %d documents (collection %q now holds %d)\n",
			n, len(docs), coll.Name(), total)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestFile, "file", "", "path to the corpus YAML file")
	_ = ingestCmd.MarkFlagRequired("file")
	rootCmd.AddCommand(ingestCmd)
}
