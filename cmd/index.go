package cmd

import (
	"fmt"
	"io"
	"path/filepath"
	"time"

	"repocite/internal/config"
	"repocite/internal/embedder"
	"repocite/internal/index"

	"github.com/spf13/cobra"
)

var (
	flagOut     string
	flagWorkers int
)

var indexCmd = &cobra.Command{
	Use:   "index <path>",
	Short: "Build the vector index for a repository",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		root, err := filepath.Abs(args[0])
		if err != nil {
			return err
		}

		outDir := flagOut
		if outDir == "" {
			outDir = filepath.Join(root, config.DefaultIndexDir)
		}
		workers := settings.Index.Workers
		if cmd.Flags().Changed("workers") {
			workers = flagWorkers
		}

		emb, err := embedder.New(settings.Embedder)
		if err != nil {
			return err
		}
		if c, ok := emb.(io.Closer); ok {
			defer c.Close()
		}

		idx := index.New(emb, index.Config{
			Workers:   workers,
			BatchSize: settings.Embedder.BatchSize,
			Excludes:  settings.Index.Exclude,
			Logger:    logger,
		})

		fmt.Printf("Indexing %s...\n", root)
		stats, err := idx.Index(cmd.Context(), root, outDir)
		if stats != nil {
			fmt.Printf("\nDone in %s\n", stats.Duration.Round(time.Millisecond))
			fmt.Printf("  Files:   %d total, %d indexed, %d skipped\n",
				stats.FilesTotal, stats.FilesIndexed, stats.FilesSkipped)
			fmt.Printf("  Chunks:  %d\n", stats.ChunksTotal)
			if err == nil {
				fmt.Printf("  Vectors: %d (dim %d) in %s\n", stats.Vectors, stats.Dim, outDir)
			}
		}
		return err
	},
}

func init() {
	indexCmd.Flags().StringVar(&flagOut, "out", "", "output directory (default <path>/.repocite)")
	indexCmd.Flags().IntVar(&flagWorkers, "workers", 0, "parallel segmentation workers (default number of CPUs)")
	rootCmd.AddCommand(indexCmd)
}
