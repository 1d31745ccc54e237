// Command mmapctl is a read-only diagnostic tool for a mappedfile-managed
// file: it opens the file, reports the sizes and chunk reference counts
// the manager computes, and exits. It never writes to the data file
// itself.
package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"mappedfile"
)

var version = "dev"

func main() {
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: slog.LevelWarn}))

	var chunkSize, overlapSize int64

	rootCmd := &cobra.Command{
		Use:   "mmapctl",
		Short: "Inspect a mappedfile-managed file",
	}
	rootCmd.PersistentFlags().Int64Var(&chunkSize, "chunk-size", 1<<20, "chunk size in bytes, used to open the file for inspection")
	rootCmd.PersistentFlags().Int64Var(&overlapSize, "overlap-size", -1, "overlap size in bytes (-1: use the manager default)")

	open := func(path string) (*mappedfile.MappedFile, error) {
		if overlapSize < 0 {
			return mappedfile.Open(path, chunkSize, mappedfile.WithLogger(logger))
		}
		return mappedfile.OpenWithOverlap(path, chunkSize, overlapSize, mappedfile.WithLogger(logger))
	}

	rootCmd.AddCommand(
		&cobra.Command{
			Use:   "reference-counts <path>",
			Short: "Print the manager's own refcount and every cached chunk's refcount",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open(args[0])
				if err != nil {
					return err
				}
				defer m.Close()
				fmt.Println(m.ReferenceCounts())
				return nil
			},
		},
		&cobra.Command{
			Use:   "actual-size <path>",
			Short: "Print the current on-disk size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open(args[0])
				if err != nil {
					return err
				}
				defer m.Close()
				size, err := m.ActualSize()
				if err != nil {
					return err
				}
				fmt.Println(size)
				return nil
			},
		},
		&cobra.Command{
			Use:   "chunk-size <path>",
			Short: "Print the effective, page-aligned chunk size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open(args[0])
				if err != nil {
					return err
				}
				defer m.Close()
				fmt.Println(m.ChunkSize())
				return nil
			},
		},
		&cobra.Command{
			Use:   "overlap-size <path>",
			Short: "Print the effective, page-aligned overlap size",
			Args:  cobra.ExactArgs(1),
			RunE: func(cmd *cobra.Command, args []string) error {
				m, err := open(args[0])
				if err != nil {
					return err
				}
				defer m.Close()
				fmt.Println(m.OverlapSize())
				return nil
			},
		},
		&cobra.Command{
			Use:   "version",
			Short: "Print version information",
			Run: func(cmd *cobra.Command, args []string) {
				fmt.Println(version)
			},
		},
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
