package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archivekit/pbtree/pbtree"
)

func newLevelsCmd() *cobra.Command {
	var (
		filePath  string
		checksums bool
		full      bool
	)

	cmd := &cobra.Command{
		Use:   "levels",
		Short: "Report the index depth, or a full structural diagnosis with --full",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, size, err := openFile(filePath)
			if err != nil {
				return err
			}
			defer f.Close()

			r, err := pbtree.NewReader(f, size,
				pbtree.WithReaderChecksums(checksums),
				pbtree.WithVerifyChecksums(checksums),
			)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if !full {
				levels, err := r.CountLevels()
				if err != nil {
					return err
				}
				fmt.Fprintln(out, levels)
				return nil
			}

			report, err := r.Diagnose()
			if err != nil {
				return err
			}
			fmt.Fprintf(out, "levels: %d\n", report.Levels)
			fmt.Fprintf(out, "index blocks visited: %d\n", report.IndexBlocksVisited)
			fmt.Fprintf(out, "data blocks visited: %d\n", report.DataBlocksVisited)
			fmt.Fprintf(out, "out-of-range pointers: %v\n", report.OutOfRangePointers)
			if report.BloomTrailerBytes > 0 {
				fmt.Fprintf(out, "bloom trailer bytes: %d\n", report.BloomTrailerBytes)
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "PBTree file path")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "the file carries per-block checksums")
	cmd.Flags().BoolVar(&full, "full", false, "walk the whole index tree instead of just the leftmost descent")
	cmd.MarkFlagRequired("file")
	return cmd
}
