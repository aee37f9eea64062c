package main

import (
	"bufio"
	"fmt"
	"os"

	"github.com/klauspost/compress/zstd"
	"github.com/spf13/cobra"

	"github.com/archivekit/pbtree/pbtree"
)

func newDumpCmd() *cobra.Command {
	var (
		filePath   string
		outputPath string
		fields     string
		checksums  bool
	)

	cmd := &cobra.Command{
		Use:   "dump",
		Short: "Export every key/value pair as zstd-compressed tab-separated lines",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			packer, err := parsePacker(fields)
			if err != nil {
				return err
			}
			in, size, err := openFile(filePath)
			if err != nil {
				return err
			}
			defer in.Close()

			r, err := pbtree.NewReader(in, size,
				pbtree.WithReaderValuePacker(packer),
				pbtree.WithReaderChecksums(checksums),
				pbtree.WithVerifyChecksums(checksums),
			)
			if err != nil {
				return err
			}

			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outputPath, err)
			}
			defer out.Close()

			enc, err := zstd.NewWriter(out)
			if err != nil {
				return fmt.Errorf("new zstd writer: %w", err)
			}

			w := bufio.NewWriter(enc)
			count := 0
			for item, err := range r.Items(nil) {
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%s\t%s\n", item.Key, formatValue(item.Value))
				count++
			}
			if err := w.Flush(); err != nil {
				return fmt.Errorf("flush dump: %w", err)
			}
			if err := enc.Close(); err != nil {
				return fmt.Errorf("close zstd writer: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "dumped %d entries to %s\n", count, outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "PBTree file path")
	cmd.Flags().StringVar(&outputPath, "output", "", "output .zst file path")
	cmd.Flags().StringVar(&fields, "fields", "", "comma-separated name:bitwidth record fields, must match how the file was built")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "the file carries per-block checksums")
	cmd.MarkFlagRequired("file")
	cmd.MarkFlagRequired("output")
	return cmd
}
