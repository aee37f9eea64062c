package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archivekit/pbtree/pbtree"
)

func newGetCmd() *cobra.Command {
	var (
		filePath  string
		fields    string
		checksums bool
	)

	cmd := &cobra.Command{
		Use:   "get <key>",
		Short: "Look up a single key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			packer, err := parsePacker(fields)
			if err != nil {
				return err
			}
			f, size, err := openFile(filePath)
			if err != nil {
				return err
			}
			defer f.Close()

			r, err := pbtree.NewReader(f, size,
				pbtree.WithReaderValuePacker(packer),
				pbtree.WithReaderChecksums(checksums),
				pbtree.WithVerifyChecksums(checksums),
			)
			if err != nil {
				return err
			}

			value, found, err := r.Get([]byte(args[0]))
			if err != nil {
				return err
			}
			if !found {
				return fmt.Errorf("key %q not found", args[0])
			}
			fmt.Fprintln(cmd.OutOrStdout(), formatValue(value))
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "PBTree file path")
	cmd.Flags().StringVar(&fields, "fields", "", "comma-separated name:bitwidth record fields, must match how the file was built")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "the file carries per-block checksums")
	cmd.MarkFlagRequired("file")
	return cmd
}
