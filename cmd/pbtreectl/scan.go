package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/archivekit/pbtree/pbtree"
)

func newScanCmd() *cobra.Command {
	var (
		filePath  string
		fields    string
		checksums bool
	)

	cmd := &cobra.Command{
		Use:   "scan [prefix]",
		Short: "Scan every key starting with prefix (all keys when omitted)",
		Args:  cobra.MaximumNArgs(1),
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

			var prefix []byte
			if len(args) == 1 {
				prefix = []byte(args[0])
			}

			out := cmd.OutOrStdout()
			for item, err := range r.Items(prefix) {
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s\t%s\n", item.Key, formatValue(item.Value))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&filePath, "file", "", "PBTree file path")
	cmd.Flags().StringVar(&fields, "fields", "", "comma-separated name:bitwidth record fields, must match how the file was built")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "the file carries per-block checksums")
	cmd.MarkFlagRequired("file")
	return cmd
}
