package main

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/archivekit/pbtree/pbtree"
)

// stagedEntry is one key<TAB>value line held in memory by --sort until the
// whole input has been read and can be replayed in ascending key order.
type stagedEntry struct {
	key      string
	rawValue string
}

func newBuildCmd() *cobra.Command {
	var (
		inputPath   string
		outputPath  string
		blockSize   int
		fields      string
		checksums   bool
		strictOrder bool
		sortInput   bool
		bloomItems  uint
		bloomFP     float64
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build a PBTree file from tab-separated key/value input",
		Long: "Build reads \"key\\tvalue\" lines (from --input, or stdin when omitted) in\n" +
			"ascending key order and writes a PBTree file to --output.",
		RunE: func(cmd *cobra.Command, args []string) error {
			packer, err := parsePacker(fields)
			if err != nil {
				return err
			}

			in := cmd.InOrStdin()
			if inputPath != "" {
				f, err := os.Open(inputPath)
				if err != nil {
					return fmt.Errorf("open %s: %w", inputPath, err)
				}
				defer f.Close()
				in = f
			}

			opts := []pbtree.WriterOption{
				pbtree.WithValuePacker(packer),
				pbtree.WithChecksums(checksums),
				pbtree.WithStrictOrder(strictOrder),
			}
			if blockSize > 0 {
				opts = append(opts, pbtree.WithBlockSize(blockSize))
			}
			if bloomItems > 0 {
				opts = append(opts, pbtree.WithBloomFilter(bloomItems, bloomFP))
			}

			w, err := pbtree.NewWriter(opts...)
			if err != nil {
				return err
			}

			// Without --sort, input must already be ascending (the format's
			// own requirement). With --sort, every line is held in memory
			// and sorted by key before replay, so callers that can't
			// guarantee ordering (e.g. piping from an unsorted crawl log)
			// don't have to pre-sort themselves.
			var staged []stagedEntry

			addEntry := func(key, rawValue string) error {
				value, err := packValue(packer, rawValue)
				if err != nil {
					return err
				}
				if err := w.Add([]byte(key), value); err != nil {
					return fmt.Errorf("add %q: %w", key, err)
				}
				return nil
			}

			scanner := bufio.NewScanner(in)
			for scanner.Scan() {
				line := scanner.Text()
				if line == "" {
					continue
				}
				key, rawValue, ok := strings.Cut(line, "\t")
				if !ok {
					return fmt.Errorf("malformed line %q, want key<TAB>value", line)
				}
				if sortInput {
					staged = append(staged, stagedEntry{key: key, rawValue: rawValue})
					continue
				}
				if err := addEntry(key, rawValue); err != nil {
					return err
				}
			}
			if err := scanner.Err(); err != nil {
				return fmt.Errorf("read input: %w", err)
			}

			if sortInput {
				sort.Slice(staged, func(i, j int) bool { return staged[i].key < staged[j].key })
				for _, e := range staged {
					if err := addEntry(e.key, e.rawValue); err != nil {
						return err
					}
				}
			}

			out, err := os.Create(outputPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", outputPath, err)
			}
			defer out.Close()
			if err := w.Commit(out); err != nil {
				return fmt.Errorf("commit: %w", err)
			}

			manifest := pbtree.NewScalarManifest(blockSizeOrDefault(blockSize), pbtree.DefaultTerminator, 64)
			if rf, ok := packer.(*pbtree.RecordFormat); ok {
				manifest = pbtree.NewRecordManifest(blockSizeOrDefault(blockSize), pbtree.DefaultTerminator, rf.Fields)
			}
			if err := pbtree.WriteManifestFile(outputPath+".manifest.json", manifest); err != nil {
				return fmt.Errorf("write manifest: %w", err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", outputPath)
			return nil
		},
	}

	cmd.Flags().StringVar(&inputPath, "input", "", "input file of key<TAB>value lines (default stdin)")
	cmd.Flags().StringVar(&outputPath, "output", "", "output PBTree file path")
	cmd.Flags().IntVar(&blockSize, "block-size", 0, "block size in bytes (default pbtree.DefaultBlockSize)")
	cmd.Flags().StringVar(&fields, "fields", "", "comma-separated name:bitwidth record fields (default: one 64-bit scalar)")
	cmd.Flags().BoolVar(&checksums, "checksums", false, "append a per-block XXH3-64 checksum")
	cmd.Flags().BoolVar(&strictOrder, "strict-order", true, "reject out-of-order keys instead of producing a broken index")
	cmd.Flags().BoolVar(&sortInput, "sort", false, "stage input in memory and replay it in ascending key order before writing")
	cmd.Flags().UintVar(&bloomItems, "bloom-items", 0, "attach a bloom filter sized for this many items (0 disables it)")
	cmd.Flags().Float64Var(&bloomFP, "bloom-fp", 0.01, "bloom filter target false-positive rate")
	cmd.MarkFlagRequired("output")
	return cmd
}

func blockSizeOrDefault(n int) int {
	if n > 0 {
		return n
	}
	return pbtree.DefaultBlockSize
}
