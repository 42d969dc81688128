package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/weaveget/weaveget/internal/output"
	"github.com/weaveget/weaveget/internal/utils"
	"github.com/weaveget/weaveget/pkg/rechunk"
)

func newSplitCmd() *cobra.Command {
	var chunkSize int
	var keepRemainder bool
	var outputPrefix string

	cmd := &cobra.Command{
		Use:   "split [FILE]",
		Short: "Split a file into fixed-size chunks",
		Args:  cobra.ExactArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			utils.InitLogger(debug)
			if chunkSize <= 0 {
				output.PrintError("Chunk size must be positive")
				os.Exit(1)
			}
			if outputPrefix == "" {
				outputPrefix = args[0]
			}
			count, err := splitFile(args[0], outputPrefix, chunkSize, keepRemainder)
			if err != nil {
				output.PrintError(fmt.Sprintf("Split failed: %v", err))
				os.Exit(1)
			}
			output.PrintSuccess(fmt.Sprintf("%s Wrote %d chunk files", output.StyleSymbols["pass"], count))
		},
	}

	cmd.Flags().IntVarP(&chunkSize, "size", "s", 256*1024, "Chunk size in bytes")
	cmd.Flags().StringVarP(&outputPrefix, "prefix", "o", "", "Output file prefix (defaults to the input path)")
	cmd.Flags().BoolVar(&keepRemainder, "keep-remainder", false, "Write the final short chunk instead of dropping it")
	return cmd
}

func splitFile(inputPath, outputPrefix string, chunkSize int, keepRemainder bool) (int, error) {
	log := utils.GetLogger("split")
	file, err := os.Open(inputPath)
	if err != nil {
		return 0, fmt.Errorf("error opening input file: %v", err)
	}
	defer file.Close()

	rc := rechunk.New(chunkSize, rechunk.Options{Flush: keepRemainder})
	count := 0
	writeReady := func() error {
		for {
			chunk, ok := rc.Next()
			if !ok {
				return nil
			}
			partPath := fmt.Sprintf("%s.part%d", outputPrefix, count)
			if err := os.WriteFile(partPath, chunk, 0644); err != nil {
				return fmt.Errorf("error writing %s: %v", partPath, err)
			}
			log.Debug().Str("file", partPath).Int("bytes", len(chunk)).Msg("Wrote chunk file")
			count++
		}
	}

	buf := make([]byte, utils.DefaultBufferSize)
	for {
		n, err := file.Read(buf)
		if n > 0 {
			segment := make([]byte, n)
			copy(segment, buf[:n])
			rc.Push(segment)
			if err := writeReady(); err != nil {
				return count, err
			}
		}
		if err == io.EOF {
			break
		}
		if err != nil {
			return count, fmt.Errorf("error reading input file: %v", err)
		}
	}
	rc.Close()
	if err := writeReady(); err != nil {
		return count, err
	}
	return count, nil
}

func init() {
	rootCmd.AddCommand(newSplitCmd())
}
