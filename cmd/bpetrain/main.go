package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/nanoschnack/bpetrain/tokenizer"
)

func main() {
	if err := NewCLI().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func NewCLI() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bpetrain [CORPUS]",
		Short: "Train a byte-level BPE vocabulary from a text corpus",
		Long: "Reads the corpus from CORPUS, or stdin when no file is given, " +
			"trains a byte-level BPE vocabulary and prints a summary. " +
			"Use --output to save the model as a Hugging Face tokenizer.json.",
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          trainHandler,
	}

	cmd.Flags().Int("vocab-size", 4096, "target vocabulary size (floor 256)")
	cmd.Flags().StringArray("special", nil, "special token to append after training (repeatable)")
	cmd.Flags().String("output", "", "write the trained model to this tokenizer.json path")
	cmd.Flags().Bool("fast", false, "use the incremental trainer instead of full recounting")
	cmd.Flags().Int("show", 10, "print the first N merges after training")
	cmd.Flags().String("encode", "", "encode this string with the trained model and print the ids")
	cmd.Flags().BoolP("verbose", "v", false, "enable debug logging")

	return cmd
}

func trainHandler(cmd *cobra.Command, args []string) error {
	vocabSize, _ := cmd.Flags().GetInt("vocab-size")
	specials, _ := cmd.Flags().GetStringArray("special")
	output, _ := cmd.Flags().GetString("output")
	fast, _ := cmd.Flags().GetBool("fast")
	show, _ := cmd.Flags().GetInt("show")
	sample, _ := cmd.Flags().GetString("encode")
	verbose, _ := cmd.Flags().GetBool("verbose")

	level := slog.LevelInfo
	if verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	corpus, err := readCorpus(args)
	if err != nil {
		return err
	}

	trainer := tokenizer.Trainer{Incremental: fast, Logger: logger}
	vocab, merges, err := trainer.Train(string(corpus), vocabSize, specials)
	if err != nil {
		return err
	}

	fmt.Printf("vocab size: %d, merges: %d\n", vocab.Len(), len(merges))
	if show > 0 && len(merges) > 0 {
		printMerges(vocab, merges, show)
	}

	if output != "" {
		if err := tokenizer.SaveTokenizerJSON(output, vocab, merges, ""); err != nil {
			return fmt.Errorf("write %s: %w", output, err)
		}
		logger.Info("model written", "path", output)
	}

	if sample != "" {
		enc, err := tokenizer.NewEncoder(vocab, merges, "")
		if err != nil {
			return err
		}
		ids, err := enc.Encode(sample)
		if err != nil {
			return err
		}
		fmt.Println(ids)
	}

	return nil
}

func readCorpus(args []string) ([]byte, error) {
	if len(args) == 1 {
		return os.ReadFile(args[0])
	}
	return io.ReadAll(os.Stdin)
}

func printMerges(vocab *tokenizer.Vocabulary, merges []tokenizer.Pair, n int) {
	if n > len(merges) {
		n = len(merges)
	}

	var data [][]string
	for i := 0; i < n; i++ {
		id := 256 + i
		token, _ := vocab.Bytes(id)
		data = append(data, []string{
			fmt.Sprint(id),
			fmt.Sprintf("%q", merges[i].Left),
			fmt.Sprintf("%q", merges[i].Right),
			fmt.Sprintf("%q", token),
		})
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "LEFT", "RIGHT", "TOKEN"})
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetHeaderLine(false)
	table.SetBorder(false)
	table.SetNoWhiteSpace(true)
	table.SetTablePadding("    ")
	table.AppendBulk(data)
	table.Render()
}
