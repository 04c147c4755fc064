// ABOUTME: CLI command to classify feedback text
// ABOUTME: Uses the ensemble when a sequence model is configured, otherwise k-NN with LLM fallback
package commands

import (
	"bufio"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/harper/feedback-radar/internal/stack"
	"github.com/spf13/cobra"
)

var classifyTwoAxis bool

// NewClassifyCmd creates the classify command
func NewClassifyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "classify [text...]",
		Short: "Classify feedback text",
		Long: `Classify one or more feedback texts.

Each argument is one item. With no arguments, stdin is read with one
item per line. Low-confidence k-NN votes are sent to the LLM when it is
enabled; the sequence model is combined in when RADAR_SEQUENCE_MODEL is set.

Examples:
  radar classify "환불은 어떻게 받나요?"
  cat letters.txt | radar classify --format json
  radar classify --two-axis "강의 너무 좋아요"`,
		RunE: runClassify,
	}

	cmd.Flags().BoolVar(&classifyTwoAxis, "two-axis", false, "Label topic and sentiment with the trained models")

	return cmd
}

func runClassify(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	texts := args
	if len(texts) == 0 {
		var err error
		texts, err = readLines(cmd)
		if err != nil {
			return err
		}
	}
	if len(texts) == 0 {
		return fmt.Errorf("no text provided")
	}

	a, err := openApp(ctx, stack.Options{Classifiers: true})
	if err != nil {
		return err
	}
	defer a.Close()

	if classifyTwoAxis {
		if a.TwoAxis == nil {
			return fmt.Errorf("--two-axis needs RADAR_TOPIC_MODEL and RADAR_SENTIMENT_MODEL")
		}
		results, err := a.TwoAxis.ClassifyBatch(ctx, texts)
		if err != nil {
			return fmt.Errorf("classifying: %w", err)
		}
		if useJSON(false) {
			return printJSON(cmd.OutOrStdout(), results)
		}
		w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
		fmt.Fprintf(w, "TOPIC\tSENTIMENT\tREFINED\tTEXT\n")
		fmt.Fprintf(w, "-----\t---------\t-------\t----\n")
		for i, r := range results {
			fmt.Fprintf(w, "%s (%.2f)\t%s (%.2f)\t%v\t%s\n",
				r.Topic, r.TopicConfidence, r.Sentiment, r.SentimentConfidence, r.Refined, truncate(texts[i], 50))
		}
		return w.Flush()
	}

	results, err := a.Classifier().ClassifyBatch(ctx, texts)
	if err != nil {
		return fmt.Errorf("classifying: %w", err)
	}

	if useJSON(false) {
		return printJSON(cmd.OutOrStdout(), map[string]any{
			"results": results,
			"usage":   a.Usage(),
		})
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintf(w, "CATEGORY\tCONFIDENCE\tMETHOD\tTEXT\n")
	fmt.Fprintf(w, "--------\t----------\t------\t----\n")
	for i, r := range results {
		fmt.Fprintf(w, "%s\t%.3f\t%s\t%s\n", r.Category, r.Confidence, r.Method, truncate(texts[i], 50))
	}
	if err := w.Flush(); err != nil {
		return err
	}

	if usage := a.Usage(); usage.Calls > 0 && !quiet {
		fmt.Fprintf(cmd.OutOrStdout(), "\nLLM calls: %d (failures %d, tokens %d)\n",
			usage.Calls, usage.Failures, usage.TotalTokens())
	}
	return nil
}

// readLines reads non-empty lines from the command's input.
func readLines(cmd *cobra.Command) ([]string, error) {
	in := cmd.InOrStdin()
	if in == nil {
		in = os.Stdin
	}

	var lines []string
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	for scanner.Scan() {
		if line := strings.TrimSpace(scanner.Text()); line != "" {
			lines = append(lines, line)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading stdin: %w", err)
	}
	return lines, nil
}
