package main

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/oskarvik/kontosort/internal/model"
)

func suggestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "suggest <description> <amount>",
		Short: "Suggest categories for a transaction without committing",
		Long: `Run the classification strategies over a single transaction and print the
ranked suggestions. Amount is signed (negative for expenses). Nothing is
written to the database.`,
		Args: cobra.ExactArgs(2),
		RunE: runSuggest,
	}

	return cmd
}

// parseAmount parses a signed decimal amount argument.
func parseAmount(arg string) (float64, error) {
	amount, err := strconv.ParseFloat(strings.TrimSpace(arg), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", arg, err)
	}
	return amount, nil
}

func runSuggest(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	amount, err := parseAmount(args[1])
	if err != nil {
		return err
	}

	store, err := initStorage(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = store.Close() }()

	orch, err := buildEngine(ctx, store)
	if err != nil {
		return err
	}

	txn := model.Transaction{
		Description: args[0],
		Amount:      amount,
		Date:        time.Now(),
	}

	suggestions, err := orch.ClassifyTransaction(ctx, txn)
	if err != nil {
		return fmt.Errorf("classification failed: %w", err)
	}

	if len(suggestions) == 0 {
		fmt.Println("No suggestions. Try adding more classified transactions or enabling the LLM.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer func() { _ = w.Flush() }()

	fmt.Fprintf(w, "Category\tConfidence\tClassifier\n")
	fmt.Fprintf(w, "%s\t%s\t%s\n",
		strings.Repeat("-", 16),
		strings.Repeat("-", 10),
		strings.Repeat("-", 12))
	for _, s := range suggestions {
		fmt.Fprintf(w, "%s\t%s\t%s\n",
			s.Category,
			strconv.FormatFloat(s.Confidence, 'f', 2, 64),
			s.Classifier)
	}
	return nil
}
