package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"sync/atomic"
	"time"

	"github.com/fatih/color"
	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/xhad/seek/internal/models"
	"github.com/xhad/seek/pkg/logging"
	"github.com/xhad/seek/pkg/pipeline"
)

var (
	askJSON bool
	askTopK int
)

var askCmd = &cobra.Command{
	Use:   "ask [query...]",
	Short: "Answer a question, or start an interactive session",
	Long: `Answer a question from the top Wikipedia results for it.

Without arguments, reads questions from stdin until 'exit'.

Examples:
  seek ask "wha is AI"
  seek ask --top-k 5 --json "history of the printing press"`,
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the raw result as JSON")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of documents to answer from (default from config)")
}

// phaseLabels describe the work that follows each phase.
var phaseLabels = map[pipeline.Phase]string{
	pipeline.PhaseStart:      "Correcting query...",
	pipeline.PhaseNormalized: "Crawling search results...",
	pipeline.PhaseCrawled:    "Indexing documents...",
	pipeline.PhaseIndexed:    "Retrieving context...",
	pipeline.PhaseRetrieved:  "Generating response...",
}

func runAsk(cmd *cobra.Command, args []string) error {
	// Keep logs out of the conversation unless a level was configured.
	level := cfg.Log.Level
	if logLevel == "" && !cfg.LogLevelSet() {
		level = "warn"
	}
	logger, err := logging.New(cfg.Log.Env, level)
	if err != nil {
		return err
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	if askTopK > 0 {
		cfg.Retrieval.TopK = askTopK
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()
	ctx = logging.WithLogger(ctx, logger)

	var fetched atomic.Int32
	a, err := newApp(ctx, cfg, os.Stderr, func(string) { fetched.Add(1) })
	if err != nil {
		return err
	}
	defer a.Close(context.Background())

	if len(args) > 0 {
		return ask(ctx, a, strings.Join(args, " "), &fetched)
	}

	// Interactive chat loop with colored output
	color.Cyan("\nAsk anything (type 'exit' to quit)")

	scanner := bufio.NewScanner(os.Stdin)
	userPrompt := color.New(color.FgGreen).PrintfFunc()

	for {
		userPrompt("\nYou: ")
		if !scanner.Scan() {
			break
		}

		query := strings.TrimSpace(scanner.Text())
		if strings.ToLower(query) == "exit" {
			break
		}
		if query == "" {
			continue
		}

		if err := ask(ctx, a, query, &fetched); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			continue
		}
	}

	return scanner.Err()
}

// ask runs one query and prints the result.
func ask(ctx context.Context, a *app, query string, fetched *atomic.Int32) error {
	if askJSON {
		result, err := a.pipeline.Run(ctx, query)
		if err != nil {
			envelope := models.ErrorEnvelope(err.Error())
			result = &envelope
		}
		out, encErr := json.MarshalIndent(result, "", "  ")
		if encErr != nil {
			return encErr
		}
		fmt.Println(string(out))
		return err
	}

	fetched.Store(0)
	var phase atomic.Int32
	spinner := getSpinner(phaseLabels[pipeline.PhaseStart])

	done := make(chan struct{})
	go func() {
		ticker := time.NewTicker(100 * time.Millisecond)
		defer ticker.Stop()
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				p := pipeline.Phase(phase.Load())
				label := phaseLabels[p]
				if p == pipeline.PhaseNormalized {
					label = fmt.Sprintf("%s (%d pages)", label, fetched.Load())
				}
				spinner.Describe(color.CyanString(label))
				spinner.Add(1)
			}
		}
	}()

	result, err := a.pipeline.Run(ctx, query, func(p pipeline.Phase) {
		phase.Store(int32(p))
	})
	close(done)
	spinner.Finish()
	fmt.Print("\r")

	if err != nil {
		color.Red("\nError: %v\n", err)
		return err
	}

	printResult(result)
	return nil
}

func printResult(result *models.Result) {
	assistantPrompt := color.New(color.FgCyan).PrintfFunc()
	source := color.New(color.Faint).PrintfFunc()

	if result.Query != "" {
		source("\nSearched for: %s (%d pages)\n", result.Query, len(result.AllDocuments))
	}
	assistantPrompt("\nAssistant: %s\n", result.Answer)

	if len(result.Documents) > 0 {
		fmt.Println()
		for i, doc := range result.Documents {
			source("[%d] %s - %s\n", i+1, doc.Title, doc.URL)
		}
	}
}

func getSpinner(description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(-1,
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionSetDescription(color.CyanString(description)),
		progressbar.OptionSpinnerType(14),
		progressbar.OptionSetWidth(20),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetRenderBlankState(true),
		progressbar.OptionClearOnFinish(),
	)
}
