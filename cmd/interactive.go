package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/manifoldco/promptui"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/recommend"
	"github.com/spigell/assessment-finder/internal/render"
)

const (
	PromptNewQuery    = "New query"
	PromptRepeatQuery = "Repeat query"
	PromptOpenResult  = "Show a result link"
	PromptResultsFile = "Dump results to file"
	PromptQuit        = "Quit"
	PromptBack        = "back"
)

var errExit = errors.New("exit requested")

var interactiveCmd = &cobra.Command{
	Use:     "interactive",
	Aliases: []string{"i"},
	Short:   "Ask queries in a terminal session",
	Run: func(cmd *cobra.Command, _ []string) {
		interactive(cmd)
	},
}

func init() {
	rootCmd.AddCommand(interactiveCmd)
}

type session struct {
	// submitContext scopes one request; an interrupt aborts that request only.
	submitContext func() (context.Context, context.CancelFunc)
	logger        *zap.Logger
	submitter     *query.Submitter
	out           *render.Terminal
	w             io.Writer
}

func interruptContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt)
}

func interactive(cmd *cobra.Command) {
	logger, config, client := setup()

	out, err := render.NewTerminal(cmd.OutOrStdout(), true)
	if err != nil {
		logger.Fatal("creating a renderer", zap.Error(err))
	}

	render.PrintBanner(cmd.OutOrStdout())
	logger.Info("using recommendation api", zap.String("base_url", config.API.BaseURL))

	s := &session{
		submitContext: interruptContext,
		logger:        logger,
		submitter:     query.New(client, logger),
		out:           out,
		w:             cmd.OutOrStdout(),
	}

	// show the loading line as soon as the request is dispatched
	s.submitter.Subscribe(func(st query.State) {
		if st.Loading() {
			if err := out.Render(st); err != nil {
				logger.Warn("rendering loading state", zap.Error(err))
			}
		}
	})

	action := PromptNewQuery
	for {
		if err := s.handleAction(action); err != nil {
			if errors.Is(err, errExit) || errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}

		action, err = s.nextAction()
		if err != nil {
			if errors.Is(err, promptui.ErrInterrupt) || errors.Is(err, promptui.ErrEOF) {
				return
			}
			logger.Fatal("exiting", zap.Error(err))
		}
	}
}

// menuItems lists the actions that make sense for st.
func menuItems(st query.State) []string {
	items := []string{PromptNewQuery}

	if strings.TrimSpace(st.Query()) != "" {
		items = append(items, PromptRepeatQuery)
	}
	if len(st.Results()) > 0 {
		items = append(items, PromptOpenResult, PromptResultsFile)
	}

	return append(items, PromptQuit)
}

// resultAt maps a selection in the result menu back to its recommendation;
// the trailing back entry and anything past it map to none.
func resultAt(results []recommend.Recommendation, idx int) (recommend.Recommendation, bool) {
	if idx < 0 || idx >= len(results) {
		return recommend.Recommendation{}, false
	}
	return results[idx], true
}

func (s *session) nextAction() (string, error) {
	prompt := promptui.Select{
		Label: "What next?",
		Items: menuItems(s.submitter.State()),
	}

	_, action, err := prompt.Run()
	return action, err
}

func (s *session) handleAction(action string) error {
	switch action {
	case PromptNewQuery:
		prompt := promptui.Prompt{
			Label:   "Job description or hiring query",
			Default: s.submitter.State().Query(),
		}
		q, err := prompt.Run()
		if err != nil {
			return err
		}
		return s.submit(q)
	case PromptRepeatQuery:
		return s.submit(s.submitter.State().Query())
	case PromptOpenResult:
		return s.showResult()
	case PromptResultsFile:
		response := &recommend.Response{Recommendations: s.submitter.State().Results()}
		filename, err := response.DumpToTmpFile()
		if err != nil {
			return fmt.Errorf("dump results to file: %w", err)
		}
		s.logger.Info("dumping results to file", zap.String("filename", filename), zap.Int("count", response.Len()))
		return nil
	case PromptQuit:
		s.logger.Info("exiting", zap.String("reason", "quit from prompt"))
		return errExit
	default:
		return fmt.Errorf("invalid action: %s", action)
	}
}

func (s *session) submit(q string) error {
	ctx, stop := s.submitContext()
	defer stop()

	st := s.submitter.Submit(ctx, q)
	if st.Phase() == query.PhaseLoading {
		// superseded; the latest submission renders itself
		return nil
	}
	return s.out.Render(st)
}

func (s *session) showResult() error {
	response := &recommend.Response{Recommendations: s.submitter.State().Results()}

	prompt := promptui.Select{
		Label: "Choose an assessment and press ENTER",
		Items: append(response.Names(), PromptBack),
	}

	idx, _, err := prompt.Run()
	if err != nil {
		return err
	}

	rec, ok := resultAt(response.Recommendations, idx)
	if !ok {
		return nil
	}

	s.logger.Debug("showing result", zap.String("assessment", rec.AssessmentName))
	_, err = fmt.Fprintf(s.w, "%s\n%s\n\n", rec.AssessmentName, rec.URL)
	return err
}
