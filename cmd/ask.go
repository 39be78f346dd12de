package cmd

import (
	"context"
	"os"
	"os/signal"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/term"

	"github.com/spigell/assessment-finder/internal/query"
	"github.com/spigell/assessment-finder/internal/render"
)

var askCmd = &cobra.Command{
	Use:   "ask <query>",
	Short: "Send one query and print the recommendations",
	Args:  cobra.ArbitraryArgs,
	Run: func(cmd *cobra.Command, args []string) {
		ask(cmd, strings.Join(args, " "))
	},
}

func init() {
	rootCmd.AddCommand(askCmd)

	askCmd.Flags().Bool("plain", false, "print raw markdown even on a terminal")
}

func ask(cmd *cobra.Command, q string) {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	logger, _, client := setup()

	plain, _ := cmd.Flags().GetBool("plain")
	styled := !plain && term.IsTerminal(int(os.Stdout.Fd()))

	out, err := render.NewTerminal(cmd.OutOrStdout(), styled)
	if err != nil {
		logger.Fatal("creating a renderer", zap.Error(err))
	}

	submitter := query.New(client, logger)

	st := submitter.Submit(ctx, q)
	if err := out.Render(st); err != nil {
		logger.Fatal("rendering results", zap.Error(err))
	}

	if st.Phase() != query.PhaseSucceeded {
		os.Exit(1)
	}
}
