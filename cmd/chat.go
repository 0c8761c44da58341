package cmd

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/teemow/calassist/internal/calendar"
	"github.com/teemow/calassist/internal/chat"
	"github.com/teemow/calassist/internal/llm"
	"github.com/teemow/calassist/internal/logging"
	"github.com/teemow/calassist/internal/session"
	"github.com/teemow/calassist/internal/tools"
)

const (
	welcomeMessage = "Welcome to your AI Calendar Assistant! Type 'quit' to exit."
	resetCommand   = "/reset"
)

func newChatCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "chat",
		Short: "Chat with the calendar assistant in the terminal",
		Long: `Start an interactive conversation with the calendar assistant.

Ask it to create, list, update or delete events in plain language. Type
'quit' or 'exit' to leave and '/reset' to start a new conversation.

The provider API key is read from ANTHROPIC_API_KEY or GROQ_API_KEY.`,
		Args: cobra.NoArgs,
		RunE: runChat,
	}

	addLLMFlags(cmd)
	addGoogleFlags(cmd)
	cmd.Flags().String("calendar-id", "", "Calendar to operate on (default: primary). Can also use CALASSIST_CALENDAR_ID env var.")
	cmd.Flags().Bool("show-usage", false, "Print cost and token usage after every reply")

	return cmd
}

func runChat(cmd *cobra.Command, _ []string) error {
	ctx, cancel := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	logger := newLogger(cmd, cmd.ErrOrStderr())

	llmCfg := llmConfig(cmd)
	rt, err := startRuntime(ctx, runtimeOptions{Logger: logger, Google: googleConfig(cmd), LLM: llmCfg})
	if err != nil {
		return err
	}
	defer func() {
		if err := rt.Close(); err != nil {
			logger.Warn("shutdown failed", logging.Err(err))
		}
	}()

	llmCfg.Metrics = rt.instr.Metrics()
	provider, err := llm.NewProvider(llmCfg, logger)
	if err != nil {
		return err
	}

	account := accountFlag(cmd)
	backend, err := rt.sc.BackendForAccount(account)
	if err != nil {
		return err
	}

	store := session.NewMemoryStore()
	if calendarID := stringFlag(cmd, "calendar-id", "CALASSIST_CALENDAR_ID"); calendarID != "" {
		store.SelectCalendar(calendarID)
	}
	client := calendar.NewClient(backend, store, logger, calendar.WithMetrics(rt.instr.Metrics()))
	dispatcher := tools.NewDispatcher(client, logger,
		tools.WithMetrics(rt.instr.Metrics()),
		tools.WithAuditLogger(rt.sc.AuditLogger()),
		tools.WithAccount(account),
	)
	conv := chat.New(provider, dispatcher, logger)

	showUsage, _ := cmd.Flags().GetBool("show-usage")
	return runREPL(ctx, cmd.InOrStdin(), cmd.OutOrStdout(), conv, showUsage)
}

// runREPL reads one message per line until EOF, an exit word or ctx is done.
func runREPL(ctx context.Context, in io.Reader, out io.Writer, conv *chat.Conversation, showUsage bool) error {
	fmt.Fprintln(out, welcomeMessage)

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "\n> ")
		if !scanner.Scan() {
			break
		}

		line := strings.TrimSpace(scanner.Text())
		switch {
		case chat.IsExit(line):
			return nil
		case line == "":
			continue
		case line == resetCommand:
			conv.Reset()
			fmt.Fprintln(out, "Conversation cleared.")
			continue
		}

		reply, err := conv.Send(ctx, line)
		if err != nil {
			if errors.Is(err, context.Canceled) {
				return nil
			}
			return err
		}

		fmt.Fprintln(out, "\nAssistant:", reply.Text)
		if showUsage && !reply.Failed {
			fmt.Fprintf(out, "(cost: $%.6f, tokens: %d)\n", reply.Cost, reply.TotalTokens)
		}

		if ctx.Err() != nil {
			return nil
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read input: %w", err)
	}
	return nil
}
