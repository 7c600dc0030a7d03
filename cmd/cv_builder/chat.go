package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/jonathan/cv-builder/internal/conversation"
	"github.com/jonathan/cv-builder/internal/observability"
	"github.com/jonathan/cv-builder/internal/types"
)

var (
	chatStore    string
	chatSession  string
	chatLanguage string
)

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Build a CV interactively in the terminal",
	Long: `Run the CV conversation on stdin and stdout. Type exit or quit to leave;
with a persistent store, pass --session to resume later.`,
	RunE: runChatCmd,
}

func init() {
	chatCmd.Flags().StringVar(&chatStore, "store", "", "Session store: memory, redis or postgres (overrides STORE_BACKEND)")
	chatCmd.Flags().StringVar(&chatSession, "session", "", "Session ID to start or resume (default: a new one)")
	chatCmd.Flags().StringVarP(&chatLanguage, "language", "l", "", "Conversation language: ar or en (overrides DEFAULT_LANGUAGE)")
	rootCmd.AddCommand(chatCmd)
}

func runChatCmd(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	if chatStore != "" {
		cfg.StoreBackend = chatStore
	}
	if chatLanguage != "" {
		cfg.DefaultLanguage = chatLanguage
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
	defer stop()

	a, err := newApp(ctx, cfg, newLogger(cfg, os.Stderr))
	if err != nil {
		return err
	}
	defer a.Close()

	id := chatSession
	if id == "" {
		id = uuid.NewString()
	}

	var printer *observability.Printer
	if cfg.Verbose {
		printer = observability.NewPrinter(os.Stderr)
	}

	return runChat(ctx, a.controller, id, types.Language(cfg.DefaultLanguage), cmd.InOrStdin(), cmd.OutOrStdout(), printer)
}

// chatter is the part of the controller the terminal loop drives.
type chatter interface {
	Start(ctx context.Context, sessionID string, lang types.Language) (*conversation.Reply, error)
	Turn(ctx context.Context, sessionID, input string) (*conversation.Reply, error)
}

// runChat reads one line per turn from in until exit, EOF or a finished CV.
// printer, when set, receives the session state after every reply.
func runChat(ctx context.Context, conv chatter, sessionID string, lang types.Language, in io.Reader, out io.Writer, printer *observability.Printer) error {
	reply, err := conv.Start(ctx, sessionID, lang)
	if err != nil {
		return err
	}
	fmt.Fprintf(out, "session: %s\n\n", sessionID)
	show(out, printer, reply)
	if reply.State.IsComplete {
		return nil
	}

	scanner := bufio.NewScanner(in)
	for {
		fmt.Fprint(out, "> ")
		if !scanner.Scan() {
			fmt.Fprintln(out)
			return scanner.Err()
		}

		line := scanner.Text()
		switch strings.ToLower(strings.TrimSpace(line)) {
		case "exit", "quit":
			return nil
		}

		reply, err := conv.Turn(ctx, sessionID, line)
		if err != nil {
			return err
		}
		show(out, printer, reply)
		if reply.State.IsComplete {
			return nil
		}
	}
}

func show(out io.Writer, printer *observability.Printer, reply *conversation.Reply) {
	fmt.Fprintf(out, "%s\n\n", reply.Message)
	if printer != nil {
		printer.PrintState(reply.State)
	}
}
