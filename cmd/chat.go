package cmd

import (
	"bufio"
	"fmt"
	"os"
	"strings"

	"repocite/internal/llm"

	"github.com/spf13/cobra"
)

// chatHistoryTurns bounds the messages replayed to the chat collaborator.
const chatHistoryTurns = 20

var chatCmd = &cobra.Command{
	Use:   "chat",
	Short: "Ask follow-up questions about an indexed codebase on the terminal",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		k, root := queryParams(cmd)

		s, err := openSession(resolveIndexDir(wd), root, true)
		if err != nil {
			return err
		}
		defer s.Close()

		ctx := cmd.Context()
		out := cmd.OutOrStdout()
		var history []llm.Message
		scanner := bufio.NewScanner(cmd.InOrStdin())

		fmt.Fprintf(out, "repocite chat, %d chunks indexed (type /help for commands, /exit to quit)\n\n", s.index.Len())

		for {
			fmt.Fprint(out, "> ")
			if !scanner.Scan() {
				break
			}
			question := strings.TrimSpace(scanner.Text())
			if question == "" {
				continue
			}

			switch question {
			case "/exit", "/quit":
				fmt.Fprintln(out, "Goodbye.")
				return nil
			case "/clear":
				history = nil
				fmt.Fprintln(out, "Conversation cleared.")
				continue
			case "/help":
				fmt.Fprintln(out, "Commands:")
				fmt.Fprintln(out, "  /clear  - clear conversation history")
				fmt.Fprintln(out, "  /exit   - quit chat")
				fmt.Fprintln(out, "  /help   - show this help")
				continue
			}

			fmt.Fprintln(out, "[Searching...]")
			answer, err := s.retriever.Answer(ctx, question, k, history...)
			if err != nil {
				if ctx.Err() != nil {
					return ctx.Err()
				}
				logger.Error("answer failed", "error", err)
				continue
			}

			fmt.Fprintf(out, "\n%s\n\n", answer)

			history = append(history,
				llm.Message{Role: llm.RoleUser, Content: question},
				llm.Message{Role: llm.RoleAssistant, Content: answer})
			if len(history) > chatHistoryTurns {
				history = history[len(history)-chatHistoryTurns:]
			}
		}

		return scanner.Err()
	},
}

func init() {
	chatCmd.Flags().IntVar(&flagK, "k", 20, "number of snippets to retrieve per question")
	chatCmd.Flags().StringVar(&flagRoot, "root", "/", "directory relative record paths resolve against")
	rootCmd.AddCommand(chatCmd)
}
