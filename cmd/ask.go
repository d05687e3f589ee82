package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	flagQuestion string
	flagK        int
	flagRoot     string
)

var askCmd = &cobra.Command{
	Use:   "ask",
	Short: "Answer one question from a built index, citing file:line ranges",
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

		answer, err := s.retriever.Answer(cmd.Context(), flagQuestion, k)
		if err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), answer)
		return nil
	},
}

// queryParams returns k and the snippet root, preferring flags over config.
func queryParams(cmd *cobra.Command) (int, string) {
	k, root := settings.Query.K, settings.Query.Root
	if cmd.Flags().Changed("k") {
		k = flagK
	}
	if cmd.Flags().Changed("root") {
		root = flagRoot
	}
	return k, root
}

func init() {
	askCmd.Flags().StringVarP(&flagQuestion, "question", "q", "", "question to answer")
	askCmd.Flags().IntVar(&flagK, "k", 20, "number of snippets to retrieve")
	askCmd.Flags().StringVar(&flagRoot, "root", "/", "directory relative record paths resolve against")
	_ = askCmd.MarkFlagRequired("question")
	rootCmd.AddCommand(askCmd)
}
