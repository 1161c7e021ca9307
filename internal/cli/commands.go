package cli

import (
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"factboard/api/internal/board"
	"factboard/api/internal/category"
	"factboard/api/internal/search"
	"factboard/api/internal/store"
)

func newCategoriesCmd(opts *options) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "categories",
		Short: "List the categories a fact can be filed under",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cats := category.Categories()
			if remote {
				var err error
				cats, err = opts.client().Categories(cmd.Context())
				if err != nil {
					return err
				}
			}
			w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			for _, item := range cats {
				fmt.Fprintf(w, "%s\t%s\n", item.Name, item.Color)
			}
			return w.Flush()
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "ask the server instead of the built-in registry")
	return cmd
}

func newListCmd(opts *options) *cobra.Command {
	var categoryName string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show facts, most interesting first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := opts.newBoard(cmd.ErrOrStderr())
			if err := b.SelectCategory(cmd.Context(), categoryName); err != nil {
				return loadError(err)
			}
			renderView(cmd.OutOrStdout(), b.View())
			return nil
		},
	}
	cmd.Flags().StringVarP(&categoryName, "category", "c", category.All, "category filter")
	return cmd
}

func newSubmitCmd(opts *options) *cobra.Command {
	var draft board.Draft
	cmd := &cobra.Command{
		Use:   "submit",
		Short: "Share a new fact",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			b := opts.newBoard(cmd.ErrOrStderr())
			b.ToggleForm()
			if err := b.Form().Fill(draft); err != nil {
				return err
			}
			created, err := b.Submit(cmd.Context())
			if errors.Is(err, board.ErrInvalidDraft) {
				return fmt.Errorf("fact not submitted: need text of 1-%d characters (%d left), an http(s) source and one of: %s",
					board.MaxTextLength, b.Form().Remaining(), strings.Join(category.Names(), ", "))
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "created fact #%d in %s\n", created.ID, created.Category)
			return nil
		},
	}
	cmd.Flags().StringVar(&draft.Text, "text", "", "the fact")
	cmd.Flags().StringVar(&draft.Source, "source", "", "trustworthy source URL")
	cmd.Flags().StringVar(&draft.Category, "category", "", "category")
	_ = cmd.MarkFlagRequired("text")
	_ = cmd.MarkFlagRequired("source")
	_ = cmd.MarkFlagRequired("category")
	return cmd
}

func newVoteCmd(opts *options) *cobra.Command {
	var categoryName string
	cmd := &cobra.Command{
		Use:   "vote <id> <interesting|mindblowing|false>",
		Short: "Vote on a fact",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid fact id %q", args[0])
			}
			column, err := store.ParseVoteColumn(args[1])
			if err != nil {
				return err
			}

			b := opts.newBoard(cmd.ErrOrStderr())
			if err := b.SelectCategory(cmd.Context(), categoryName); err != nil {
				return loadError(err)
			}
			updated, err := b.Vote(cmd.Context(), id, column)
			if errors.Is(err, board.ErrFactNotLoaded) {
				return fmt.Errorf("fact #%d is not on the %q board", id, categoryName)
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "fact #%d: %s\n", updated.ID, counters(updated))
			return nil
		},
	}
	cmd.Flags().StringVarP(&categoryName, "category", "c", category.All, "category the fact is listed under")
	return cmd
}

func newSearchCmd(opts *options) *cobra.Command {
	var q search.Query
	cmd := &cobra.Command{
		Use:   "search <text>",
		Short: "Full text search over facts",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			q.Text = strings.Join(args, " ")
			resp, err := opts.client().Search(cmd.Context(), q)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, item := range resp.Results {
				renderFact(out, item, item.IsDisputed())
			}
			fmt.Fprintf(out, "%d result(s) for %q\n", resp.Total, resp.Query)
			return nil
		},
	}
	cmd.Flags().StringVarP(&q.Category, "category", "c", "", "category filter")
	cmd.Flags().IntVar(&q.Limit, "limit", 0, "maximum number of results")
	return cmd
}

// loadError turns a retrieval failure into a short exit error. The notifier
// has already printed the user facing message.
func loadError(err error) error {
	var retrievalErr *board.RetrievalError
	if errors.As(err, &retrievalErr) {
		return fmt.Errorf("load %s: %w", retrievalErr.Category, retrievalErr.Err)
	}
	return err
}

func renderView(w io.Writer, view board.View) {
	fmt.Fprintf(w, "category: %s\n", view.CurrentCategory)
	if view.Message != "" {
		fmt.Fprintln(w, view.Message)
		return
	}
	for _, item := range view.Facts {
		renderFact(w, item.Fact, item.Disputed)
	}
	fmt.Fprintf(w, "%d fact(s)\n", len(view.Facts))
}

func renderFact(w io.Writer, item store.Fact, disputed bool) {
	marker := ""
	if disputed {
		marker = "[DISPUTED] "
	}
	fmt.Fprintf(w, "#%d %s%s\n", item.ID, marker, item.Text)
	fmt.Fprintf(w, "    %s  %s (%s)\n", item.Source, item.Category, category.Color(item.Category))
	fmt.Fprintf(w, "    %s\n", counters(item))
}

func counters(item store.Fact) string {
	return fmt.Sprintf("interesting %d  mindblowing %d  false %d",
		item.VotesInteresting, item.VotesMindblowing, item.VotesFalse)
}
