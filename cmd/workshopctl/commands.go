package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/wolfman30/workshop-concierge/internal/app/bootstrap"
	"github.com/wolfman30/workshop-concierge/internal/conversation"
	"github.com/wolfman30/workshop-concierge/internal/extensions"
	"github.com/wolfman30/workshop-concierge/internal/review"
	"github.com/wolfman30/workshop-concierge/internal/workshop"
)

type appLoader func(ctx context.Context) (*bootstrap.App, error)

type cli struct {
	load appLoader
	app  *bootstrap.App
}

func (c *cli) ensureApp(cmd *cobra.Command) (*bootstrap.App, error) {
	if c.app != nil {
		return c.app, nil
	}
	app, err := c.load(cmd.Context())
	if err != nil {
		return nil, err
	}
	c.app = app
	return app, nil
}

// newRootCmd assembles the operator CLI. load is called lazily by commands that need the app.
func newRootCmd(load appLoader) *cobra.Command {
	c := &cli{load: load}

	root := &cobra.Command{
		Use:           "workshopctl",
		Short:         "Operate the workshop concierge",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPostRun: func(*cobra.Command, []string) {
			c.app.Close()
		},
	}

	tokensCmd := &cobra.Command{
		Use:   "tokens",
		Short: "Generate and inspect extension tokens",
	}
	tokensCmd.AddCommand(c.tokensGenerateCmd(), c.tokensListCmd())

	promptCmd := &cobra.Command{
		Use:   "prompt",
		Short: "Inspect assembled system prompts",
	}
	promptCmd.AddCommand(c.promptShowCmd())

	questionsCmd := &cobra.Command{
		Use:   "questions",
		Short: "Review flagged responses",
	}
	questionsCmd.AddCommand(c.questionsListCmd())

	dataCmd := &cobra.Command{
		Use:   "data",
		Short: "Query the workshop dataset",
	}
	dataCmd.AddCommand(c.dataLookupCmd())

	root.AddCommand(tokensCmd, promptCmd, questionsCmd, dataCmd)
	return root
}

func (c *cli) tokensGenerateCmd() *cobra.Command {
	var (
		count   int
		persona string
		asJSON  bool
	)
	cmd := &cobra.Command{
		Use:   "generate",
		Short: "Mint single-use tokens (1-50)",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.ensureApp(cmd)
			if err != nil {
				return err
			}
			tokens, err := app.Tokens.Generate(cmd.Context(), count, persona)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, tokens)
			}
			tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tTYPE\tPERSONA\tURL")
			for _, t := range tokens {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", t.ID, t.Type, t.Persona, t.URL)
			}
			if err := tw.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "%d Tokens erfolgreich generiert!\n", len(tokens))
			return nil
		},
	}
	cmd.Flags().IntVarP(&count, "count", "n", 10, "number of tokens")
	cmd.Flags().StringVarP(&persona, "persona", "p", "", "persona the tokens extend (default persona when empty)")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func (c *cli) tokensListCmd() *cobra.Command {
	var asJSON bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tokens with their redemption status",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.ensureApp(cmd)
			if err != nil {
				return err
			}
			tokens, err := app.Tokens.List(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, tokens)
			}
			return printTokens(out, tokens)
		},
	}
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printTokens(out io.Writer, tokens []extensions.TokenStatus) error {
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "TOKEN\tTYPE\tPERSONA\tUSED\tWINNER")
	used := 0
	for _, t := range tokens {
		winner := "-"
		if t.Winner != nil {
			winner = *t.Winner
		}
		if t.Used {
			used++
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", t.Token, t.Type, t.Persona, t.Used, winner)
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "%d von %d eingelöst\n", used, len(tokens))
	return err
}

func (c *cli) promptShowCmd() *cobra.Command {
	var (
		persona string
		at      string
	)
	cmd := &cobra.Command{
		Use:   "show",
		Short: "Print the system prompt a persona would receive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.ensureApp(cmd)
			if err != nil {
				return err
			}
			p, err := app.Personas.Get(persona)
			if err != nil {
				return err
			}
			now := time.Now()
			if at != "" {
				now, err = parseAt(at, app.Location)
				if err != nil {
					return err
				}
			}
			tc := workshop.Resolve(now, app.Location, app.Dataset)
			exts := extensions.NewLoader(app.Store, app.Logger).Load(cmd.Context(), p.ExtensionsKey)
			_, err = fmt.Fprintln(cmd.OutOrStdout(), conversation.BuildSystemPrompt(p, tc, exts.Extensions, app.Dataset))
			return err
		},
	}
	cmd.Flags().StringVarP(&persona, "persona", "p", "", "persona id")
	cmd.Flags().StringVar(&at, "at", "", `instant to render for, "2006-01-02 15:04" in workshop time or RFC3339`)
	return cmd
}

func parseAt(raw string, loc *time.Location) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	t, err := time.ParseInLocation("2006-01-02 15:04", raw, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid --at %q: %w", raw, err)
	}
	return t, nil
}

func (c *cli) questionsListCmd() *cobra.Command {
	var (
		unresolved bool
		asJSON     bool
	)
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List flagged responses, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			app, err := c.ensureApp(cmd)
			if err != nil {
				return err
			}
			questions, err := app.Review.Questions(cmd.Context())
			if err != nil {
				return err
			}
			if unresolved {
				open := questions[:0]
				for _, q := range questions {
					if !q.Resolved {
						open = append(open, q)
					}
				}
				questions = open
			}
			out := cmd.OutOrStdout()
			if asJSON {
				return writeJSON(out, questions)
			}
			return printQuestions(out, questions)
		},
	}
	cmd.Flags().BoolVar(&unresolved, "unresolved", false, "hide resolved entries")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON")
	return cmd
}

func printQuestions(out io.Writer, questions []review.UnknownQuestion) error {
	summary := review.Summarize(questions)
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tTYPE\tPRIORITY\tRESOLVED\tQUESTION")
	for _, q := range questions {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%t\t%s\n", q.ID, q.Type, q.Priority, q.Resolved, oneLine(q.UserQuestion, 60))
	}
	if err := tw.Flush(); err != nil {
		return err
	}
	_, err := fmt.Fprintf(out, "total=%d unresolved=%d high=%d\n", summary.Total, summary.Unresolved, summary.HighPriority)
	return err
}

func (c *cli) dataLookupCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "lookup <text>",
		Short: "Show which dataset sections a question refers to",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := c.ensureApp(cmd)
			if err != nil {
				return err
			}
			text := strings.Join(args, " ")
			out := cmd.OutOrStdout()
			rules := app.Dataset.Match(text)
			if len(rules) == 0 {
				_, err := fmt.Fprintln(out, "keine Treffer")
				return err
			}
			for _, rule := range rules {
				var parts []string
				for _, ref := range app.Dataset.Lookup(rule.Term) {
					if ref.ID == "" {
						parts = append(parts, string(ref.Kind)+":*")
						continue
					}
					parts = append(parts, string(ref.Kind)+":"+ref.ID)
				}
				fmt.Fprintf(out, "%s -> %s\n", rule.Term, strings.Join(parts, ", "))
			}
			return nil
		},
	}
}

func writeJSON(out io.Writer, v any) error {
	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(v)
}

func oneLine(s string, n int) string {
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
