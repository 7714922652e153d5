package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"healthscreen/catalog"
	"healthscreen/config"
	"healthscreen/models"

	"github.com/fatih/color"
	"github.com/spf13/cobra"
)

// NewCatalogCommand creates the 'healthscreen catalog' command group.
func NewCatalogCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "catalog",
		Short: "Inspect the questionnaire catalog",
	}
	cmd.PersistentFlags().String("lang", "en", "content language (th or en)")
	cmd.PersistentFlags().String("dir", "", "directory of instrument overrides (default: assessment.catalog_dir)")

	cmd.AddCommand(&cobra.Command{
		Use:   "list",
		Short: "List the questionnaires",
		Args:  cobra.NoArgs,
		RunE:  runCatalogList,
	})
	cmd.AddCommand(&cobra.Command{
		Use:   "show <questionnaire-id>",
		Short: "Print a questionnaire with its questions and choices",
		Args:  cobra.ExactArgs(1),
		RunE:  runCatalogShow,
	})
	return cmd
}

// loadCatalog resolves the catalog from --dir, or from assessment.catalog_dir in the config file.
func loadCatalog(cmd *cobra.Command) (*catalog.Catalog, models.Language, error) {
	langFlag, _ := cmd.Flags().GetString("lang")
	lang := models.ParseLanguage(langFlag, models.LanguageEnglish)

	dir, _ := cmd.Flags().GetString("dir")
	if dir == "" {
		path, _ := cmd.Flags().GetString("config")
		if cfg, err := config.Load(path); err == nil {
			dir = cfg.Assessment.CatalogDir
		}
	}
	cat, err := catalog.LoadWithOverrides(dir)
	if err != nil {
		return nil, lang, fmt.Errorf("load catalog: %w", err)
	}
	return cat, lang, nil
}

func runCatalogList(cmd *cobra.Command, _ []string) error {
	cat, lang, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tQUESTIONS\tSCORING\tTITLE")
	for _, q := range cat.List() {
		info := q.Info(lang)
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\n", info.ID, info.QuestionCount, info.Scoring, info.Title)
	}
	return w.Flush()
}

func runCatalogShow(cmd *cobra.Command, args []string) error {
	cat, lang, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	q, ok := cat.Questionnaire(args[0])
	if !ok {
		return fmt.Errorf("questionnaire not found: %s (known: %s)", args[0], strings.Join(cat.IDs(), ", "))
	}

	out := cmd.OutOrStdout()
	cyan := color.New(color.FgCyan, color.Bold)
	gray := color.New(color.FgHiBlack)

	cyan.Fprintln(out, q.Title.In(lang))
	if d := q.Description.In(lang); d != "" {
		fmt.Fprintln(out, d)
	}
	if q.Branch != nil {
		gray.Fprintf(out, "Screens on the first %d questions, extends at a partial score of %g.\n", q.Branch.ScreenSize, q.Branch.Threshold)
	}
	fmt.Fprintln(out)

	for _, lq := range cat.Questions(q.ID, lang) {
		marker := ""
		if !lq.Required {
			marker = " (optional)"
		}
		fmt.Fprintf(out, "%2d. [%s] %s%s\n", lq.Order, lq.ID, lq.Prompt, marker)
		for _, c := range lq.Choices {
			score := ""
			if c.Score != nil {
				score = fmt.Sprintf(" = %g", *c.Score)
			}
			gray.Fprintf(out, "      %s: %s%s\n", c.Value, c.Label, score)
		}
		if lq.Kind == models.InputNumeric && lq.Min != nil && lq.Max != nil {
			gray.Fprintf(out, "      number between %g and %g\n", *lq.Min, *lq.Max)
		}
	}
	return nil
}
