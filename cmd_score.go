package main

import (
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"healthscreen/models"
	"healthscreen/scoring"
	"healthscreen/session"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// answersFile is the document read by 'healthscreen score'.
//
//	language: th
//	answers:
//	  phq-1: "2"
//	  phq-2: 1
//	  gpaq-domains: [work, travel]
type answersFile struct {
	Language string               `yaml:"language"`
	Answers  map[string]yaml.Node `yaml:"answers"`
}

// NewScoreCommand creates the 'healthscreen score' command.
func NewScoreCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "score <questionnaire-id> <answers.yaml>",
		Short: "Score a questionnaire offline from a file of answers",
		Long: `Walk a questionnaire with the answers in a YAML file, following its branching rules,
and print the total, risk level and triggered risk factors. Nothing is stored.

Answers for questions outside the active flow are ignored.`,
		Args: cobra.ExactArgs(2),
		RunE: runScore,
	}
	cmd.Flags().String("lang", "", "content language (th or en), overrides the file")
	cmd.Flags().String("dir", "", "directory of instrument overrides")
	return cmd
}

func runScore(cmd *cobra.Command, args []string) error {
	cat, _, err := loadCatalog(cmd)
	if err != nil {
		return err
	}
	q, ok := cat.Questionnaire(args[0])
	if !ok {
		return fmt.Errorf("questionnaire not found: %s", args[0])
	}

	data, err := os.ReadFile(args[1])
	if err != nil {
		return fmt.Errorf("read answers file: %w", err)
	}
	var file answersFile
	if err := yaml.Unmarshal(data, &file); err != nil {
		return fmt.Errorf("parse answers file %s: %w", args[1], err)
	}
	lang := models.ParseLanguage(file.Language, models.LanguageEnglish)
	if flag, _ := cmd.Flags().GetString("lang"); flag != "" {
		lang = models.ParseLanguage(flag, lang)
	}

	result, s, err := scoreAnswers(q, file.Answers, lang)
	if err != nil {
		return err
	}
	printResult(cmd.OutOrStdout(), q, s, result, lang)
	return nil
}

// scoreAnswers runs the flow controller over the supplied answers and evaluates the active set.
func scoreAnswers(q *models.Questionnaire, answers map[string]yaml.Node, lang models.Language) (*models.AssessmentResult, *models.AssessmentSession, error) {
	s := &models.AssessmentSession{ID: uuid.New(), QuestionnaireID: q.ID, UserID: "cli", Language: lang}
	ctl := session.NewController(q, s)
	for {
		cur, ok := ctl.Current()
		if !ok {
			break
		}
		if node, ok := answers[cur.ID]; ok {
			raw, err := rawValues(node)
			if err != nil {
				return nil, nil, fmt.Errorf("answer %s: %w", cur.ID, err)
			}
			if err := ctl.Collector().RecordRaw(cur.ID, raw); err != nil {
				return nil, nil, err
			}
		}
		if _, err := ctl.Advance(); err != nil {
			return nil, nil, err
		}
	}
	return scoring.Evaluate(q, ctl.ActiveQuestions(), s.Answers), s, nil
}

// rawValues flattens a scalar or a sequence into the raw strings the collector parses.
func rawValues(node yaml.Node) ([]string, error) {
	switch node.Kind {
	case yaml.ScalarNode:
		return []string{node.Value}, nil
	case yaml.SequenceNode:
		out := make([]string, 0, len(node.Content))
		for _, item := range node.Content {
			if item.Kind != yaml.ScalarNode {
				return nil, fmt.Errorf("line %d: list items must be plain values", item.Line)
			}
			out = append(out, item.Value)
		}
		return out, nil
	default:
		return nil, fmt.Errorf("line %d: expected a value or a list of values", node.Line)
	}
}

var badgeColors = map[string]*color.Color{
	"green":  color.New(color.FgGreen, color.Bold),
	"yellow": color.New(color.FgYellow, color.Bold),
	"orange": color.New(color.FgHiRed, color.Bold),
	"red":    color.New(color.FgRed, color.Bold),
}

func printResult(out io.Writer, q *models.Questionnaire, s *models.AssessmentSession, r *models.AssessmentResult, lang models.Language) {
	p := r.RiskLevel.Presentation()
	badge, ok := badgeColors[p.Badge]
	if !ok {
		badge = color.New(color.Bold)
	}
	gray := color.New(color.FgHiBlack)

	fmt.Fprintln(out, q.Title.In(lang))
	fmt.Fprintf(out, "Answered: %d\n", len(s.Answers))
	fmt.Fprintf(out, "Score:    %s / %s (%d%%)\n", trimFloat(r.TotalScore), trimFloat(r.MaxScore), r.Percentage)
	fmt.Fprint(out, "Risk:     ")
	badge.Fprintln(out, p.Label.In(lang))
	if text := r.Interpretation.In(lang); text != "" {
		fmt.Fprintf(out, "Meaning:  %s\n", text)
	}
	if r.DominantCategory != "" {
		fmt.Fprintf(out, "Category: %s\n", r.DominantCategory)
	}
	if len(r.RiskFactors) > 0 {
		color.New(color.FgRed).Fprintf(out, "Risk factors: %s\n", strings.Join(r.RiskFactors, ", "))
	}
	gray.Fprintln(out, p.Advice.In(lang))
}

func trimFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
