package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/prscore/internal/infrastructure/wiring"
	"github.com/felixgeelhaar/prscore/pkg/domain/rubric"
)

var (
	rubricFile  string
	rubricForce bool
	rubricJSON  bool
)

var rubricCmd = &cobra.Command{
	Use:   "rubric",
	Short: "View and edit the grading rubric",
	Long: `The rubric is an ordered list of criteria, each with a weight and a
description. It is stored as YAML in .prscore/rubric.yaml unless
--file or PRSCORE_RUBRIC points elsewhere. Items are numbered from 1.`,
}

var rubricInitCmd = &cobra.Command{
	Use:   "init",
	Short: "Write the starter rubric",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		path := rubricPathFor(services)
		if _, err := os.Stat(path); err == nil && !rubricForce {
			return NewCLIError("rubric already exists at "+path, "Use --force to overwrite it", nil)
		}
		if err := services.Workspace.SaveRubric(path, rubric.Default()); err != nil {
			return fmt.Errorf("save rubric: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Wrote starter rubric to %s\n", path)
		return nil
	},
}

var rubricShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show the rubric and its total weight",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		services, err := loadServicesForCurrentDir()
		if err != nil {
			return err
		}
		r, err := services.Workspace.LoadRubric(rubricPathFor(services))
		if err != nil {
			return MapError(err)
		}
		if rubricJSON {
			return writeJSON(cmd.OutOrStdout(), r.Items())
		}
		fmt.Fprintln(cmd.OutOrStdout(), rubricTable(r))
		fmt.Fprintf(cmd.OutOrStdout(), "Total weight: %s\n", rubric.FormatWeight(r.TotalWeight()))
		return nil
	},
}

var rubricAddCmd = &cobra.Command{
	Use:     "add <criterion> [weight] [description]",
	Short:   "Append a criterion",
	Example: `  prscore rubric add "Testing" 20 "Meaningful unit tests cover the change"`,
	Args:    cobra.RangeArgs(1, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		return editRubric(cmd, func(r rubric.Rubric) (rubric.Rubric, error) {
			r = r.Add()
			ref := r.Ref(r.Len() - 1)
			fields := []rubric.Field{rubric.FieldCriterion, rubric.FieldWeight, rubric.FieldDescription}
			var err error
			for i, value := range args {
				if r, err = r.Update(ref, fields[i], value); err != nil {
					return r, err
				}
			}
			return r, nil
		})
	},
}

var rubricSetCmd = &cobra.Command{
	Use:     "set <index> <field> <value>",
	Short:   "Change the criterion, weight or description of an item",
	Example: `  prscore rubric set 2 weight 30`,
	Args:    cobra.ExactArgs(3),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseItemIndex(args[0])
		if err != nil {
			return err
		}
		field, err := rubric.ParseField(args[1])
		if err != nil {
			return MapError(err)
		}
		return editRubric(cmd, func(r rubric.Rubric) (rubric.Rubric, error) {
			return r.Update(r.Ref(idx), field, args[2])
		})
	},
}

var rubricRemoveCmd = &cobra.Command{
	Use:   "remove <index>",
	Short: "Remove an item; later items move up",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		idx, err := parseItemIndex(args[0])
		if err != nil {
			return err
		}
		return editRubric(cmd, func(r rubric.Rubric) (rubric.Rubric, error) {
			return r.Remove(idx)
		})
	},
}

// editRubric loads the rubric, applies fn and saves the result.
func editRubric(cmd *cobra.Command, fn func(rubric.Rubric) (rubric.Rubric, error)) error {
	services, err := loadServicesForCurrentDir()
	if err != nil {
		return err
	}
	path := rubricPathFor(services)
	r, err := services.Workspace.LoadRubric(path)
	if err != nil {
		return MapError(err)
	}
	next, err := fn(r)
	if err != nil {
		return MapError(err)
	}
	if err := services.Workspace.SaveRubric(path, next); err != nil {
		return fmt.Errorf("save rubric: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), rubricTable(next))
	fmt.Fprintf(cmd.OutOrStdout(), "Total weight: %s\n", rubric.FormatWeight(next.TotalWeight()))
	return nil
}

func rubricPathFor(services *wiring.AppServices) string {
	if rubricFile != "" {
		if filepath.IsAbs(rubricFile) {
			return rubricFile
		}
		return filepath.Join(services.Workspace.Root, rubricFile)
	}
	return services.Workspace.RubricPath()
}

// parseItemIndex converts a 1-based item number to an index.
func parseItemIndex(s string) (int, error) {
	n, err := strconv.Atoi(s)
	if err != nil || n < 1 {
		return 0, NewCLIError(fmt.Sprintf("invalid item number %q", s), "Items are numbered from 1; see 'prscore rubric show'", err)
	}
	return n - 1, nil
}

func rubricTable(r rubric.Rubric) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("240"))).
		Headers("#", "Criterion", "Weight", "Description").
		StyleFunc(func(row, col int) lipgloss.Style {
			s := lipgloss.NewStyle().Padding(0, 1)
			if row == table.HeaderRow {
				return s.Bold(true)
			}
			return s
		})
	for i, it := range r.Items() {
		t.Row(strconv.Itoa(i+1), it.Criterion, rubric.FormatWeight(it.Weight), it.Description)
	}
	return t.String()
}

func init() {
	rubricCmd.PersistentFlags().StringVar(&rubricFile, "file", "", "Rubric YAML file (default from config)")
	rubricInitCmd.Flags().BoolVar(&rubricForce, "force", false, "Overwrite an existing rubric")
	rubricShowCmd.Flags().BoolVar(&rubricJSON, "json", false, "Print the rubric as JSON")

	rubricCmd.AddCommand(rubricInitCmd, rubricShowCmd, rubricAddCmd, rubricSetCmd, rubricRemoveCmd)
	RootCmd.AddCommand(rubricCmd)
}
