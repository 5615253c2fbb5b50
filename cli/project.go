package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/stsysd/printledger/model"
)

func newProjectCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "project",
		Aliases: []string{"p"},
		Short:   "Manage print projects",
	}
	cmd.AddCommand(
		newProjectAddCommand(a),
		newProjectListCommand(a),
		newProjectShowCommand(a),
		newProjectUpdateCommand(a),
		newProjectDeleteCommand(a),
		newProjectRecalcCommand(a),
	)
	return cmd
}

// projectFlags はプロジェクトの入力値を受け取るフラグです。
type projectFlags struct {
	name         string
	designTime   float64
	printTime    float64
	materialUsed float64
	material     string
	hourlyRate   float64
	printRate    float64
}

func (f *projectFlags) register(cmd *cobra.Command) {
	cmd.Flags().Float64Var(&f.designTime, "design", 0, "design time in hours")
	cmd.Flags().Float64Var(&f.printTime, "print", 0, "print time in hours")
	cmd.Flags().Float64Var(&f.materialUsed, "used", 0, "material used in grams")
	cmd.Flags().StringVar(&f.material, "material", "", "material name")
	cmd.Flags().Float64Var(&f.hourlyRate, "hourly-rate", 0, "design rate per hour")
	cmd.Flags().Float64Var(&f.printRate, "print-rate", 0, "printer rate per hour")
}

// rate は指定されたフラグの値、未指定なら fallback を返します。
func rate(cmd *cobra.Command, flag string, value, fallback float64) (float64, error) {
	var val *float64
	if cmd.Flags().Changed(flag) {
		val = &value
	}
	r, err := model.NewRate(val, fallback)
	if err != nil {
		return 0, fmt.Errorf("invalid --%s: %w", flag, err)
	}
	return r.Float(), nil
}

func checkNonNegative(values map[string]float64) error {
	for flag, v := range values {
		if v < 0 {
			return model.NewValidationError(fmt.Sprintf("--%s must not be negative", flag))
		}
	}
	return nil
}

func newProjectAddCommand(a *app) *cobra.Command {
	var f projectFlags

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a project and calculate its cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := checkNonNegative(map[string]float64{
				"design": f.designTime, "print": f.printTime, "used": f.materialUsed,
			}); err != nil {
				return err
			}
			hourlyRate, err := rate(cmd, "hourly-rate", f.hourlyRate, a.cfg.Defaults.HourlyRate)
			if err != nil {
				return err
			}
			printRate, err := rate(cmd, "print-rate", f.printRate, a.cfg.Defaults.PrintRate)
			if err != nil {
				return err
			}

			material, err := a.store.GetMaterial(cmd.Context(), f.material)
			if err != nil {
				return err
			}
			p, err := model.NewProject(args[0], f.designTime, f.printTime, f.materialUsed, material, hourlyRate, printRate)
			if err != nil {
				return err
			}
			if err := a.store.AddProject(cmd.Context(), p); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			return nil
		},
	}
	f.register(cmd)
	_ = cmd.MarkFlagRequired("material")
	return cmd
}

func newProjectListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List projects with their costs",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			projects := a.store.ListProjects(cmd.Context())
			if len(projects) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No projects in database.")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Material", "Design", "Print", "Material Cost", "Total", "Stale")
			total := 0.0
			for _, p := range projects {
				b := p.Breakdown()
				stale := ""
				if p.IsStale() {
					stale = "*"
				}
				if err := table.Append([]string{
					p.Name(),
					p.MaterialName(),
					fmt.Sprintf("$%.2f", b.Design),
					fmt.Sprintf("$%.2f", b.Print),
					fmt.Sprintf("$%.2f", b.Material),
					fmt.Sprintf("$%.2f", b.Total),
					stale,
				}); err != nil {
					return err
				}
				total += b.Total
			}
			if err := table.Render(); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Total: $%.2f\n", total)
			return nil
		},
	}
}

func newProjectShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a project's itemized cost",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, err := a.store.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), p)
			if p.IsStale() {
				fmt.Fprintln(cmd.OutOrStdout(), "Total is out of date; run `printledger project recalc` to refresh it.")
			}
			return nil
		},
	}
}

func newProjectUpdateCommand(a *app) *cobra.Command {
	var f projectFlags

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Update a project; only the given flags are changed",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			existing, err := a.store.GetProject(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			flags := cmd.Flags()
			name, material := existing.Name(), existing.MaterialName()
			if flags.Changed("name") {
				name = f.name
			}
			if flags.Changed("material") {
				material = f.material
			}
			designTime, printTime, materialUsed := existing.DesignTime(), existing.PrintTime(), existing.MaterialUsed()
			if flags.Changed("design") {
				designTime = f.designTime
			}
			if flags.Changed("print") {
				printTime = f.printTime
			}
			if flags.Changed("used") {
				materialUsed = f.materialUsed
			}
			if err := checkNonNegative(map[string]float64{
				"design": designTime, "print": printTime, "used": materialUsed,
			}); err != nil {
				return err
			}
			hourlyRate, err := rate(cmd, "hourly-rate", f.hourlyRate, existing.HourlyRate())
			if err != nil {
				return err
			}
			printRate, err := rate(cmd, "print-rate", f.printRate, existing.PrintRate())
			if err != nil {
				return err
			}

			m, err := a.store.GetMaterial(cmd.Context(), material)
			if err != nil {
				return err
			}
			updated, err := model.NewProject(name, designTime, printTime, materialUsed, m, hourlyRate, printRate)
			if err != nil {
				return err
			}
			if err := a.store.UpdateProject(cmd.Context(), args[0], updated); err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), updated)
			return nil
		},
	}
	f.register(cmd)
	cmd.Flags().StringVar(&f.name, "name", "", "new project name")
	return cmd
}

func newProjectDeleteCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a project",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if err := a.store.DeleteProject(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Project deleted: %s\n", args[0])
			return nil
		},
	}
}

func newProjectRecalcCommand(a *app) *cobra.Command {
	var material string

	cmd := &cobra.Command{
		Use:   "recalc",
		Short: "Recalculate out-of-date project totals",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			n, err := a.store.RecalculateProjects(cmd.Context(), material)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %d project(s)\n", n)
			return nil
		},
	}
	cmd.Flags().StringVar(&material, "material", "", "only projects using this material")
	return cmd
}
