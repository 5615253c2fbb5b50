package cli

import (
	"fmt"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/stsysd/printledger/model"
)

func newMaterialCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "material",
		Aliases: []string{"m"},
		Short:   "Manage printing materials",
	}
	cmd.AddCommand(
		newMaterialAddCommand(a),
		newMaterialListCommand(a),
		newMaterialShowCommand(a),
		newMaterialUpdateCommand(a),
		newMaterialDeleteCommand(a),
	)
	return cmd
}

func newMaterialAddCommand(a *app) *cobra.Command {
	var totalCost, totalVolume float64

	cmd := &cobra.Command{
		Use:   "add NAME",
		Short: "Add a material from its purchase price and weight",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := model.NewMaterial(args[0], totalCost, totalVolume)
			if err != nil {
				return err
			}
			if err := a.store.AddMaterial(cmd.Context(), m); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material added: %s\n", m)
			return nil
		},
	}
	cmd.Flags().Float64Var(&totalCost, "cost", 0, "total purchase cost")
	cmd.Flags().Float64Var(&totalVolume, "volume", 0, "total purchased weight in grams")
	_ = cmd.MarkFlagRequired("cost")
	_ = cmd.MarkFlagRequired("volume")
	return cmd
}

func newMaterialListCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List materials",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			materials := a.store.ListMaterials(cmd.Context())
			if len(materials) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No materials in database.")
				return nil
			}

			table := tablewriter.NewWriter(cmd.OutOrStdout())
			table.Header("Name", "Cost/g", "Volume (g)")
			for _, m := range materials {
				if err := table.Append([]string{
					m.Name(),
					fmt.Sprintf("$%.4f", m.CostPerGram()),
					fmt.Sprintf("%.2f", m.TotalVolume()),
				}); err != nil {
					return err
				}
			}
			return table.Render()
		},
	}
}

func newMaterialShowCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "show NAME",
		Short: "Show a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := a.store.GetMaterial(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintln(cmd.OutOrStdout(), m)
			return nil
		},
	}
}

func newMaterialUpdateCommand(a *app) *cobra.Command {
	var (
		totalCost, totalVolume float64
		recalculate            bool
	)

	cmd := &cobra.Command{
		Use:   "update NAME",
		Short: "Replace a material's purchase price and weight",
		Long: "Replace a material's purchase price and weight.\n" +
			"Project totals keep their previous value unless --recalculate is given.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := a.store.UpdateMaterialCost(cmd.Context(), name, totalCost, totalVolume); err != nil {
				return err
			}
			m, err := a.store.GetMaterial(cmd.Context(), name)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material updated: %s\n", m)

			if recalculate {
				n, err := a.store.RecalculateProjects(cmd.Context(), name)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Recalculated %d project(s)\n", n)
			}
			return nil
		},
	}
	cmd.Flags().Float64Var(&totalCost, "cost", 0, "new total purchase cost")
	cmd.Flags().Float64Var(&totalVolume, "volume", 0, "new total purchased weight in grams")
	cmd.Flags().BoolVar(&recalculate, "recalculate", false, "recalculate totals of projects using this material")
	_ = cmd.MarkFlagRequired("cost")
	_ = cmd.MarkFlagRequired("volume")
	return cmd
}

func newMaterialDeleteCommand(a *app) *cobra.Command {
	var force bool

	cmd := &cobra.Command{
		Use:   "delete NAME",
		Short: "Delete a material",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var err error
			if force {
				err = a.store.ForceDeleteMaterial(cmd.Context(), args[0])
			} else {
				err = a.store.DeleteMaterial(cmd.Context(), args[0])
			}
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Material deleted: %s\n", args[0])
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "delete even if projects still use the material")
	return cmd
}
