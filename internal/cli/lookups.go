package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk"
)

func newDepartmentsCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "departments",
		Short: "List departments",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			ds, err := a.client.Departments(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%-6s %s\n", "ID", "DEPARTMENT")
			for _, d := range hrdesk.FilterDepartments(ds, filter) {
				fmt.Fprintf(out(cmd), "%-6d %s\n", d.ID, d.DepartmentName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only show names containing this text")
	return cmd
}

func newRolesCmd(a *app) *cobra.Command {
	var filter string
	cmd := &cobra.Command{
		Use:   "roles",
		Short: "List roles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			rs, err := a.client.Roles(cmd.Context())
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "%-6s %s\n", "ID", "ROLE")
			for _, r := range hrdesk.FilterRoles(rs, filter) {
				fmt.Fprintf(out(cmd), "%-6d %s\n", r.ID, r.RoleName)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&filter, "filter", "", "Only show names containing this text")
	return cmd
}
