package cli

import (
	"bufio"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk"
	"github.com/MrEthical07/hrdesk/permission"
)

func newUsersCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "View and edit employee records",
	}
	cmd.AddCommand(
		newUsersGetCmd(a),
		newUsersRegisterCmd(a),
		newUsersPhoneCmd(a),
		newUsersResetCmd(a),
		newUsersPasswdCmd(a),
	)
	return cmd
}

func newUsersGetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "get <employee>",
		Short: "Show an employee record",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			if !permission.Can(snap.Claims, args[0], permission.ViewProfile) {
				return hrdesk.ErrPermissionDenied
			}
			u, err := a.client.GetUser(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			w := out(cmd)
			fmt.Fprintf(w, "%-12s %s\n", "Employee:", u.EmployeeNumber)
			fmt.Fprintf(w, "%-12s %s\n", "Name:", u.Username)
			fmt.Fprintf(w, "%-12s %s\n", "Phone:", u.PhoneNumber)
			fmt.Fprintf(w, "%-12s %s\n", "Department:", u.DepartmentName)
			fmt.Fprintf(w, "%-12s %s\n", "Role:", u.RoleName)
			return nil
		},
	}
}

func newUsersRegisterCmd(a *app) *cobra.Command {
	var r hrdesk.Registration
	var department, role int64
	cmd := &cobra.Command{
		Use:   "register",
		Short: "Register a new employee",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			if cmd.Flags().Changed("department") {
				r.DepartmentID = &department
			}
			if cmd.Flags().Changed("role") {
				r.RoleID = &role
			}
			if err := a.client.RegisterUser(cmd.Context(), r); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Registered %s\n", r.EmployeeNumber)
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&r.EmployeeNumber, "employee", "", "Employee number")
	f.StringVar(&r.Username, "name", "", "Display name")
	f.StringVar(&r.PhoneNumber, "phone", "", "Phone number (10 digits)")
	f.StringVar(&r.Password, "password", "", "Initial password")
	f.StringVar(&r.ConfirmPassword, "confirm", "", "Initial password again")
	f.Int64Var(&department, "department", 0, "Department id (see 'hrdesk departments')")
	f.Int64Var(&role, "role", 0, "Role id (see 'hrdesk roles')")
	return cmd
}

func newUsersPhoneCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "phone <employee> <number>",
		Short: "Change an employee's phone number",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			if !permission.Can(snap.Claims, args[0], permission.UpdatePhone) {
				return fmt.Errorf("%w: only the employee or an HR administrator may change this number", hrdesk.ErrPermissionDenied)
			}
			if err := a.client.UpdatePhoneNumber(cmd.Context(), args[0], args[1]); err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Updated phone number of %s\n", args[0])
			return nil
		},
	}
}

func newUsersResetCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "reset-password <employee>",
		Short: "Reset an employee's password (HR administrators)",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.requireSession(cmd)
			if err != nil {
				return err
			}
			if !permission.Can(snap.Claims, args[0], permission.ResetPassword) {
				return fmt.Errorf("%w: password resets need an HR administrator", hrdesk.ErrPermissionDenied)
			}
			temp, err := a.client.ResetPassword(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(out(cmd), "Temporary password for %s: %s\n", args[0], temp)
			return nil
		},
	}
}

func newUsersPasswdCmd(a *app) *cobra.Command {
	var password, confirm string
	cmd := &cobra.Command{
		Use:   "passwd",
		Short: "Change your own password and sign out",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if _, err := a.requireSession(cmd); err != nil {
				return err
			}
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if password == "" {
				if password, err = prompt(in, out(cmd), "New password: "); err != nil {
					return err
				}
			}
			if confirm == "" {
				if confirm, err = prompt(in, out(cmd), "Confirm password: "); err != nil {
					return err
				}
			}
			if err := a.client.ChangePassword(cmd.Context(), password, confirm); err != nil {
				return err
			}
			fmt.Fprintln(out(cmd), "Password changed. Log in again with the new password.")
			return nil
		},
	}
	cmd.Flags().StringVar(&password, "password", "", "New password")
	cmd.Flags().StringVar(&confirm, "confirm", "", "New password again")
	return cmd
}
