package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MrEthical07/hrdesk/permission"
)

func newLoginCmd(a *app) *cobra.Command {
	var employee, password string
	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the access token",
		Long: `Sign in with an employee number and password.

Missing values are read from stdin, one per line.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			in := bufio.NewReader(cmd.InOrStdin())
			var err error
			if employee == "" {
				if employee, err = prompt(in, out(cmd), "Employee number: "); err != nil {
					return err
				}
			}
			if password == "" {
				if password, err = prompt(in, out(cmd), "Password: "); err != nil {
					return err
				}
			}

			snap, err := a.client.Login(cmd.Context(), employee, password)
			if err != nil {
				return fmt.Errorf("login: %w", err)
			}
			fmt.Fprintf(out(cmd), "Logged in as %s (%s, level %d)\n", snap.EmployeeNumber(), snap.Department(), snap.Level())
			return nil
		},
	}
	cmd.Flags().StringVarP(&employee, "employee", "e", "", "Employee number")
	cmd.Flags().StringVarP(&password, "password", "p", "", "Password")
	return cmd
}

func prompt(in *bufio.Reader, w io.Writer, label string) (string, error) {
	fmt.Fprint(w, label)
	line, err := in.ReadString('\n')
	if err != nil && !(errors.Is(err, io.EOF) && line != "") {
		return "", fmt.Errorf("read %s: %w", strings.TrimSuffix(strings.ToLower(label), ": "), err)
	}
	return strings.TrimSpace(line), nil
}

func newLogoutCmd(a *app) *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "logout",
		Short: "Sign out and forget the stored token",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			logout := a.client.Logout
			if force {
				logout = a.client.ForceLogout
			}
			if err := logout(cmd.Context()); err != nil {
				return fmt.Errorf("logout: %w (use --force to clear the local session anyway)", err)
			}
			fmt.Fprintln(out(cmd), "Logged out")
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "Clear the local session even if the backend rejects the logout")
	return cmd
}

func newWhoamiCmd(a *app) *cobra.Command {
	var remote bool
	cmd := &cobra.Command{
		Use:   "whoami",
		Short: "Show the signed-in employee and what they may do",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			snap, err := a.requireSession(cmd)
			if err != nil {
				return err
			}

			w := out(cmd)
			fmt.Fprintf(w, "%-14s %s\n", "Employee:", snap.EmployeeNumber())
			fmt.Fprintf(w, "%-14s %s\n", "Department:", snap.Department())
			fmt.Fprintf(w, "%-14s %d\n", "Level:", snap.Level())
			fmt.Fprintf(w, "%-14s %t\n", "HR admin:", permission.IsHRAdmin(snap.Claims))

			caps := permission.DefaultRegistry().Names(permission.For(snap.Claims, snap.EmployeeNumber()))
			fmt.Fprintf(w, "%-14s %s\n", "Capabilities:", strings.Join(caps, ", "))

			if remote {
				u, err := a.client.Me(cmd.Context())
				if err != nil {
					return err
				}
				fmt.Fprintf(w, "%-14s %s\n", "Name:", u.Username)
				fmt.Fprintf(w, "%-14s %s\n", "Phone:", u.PhoneNumber)
				fmt.Fprintf(w, "%-14s %s\n", "Role:", u.RoleName)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&remote, "remote", false, "Also fetch the employee record from the backend")
	return cmd
}
