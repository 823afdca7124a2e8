package commands

import (
	"github.com/spf13/cobra"

	"idcard/internal/adapters/requests"
	"idcard/internal/printer"
)

// The CLI runs with operator rights; every request is made as an admin.
func newMemberCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "member",
		Short: "Administer registry members",
	}
	cmd.AddCommand(
		newMemberCreateCmd(),
		newMemberGetCmd(),
		newMemberListCmd(),
		newMemberSetStatusCmd(),
		newMemberSetRoleCmd(),
		newMemberDeleteCmd(),
	)
	return cmd
}

func newMemberCreateCmd() *cobra.Command {
	var name, role, owner string
	cmd := &cobra.Command{
		Use:   "create",
		Short: "Register a member and print the new record",
		Example: `  idcard member create --name "Asha Rao" --role Volunteer
  idcard member create --name "Asha Rao" --role Volunteer --owner 270655486318215168`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.Register(cmd.Context(), requests.RegisterRequest{
					RequesterIsAdmin: true,
					Name:             name,
					Role:             role,
					OwnerRef:         owner,
				})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Success("Registered %s", res.Member.ID)
				p.Member(*res.Member)
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&name, "name", "", "display name (required)")
	cmd.Flags().StringVar(&role, "role", "", "role or title (required)")
	cmd.Flags().StringVar(&owner, "owner", "", "platform account the record is bound to")
	_ = cmd.MarkFlagRequired("name")
	_ = cmd.MarkFlagRequired("role")
	return cmd
}

func newMemberGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <id>",
		Short: "Show one member",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.Lookup(cmd.Context(), requests.LookupRequest{ID: args[0]})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Member(*res.Member)
				return nil
			})
		},
	}
}

func newMemberListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every member",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.List(cmd.Context(), requests.ListRequest{RequesterIsAdmin: true})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Members(res.Members)
				return nil
			})
		},
	}
}

func newMemberSetStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:     "set-status <id> <ACTIVE|SUSPENDED|REVOKED>",
		Short:   "Change a member's status",
		Args:    cobra.ExactArgs(2),
		Example: "  idcard member set-status 482913 suspended",
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.UpdateStatus(cmd.Context(), requests.UpdateStatusRequest{
					RequesterIsAdmin: true,
					ID:               args[0],
					Status:           args[1],
				})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Success("Status updated")
				if res.Member != nil {
					p.Member(*res.Member)
				}
				return nil
			})
		},
	}
}

func newMemberSetRoleCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "set-role <id> <role>",
		Short: "Change a member's role",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.UpdateRole(cmd.Context(), requests.UpdateRoleRequest{
					RequesterIsAdmin: true,
					ID:               args[0],
					Role:             args[1],
				})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Success("Role updated")
				if res.Member != nil {
					p.Member(*res.Member)
				}
				return nil
			})
		},
	}
}

func newMemberDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <id>",
		Short: "Delete a member and its archived cards",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(a *app) error {
				p := out(cmd)
				res := a.handler.Delete(cmd.Context(), requests.DeleteRequest{RequesterIsAdmin: true, ID: args[0]})
				if !res.OK() {
					return failed(p, res.Err)
				}
				p.Success("Member %s deleted", args[0])
				return nil
			})
		},
	}
}

// failed prints f with a hint for its kind and returns the error for cobra.
func failed(p *printer.Printer, f *requests.Failure) error {
	switch f.Kind {
	case requests.KindNotFound:
		return p.Error("Not found", f.Message, []string{"Run 'idcard member list' to see registered ids"})
	case requests.KindValidation:
		return p.Error("Invalid input", f.Message, []string{"Ids are six digits", "Status is one of ACTIVE, SUSPENDED, REVOKED"})
	case requests.KindStoreUnavailable:
		return p.Error("Member store unavailable", f.Message, []string{"Check IDCARD_STORAGE_DRIVER and its connection settings"})
	case requests.KindRender:
		return p.Error("Could not render card", f.Message, nil)
	case requests.KindAuthorization:
		return p.Error("Admin only", f.Message, nil)
	}
	return p.Error("Something went wrong", f.Message, nil)
}
