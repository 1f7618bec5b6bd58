package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/openneta/netawatch/internal/resolve"
	"github.com/openneta/netawatch/internal/service"
)

func newMemberCmd() *cobra.Command {
	var role, constituency, party string
	cmd := &cobra.Command{
		Use:   "member <name>",
		Short: "Resolve one legislator profile and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.ResolveMember(cmd.Context(), service.MemberQuery{
				Name:         args[0],
				Role:         resolve.Role(role),
				Constituency: constituency,
				Party:        party,
			})
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&role, "role", string(resolve.RoleMP), "declared role: MP or MLA")
	cmd.Flags().StringVar(&constituency, "constituency", "", "optional constituency hint")
	cmd.Flags().StringVar(&party, "party", "", "optional party hint")
	return cmd
}

func newAffidavitCmd() *cobra.Command {
	var constituency, party string
	cmd := &cobra.Command{
		Use:   "affidavit <name>",
		Short: "Fetch one candidate's election affidavit and print it as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := buildApp()
			if err != nil {
				return err
			}
			defer a.Close()

			res, err := a.Service.ResolveAffidavit(cmd.Context(), service.AffidavitQuery{
				Name:         args[0],
				Constituency: constituency,
				Party:        party,
			})
			if err != nil {
				return err
			}
			return printJSON(res)
		},
	}
	cmd.Flags().StringVar(&constituency, "constituency", "", "constituency as declared on the affidavit")
	cmd.Flags().StringVar(&party, "party", "", "party name or ballot abbreviation")
	_ = cmd.MarkFlagRequired("constituency")
	_ = cmd.MarkFlagRequired("party")
	return cmd
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	return nil
}
