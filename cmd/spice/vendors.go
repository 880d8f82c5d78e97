package main

import (
	"fmt"
	"regexp"
	"time"

	"github.com/spf13/cobra"

	"github.com/Veraticus/spice-ledger/internal/category"
	"github.com/Veraticus/spice-ledger/internal/cli"
	"github.com/Veraticus/spice-ledger/internal/common"
	"github.com/Veraticus/spice-ledger/internal/model"
)

func vendorsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "vendors",
		Short: "Manage description to category mappings",
		Long: `Vendors are the remembered mappings used to categorize new entries.

Mappings are learned from bulk recategorization or entered directly. A
mapping set here takes precedence over the built-in keyword rules.`,
	}

	cmd.AddCommand(vendorsListCmd())
	cmd.AddCommand(vendorsSetCmd())
	cmd.AddCommand(vendorsDeleteCmd())

	return cmd
}

func vendorsListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List vendor mappings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			vendors, err := a.store.GetAllVendors(cmd.Context())
			if err != nil {
				return err
			}
			cmd.Println(cli.RenderVendors(vendors))
			return nil
		},
	}
}

func vendorsSetCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "set <name> <category>",
		Short: "Map a description to a category",
		Example: `  spice vendors set "Blue Tokai" Coffee
  spice vendors set --regex "^uber( eats)?" Transport`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			isRegex, _ := cmd.Flags().GetBool("regex")
			vendor, err := userVendor(args[0], args[1], isRegex)
			if err != nil {
				return err
			}

			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			if err := a.store.SaveVendor(cmd.Context(), vendor); err != nil {
				return err
			}
			a.resolver.Flush()
			cmd.Println(cli.FormatSuccess(fmt.Sprintf("%s → %s", vendor.Name, vendor.Category)))
			return nil
		},
	}

	cmd.Flags().Bool("regex", false, "Treat the name as a regular expression")

	return cmd
}

// userVendor builds a user-entered mapping. Plain names are normalized the
// same way descriptions are looked up; patterns must compile.
func userVendor(name, cat string, isRegex bool) (*model.Vendor, error) {
	key := category.Normalize(name)
	if isRegex {
		if _, err := regexp.Compile(name); err != nil {
			return nil, common.NewUserError("invalid vendor pattern", err)
		}
		key = name
	}
	if key == "" || cat == "" {
		return nil, common.NewUserError("vendor name and category are required", fmt.Errorf("got %q and %q", name, cat))
	}
	return &model.Vendor{
		Name:        key,
		Category:    cat,
		Source:      model.SourceUser,
		IsRegex:     isRegex,
		LastUpdated: time.Now(),
	}, nil
}

func vendorsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <name>",
		Short: "Delete a vendor mapping",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := openApp(cmd.Context())
			if err != nil {
				return err
			}
			defer a.Close()

			name := args[0]
			if _, err := a.store.GetVendor(cmd.Context(), name); err != nil {
				name = category.Normalize(args[0])
			}
			if err := a.store.DeleteVendor(cmd.Context(), name); err != nil {
				return err
			}
			a.resolver.Flush()
			cmd.Println(cli.FormatSuccess("Deleted " + name))
			return nil
		},
	}
}
