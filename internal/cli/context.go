package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/tbc399/command-line-trader/config"
)

func newContextCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "context",
		Short: "Manage trading contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			if a.cfg.Context == "" {
				fmt.Println("no active context")
				return nil
			}
			fmt.Println(a.cfg.Context)
			return nil
		},
	}

	var (
		description string
		brokerName  string
		account     string
		token       string
		env         string
	)
	newCtx := &cobra.Command{
		Use:   "new NAME",
		Short: "Create a new context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			ctx := &config.Context{
				Name:        name,
				Description: description,
				Account: config.Account{
					Name:   name,
					Broker: brokerName,
					Number: account,
					Token:  token,
					Env:    env,
				},
			}
			if err := config.SaveContext(ctx); err != nil {
				return err
			}

			// First context becomes active automatically.
			if a.cfg.Context == "" {
				a.cfg.Context = name
				return a.cfg.Save()
			}
			return nil
		},
	}
	newCtx.Flags().StringVarP(&description, "description", "d", "", "Context description")
	newCtx.Flags().StringVar(&brokerName, "broker", "tradier", "Broker implementation")
	newCtx.Flags().StringVar(&account, "account", "", "Broker account number")
	newCtx.Flags().StringVar(&token, "token", "", "Broker access token")
	newCtx.Flags().StringVar(&env, "env", "api", "Broker environment (api or sandbox)")

	switchCtx := &cobra.Command{
		Use:   "switch NAME",
		Short: "Switch the active context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if _, err := config.LoadContext(name); err != nil {
				return err
			}
			a.cfg.Context = name
			if err := a.cfg.Save(); err != nil {
				return err
			}
			fmt.Printf("Switched context to %q\n", name)
			return nil
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List all contexts",
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := config.ListContexts()
			if err != nil {
				return err
			}
			for _, name := range names {
				marker := " "
				if name == a.cfg.Context {
					marker = "*"
				}
				fmt.Printf("%s %s\n", marker, name)
			}
			return nil
		},
	}

	rm := &cobra.Command{
		Use:   "rm NAME",
		Short: "Remove a context",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := args[0]
			if err := config.RemoveContext(name); err != nil {
				return err
			}
			if a.cfg.Context == name {
				a.cfg.Context = ""
				return a.cfg.Save()
			}
			return nil
		},
	}

	cmd.AddCommand(newCtx, switchCtx, list, rm)
	return cmd
}
