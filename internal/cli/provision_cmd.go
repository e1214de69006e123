package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/provision"
	"github.com/fieldline/iotops/internal/state"
)

func newProvisionCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "provision",
		Short: "Manage the Bedrock agent resource chain",
	}

	cmd.AddCommand(newProvisionUpCmd())
	cmd.AddCommand(newProvisionStatusCmd())
	cmd.AddCommand(newProvisionResetCmd())
	return cmd
}

func newProvisionUpCmd() *cobra.Command {
	var save bool

	cmd := &cobra.Command{
		Use:   "up",
		Short: "Create or resume the full resource chain",
		Long: "Runs the provisioning chain end to end: IAM roles, the vector\n" +
			"collection and index, the knowledge base, document ingestion, the\n" +
			"agent with its action groups, and the serving alias. Finished steps\n" +
			"recorded in the local ledger are skipped, so a failed run can be\n" +
			"resumed by running up again.",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			issues := config.ValidateProvision(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			if err := paths.EnsureDirs(); err != nil {
				return err
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
			if err != nil {
				return fmt.Errorf("loading AWS credentials: %w", err)
			}

			ledger, err := state.Open(paths.State, log)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer ledger.Close()

			clients := provision.NewClients(awsCfg, cfg.Provision, log)
			prov := provision.New(cfg.Provision, awsCfg.Region, clients, ledger, log)

			outputs, err := prov.Up(ctx)
			if err != nil {
				return err
			}

			fmt.Printf("Agent:          %s\n", outputs.AgentID)
			fmt.Printf("Agent alias:    %s\n", outputs.AgentAliasID)
			fmt.Printf("Knowledge base: %s\n", outputs.KnowledgeBaseID)
			fmt.Printf("Data source:    %s\n", outputs.DataSourceID)
			fmt.Printf("Collection:     %s\n", outputs.CollectionEndpoint)

			if save {
				if err := saveAgentOutputs(outputs.AgentID, outputs.AgentAliasID); err != nil {
					return fmt.Errorf("saving agent identity to config: %w", err)
				}
				fmt.Println("\nSaved agent id and alias to config; `iotops serve` will use them.")
			}
			return nil
		},
	}

	cmd.Flags().BoolVar(&save, "save", true, "write the agent id and alias back to the config file")
	return cmd
}

func saveAgentOutputs(agentID, aliasID string) error {
	raw, err := config.LoadRaw(paths.Config)
	if err != nil {
		raw = make(map[string]any)
	}
	config.SetValueAtPath(raw, []string{"agent", "id"}, agentID)
	config.SetValueAtPath(raw, []string{"agent", "aliasId"}, aliasID)
	return config.SaveRaw(paths.Config, raw)
}

func newProvisionStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show the provisioning ledger",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			ledger, err := state.Open(paths.State, log)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer ledger.Close()

			resources, err := ledger.All()
			if err != nil {
				return err
			}
			if len(resources) == 0 {
				fmt.Println("No provisioned resources recorded.")
				return nil
			}
			for _, r := range resources {
				fmt.Printf("%-28s %s\n", r.Step, r.ID)
			}
			return nil
		},
	}
}

func newProvisionResetCmd() *cobra.Command {
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Clear the provisioning ledger",
		Long: "Forgets every recorded step so the next up run re-checks all\n" +
			"resources. Does not delete anything in AWS.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return fmt.Errorf("pass --yes to confirm clearing the ledger")
			}
			ledger, err := state.Open(paths.State, log)
			if err != nil {
				return fmt.Errorf("opening ledger: %w", err)
			}
			defer ledger.Close()

			if err := ledger.Clear(); err != nil {
				return err
			}
			fmt.Println("Ledger cleared.")
			return nil
		},
	}

	cmd.Flags().BoolVar(&yes, "yes", false, "confirm the reset")
	return cmd
}
