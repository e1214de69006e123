package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/version"
)

func newStatusCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "status",
		Short: "Show iotops status and configuration summary",
		RunE: func(cmd *cobra.Command, args []string) error {
			fmt.Printf("IotOps %s (commit %s)\n\n", version.Version, version.Commit)

			fmt.Printf("Config:  %s\n", paths.Config)
			fmt.Printf("Data:    %s\n", paths.Data)
			fmt.Printf("Logs:    %s\n", paths.Logs)
			fmt.Println()

			cfg, err := config.Load(paths.Config)
			if err != nil {
				if os.IsNotExist(err) {
					fmt.Println("Config:  not found (using defaults)")
				} else {
					fmt.Printf("Config:  error loading: %v\n", err)
				}
				return nil
			}

			region := cfg.AWS.Region
			if region == "" {
				region = "(credential chain)"
			}
			fmt.Printf("AWS:     region=%s profile=%s\n", region, cfg.AWS.Profile)

			fmt.Printf("Gateway: port=%d bind=%s auth=%v\n",
				cfg.Gateway.Port, cfg.Gateway.Bind, cfg.Gateway.Capabilities.Auth)

			if cfg.Agent.ID != "" {
				fmt.Printf("Agent:   id=%s alias=%s\n", cfg.Agent.ID, cfg.Agent.AliasID)
			} else {
				fmt.Println("Agent:   (not provisioned — run `iotops provision up`)")
			}

			fmt.Printf("History: table=%s\n", cfg.History.Table)

			if cfg.Provision.DataBucket != "" {
				fmt.Printf("Bucket:  %s (prefix %s)\n",
					cfg.Provision.DataBucket, cfg.Provision.DocumentPrefix)
			} else {
				fmt.Println("Bucket:  (not configured)")
			}

			issues := config.Validate(&cfg)
			if len(issues) > 0 {
				fmt.Printf("\nValidation issues (%d):\n", len(issues))
				for _, issue := range issues {
					fmt.Printf("  - %s: %s\n", issue.Path, issue.Message)
				}
			}

			return nil
		},
	}

	return cmd
}
