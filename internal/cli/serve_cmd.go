package cli

import (
	"context"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/spf13/cobra"

	"github.com/fieldline/iotops/internal/chat"
	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/gateway"
	"github.com/fieldline/iotops/internal/history"
)

func newServeCmd() *cobra.Command {
	var (
		port int
		bind string
	)

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the chat gateway server",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(paths.Config)
			if err != nil {
				return err
			}

			if port != 0 {
				cfg.Gateway.Port = port
			}
			if bind != "" {
				cfg.Gateway.Bind = bind
			}

			issues := config.ValidateServe(&cfg)
			if len(issues) > 0 {
				for _, issue := range issues {
					log.Error().Str("path", issue.Path).Msg(issue.Message)
				}
				return fmt.Errorf("config validation failed with %d issue(s)", len(issues))
			}

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			awsCfg, err := loadAWSConfig(ctx, cfg.AWS)
			if err != nil {
				return fmt.Errorf("loading AWS credentials: %w", err)
			}

			// History persists best-effort: with no usable table the
			// assistant still answers, conversations just aren't kept.
			var store history.Store
			dynamoStore := history.NewDynamoStore(dynamodb.NewFromConfig(awsCfg), cfg.History.Table, log)
			if err := dynamoStore.EnsureTable(ctx); err != nil {
				log.Warn().Err(err).
					Str("table", cfg.History.Table).
					Msg("history table unavailable, conversations will not be persisted")
				store = history.NewMemoryStore()
			} else {
				store = dynamoStore
			}

			invoker := chat.NewBedrockInvoker(
				bedrockagentruntime.NewFromConfig(awsCfg),
				cfg.Agent.ID,
				cfg.Agent.AliasID,
				log,
			)

			svc := chat.NewService(invoker, store, log)
			srv := gateway.New(cfg, svc, log)

			log.Info().
				Str("agentId", cfg.Agent.ID).
				Str("aliasId", cfg.Agent.AliasID).
				Msg("starting chat gateway")

			return srv.Start(ctx)
		},
	}

	cmd.Flags().IntVar(&port, "port", 0, "override gateway port")
	cmd.Flags().StringVar(&bind, "bind", "", "override bind mode (loopback, lan, custom)")

	return cmd
}
