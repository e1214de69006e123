// device-metrics is the Lambda handler behind the agent's
// CheckDeviceMetrics action group. It queries recent device metrics
// from Athena.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/athena"

	"github.com/fieldline/iotops/internal/actions/devicemetrics"
	"github.com/fieldline/iotops/internal/logging"
)

func main() {
	log := logging.New(os.Stderr, envOr("LOG_LEVEL", "info"), "json")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("loading AWS credentials")
	}

	handler := devicemetrics.New(
		athena.NewFromConfig(awsCfg),
		os.Getenv("ATHENA_DATABASE"),
		os.Getenv("ATHENA_OUTPUT_LOCATION"),
		log,
	)

	lambda.Start(handler.Handle)
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
