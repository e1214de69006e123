// device-action is the Lambda handler behind the agent's
// ActionOnDevice action group. It relays device action requests to the
// operations team by email.
package main

import (
	"context"
	"os"

	"github.com/aws/aws-lambda-go/lambda"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"

	"github.com/fieldline/iotops/internal/actions/deviceaction"
	"github.com/fieldline/iotops/internal/logging"
)

func main() {
	log := logging.New(os.Stderr, envOr("LOG_LEVEL", "info"), "json")

	awsCfg, err := awsconfig.LoadDefaultConfig(context.Background())
	if err != nil {
		log.Fatal().Err(err).Msg("loading AWS credentials")
	}

	handler := deviceaction.New(
		sesv2.NewFromConfig(awsCfg),
		os.Getenv("SENDER_EMAIL"),
		os.Getenv("RECIPIENT_EMAIL"),
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
