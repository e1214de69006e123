package provision

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/logging"
)

// NewClients builds the production client set from a resolved AWS
// config.
func NewClients(awsCfg aws.Config, cfg config.ProvisionConfig, log *logging.Logger) Clients {
	return Clients{
		Agent:       bedrockagent.NewFromConfig(awsCfg),
		Collections: opensearchserverless.NewFromConfig(awsCfg),
		Identity:    iam.NewFromConfig(awsCfg),
		Functions:   lambda.NewFromConfig(awsCfg),
		Objects:     s3.NewFromConfig(awsCfg),
		Caller:      sts.NewFromConfig(awsCfg),
		Index: NewOpenSearchIndexer(awsCfg,
			cfg.VectorIndexName, cfg.VectorFieldName, cfg.TextField, cfg.MetadataField, log),
	}
}
