package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
)

const knowledgeBaseDescription = "Knowledge base to search and retrieve IoT Device Specs"

// createKnowledgeBase creates the vector knowledge base backed by the
// collection. Returns the knowledge base ID.
func (p *Provisioner) createKnowledgeBase(ctx context.Context, kbRoleARN, collectionARN string) (string, error) {
	out, err := p.clients.Agent.CreateKnowledgeBase(ctx, &bedrockagent.CreateKnowledgeBaseInput{
		Name:        aws.String(p.cfg.KnowledgeBaseName),
		Description: aws.String(knowledgeBaseDescription),
		RoleArn:     aws.String(kbRoleARN),
		KnowledgeBaseConfiguration: &types.KnowledgeBaseConfiguration{
			Type: types.KnowledgeBaseTypeVector,
			VectorKnowledgeBaseConfiguration: &types.VectorKnowledgeBaseConfiguration{
				EmbeddingModelArn: aws.String(p.cfg.EmbeddingModelARN),
			},
		},
		StorageConfiguration: &types.StorageConfiguration{
			Type: types.KnowledgeBaseStorageTypeOpensearchServerless,
			OpensearchServerlessConfiguration: &types.OpenSearchServerlessConfiguration{
				CollectionArn:   aws.String(collectionARN),
				VectorIndexName: aws.String(p.cfg.VectorIndexName),
				FieldMapping: &types.OpenSearchServerlessFieldMapping{
					VectorField:   aws.String(p.cfg.VectorFieldName),
					TextField:     aws.String(p.cfg.TextField),
					MetadataField: aws.String(p.cfg.MetadataField),
				},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.KnowledgeBase.KnowledgeBaseId), nil
}

// lookupKnowledgeBase resolves an existing knowledge base by name.
func (p *Provisioner) lookupKnowledgeBase(ctx context.Context) (string, error) {
	var token *string
	for {
		out, err := p.clients.Agent.ListKnowledgeBases(ctx, &bedrockagent.ListKnowledgeBasesInput{NextToken: token})
		if err != nil {
			return "", err
		}
		for _, kb := range out.KnowledgeBaseSummaries {
			if aws.ToString(kb.Name) == p.cfg.KnowledgeBaseName {
				return aws.ToString(kb.KnowledgeBaseId), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("knowledge base %q not found", p.cfg.KnowledgeBaseName)
		}
		token = out.NextToken
	}
}

// createDataSource attaches the document bucket to the knowledge base.
// Deletion policy is RETAIN so tearing down the data source never
// touches the vector store contents. Returns the data source ID.
func (p *Provisioner) createDataSource(ctx context.Context, kbID string) (string, error) {
	out, err := p.clients.Agent.CreateDataSource(ctx, &bedrockagent.CreateDataSourceInput{
		KnowledgeBaseId:    aws.String(kbID),
		Name:               aws.String(p.cfg.DataSourceName),
		DataDeletionPolicy: types.DataDeletionPolicyRetain,
		DataSourceConfiguration: &types.DataSourceConfiguration{
			Type: types.DataSourceTypeS3,
			S3Configuration: &types.S3DataSourceConfiguration{
				BucketArn:         aws.String("arn:aws:s3:::" + p.cfg.DataBucket),
				InclusionPrefixes: []string{p.cfg.DocumentPrefix},
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.DataSource.DataSourceId), nil
}

// lookupDataSource resolves an existing data source on the knowledge
// base by name.
func (p *Provisioner) lookupDataSource(ctx context.Context, kbID string) (string, error) {
	var token *string
	for {
		out, err := p.clients.Agent.ListDataSources(ctx, &bedrockagent.ListDataSourcesInput{
			KnowledgeBaseId: aws.String(kbID),
			NextToken:       token,
		})
		if err != nil {
			return "", err
		}
		for _, ds := range out.DataSourceSummaries {
			if aws.ToString(ds.Name) == p.cfg.DataSourceName {
				return aws.ToString(ds.DataSourceId), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("data source %q not found on knowledge base %s", p.cfg.DataSourceName, kbID)
		}
		token = out.NextToken
	}
}

// startIngestion kicks off the first sync of the data source. The job
// runs asynchronously; the chain does not wait for it.
func (p *Provisioner) startIngestion(ctx context.Context, kbID, dsID string) (string, error) {
	out, err := p.clients.Agent.StartIngestionJob(ctx, &bedrockagent.StartIngestionJobInput{
		KnowledgeBaseId: aws.String(kbID),
		DataSourceId:    aws.String(dsID),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.IngestionJob.IngestionJobId), nil
}
