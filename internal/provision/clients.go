package provision

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/iam"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/sts"
)

// AgentAPI is the slice of the Bedrock agent control plane the
// provisioning chain calls. Satisfied by *bedrockagent.Client.
type AgentAPI interface {
	CreateKnowledgeBase(ctx context.Context, in *bedrockagent.CreateKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateKnowledgeBaseOutput, error)
	ListKnowledgeBases(ctx context.Context, in *bedrockagent.ListKnowledgeBasesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListKnowledgeBasesOutput, error)
	CreateDataSource(ctx context.Context, in *bedrockagent.CreateDataSourceInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateDataSourceOutput, error)
	ListDataSources(ctx context.Context, in *bedrockagent.ListDataSourcesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListDataSourcesOutput, error)
	StartIngestionJob(ctx context.Context, in *bedrockagent.StartIngestionJobInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.StartIngestionJobOutput, error)
	CreateAgent(ctx context.Context, in *bedrockagent.CreateAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateAgentOutput, error)
	GetAgent(ctx context.Context, in *bedrockagent.GetAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.GetAgentOutput, error)
	ListAgents(ctx context.Context, in *bedrockagent.ListAgentsInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListAgentsOutput, error)
	AssociateAgentKnowledgeBase(ctx context.Context, in *bedrockagent.AssociateAgentKnowledgeBaseInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.AssociateAgentKnowledgeBaseOutput, error)
	CreateAgentActionGroup(ctx context.Context, in *bedrockagent.CreateAgentActionGroupInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateAgentActionGroupOutput, error)
	ListAgentActionGroups(ctx context.Context, in *bedrockagent.ListAgentActionGroupsInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListAgentActionGroupsOutput, error)
	PrepareAgent(ctx context.Context, in *bedrockagent.PrepareAgentInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.PrepareAgentOutput, error)
	CreateAgentAlias(ctx context.Context, in *bedrockagent.CreateAgentAliasInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.CreateAgentAliasOutput, error)
	ListAgentAliases(ctx context.Context, in *bedrockagent.ListAgentAliasesInput, optFns ...func(*bedrockagent.Options)) (*bedrockagent.ListAgentAliasesOutput, error)
}

// CollectionAPI covers the OpenSearch Serverless control plane.
// Satisfied by *opensearchserverless.Client.
type CollectionAPI interface {
	CreateSecurityPolicy(ctx context.Context, in *opensearchserverless.CreateSecurityPolicyInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateSecurityPolicyOutput, error)
	CreateAccessPolicy(ctx context.Context, in *opensearchserverless.CreateAccessPolicyInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateAccessPolicyOutput, error)
	CreateCollection(ctx context.Context, in *opensearchserverless.CreateCollectionInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.CreateCollectionOutput, error)
	BatchGetCollection(ctx context.Context, in *opensearchserverless.BatchGetCollectionInput, optFns ...func(*opensearchserverless.Options)) (*opensearchserverless.BatchGetCollectionOutput, error)
}

// IdentityAPI covers role and policy creation. Satisfied by *iam.Client.
type IdentityAPI interface {
	CreateRole(ctx context.Context, in *iam.CreateRoleInput, optFns ...func(*iam.Options)) (*iam.CreateRoleOutput, error)
	GetRole(ctx context.Context, in *iam.GetRoleInput, optFns ...func(*iam.Options)) (*iam.GetRoleOutput, error)
	AttachRolePolicy(ctx context.Context, in *iam.AttachRolePolicyInput, optFns ...func(*iam.Options)) (*iam.AttachRolePolicyOutput, error)
	PutRolePolicy(ctx context.Context, in *iam.PutRolePolicyInput, optFns ...func(*iam.Options)) (*iam.PutRolePolicyOutput, error)
}

// FunctionAPI covers action-handler function lookup and the invoke
// permission grant. Satisfied by *lambda.Client.
type FunctionAPI interface {
	GetFunction(ctx context.Context, in *lambda.GetFunctionInput, optFns ...func(*lambda.Options)) (*lambda.GetFunctionOutput, error)
	AddPermission(ctx context.Context, in *lambda.AddPermissionInput, optFns ...func(*lambda.Options)) (*lambda.AddPermissionOutput, error)
}

// ObjectStoreAPI covers the schema uploads. Satisfied by *s3.Client.
type ObjectStoreAPI interface {
	PutObject(ctx context.Context, in *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// CallerAPI resolves the provisioning caller's account and ARN.
// Satisfied by *sts.Client.
type CallerAPI interface {
	GetCallerIdentity(ctx context.Context, in *sts.GetCallerIdentityInput, optFns ...func(*sts.Options)) (*sts.GetCallerIdentityOutput, error)
}

// IndexCreator creates the vector index inside a collection. The
// production implementation signs requests against the collection's
// data-plane endpoint.
type IndexCreator interface {
	EnsureIndex(ctx context.Context, endpoint string) error
}

// Ledger records completed steps so re-runs skip them.
// Satisfied by *state.Ledger.
type Ledger interface {
	Get(step string) (string, bool, error)
	Put(step, id, detail string) error
}

// Clients bundles every managed-service surface the chain touches.
type Clients struct {
	Agent       AgentAPI
	Collections CollectionAPI
	Identity    IdentityAPI
	Functions   FunctionAPI
	Objects     ObjectStoreAPI
	Caller      CallerAPI
	Index       IndexCreator
}
