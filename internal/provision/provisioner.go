package provision

import (
	"context"
	"fmt"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sts"

	"github.com/fieldline/iotops/internal/config"
	"github.com/fieldline/iotops/internal/domain"
	"github.com/fieldline/iotops/internal/logging"
)

// Ledger step names. One row per step; a recorded step is skipped on
// re-run, so an aborted run resumes where it stopped.
const (
	StepExecutorRole       = "iam.executor-role"
	StepAgentRole          = "iam.agent-role"
	StepKBRole             = "iam.kb-role"
	StepNetworkPolicy      = "aoss.network-policy"
	StepEncryptionPolicy   = "aoss.encryption-policy"
	StepCollection         = "aoss.collection"
	StepAccessPolicy       = "aoss.access-policy"
	StepKBRolePolicy       = "iam.kb-role-policy"
	StepVectorIndex        = "aoss.vector-index"
	StepSchemaMetrics      = "s3.schema.check-device-metrics"
	StepSchemaAction       = "s3.schema.action-on-device"
	StepKnowledgeBase      = "kb.create"
	StepDataSource         = "kb.data-source"
	StepIngestion          = "kb.ingestion"
	StepAgent              = "agent.create"
	StepAssociateKB        = "agent.associate-kb"
	StepMetricsPermission  = "lambda.metrics-permission"
	StepActionPermission   = "lambda.action-permission"
	StepMetricsActionGroup = "agent.action-group.metrics"
	StepDeviceActionGroup  = "agent.action-group.device"
	StepPrepare            = "agent.prepare"
	StepAlias              = "agent.alias"
)

// Provisioner walks the resource dependency chain: IAM roles, the
// vector collection and index, the knowledge base and its data source,
// then the agent with its action groups and serving alias. Steps run
// strictly in order; a failed step aborts the rest of the run and the
// ledger keeps everything created so far.
type Provisioner struct {
	cfg     config.ProvisionConfig
	region  string
	clients Clients
	ledger  Ledger
	log     *logging.Logger

	sleep        func(context.Context, time.Duration) error
	maxAttempts  int
	backoffBase  time.Duration
	waitInterval time.Duration
	settleDelay  time.Duration
	maxWaitPolls int
}

func New(cfg config.ProvisionConfig, region string, clients Clients, ledger Ledger, log *logging.Logger) *Provisioner {
	// The KB role policy and the knowledge base itself both need the
	// embedding model ARN; derive the regional Titan default here so
	// an unconfigured value never reaches a service call.
	cfg.EmbeddingModelARN = cfg.ResolveEmbeddingModel(region)
	return &Provisioner{
		cfg:          cfg,
		region:       region,
		clients:      clients,
		ledger:       ledger,
		log:          log.Sub("provision"),
		sleep:        sleepCtx,
		maxAttempts:  defaultMaxAttempts,
		backoffBase:  defaultBackoffBase,
		waitInterval: defaultWaitInterval,
		settleDelay:  defaultSettleDelay,
		maxWaitPolls: 90,
	}
}

// step runs one link of the chain. Steps already in the ledger are
// skipped. Idempotent steps retry transient failures; "already exists"
// conflicts resolve to the existing resource via lookup when one is
// available.
func (p *Provisioner) step(ctx context.Context, name string, idempotent bool, create, lookup func(context.Context) (string, error)) (string, error) {
	if id, ok, err := p.ledger.Get(name); err != nil {
		return "", &StepError{Step: name, Err: err}
	} else if ok {
		p.log.Debug().Str("step", name).Str("id", id).Msg("already provisioned, skipping")
		return id, nil
	}

	run := create
	if idempotent {
		run = func(ctx context.Context) (string, error) {
			return p.withRetry(ctx, name, create)
		}
	}
	id, err := run(ctx)
	if err != nil {
		if Classify(err) == ClassConflict && lookup != nil {
			p.log.Info().Str("step", name).Err(err).Msg("resource already exists, resolving by lookup")
			id, err = lookup(ctx)
		}
		if err != nil {
			return "", &StepError{Step: name, Err: err}
		}
	}
	if err := p.ledger.Put(name, id, ""); err != nil {
		return "", &StepError{Step: name, Err: fmt.Errorf("record in ledger: %w", err)}
	}
	p.log.Info().Str("step", name).Str("id", id).Msg("provisioned")
	return id, nil
}

// settle pauses for eventual-consistency propagation after steps whose
// effects are read by a different service moments later.
func (p *Provisioner) settle(ctx context.Context, reason string) error {
	p.log.Debug().Str("reason", reason).Dur("delay", p.settleDelay).Msg("waiting for propagation")
	return p.sleep(ctx, p.settleDelay)
}

// Up runs the full chain and returns the identifiers the chat gateway
// needs. Safe to re-run: completed steps are skipped via the ledger
// and name conflicts resolve to the existing resources.
func (p *Provisioner) Up(ctx context.Context) (domain.Outputs, error) {
	var out domain.Outputs

	ident, err := p.clients.Caller.GetCallerIdentity(ctx, &sts.GetCallerIdentityInput{})
	if err != nil {
		return out, fmt.Errorf("resolve caller identity: %w", err)
	}
	account := aws.ToString(ident.Account)
	callerARN := aws.ToString(ident.Arn)

	if _, err := p.step(ctx, StepExecutorRole, false, p.createExecutorRole, func(ctx context.Context) (string, error) {
		return p.getRoleARN(ctx, executorRoleName)
	}); err != nil {
		return out, err
	}
	agentRoleARN, err := p.step(ctx, StepAgentRole, false, p.createAgentRole, func(ctx context.Context) (string, error) {
		return p.getRoleARN(ctx, p.agentRoleName())
	})
	if err != nil {
		return out, err
	}
	kbRoleARN, err := p.step(ctx, StepKBRole, false, p.createKBRole, func(ctx context.Context) (string, error) {
		return p.getRoleARN(ctx, p.kbRoleName())
	})
	if err != nil {
		return out, err
	}

	if _, err := p.step(ctx, StepNetworkPolicy, false, p.createNetworkPolicy, p.staticID(p.securityPolicyName())); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepEncryptionPolicy, false, p.createEncryptionPolicy, p.staticID(p.securityPolicyName())); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepCollection, false, p.createCollection, p.lookupCollection); err != nil {
		return out, err
	}
	collectionARN, endpoint, err := p.waitCollectionActive(ctx)
	if err != nil {
		return out, &StepError{Step: StepCollection, Err: err}
	}
	out.CollectionARN = collectionARN
	out.CollectionEndpoint = endpoint

	principals := []string{kbRoleARN, agentRoleARN, callerARN}
	if _, err := p.step(ctx, StepAccessPolicy, false, func(ctx context.Context) (string, error) {
		return p.createAccessPolicy(ctx, principals)
	}, p.staticID(p.accessPolicyName())); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepKBRolePolicy, true, func(ctx context.Context) (string, error) {
		return p.attachKBRolePolicies(ctx, collectionARN)
	}, nil); err != nil {
		return out, err
	}
	if err := p.settle(ctx, "data access policy"); err != nil {
		return out, err
	}

	if _, err := p.step(ctx, StepVectorIndex, true, func(ctx context.Context) (string, error) {
		if err := p.clients.Index.EnsureIndex(ctx, endpoint); err != nil {
			return "", err
		}
		return p.cfg.VectorIndexName, nil
	}, nil); err != nil {
		return out, err
	}
	if err := p.settle(ctx, "vector index"); err != nil {
		return out, err
	}

	if _, err := p.step(ctx, StepSchemaMetrics, true, func(ctx context.Context) (string, error) {
		return p.uploadSchema(ctx, "check_device_metrics.json", SchemaKeyMetrics)
	}, nil); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepSchemaAction, true, func(ctx context.Context) (string, error) {
		return p.uploadSchema(ctx, "action_on_device.json", SchemaKeyAction)
	}, nil); err != nil {
		return out, err
	}

	kbID, err := p.step(ctx, StepKnowledgeBase, false, func(ctx context.Context) (string, error) {
		return p.createKnowledgeBase(ctx, kbRoleARN, collectionARN)
	}, p.lookupKnowledgeBase)
	if err != nil {
		return out, err
	}
	out.KnowledgeBaseID = kbID

	dsID, err := p.step(ctx, StepDataSource, false, func(ctx context.Context) (string, error) {
		return p.createDataSource(ctx, kbID)
	}, func(ctx context.Context) (string, error) {
		return p.lookupDataSource(ctx, kbID)
	})
	if err != nil {
		return out, err
	}
	out.DataSourceID = dsID

	if _, err := p.step(ctx, StepIngestion, false, func(ctx context.Context) (string, error) {
		return p.startIngestion(ctx, kbID, dsID)
	}, nil); err != nil {
		return out, err
	}

	agentID, err := p.step(ctx, StepAgent, false, func(ctx context.Context) (string, error) {
		return p.createAgent(ctx, agentRoleARN)
	}, p.lookupAgent)
	if err != nil {
		return out, err
	}
	out.AgentID = agentID

	if _, err := p.step(ctx, StepAssociateKB, false, func(ctx context.Context) (string, error) {
		return p.associateKnowledgeBase(ctx, agentID, kbID)
	}, p.staticID(kbID)); err != nil {
		return out, err
	}

	// Action handlers must exist before any group references them.
	metricsARN, err := p.resolveFunction(ctx, p.cfg.MetricsFunction)
	if err != nil {
		return out, &StepError{Step: StepMetricsActionGroup, Err: fmt.Errorf("resolve function %q: %w", p.cfg.MetricsFunction, err)}
	}
	actionARN, err := p.resolveFunction(ctx, p.cfg.ActionFunction)
	if err != nil {
		return out, &StepError{Step: StepDeviceActionGroup, Err: fmt.Errorf("resolve function %q: %w", p.cfg.ActionFunction, err)}
	}

	agentARN := fmt.Sprintf("arn:aws:bedrock:%s:%s:agent/%s", p.region, account, agentID)
	if _, err := p.step(ctx, StepMetricsPermission, false, func(ctx context.Context) (string, error) {
		return p.addInvokePermission(ctx, p.cfg.MetricsFunction, "AllowBedrockAgentInvoke", agentARN, account)
	}, p.staticID("AllowBedrockAgentInvoke")); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepActionPermission, false, func(ctx context.Context) (string, error) {
		return p.addInvokePermission(ctx, p.cfg.ActionFunction, "AllowBedrockAgentInvoke", agentARN, account)
	}, p.staticID("AllowBedrockAgentInvoke")); err != nil {
		return out, err
	}
	// Permission propagation races the first prepare; give it a moment
	// and call the race out in the log so a failed prepare is easy to
	// diagnose.
	p.log.Warn().Msg("invoke permissions were just granted; if prepare fails on access, re-run after propagation")
	if err := p.settle(ctx, "invoke permissions"); err != nil {
		return out, err
	}

	if _, err := p.step(ctx, StepMetricsActionGroup, false, func(ctx context.Context) (string, error) {
		return p.createActionGroup(ctx, agentID, MetricsActionGroup, metricsARN, SchemaKeyMetrics)
	}, func(ctx context.Context) (string, error) {
		return p.lookupActionGroup(ctx, agentID, MetricsActionGroup)
	}); err != nil {
		return out, err
	}
	if _, err := p.step(ctx, StepDeviceActionGroup, false, func(ctx context.Context) (string, error) {
		return p.createActionGroup(ctx, agentID, DeviceActionGroup, actionARN, SchemaKeyAction)
	}, func(ctx context.Context) (string, error) {
		return p.lookupActionGroup(ctx, agentID, DeviceActionGroup)
	}); err != nil {
		return out, err
	}

	if _, err := p.step(ctx, StepPrepare, true, func(ctx context.Context) (string, error) {
		return p.prepareAgent(ctx, agentID)
	}, nil); err != nil {
		return out, err
	}

	aliasID, err := p.step(ctx, StepAlias, false, func(ctx context.Context) (string, error) {
		return p.createAlias(ctx, agentID)
	}, func(ctx context.Context) (string, error) {
		return p.lookupAlias(ctx, agentID)
	})
	if err != nil {
		return out, err
	}
	out.AgentAliasID = aliasID

	p.log.Info().
		Str("agentId", out.AgentID).
		Str("aliasId", out.AgentAliasID).
		Str("knowledgeBaseId", out.KnowledgeBaseID).
		Msg("provisioning complete")
	return out, nil
}

// staticID is a lookup that resolves to a fixed identifier, for
// resources addressed purely by the name the chain chose.
func (p *Provisioner) staticID(id string) func(context.Context) (string, error) {
	return func(context.Context) (string, error) { return id, nil }
}
