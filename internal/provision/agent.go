package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagent/types"
	"github.com/aws/aws-sdk-go-v2/service/lambda"
)

// Action group names, fixed so conflict lookups can resolve them.
const (
	MetricsActionGroup = "CheckDeviceMetricsActionGroup"
	DeviceActionGroup  = "ActionOnDeviceActionGroup"
)

// draftVersion is the working version action groups and knowledge
// base associations attach to before the agent is prepared.
const draftVersion = "DRAFT"

// createAgent creates the Bedrock agent in DRAFT state. Returns the
// agent ID.
func (p *Provisioner) createAgent(ctx context.Context, agentRoleARN string) (string, error) {
	out, err := p.clients.Agent.CreateAgent(ctx, &bedrockagent.CreateAgentInput{
		AgentName:            aws.String(p.cfg.AgentName),
		AgentResourceRoleArn: aws.String(agentRoleARN),
		FoundationModel:      aws.String(p.cfg.FoundationModel),
		Instruction:          aws.String(agentInstruction),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Agent.AgentId), nil
}

// lookupAgent resolves an existing agent by name.
func (p *Provisioner) lookupAgent(ctx context.Context) (string, error) {
	var token *string
	for {
		out, err := p.clients.Agent.ListAgents(ctx, &bedrockagent.ListAgentsInput{NextToken: token})
		if err != nil {
			return "", err
		}
		for _, a := range out.AgentSummaries {
			if aws.ToString(a.AgentName) == p.cfg.AgentName {
				return aws.ToString(a.AgentId), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("agent %q not found", p.cfg.AgentName)
		}
		token = out.NextToken
	}
}

// associateKnowledgeBase attaches the knowledge base to the agent's
// draft version so retrieval is available before the first prepare.
func (p *Provisioner) associateKnowledgeBase(ctx context.Context, agentID, kbID string) (string, error) {
	_, err := p.clients.Agent.AssociateAgentKnowledgeBase(ctx, &bedrockagent.AssociateAgentKnowledgeBaseInput{
		AgentId:            aws.String(agentID),
		AgentVersion:       aws.String(draftVersion),
		KnowledgeBaseId:    aws.String(kbID),
		KnowledgeBaseState: types.KnowledgeBaseStateEnabled,
		Description:        aws.String(knowledgeBaseDescription),
	})
	if err != nil {
		return "", err
	}
	return kbID, nil
}

// resolveFunction confirms an action handler exists and returns its
// ARN. A missing function aborts the run before any action group
// references it.
func (p *Provisioner) resolveFunction(ctx context.Context, name string) (string, error) {
	out, err := p.clients.Functions.GetFunction(ctx, &lambda.GetFunctionInput{
		FunctionName: aws.String(name),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Configuration.FunctionArn), nil
}

// addInvokePermission lets the agent invoke one action handler. The
// grant is scoped to this agent's ARN and the owning account rather
// than the whole service principal.
func (p *Provisioner) addInvokePermission(ctx context.Context, functionName, statementID, agentARN, account string) (string, error) {
	_, err := p.clients.Functions.AddPermission(ctx, &lambda.AddPermissionInput{
		FunctionName:  aws.String(functionName),
		StatementId:   aws.String(statementID),
		Action:        aws.String("lambda:InvokeFunction"),
		Principal:     aws.String("bedrock.amazonaws.com"),
		SourceArn:     aws.String(agentARN),
		SourceAccount: aws.String(account),
	})
	if err != nil {
		return "", err
	}
	return statementID, nil
}

// createActionGroup wires one OpenAPI schema object and its handler
// function into the agent's draft version. Returns the action group ID.
func (p *Provisioner) createActionGroup(ctx context.Context, agentID, name, functionARN, schemaKey string) (string, error) {
	out, err := p.clients.Agent.CreateAgentActionGroup(ctx, &bedrockagent.CreateAgentActionGroupInput{
		AgentId:          aws.String(agentID),
		AgentVersion:     aws.String(draftVersion),
		ActionGroupName:  aws.String(name),
		ActionGroupState: types.ActionGroupStateEnabled,
		ActionGroupExecutor: &types.ActionGroupExecutorMemberLambda{
			Value: functionARN,
		},
		ApiSchema: &types.APISchemaMemberS3{
			Value: types.S3Identifier{
				S3BucketName: aws.String(p.cfg.DataBucket),
				S3ObjectKey:  aws.String(schemaKey),
			},
		},
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.AgentActionGroup.ActionGroupId), nil
}

// lookupActionGroup resolves an existing action group on the agent's
// draft version by name.
func (p *Provisioner) lookupActionGroup(ctx context.Context, agentID, name string) (string, error) {
	var token *string
	for {
		out, err := p.clients.Agent.ListAgentActionGroups(ctx, &bedrockagent.ListAgentActionGroupsInput{
			AgentId:      aws.String(agentID),
			AgentVersion: aws.String(draftVersion),
			NextToken:    token,
		})
		if err != nil {
			return "", err
		}
		for _, ag := range out.ActionGroupSummaries {
			if aws.ToString(ag.ActionGroupName) == name {
				return aws.ToString(ag.ActionGroupId), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("action group %q not found on agent %s", name, agentID)
		}
		token = out.NextToken
	}
}

// prepareAgent compiles the draft version and waits until the agent
// reports PREPARED.
func (p *Provisioner) prepareAgent(ctx context.Context, agentID string) (string, error) {
	if _, err := p.clients.Agent.PrepareAgent(ctx, &bedrockagent.PrepareAgentInput{
		AgentId: aws.String(agentID),
	}); err != nil {
		return "", err
	}
	for attempt := 0; attempt < p.maxWaitPolls; attempt++ {
		out, err := p.clients.Agent.GetAgent(ctx, &bedrockagent.GetAgentInput{AgentId: aws.String(agentID)})
		if err != nil {
			return "", err
		}
		switch out.Agent.AgentStatus {
		case types.AgentStatusPrepared:
			return string(types.AgentStatusPrepared), nil
		case types.AgentStatusFailed:
			return "", fmt.Errorf("agent %s entered FAILED state while preparing", agentID)
		}
		p.log.Debug().
			Str("agent", agentID).
			Str("status", string(out.Agent.AgentStatus)).
			Msg("waiting for agent to prepare")
		if err := p.sleep(ctx, p.waitInterval); err != nil {
			return "", err
		}
	}
	return "", fmt.Errorf("agent %s did not reach PREPARED in time", agentID)
}

// createAlias points the serving alias at the prepared version.
// Returns the alias ID.
func (p *Provisioner) createAlias(ctx context.Context, agentID string) (string, error) {
	out, err := p.clients.Agent.CreateAgentAlias(ctx, &bedrockagent.CreateAgentAliasInput{
		AgentId:        aws.String(agentID),
		AgentAliasName: aws.String(p.cfg.AgentAlias),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.AgentAlias.AgentAliasId), nil
}

// lookupAlias resolves an existing alias on the agent by name.
func (p *Provisioner) lookupAlias(ctx context.Context, agentID string) (string, error) {
	var token *string
	for {
		out, err := p.clients.Agent.ListAgentAliases(ctx, &bedrockagent.ListAgentAliasesInput{
			AgentId:   aws.String(agentID),
			NextToken: token,
		})
		if err != nil {
			return "", err
		}
		for _, al := range out.AgentAliasSummaries {
			if aws.ToString(al.AgentAliasName) == p.cfg.AgentAlias {
				return aws.ToString(al.AgentAliasId), nil
			}
		}
		if out.NextToken == nil {
			return "", fmt.Errorf("alias %q not found on agent %s", p.cfg.AgentAlias, agentID)
		}
		token = out.NextToken
	}
}
