package provision

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/iam"
)

// executorRoleName is the role the provisioning chain itself assumes
// when driven from automation; it carries the broad managed policy the
// chain needs to create every other resource.
const executorRoleName = "CustomResourceRole"

func (p *Provisioner) agentRoleName() string {
	return "AmazonBedrockExecutionRoleForAgents_" + p.cfg.AgentName
}

func (p *Provisioner) kbRoleName() string {
	return "AmazonBedrockExecutionRoleForKnowledgeBase_" + p.cfg.AgentName
}

func trustPolicy(service string) string {
	return policyDoc(map[string]any{
		"Effect":    "Allow",
		"Principal": map[string]any{"Service": service},
		"Action":    "sts:AssumeRole",
	})
}

func allowStatement(actions, resources []string) map[string]any {
	return map[string]any{
		"Effect":   "Allow",
		"Action":   actions,
		"Resource": resources,
	}
}

func policyDoc(statements ...map[string]any) string {
	return policyJSON(map[string]any{
		"Version":   "2012-10-17",
		"Statement": statements,
	})
}

// policyJSON marshals a policy body built from literal maps; those
// never fail to marshal.
func policyJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("marshal policy document: %v", err))
	}
	return string(b)
}

// createExecutorRole creates the automation role and attaches its
// managed policy. Returns the role ARN.
func (p *Provisioner) createExecutorRole(ctx context.Context) (string, error) {
	out, err := p.clients.Identity.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(executorRoleName),
		AssumeRolePolicyDocument: aws.String(trustPolicy("lambda.amazonaws.com")),
	})
	if err != nil {
		return "", err
	}
	_, err = p.clients.Identity.AttachRolePolicy(ctx, &iam.AttachRolePolicyInput{
		RoleName:  aws.String(executorRoleName),
		PolicyArn: aws.String("arn:aws:iam::aws:policy/AdministratorAccess"),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Role.Arn), nil
}

// createAgentRole creates the Bedrock agent execution role with inline
// policies for invoking the action handlers, reading schema objects,
// and calling model inference. Returns the role ARN.
func (p *Provisioner) createAgentRole(ctx context.Context) (string, error) {
	name := p.agentRoleName()
	out, err := p.clients.Identity.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(name),
		AssumeRolePolicyDocument: aws.String(trustPolicy("bedrock.amazonaws.com")),
	})
	if err != nil {
		return "", err
	}
	inline := []struct {
		policy string
		doc    string
	}{
		{"InvokeActionHandlers", policyDoc(allowStatement(
			[]string{"lambda:InvokeFunction"}, []string{"*"}))},
		{"ReadActionSchemas", policyDoc(allowStatement(
			[]string{"s3:GetObject"}, []string{fmt.Sprintf("arn:aws:s3:::%s/*", p.cfg.DataBucket)}))},
		{"BedrockAccess", policyDoc(allowStatement(
			[]string{"bedrock:*"}, []string{"*"}))},
	}
	for _, ip := range inline {
		_, err := p.clients.Identity.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
			RoleName:       aws.String(name),
			PolicyName:     aws.String(ip.policy),
			PolicyDocument: aws.String(ip.doc),
		})
		if err != nil {
			return "", err
		}
	}
	return aws.ToString(out.Role.Arn), nil
}

// createKBRole creates the knowledge base execution role. Its inline
// policies reference the collection ARN, which does not exist yet, so
// they are attached later by attachKBRolePolicies.
func (p *Provisioner) createKBRole(ctx context.Context) (string, error) {
	out, err := p.clients.Identity.CreateRole(ctx, &iam.CreateRoleInput{
		RoleName:                 aws.String(p.kbRoleName()),
		AssumeRolePolicyDocument: aws.String(trustPolicy("bedrock.amazonaws.com")),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Role.Arn), nil
}

// attachKBRolePolicies grants the knowledge base role data access to
// the collection and invoke access to the embedding model. PutRolePolicy
// is an upsert, so re-runs are safe.
func (p *Provisioner) attachKBRolePolicies(ctx context.Context, collectionARN string) (string, error) {
	const policyName = "KnowledgeBaseAccess"
	doc := policyDoc(
		allowStatement([]string{"aoss:APIAccessAll"}, []string{collectionARN}),
		allowStatement([]string{"bedrock:InvokeModel"}, []string{p.cfg.EmbeddingModelARN}),
	)
	_, err := p.clients.Identity.PutRolePolicy(ctx, &iam.PutRolePolicyInput{
		RoleName:       aws.String(p.kbRoleName()),
		PolicyName:     aws.String(policyName),
		PolicyDocument: aws.String(doc),
	})
	if err != nil {
		return "", err
	}
	return policyName, nil
}

// getRoleARN resolves an existing role by name; used when CreateRole
// reports the role already exists.
func (p *Provisioner) getRoleARN(ctx context.Context, name string) (string, error) {
	out, err := p.clients.Identity.GetRole(ctx, &iam.GetRoleInput{RoleName: aws.String(name)})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.Role.Arn), nil
}
