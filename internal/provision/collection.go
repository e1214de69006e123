package provision

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless"
	"github.com/aws/aws-sdk-go-v2/service/opensearchserverless/types"
)

func (p *Provisioner) securityPolicyName() string {
	return p.cfg.Collection + "-security-policy"
}

func (p *Provisioner) accessPolicyName() string {
	return p.cfg.Collection + "-access-policy"
}

// createNetworkPolicy opens the collection and its dashboard to public
// network access. Returns the policy name.
func (p *Provisioner) createNetworkPolicy(ctx context.Context) (string, error) {
	name := p.securityPolicyName()
	policy := policyJSON([]map[string]any{{
		"Rules": []map[string]any{
			{"ResourceType": "collection", "Resource": []string{"collection/" + p.cfg.Collection}},
			{"ResourceType": "dashboard", "Resource": []string{"collection/" + p.cfg.Collection}},
		},
		"AllowFromPublic": true,
	}})
	_, err := p.clients.Collections.CreateSecurityPolicy(ctx, &opensearchserverless.CreateSecurityPolicyInput{
		Name:   aws.String(name),
		Type:   types.SecurityPolicyTypeNetwork,
		Policy: aws.String(policy),
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// createEncryptionPolicy encrypts the collection with an AWS-owned key.
// Returns the policy name.
func (p *Provisioner) createEncryptionPolicy(ctx context.Context) (string, error) {
	name := p.securityPolicyName()
	policy := policyJSON(map[string]any{
		"Rules": []map[string]any{
			{"ResourceType": "collection", "Resource": []string{"collection/" + p.cfg.Collection}},
		},
		"AWSOwnedKey": true,
	})
	_, err := p.clients.Collections.CreateSecurityPolicy(ctx, &opensearchserverless.CreateSecurityPolicyInput{
		Name:   aws.String(name),
		Type:   types.SecurityPolicyTypeEncryption,
		Policy: aws.String(policy),
	})
	if err != nil {
		return "", err
	}
	return name, nil
}

// createCollection creates the vector-search collection. Returns the
// collection ID; the ARN and endpoint are resolved by
// waitCollectionActive once the collection settles.
func (p *Provisioner) createCollection(ctx context.Context) (string, error) {
	out, err := p.clients.Collections.CreateCollection(ctx, &opensearchserverless.CreateCollectionInput{
		Name:        aws.String(p.cfg.Collection),
		Type:        types.CollectionTypeVectorsearch,
		Description: aws.String("Vector store for " + p.cfg.KnowledgeBaseName),
	})
	if err != nil {
		return "", err
	}
	return aws.ToString(out.CreateCollectionDetail.Id), nil
}

// lookupCollection resolves an existing collection ID by name.
func (p *Provisioner) lookupCollection(ctx context.Context) (string, error) {
	out, err := p.clients.Collections.BatchGetCollection(ctx, &opensearchserverless.BatchGetCollectionInput{
		Names: []string{p.cfg.Collection},
	})
	if err != nil {
		return "", err
	}
	if len(out.CollectionDetails) == 0 {
		return "", fmt.Errorf("collection %q not found", p.cfg.Collection)
	}
	return aws.ToString(out.CollectionDetails[0].Id), nil
}

// waitCollectionActive polls until the collection reports ACTIVE and
// returns its ARN and data-plane endpoint. Collection creation takes
// several minutes.
func (p *Provisioner) waitCollectionActive(ctx context.Context) (arn, endpoint string, err error) {
	for attempt := 0; attempt < p.maxWaitPolls; attempt++ {
		out, err := p.clients.Collections.BatchGetCollection(ctx, &opensearchserverless.BatchGetCollectionInput{
			Names: []string{p.cfg.Collection},
		})
		if err != nil {
			return "", "", err
		}
		if len(out.CollectionDetails) > 0 {
			detail := out.CollectionDetails[0]
			switch detail.Status {
			case types.CollectionStatusActive:
				return aws.ToString(detail.Arn), aws.ToString(detail.CollectionEndpoint), nil
			case types.CollectionStatusFailed:
				return "", "", fmt.Errorf("collection %q entered FAILED state", p.cfg.Collection)
			}
			p.log.Debug().
				Str("collection", p.cfg.Collection).
				Str("status", string(detail.Status)).
				Msg("waiting for collection")
		}
		if err := p.sleep(ctx, p.waitInterval); err != nil {
			return "", "", err
		}
	}
	return "", "", fmt.Errorf("collection %q did not become active in time", p.cfg.Collection)
}

// createAccessPolicy grants full data access on the collection and its
// indexes to the chain's roles and the provisioning caller. Returns
// the policy name.
func (p *Provisioner) createAccessPolicy(ctx context.Context, principals []string) (string, error) {
	name := p.accessPolicyName()
	policy := policyJSON([]map[string]any{{
		"Rules": []map[string]any{
			{
				"ResourceType": "collection",
				"Resource":     []string{"collection/" + p.cfg.Collection},
				"Permission":   []string{"aoss:*"},
			},
			{
				"ResourceType": "index",
				"Resource":     []string{fmt.Sprintf("index/%s/*", p.cfg.Collection)},
				"Permission":   []string{"aoss:*"},
			},
		},
		"Principal": principals,
	}})
	_, err := p.clients.Collections.CreateAccessPolicy(ctx, &opensearchserverless.CreateAccessPolicyInput{
		Name:   aws.String(name),
		Type:   types.AccessPolicyTypeData,
		Policy: aws.String(policy),
	})
	if err != nil {
		return "", err
	}
	return name, nil
}
