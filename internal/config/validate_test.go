package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func issuePaths(issues []ValidationIssue) []string {
	paths := make([]string, 0, len(issues))
	for _, i := range issues {
		paths = append(paths, i.Path)
	}
	return paths
}

func TestValidateDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Empty(t, Validate(&cfg))
}

func TestValidateBadValues(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Port = 99999
	cfg.Gateway.Bind = "everywhere"
	cfg.Logging.Level = "verbose"
	cfg.Logging.ConsoleStyle = "fancy"

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "gateway.port")
	assert.Contains(t, paths, "gateway.bind")
	assert.Contains(t, paths, "logging.level")
	assert.Contains(t, paths, "logging.consoleStyle")
}

func TestValidateAuthCapabilityNeedsToken(t *testing.T) {
	cfg := Defaults()
	cfg.Gateway.Capabilities.Auth = true

	paths := issuePaths(Validate(&cfg))
	assert.Contains(t, paths, "gateway.auth.token")

	cfg.Gateway.Auth.Token = "t"
	assert.Empty(t, Validate(&cfg))
}

func TestValidateServeMissingAgent(t *testing.T) {
	cfg := Defaults()

	paths := issuePaths(ValidateServe(&cfg))
	assert.Contains(t, paths, "agent.id")
	assert.Contains(t, paths, "agent.aliasId")
	// Table has a default, so it is not reported.
	assert.NotContains(t, paths, "history.table")
}

func TestValidateServeComplete(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.ID = "A1"
	cfg.Agent.AliasID = "AL1"
	assert.Empty(t, ValidateServe(&cfg))
}

func TestValidateServeMissingTable(t *testing.T) {
	cfg := Defaults()
	cfg.Agent.ID = "A1"
	cfg.Agent.AliasID = "AL1"
	cfg.History.Table = ""
	paths := issuePaths(ValidateServe(&cfg))
	assert.Equal(t, []string{"history.table"}, paths)
}

func TestValidateProvision(t *testing.T) {
	cfg := Defaults()
	paths := issuePaths(ValidateProvision(&cfg))
	assert.Contains(t, paths, "provision.dataBucket")
	assert.Contains(t, paths, "provision.metricsFunction")
	assert.Contains(t, paths, "provision.actionFunction")
	assert.Contains(t, paths, "aws.region")

	cfg.AWS.Region = "us-east-1"
	cfg.Provision.DataBucket = "bucket"
	cfg.Provision.MetricsFunction = "fn-metrics"
	cfg.Provision.ActionFunction = "fn-action"
	assert.Empty(t, ValidateProvision(&cfg))
}

func TestValidateProvisionCollectionNameCap(t *testing.T) {
	cfg := Defaults()
	cfg.AWS.Region = "us-east-1"
	cfg.Provision.DataBucket = "bucket"
	cfg.Provision.MetricsFunction = "fn-metrics"
	cfg.Provision.ActionFunction = "fn-action"
	cfg.Provision.Collection = "a-very-long-collection-name-here"

	paths := issuePaths(ValidateProvision(&cfg))
	assert.Contains(t, paths, "provision.collection")
}
