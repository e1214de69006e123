package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaults(t *testing.T) {
	cfg := Defaults()
	assert.Equal(t, "IotOpsAgent", cfg.Provision.AgentName)
	assert.Equal(t, "UAT", cfg.Provision.AgentAlias)
	assert.Equal(t, "anthropic.claude-3-haiku-20240307-v1:0", cfg.Provision.FoundationModel)
	assert.Equal(t, "IotDeviceSpecs", cfg.Provision.KnowledgeBaseName)
	assert.Equal(t, "bedrock-agent", cfg.Provision.Collection)
	assert.Equal(t, "bedrock-agent-vector", cfg.Provision.VectorIndexName)
	assert.Equal(t, "bedrock-agent-embeddings", cfg.Provision.VectorFieldName)
	assert.Equal(t, "AMAZON_BEDROCK_TEXT_CHUNK", cfg.Provision.TextField)
	assert.Equal(t, "AMAZON_BEDROCK_METADATA", cfg.Provision.MetadataField)
	assert.Equal(t, "iot_device_info/", cfg.Provision.DocumentPrefix)
	assert.Equal(t, "ChatHistory", cfg.History.Table)
	assert.Equal(t, 18890, cfg.Gateway.Port)
	assert.Equal(t, "loopback", cfg.Gateway.Bind)
	require.NotNil(t, cfg.Gateway.Capabilities.HistoryPanel)
	assert.True(t, *cfg.Gateway.Capabilities.HistoryPanel)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadMissingFile(t *testing.T) {
	cfg, err := Load("/nonexistent/path/config.yaml")
	require.NoError(t, err)
	assert.Equal(t, 18890, cfg.Gateway.Port)
	assert.Equal(t, "info", cfg.Logging.Level)
}

func TestLoadValidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")

	yaml := `
aws:
  region: us-east-1
provision:
  dataBucket: iotops-data
  metricsFunction: device-metrics
  actionFunction: device-action
agent:
  id: AGENT123
  aliasId: ALIAS456
history:
  table: FieldChatHistory
gateway:
  port: 9999
  bind: lan
  capabilities:
    auth: true
    historyPanel: false
    backgroundImage: /static/bg.png
  auth:
    token: secret123
logging:
  level: debug
  consoleStyle: json
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o600))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "us-east-1", cfg.AWS.Region)
	assert.Equal(t, "iotops-data", cfg.Provision.DataBucket)
	assert.Equal(t, "AGENT123", cfg.Agent.ID)
	assert.Equal(t, "ALIAS456", cfg.Agent.AliasID)
	assert.Equal(t, "FieldChatHistory", cfg.History.Table)
	assert.Equal(t, 9999, cfg.Gateway.Port)
	assert.Equal(t, "lan", cfg.Gateway.Bind)
	assert.True(t, cfg.Gateway.Capabilities.Auth)
	require.NotNil(t, cfg.Gateway.Capabilities.HistoryPanel)
	assert.False(t, *cfg.Gateway.Capabilities.HistoryPanel)
	assert.Equal(t, "/static/bg.png", cfg.Gateway.Capabilities.BackgroundImage)
	assert.Equal(t, "secret123", cfg.Gateway.Auth.Token)
	assert.Equal(t, "debug", cfg.Logging.Level)

	// Defaults still fill the unset provisioning fields.
	assert.Equal(t, "IotOpsAgent", cfg.Provision.AgentName)
	assert.Equal(t, "bedrock-agent", cfg.Provision.Collection)
}

func TestLoadInvalidYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("gateway: [not a map"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
	var ce *ConfigError
	assert.ErrorAs(t, err, &ce)
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("IOTOPS_GATEWAY_PORT", "7777")
	t.Setenv("IOTOPS_AGENT_ID", "ENVAGENT")
	t.Setenv("BEDROCK_AGENT_ALIAS", "ENVALIAS")
	t.Setenv("IOTOPS_HISTORY_TABLE", "EnvTable")
	t.Setenv("IOTOPS_LOG_LEVEL", "DEBUG")

	cfg, err := Load("/nonexistent/config.yaml")
	require.NoError(t, err)

	assert.Equal(t, 7777, cfg.Gateway.Port)
	assert.Equal(t, "ENVAGENT", cfg.Agent.ID)
	assert.Equal(t, "ENVALIAS", cfg.Agent.AliasID)
	assert.Equal(t, "EnvTable", cfg.History.Table)
	assert.Equal(t, "debug", cfg.Logging.Level)
}

func TestExpandEnvVars(t *testing.T) {
	t.Setenv("MY_TOKEN", "tok-abc")
	assert.Equal(t, "tok-abc", expandEnvVars("${MY_TOKEN}"))
	assert.Equal(t, "${UNSET_VAR_XYZ}", expandEnvVars("${UNSET_VAR_XYZ}"))
	assert.Equal(t, "plain", expandEnvVars("plain"))
}

func TestResolveEmbeddingModel(t *testing.T) {
	p := ProvisionConfig{}
	assert.Equal(t,
		"arn:aws:bedrock:us-west-2::foundation-model/amazon.titan-embed-text-v1",
		p.ResolveEmbeddingModel("us-west-2"))

	p.EmbeddingModelARN = "arn:aws:bedrock:eu-west-1::foundation-model/custom"
	assert.Equal(t, p.EmbeddingModelARN, p.ResolveEmbeddingModel("us-west-2"))
}
