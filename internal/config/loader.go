package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// envVarPattern matches ${VAR_NAME} patterns in strings.
var envVarPattern = regexp.MustCompile(`\$\{([A-Za-z_][A-Za-z0-9_]*)\}`)

// expandEnvVars replaces ${VAR} patterns with environment variable values.
// Unset variables are left unchanged.
func expandEnvVars(s string) string {
	return envVarPattern.ReplaceAllStringFunc(s, func(match string) string {
		varName := match[2 : len(match)-1]
		if val, ok := os.LookupEnv(varName); ok {
			return val
		}
		return match
	})
}

// expandSensitiveFields processes environment variable references in
// credential fields so tokens can be stored as ${ENV_VAR}.
func expandSensitiveFields(cfg *Config) {
	cfg.Gateway.Auth.Token = expandEnvVars(cfg.Gateway.Auth.Token)
}

// Load reads the config file, applies environment overrides, and returns
// a merged Config. Missing files produce defaults only.
func Load(path string) (Config, error) {
	cfg := Defaults()

	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			applyEnvOverrides(&cfg)
			return cfg, nil
		}
		return cfg, err
	}

	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}

	applyDefaults(&cfg)
	applyEnvOverrides(&cfg)
	expandSensitiveFields(&cfg)
	return cfg, nil
}

// LoadRaw reads the config file into a generic map for path-based access.
func LoadRaw(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return map[string]any{}, nil
		}
		return nil, err
	}

	var raw map[string]any
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, &ConfigError{Message: "failed to parse config: " + err.Error()}
	}
	return raw, nil
}

// SaveRaw writes a generic map back to a YAML config file.
func SaveRaw(path string, raw map[string]any) error {
	data, err := yaml.Marshal(raw)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// Provisioning naming conventions carried over from the IotOps stack.
const (
	DefaultAgentName         = "IotOpsAgent"
	DefaultAgentAlias        = "UAT"
	DefaultFoundationModel   = "anthropic.claude-3-haiku-20240307-v1:0"
	DefaultKnowledgeBaseName = "IotDeviceSpecs"
	DefaultDataSourceName    = "IotDeviceSpecsS3DataSource"
	DefaultCollection        = "bedrock-agent"
	DefaultVectorIndexName   = "bedrock-agent-vector"
	DefaultVectorFieldName   = "bedrock-agent-embeddings"
	DefaultTextField         = "AMAZON_BEDROCK_TEXT_CHUNK"
	DefaultMetadataField     = "AMAZON_BEDROCK_METADATA"
	DefaultDocumentPrefix    = "iot_device_info/"
	DefaultHistoryTable      = "ChatHistory"
)

// applyDefaults fills zero-value fields with sensible defaults.
func applyDefaults(cfg *Config) {
	if cfg.Provision.AgentName == "" {
		cfg.Provision.AgentName = DefaultAgentName
	}
	if cfg.Provision.AgentAlias == "" {
		cfg.Provision.AgentAlias = DefaultAgentAlias
	}
	if cfg.Provision.FoundationModel == "" {
		cfg.Provision.FoundationModel = DefaultFoundationModel
	}
	if cfg.Provision.KnowledgeBaseName == "" {
		cfg.Provision.KnowledgeBaseName = DefaultKnowledgeBaseName
	}
	if cfg.Provision.DataSourceName == "" {
		cfg.Provision.DataSourceName = DefaultDataSourceName
	}
	if cfg.Provision.Collection == "" {
		cfg.Provision.Collection = DefaultCollection
	}
	if cfg.Provision.VectorIndexName == "" {
		cfg.Provision.VectorIndexName = DefaultVectorIndexName
	}
	if cfg.Provision.VectorFieldName == "" {
		cfg.Provision.VectorFieldName = DefaultVectorFieldName
	}
	if cfg.Provision.TextField == "" {
		cfg.Provision.TextField = DefaultTextField
	}
	if cfg.Provision.MetadataField == "" {
		cfg.Provision.MetadataField = DefaultMetadataField
	}
	if cfg.Provision.DocumentPrefix == "" {
		cfg.Provision.DocumentPrefix = DefaultDocumentPrefix
	}
	if cfg.History.Table == "" {
		cfg.History.Table = DefaultHistoryTable
	}
	if cfg.Gateway.Port == 0 {
		cfg.Gateway.Port = 18890
	}
	if cfg.Gateway.Bind == "" {
		cfg.Gateway.Bind = "loopback"
	}
	if cfg.Gateway.Capabilities.HistoryPanel == nil {
		v := true
		cfg.Gateway.Capabilities.HistoryPanel = &v
	}
	if cfg.Logging.Level == "" {
		cfg.Logging.Level = "info"
	}
	if cfg.Logging.ConsoleStyle == "" {
		cfg.Logging.ConsoleStyle = "pretty"
	}
}

// applyEnvOverrides reads IOTOPS_* environment variables and overrides
// config values. The BEDROCK_AGENT_ID / BEDROCK_AGENT_ALIAS names from
// the original frontend deployment are accepted as fallbacks.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("IOTOPS_GATEWAY_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Gateway.Port = port
		}
	}
	if v := os.Getenv("IOTOPS_GATEWAY_BIND"); v != "" {
		cfg.Gateway.Bind = v
	}
	if v := os.Getenv("IOTOPS_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = strings.ToLower(v)
	}
	if v := os.Getenv("IOTOPS_DATA_BUCKET"); v != "" {
		cfg.Provision.DataBucket = v
	}
	if v := firstEnv("IOTOPS_AGENT_ID", "BEDROCK_AGENT_ID"); v != "" {
		cfg.Agent.ID = v
	}
	if v := firstEnv("IOTOPS_AGENT_ALIAS", "BEDROCK_AGENT_ALIAS"); v != "" {
		cfg.Agent.AliasID = v
	}
	if v := os.Getenv("IOTOPS_HISTORY_TABLE"); v != "" {
		cfg.History.Table = v
	}
	if v := firstEnv("IOTOPS_AWS_REGION", "AWS_REGION"); v != "" && cfg.AWS.Region == "" {
		cfg.AWS.Region = v
	}
}

func firstEnv(names ...string) string {
	for _, n := range names {
		if v := os.Getenv(n); v != "" {
			return v
		}
	}
	return ""
}

// ResolveEmbeddingModel returns the embedding model ARN, deriving the
// Titan default from the region when none is configured.
func (p ProvisionConfig) ResolveEmbeddingModel(region string) string {
	if p.EmbeddingModelARN != "" {
		return p.EmbeddingModelARN
	}
	return fmt.Sprintf("arn:aws:bedrock:%s::foundation-model/amazon.titan-embed-text-v1", region)
}
