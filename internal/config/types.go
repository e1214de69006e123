package config

// Config is the root configuration for iotops. The provision section
// drives the one-shot resource chain; the agent/history/gateway
// sections are consumed by the chat gateway at runtime.
type Config struct {
	AWS       AWSConfig       `yaml:"aws,omitempty"`
	Provision ProvisionConfig `yaml:"provision,omitempty"`
	Agent     AgentRuntime    `yaml:"agent,omitempty"`
	History   HistoryConfig   `yaml:"history,omitempty"`
	Gateway   GatewayConfig   `yaml:"gateway,omitempty"`
	Logging   LoggingConfig   `yaml:"logging,omitempty"`
}

// AWSConfig selects the AWS credential context.
type AWSConfig struct {
	Region  string `yaml:"region,omitempty"`
	Profile string `yaml:"profile,omitempty"`
}

// ProvisionConfig names every resource the provisioning chain creates
// or references. Names default to the IotOps conventions; the data
// bucket and the two action functions must already exist and have no
// defaults.
type ProvisionConfig struct {
	AgentName         string `yaml:"agentName,omitempty"`
	AgentAlias        string `yaml:"agentAlias,omitempty"`
	FoundationModel   string `yaml:"foundationModel,omitempty"`
	EmbeddingModelARN string `yaml:"embeddingModelArn,omitempty"` // derived from region when empty
	KnowledgeBaseName string `yaml:"knowledgeBaseName,omitempty"`
	DataSourceName    string `yaml:"dataSourceName,omitempty"`
	Collection        string `yaml:"collection,omitempty"`
	VectorIndexName   string `yaml:"vectorIndexName,omitempty"`
	VectorFieldName   string `yaml:"vectorFieldName,omitempty"`
	TextField         string `yaml:"textField,omitempty"`
	MetadataField     string `yaml:"metadataField,omitempty"`

	DataBucket     string `yaml:"dataBucket"`
	DocumentPrefix string `yaml:"documentPrefix,omitempty"`

	MetricsFunction string `yaml:"metricsFunction"`
	ActionFunction  string `yaml:"actionFunction"`
}

// AgentRuntime identifies the provisioned agent the gateway talks to.
// Both values are outputs of a provisioning run.
type AgentRuntime struct {
	ID      string `yaml:"id,omitempty"`
	AliasID string `yaml:"aliasId,omitempty"`
}

// HistoryConfig configures chat-history persistence.
type HistoryConfig struct {
	Table string `yaml:"table,omitempty"`
}

// GatewayConfig controls the chat gateway HTTP/WebSocket server.
type GatewayConfig struct {
	Port           int          `yaml:"port,omitempty"`
	Bind           string       `yaml:"bind,omitempty"` // "loopback" | "lan" | "custom"
	CustomBindHost string       `yaml:"customBindHost,omitempty"`
	Auth           GatewayAuth  `yaml:"auth,omitempty"`
	Capabilities   Capabilities `yaml:"capabilities,omitempty"`
	AllowedOrigins []string     `yaml:"allowedOrigins,omitempty"`
}

// GatewayAuth configures gateway authentication (used only when the
// auth capability is enabled).
type GatewayAuth struct {
	Token string `yaml:"token,omitempty"`
}

// Capabilities is the feature flag set for the single configurable
// chat frontend: authentication, the history side panel, and an
// optional background image URL.
type Capabilities struct {
	Auth            bool   `yaml:"auth,omitempty"`
	HistoryPanel    *bool  `yaml:"historyPanel,omitempty"` // defaults to true
	BackgroundImage string `yaml:"backgroundImage,omitempty"`
}

// LoggingConfig controls logging behavior.
type LoggingConfig struct {
	Level        string `yaml:"level,omitempty"`        // "silent" | "fatal" | "error" | "warn" | "info" | "debug" | "trace"
	ConsoleStyle string `yaml:"consoleStyle,omitempty"` // "pretty" | "compact" | "json"
}
