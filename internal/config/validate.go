package config

import (
	"fmt"
	"slices"
)

// ValidationIssue describes a problem with a config value.
type ValidationIssue struct {
	Path    string
	Message string
}

func (v ValidationIssue) String() string {
	return fmt.Sprintf("%s: %s", v.Path, v.Message)
}

// Validate checks a Config for structural issues. Returns nil if valid.
func Validate(cfg *Config) []ValidationIssue {
	var issues []ValidationIssue

	if cfg.Gateway.Port < 0 || cfg.Gateway.Port > 65535 {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.port",
			Message: fmt.Sprintf("port must be 0-65535, got %d", cfg.Gateway.Port),
		})
	}

	validBinds := []string{"loopback", "lan", "custom"}
	if cfg.Gateway.Bind != "" && !slices.Contains(validBinds, cfg.Gateway.Bind) {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.bind",
			Message: fmt.Sprintf("must be one of %v, got %q", validBinds, cfg.Gateway.Bind),
		})
	}

	validLogLevels := []string{"silent", "fatal", "error", "warn", "info", "debug", "trace"}
	if cfg.Logging.Level != "" && !slices.Contains(validLogLevels, cfg.Logging.Level) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.level",
			Message: fmt.Sprintf("must be one of %v, got %q", validLogLevels, cfg.Logging.Level),
		})
	}

	validConsoleStyles := []string{"pretty", "compact", "json"}
	if cfg.Logging.ConsoleStyle != "" && !slices.Contains(validConsoleStyles, cfg.Logging.ConsoleStyle) {
		issues = append(issues, ValidationIssue{
			Path:    "logging.consoleStyle",
			Message: fmt.Sprintf("must be one of %v, got %q", validConsoleStyles, cfg.Logging.ConsoleStyle),
		})
	}

	if cfg.Gateway.Capabilities.Auth && cfg.Gateway.Auth.Token == "" {
		issues = append(issues, ValidationIssue{
			Path:    "gateway.auth.token",
			Message: "required when the auth capability is enabled",
		})
	}

	return issues
}

// ValidateServe checks the values the chat gateway cannot start
// without: the provisioned agent identity and the history table.
func ValidateServe(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)

	if cfg.Agent.ID == "" {
		issues = append(issues, ValidationIssue{
			Path:    "agent.id",
			Message: "agent id is required (set IOTOPS_AGENT_ID or run provision)",
		})
	}
	if cfg.Agent.AliasID == "" {
		issues = append(issues, ValidationIssue{
			Path:    "agent.aliasId",
			Message: "agent alias is required (set IOTOPS_AGENT_ALIAS or run provision)",
		})
	}
	if cfg.History.Table == "" {
		issues = append(issues, ValidationIssue{
			Path:    "history.table",
			Message: "chat-history table name is required",
		})
	}
	return issues
}

// ValidateProvision checks the values the provisioning chain cannot
// run without: the document bucket and the two deployed action
// functions it must reference.
func ValidateProvision(cfg *Config) []ValidationIssue {
	issues := Validate(cfg)

	if cfg.Provision.DataBucket == "" {
		issues = append(issues, ValidationIssue{
			Path:    "provision.dataBucket",
			Message: "data bucket is required",
		})
	}
	if cfg.Provision.MetricsFunction == "" {
		issues = append(issues, ValidationIssue{
			Path:    "provision.metricsFunction",
			Message: "device-metrics function name is required",
		})
	}
	if cfg.Provision.ActionFunction == "" {
		issues = append(issues, ValidationIssue{
			Path:    "provision.actionFunction",
			Message: "device-action function name is required",
		})
	}
	if cfg.AWS.Region == "" {
		issues = append(issues, ValidationIssue{
			Path:    "aws.region",
			Message: "region is required",
		})
	}

	// Collection access-policy names are length-capped by the service.
	if n := cfg.Provision.Collection + "-access-policy"; len(n) > 32 {
		issues = append(issues, ValidationIssue{
			Path:    "provision.collection",
			Message: fmt.Sprintf("collection name too long: %q exceeds the 32-char policy name limit", n),
		})
	}

	return issues
}
