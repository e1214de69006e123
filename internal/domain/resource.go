package domain

import "time"

// ProvisionedResource is one entry in the local provisioning ledger:
// a completed step and the physical identifier the managed service
// returned for it.
type ProvisionedResource struct {
	Step      string    `json:"step"`
	ID        string    `json:"id"`
	Detail    string    `json:"detail,omitempty"`
	CreatedAt time.Time `json:"createdAt"`
}

// Outputs are the terminal results of a provisioning run, consumed by
// the chat gateway at runtime.
type Outputs struct {
	AgentID            string `json:"agentId"`
	AgentAliasID       string `json:"agentAliasId"`
	KnowledgeBaseID    string `json:"knowledgeBaseId"`
	DataSourceID       string `json:"dataSourceId"`
	CollectionARN      string `json:"collectionArn"`
	CollectionEndpoint string `json:"collectionEndpoint"`
}
