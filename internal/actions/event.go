// Package actions defines the request and response envelope Bedrock
// agents use when invoking action-group Lambda handlers, shared by the
// device-metrics and device-action functions.
package actions

import "strings"

// Parameter is one named value from the agent's request, either a path
// parameter or a request-body property.
type Parameter struct {
	Name  string `json:"name"`
	Type  string `json:"type"`
	Value string `json:"value"`
}

// ContentBody holds the properties the agent extracted for one request
// content type.
type ContentBody struct {
	Properties []Parameter `json:"properties"`
}

// RequestBody maps content type to extracted properties.
type RequestBody struct {
	Content map[string]ContentBody `json:"content"`
}

// AgentInfo identifies the calling agent.
type AgentInfo struct {
	Name    string `json:"name"`
	ID      string `json:"id"`
	Alias   string `json:"alias"`
	Version string `json:"version"`
}

// AgentRequest is the invocation event a Bedrock agent sends to an
// action-group handler.
type AgentRequest struct {
	MessageVersion string      `json:"messageVersion"`
	Agent          AgentInfo   `json:"agent"`
	SessionID      string      `json:"sessionId"`
	ActionGroup    string      `json:"actionGroup"`
	APIPath        string      `json:"apiPath"`
	HTTPMethod     string      `json:"httpMethod"`
	Parameters     []Parameter `json:"parameters"`
	RequestBody    RequestBody `json:"requestBody"`
}

// Parameter returns the named value, searching the parameter list
// first and then every content type's body properties. Names are
// matched case-insensitively because the model is not consistent about
// casing.
func (r *AgentRequest) Parameter(name string) (string, bool) {
	for _, p := range r.Parameters {
		if strings.EqualFold(p.Name, name) {
			return p.Value, true
		}
	}
	for _, body := range r.RequestBody.Content {
		for _, p := range body.Properties {
			if strings.EqualFold(p.Name, name) {
				return p.Value, true
			}
		}
	}
	return "", false
}

// ResponseBody carries the serialized payload for one content type.
type ResponseBody struct {
	Body string `json:"body"`
}

// ActionResponse is the inner response the agent consumes.
type ActionResponse struct {
	ActionGroup    string                  `json:"actionGroup"`
	APIPath        string                  `json:"apiPath"`
	HTTPMethod     string                  `json:"httpMethod"`
	HTTPStatusCode int                     `json:"httpStatusCode"`
	ResponseBody   map[string]ResponseBody `json:"responseBody"`
}

// AgentResponse is the envelope returned to the agent.
type AgentResponse struct {
	MessageVersion string         `json:"messageVersion"`
	Response       ActionResponse `json:"response"`
}

// NewResponse builds a response envelope echoing the request's routing
// fields, with a JSON payload.
func NewResponse(req *AgentRequest, status int, payload string) AgentResponse {
	return AgentResponse{
		MessageVersion: "1.0",
		Response: ActionResponse{
			ActionGroup:    req.ActionGroup,
			APIPath:        req.APIPath,
			HTTPMethod:     req.HTTPMethod,
			HTTPStatusCode: status,
			ResponseBody: map[string]ResponseBody{
				"application/json": {Body: payload},
			},
		},
	}
}
