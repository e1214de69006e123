package chat

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"

	"github.com/fieldline/iotops/internal/domain"
	"github.com/fieldline/iotops/internal/logging"
)

// RuntimeAPI is the slice of the agent runtime the invoker uses.
// Satisfied by *bedrockagentruntime.Client.
type RuntimeAPI interface {
	InvokeAgent(ctx context.Context, in *bedrockagentruntime.InvokeAgentInput, optFns ...func(*bedrockagentruntime.Options)) (*bedrockagentruntime.InvokeAgentOutput, error)
}

// BedrockInvoker streams replies from a provisioned agent alias.
// Traces are enabled on every call so knowledge base lookups surface
// as retrieval events.
type BedrockInvoker struct {
	runtime RuntimeAPI
	agentID string
	aliasID string
	log     *logging.Logger
}

func NewBedrockInvoker(runtime RuntimeAPI, agentID, aliasID string, log *logging.Logger) *BedrockInvoker {
	return &BedrockInvoker{
		runtime: runtime,
		agentID: agentID,
		aliasID: aliasID,
		log:     log.Sub("invoker"),
	}
}

func (b *BedrockInvoker) Invoke(ctx context.Context, sessionID, text string) (<-chan Event, error) {
	out, err := b.runtime.InvokeAgent(ctx, &bedrockagentruntime.InvokeAgentInput{
		AgentId:      aws.String(b.agentID),
		AgentAliasId: aws.String(b.aliasID),
		SessionId:    aws.String(sessionID),
		InputText:    aws.String(text),
		EnableTrace:  aws.Bool(true),
	})
	if err != nil {
		return nil, err
	}

	events := make(chan Event)
	go func() {
		defer close(events)
		stream := out.GetStream()
		defer stream.Close()

		send := func(ev Event) bool {
			select {
			case events <- ev:
				return true
			case <-ctx.Done():
				return false
			}
		}

		for raw := range stream.Events() {
			switch v := raw.(type) {
			case *types.ResponseStreamMemberChunk:
				if len(v.Value.Bytes) > 0 {
					if !send(Event{Type: EventDelta, Text: string(v.Value.Bytes)}) {
						return
					}
				}
			case *types.ResponseStreamMemberTrace:
				for _, ev := range traceEvents(v.Value) {
					if !send(ev) {
						return
					}
				}
			}
		}
		if err := stream.Err(); err != nil {
			send(Event{Type: EventError, Err: err})
			return
		}
		send(Event{Type: EventDone})
	}()
	return events, nil
}

// traceEvents maps orchestration traces to retrieval events: the query
// sent to the knowledge base, then the references it returned.
func traceEvents(tp types.TracePart) []Event {
	orch, ok := tp.Trace.(*types.TraceMemberOrchestrationTrace)
	if !ok {
		return nil
	}
	switch step := orch.Value.(type) {
	case *types.OrchestrationTraceMemberInvocationInput:
		lookup := step.Value.KnowledgeBaseLookupInput
		if lookup == nil || lookup.Text == nil {
			return nil
		}
		return []Event{{Type: EventTrace, Text: aws.ToString(lookup.Text)}}
	case *types.OrchestrationTraceMemberObservation:
		lookup := step.Value.KnowledgeBaseLookupOutput
		if lookup == nil || len(lookup.RetrievedReferences) == 0 {
			return nil
		}
		refs := make([]domain.Reference, 0, len(lookup.RetrievedReferences))
		for _, ref := range lookup.RetrievedReferences {
			var r domain.Reference
			if ref.Content != nil {
				r.Text = aws.ToString(ref.Content.Text)
			}
			if ref.Location != nil && ref.Location.S3Location != nil {
				r.URI = aws.ToString(ref.Location.S3Location.Uri)
			}
			refs = append(refs, r)
		}
		return []Event{{Type: EventTrace, Refs: refs}}
	}
	return nil
}
