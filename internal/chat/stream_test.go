package chat

import (
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockagentruntime/types"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTraceEventsLookupInput(t *testing.T) {
	tp := types.TracePart{
		Trace: &types.TraceMemberOrchestrationTrace{
			Value: &types.OrchestrationTraceMemberInvocationInput{
				Value: types.InvocationInput{
					KnowledgeBaseLookupInput: &types.KnowledgeBaseLookupInput{
						Text: aws.String("CT system fault reset"),
					},
				},
			},
		},
	}
	evs := traceEvents(tp)
	require.Len(t, evs, 1)
	assert.Equal(t, EventTrace, evs[0].Type)
	assert.Equal(t, "CT system fault reset", evs[0].Text)
}

func TestTraceEventsObservationRefs(t *testing.T) {
	tp := types.TracePart{
		Trace: &types.TraceMemberOrchestrationTrace{
			Value: &types.OrchestrationTraceMemberObservation{
				Value: types.Observation{
					KnowledgeBaseLookupOutput: &types.KnowledgeBaseLookupOutput{
						RetrievedReferences: []types.RetrievedReference{
							{
								Content: &types.RetrievalResultContent{Text: aws.String("section 3.2: reset procedure")},
								Location: &types.RetrievalResultLocation{
									S3Location: &types.RetrievalResultS3Location{
										Uri: aws.String("s3://iot-device-data/iot_device_info/manual.pdf"),
									},
								},
							},
							{
								Content: &types.RetrievalResultContent{Text: aws.String("section 4.5")},
							},
						},
					},
				},
			},
		},
	}
	evs := traceEvents(tp)
	require.Len(t, evs, 1)
	require.Len(t, evs[0].Refs, 2)
	assert.Equal(t, "section 3.2: reset procedure", evs[0].Refs[0].Text)
	assert.Equal(t, "s3://iot-device-data/iot_device_info/manual.pdf", evs[0].Refs[0].URI)
	assert.Empty(t, evs[0].Refs[1].URI)
}

func TestTraceEventsIgnoresOtherTraces(t *testing.T) {
	// Non-orchestration traces and orchestration steps without a
	// knowledge base lookup produce nothing.
	assert.Empty(t, traceEvents(types.TracePart{}))
	assert.Empty(t, traceEvents(types.TracePart{
		Trace: &types.TraceMemberOrchestrationTrace{
			Value: &types.OrchestrationTraceMemberInvocationInput{
				Value: types.InvocationInput{},
			},
		},
	}))
}
