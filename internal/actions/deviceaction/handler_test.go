package deviceaction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldline/iotops/internal/actions"
	"github.com/fieldline/iotops/internal/logging"
)

type fakeEmail struct {
	sent    []*sesv2.SendEmailInput
	sendErr error
}

func (f *fakeEmail) SendEmail(ctx context.Context, in *sesv2.SendEmailInput, _ ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error) {
	if f.sendErr != nil {
		return nil, f.sendErr
	}
	f.sent = append(f.sent, in)
	return &sesv2.SendEmailOutput{}, nil
}

func actionRequest(deviceID, action string) actions.AgentRequest {
	props := []actions.Parameter{}
	if deviceID != "" {
		props = append(props, actions.Parameter{Name: "device_id", Type: "string", Value: deviceID})
	}
	if action != "" {
		props = append(props, actions.Parameter{Name: "action", Type: "string", Value: action})
	}
	return actions.AgentRequest{
		MessageVersion: "1.0",
		SessionID:      "4f2ab-9k",
		ActionGroup:    "ActionOnDeviceActionGroup",
		APIPath:        "/actionOnDevice",
		HTTPMethod:     "POST",
		RequestBody: actions.RequestBody{
			Content: map[string]actions.ContentBody{
				"application/json": {Properties: props},
			},
		},
	}
}

func testHandler(t *testing.T, f *fakeEmail) *Handler {
	t.Helper()
	return New(f, "alerts@example.com", "ops@example.com", logging.New(nil, "silent", "json"))
}

func TestHandleSendsEmail(t *testing.T) {
	f := &fakeEmail{}
	h := testHandler(t, f)

	res, err := h.Handle(context.Background(), actionRequest("ct-scanner-07", "restart"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.Response.HTTPStatusCode)

	require.Len(t, f.sent, 1)
	in := f.sent[0]
	assert.Equal(t, "alerts@example.com", aws.ToString(in.FromEmailAddress))
	assert.Equal(t, []string{"ops@example.com"}, in.Destination.ToAddresses)
	assert.Contains(t, aws.ToString(in.Content.Simple.Subject.Data), "ct-scanner-07")
	assert.Contains(t, aws.ToString(in.Content.Simple.Subject.Data), "restart")
	assert.Contains(t, aws.ToString(in.Content.Simple.Body.Text.Data), "Session: 4f2ab-9k")

	var got confirmation
	require.NoError(t, json.Unmarshal([]byte(res.Response.ResponseBody["application/json"].Body), &got))
	assert.Equal(t, "submitted", got.Status)
	assert.Contains(t, got.Message, "restart")
}

func TestHandleMissingDeviceID(t *testing.T) {
	f := &fakeEmail{}
	h := testHandler(t, f)

	res, err := h.Handle(context.Background(), actionRequest("", "restart"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.Response.HTTPStatusCode)
	assert.Empty(t, f.sent)
}

func TestHandleMissingAction(t *testing.T) {
	f := &fakeEmail{}
	h := testHandler(t, f)

	res, err := h.Handle(context.Background(), actionRequest("ct-scanner-07", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusBadRequest, res.Response.HTTPStatusCode)
	assert.Empty(t, f.sent)
}

func TestHandleSendFailure(t *testing.T) {
	f := &fakeEmail{sendErr: errors.New("mailbox unavailable")}
	h := testHandler(t, f)

	res, err := h.Handle(context.Background(), actionRequest("ct-scanner-07", "restart"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusInternalServerError, res.Response.HTTPStatusCode)
}
