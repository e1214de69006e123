// Package deviceaction implements the ActionOnDeviceActionGroup
// handler: it records the requested maintenance action and emails the
// operations team so a technician carries it out.
package deviceaction

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/aws/aws-sdk-go-v2/service/sesv2/types"

	"github.com/fieldline/iotops/internal/actions"
	"github.com/fieldline/iotops/internal/logging"
)

// EmailAPI is the slice of SES the handler uses. Satisfied by
// *sesv2.Client.
type EmailAPI interface {
	SendEmail(ctx context.Context, in *sesv2.SendEmailInput, optFns ...func(*sesv2.Options)) (*sesv2.SendEmailOutput, error)
}

// Handler answers actionOnDevice requests.
type Handler struct {
	email     EmailAPI
	sender    string
	recipient string
	log       *logging.Logger
}

func New(client EmailAPI, sender, recipient string, log *logging.Logger) *Handler {
	return &Handler{
		email:     client,
		sender:    sender,
		recipient: recipient,
		log:       log.Sub("deviceaction"),
	}
}

type confirmation struct {
	Status  string `json:"status"`
	Message string `json:"message"`
}

// Handle emails the operations team about the requested action and
// confirms submission to the agent. Requests missing either field get
// a 400 payload so the model can ask the user again.
func (h *Handler) Handle(ctx context.Context, req actions.AgentRequest) (actions.AgentResponse, error) {
	deviceID, ok := req.Parameter("device_id")
	if !ok || deviceID == "" {
		return errorResponse(&req, http.StatusBadRequest, "device_id is required"), nil
	}
	action, ok := req.Parameter("action")
	if !ok || action == "" {
		return errorResponse(&req, http.StatusBadRequest, "action is required"), nil
	}

	h.log.Info().
		Str("sessionId", req.SessionID).
		Str("deviceId", deviceID).
		Str("action", action).
		Msg("submitting device action")

	subject := fmt.Sprintf("Action requested on device %s: %s", deviceID, action)
	body := fmt.Sprintf(
		"A field support session requested the following action.\n\nDevice: %s\nAction: %s\nSession: %s\n\nPlease verify and carry out the action.",
		deviceID, action, req.SessionID)

	_, err := h.email.SendEmail(ctx, &sesv2.SendEmailInput{
		FromEmailAddress: aws.String(h.sender),
		Destination: &types.Destination{
			ToAddresses: []string{h.recipient},
		},
		Content: &types.EmailContent{
			Simple: &types.Message{
				Subject: &types.Content{Data: aws.String(subject)},
				Body: &types.Body{
					Text: &types.Content{Data: aws.String(body)},
				},
			},
		},
	})
	if err != nil {
		h.log.Error().Err(err).Str("deviceId", deviceID).Msg("notification email failed")
		return errorResponse(&req, http.StatusInternalServerError, "could not submit the action request"), nil
	}

	payload, err := json.Marshal(confirmation{
		Status:  "submitted",
		Message: fmt.Sprintf("The %s action for device %s has been sent to the operations team.", action, deviceID),
	})
	if err != nil {
		return actions.AgentResponse{}, fmt.Errorf("marshal confirmation: %w", err)
	}
	return actions.NewResponse(&req, http.StatusOK, string(payload)), nil
}

func errorResponse(req *actions.AgentRequest, status int, message string) actions.AgentResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return actions.NewResponse(req, status, string(body))
}
