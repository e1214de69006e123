// Package devicemetrics implements the CheckDeviceMetricsActionGroup
// handler: it runs an Athena query over the device telemetry table and
// returns the matching rows to the agent.
package devicemetrics

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/athena"
	"github.com/aws/aws-sdk-go-v2/service/athena/types"

	"github.com/fieldline/iotops/internal/actions"
	"github.com/fieldline/iotops/internal/logging"
)

const (
	metricsTable    = "device_metrics"
	maxMetricRows   = 10
	defaultPollWait = 2 * time.Second
)

// AthenaAPI is the slice of the Athena API the handler uses.
// Satisfied by *athena.Client.
type AthenaAPI interface {
	StartQueryExecution(ctx context.Context, in *athena.StartQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.StartQueryExecutionOutput, error)
	GetQueryExecution(ctx context.Context, in *athena.GetQueryExecutionInput, optFns ...func(*athena.Options)) (*athena.GetQueryExecutionOutput, error)
	GetQueryResults(ctx context.Context, in *athena.GetQueryResultsInput, optFns ...func(*athena.Options)) (*athena.GetQueryResultsOutput, error)
}

// Metric is one telemetry row returned to the agent.
type Metric struct {
	Name       string `json:"metric_name"`
	Value      string `json:"metric_value"`
	RecordedAt string `json:"recorded_at"`
}

type result struct {
	DeviceID string   `json:"device_id"`
	Metrics  []Metric `json:"metrics"`
}

// Handler answers checkDeviceMetrics requests.
type Handler struct {
	athena         AthenaAPI
	database       string
	outputLocation string
	pollWait       time.Duration
	sleep          func(context.Context, time.Duration) error
	log            *logging.Logger
}

func New(client AthenaAPI, database, outputLocation string, log *logging.Logger) *Handler {
	return &Handler{
		athena:         client,
		database:       database,
		outputLocation: outputLocation,
		pollWait:       defaultPollWait,
		sleep:          sleepCtx,
		log:            log.Sub("devicemetrics"),
	}
}

// Handle runs the query for the requested device and returns the rows.
// Malformed requests get a 400 payload back to the agent rather than a
// handler error, so the model can rephrase.
func (h *Handler) Handle(ctx context.Context, req actions.AgentRequest) (actions.AgentResponse, error) {
	deviceID, ok := req.Parameter("device_id")
	if !ok || deviceID == "" {
		return errorResponse(&req, http.StatusBadRequest, "device_id is required"), nil
	}
	metricName, _ := req.Parameter("metric_name")

	h.log.Info().
		Str("sessionId", req.SessionID).
		Str("deviceId", deviceID).
		Str("metricName", metricName).
		Msg("querying device metrics")

	rows, err := h.query(ctx, deviceID, metricName)
	if err != nil {
		h.log.Error().Err(err).Str("deviceId", deviceID).Msg("metrics query failed")
		return errorResponse(&req, http.StatusInternalServerError, "metrics query failed"), nil
	}

	payload, err := json.Marshal(result{DeviceID: deviceID, Metrics: rows})
	if err != nil {
		return actions.AgentResponse{}, fmt.Errorf("marshal metrics result: %w", err)
	}
	return actions.NewResponse(&req, http.StatusOK, string(payload)), nil
}

func (h *Handler) query(ctx context.Context, deviceID, metricName string) ([]Metric, error) {
	q := fmt.Sprintf(
		"SELECT metric_name, metric_value, recorded_at FROM %s WHERE device_id = '%s'",
		metricsTable, escape(deviceID))
	if metricName != "" {
		q += fmt.Sprintf(" AND metric_name = '%s'", escape(metricName))
	}
	q += fmt.Sprintf(" ORDER BY recorded_at DESC LIMIT %d", maxMetricRows)

	started, err := h.athena.StartQueryExecution(ctx, &athena.StartQueryExecutionInput{
		QueryString:           aws.String(q),
		QueryExecutionContext: &types.QueryExecutionContext{Database: aws.String(h.database)},
		ResultConfiguration:   &types.ResultConfiguration{OutputLocation: aws.String(h.outputLocation)},
	})
	if err != nil {
		return nil, fmt.Errorf("start query: %w", err)
	}
	queryID := started.QueryExecutionId

	for {
		exec, err := h.athena.GetQueryExecution(ctx, &athena.GetQueryExecutionInput{
			QueryExecutionId: queryID,
		})
		if err != nil {
			return nil, fmt.Errorf("poll query: %w", err)
		}
		state := exec.QueryExecution.Status.State
		switch state {
		case types.QueryExecutionStateSucceeded:
			return h.fetchRows(ctx, queryID)
		case types.QueryExecutionStateFailed, types.QueryExecutionStateCancelled:
			reason := ""
			if exec.QueryExecution.Status.StateChangeReason != nil {
				reason = *exec.QueryExecution.Status.StateChangeReason
			}
			return nil, fmt.Errorf("query %s: %s", strings.ToLower(string(state)), reason)
		}
		if err := h.sleep(ctx, h.pollWait); err != nil {
			return nil, err
		}
	}
}

func (h *Handler) fetchRows(ctx context.Context, queryID *string) ([]Metric, error) {
	out, err := h.athena.GetQueryResults(ctx, &athena.GetQueryResultsInput{
		QueryExecutionId: queryID,
	})
	if err != nil {
		return nil, fmt.Errorf("fetch results: %w", err)
	}
	rows := out.ResultSet.Rows
	if len(rows) <= 1 {
		return nil, nil // header only, no data
	}
	metrics := make([]Metric, 0, len(rows)-1)
	for _, row := range rows[1:] {
		metrics = append(metrics, Metric{
			Name:       datum(row.Data, 0),
			Value:      datum(row.Data, 1),
			RecordedAt: datum(row.Data, 2),
		})
	}
	return metrics, nil
}

func datum(data []types.Datum, i int) string {
	if i >= len(data) || data[i].VarCharValue == nil {
		return ""
	}
	return *data[i].VarCharValue
}

// escape doubles single quotes; the identifiers come out of the model,
// not from a trusted caller.
func escape(v string) string {
	return strings.ReplaceAll(v, "'", "''")
}

func errorResponse(req *actions.AgentRequest, status int, message string) actions.AgentResponse {
	body, _ := json.Marshal(map[string]string{"error": message})
	return actions.NewResponse(req, status, string(body))
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
