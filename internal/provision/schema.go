package provision

import (
	"bytes"
	"context"
	"embed"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

//go:embed schemas/*.json
var schemaFS embed.FS

// Object keys the agent's action groups read their OpenAPI schemas
// from. The agent role's ReadActionSchemas policy covers the bucket.
const (
	SchemaKeyMetrics = "open_api_schema/check_device_metrics.json"
	SchemaKeyAction  = "open_api_schema/action_on_device.json"
)

// uploadSchema puts one embedded OpenAPI schema into the data bucket.
// PutObject overwrites, so re-runs converge on the embedded version.
// Returns the object key.
func (p *Provisioner) uploadSchema(ctx context.Context, name, key string) (string, error) {
	data, err := schemaFS.ReadFile("schemas/" + name)
	if err != nil {
		return "", fmt.Errorf("read embedded schema %s: %w", name, err)
	}
	_, err = p.clients.Objects.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(p.cfg.DataBucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String("application/json"),
	})
	if err != nil {
		return "", err
	}
	return key, nil
}
