package provision

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/opensearch-project/opensearch-go/v2"
	"github.com/opensearch-project/opensearch-go/v2/opensearchapi"
	requestsigner "github.com/opensearch-project/opensearch-go/v2/signer/awsv2"

	"github.com/fieldline/iotops/internal/logging"
)

// titanEmbedDimension is the output width of amazon.titan-embed-text-v1.
const titanEmbedDimension = 1536

// OpenSearchIndexer creates the knn vector index on the collection's
// data plane. Requests are SigV4-signed for the "aoss" service, which
// uses a different signing variant than managed OpenSearch domains.
type OpenSearchIndexer struct {
	awsCfg        aws.Config
	indexName     string
	vectorField   string
	textField     string
	metadataField string
	log           *logging.Logger
}

func NewOpenSearchIndexer(awsCfg aws.Config, indexName, vectorField, textField, metadataField string, log *logging.Logger) *OpenSearchIndexer {
	return &OpenSearchIndexer{
		awsCfg:        awsCfg,
		indexName:     indexName,
		vectorField:   vectorField,
		textField:     textField,
		metadataField: metadataField,
		log:           log.Sub("indexer"),
	}
}

// EnsureIndex creates the vector index if it is not already present.
func (ix *OpenSearchIndexer) EnsureIndex(ctx context.Context, endpoint string) error {
	signer, err := requestsigner.NewSignerWithService(ix.awsCfg, "aoss")
	if err != nil {
		return fmt.Errorf("create aoss signer: %w", err)
	}
	client, err := opensearch.NewClient(opensearch.Config{
		Addresses: []string{endpoint},
		Signer:    signer,
	})
	if err != nil {
		return fmt.Errorf("create opensearch client: %w", err)
	}

	existsRes, err := opensearchapi.IndicesExistsRequest{Index: []string{ix.indexName}}.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("check index %q: %w", ix.indexName, err)
	}
	existsRes.Body.Close()
	if existsRes.StatusCode == http.StatusOK {
		ix.log.Debug().Str("index", ix.indexName).Msg("vector index already present")
		return nil
	}

	body, err := json.Marshal(map[string]any{
		"settings": map[string]any{
			"index.knn": true,
		},
		"mappings": map[string]any{
			"properties": map[string]any{
				ix.vectorField: map[string]any{
					"type":      "knn_vector",
					"dimension": titanEmbedDimension,
					"method": map[string]any{
						"name":   "hnsw",
						"engine": "faiss",
					},
				},
				ix.textField:     map[string]any{"type": "text"},
				ix.metadataField: map[string]any{"type": "text"},
			},
		},
	})
	if err != nil {
		return fmt.Errorf("marshal index mapping: %w", err)
	}

	createRes, err := opensearchapi.IndicesCreateRequest{
		Index: ix.indexName,
		Body:  strings.NewReader(string(body)),
	}.Do(ctx, client)
	if err != nil {
		return fmt.Errorf("create index %q: %w", ix.indexName, err)
	}
	defer createRes.Body.Close()
	if createRes.IsError() {
		detail, _ := io.ReadAll(createRes.Body)
		if strings.Contains(string(detail), "resource_already_exists_exception") {
			return nil
		}
		return fmt.Errorf("create index %q: %s: %s", ix.indexName, createRes.Status(), strings.TrimSpace(string(detail)))
	}
	ix.log.Info().Str("index", ix.indexName).Msg("vector index created")
	return nil
}
