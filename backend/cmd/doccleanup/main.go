// Command doccleanup removes the temporary chunk objects a workflow run left
// behind. Cleanup is best-effort: the bucket lifecycle rule expires anything
// it misses, so this task never fails the workflow.
package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

type Env struct {
	dflwa.BaseEnvironment
	BucketName string `env:"DF_BUCKET_NAME,required"`
}

// deleteBatchSize is the DeleteObjects API limit.
const deleteBatchSize = 1000

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux) {
			m.HandleFunc("POST /l/cleanup-chunks", handleCleanup)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *s3.Client {
			return s3.NewFromConfig(cfg)
		}),
	).Run()
}

func handleCleanup(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)
	client := dflwa.AWS[s3.Client](ctx)

	var input struct {
		DocumentID string `json:"documentId"`
	}
	if err := json.NewDecoder(r.Body).Decode(&input); err != nil || input.DocumentID == "" {
		log.Warn("cleanup input missing document id", zap.Error(err))
		w.Header().Set("Content-Type", "application/json")
		return json.NewEncoder(w).Encode(map[string]int{"deleted": 0})
	}

	prefix := docevents.ChunkObjectPrefix(input.DocumentID)
	deleted := 0

	paginator := s3.NewListObjectsV2Paginator(client, &s3.ListObjectsV2Input{
		Bucket: aws.String(env.BucketName),
		Prefix: aws.String(prefix),
	})
	for paginator.HasMorePages() {
		page, err := paginator.NextPage(ctx)
		if err != nil {
			log.Warn("failed to list chunk objects",
				zap.String("prefix", prefix), zap.Error(err))
			break
		}

		for batch := range batchKeys(page.Contents) {
			out, err := client.DeleteObjects(ctx, &s3.DeleteObjectsInput{
				Bucket: aws.String(env.BucketName),
				Delete: &s3types.Delete{Objects: batch, Quiet: aws.Bool(true)},
			})
			if err != nil {
				log.Warn("failed to delete chunk batch", zap.Error(err))
				continue
			}
			deleted += len(batch) - len(out.Errors)
			for _, delErr := range out.Errors {
				log.Warn("failed to delete chunk object",
					zap.Stringp("key", delErr.Key),
					zap.Stringp("message", delErr.Message))
			}
		}
	}

	log.Info("cleaned up chunk objects",
		zap.String("document_id", input.DocumentID),
		zap.Int("deleted", deleted))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]int{"deleted": deleted})
}

// batchKeys yields object identifiers in DeleteObjects-sized batches.
func batchKeys(objects []s3types.Object) func(yield func([]s3types.ObjectIdentifier) bool) {
	return func(yield func([]s3types.ObjectIdentifier) bool) {
		var batch []s3types.ObjectIdentifier
		for _, obj := range objects {
			batch = append(batch, s3types.ObjectIdentifier{Key: obj.Key})
			if len(batch) == deleteBatchSize {
				if !yield(batch) {
					return
				}
				batch = nil
			}
		}
		if len(batch) > 0 {
			yield(batch)
		}
	}
}
