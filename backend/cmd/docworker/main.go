// Command docworker hosts the document processing workflow tasks: chunk
// planning, classification, and extraction. Each task is exposed on its own
// LWA pass-through path so the pipeline can scale them independently.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/docuflowhq/docuflow/dflwa"
)

type Env struct {
	dflwa.BaseEnvironment
	BucketName        string `env:"DF_BUCKET_NAME,required"`
	ModelID           string `env:"DF_MODEL_ID,required"`
	ChunkSizePages    int    `env:"DF_CHUNK_SIZE_PAGES" envDefault:"10"`
	ChunkOverlapPages int    `env:"DF_CHUNK_OVERLAP_PAGES" envDefault:"1"`
	ClassifyPrompt    string `env:"DF_CLASSIFY_PROMPT"`
	ExtractPrompt     string `env:"DF_EXTRACT_PROMPT"`
}

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux) {
			m.HandleFunc("POST /l/chunk-document", handleChunkDocument)
			m.HandleFunc("POST /l/classify-chunk", handleClassify)
			m.HandleFunc("POST /l/extract-chunk", handleExtract)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *s3.Client {
			return s3.NewFromConfig(cfg)
		}),
		dflwa.WithAWSClient(func(cfg aws.Config) *bedrockruntime.Client {
			return bedrockruntime.NewFromConfig(cfg)
		}),
	).Run()
}
