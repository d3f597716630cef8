// Command docstatus serves the document status API behind the REST gateway,
// plus the TOKEN authorizer the gateway consults.
package main

import (
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/fx"
)

type Env struct {
	dflwa.BaseEnvironment
	TableName string `env:"DF_TABLE_NAME,required"`
	// APIToken, when set, is the only token the authorizer accepts.
	APIToken string `env:"DF_API_TOKEN"`
}

func main() {
	dflwa.NewApp[Env](
		func(m *dflwa.Mux, h *Handlers) {
			m.HandleFunc("GET /api/documents/{id}", h.GetDocument, "get-document")
			m.HandleFunc("GET /api/documents", h.ListDocuments)
			m.HandleFunc("POST /l/authorize", h.Authorize)
		},
		dflwa.WithAWSClient(func(cfg aws.Config) *dynamodb.Client {
			return dynamodb.NewFromConfig(cfg)
		}),
		dflwa.WithFx(fx.Provide(NewHandlers)),
	).Run()
}
