package main

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/advdv/bhttp"
	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/feature/dynamodb/attributevalue"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"
	ddbtypes "github.com/aws/aws-sdk-go-v2/service/dynamodb/types"
	"github.com/cockroachdb/errors"
	"github.com/docuflowhq/docuflow/backend/internal/docevents"
	"github.com/docuflowhq/docuflow/dflwa"
	"go.uber.org/zap"
)

// listLimit caps a status listing page.
const listLimit = 50

// Handlers contains the HTTP handlers of the status API.
type Handlers struct{}

func NewHandlers() *Handlers { return &Handlers{} }

// GetDocument returns the tracking record for one document.
func (h *Handlers) GetDocument(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	env := dflwa.Env[Env](ctx)
	client := dflwa.AWS[dynamodb.Client](ctx)

	id := r.PathValue("id")

	out, err := client.GetItem(ctx, &dynamodb.GetItemInput{
		TableName: aws.String(env.TableName),
		Key: map[string]ddbtypes.AttributeValue{
			"pk": &ddbtypes.AttributeValueMemberS{Value: docevents.DocumentPK(id)},
			"sk": &ddbtypes.AttributeValueMemberS{Value: "status"},
		},
	})
	if err != nil {
		return errors.Wrapf(err, "failed to get document %q", id)
	}
	if out.Item == nil {
		w.WriteHeader(http.StatusNotFound)
		return json.NewEncoder(w).Encode(map[string]string{"error": "document not found"})
	}

	var record docevents.DocumentRecord
	if err := attributevalue.UnmarshalMap(out.Item, &record); err != nil {
		return errors.Wrapf(err, "failed to unmarshal document %q", id)
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(record)
}

// ListDocuments returns documents in a given status, newest first.
func (h *Handlers) ListDocuments(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	env := dflwa.Env[Env](ctx)
	client := dflwa.AWS[dynamodb.Client](ctx)

	status := r.URL.Query().Get("status")
	if status == "" {
		status = docevents.StatusCompleted
	}

	out, err := client.Query(ctx, &dynamodb.QueryInput{
		TableName:              aws.String(env.TableName),
		IndexName:              aws.String("gsi1"),
		KeyConditionExpression: aws.String("gsi1pk = :pk"),
		ExpressionAttributeValues: map[string]ddbtypes.AttributeValue{
			":pk": &ddbtypes.AttributeValueMemberS{Value: "status#" + status},
		},
		ScanIndexForward: aws.Bool(false),
		Limit:            aws.Int32(listLimit),
	})
	if err != nil {
		return errors.Wrapf(err, "failed to list documents in status %q", status)
	}

	records := make([]docevents.DocumentRecord, 0, len(out.Items))
	if err := attributevalue.UnmarshalListOfMaps(out.Items, &records); err != nil {
		return errors.Wrap(err, "failed to unmarshal document list")
	}

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(map[string]any{
		"status":    status,
		"documents": records,
	})
}

// Authorize handles the gateway's TOKEN authorizer. The LWA pass-through
// POSTs the raw authorizer event, which only carries type, authorizationToken
// and methodArn.
func (h *Handlers) Authorize(ctx context.Context, w bhttp.ResponseWriter, r *http.Request) error {
	log := dflwa.Log(ctx)
	env := dflwa.Env[Env](ctx)

	var req events.APIGatewayCustomAuthorizerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		return errors.Wrap(err, "failed to decode authorizer event")
	}

	effect := "Allow"
	if env.APIToken != "" && req.AuthorizationToken != env.APIToken {
		effect = "Deny"
	}
	log.Info("authorized request",
		zap.String("method_arn", req.MethodArn),
		zap.String("effect", effect))

	w.Header().Set("Content-Type", "application/json")
	return json.NewEncoder(w).Encode(events.APIGatewayCustomAuthorizerResponse{
		PrincipalID: "user",
		PolicyDocument: events.APIGatewayCustomAuthorizerPolicy{
			Version: "2012-10-17",
			Statement: []events.IAMPolicyStatement{{
				Action:   []string{"execute-api:Invoke"},
				Effect:   effect,
				Resource: []string{"*"},
			}},
		},
	})
}
