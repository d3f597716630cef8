// Package dfcdktable provides the document-tracking DynamoDB table construct
// for multi-region CDK deployments.
//
// The table records one item per document execution (status, classification,
// extracted entities) using a single-table design with partition key (pk),
// sort key (sk), and a global secondary index (gsi1) keyed by processing
// status for dashboard queries. In the primary region the construct creates a
// Global Table replicated to all secondary regions; secondary regions
// reference the replica via an SSM-stored name.
package dfcdktable

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsdynamodb"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkparams"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

const paramsNamespace = "table"

// Table provides access to the document-tracking DynamoDB table.
type Table interface {
	// Table returns the DynamoDB table.
	// In the primary region, this is the actual table.
	// In secondary regions, this is a reference to the replicated table.
	Table() awsdynamodb.ITableV2

	// GrantReadData grants read-only permissions to the table and its indexes.
	GrantReadData(grantee awsiam.IGrantable)

	// GrantReadWriteData grants read/write permissions to the table and its indexes.
	GrantReadWriteData(grantee awsiam.IGrantable)
}

// Props configures the Table construct.
type Props struct {
	// Identifier distinguishes this table from others in the same deployment.
	// Used in resource names and SSM parameter paths. Defaults to "tracking".
	Identifier *string
	// Replicated creates replicas in all secondary regions when true.
	// Single-region deployments can leave this unset.
	Replicated *bool
}

type table struct {
	table awsdynamodb.ITableV2
}

// New creates a Table construct that manages the document-tracking table.
//
// In the primary region: Creates the table (optionally as a Global Table with
// replicas in all secondary regions) and stores the table name in SSM
// Parameter Store.
//
// In secondary regions: Looks up the table name from SSM and creates a
// reference to the replicated table.
func New(scope constructs.Construct, props Props) Table {
	identifier := "tracking"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}

	constructID := "Table" + dfcdkutil.ResourceName(scope, identifier, dfcdkutil.CasingCamel)
	scope = constructs.NewConstruct(scope, jsii.String(constructID))
	con := &table{}

	region := *awscdk.Stack_Of(scope).Region()
	tableName := dfcdkutil.ResourceName(scope, identifier+"-table", dfcdkutil.CasingKebab)
	deploymentIdent := strings.ToLower(dfcdkutil.DeploymentIdent(scope))
	paramName := deploymentIdent + "/" + identifier + "/table-name"

	if dfcdkutil.IsPrimaryRegion(scope, region) {
		var replicas *[]*awsdynamodb.ReplicaTableProps
		if props.Replicated != nil && *props.Replicated {
			cfg := dfcdkutil.ConfigFromScope(scope)
			r := buildReplicas(cfg.SecondaryRegions)
			replicas = &r
		}

		table := awsdynamodb.NewTableV2(scope, jsii.String("Table"), &awsdynamodb.TablePropsV2{
			TableName:        jsii.String(tableName),
			PartitionKey:     &awsdynamodb.Attribute{Name: jsii.String("pk"), Type: awsdynamodb.AttributeType_STRING},
			SortKey:          &awsdynamodb.Attribute{Name: jsii.String("sk"), Type: awsdynamodb.AttributeType_STRING},
			Billing:          awsdynamodb.Billing_OnDemand(nil),
			RemovalPolicy:    awscdk.RemovalPolicy_DESTROY,
			Replicas:         replicas,
			TimeToLiveAttribute: jsii.String("expiresAt"),
			PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
				PointInTimeRecoveryEnabled: jsii.Bool(true),
			},
			GlobalSecondaryIndexes: &[]*awsdynamodb.GlobalSecondaryIndexPropsV2{
				{
					// gsi1 indexes documents by processing status so the
					// status API can list in-flight and failed documents.
					IndexName:    jsii.String("gsi1"),
					PartitionKey: &awsdynamodb.Attribute{Name: jsii.String("gsi1pk"), Type: awsdynamodb.AttributeType_STRING},
					SortKey:      &awsdynamodb.Attribute{Name: jsii.String("gsi1sk"), Type: awsdynamodb.AttributeType_STRING},
				},
			},
		})
		con.table = table

		dfcdkparams.Store(scope, "TableNameParam", paramsNamespace, paramName, jsii.String(tableName))
	} else {
		tableNameLookup := dfcdkparams.Lookup(scope, "LookupTableName",
			paramsNamespace, paramName, identifier+"-table-name-lookup")

		con.table = awsdynamodb.TableV2_FromTableName(scope, jsii.String("Table"), tableNameLookup)
	}

	return con
}

// LookupTable retrieves the tracking table from SSM Parameter Store.
// Use this to get a table reference without creating cross-stack dependencies.
func LookupTable(scope constructs.Construct, identifier *string) awsdynamodb.ITableV2 {
	ident := "tracking"
	if identifier != nil && *identifier != "" {
		ident = *identifier
	}

	deploymentIdent := strings.ToLower(dfcdkutil.DeploymentIdent(scope))
	paramName := deploymentIdent + "/" + ident + "/table-name"
	tableName := dfcdkparams.LookupLocal(scope, paramsNamespace, paramName)

	return awsdynamodb.TableV2_FromTableName(scope, jsii.String("LookupTable"+ident), tableName)
}

func (t *table) Table() awsdynamodb.ITableV2 {
	return t.table
}

func (t *table) GrantReadData(grantee awsiam.IGrantable) {
	t.table.GrantReadData(grantee)
	t.grantIndexAccess(grantee)
}

func (t *table) GrantReadWriteData(grantee awsiam.IGrantable) {
	t.table.GrantReadWriteData(grantee)
	t.grantIndexAccess(grantee)
}

// grantIndexAccess adds read actions on the table's index ARNs, which the
// table-level grants do not cover.
func (t *table) grantIndexAccess(grantee awsiam.IGrantable) {
	indexArn := jsii.Sprintf("%s/index/*", *t.table.TableArn())
	awsiam.Grant_AddToPrincipal(&awsiam.GrantOnPrincipalOptions{
		Grantee:      grantee,
		ResourceArns: &[]*string{indexArn},
		Actions: &[]*string{
			jsii.String("dynamodb:Query"),
			jsii.String("dynamodb:Scan"),
			jsii.String("dynamodb:GetItem"),
			jsii.String("dynamodb:BatchGetItem"),
			jsii.String("dynamodb:ConditionCheckItem"),
		},
	})
}

func buildReplicas(secondaryRegions []string) []*awsdynamodb.ReplicaTableProps {
	replicas := make([]*awsdynamodb.ReplicaTableProps, 0, len(secondaryRegions))
	for _, region := range secondaryRegions {
		replicas = append(replicas, &awsdynamodb.ReplicaTableProps{
			Region: jsii.String(region),
			PointInTimeRecoverySpecification: &awsdynamodb.PointInTimeRecoverySpecification{
				PointInTimeRecoveryEnabled: jsii.Bool(true),
			},
		})
	}
	return replicas
}
