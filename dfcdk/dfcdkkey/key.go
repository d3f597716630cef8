// Package dfcdkkey provides a reusable KMS key construct for encrypting
// pipeline data at rest (buckets, queues, tables).
//
// The key is created once per deployment with rotation enabled and an alias
// derived from the qualifier and deployment identifier. Its ARN is stored in
// SSM Parameter Store so other stacks can reference it without cross-stack
// dependencies.
package dfcdkkey

import (
	"strings"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/aws-cdk-go/awscdk/v2/awsiam"
	"github.com/aws/aws-cdk-go/awscdk/v2/awskms"
	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkparams"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

const paramsNamespace = "key"

// Key provides access to a KMS key shared by the deployment's data resources.
type Key interface {
	// Key returns the underlying KMS key.
	Key() awskms.IKey

	// GrantEncryptDecrypt grants encrypt and decrypt permissions on the key.
	GrantEncryptDecrypt(grantee awsiam.IGrantable)
}

// Props configures the Key construct.
type Props struct {
	// Identifier distinguishes this key from others in the same deployment.
	// Defaults to "data".
	Identifier *string
}

type key struct {
	key awskms.IKey
}

// New creates a Key construct with rotation enabled.
//
// The alias is "{qualifier}-{deployment}-{identifier}-key" and the key ARN is
// stored under /{qualifier}/key/{deployment}/{identifier}/key-arn.
func New(scope constructs.Construct, props Props) Key {
	identifier := "data"
	if props.Identifier != nil && *props.Identifier != "" {
		identifier = *props.Identifier
	}

	constructID := "Key" + dfcdkutil.ResourceName(scope, identifier, dfcdkutil.CasingCamel)
	scope = constructs.NewConstruct(scope, jsii.String(constructID))
	con := &key{}

	aliasName := dfcdkutil.ResourceName(scope, identifier+"-key", dfcdkutil.CasingKebab)

	con.key = awskms.NewKey(scope, jsii.String("Key"), &awskms.KeyProps{
		Alias:             jsii.String(aliasName),
		EnableKeyRotation: jsii.Bool(true),
		RemovalPolicy:     awscdk.RemovalPolicy_DESTROY,
		PendingWindow:     awscdk.Duration_Days(jsii.Number(7)),
	})

	paramName := paramName(scope, identifier)
	dfcdkparams.Store(scope, "KeyArnParam", paramsNamespace, paramName, con.key.KeyArn())

	return con
}

// LookupKey retrieves the key from SSM Parameter Store.
// Use this to get a key reference without creating cross-stack dependencies.
func LookupKey(scope constructs.Construct, identifier *string) awskms.IKey {
	ident := "data"
	if identifier != nil && *identifier != "" {
		ident = *identifier
	}

	keyArn := dfcdkparams.LookupLocal(scope, paramsNamespace, paramName(scope, ident))
	return awskms.Key_FromKeyArn(scope, jsii.String("LookupKey"+ident), keyArn)
}

func paramName(scope constructs.Construct, identifier string) string {
	deploymentIdent := strings.ToLower(dfcdkutil.DeploymentIdent(scope))
	if deploymentIdent == "" {
		return identifier + "/key-arn"
	}
	return deploymentIdent + "/" + identifier + "/key-arn"
}

func (k *key) Key() awskms.IKey {
	return k.key
}

func (k *key) GrantEncryptDecrypt(grantee awsiam.IGrantable) {
	k.key.GrantEncryptDecrypt(grantee)
}
