package dfcdkutil

import (
	"fmt"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/aws/jsii-runtime-go"
)

// deploymentIdentContextKey is the construct-tree context key holding the
// deployment identifier of the enclosing deployment stack.
const deploymentIdentContextKey = "__dfcdkutil_deployment_ident"

// StoreDeploymentIdent stores the deployment identifier in the given scope's
// context so constructs below it can retrieve it via DeploymentIdent.
// Normally called by the stack constructors; exposed for test harnesses.
func StoreDeploymentIdent(scope constructs.Construct, deploymentIdent string) {
	scope.Node().SetContext(jsii.String(deploymentIdentContextKey), deploymentIdent)
}

// DeploymentIdent returns the deployment identifier for the enclosing stack,
// or "" when the scope belongs to a shared (per-region) stack.
func DeploymentIdent(scope constructs.Construct) string {
	val := scope.Node().TryGetContext(jsii.String(deploymentIdentContextKey))
	if val == nil {
		return ""
	}
	ident, ok := val.(string)
	if !ok {
		panic(fmt.Sprintf("deployment identifier has unexpected type %T", val))
	}
	return ident
}
