package dfcdkutil

import (
	"fmt"
	"strings"

	"github.com/aws/constructs-go/constructs/v10"
	"github.com/iancoleman/strcase"
)

// Casing specifies how to format a resource identifier string.
type Casing int

const (
	// CasingCamel formats as CamelCase (e.g., "DfStagDocPipeline").
	CasingCamel Casing = iota
	// CasingLowerCamel formats as lowerCamelCase (e.g., "dfStagDocPipeline").
	CasingLowerCamel
	// CasingSnake formats as snake_case (e.g., "df_stag_doc_pipeline").
	CasingSnake
	// CasingScreamingSnake formats as SCREAMING_SNAKE_CASE (e.g., "DF_STAG_DOC_PIPELINE").
	CasingScreamingSnake
	// CasingKebab formats as kebab-case (e.g., "df-stag-doc-pipeline").
	CasingKebab
	// CasingScreamingKebab formats as SCREAMING-KEBAB-CASE (e.g., "DF-STAG-DOC-PIPELINE").
	CasingScreamingKebab
)

// ResourceName generates a resource identifier prefixed with the stack's qualifier
// and deployment identifier. The label is a free-form string that the caller provides.
//
// The format is: "{qualifier}-{deploymentIdent}-{label}" converted to the specified casing.
// For shared stacks (no deployment identifier), the format is: "{qualifier}-{label}".
func ResourceName(scope constructs.Construct, label string, casing Casing) string {
	qualifier := Qualifier(scope)
	deploymentIdent := DeploymentIdent(scope)

	var base string
	if deploymentIdent != "" {
		base = fmt.Sprintf("%s-%s-%s", qualifier, deploymentIdent, label)
	} else {
		base = fmt.Sprintf("%s-%s", qualifier, label)
	}

	return applyCasing(base, casing)
}

// RegionalSubdomain returns the per-region subdomain for a deployment,
// e.g. "stag-euw1-api". Used for regional endpoints behind latency routing.
func RegionalSubdomain(deploymentIdent, region, subdomain string) string {
	return strings.ToLower(deploymentIdent) + "-" + RegionIdentLower(region) + "-" + subdomain
}

// GlobalSubdomain returns the region-independent subdomain for a deployment,
// e.g. "stag-api". Resolved via latency-based routing to the regional endpoints.
func GlobalSubdomain(deploymentIdent, subdomain string) string {
	return strings.ToLower(deploymentIdent) + "-" + subdomain
}

func applyCasing(s string, casing Casing) string {
	switch casing {
	case CasingCamel:
		return strcase.ToCamel(s)
	case CasingLowerCamel:
		return strcase.ToLowerCamel(s)
	case CasingSnake:
		return strcase.ToSnake(s)
	case CasingScreamingSnake:
		return strcase.ToScreamingSnake(s)
	case CasingKebab:
		return strcase.ToKebab(s)
	case CasingScreamingKebab:
		return strcase.ToScreamingKebab(s)
	default:
		return strcase.ToCamel(s)
	}
}
