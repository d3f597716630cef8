package main

import (
	"github.com/docuflowhq/docuflow/infra/cdk"

	"github.com/aws/aws-cdk-go/awscdk/v2"
	"github.com/aws/jsii-runtime-go"
	"github.com/docuflowhq/docuflow/dfcdk/dfcdkutil"
)

const projectPrefix = "df"

func main() {
	defer jsii.Close()
	app := awscdk.NewApp(nil)

	dfcdkutil.SetupApp(app, dfcdkutil.AppConfig{
		Prefix: projectPrefix + "-",
	},
		cdk.NewShared,
		cdk.NewDeployment,
	)

	app.Synth(nil)
}
