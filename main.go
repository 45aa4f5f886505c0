package main

import (
	"github.com/devtools-infra/sonarqube-aws/config"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

func main() {
	pulumi.Run(func(ctx *pulumi.Context) error {
		cfg, err := config.Load(ctx)
		if err != nil {
			return err
		}
		return Deploy(ctx, cfg)
	})
}
