package main

import (
	"github.com/devtools-infra/sonarqube-aws/config"
	"github.com/devtools-infra/sonarqube-aws/database"
	"github.com/devtools-infra/sonarqube-aws/ecs"
	"github.com/devtools-infra/sonarqube-aws/iam"
	"github.com/devtools-infra/sonarqube-aws/vpc"

	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// Deploy declares the whole topology in dependency order: network, shared
// credential secret, database, execution identities, then the load-balanced
// service. Resource ordering beyond these explicit references is the
// engine's job.
func Deploy(ctx *pulumi.Context, cfg *config.DeploymentConfig) error {
	net := vpc.NewVpc(ctx, cfg)
	if err := net.CreateVpc(); err != nil {
		return err
	}
	if err := net.CreateSubnets(); err != nil {
		return err
	}

	db := database.NewDatabase(ctx, cfg, net)
	if err := db.CreateSecret(); err != nil {
		return err
	}
	if err := db.CreateSecurityGroup(); err != nil {
		return err
	}
	if err := db.CreateInstance(); err != nil {
		return err
	}

	roles := iam.NewIam(ctx, cfg)
	if err := roles.CreateTaskRoles(); err != nil {
		return err
	}
	if err := roles.GrantSecretRead(db.Secret); err != nil {
		return err
	}

	svc := ecs.NewEcs(ctx, cfg, net, db, roles)
	if err := svc.CreateCluster(); err != nil {
		return err
	}
	if err := svc.CreateTaskDefinition(); err != nil {
		return err
	}
	if err := svc.CreateService(); err != nil {
		return err
	}

	return nil
}
