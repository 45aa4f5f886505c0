package ecs

import (
	"github.com/devtools-infra/sonarqube-aws/config"
	"github.com/devtools-infra/sonarqube-aws/database"
	"github.com/devtools-infra/sonarqube-aws/iam"
	"github.com/devtools-infra/sonarqube-aws/vpc"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/cloudwatch"
	awsecs "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/lb"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const containerName = "sonarqube"

// Ecs declares the compute side: cluster, log group, task definition, and
// the load-balanced service on the private tier.
type Ecs struct {
	ctx   *pulumi.Context
	cfg   *config.DeploymentConfig
	net   *vpc.Vpc
	db    *database.Database
	roles *iam.Iam

	Cluster        *awsecs.Cluster
	LogGroup       *cloudwatch.LogGroup
	TaskDefinition *awsecs.TaskDefinition
	TargetGroup    *lb.TargetGroup
	Service        *awsecs.Service
}

func NewEcs(ctx *pulumi.Context, cfg *config.DeploymentConfig, net *vpc.Vpc, db *database.Database, roles *iam.Iam) *Ecs {
	return &Ecs{
		ctx:   ctx,
		cfg:   cfg,
		net:   net,
		db:    db,
		roles: roles,
	}
}

// CreateCluster declares the cluster and its log group. The cluster itself
// holds no state and no network binding; subnets and security groups attach
// to the service.
func (e *Ecs) CreateCluster() error {
	cluster, err := awsecs.NewCluster(e.ctx, e.ctx.Stack()+"-cluster", &awsecs.ClusterArgs{
		Settings: awsecs.ClusterSettingArray{
			awsecs.ClusterSettingArgs{
				Name:  pulumi.String("containerInsights"),
				Value: pulumi.String("enabled"),
			},
		},
	})
	if err != nil {
		return err
	}

	logGroup, err := cloudwatch.NewLogGroup(e.ctx, e.ctx.Stack()+"-logs", &cloudwatch.LogGroupArgs{
		Name:            pulumi.String("/ecs/" + containerName),
		RetentionInDays: pulumi.Int(e.cfg.Service.LogRetentionDays),
	}, pulumi.Parent(cluster))
	if err != nil {
		return err
	}

	e.Cluster = cluster
	e.LogGroup = logGroup

	e.ctx.Export("cluster-name", cluster.Name)

	return nil
}
