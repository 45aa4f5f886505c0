package iam

import (
	"github.com/devtools-infra/sonarqube-aws/config"

	awsiam "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/iam"
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const (
	ecsTasksAssumeRolePolicy = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Action": "sts:AssumeRole",
      "Effect": "Allow",
      "Principal": {
        "Service": "ecs-tasks.amazonaws.com"
      }
    }
  ]
}`

	secretReadPolicyTemplate = `{
  "Version": "2012-10-17",
  "Statement": [
    {
      "Effect": "Allow",
      "Action": [
        "secretsmanager:GetSecretValue",
        "secretsmanager:DescribeSecret"
      ],
      "Resource": "%s"
    }
  ]
}`

	executionRolePolicyArn = "arn:aws:iam::aws:policy/service-role/AmazonECSTaskExecutionRolePolicy"
)

// Iam declares the two task identities: the execution role the agent uses
// to pull the image and ship logs, and the task role the container itself
// runs as.
type Iam struct {
	ctx *pulumi.Context
	cfg *config.DeploymentConfig

	ExecutionRole *awsiam.Role
	TaskRole      *awsiam.Role
}

func NewIam(ctx *pulumi.Context, cfg *config.DeploymentConfig) *Iam {
	return &Iam{
		ctx: ctx,
		cfg: cfg,
	}
}

func (i *Iam) CreateTaskRoles() error {
	execRole, err := awsiam.NewRole(i.ctx, i.ctx.Stack()+"-task-exec-role", &awsiam.RoleArgs{
		Name:             pulumi.String(i.ctx.Stack() + "-task-exec-role"),
		AssumeRolePolicy: pulumi.String(ecsTasksAssumeRolePolicy),
	})
	if err != nil {
		return err
	}

	_, err = awsiam.NewRolePolicyAttachment(i.ctx, i.ctx.Stack()+"-task-exec-policy", &awsiam.RolePolicyAttachmentArgs{
		Role:      execRole.Name,
		PolicyArn: pulumi.String(executionRolePolicyArn),
	}, pulumi.Parent(execRole))
	if err != nil {
		return err
	}

	taskRole, err := awsiam.NewRole(i.ctx, i.ctx.Stack()+"-task-role", &awsiam.RoleArgs{
		Name:             pulumi.String(i.ctx.Stack() + "-task-role"),
		AssumeRolePolicy: pulumi.String(ecsTasksAssumeRolePolicy),
	})
	if err != nil {
		return err
	}

	i.ExecutionRole = execRole
	i.TaskRole = taskRole

	i.ctx.Export("task-role-arn", taskRole.Arn)

	return nil
}

// GrantSecretRead gives the task role read access to exactly the given
// secret. The grant references the secret by ARN; it never copies the value.
func (i *Iam) GrantSecretRead(secret *secretsmanager.Secret) error {
	_, err := awsiam.NewRolePolicy(i.ctx, i.ctx.Stack()+"-task-secret-read", &awsiam.RolePolicyArgs{
		Role:   i.TaskRole.Name,
		Policy: pulumi.Sprintf(secretReadPolicyTemplate, secret.Arn),
	}, pulumi.Parent(i.TaskRole))
	if err != nil {
		return err
	}

	return nil
}
