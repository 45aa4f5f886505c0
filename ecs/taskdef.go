package ecs

import (
	"strconv"

	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws"
	awsecs "github.com/pulumi/pulumi-aws/sdk/v6/go/aws/ecs"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

const javaOpts = "-Xmx2048m -Xms256m -XX:+HeapDumpOnOutOfMemoryError"

// CreateTaskDefinition declares the Fargate task. The JDBC URL is built
// from the database's deferred endpoint, and the raw secret value goes into
// the container environment: a deliberate plaintext injection at deploy
// time. Encryption at rest for the credential is the secret store's job.
func (e *Ecs) CreateTaskDefinition() error {
	region, err := aws.GetRegion(e.ctx, &aws.GetRegionArgs{})
	if err != nil {
		return err
	}

	containerDefs := pulumi.JSONMarshal([]interface{}{
		map[string]interface{}{
			"name":      containerName,
			"image":     e.cfg.Service.Image,
			"cpu":       e.cfg.Service.Cpu,
			"memory":    e.cfg.Service.Memory,
			"essential": true,
			"portMappings": []interface{}{
				map[string]interface{}{
					"containerPort": e.cfg.Service.ContainerPort,
					"protocol":      "tcp",
				},
			},
			"environment": []interface{}{
				envVar("SONAR_JDBC_URL", e.db.ConnectionURL()),
				envVar("SONAR_JDBC_USERNAME", pulumi.String(e.cfg.Database.Username)),
				envVar("SONAR_JDBC_PASSWORD", e.db.Password.Result),
				envVar("SONAR_WEB_JAVAOPTS", pulumi.String(javaOpts)),
				envVar("SONAR_SEARCH_JAVAOPTS", pulumi.String(javaOpts)),
			},
			"logConfiguration": map[string]interface{}{
				"logDriver": "awslogs",
				"options": map[string]interface{}{
					"awslogs-group":         e.LogGroup.Name,
					"awslogs-region":        region.Name,
					"awslogs-stream-prefix": containerName,
				},
			},
		},
	})

	task, err := awsecs.NewTaskDefinition(e.ctx, e.ctx.Stack()+"-task", &awsecs.TaskDefinitionArgs{
		Family:                  pulumi.String(e.ctx.Stack() + "-" + containerName),
		Cpu:                     pulumi.String(strconv.Itoa(e.cfg.Service.Cpu)),
		Memory:                  pulumi.String(strconv.Itoa(e.cfg.Service.Memory)),
		NetworkMode:             pulumi.String("awsvpc"),
		RequiresCompatibilities: pulumi.StringArray{pulumi.String("FARGATE")},
		ExecutionRoleArn:        e.roles.ExecutionRole.Arn,
		TaskRoleArn:             e.roles.TaskRole.Arn,
		ContainerDefinitions:    containerDefs,
	}, pulumi.Parent(e.Cluster))
	if err != nil {
		return err
	}

	e.TaskDefinition = task

	return nil
}

func envVar(name string, value pulumi.StringInput) map[string]interface{} {
	return map[string]interface{}{
		"name":  name,
		"value": value,
	}
}
