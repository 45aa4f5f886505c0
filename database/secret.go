package database

import (
	"github.com/pulumi/pulumi-aws/sdk/v6/go/aws/secretsmanager"
	"github.com/pulumi/pulumi-random/sdk/v4/go/random"
	"github.com/pulumi/pulumi/sdk/v3/go/pulumi"
)

// CreateSecret generates the master credential pair once. Both the database
// binding and the container environment reference this secret; nothing else
// may generate a second one. The password only ever exists as a secret
// output, it is not exported and must not be logged.
func (d *Database) CreateSecret() error {
	// No special characters: the value is spliced into a JDBC URL env var.
	password, err := random.NewRandomPassword(d.ctx, d.ctx.Stack()+"-db-password", &random.RandomPasswordArgs{
		Length:  pulumi.Int(32),
		Special: pulumi.Bool(false),
	})
	if err != nil {
		return err
	}

	secret, err := secretsmanager.NewSecret(d.ctx, d.ctx.Stack()+"-db-secret", &secretsmanager.SecretArgs{
		Description: pulumi.String("Master credentials for the " + d.cfg.Database.Name + " database"),
	})
	if err != nil {
		return err
	}

	_, err = secretsmanager.NewSecretVersion(d.ctx, d.ctx.Stack()+"-db-secret-value", &secretsmanager.SecretVersionArgs{
		SecretId: secret.ID(),
		SecretString: pulumi.JSONMarshal(map[string]interface{}{
			"username": d.cfg.Database.Username,
			"password": password.Result,
		}),
	}, pulumi.Parent(secret))
	if err != nil {
		return err
	}

	d.Password = password
	d.Secret = secret

	return nil
}
