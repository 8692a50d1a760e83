// Package mainconfig builds the AWS clients shared by every binary.
package mainconfig

import (
	"context"
	"fmt"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/bedrockruntime"
	"github.com/aws/aws-sdk-go-v2/service/dynamodb"

	appconfig "github.com/wolfman30/workshop-concierge/internal/config"
)

// LoadAWSConfig resolves region and credentials. Static keys win over the
// default chain when both halves are set.
func LoadAWSConfig(ctx context.Context, cfg *appconfig.Config) (aws.Config, error) {
	opts := []func(*config.LoadOptions) error{config.WithRegion(cfg.AWSRegion)}
	if key, secret := strings.TrimSpace(cfg.AWSAccessKeyID), strings.TrimSpace(cfg.AWSSecretAccessKey); key != "" && secret != "" {
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(key, secret, ""),
		))
	}
	awsCfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("mainconfig: load aws config: %w", err)
	}
	return awsCfg, nil
}

// NewDynamoDBClient honours AWS_ENDPOINT_OVERRIDE (LocalStack, dynamodb-local).
func NewDynamoDBClient(awsCfg aws.Config, cfg *appconfig.Config) *dynamodb.Client {
	return dynamodb.NewFromConfig(awsCfg, func(o *dynamodb.Options) {
		if ep := endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
		}
	})
}

func NewBedrockClient(awsCfg aws.Config, cfg *appconfig.Config) *bedrockruntime.Client {
	return bedrockruntime.NewFromConfig(awsCfg, func(o *bedrockruntime.Options) {
		if ep := endpoint(cfg); ep != nil {
			o.BaseEndpoint = ep
		}
	})
}

func endpoint(cfg *appconfig.Config) *string {
	ep := strings.TrimSpace(cfg.AWSEndpointOverride)
	if ep == "" {
		return nil
	}
	return aws.String(strings.TrimSuffix(ep, "/"))
}
