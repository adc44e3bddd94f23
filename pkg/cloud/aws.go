package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"

	errUtils "github.com/cloudposse/runtime-init/errors"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/retry"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

const (
	// awsIdentityDocumentPath is read below /latest/dynamic/, i.e.
	// /latest/dynamic/instance-identity/document.
	awsIdentityDocumentPath = "instance-identity/document"

	awsMacsPath = "network/interfaces/macs/"

	// awsDefaultVersionStage is the Secrets Manager stage of the current version.
	awsDefaultVersionStage = "AWSCURRENT"

	awsRoleSessionName = "runtime-init"
)

// awsComputeFields maps portable compute field names onto IMDS meta-data paths.
var awsComputeFields = map[string]string{
	"name": "hostname",
	"id":   "instance-id",
}

// IMDSClient is the subset of the EC2 instance metadata client we use.
type IMDSClient interface {
	GetDynamicData(ctx context.Context, params *imds.GetDynamicDataInput, optFns ...func(*imds.Options)) (*imds.GetDynamicDataOutput, error)
	GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error)
}

// SecretsManagerClient allows us to mock the AWS Secrets Manager client.
type SecretsManagerClient interface {
	GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error)
}

// SSMClient allows us to mock the AWS SSM Parameter Store client.
type SSMClient interface {
	GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error)
}

// STSClient allows us to mock the AWS STS client.
type STSClient interface {
	AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error)
}

var (
	_ IMDSClient           = (*imds.Client)(nil)
	_ SecretsManagerClient = (*secretsmanager.Client)(nil)
	_ SSMClient            = (*ssm.Client)(nil)
	_ STSClient            = (*sts.Client)(nil)
	_ CloudClient          = (*AWSCloudClient)(nil)
)

// AWSCloudClient resolves secrets from Secrets Manager or SSM Parameter Store and
// metadata from EC2 IMDS.
type AWSCloudClient struct {
	baseClient

	settings    schema.AWSSettings
	retryConfig schema.RetryConfig

	metadata       IMDSClient
	secretsManager SecretsManagerClient
	ssm            SSMClient

	loadConfig              func(ctx context.Context, region string) (aws.Config, error)
	newSTSClient            func(cfg aws.Config) STSClient
	newSecretsManagerClient func(cfg aws.Config) SecretsManagerClient
	newSSMClient            func(cfg aws.Config) SSMClient
}

// NewAWSCloudClient creates an uninitialized AWS client.
func NewAWSCloudClient(settings *schema.Settings) CloudClient {
	s := settingsOrDefault(settings)

	var imdsOpts imds.Options
	if s.AWS.MetadataEndpoint != "" {
		imdsOpts.Endpoint = s.AWS.MetadataEndpoint
	}

	return &AWSCloudClient{
		baseClient:  baseClient{environment: schema.EnvironmentAWS},
		settings:    s.AWS,
		retryConfig: s.Retry,
		metadata:    imds.New(imdsOpts),
		loadConfig: func(ctx context.Context, region string) (aws.Config, error) {
			return config.LoadDefaultConfig(ctx, config.WithRegion(region))
		},
		newSTSClient: func(cfg aws.Config) STSClient {
			return sts.NewFromConfig(cfg)
		},
		newSecretsManagerClient: func(cfg aws.Config) SecretsManagerClient {
			return secretsmanager.NewFromConfig(cfg)
		},
		newSSMClient: func(cfg aws.Config) SSMClient {
			return ssm.NewFromConfig(cfg)
		},
	}
}

// Init reads the instance identity document, then opens the secrets sessions in
// the discovered region.
func (c *AWSCloudClient) Init(ctx context.Context) error {
	var identity *InstanceIdentity
	err := retry.Do(ctx, &c.retryConfig, func() error {
		var err error
		identity, err = c.getInstanceIdentityDoc(ctx)
		return err
	})
	if err != nil {
		return errUtils.MarkMetadataUnavailable(err)
	}
	c.setIdentity(identity)

	log.Debug("Discovered AWS instance identity", "region", c.region, "instance_id", c.instanceID)

	if c.secretsManager != nil && c.ssm != nil {
		return nil
	}

	awsConfig, err := c.loadConfig(ctx, c.region)
	if err != nil {
		return fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrLoadAWSConfig, err)
	}

	if c.settings.RoleArn != "" {
		assumed, err := c.assumeRole(ctx, awsConfig, c.settings.RoleArn)
		if err != nil {
			return err
		}
		awsConfig = assumed
	}

	if c.secretsManager == nil {
		c.secretsManager = c.newSecretsManagerClient(awsConfig)
	}
	if c.ssm == nil {
		c.ssm = c.newSSMClient(awsConfig)
	}

	return nil
}

// getInstanceIdentityDoc fetches the identity document. Transport errors are
// returned exactly as the metadata client produced them.
func (c *AWSCloudClient) getInstanceIdentityDoc(ctx context.Context) (*InstanceIdentity, error) {
	output, err := c.metadata.GetDynamicData(ctx, &imds.GetDynamicDataInput{Path: awsIdentityDocumentPath})
	if err != nil {
		return nil, err
	}
	defer output.Content.Close()

	body, err := io.ReadAll(output.Content)
	if err != nil {
		return nil, err
	}

	var identity InstanceIdentity
	if err := json.Unmarshal(body, &identity); err != nil {
		return nil, fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrParseIdentity, err)
	}
	if err := validateIdentity(&identity); err != nil {
		return nil, err
	}

	return &identity, nil
}

// assumeRole assumes roleArn and returns a config using the temporary credentials.
func (c *AWSCloudClient) assumeRole(ctx context.Context, awsConfig aws.Config, roleArn string) (aws.Config, error) {
	result, err := c.newSTSClient(awsConfig).AssumeRole(ctx, &sts.AssumeRoleInput{
		RoleArn:         aws.String(roleArn),
		RoleSessionName: aws.String(awsRoleSessionName),
	})
	if err != nil {
		return aws.Config{}, errUtils.MarkBackend(fmt.Errorf(errUtils.ErrWrapWithIDFormat, errUtils.ErrAssumeRole, roleArn, err))
	}

	cfg := awsConfig.Copy()
	cfg.Credentials = credentials.NewStaticCredentialsProvider(
		aws.ToString(result.Credentials.AccessKeyId),
		aws.ToString(result.Credentials.SecretAccessKey),
		aws.ToString(result.Credentials.SessionToken),
	)
	return cfg, nil
}

// GetSecret reads secretID from Secrets Manager, or from Parameter Store when the
// backend is ParameterStore.
func (c *AWSCloudClient) GetSecret(ctx context.Context, secretID string, opts *SecretOptions) (string, error) {
	if err := validateSecretID(secretID); err != nil {
		return "", err
	}
	o := secretOptions(opts)

	switch o.Backend {
	case "", schema.SecretBackendSecretsManager:
		return c.getSecretValue(ctx, secretID, o.Version)
	case schema.SecretBackendParameterStore:
		return c.getParameterValue(ctx, secretID, o.Version)
	default:
		return "", errUtils.Build(errUtils.Validation(errUtils.ErrUnknownSecretBackend)).
			WithHintf("AWS secret backends are %s and %s, got %q", schema.SecretBackendSecretsManager, schema.SecretBackendParameterStore, o.Backend).
			Err()
	}
}

func (c *AWSCloudClient) getSecretValue(ctx context.Context, secretID, version string) (string, error) {
	if c.secretsManager == nil {
		return "", errUtils.ErrNotInitialized
	}

	input := &secretsmanager.GetSecretValueInput{SecretId: aws.String(secretID)}
	switch {
	case version == "":
		input.VersionStage = aws.String(awsDefaultVersionStage)
	case isVersionID(version):
		input.VersionId = aws.String(version)
	default:
		input.VersionStage = aws.String(version)
	}

	log.Debug("Getting secret from AWS Secrets Manager", "secret_id", secretID, "version", version)

	output, err := c.secretsManager.GetSecretValue(ctx, input)
	if err != nil {
		return "", errUtils.MarkBackend(errors.Wrapf(err, "failed to get secret %s", secretID))
	}
	if output == nil || output.SecretString == nil {
		return "", nil
	}

	return *output.SecretString, nil
}

func (c *AWSCloudClient) getParameterValue(ctx context.Context, name, version string) (string, error) {
	if c.ssm == nil {
		return "", errUtils.ErrNotInitialized
	}

	if version != "" {
		name = name + ":" + version
	}

	log.Debug("Getting parameter from AWS SSM Parameter Store", "name", name)

	output, err := c.ssm.GetParameter(ctx, &ssm.GetParameterInput{
		Name:           aws.String(name),
		WithDecryption: aws.Bool(true),
	})
	if err != nil {
		return "", errUtils.MarkBackend(errors.Wrapf(err, "failed to get parameter %s", name))
	}
	if output == nil || output.Parameter == nil {
		return "", nil
	}

	return aws.ToString(output.Parameter.Value), nil
}

// GetMetadata reads an IMDS attribute. Missing attributes and interfaces resolve to "".
func (c *AWSCloudClient) GetMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error) {
	if err := validateMetadataProvider(provider); err != nil {
		return "", err
	}

	if provider.Type == schema.MetadataTypeCompute {
		path := provider.Field
		if alias, ok := awsComputeFields[path]; ok {
			path = alias
		}
		value, err := c.readMetadata(ctx, path)
		return firstLine(value), err
	}

	return c.getNetworkMetadata(ctx, provider)
}

func (c *AWSCloudClient) getNetworkMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error) {
	switch provider.Field {
	case schema.MetadataFieldIPv4, schema.MetadataFieldIPv6, schema.MetadataFieldMAC:
	default:
		return "", unknownNetworkField(provider)
	}

	mac, err := c.macForDevice(ctx, provider.Index)
	if err != nil || mac == "" {
		return "", err
	}

	base := awsMacsPath + mac + "/"
	switch provider.Field {
	case schema.MetadataFieldMAC:
		return mac, nil
	case schema.MetadataFieldIPv4:
		return c.addressWithPrefix(ctx, base+"local-ipv4s", base+"subnet-ipv4-cidr-block")
	default:
		return c.addressWithPrefix(ctx, base+"ipv6s", base+"subnet-ipv6-cidr-blocks")
	}
}

// macForDevice returns the MAC of the interface whose device-number equals index.
func (c *AWSCloudClient) macForDevice(ctx context.Context, index int) (string, error) {
	listing, err := c.readMetadata(ctx, awsMacsPath)
	if err != nil {
		return "", err
	}

	for _, entry := range strings.Fields(listing) {
		mac := strings.TrimSuffix(entry, "/")
		deviceNumber, err := c.readMetadata(ctx, awsMacsPath+mac+"/device-number")
		if err != nil {
			return "", err
		}
		if strings.TrimSpace(deviceNumber) == strconv.Itoa(index) {
			return mac, nil
		}
	}

	return "", nil
}

func (c *AWSCloudClient) addressWithPrefix(ctx context.Context, addressPath, blockPath string) (string, error) {
	address, err := c.readMetadata(ctx, addressPath)
	if err != nil || address == "" {
		return "", err
	}
	block, err := c.readMetadata(ctx, blockPath)
	if err != nil {
		return "", err
	}
	return withPrefix(address, block), nil
}

// readMetadata reads a path below /latest/meta-data/. A 404 resolves to "".
func (c *AWSCloudClient) readMetadata(ctx context.Context, path string) (string, error) {
	output, err := c.metadata.GetMetadata(ctx, &imds.GetMetadataInput{Path: path})
	if err != nil {
		if isHTTPNotFound(err) {
			log.Debug("AWS metadata attribute not found", "path", path)
			return "", nil
		}
		return "", errUtils.MarkMetadataUnavailable(err)
	}
	defer output.Content.Close()

	body, err := io.ReadAll(output.Content)
	if err != nil {
		return "", errUtils.MarkMetadataUnavailable(err)
	}

	return string(body), nil
}

// isVersionID reports whether version is a Secrets Manager version id rather than a stage label.
func isVersionID(version string) bool {
	return len(version) == 36 && uuid.Validate(version) == nil
}

func isHTTPNotFound(err error) bool {
	var respErr *smithyhttp.ResponseError
	return errors.As(err, &respErr) && respErr.HTTPStatusCode() == http.StatusNotFound
}
