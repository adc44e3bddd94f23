package cloud

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"cloud.google.com/go/compute/metadata"
	secretmanager "cloud.google.com/go/secretmanager/apiv1"
	secretmanagerpb "cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/cockroachdb/errors"
	"github.com/googleapis/gax-go/v2"
	"google.golang.org/api/option"

	errUtils "github.com/cloudposse/runtime-init/errors"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/retry"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

const gcpLatestVersion = "latest"

// GCEMetadataClient is the subset of the GCE metadata client we use.
type GCEMetadataClient interface {
	ProjectIDWithContext(ctx context.Context) (string, error)
	InstanceIDWithContext(ctx context.Context) (string, error)
	ZoneWithContext(ctx context.Context) (string, error)
	GetWithContext(ctx context.Context, suffix string) (string, error)
}

// GSMClient is the subset of the Google Secret Manager client we use.
type GSMClient interface {
	AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error)
	Close() error
}

var (
	_ GCEMetadataClient = (*metadata.Client)(nil)
	_ GSMClient         = (*secretmanager.Client)(nil)
	_ CloudClient       = (*GCPCloudClient)(nil)
)

// GCPCloudClient resolves secrets from Secret Manager and metadata from the GCE
// metadata server.
type GCPCloudClient struct {
	baseClient

	settings    schema.GCPSettings
	retryConfig schema.RetryConfig
	projectID   string

	metadata     GCEMetadataClient
	newGSMClient func(ctx context.Context, opts ...option.ClientOption) (GSMClient, error)

	mu        sync.Mutex
	gsmClient GSMClient
}

// NewGCPCloudClient creates an uninitialized GCP client.
func NewGCPCloudClient(settings *schema.Settings) CloudClient {
	s := settingsOrDefault(settings)

	return &GCPCloudClient{
		baseClient:  baseClient{environment: schema.EnvironmentGCP},
		settings:    s.GCP,
		retryConfig: s.Retry,
		metadata:    metadata.NewClient(nil),
		newGSMClient: func(ctx context.Context, opts ...option.ClientOption) (GSMClient, error) {
			return secretmanager.NewClient(ctx, opts...)
		},
	}
}

// Init reads the project, instance id and zone from the metadata server. The
// region is the zone without its trailing letter, e.g. us-central1-a -> us-central1.
func (c *GCPCloudClient) Init(ctx context.Context) error {
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

	log.Debug("Discovered GCP instance identity", "project", c.projectID, "region", c.region, "instance_id", c.instanceID)
	return nil
}

func (c *GCPCloudClient) getInstanceIdentityDoc(ctx context.Context) (*InstanceIdentity, error) {
	projectID, err := c.metadata.ProjectIDWithContext(ctx)
	if err != nil {
		return nil, err
	}
	instanceID, err := c.metadata.InstanceIDWithContext(ctx)
	if err != nil {
		return nil, err
	}
	zone, err := c.metadata.ZoneWithContext(ctx)
	if err != nil {
		return nil, err
	}

	identity := &InstanceIdentity{Region: zoneToRegion(zone), InstanceID: instanceID}
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}

	c.projectID = projectID
	return identity, nil
}

// gcpResourcePathFields come back as projects/<n>/<kind>/<name>; only the name is kept.
var gcpResourcePathFields = map[string]struct{}{
	"zone":         {},
	"machine-type": {},
}

func lastPathSegment(s string) string {
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func zoneToRegion(zone string) string {
	zone = lastPathSegment(zone)
	if i := strings.LastIndex(zone, "-"); i > 0 {
		return zone[:i]
	}
	return zone
}

// GetSecret accesses a Secret Manager version. secretID is a secret name in the
// instance project or a full projects/<p>/secrets/<s>[/versions/<v>] resource name.
func (c *GCPCloudClient) GetSecret(ctx context.Context, secretID string, opts *SecretOptions) (string, error) {
	if err := validateSecretID(secretID); err != nil {
		return "", err
	}
	o := secretOptions(opts)

	name, err := c.secretVersionName(secretID, o.Version)
	if err != nil {
		return "", err
	}

	client, err := c.secretManager(ctx)
	if err != nil {
		return "", err
	}

	log.Debug("Accessing Google Secret Manager secret", "name", name)

	result, err := client.AccessSecretVersion(ctx, &secretmanagerpb.AccessSecretVersionRequest{Name: name})
	if err != nil {
		return "", errUtils.MarkBackend(errors.Wrapf(err, "failed to access secret version %s", name))
	}

	data := result.GetPayload().GetData()
	if data == nil {
		return "", nil
	}
	return string(data), nil
}

func (c *GCPCloudClient) secretVersionName(secretID, version string) (string, error) {
	if version == "" {
		version = gcpLatestVersion
	}

	if strings.HasPrefix(secretID, "projects/") {
		if strings.Contains(secretID, "/versions/") {
			return secretID, nil
		}
		return secretID + "/versions/" + version, nil
	}

	if c.projectID == "" {
		return "", errUtils.ErrNotInitialized
	}
	return fmt.Sprintf("projects/%s/secrets/%s/versions/%s", c.projectID, secretID, version), nil
}

func (c *GCPCloudClient) secretManager(ctx context.Context) (GSMClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gsmClient != nil {
		return c.gsmClient, nil
	}

	var clientOpts []option.ClientOption
	if c.settings.CredentialsFile != "" {
		clientOpts = append(clientOpts, option.WithCredentialsFile(c.settings.CredentialsFile))
	}

	client, err := c.newGSMClient(ctx, clientOpts...)
	if err != nil {
		return nil, errUtils.MarkBackend(fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrCreateClient, err))
	}
	c.gsmClient = client

	return client, nil
}

// Close releases the Secret Manager connection, if one was opened.
func (c *GCPCloudClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.gsmClient == nil {
		return nil
	}
	err := c.gsmClient.Close()
	c.gsmClient = nil
	return err
}

// GetMetadata reads instance/<field> for compute, or an attribute of
// instance/network-interfaces/<index>/ for network.
func (c *GCPCloudClient) GetMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error) {
	if err := validateMetadataProvider(provider); err != nil {
		return "", err
	}

	if provider.Type == schema.MetadataTypeCompute {
		value, err := c.readMetadata(ctx, "instance/"+provider.Field)
		if _, ok := gcpResourcePathFields[provider.Field]; ok {
			value = lastPathSegment(value)
		}
		return value, err
	}

	base := fmt.Sprintf("instance/network-interfaces/%d/", provider.Index)
	switch provider.Field {
	case schema.MetadataFieldIPv4:
		ip, err := c.readMetadata(ctx, base+"ip")
		if err != nil || ip == "" {
			return "", err
		}
		mask, err := c.readMetadata(ctx, base+"subnetmask")
		if err != nil {
			return "", err
		}
		return withPrefix(ip, mask), nil
	case schema.MetadataFieldIPv6:
		ip, err := c.readMetadata(ctx, base+"ipv6s")
		return firstLine(ip), err
	case schema.MetadataFieldMAC:
		return c.readMetadata(ctx, base+"mac")
	default:
		return "", unknownNetworkField(provider)
	}
}

// readMetadata reads a metadata suffix. Undefined attributes resolve to "".
func (c *GCPCloudClient) readMetadata(ctx context.Context, suffix string) (string, error) {
	value, err := c.metadata.GetWithContext(ctx, suffix)
	if err != nil {
		var notDefined metadata.NotDefinedError
		if errors.As(err, &notDefined) {
			log.Debug("GCP metadata attribute not defined", "suffix", suffix)
			return "", nil
		}
		return "", errUtils.MarkMetadataUnavailable(err)
	}
	return strings.TrimSpace(value), nil
}
