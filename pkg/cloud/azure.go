package cloud

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"sync"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/cockroachdb/errors"

	errUtils "github.com/cloudposse/runtime-init/errors"
	phttp "github.com/cloudposse/runtime-init/pkg/http"
	log "github.com/cloudposse/runtime-init/pkg/logger"
	"github.com/cloudposse/runtime-init/pkg/retry"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

const (
	azureDefaultMetadataEndpoint = "http://169.254.169.254"
	azureDefaultAPIVersion       = "2021-02-01"
	azureInstancePath            = "/metadata/instance"
)

// azureComputeFields maps portable compute field names onto instance document keys.
var azureComputeFields = map[string]string{
	"id": "vmId",
}

// KeyVaultClient allows us to mock the Azure Key Vault client.
type KeyVaultClient interface {
	GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error)
}

var (
	_ KeyVaultClient = (*azsecrets.Client)(nil)
	_ CloudClient    = (*AzureCloudClient)(nil)
)

// azureInstanceDocument is the part of the IMDS instance document we read.
type azureInstanceDocument struct {
	Compute map[string]any `json:"compute"`
	Network struct {
		Interface []azureInterface `json:"interface"`
	} `json:"network"`
}

type azureInterface struct {
	IPv4       azureAddressFamily `json:"ipv4"`
	IPv6       azureAddressFamily `json:"ipv6"`
	MacAddress string             `json:"macAddress"`
}

type azureAddressFamily struct {
	IPAddress []struct {
		PrivateIPAddress string `json:"privateIpAddress"`
		PublicIPAddress  string `json:"publicIpAddress"`
	} `json:"ipAddress"`
	Subnet []struct {
		Address string `json:"address"`
		Prefix  string `json:"prefix"`
	} `json:"subnet"`
}

func (f azureAddressFamily) withPrefix() string {
	if len(f.IPAddress) == 0 {
		return ""
	}
	prefix := ""
	if len(f.Subnet) > 0 {
		prefix = f.Subnet[0].Prefix
	}
	return withPrefix(f.IPAddress[0].PrivateIPAddress, prefix)
}

// AzureCloudClient resolves secrets from Key Vault and metadata from Azure IMDS.
type AzureCloudClient struct {
	baseClient

	settings    schema.AzureSettings
	retryConfig schema.RetryConfig
	httpClient  phttp.Client

	newCredential    func() (azcore.TokenCredential, error)
	newSecretsClient func(vaultURL string, cred azcore.TokenCredential) (KeyVaultClient, error)

	mu            sync.Mutex
	credential    azcore.TokenCredential
	secretClients map[string]KeyVaultClient
}

// NewAzureCloudClient creates an uninitialized Azure client.
func NewAzureCloudClient(settings *schema.Settings) CloudClient {
	s := settingsOrDefault(settings)

	azureSettings := s.Azure
	if azureSettings.MetadataEndpoint == "" {
		azureSettings.MetadataEndpoint = azureDefaultMetadataEndpoint
	}
	if azureSettings.APIVersion == "" {
		azureSettings.APIVersion = azureDefaultAPIVersion
	}

	return &AzureCloudClient{
		baseClient:  baseClient{environment: schema.EnvironmentAzure},
		settings:    azureSettings,
		retryConfig: s.Retry,
		httpClient:  newAzureMetadataHTTPClient(azureSettings),
		newCredential: func() (azcore.TokenCredential, error) {
			return azidentity.NewDefaultAzureCredential(nil)
		},
		newSecretsClient: func(vaultURL string, cred azcore.TokenCredential) (KeyVaultClient, error) {
			return azsecrets.NewClient(vaultURL, cred, nil)
		},
		secretClients: make(map[string]KeyVaultClient),
	}
}

func newAzureMetadataHTTPClient(settings schema.AzureSettings) *phttp.DefaultClient {
	var opts []phttp.ClientOption
	if settings.MetadataTimeout > 0 {
		opts = append(opts, phttp.WithTimeout(settings.MetadataTimeout))
	}
	return phttp.NewDefaultClient(opts...)
}

// Init reads compute.location and compute.vmId from the instance document.
func (c *AzureCloudClient) Init(ctx context.Context) error {
	identity, err := c.getInstanceIdentityDoc(ctx)
	if err != nil {
		return errUtils.MarkMetadataUnavailable(err)
	}
	c.setIdentity(identity)

	log.Debug("Discovered Azure instance identity", "region", c.region, "instance_id", c.instanceID)
	return nil
}

func (c *AzureCloudClient) getInstanceIdentityDoc(ctx context.Context) (*InstanceIdentity, error) {
	doc, err := c.getInstanceDocument(ctx)
	if err != nil {
		return nil, err
	}

	identity := &InstanceIdentity{
		Region:     computeString(doc.Compute, "location"),
		InstanceID: computeString(doc.Compute, "vmId"),
	}
	if err := validateIdentity(identity); err != nil {
		return nil, err
	}
	return identity, nil
}

// getInstanceDocument fetches the IMDS instance document. Transport and status
// errors are returned unchanged.
func (c *AzureCloudClient) getInstanceDocument(ctx context.Context) (*azureInstanceDocument, error) {
	endpoint := fmt.Sprintf("%s%s?api-version=%s",
		strings.TrimSuffix(c.settings.MetadataEndpoint, "/"), azureInstancePath, url.QueryEscape(c.settings.APIVersion))

	var body []byte
	err := retry.WithPredicate(ctx, &c.retryConfig, func() error {
		var err error
		body, err = phttp.GetWithHeaders(ctx, endpoint, c.httpClient, map[string]string{"Metadata": "true"})
		return err
	}, retry.RetryUnlessNotFound)
	if err != nil {
		return nil, err
	}

	var doc azureInstanceDocument
	if err := json.Unmarshal(body, &doc); err != nil {
		return nil, fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrParseIdentity, err)
	}

	return &doc, nil
}

// GetSecret reads secretID from Key Vault. secretID is either a secret name, used
// with opts.VaultURL, or a full secret URL https://<vault>/secrets/<name>[/<version>].
func (c *AzureCloudClient) GetSecret(ctx context.Context, secretID string, opts *SecretOptions) (string, error) {
	if err := validateSecretID(secretID); err != nil {
		return "", err
	}
	o := secretOptions(opts)

	vaultURL, name, version := parseKeyVaultSecretID(secretID)
	if vaultURL == "" {
		vaultURL = o.VaultURL
	}
	if o.Version != "" {
		version = o.Version
	}
	if vaultURL == "" {
		return "", errUtils.Build(errUtils.Validation(errUtils.ErrVaultURLMissing)).
			WithHint("Set secretProvider.vaultUrl or use the full secret URL as secretId").
			WithContext("secret_id", secretID).
			Err()
	}

	client, err := c.secretsClient(vaultURL)
	if err != nil {
		return "", err
	}

	log.Debug("Getting secret from Azure Key Vault", "vault_url", vaultURL, "name", name, "version", version)

	resp, err := client.GetSecret(ctx, name, version, nil)
	if err != nil {
		wrapped := errUtils.MarkBackend(errors.Wrapf(err, "failed to get secret %s", name))
		var respErr *azcore.ResponseError
		if errors.As(err, &respErr) && respErr.StatusCode == http.StatusForbidden {
			return "", errUtils.Build(wrapped).
				WithHint("Grant the instance identity 'get' permission on secrets in this vault").
				Err()
		}
		return "", wrapped
	}
	if resp.Value == nil {
		return "", nil
	}

	return *resp.Value, nil
}

// secretsClient returns the cached Key Vault client for vaultURL, creating it and
// the shared credential on first use.
func (c *AzureCloudClient) secretsClient(vaultURL string) (KeyVaultClient, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.secretClients[vaultURL]; ok {
		return client, nil
	}

	if c.credential == nil {
		cred, err := c.newCredential()
		if err != nil {
			return nil, errUtils.MarkBackend(fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrCreateClient, err))
		}
		c.credential = cred
	}

	client, err := c.newSecretsClient(vaultURL, c.credential)
	if err != nil {
		return nil, errUtils.MarkBackend(fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrCreateClient, err))
	}
	c.secretClients[vaultURL] = client

	return client, nil
}

// parseKeyVaultSecretID splits a full Key Vault secret URL. A plain name is returned
// with empty vault URL and version.
func parseKeyVaultSecretID(secretID string) (vaultURL, name, version string) {
	if !strings.HasPrefix(secretID, "https://") {
		return "", secretID, ""
	}

	u, err := url.Parse(secretID)
	if err != nil {
		return "", secretID, ""
	}

	parts := strings.Split(strings.Trim(u.Path, "/"), "/")
	if len(parts) < 2 || parts[0] != "secrets" {
		return "", secretID, ""
	}

	vaultURL = u.Scheme + "://" + u.Host
	name = parts[1]
	if len(parts) > 2 {
		version = parts[2]
	}
	return vaultURL, name, version
}

// GetMetadata reads a compute attribute or a network interface address from the
// instance document.
func (c *AzureCloudClient) GetMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error) {
	if err := validateMetadataProvider(provider); err != nil {
		return "", err
	}

	doc, err := c.getInstanceDocument(ctx)
	if err != nil {
		if errors.Is(err, errUtils.ErrHTTPNotFound) {
			return "", nil
		}
		return "", errUtils.MarkMetadataUnavailable(err)
	}

	if provider.Type == schema.MetadataTypeCompute {
		field := provider.Field
		if alias, ok := azureComputeFields[field]; ok {
			field = alias
		}
		return computeString(doc.Compute, field), nil
	}

	if provider.Index < 0 || provider.Index >= len(doc.Network.Interface) {
		log.Debug("Azure network interface not found", "index", provider.Index)
		return "", nil
	}
	nic := doc.Network.Interface[provider.Index]

	switch provider.Field {
	case schema.MetadataFieldIPv4:
		return nic.IPv4.withPrefix(), nil
	case schema.MetadataFieldIPv6:
		return nic.IPv6.withPrefix(), nil
	case schema.MetadataFieldMAC:
		return nic.MacAddress, nil
	default:
		return "", unknownNetworkField(provider)
	}
}

// computeString returns a scalar compute attribute as a string; objects, lists and
// missing keys resolve to "".
func computeString(compute map[string]any, field string) string {
	switch v := compute[field].(type) {
	case string:
		return v
	case bool, float64:
		return fmt.Sprint(v)
	default:
		return ""
	}
}
