// Package cloud hides the differences between the AWS, Azure and GCP instance
// metadata services and secret stores behind the CloudClient interface.
package cloud

import (
	"context"
	"fmt"
	"net"
	"strconv"
	"strings"

	errUtils "github.com/cloudposse/runtime-init/errors"
	"github.com/cloudposse/runtime-init/pkg/schema"
)

// CloudClient is one session against the cloud environment the process runs in.
//
// Init must succeed before GetSecret or GetMetadata are called. Absence is never an
// error: a secret without payload or a metadata attribute that does not exist
// resolves to the empty string.
type CloudClient interface {
	// Environment returns aws, azure or gcp.
	Environment() string
	// Region returns the region discovered by Init, empty before.
	Region() string
	// Init discovers the instance identity and prepares backend sessions.
	Init(ctx context.Context) error
	// GetSecret returns the string payload of secretID.
	GetSecret(ctx context.Context, secretID string, opts *SecretOptions) (string, error)
	// GetMetadata returns one instance metadata attribute.
	GetMetadata(ctx context.Context, provider *schema.MetadataProvider) (string, error)
}

// SecretOptions tune a GetSecret call.
type SecretOptions struct {
	// Version selects a secret version or stage. Empty means the backend's current marker.
	Version string
	// Backend is the secretProvider type, e.g. SecretsManager or ParameterStore.
	Backend string
	// VaultURL is the Azure Key Vault holding the secret.
	VaultURL string
}

// InstanceIdentity is the normalized identity document of the running instance.
type InstanceIdentity struct {
	Region     string `json:"region"`
	InstanceID string `json:"instanceId"`
}

// baseClient holds the state shared by every variant. Fields are written once by
// Init and only read afterwards.
type baseClient struct {
	environment string
	region      string
	instanceID  string
}

func (b *baseClient) Environment() string {
	return b.environment
}

func (b *baseClient) Region() string {
	return b.region
}

// InstanceID returns the instance identifier discovered by Init.
func (b *baseClient) InstanceID() string {
	return b.instanceID
}

// validateIdentity rejects a document that parsed but carries no region.
func validateIdentity(identity *InstanceIdentity) error {
	if identity.Region == "" {
		return fmt.Errorf("%w: region is missing", errUtils.ErrParseIdentity)
	}
	return nil
}

func (b *baseClient) setIdentity(identity *InstanceIdentity) {
	b.region = identity.Region
	b.instanceID = identity.InstanceID
}

func secretOptions(opts *SecretOptions) SecretOptions {
	if opts == nil {
		return SecretOptions{}
	}
	return *opts
}

func validateSecretID(secretID string) error {
	if strings.TrimSpace(secretID) == "" {
		return errUtils.Validation(errUtils.ErrSecretIDMissing)
	}
	return nil
}

func validateMetadataProvider(provider *schema.MetadataProvider) error {
	if provider == nil {
		return errUtils.Validation(errUtils.ErrMetadataProvider)
	}
	switch provider.Type {
	case schema.MetadataTypeCompute, schema.MetadataTypeNetwork:
		return nil
	default:
		return errUtils.Build(errUtils.Validation(errUtils.ErrUnknownMetadataType)).
			WithHintf("metadata type %q is not one of compute, network", provider.Type).
			WithContext("environment", provider.Environment).
			Err()
	}
}

func unknownNetworkField(provider *schema.MetadataProvider) error {
	return errUtils.Build(errUtils.Validation(errUtils.ErrUnknownMetadataField)).
		WithHintf("network field %q is not one of ipv4, ipv6, mac", provider.Field).
		WithContext("environment", provider.Environment).
		Err()
}

// withPrefix joins an address and the prefix length of a CIDR block or a dotted
// netmask, e.g. ("10.0.1.4", "10.0.1.0/24") -> "10.0.1.4/24". Missing pieces degrade
// to the bare address or the empty string.
func withPrefix(address, block string) string {
	address = firstLine(address)
	if address == "" {
		return ""
	}

	block = firstLine(block)
	if block == "" {
		return address
	}

	if _, prefix, ok := strings.Cut(block, "/"); ok {
		return address + "/" + prefix
	}

	if ip := net.ParseIP(block).To4(); ip != nil {
		ones, bits := net.IPMask(ip).Size()
		if bits != 0 {
			return address + "/" + strconv.Itoa(ones)
		}
	}

	// A bare prefix length, as Azure reports it.
	if _, err := strconv.Atoi(block); err == nil {
		return address + "/" + block
	}

	return address
}

func firstLine(s string) string {
	s = strings.TrimSpace(s)
	if line, _, ok := strings.Cut(s, "\n"); ok {
		return strings.TrimSpace(line)
	}
	return s
}
