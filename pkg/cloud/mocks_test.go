package cloud

import (
	"context"
	"io"
	"net/http"
	"strings"

	"cloud.google.com/go/secretmanager/apiv1/secretmanagerpb"
	"github.com/Azure/azure-sdk-for-go/sdk/security/keyvault/azsecrets"
	"github.com/aws/aws-sdk-go-v2/feature/ec2/imds"
	"github.com/aws/aws-sdk-go-v2/service/secretsmanager"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	"github.com/aws/aws-sdk-go-v2/service/sts"
	smithyhttp "github.com/aws/smithy-go/transport/http"
	"github.com/cockroachdb/errors"
	"github.com/googleapis/gax-go/v2"
	"github.com/stretchr/testify/mock"
)

// MockIMDSClient is a mock implementation of the IMDSClient interface.
type MockIMDSClient struct {
	mock.Mock
}

func (m *MockIMDSClient) GetDynamicData(ctx context.Context, params *imds.GetDynamicDataInput, optFns ...func(*imds.Options)) (*imds.GetDynamicDataOutput, error) {
	args := m.Called(ctx, params.Path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return &imds.GetDynamicDataOutput{Content: body(args.String(0))}, args.Error(1)
}

func (m *MockIMDSClient) GetMetadata(ctx context.Context, params *imds.GetMetadataInput, optFns ...func(*imds.Options)) (*imds.GetMetadataOutput, error) {
	args := m.Called(ctx, params.Path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return &imds.GetMetadataOutput{Content: body(args.String(0))}, args.Error(1)
}

// MockSecretsManagerClient is a mock implementation of the SecretsManagerClient interface.
type MockSecretsManagerClient struct {
	mock.Mock
}

func (m *MockSecretsManagerClient) GetSecretValue(ctx context.Context, params *secretsmanager.GetSecretValueInput, optFns ...func(*secretsmanager.Options)) (*secretsmanager.GetSecretValueOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretsmanager.GetSecretValueOutput), args.Error(1)
}

// MockSSMClient is a mock implementation of the SSMClient interface.
type MockSSMClient struct {
	mock.Mock
}

func (m *MockSSMClient) GetParameter(ctx context.Context, params *ssm.GetParameterInput, optFns ...func(*ssm.Options)) (*ssm.GetParameterOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*ssm.GetParameterOutput), args.Error(1)
}

// MockSTSClient is a mock implementation of the STSClient interface.
type MockSTSClient struct {
	mock.Mock
}

func (m *MockSTSClient) AssumeRole(ctx context.Context, params *sts.AssumeRoleInput, optFns ...func(*sts.Options)) (*sts.AssumeRoleOutput, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*sts.AssumeRoleOutput), args.Error(1)
}

// MockKeyVaultClient is a mock implementation of the KeyVaultClient interface.
type MockKeyVaultClient struct {
	mock.Mock
}

func (m *MockKeyVaultClient) GetSecret(ctx context.Context, name string, version string, options *azsecrets.GetSecretOptions) (azsecrets.GetSecretResponse, error) {
	args := m.Called(ctx, name, version)
	return args.Get(0).(azsecrets.GetSecretResponse), args.Error(1)
}

// MockGCEMetadataClient is a mock implementation of the GCEMetadataClient interface.
type MockGCEMetadataClient struct {
	mock.Mock
}

func (m *MockGCEMetadataClient) ProjectIDWithContext(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGCEMetadataClient) InstanceIDWithContext(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGCEMetadataClient) ZoneWithContext(ctx context.Context) (string, error) {
	args := m.Called(ctx)
	return args.String(0), args.Error(1)
}

func (m *MockGCEMetadataClient) GetWithContext(ctx context.Context, suffix string) (string, error) {
	args := m.Called(ctx, suffix)
	return args.String(0), args.Error(1)
}

// MockGSMClient is a mock implementation of the GSMClient interface.
type MockGSMClient struct {
	mock.Mock
}

func (m *MockGSMClient) AccessSecretVersion(ctx context.Context, req *secretmanagerpb.AccessSecretVersionRequest, opts ...gax.CallOption) (*secretmanagerpb.AccessSecretVersionResponse, error) {
	args := m.Called(ctx, req.GetName())
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*secretmanagerpb.AccessSecretVersionResponse), args.Error(1)
}

func (m *MockGSMClient) Close() error {
	args := m.Called()
	return args.Error(0)
}

func body(s string) io.ReadCloser {
	return io.NopCloser(strings.NewReader(s))
}

func ptr(s string) *string {
	return &s
}

// notFound builds the error the AWS SDK returns for an IMDS 404.
func notFound() error {
	return &smithyhttp.ResponseError{
		Response: &smithyhttp.Response{Response: &http.Response{StatusCode: http.StatusNotFound}},
		Err:      errors.New("not found"),
	}
}
