package cloud

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestWithPrefix(t *testing.T) {
	tests := []struct {
		name    string
		address string
		block   string
		want    string
	}{
		{name: "cidr block", address: "10.0.1.4", block: "10.0.1.0/24", want: "10.0.1.4/24"},
		{name: "dotted mask", address: "10.128.0.2", block: "255.255.240.0", want: "10.128.0.2/20"},
		{name: "bare prefix", address: "10.1.0.4", block: "24", want: "10.1.0.4/24"},
		{name: "ipv6 cidr", address: "2600:1f18::7", block: "2600:1f18::/64", want: "2600:1f18::7/64"},
		{name: "multi-line takes first", address: "10.0.1.4\n10.0.1.5", block: "10.0.1.0/24\n", want: "10.0.1.4/24"},
		{name: "no block", address: "10.0.1.4", want: "10.0.1.4"},
		{name: "garbage block", address: "10.0.1.4", block: "nope", want: "10.0.1.4"},
		{name: "no address", block: "10.0.1.0/24", want: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, withPrefix(tt.address, tt.block))
		})
	}
}

func TestSecretOptions_Nil(t *testing.T) {
	assert.Equal(t, SecretOptions{}, secretOptions(nil))
	assert.Equal(t, SecretOptions{Version: "1"}, secretOptions(&SecretOptions{Version: "1"}))
}
