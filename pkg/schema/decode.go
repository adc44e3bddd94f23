package schema

import (
	"fmt"

	"github.com/mitchellh/mapstructure"

	errUtils "github.com/cloudposse/runtime-init/errors"
)

// DecodeRuntimeParameters decodes a raw list of parameter maps, as produced by viper
// or encoding/json, into typed runtime parameters. Keys match case-insensitively and
// scalar fields are weakly typed so `index: "1"` decodes.
func DecodeRuntimeParameters(raw any) ([]RuntimeParameter, error) {
	if raw == nil {
		return nil, nil
	}

	var params []RuntimeParameter
	decoder, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		Result:           &params,
		WeaklyTypedInput: true,
		ErrorUnused:      false,
		TagName:          "mapstructure",
	})
	if err != nil {
		return nil, fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrDecodeParameters, err)
	}

	if err := decoder.Decode(raw); err != nil {
		return nil, fmt.Errorf(errUtils.ErrWrapFormat, errUtils.ErrDecodeParameters, err)
	}

	return params, nil
}
