package replay

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"cpamm/internal/errs"
	"cpamm/internal/model"
)

// ParseAddress converts a hex string into common.Address.
func ParseAddress(field, input string) (common.Address, error) {
	input = strings.TrimSpace(input)
	if !common.IsHexAddress(input) {
		return common.Address{}, errs.WithMetadata(errs.CodeInvalidRequest, "invalid address", map[string]string{
			"field": field,
			"value": input,
		})
	}
	return common.HexToAddress(input), nil
}

func decodeOperation(line []byte) (model.Operation, error) {
	dec := json.NewDecoder(bytes.NewReader(line))
	dec.DisallowUnknownFields()

	var op model.Operation
	if err := dec.Decode(&op); err != nil {
		return model.Operation{}, errs.Wrap(errs.CodeInvalidRequest, "decode operation", err)
	}
	op.Op = strings.ToLower(strings.TrimSpace(op.Op))
	if op.Op == "" {
		return model.Operation{}, errs.New(errs.CodeInvalidRequest, "operation name is required")
	}
	return op, nil
}

func poolLabel(op model.Operation) string {
	if addr, err := ParseAddress("pool", op.Pool); err == nil {
		return addr.Hex()
	}
	return op.Pool
}

func lineError(line uint64, err error) error {
	return fmt.Errorf("line %d: %w", line, err)
}
