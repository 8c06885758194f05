package service

import (
	"strconv"
	"strings"

	domainerrors "github.com/leukaemiamedtech/hiascdi/pkg/domain-errors"
)

// CoerceScalar applies the text/plain value coercion rules: the true/false/
// null literals map to their JSON counterparts, a quoted token loses its
// quotes, a token containing a decimal point parses as a float and anything
// else parses as an integer. Parse failures are bad requests.
func CoerceScalar(raw string) (any, error) {
	switch raw {
	case "true":
		return true, nil
	case "false":
		return false, nil
	case "null":
		return nil, nil
	}
	if len(raw) >= 2 && strings.HasPrefix(raw, `"`) && strings.HasSuffix(raw, `"`) {
		return raw[1 : len(raw)-1], nil
	}
	if strings.Contains(raw, ".") {
		f, err := strconv.ParseFloat(raw, 64)
		if err != nil {
			return nil, domainerrors.New(domainerrors.CodeBadRequest, "value is not a valid number")
		}
		return f, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return nil, domainerrors.New(domainerrors.CodeBadRequest, "value is not a valid integer")
	}
	return n, nil
}
