package pkgrouter

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/julienschmidt/httprouter"
	"github.com/shandysiswandi/gobordereau/internal/pkg/pkgerror"
)

// Param returns the trimmed path parameter key matched by httprouter.
func Param(ctx context.Context, key string) string {
	return strings.TrimSpace(httprouter.ParamsFromContext(ctx).ByName(key))
}

// Int64Param parses a numeric path parameter such as a document ID. A
// missing or malformed value is invalid input.
func Int64Param(ctx context.Context, key string) (int64, error) {
	v, err := strconv.ParseInt(Param(ctx, key), 10, 64)
	if err != nil {
		return 0, pkgerror.NewInvalidInput(fmt.Errorf("invalid %s", key))
	}
	return v, nil
}
