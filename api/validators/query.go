package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/cablequotes-backend/pkg/errors"
)

// ParseQueryInt reads an optional integer query parameter bounded by [min, max].
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return defaultVal, nil
	}
	value, err := strconv.Atoi(raw)
	if err != nil {
		return 0, pkgerrors.FieldErrors{key: "must be a number"}.Err("invalid query parameter")
	}
	if value < min || value > max {
		return 0, pkgerrors.FieldErrors{key: fmt.Sprintf("must be between %d and %d", min, max)}.Err("invalid query parameter")
	}
	return value, nil
}
