package validators

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"

	pkgerrors "github.com/angelmondragon/merchdrop-backend/pkg/errors"
)

// queryParam parses one query value with parse. Blank or absent values return
// fallback; a parse failure becomes a validation error keyed by the param name.
func queryParam[T any](r *http.Request, key string, fallback T, parse func(string) (T, error), want string) (T, error) {
	raw := strings.TrimSpace(r.URL.Query().Get(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := parse(raw)
	if err != nil {
		var zero T
		return zero, invalidParam(key, "must be "+want)
	}
	return v, nil
}

func invalidParam(key, msg string) error {
	return pkgerrors.Newf(pkgerrors.CodeValidation, "invalid query parameter %s", key).
		WithDetails(map[string]string{key: msg})
}

// ParseQueryInt reads an integer in [min, max], defaulting when absent.
func ParseQueryInt(r *http.Request, key string, defaultVal, min, max int) (int, error) {
	v, err := queryParam(r, key, defaultVal, strconv.Atoi, "a whole number")
	if err != nil {
		return 0, err
	}
	if v < min || v > max {
		return 0, invalidParam(key, fmt.Sprintf("must be between %d and %d", min, max))
	}
	return v, nil
}

func ParseQueryBool(r *http.Request, key string) (bool, error) {
	return queryParam(r, key, false, strconv.ParseBool, "true or false")
}
