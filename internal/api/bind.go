package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/calvinwijaya/card-games-api/internal/types"
)

// FieldError describes one rejected request parameter
type FieldError struct {
	Field string `json:"field"`
	Rule  string `json:"rule"`
	Param string `json:"param,omitempty"`
	Value any    `json:"value"`
}

func newValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name, _, _ := strings.Cut(f.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

// decodeBody reads an optional JSON body into dst
func decodeBody(r *http.Request, dst any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}

	err := json.NewDecoder(r.Body).Decode(dst)
	if err == nil || errors.Is(err, io.EOF) {
		return nil
	}

	return types.WrapError(types.ErrInvalidInput, "Invalid request body", err)
}

// validate checks the struct tags of req
func (h *Handlers) validate(req any) error {
	err := h.validator.Struct(req)
	if err == nil {
		return nil
	}

	var invalid validator.ValidationErrors
	if !errors.As(err, &invalid) {
		return types.WrapError(types.ErrInternalError, "request validation failed", err)
	}

	fields := make([]FieldError, 0, len(invalid))
	messages := make([]string, 0, len(invalid))
	for _, fe := range invalid {
		fields = append(fields, FieldError{
			Field: fe.Namespace()[strings.Index(fe.Namespace(), ".")+1:],
			Rule:  fe.Tag(),
			Param: fe.Param(),
			Value: fe.Value(),
		})
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		messages = append(messages, fmt.Sprintf("%s must satisfy %s", fe.Field(), rule))
	}

	return types.NewGameError(types.ErrInvalidInput, strings.Join(messages, "; ")).WithDetail("errors", fields)
}

// The query helpers overwrite *dst only when key is present, so query
// parameters win over the JSON body.

func queryString(q url.Values, key string, dst *string) {
	if q.Has(key) {
		*dst = q.Get(key)
	}
}

func queryInt(q url.Values, key string, dst *int) error {
	if !q.Has(key) {
		return nil
	}
	n, err := strconv.Atoi(q.Get(key))
	if err != nil {
		return types.WrapError(types.ErrInvalidInput, key+" must be a number", err).WithDetail(key, q.Get(key))
	}
	*dst = n
	return nil
}

func queryBool(q url.Values, key string, dst *bool) error {
	if !q.Has(key) {
		return nil
	}
	b, err := strconv.ParseBool(q.Get(key))
	if err != nil {
		return types.WrapError(types.ErrInvalidInput, key+" must be true or false", err).WithDetail(key, q.Get(key))
	}
	*dst = b
	return nil
}

// queryList accepts repeated keys and comma separated values
func queryList(q url.Values, key string, dst *[]string) {
	if !q.Has(key) {
		return
	}
	out := []string{}
	for _, raw := range q[key] {
		for _, item := range strings.Split(raw, ",") {
			if item != "" {
				out = append(out, item)
			}
		}
	}
	*dst = out
}
