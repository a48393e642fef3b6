package spec

import (
	"context"
	"encoding/json"
	"errors"
	"regexp"
	"strings"

	"github.com/getkin/kin-openapi/openapi3"
)

// Lint runs kin-openapi's OpenAPI 3 validation over a raw tree. It never
// blocks a load: callers report the returned issues as warnings. External
// references are not followed.
func Lint(ctx context.Context, raw *Object) []*SpecError {
	data, err := json.Marshal(raw)
	if err != nil {
		return []*SpecError{{Code: ParseError, Message: err.Error(), Cause: err}}
	}
	loader := openapi3.NewLoader()
	loader.IsExternalRefsAllowed = false
	doc, err := loader.LoadFromData(data)
	if err != nil {
		return []*SpecError{mapValidateOrParseErr(err, "")}
	}
	err = doc.Validate(ctx)
	if err == nil {
		return nil
	}
	var me openapi3.MultiError
	if errors.As(err, &me) {
		out := make([]*SpecError, 0, len(me))
		for _, e := range me {
			out = append(out, mapValidateOrParseErr(e, ""))
		}
		return out
	}
	return []*SpecError{mapValidateOrParseErr(err, "")}
}

func mapValidateOrParseErr(err error, location string) *SpecError {
	pointer := extractJSONPointer(err)
	code := ValidationError
	msg := strings.ToLower(err.Error())
	if strings.Contains(msg, "parse") || strings.Contains(msg, "invalid character") {
		code = ParseError
	}
	return &SpecError{Code: code, Message: err.Error(), Location: location, JSONPointer: pointer, Cause: err}
}

var jsonPtrRe = regexp.MustCompile(`#/[^\s'"]+`)

func extractJSONPointer(err error) string {
	if err == nil {
		return ""
	}
	var me openapi3.MultiError
	if errors.As(err, &me) && len(me) > 0 {
		return extractJSONPointer(me[0])
	}
	var se *openapi3.SchemaError
	if errors.As(err, &se) {
		if parts := se.JSONPointer(); len(parts) > 0 {
			return "#/" + strings.Join(parts, "/")
		}
		if se.SchemaField != "" {
			return se.SchemaField
		}
	}
	if m := jsonPtrRe.FindString(err.Error()); m != "" {
		return m
	}
	return ""
}
