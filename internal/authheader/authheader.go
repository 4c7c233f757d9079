// Package authheader assembles the upstream credentials an Endpoint carries
// (C3): given an auth kind and its opaque config map, it produces the
// headers and query parameters to attach to the forwarded request, resolving
// every {{SECRET:NAME}} reference through the secret store first.
package authheader

import (
	"encoding/base64"
	"fmt"

	"github.com/x402gateway/gateway/internal/secretstore"
)

// Kind identifies how an endpoint's upstream credentials are supplied.
type Kind string

const (
	KindNone          Kind = "none"
	KindBearer        Kind = "bearer"
	KindHeaderKey     Kind = "header-key"
	KindQueryKey      Kind = "query-key"
	KindBasic         Kind = "basic"
	KindCustomHeaders Kind = "custom-headers"
)

// Config keys used by the bearer/header-key/query-key/basic dispatch
// builders. custom-headers uses the whole config map as header name/value
// pairs instead of these reserved keys.
const (
	configKeyToken       = "token"
	configKeyHeaderName  = "headerName"
	configKeyHeaderValue = "headerValue"
	configKeyQueryParam  = "queryParam"
	configKeyQueryValue  = "queryValue"
	configKeyUser        = "user"
	configKeyPass        = "pass"
)

// Result is the outbound credential assembly: headers to set on the
// upstream request, and query parameters to set on the upstream URL.
type Result struct {
	Headers     map[string]string
	QueryParams map[string]string
}

// Build dispatches on kind and resolves every referenced secret via
// resolve before assembling the result. Unknown kinds produce an error, as
// do header-key without headerName and query-key without queryParam. An
// unresolved secret reference does not abort the build: the placeholder is
// left intact and reported in the diagnostics, and callers decide whether
// to proceed or fail the pipeline.
func Build(kind Kind, config map[string]string, store *secretstore.Store, resolve secretstore.Lookup) (Result, []secretstore.UnresolvedDiagnostic, error) {
	result := Result{Headers: map[string]string{}, QueryParams: map[string]string{}}
	var diagnostics []secretstore.UnresolvedDiagnostic

	resolveValue := func(raw string) string {
		resolved, diags := store.ResolveReferences(raw, resolve)
		diagnostics = append(diagnostics, diags...)
		return resolved
	}

	switch kind {
	case KindNone, "":
		return result, diagnostics, nil

	case KindBearer:
		token := resolveValue(config[configKeyToken])
		result.Headers["Authorization"] = "Bearer " + token

	case KindHeaderKey:
		name := config[configKeyHeaderName]
		if name == "" {
			return result, diagnostics, fmt.Errorf("authheader: header-key config missing %q", configKeyHeaderName)
		}
		result.Headers[name] = resolveValue(config[configKeyHeaderValue])

	case KindQueryKey:
		param := config[configKeyQueryParam]
		if param == "" {
			return result, diagnostics, fmt.Errorf("authheader: query-key config missing %q", configKeyQueryParam)
		}
		result.QueryParams[param] = resolveValue(config[configKeyQueryValue])

	case KindBasic:
		user := resolveValue(config[configKeyUser])
		pass := resolveValue(config[configKeyPass])
		creds := base64.StdEncoding.EncodeToString([]byte(user + ":" + pass))
		result.Headers["Authorization"] = "Basic " + creds

	case KindCustomHeaders:
		for name, value := range config {
			result.Headers[name] = resolveValue(value)
		}

	default:
		return result, diagnostics, fmt.Errorf("authheader: unknown auth kind %q", kind)
	}

	return result, diagnostics, nil
}
