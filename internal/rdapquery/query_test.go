// File: backend/internal/rdapquery/query_test.go
package rdapquery

import (
	"context"
	"fmt"
	"net"
	"net/http"
	"net/http/httptest"
	"net/url"
	"testing"

	"github.com/fntelecomllc/rdapflow/backend/internal/config"
	"github.com/fntelecomllc/rdapflow/backend/internal/httpquery"
	"github.com/fntelecomllc/rdapflow/backend/internal/rdap"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type staticResolver struct {
	v4 map[string]net.IP
	v6 map[string]net.IP
}

func (s *staticResolver) Resolve(host string, protocol rdap.NetworkProtocol) (net.IP, error) {
	table := s.v4
	if protocol == rdap.IPv6 {
		table = s.v6
	}
	if ip, ok := table[host]; ok {
		return ip, nil
	}
	return nil, rdap.ErrNoAddress
}

func (s *staticResolver) HasAddresses(host string, protocol rdap.NetworkProtocol) bool {
	_, err := s.Resolve(host, protocol)
	return err == nil
}

// runAgainst spins up a server answering with the given handler and runs a
// full validation against it on the rewritten rdap.test hostname.
func runAgainst(t *testing.T, handler http.HandlerFunc, mutate func(*config.RDAPValidatorConfig)) (*rdap.QueryContext, bool) {
	t.Helper()
	server := httptest.NewServer(handler)
	t.Cleanup(server.Close)

	serverURL, err := url.Parse(server.URL)
	require.NoError(t, err)

	cfg := &config.RDAPValidatorConfig{
		TargetURI:       fmt.Sprintf("http://rdap.test:%s/domain/example.com", serverURL.Port()),
		TimeoutSeconds:  5,
		MaxRedirects:    config.DefaultMaxRedirects,
		NetworkProtocol: "ipv4",
	}
	if mutate != nil {
		mutate(cfg)
	}

	resolver := &staticResolver{v4: map[string]net.IP{"rdap.test": net.ParseIP("127.0.0.1")}}
	qctx := rdap.NewQueryContext(cfg, resolver)
	validator := New(httpquery.NewExecutor(httpquery.NewClientCache()), cfg)
	ok := validator.Run(context.Background(), qctx)
	return qctx, ok
}

func codes(qctx *rdap.QueryContext) []int {
	var out []int
	for _, res := range qctx.Results.GetAll() {
		out = append(out, res.Code)
	}
	return out
}

func findResult(qctx *rdap.QueryContext, code int) (rdap.ValidationResult, bool) {
	for _, res := range qctx.Results.GetAll() {
		if res.Code == code {
			return res, true
		}
	}
	return rdap.ValidationResult{}, false
}

func rdapAnswer(w http.ResponseWriter, body string) {
	w.Header().Set("Content-Type", "application/rdap+json")
	fmt.Fprint(w, body)
}

func TestRunCleanLookup(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		rdapAnswer(w, `{"objectClassName":"domain","rdapConformance":["rdap_level_0"]}`)
	}, nil)

	assert.True(t, ok)
	assert.Empty(t, codes(qctx))
}

func TestRunRedirectBoundLeavesResultsClean(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, r.URL.Path+"x", http.StatusFound)
	}, func(cfg *config.RDAPValidatorConfig) {
		cfg.MaxRedirects = 1
	})

	assert.False(t, ok)
	assert.Empty(t, codes(qctx))

	records := qctx.Tracker.Records()
	require.Len(t, records, 2)
	assert.Equal(t, rdap.TooManyRedirects, records[len(records)-1].Status)
}

func TestRunWrongContentType(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		fmt.Fprint(w, `{"objectClassName":"domain"}`)
	}, nil)

	assert.True(t, ok)
	require.Equal(t, []int{rdap.CodeContentType}, codes(qctx))
	res, _ := findResult(qctx, rdap.CodeContentType)
	assert.Equal(t, "application/json", res.Value)
	assert.Equal(t, http.StatusOK, res.HTTPStatusCode)
}

func TestRunContentTypeWithParameters(t *testing.T) {
	qctx, _ := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json; charset=utf-8")
		fmt.Fprint(w, `{"objectClassName":"domain"}`)
	}, nil)

	assert.Empty(t, codes(qctx))
}

func TestRunInvalidJSON(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		rdapAnswer(w, `{"objectClassName": truncated`)
	}, nil)

	assert.False(t, ok)
	require.Equal(t, []int{rdap.CodeInvalidJSON}, codes(qctx))
	res, _ := findResult(qctx, rdap.CodeInvalidJSON)
	assert.Equal(t, "response body not given", res.Value)
}

func TestRunMissingObjectClassName(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		rdapAnswer(w, `{"handle":"EXAMPLE-1"}`)
	}, nil)

	assert.True(t, ok)
	assert.Equal(t, []int{rdap.CodeMissingObjectClass}, codes(qctx))
}

func TestRunNameserverSearch(t *testing.T) {
	handler := func(body string) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) { rdapAnswer(w, body) }
	}
	searchTarget := func(cfg *config.RDAPValidatorConfig) {
		u, _ := url.Parse(cfg.TargetURI)
		u.Path = "/nameservers"
		u.RawQuery = "name=ns1.example.com"
		cfg.TargetURI = u.String()
		cfg.UseRdapProfileFeb2024 = true
	}

	t.Run("results present", func(t *testing.T) {
		qctx, ok := runAgainst(t, handler(`{"rdapConformance":["rdap_level_0"],"nameserverSearchResults":[]}`), searchTarget)
		assert.True(t, ok)
		assert.Empty(t, codes(qctx))
	})

	t.Run("results missing under 2024 profile", func(t *testing.T) {
		qctx, _ := runAgainst(t, handler(`{"rdapConformance":["rdap_level_0"]}`), searchTarget)
		assert.Equal(t, []int{rdap.CodeNameserverSearchReqd}, codes(qctx))
	})

	t.Run("results missing without profile", func(t *testing.T) {
		qctx, _ := runAgainst(t, handler(`{"rdapConformance":["rdap_level_0"]}`), func(cfg *config.RDAPValidatorConfig) {
			searchTarget(cfg)
			cfg.UseRdapProfileFeb2024 = false
		})
		assert.Equal(t, []int{rdap.CodeMissingObjectClass}, codes(qctx))
	})
}

func TestRunErrorBodyChecks(t *testing.T) {
	feb2024 := func(cfg *config.RDAPValidatorConfig) { cfg.UseRdapProfileFeb2024 = true }

	t.Run("500 with mismatched errorCode", func(t *testing.T) {
		qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rdap+json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"errorCode":404,"rdapConformance":["rdap_level_0"]}`)
		}, feb2024)

		assert.False(t, ok)
		assert.Contains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
		assert.Contains(t, codes(qctx), rdap.CodeInvalidHTTPStatus)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeRequired)
	})

	t.Run("404 with matching errorCode", func(t *testing.T) {
		qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rdap+json")
			w.WriteHeader(http.StatusNotFound)
			fmt.Fprint(w, `{"errorCode":404,"rdapConformance":["rdap_level_0"]}`)
		}, feb2024)

		assert.True(t, ok)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeRequired)
		assert.NotContains(t, codes(qctx), rdap.CodeInvalidHTTPStatus)
	})

	t.Run("500 missing errorCode", func(t *testing.T) {
		qctx, _ := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rdap+json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"rdapConformance":["rdap_level_0"]}`)
		}, feb2024)

		assert.Contains(t, codes(qctx), rdap.CodeErrorCodeRequired)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
	})

	t.Run("500 with non-numeric errorCode", func(t *testing.T) {
		qctx, _ := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rdap+json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"errorCode":"500","rdapConformance":["rdap_level_0"]}`)
		}, feb2024)

		assert.Contains(t, codes(qctx), rdap.CodeErrorCodeRequired)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
	})

	t.Run("500 missing rdapConformance", func(t *testing.T) {
		qctx, _ := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"errorCode":500}`)
		}, feb2024)

		assert.Contains(t, codes(qctx), rdap.CodeErrorCodeRequired)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
	})

	t.Run("422 mismatched errorCode still checked before termination", func(t *testing.T) {
		qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnprocessableEntity)
			fmt.Fprint(w, `{"errorCode":500,"rdapConformance":["rdap_level_0"]}`)
		}, feb2024)

		assert.False(t, ok)
		assert.Contains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
		assert.Contains(t, codes(qctx), rdap.CodeInvalidHTTPStatus)
		// 4xx terminates before the content checks.
		assert.NotContains(t, codes(qctx), rdap.CodeContentType)
		assert.NotContains(t, codes(qctx), rdap.CodeInvalidJSON)
	})

	t.Run("no checks without 2024 profile", func(t *testing.T) {
		qctx, _ := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/rdap+json")
			w.WriteHeader(http.StatusInternalServerError)
			fmt.Fprint(w, `{"errorCode":404,"rdapConformance":["rdap_level_0"]}`)
		}, nil)

		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeMismatch)
		assert.NotContains(t, codes(qctx), rdap.CodeErrorCodeRequired)
		assert.Contains(t, codes(qctx), rdap.CodeInvalidHTTPStatus)
	})
}

func TestRunUnexpectedStatusValue(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		w.WriteHeader(http.StatusBadGateway)
		fmt.Fprint(w, `{"rdapConformance":["rdap_level_0"]}`)
	}, nil)

	assert.False(t, ok)
	res, found := findResult(qctx, rdap.CodeInvalidHTTPStatus)
	require.True(t, found)
	assert.Equal(t, "502", res.Value)
	assert.Equal(t, http.StatusBadGateway, res.HTTPStatusCode)
}

func TestRunAllNotFoundWarning(t *testing.T) {
	qctx, ok := runAgainst(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/rdap+json")
		w.WriteHeader(http.StatusNotFound)
		fmt.Fprint(w, `{"errorCode":404,"rdapConformance":["rdap_level_0"]}`)
	}, nil)

	assert.True(t, ok)
	res, found := findResult(qctx, rdap.CodeNotFoundWarning)
	require.True(t, found)
	assert.Equal(t, qctx.Config.TargetURI, res.Value)
	assert.Equal(t, http.StatusNotFound, res.HTTPStatusCode)
}

func TestRunNoAddresses(t *testing.T) {
	cfg := &config.RDAPValidatorConfig{
		TargetURI:       "https://nowhere.test/domain/example.com",
		TimeoutSeconds:  5,
		MaxRedirects:    config.DefaultMaxRedirects,
		NetworkProtocol: "ipv4",
	}
	resolver := &staticResolver{}
	qctx := rdap.NewQueryContext(cfg, resolver)
	validator := New(httpquery.NewExecutor(httpquery.NewClientCache()), cfg)

	ok := validator.Run(context.Background(), qctx)

	assert.False(t, ok)
	require.Equal(t, []int{rdap.CodeNoAddresses}, codes(qctx))
	assert.Equal(t, rdap.NoResponse, qctx.Results.GetAll()[0].Value)
	assert.Zero(t, qctx.Tracker.Count())
}

func TestRunMissingFamilyService(t *testing.T) {
	cfg := &config.RDAPValidatorConfig{
		TargetURI:       "https://v6only.test/domain/example.com",
		TimeoutSeconds:  5,
		MaxRedirects:    config.DefaultMaxRedirects,
		NetworkProtocol: "ipv4",
	}
	resolver := &staticResolver{v6: map[string]net.IP{"v6only.test": net.ParseIP("2001:db8::1")}}
	qctx := rdap.NewQueryContext(cfg, resolver)
	validator := New(httpquery.NewExecutor(httpquery.NewClientCache()), cfg)

	validator.Run(context.Background(), qctx)

	res, found := findResult(qctx, rdap.CodeNoIPv4Service)
	require.True(t, found)
	assert.Equal(t, "v6only.test", res.Value)
}

func TestDetectQueryType(t *testing.T) {
	lookup, _ := url.Parse("https://rdap.example.com/domain/example.com")
	assert.Equal(t, TypeLookup, DetectQueryType(lookup))

	search, _ := url.Parse("https://rdap.example.com/nameservers?name=ns1.example.com")
	assert.Equal(t, TypeNameserverSearch, DetectQueryType(search))

	nsLookup, _ := url.Parse("https://rdap.example.com/nameserver/ns1.example.com")
	assert.Equal(t, TypeLookup, DetectQueryType(nsLookup))
}
