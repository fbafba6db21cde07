package server_test

import (
	"strings"
	"testing"

	"github.com/fairtrace/fairtrace/pkg/configs/server"
)

func TestUnmarshal(t *testing.T) {
	t.Run("it loads config from yaml", func(t *testing.T) {
		result, err := server.Unmarshal([]byte(`
port: 18080
database: postgres://fairtrace@db/fairtrace
auth:
  secret: s3cr3t
  issuer: fairtrace-test
reports:
  directory: /var/fairtrace/reports
public:
  baseURL: https://trace.example.com
`))
		if err != nil {
			t.Fatalf("failed to parse config: %v", err)
		}

		if result.Port() != 18080 {
			t.Errorf(".port: %d", result.Port())
		}
		if result.Database() != "postgres://fairtrace@db/fairtrace" {
			t.Errorf(".database: %s", result.Database())
		}
		if string(result.Auth().Secret()) != "s3cr3t" {
			t.Errorf(".auth.secret: %s", result.Auth().Secret())
		}
		if result.Auth().Issuer() != "fairtrace-test" {
			t.Errorf(".auth.issuer: %s", result.Auth().Issuer())
		}
		if result.Reports().Directory() != "/var/fairtrace/reports" {
			t.Errorf(".reports.directory: %s", result.Reports().Directory())
		}
		if result.Public().BaseURL() != "https://trace.example.com" {
			t.Errorf(".public.baseURL: %s", result.Public().BaseURL())
		}
	})

	t.Run("when optional values are omitted, defaults are used", func(t *testing.T) {
		result, err := server.Unmarshal([]byte(`
database: postgres://fairtrace@db/fairtrace
auth:
  secret: s3cr3t
reports:
  directory: /tmp
`))
		if err != nil {
			t.Fatalf("failed to parse config: %v", err)
		}
		if result.Port() != 8080 {
			t.Errorf(".port: %d", result.Port())
		}
		if result.Auth().Issuer() != "fairtrace" {
			t.Errorf(".auth.issuer: %s", result.Auth().Issuer())
		}
		if result.Public().BaseURL() != "" {
			t.Errorf(".public.baseURL: %s", result.Public().BaseURL())
		}
	})

	for name, testcase := range map[string]struct {
		yaml string
		then string
	}{
		"when database is missing, it tells the path": {
			yaml: "auth: {secret: s}\nreports: {directory: /tmp}\n",
			then: "(root).database is required",
		},
		"when auth is missing, it tells the path": {
			yaml: "database: db\nreports: {directory: /tmp}\n",
			then: "(root).auth is required",
		},
		"when a nested value is missing, it tells the path": {
			yaml: "database: db\nauth: {issuer: x}\nreports: {directory: /tmp}\n",
			then: "(root).auth.secret is required",
		},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := server.Unmarshal([]byte(testcase.yaml))
			if err == nil {
				t.Fatal("no error")
			}
			if !strings.Contains(err.Error(), testcase.then) {
				t.Errorf("unexpected error: %v", err)
			}
		})
	}
}
