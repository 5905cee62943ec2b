package gate_test

import (
	"context"
	"encoding/json"
	"fmt"
	"net"
	"net/http"
	"os"
	"os/exec"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/copperline/gate/pkg/gatesdk"
	"github.com/copperline/gate/pkg/jwtx"
)

/*
 * Common constants and helper functions for gate service end-to-end tests.
 * This includes container setup, the account directory stub, and service
 * token minting.
 */

const (
	testImageName = "copperline-gate-test:latest"

	serviceAuthSecret = "e2e-service-auth-secret-12345"
	rememberSecret    = "e2e-remember-secret-12345"
	secretsKey        = "e2e-secrets-key-12345"
	issuer            = "copperline-gate"

	// Accounts served by the directory stub.
	testAccountID       = "acc-e2e-1"
	testAccountUsername = "casey"
	totpOnlyAccountID   = "acc-e2e-totponly"
)

// TestMain manages the test lifecycle, builds the Docker image once before
// all tests and cleans it up after all tests complete.
func TestMain(m *testing.M) {
	fmt.Fprintf(os.Stdout, "Building Gate Service Docker image...")

	if err := buildDockerImage(); err != nil {
		fmt.Fprintf(os.Stderr, "\nFailed to build Docker image: %v\n", err)
		os.Exit(1)
	}
	fmt.Fprintf(os.Stdout, " done\n")

	exitCode := m.Run()

	fmt.Fprintf(os.Stdout, "Cleaning up Gate Service Docker image...")
	cleanupDockerImage()
	fmt.Fprintf(os.Stdout, " done\n")

	os.Exit(exitCode)
}

func buildDockerImage() error {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "build",
		"-t", testImageName,
		"-f", "../../../cmd/gate/Dockerfile",
		"../../../")
	cmd.Dir = "."
	cmd.Stdout = os.Stdout
	cmd.Stderr = nil

	return cmd.Run()
}

func cleanupDockerImage() {
	ctx := context.Background()
	cmd := exec.CommandContext(ctx, "docker", "rmi", "-f", testImageName)
	_ = cmd.Run() // Ignore errors - image might not exist
}

// startDirectoryStub runs a minimal account directory on a host port. The
// gate container reaches it through host.testcontainers.internal.
func startDirectoryStub(t *testing.T) int {
	t.Helper()

	type account struct {
		ID                 string   `json:"id"`
		Username           string   `json:"username"`
		EnabledFactorKinds []string `json:"enabled_factor_kinds,omitempty"`
	}

	accounts := map[string]account{
		testAccountID:     {ID: testAccountID, Username: testAccountUsername},
		totpOnlyAccountID: {ID: totpOnlyAccountID, Username: "totponly", EnabledFactorKinds: []string{"totp"}},
	}

	mux := http.NewServeMux()
	mux.HandleFunc("GET /v1/accounts/{accountID}", func(w http.ResponseWriter, r *http.Request) {
		acc, ok := accounts[r.PathValue("accountID")]
		if !ok {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(acc)
	})

	listener, err := net.Listen("tcp", "0.0.0.0:0")
	require.NoError(t, err)

	server := &http.Server{Handler: mux, ReadHeaderTimeout: 3 * time.Second}
	go func() { _ = server.Serve(listener) }()
	t.Cleanup(func() { _ = server.Close() })

	return listener.Addr().(*net.TCPAddr).Port
}

// setupGateContainer starts the gate service in a container and returns the
// base URL. Rate limits are relaxed so rapid test requests don't trip them;
// rate limit behaviour gets its own test with production defaults.
func setupGateContainer(t *testing.T) (string, func()) {
	return setupGateContainerWithEnv(t, map[string]string{
		"RATELIMIT_STRICT_REQUESTS":   "1000",
		"RATELIMIT_STRICT_WINDOW_SEC": "60",
		"RATELIMIT_STRICT_BURST":      "1000",
		"RATELIMIT_MODERATE_REQUESTS": "1000",
		"RATELIMIT_MODERATE_BURST":    "1000",
	})
}

// setupGateContainerWithDefaultRateLimits starts the gate service with
// production rate limits. Only the rate limit test should use this.
func setupGateContainerWithDefaultRateLimits(t *testing.T) (string, func()) {
	return setupGateContainerWithEnv(t, nil)
}

func setupGateContainerWithEnv(t *testing.T, extraEnv map[string]string) (string, func()) {
	t.Helper()
	ctx := context.Background()

	directoryPort := startDirectoryStub(t)

	env := map[string]string{
		"GATE_REMEMBER_SECRET":     rememberSecret,
		"GATE_SERVICE_AUTH_SECRET": serviceAuthSecret,
		"GATE_SECRETS_KEY":         secretsKey,
		"GATE_ISSUER":              issuer,
		"GATE_DATABASE_FILE":       "/home/gate/gate.db",
		"GATE_DIRECTORY_URL":       fmt.Sprintf("http://host.testcontainers.internal:%d", directoryPort),
		"ENV":                      "test",
		"LOG_LEVEL":                "info",
		"LOG_FORMAT":               "json",
	}
	for k, v := range extraEnv {
		env[k] = v
	}

	req := testcontainers.ContainerRequest{
		Image:           testImageName,
		ExposedPorts:    []string{"8080/tcp"},
		HostAccessPorts: []int{directoryPort},
		Env:             env,
		WaitingFor: wait.ForHTTP("/livez").
			WithPort("8080/tcp").
			WithStartupTimeout(60 * time.Second),
	}

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	require.NoError(t, err)

	mappedPort, err := container.MappedPort(ctx, "8080")
	require.NoError(t, err)

	host, err := container.Host(ctx)
	require.NoError(t, err)

	baseURL := fmt.Sprintf("http://%s:%s", host, mappedPort.Port())

	cleanup := func() {
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	}

	return baseURL, cleanup
}

// serviceToken mints an HS256 bearer token the way a calling service would.
func serviceToken(t *testing.T, scopes ...string) string {
	t.Helper()

	signer, err := jwtx.NewSignerHS256([]byte(serviceAuthSecret))
	require.NoError(t, err)

	claims := jwtx.NewServiceClaims(
		"e2e-tests",
		scopes,
		jwtx.DefaultServiceTokenTTL,
		issuer,
		[]string{"gate"},
		time.Now(),
	)

	token, err := signer.Sign(claims)
	require.NoError(t, err)

	return token
}

// newGateClient returns an SDK client holding a token with every gate scope.
func newGateClient(t *testing.T, baseURL string) *gatesdk.Client {
	t.Helper()
	return gatesdk.NewClient(baseURL, serviceToken(t,
		gatesdk.ScopeManage, gatesdk.ScopeVerify, gatesdk.ScopeRead))
}

// assertGateError checks that err is a GateError with the given status and code.
func assertGateError(t *testing.T, err error, status int, code string) {
	t.Helper()

	var gerr *gatesdk.GateError
	require.ErrorAs(t, err, &gerr)
	require.Equal(t, status, gerr.StatusCode)
	require.Equal(t, code, gerr.Code)
}
