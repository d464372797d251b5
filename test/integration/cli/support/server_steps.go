package support

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"

	"github.com/cucumber/godog"

	"github.com/redline-tools/redline/internal/config"
	"github.com/redline-tools/redline/internal/server"
)

// HTTPTestServerWrapper wraps httptest.Server for integration tests.
type HTTPTestServerWrapper struct {
	Server     *httptest.Server
	TestServer *server.Server
}

// RegisterServerSteps wires the HTTP server step definitions.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the comparison server is running$`, testCtx.theComparisonServerIsRunning)
	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendGETRequest)
	sc.Step(`^I send a POST request to "([^"]*)"$`, testCtx.iSendPOSTRequest)
	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
}

func (testCtx *TestContext) theComparisonServerIsRunning() error {
	if testCtx.HTTPTestServer != nil {
		return nil
	}

	cfg := config.DefaultConfig()
	cfg.Server.DataDir = testCtx.TempDir
	cfg.Server.RateLimitPerMin = 0

	srv, err := server.NewServer(server.Config{
		Server:   cfg.Server,
		Engine:   cfg.Engine,
		Render:   cfg.Render,
		Verifier: cfg.Verifier,
	})
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	mux := http.NewServeMux()
	srv.SetupRoutes(mux)

	testCtx.HTTPTestServer = &HTTPTestServerWrapper{
		Server:     httptest.NewServer(mux),
		TestServer: srv,
	}
	return nil
}

func (testCtx *TestContext) stopTestHTTPServer() error {
	wrapper := testCtx.HTTPTestServer
	testCtx.HTTPTestServer = nil
	wrapper.Server.Close()
	return wrapper.TestServer.Close()
}

func (testCtx *TestContext) iSendGETRequest(path string) error {
	return testCtx.sendRequest(http.MethodGet, path, nil)
}

func (testCtx *TestContext) iSendPOSTRequest(path string) error {
	return testCtx.sendRequest(http.MethodPost, path, strings.NewReader(""))
}

func (testCtx *TestContext) sendRequest(method, path string, body io.Reader) error {
	if testCtx.HTTPTestServer == nil {
		return fmt.Errorf("server is not running")
	}

	req, err := http.NewRequest(method, testCtx.HTTPTestServer.Server.URL+path, body)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response body: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPResponse = string(data)
	return nil
}

func (testCtx *TestContext) theResponseStatusShouldBe(expected int) error {
	if testCtx.LastHTTPStatusCode != expected {
		return fmt.Errorf("expected status %d, got %d\nresponse: %s",
			expected, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(expected string) error {
	if !strings.Contains(testCtx.LastHTTPResponse, expected) {
		return fmt.Errorf("response does not contain %q\nresponse: %s", expected, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	var decoded map[string]interface{}
	if err := json.Unmarshal([]byte(testCtx.LastHTTPResponse), &decoded); err != nil {
		return fmt.Errorf("response is not valid JSON: %w\nresponse: %s", err, testCtx.LastHTTPResponse)
	}
	value, ok := decoded[field]
	if !ok {
		return fmt.Errorf("response JSON has no field %q\nresponse: %s", field, testCtx.LastHTTPResponse)
	}
	if fmt.Sprintf("%v", value) != expected {
		return fmt.Errorf("field %q is %v, expected %q", field, value, expected)
	}
	return nil
}
