package support

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	"github.com/redline-tools/redline/cmd/redline/cmd"
)

// RegisterCLISteps wires the command-line step definitions.
func (testCtx *TestContext) RegisterCLISteps(sc *godog.ScenarioContext) {
	sc.Step(`^I run "redline ?([^"]*)"$`, testCtx.iRunRedline)
	sc.Step(`^the command should succeed$`, testCtx.theCommandShouldSucceed)
	sc.Step(`^the command should fail$`, testCtx.theCommandShouldFail)
	sc.Step(`^the output should contain "([^"]*)"$`, testCtx.theOutputShouldContain)
	sc.Step(`^the error should mention "([^"]*)"$`, testCtx.theErrorShouldMention)
	sc.Step(`^the output should be valid JSON$`, testCtx.theOutputShouldBeValidJSON)
}

// iRunRedline executes the CLI in-process and stores the result.
func (testCtx *TestContext) iRunRedline(argLine string) error {
	root := cmd.GetRootCommand()

	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)

	var args []string
	if strings.TrimSpace(argLine) != "" {
		args = strings.Fields(argLine)
	}
	root.SetArgs(args)

	start := time.Now()
	err := root.Execute()
	testCtx.LastDuration = time.Since(start)
	testCtx.LastCommand = "redline " + argLine
	testCtx.LastOutput = out.String()
	testCtx.LastError = err
	return nil
}

func (testCtx *TestContext) theCommandShouldSucceed() error {
	if testCtx.LastError != nil {
		return fmt.Errorf("expected %q to succeed, got error: %v\noutput: %s",
			testCtx.LastCommand, testCtx.LastError, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theCommandShouldFail() error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected %q to fail, but it succeeded\noutput: %s",
			testCtx.LastCommand, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldContain(expectedText string) error {
	if !strings.Contains(testCtx.LastOutput, expectedText) {
		return fmt.Errorf("output does not contain %q\noutput: %s", expectedText, testCtx.LastOutput)
	}
	return nil
}

func (testCtx *TestContext) theErrorShouldMention(errorText string) error {
	if testCtx.LastError == nil {
		return fmt.Errorf("expected an error mentioning %q, but the command succeeded", errorText)
	}
	combined := testCtx.LastError.Error() + "\n" + testCtx.LastOutput
	if !strings.Contains(combined, errorText) {
		return fmt.Errorf("error does not mention %q: %v", errorText, testCtx.LastError)
	}
	return nil
}

func (testCtx *TestContext) theOutputShouldBeValidJSON() error {
	var decoded interface{}
	if err := json.Unmarshal([]byte(testCtx.LastOutput), &decoded); err != nil {
		return fmt.Errorf("output is not valid JSON: %w\noutput: %s", err, testCtx.LastOutput)
	}
	return nil
}
