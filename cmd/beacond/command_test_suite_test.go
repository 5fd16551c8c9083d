package main

import (
	"bytes"
	"os"
	"path/filepath"

	"github.com/stretchr/testify/suite"
)

// CommandTestSuite runs beacond commands against in-memory output.
type CommandTestSuite struct {
	suite.Suite
}

// ExecuteCommand runs the root command with args and returns stdout, stderr and the error.
func (s *CommandTestSuite) ExecuteCommand(args ...string) (string, string, error) {
	stdout, stderr := new(bytes.Buffer), new(bytes.Buffer)
	cmd := newRootCmd()
	cmd.SetOut(stdout)
	cmd.SetErr(stderr)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return stdout.String(), stderr.String(), err
}

// WriteFile writes content to a temporary file and returns its path.
func (s *CommandTestSuite) WriteFile(name, content string) string {
	path := filepath.Join(s.T().TempDir(), name)
	s.Require().NoError(os.WriteFile(path, []byte(content), 0o600), "temp file MUST be written")
	return path
}
