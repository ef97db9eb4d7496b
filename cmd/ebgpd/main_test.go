package main

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestRootCmdDefaultsConfigPath(t *testing.T) {
	cmd := newRootCmd()
	flag := cmd.Flags().Lookup("config")
	require.NotNil(t, flag)
	require.Equal(t, "/etc/ebgpd/ebgpd.yaml", flag.DefValue)
}

func TestRootCmdRunFailsOnMissingConfig(t *testing.T) {
	cmd := newRootCmd()
	cmd.SetArgs([]string{"--config", "/nonexistent/ebgpd.yaml"})
	err := cmd.Execute()
	require.Error(t, err)
}
