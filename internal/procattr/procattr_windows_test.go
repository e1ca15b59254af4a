//go:build windows

package procattr

import (
	"os/exec"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSet_ConfiguresCreationFlags(t *testing.T) {
	cmd := exec.Command("cmd.exe", "/C", "echo", "test")
	require.Nil(t, cmd.SysProcAttr)

	Set(cmd)

	require.NotNil(t, cmd.SysProcAttr)
	assert.NotZero(t, cmd.SysProcAttr.CreationFlags)
}

func TestKillGroup_NilProcess(t *testing.T) {
	err := KillGroup(nil)
	assert.NoError(t, err)
}

func TestSignalGroup_NilProcess(t *testing.T) {
	err := SignalGroup(nil, 0)
	assert.NoError(t, err)
}
