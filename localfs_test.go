package ftp

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/require"
)

func TestWithFilesystem_OverridesDefault(t *testing.T) {
	t.Parallel()
	mem := afero.NewMemMapFs()
	c := &Client{}
	require.NoError(t, WithFilesystem(mem)(c))
	require.Same(t, mem, c.filesystem())
}

func TestFilesystem_DefaultsToOS(t *testing.T) {
	t.Parallel()
	c := &Client{}
	require.Equal(t, defaultFs, c.filesystem())
}
