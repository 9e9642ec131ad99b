package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func Test_Default_IsValid(t *testing.T) {
	p := Default()
	p.Sources = []string{"main.vorth"}
	assert.NoError(t, p.Validate())
}

func Test_Load_OverlaysOntoDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "vorthc.toml")
	contents := "entry = \"start\"\nsources = [\"a.vorth\", \"b.vorth\"]\nopt = \"O2\"\n"
	require.NoError(t, os.WriteFile(path, []byte(contents), 0644))

	p, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, "start", p.Entry)
	assert.Equal(t, []string{"a.vorth", "b.vorth"}, p.Sources)
	assert.Equal(t, OptO2, p.Opt)
	assert.Equal(t, BackendDirect, p.Backend, "unset field should keep default")
	assert.Equal(t, "warn", p.Redefine, "unset field should keep default")
}

func Test_Load_MissingFile_ReturnsError(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.toml"))
	assert.Error(t, err)
}

func Test_Validate_RejectsUnknownOptLevel(t *testing.T) {
	p := Default()
	p.Sources = []string{"main.vorth"}
	p.Opt = "O9"
	assert.Error(t, p.Validate())
}

func Test_Validate_RejectsEmptySources(t *testing.T) {
	p := Default()
	assert.Error(t, p.Validate())
}

func Test_Validate_RejectsUnknownRedefinePolicy(t *testing.T) {
	p := Default()
	p.Sources = []string{"main.vorth"}
	p.Redefine = "explode"
	assert.Error(t, p.Validate())
}
