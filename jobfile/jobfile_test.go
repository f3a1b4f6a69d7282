package jobfile

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const yamlJob = `
job:
  category: nightly
  keep_tmp: true
  timeout: 30m
  log_level: info
  options:
    region: eu
suites:
  - name: unit
    workdir: src
    env: [FOO=bar]
    tests:
      - name: build
        command: [make, build]
        timeout: 90s
      - command: [make, test]
  - tests:
      - command: ["true"]
`

const tomlJob = `
[job]
category = "nightly"
keep_tmp = true
timeout = "30m"
log_level = "info"

[job.options]
region = "eu"

[[suites]]
name = "unit"
workdir = "src"
env = ["FOO=bar"]

[[suites.tests]]
name = "build"
command = ["make", "build"]
timeout = "90s"

[[suites.tests]]
command = ["make", "test"]

[[suites]]
[[suites.tests]]
command = ["true"]
`

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoad_YAMLAndTOMLAgree(t *testing.T) {
	for _, tc := range []struct {
		name    string
		file    string
		content string
	}{
		{name: "yaml", file: "job.yaml", content: yamlJob},
		{name: "yml", file: "job.yml", content: yamlJob},
		{name: "toml", file: "job.toml", content: tomlJob},
	} {
		t.Run(tc.name, func(t *testing.T) {
			path := writeFile(t, tc.file, tc.content)
			f, err := Load(path)
			require.NoError(t, err)

			cfg := f.JobConfig()
			assert.Equal(t, "nightly", cfg.Category)
			assert.True(t, cfg.KeepTmp)
			assert.Equal(t, 30*time.Minute, cfg.Timeout)
			assert.Equal(t, "info", cfg.LogLevel)
			assert.Equal(t, map[string]string{"region": "eu"}, cfg.Options)

			require.Len(t, f.Suites, 2)
			unit := f.Suites[0]
			assert.Equal(t, "unit", unit.Name)
			assert.Equal(t, filepath.Join(filepath.Dir(path), "src"), unit.WorkDir)
			assert.Equal(t, []string{"FOO=bar"}, unit.Env)
			require.Len(t, unit.Tests, 2)
			assert.Equal(t, "build", unit.Tests[0].Name)
			assert.Equal(t, []string{"make", "build"}, unit.Tests[0].Command)
			assert.Equal(t, 90*time.Second, unit.Tests[0].Timeout)
			assert.Empty(t, f.Suites[1].Name)
		})
	}
}

func TestLoad_UnknownExtension(t *testing.T) {
	_, err := Load(writeFile(t, "job.json", "{}"))
	assert.ErrorContains(t, err, "unsupported job file extension")
}

func TestParse_RejectsUnknownKeys(t *testing.T) {
	_, err := Parse([]byte("job:\n  colour: blue\n"), FormatYAML)
	assert.Error(t, err)

	_, err = Parse([]byte("[job]\ncolour = \"blue\"\n"), FormatTOML)
	assert.ErrorContains(t, err, "colour")
}

func TestParse_Empty(t *testing.T) {
	f, err := Parse(nil, FormatYAML)
	require.NoError(t, err)
	assert.Empty(t, f.Suites)
}

func TestJobConfig_IsACopy(t *testing.T) {
	f, err := Parse([]byte(yamlJob), FormatYAML)
	require.NoError(t, err)
	cfg := f.JobConfig()
	cfg.Options["region"] = "us"
	assert.Equal(t, "eu", f.Job.Options["region"])
}
