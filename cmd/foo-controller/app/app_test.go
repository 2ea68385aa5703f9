package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-logr/logr"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sunyakun/foo-controller/pkg/config"
	"github.com/sunyakun/foo-controller/pkg/controller"
	"github.com/sunyakun/foo-controller/pkg/manager"
	"github.com/sunyakun/foo-controller/pkg/state"
)

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand()
	cmd.SetArgs(args)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func newServer(t *testing.T) (*manager.Manager, *httptest.Server) {
	t.Helper()
	cfg := config.Default()
	cfg.Backend = config.BackendMemory
	m, err := manager.New(cfg, logr.Discard())
	require.NoError(t, err)
	srv := httptest.NewServer(m.Handler())
	t.Cleanup(srv.Close)
	return m, srv
}

func writeFile(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, ExitCodeSuccess, exitCode(nil))
	assert.Equal(t, ExitCodeError, exitCode(errors.New("boom")))
	assert.Equal(t, ExitCodePrerequisiteMissing, exitCode(errors.Wrap(controller.ErrPrerequisiteMissing, "foos not served")))
}

func TestConfigFileAndFlags(t *testing.T) {
	path := writeFile(t, "config.yaml", `
backend: memory
workers: 8
listen: ":9090"
log:
  level: debug
`)
	opts := &options{config: config.Default()}
	cmd := newRootCommand(opts)
	cmd.AddCommand(&cobra.Command{Use: "noop", RunE: func(*cobra.Command, []string) error { return nil }})
	cmd.SetArgs([]string{"--config", path, "--workers", "2", "noop"})
	require.NoError(t, cmd.Execute())

	assert.Equal(t, config.BackendMemory, opts.config.Backend)
	assert.Equal(t, 2, opts.config.Workers)
	assert.Equal(t, ":9090", opts.config.Listen)
	assert.Equal(t, "debug", opts.config.Log.Level)
}

func TestFooCommands(t *testing.T) {
	m, srv := newServer(t)

	path := writeFile(t, "foo.yaml", `
metadata:
  name: sample
spec:
  name: sample
  info: something bad happened
`)
	out, err := execute(t, "--api-server", srv.URL, "foo", "apply", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "foo default/sample created")

	stored, err := m.Resource().Get(context.Background(), "default/sample")
	require.NoError(t, err)
	assert.Equal(t, "something bad happened", stored.Spec.Info)

	path = writeFile(t, "foo.json", `{"metadata": {"name": "sample"}, "spec": {"name": "sample", "info": "fine"}}`)
	out, err = execute(t, "--api-server", srv.URL, "foo", "apply", "-f", path)
	require.NoError(t, err)
	assert.Contains(t, out, "foo default/sample configured")

	out, err = execute(t, "--api-server", srv.URL, "foo", "get", "sample", "-o", "json")
	require.NoError(t, err)
	var got map[string]any
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "fine", got["spec"].(map[string]any)["info"])

	out, err = execute(t, "--api-server", srv.URL, "foo", "list", "-o", "table")
	require.NoError(t, err)
	assert.Contains(t, out, "│ NAMESPACE │ NAME")
	assert.Contains(t, out, "sample")

	out, err = execute(t, "--api-server", srv.URL, "foo", "delete", "default/sample")
	require.NoError(t, err)
	assert.Contains(t, out, "deleted")

	_, err = execute(t, "--api-server", srv.URL, "foo", "get", "sample")
	assert.Error(t, err)
}

func TestFooCommandsRequireServer(t *testing.T) {
	_, err := execute(t, "foo", "list")
	assert.ErrorContains(t, err, "--api-server")
}

func TestFooApplyRequiresFilename(t *testing.T) {
	_, srv := newServer(t)
	_, err := execute(t, "--api-server", srv.URL, "foo", "apply")
	assert.ErrorContains(t, err, `required flag(s) "filename" not set`)
}

func TestReadFoo(t *testing.T) {
	foo, err := readFoo("-", bytes.NewBufferString("metadata: {namespace: team-a, name: x}\nspec: {info: bad}\n"))
	require.NoError(t, err)
	assert.Equal(t, "team-a/x", foo.GetKey())
	assert.Equal(t, "bad", foo.Spec.Info)

	_, err = readFoo("-", bytes.NewBufferString("spec: {info: bad}\n"))
	assert.ErrorContains(t, err, "metadata.name")
}

func TestStateCommand(t *testing.T) {
	_, srv := newServer(t)
	out, err := execute(t, "state", "--address", srv.URL+"/")
	require.NoError(t, err)

	var snap state.Snapshot
	require.NoError(t, json.Unmarshal([]byte(out), &snap))
	assert.Equal(t, int64(0), snap.HandledCount)
	assert.WithinDuration(t, time.Now(), snap.LastEvent, time.Minute)
}

func TestRunPrerequisiteMissing(t *testing.T) {
	srv := httptest.NewServer(nil)
	url := srv.URL
	srv.Close()

	_, err := execute(t, "--backend", "http", "--api-server", url, "--listen", "127.0.0.1:0", "run")
	assert.ErrorIs(t, err, controller.ErrPrerequisiteMissing)
	assert.Equal(t, ExitCodePrerequisiteMissing, exitCode(err))
}
