package scenario

import (
	"bytes"
	"context"
	"encoding/base64"
	"os"
	"path/filepath"
	"testing"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/credential"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/fakebox"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/logger"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/testutil"
	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDriver_Run_AllStepsPass(t *testing.T) {
	tokens := credential.StaticSource("good-token")
	h := newHarness(t, "good-token", tokens, fakebox.Config{})

	run, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)
	require.Nil(t, run.Abort)

	summary := run.Summary()
	assert.Equal(t, Summary{Total: 15, Passed: 15, Failed: 0, SuccessRate: 100}, summary)
	assert.True(t, run.Passed())
	assert.False(t, run.FinishedAt.IsZero())

	var names []string
	for _, res := range run.Results() {
		names = append(names, res.Name)
	}
	assert.Equal(t, StepNames(), names)
	assert.Len(t, h.observer.steps, TotalSteps)
	assert.Equal(t, 1, h.observer.started)
	assert.Equal(t, 1, h.observer.finished)
	assert.NoError(t, h.observer.fatal)

	folder := filepath.Join(h.server.FilesDir(), "MCP Test Folder")
	data, err := os.ReadFile(filepath.Join(folder, "test_file.txt"))
	require.NoError(t, err)
	assert.Equal(t, DefaultContent, string(data))
	_, err = os.Stat(filepath.Join(folder, "test_file_renamed.txt"))
	assert.True(t, os.IsNotExist(err))
	_, err = os.Stat(filepath.Join(folder, "test_file_copy.txt"))
	assert.True(t, os.IsNotExist(err))
}

func TestDriver_Run_EachStepExecutesOnce(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{})

	_, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)

	assert.Len(t, h.transport.order, TotalSteps)
	assert.Equal(t, map[string]int{
		"update_access_token": 1,
		"get_account_info":    1,
		"list_files":          4,
		"create_folder":       1,
		"upload_file":         1,
		"get_file_metadata":   1,
		"download_file":       1,
		"get_sharing_link":    1,
		"search_files":        1,
		"copy_item":           1,
		"move_item":           1,
		"delete_item":         1,
	}, h.transport.calls)
}

func TestDriver_Run_ExistingFolderIsAccepted(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{})

	first, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)
	require.True(t, first.Passed())

	second, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)
	res, ok := second.Result(StepCreateFolder)
	require.True(t, ok)
	assert.True(t, res.Success)
	assert.True(t, second.Passed())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestDriver_Run_SharingFailureIsSoft(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{DenySharing: true})

	run, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)
	assert.Nil(t, run.Abort)

	summary := run.Summary()
	assert.Equal(t, 14, summary.Passed)
	assert.Equal(t, 1, summary.Failed)
	assert.Equal(t, summary.Total, summary.Passed+summary.Failed)

	failures := run.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, StepCreateSharingLink, failures[0].Name)
	assert.Contains(t, failures[0].Error, "missing_scope")
}

func TestDriver_Run_HardFailureAborts(t *testing.T) {
	tokens := credential.StaticSource("wrong-token")
	h := newHarness(t, "right-token", tokens, fakebox.Config{})

	run, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)

	results := run.Results()
	require.Len(t, results, 2)
	assert.True(t, results[0].Success)
	assert.False(t, results[1].Success)

	var stepErr *StepError
	require.ErrorAs(t, run.Abort, &stepErr)
	assert.Equal(t, StepGetAccountInfo, stepErr.Name)
	assert.Equal(t, 2, stepErr.Index)

	var authErr *toolclient.AuthenticationError
	assert.ErrorAs(t, run.Abort, &authErr)

	summary := run.Summary()
	assert.Less(t, summary.Passed+summary.Failed, summary.Total)
	_, ok := run.Result(StepListRoot)
	assert.False(t, ok)
}

func TestDriver_Run_RefreshesStaleToken(t *testing.T) {
	tokens := &sequenceSource{tokens: []string{"stale", "fresh"}}
	h := newHarness(t, "fresh", tokens, fakebox.Config{})

	run, err := h.driver(tokens, nil).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, run.Passed())

	assert.Equal(t, 2, h.transport.calls["update_access_token"])
	assert.Equal(t, 2, h.transport.calls["get_account_info"])
	assert.Equal(t, []string{"update_access_token", "get_account_info", "update_access_token", "get_account_info"}, h.transport.order[:4])
}

func TestDriver_Run_MissingCredentialIsFatal(t *testing.T) {
	tokens := credential.NewFileSource(filepath.Join(t.TempDir(), "token"))
	h := newHarness(t, "", tokens, fakebox.Config{})

	run, err := h.driver(tokens, nil).Run(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, credential.ErrTokenUnavailable)

	require.NotNil(t, run)
	results := run.Results()
	require.Len(t, results, 1)
	assert.Equal(t, StepUpdateToken, results[0].Name)
	assert.False(t, results[0].Success)
	assert.ErrorIs(t, h.observer.fatal, credential.ErrTokenUnavailable)
	assert.Empty(t, h.transport.order)
}

func TestDriver_Run_ContentMismatch(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{})
	caller := &overrideCaller{
		next: h.client,
		override: map[string]func() (toolclient.Result, error){
			"download_file": func() (toolclient.Result, error) {
				return toolclient.Result{Kind: toolclient.KindText, Text: base64.StdEncoding.EncodeToString([]byte("something else"))}, nil
			},
		},
	}

	run, err := h.driver(tokens, caller).Run(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, run.Abort, ErrContentMismatch)
	assert.Len(t, run.Results(), 7)
}

func TestDriver_Run_DeletionNotVisible(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{})
	caller := &overrideCaller{
		next: h.client,
		override: map[string]func() (toolclient.Result, error){
			"delete_item": func() (toolclient.Result, error) {
				return toolclient.Result{Kind: toolclient.KindStructured, Value: []byte(`{}`)}, nil
			},
		},
	}

	run, err := h.driver(tokens, caller).Run(context.Background())
	require.NoError(t, err)
	assert.ErrorIs(t, run.Abort, ErrStillPresent)

	res, ok := run.Result(StepVerifyDeletion)
	require.True(t, ok)
	assert.False(t, res.Success)
	assert.Equal(t, 14, run.Summary().Passed)
}

func TestDriver_Run_CancelledContext(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	run, err := h.driver(tokens, nil).Run(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, run.Results())
	assert.Empty(t, h.transport.order)
}

func TestDriver_ConsoleOutput(t *testing.T) {
	tokens := credential.StaticSource("tok")
	h := newHarness(t, "tok", tokens, fakebox.Config{DenySharing: true})

	var out bytes.Buffer
	driver := NewDriver(h.client, tokens, DefaultConfig(), logger.NewTestLogger(), NewConsoleObserver(&out))
	run, err := driver.Run(context.Background())
	require.NoError(t, err)
	PrintSummary(&out, run)

	text := out.String()
	assert.Contains(t, text, "✅ Update token")
	assert.Contains(t, text, "❌ Create sharing link")
	assert.Contains(t, text, "Test Summary")
	assert.Contains(t, text, "Passed: 14")
	assert.Contains(t, text, "Success rate: 93.3%")
	assert.Contains(t, text, "Failed tests:")
	assert.NotContains(t, text, "Not run")
}

// TestDriver_Run_ProcessPerCall runs the scenario with a new server process
// for every tool call.
func TestDriver_Run_ProcessPerCall(t *testing.T) {
	if testing.Short() {
		t.Skip("spawns one process per step")
	}
	root := t.TempDir()
	tokens := credential.StaticSource("proc-token")
	client := toolclient.NewClient(testutil.FakeboxTransport(t, root, "proc-token"), tokens, logger.NewTestLogger())

	run, err := NewDriver(client, tokens, DefaultConfig(), logger.NewTestLogger()).Run(context.Background())
	require.NoError(t, err)
	assert.True(t, run.Passed(), "failures: %+v", run.Failures())
}
