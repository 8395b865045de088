package scenario

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/amgadabdelhafez/Dropbox-MCP-Server/toolclient"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStepTable(t *testing.T) {
	assert.Len(t, steps, TotalSteps)

	var soft []string
	for _, s := range steps {
		if s.soft {
			soft = append(soft, s.name)
		}
	}
	assert.Equal(t, []string{StepCreateSharingLink}, soft)
}

func TestRun_Record(t *testing.T) {
	run := NewRun()
	require.NoError(t, run.Record(StepResult{Index: 1, Name: StepUpdateToken, Success: true}))
	require.NoError(t, run.Record(StepResult{Index: 2, Name: StepGetAccountInfo, Error: "boom"}))

	err := run.Record(StepResult{Index: 1, Name: StepUpdateToken, Success: true})
	assert.ErrorIs(t, err, ErrDuplicateStep)
	assert.Len(t, run.Results(), 2)

	s := run.Summary()
	assert.Equal(t, 15, s.Total)
	assert.Equal(t, 1, s.Passed)
	assert.Equal(t, 1, s.Failed)
	assert.InDelta(t, 6.67, s.SuccessRate, 0.01)
	assert.False(t, run.Passed())

	failures := run.Failures()
	require.Len(t, failures, 1)
	assert.Equal(t, "boom", failures[0].Error)
}

func TestPrintSummary_Aborted(t *testing.T) {
	run := NewRun()
	require.NoError(t, run.Record(StepResult{Index: 1, Name: StepUpdateToken, Success: true}))
	require.NoError(t, run.Record(StepResult{Index: 2, Name: StepGetAccountInfo, Error: "server exited"}))

	var out bytes.Buffer
	PrintSummary(&out, run)
	assert.Contains(t, out.String(), "Total tests: 15")
	assert.Contains(t, out.String(), "Not run: 13")
	assert.Contains(t, out.String(), "  - Get account info: server exited")
}

func TestNewReport(t *testing.T) {
	run := NewRun()
	require.NoError(t, run.Record(StepResult{Index: 1, Name: StepUpdateToken, Success: true}))
	run.Abort = &StepError{Index: 2, Name: StepGetAccountInfo, Err: errors.New("denied")}

	report := NewReport(run)
	assert.Equal(t, run.ID, report.RunID)
	assert.Equal(t, "step 2 (Get account info) failed: denied", report.Aborted)

	raw, err := json.Marshal(report)
	require.NoError(t, err)
	assert.Contains(t, string(raw), `"run_id"`)
	assert.Contains(t, string(raw), `"summary":{"total":15,"passed":1,"failed":0`)
}

func TestConfig_Paths(t *testing.T) {
	cfg := DefaultConfig()
	assert.Equal(t, "/MCP Test Folder/test_file.txt", cfg.FilePath())
	assert.Equal(t, "/MCP Test Folder/test_file_copy.txt", cfg.CopyPath())
	assert.Equal(t, "/MCP Test Folder/test_file_renamed.txt", cfg.RenamedPath())

	custom := Config{Folder: "Scratch/", FileName: "notes.md"}.withDefaults()
	assert.Equal(t, "/Scratch", custom.Folder)
	assert.Equal(t, "/Scratch/notes_renamed.md", custom.RenamedPath())
	assert.Equal(t, DefaultContent, custom.Content)
	assert.Equal(t, DefaultMaxResults, custom.MaxResults)
}

func TestBase64Payload(t *testing.T) {
	tests := []struct {
		name   string
		result toolclient.Result
		want   string
		ok     bool
	}{
		{"plain text", toolclient.Result{Kind: toolclient.KindText, Text: " SGk=\n"}, "SGk=", true},
		{"json string", toolclient.Result{Kind: toolclient.KindStructured, Value: []byte(`"SGk="`)}, "SGk=", true},
		{"content field", toolclient.Result{Kind: toolclient.KindStructured, Value: []byte(`{"content":"SGk="}`)}, "SGk=", true},
		{"unexpected object", toolclient.Result{Kind: toolclient.KindStructured, Value: []byte(`{"size":2}`)}, "", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := base64Payload(tt.result)
			if !tt.ok {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestListingContains(t *testing.T) {
	listing := toolclient.Result{
		Kind:  toolclient.KindStructured,
		Value: []byte(`{"entries":[{".tag":"file","name":"test_file.txt","path_lower":"/mcp test folder/test_file.txt"}]}`),
	}
	assert.True(t, listingContains(listing, "test_file.txt"))
	assert.False(t, listingContains(listing, "test_file_renamed.txt"))
	assert.False(t, listingContains(listing, "file.txt"))

	byPath := toolclient.Result{Kind: toolclient.KindStructured, Value: []byte(`["/MCP Test Folder/Test_File_Renamed.txt"]`)}
	assert.True(t, listingContains(byPath, "test_file_renamed.txt"))

	textTests := []struct {
		name    string
		listing string
		want    bool
	}{
		{name: "one entry per line", listing: "test_file.txt\ntest_file_renamed.txt", want: true},
		{name: "tagged path", listing: "[FILE] /MCP Test Folder/test_file_renamed.txt (66 bytes)", want: true},
		{name: "end of sentence", listing: "Folder contains test_file_renamed.txt.", want: true},
		{name: "different case", listing: "TEST_FILE_RENAMED.TXT", want: true},
		{name: "longer name with prefix", listing: "old_test_file_renamed.txt", want: false},
		{name: "longer name with suffix", listing: "test_file_renamed.txt.bak", want: false},
		{name: "only the original", listing: "test_file.txt", want: false},
		{name: "empty folder", listing: "", want: false},
	}
	for _, tt := range textTests {
		t.Run(tt.name, func(t *testing.T) {
			text := toolclient.Result{Kind: toolclient.KindText, Text: tt.listing}
			assert.Equal(t, tt.want, listingContains(text, "test_file_renamed.txt"))
		})
	}
}
