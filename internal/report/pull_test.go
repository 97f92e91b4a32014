package report

import (
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"strings"
	"testing"

	"github.com/fatih/color"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/danieljhkim/sourcesync/internal/metadata"
	"github.com/danieljhkim/sourcesync/internal/retrieve"
)

func TestMain(m *testing.M) {
	color.NoColor = true
	os.Exit(m.Run())
}

var (
	created   = metadata.FileResponse{FullName: "New", Type: "ApexClass", State: metadata.StatusCreated, FilePath: "force-app/classes/New.cls"}
	unchanged = metadata.FileResponse{FullName: "Same", Type: "ApexClass", State: metadata.StatusUnchanged, FilePath: "force-app/classes/Same.cls"}
	deleted   = metadata.FileResponse{FullName: "Old", Type: "ApexClass", State: metadata.StatusDeleted, FilePath: "force-app/classes/Old.cls"}
)

func TestPullFormatter_JSONOmitsZipFile(t *testing.T) {
	result := &retrieve.Result{
		ID:      "09S1",
		Status:  retrieve.StatusSucceeded,
		Success: true,
		Files:   []metadata.FileResponse{created},
		ZipFile: []byte("PK\x03\x04payload"),
	}

	f := NewPullFormatter(result, []metadata.FileResponse{deleted}, Options{})
	assert.Nil(t, f.Result().ZipFile)
	assert.NotNil(t, result.ZipFile, "caller's result must not be modified")

	data, err := json.Marshal(f.JSON())
	require.NoError(t, err)
	assert.NotContains(t, string(data), "zipFile")
	assert.NotContains(t, string(data), "payload")

	resp := f.JSON()
	assert.Equal(t, []metadata.FileResponse{created}, resp.PulledSource)
	assert.Equal(t, []metadata.FileResponse{deleted}, resp.DeletedSource)
}

func TestPullFormatter_JSONNothingRetrieved(t *testing.T) {
	data, err := json.Marshal(NewPullFormatter(nil, nil, Options{}).JSON())
	require.NoError(t, err)
	assert.JSONEq(t, `{"pulledSource":[],"deletedSource":[]}`, string(data))
}

func TestPullFormatter_DisplaySuccess(t *testing.T) {
	result := &retrieve.Result{
		ID:     "09S1",
		Status: retrieve.StatusSucceeded,
		Files:  []metadata.FileResponse{created, unchanged},
	}

	tests := []struct {
		name          string
		verbose       bool
		wantUnchanged bool
	}{
		{name: "default hides unchanged", verbose: false, wantUnchanged: false},
		{name: "verbose shows unchanged", verbose: true, wantUnchanged: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			err := NewPullFormatter(result, []metadata.FileResponse{deleted}, Options{Verbose: tt.verbose}).Display(&buf)
			require.NoError(t, err)

			out := buf.String()
			assert.Contains(t, out, "Retrieved Source")
			assert.Contains(t, out, "Deleted Source")
			assert.Contains(t, out, "STATE")
			assert.Contains(t, out, "PROJECT PATH")
			assert.Contains(t, out, "force-app/classes/New.cls")
			assert.Contains(t, out, "force-app/classes/Old.cls")
			assert.Equal(t, tt.wantUnchanged, strings.Contains(out, "Same.cls"))
			assert.NotContains(t, out, "Warnings")
		})
	}
}

func TestPullFormatter_DisplayWarnings(t *testing.T) {
	result := &retrieve.Result{
		Status:   retrieve.StatusSucceededPartial,
		Files:    []metadata.FileResponse{created},
		Messages: []retrieve.Message{{FileName: "classes/Broken.cls", Problem: "Entity of type 'ApexClass' named 'Broken' cannot be found"}},
	}

	var buf bytes.Buffer
	require.NoError(t, NewPullFormatter(result, nil, Options{}).Display(&buf))

	out := buf.String()
	assert.Contains(t, out, "Retrieved Source Warnings")
	assert.Contains(t, out, "FILE NAME")
	assert.Contains(t, out, "PROBLEM")
	assert.Contains(t, out, "classes/Broken.cls")
	assert.NotContains(t, out, "Deleted Source")
}

func TestPullFormatter_DisplayNothing(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPullFormatter(nil, nil, Options{}).Display(&buf))
	assert.Contains(t, buf.String(), "No results found")
}

func TestPullFormatter_DisplayInProgress(t *testing.T) {
	result := &retrieve.Result{ID: "09S000000000042", Status: retrieve.StatusInProgress}

	var buf bytes.Buffer
	require.NoError(t, NewPullFormatter(result, nil, Options{}).Display(&buf))
	assert.Contains(t, buf.String(), "09S000000000042")
	assert.Contains(t, buf.String(), "still in progress")
}

func TestPullFormatter_Failures(t *testing.T) {
	tests := []struct {
		name   string
		result *retrieve.Result
		want   string
	}{
		{
			name: "explicit error message",
			result: &retrieve.Result{
				Status:       retrieve.StatusFailed,
				ErrorMessage: "INVALID_CROSS_REFERENCE_KEY: no such package",
				Messages:     []retrieve.Message{{FileName: "classes/A.cls", Problem: "ignored"}},
			},
			want: "INVALID_CROSS_REFERENCE_KEY: no such package",
		},
		{
			name: "per-file messages",
			result: &retrieve.Result{
				Status: retrieve.StatusFailed,
				Messages: []retrieve.Message{
					{FileName: "classes/A.cls", Problem: "bad"},
					{FileName: "", Problem: "worse"},
				},
			},
			want: "Retrieve Failed due to: \nclasses/A.cls: bad\nunknown: worse",
		},
		{
			name:   "no messages",
			result: &retrieve.Result{Status: retrieve.StatusCanceled},
			want:   "Retrieve Failed due to: \nunknown: unknown",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := NewPullFormatter(tt.result, []metadata.FileResponse{deleted}, Options{})
			assert.Equal(t, tt.want, f.ErrorText())

			var buf bytes.Buffer
			err := f.Display(&buf)
			var failed *RetrieveFailedError
			require.True(t, errors.As(err, &failed))
			assert.Equal(t, tt.want, failed.Error())
			assert.Equal(t, tt.result.Status, failed.Status)
			assert.NotContains(t, buf.String(), "Retrieved Source")
			assert.Contains(t, buf.String(), "Deleted Source")
		})
	}
}

func TestPullFormatter_ErrorTextEmptyOnSuccess(t *testing.T) {
	f := NewPullFormatter(&retrieve.Result{Status: retrieve.StatusSucceeded, ErrorMessage: "stale"}, nil, Options{})
	assert.Empty(t, f.ErrorText())
	assert.False(t, f.Failed())
}
