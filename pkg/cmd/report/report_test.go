package report

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/redcap-tools/connector-redcap/pkg/redcap"
	"github.com/redcap-tools/connector-redcap/pkg/streams"
)

func TestReportDownloadsAndSkipsFailures(t *testing.T) {
	require := require.New(t)
	outDir := filepath.Join(t.TempDir(), "reports")

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.NoError(r.ParseForm())
		if r.PostForm.Get("report_id") == "404" {
			http.Error(w, "report not found", http.StatusBadRequest)
			return
		}
		_, _ = w.Write([]byte("a,b\n1,2\n"))
	}))
	defer server.Close()

	testIO, _, _, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	o.ReportIDs = []string{"32001", "404", "32004"}
	o.Prefix = "study"
	o.Redcap.Client = redcap.NewClient(server.URL, "tok")
	require.NoError(o.Complete([]string{outDir}))
	require.NoError(o.Run(context.Background()))

	entries, err := os.ReadDir(outDir)
	require.NoError(err)
	names := make([]string, 0, len(entries))
	for _, e := range entries {
		names = append(names, e.Name())
	}
	// the failed report is skipped, the rest still land
	require.ElementsMatch([]string{"study__report_32001.csv", "study__report_32004.csv"}, names)
}

func TestReportRequiresIDs(t *testing.T) {
	testIO, _, _, _ := streams.NewTestIO()
	o := NewOptions(testIO)
	require.Error(t, o.Complete([]string{t.TempDir()}))
}
