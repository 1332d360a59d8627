package gazetteer

import (
	"archive/zip"
	"bytes"
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thomhuang/CepLookup/internal/address"
)

const sampleTSV = "BR\t01001-000\tSé\tSão Paulo\tSP\t\t\t\t\t-23.5503\t-46.6339\t4\n" +
	"BR\t05422-000\tPinheiros\tSão Paulo\tSP\t\t\t\t\t-23.5614\t-46.6826\t4\n" +
	"BR\t20040-020\tCentro\tRio de Janeiro\tRJ\t\t\t\t\t-22.9035\t-43.1765\t4\n" +
	"BR\t99999-999\tNowhere\tNowhere\tXX\t\t\t\t\tnorth\t-43.0\t4\n" +
	"BR\ttoo\tfew\tfields\n"

func samplePlaces(t *testing.T) []Place {
	t.Helper()
	logger, _ := logtest.NewNullLogger()
	return Parse(strings.NewReader(sampleTSV), logger)
}

func TestParseSkipsBadRows(t *testing.T) {
	logger, hook := logtest.NewNullLogger()
	places := Parse(strings.NewReader(sampleTSV), logger)

	require.Len(t, places, 3)
	assert.Equal(t, Place{PostalCode: "01001-000", City: "Sé", StateCode: "SP", Latitude: -23.5503, Longitude: -46.6339}, places[0])
	assert.Len(t, hook.AllEntries(), 2)
}

func TestLocateExactAndByPrefix(t *testing.T) {
	g := New(samplePlaces(t))
	assert.Equal(t, 3, g.Len())

	p, ok := g.Locate("01001000")
	require.True(t, ok)
	assert.Equal(t, "Sé", p.City)

	p, ok = g.Locate("01001-999")
	require.True(t, ok)
	assert.Equal(t, "01001-000", p.PostalCode)

	_, ok = g.Locate("70000000")
	assert.False(t, ok)
}

func TestWithinUsesExactDistance(t *testing.T) {
	g := New(samplePlaces(t))

	near, err := g.Within("01001-000", 10)
	require.NoError(t, err)
	require.Len(t, near, 2)
	assert.Equal(t, "01001-000", near[0].Place.PostalCode)
	assert.Zero(t, near[0].Km)
	assert.Equal(t, "05422-000", near[1].Place.PostalCode)
	assert.InDelta(t, 5.1, near[1].Km, 0.5)

	near, err = g.Within("01001000", 3)
	require.NoError(t, err)
	assert.Len(t, near, 1)

	_, err = g.Within("70000000", 10)
	assert.ErrorIs(t, err, ErrUnknownPostalCode)
}

func TestNearFiltersSavedRecords(t *testing.T) {
	g := New(samplePlaces(t))
	saved := []address.Record{
		{PostalCode: "20040-020", City: "Rio de Janeiro"},
		{PostalCode: "05422-000", City: "São Paulo"},
		{PostalCode: "70000-000", City: "Brasília"},
		{PostalCode: "01001-000", City: "São Paulo"},
	}

	matches, err := g.Near("01001000", saved, 25)
	require.NoError(t, err)
	require.Len(t, matches, 2)
	assert.Equal(t, "01001-000", matches[0].Record.PostalCode)
	assert.Equal(t, "05422-000", matches[1].Record.PostalCode)

	matches, err = g.Near("01001000", saved, 500)
	require.NoError(t, err)
	assert.Len(t, matches, 3)
	assert.Equal(t, "20040-020", matches[2].Record.PostalCode)
}

func archive(t *testing.T) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	readme, err := zw.Create("readme.txt")
	require.NoError(t, err)
	_, err = readme.Write([]byte("geonames postal codes"))
	require.NoError(t, err)
	data, err := zw.Create("BR.txt")
	require.NoError(t, err)
	_, err = data.Write([]byte(sampleTSV))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestFetchDownloadsThenUsesCache(t *testing.T) {
	body := archive(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	logger, _ := logtest.NewNullLogger()
	src := Source{URL: srv.URL + "/BR.zip", CacheFile: filepath.Join(t.TempDir(), "BR.zip")}

	places, err := Fetch(context.Background(), src, logger)
	require.NoError(t, err)
	assert.Len(t, places, 3)

	cached, err := os.ReadFile(src.CacheFile)
	require.NoError(t, err)
	assert.Equal(t, body, cached)

	places, err = Fetch(context.Background(), src, logger)
	require.NoError(t, err)
	assert.Len(t, places, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchReportsDownloadFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer srv.Close()

	logger, _ := logtest.NewNullLogger()
	_, err := Fetch(context.Background(), Source{URL: srv.URL}, logger)
	assert.Error(t, err)
}

func TestFetchRequiresEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "US.zip")
	require.NoError(t, os.WriteFile(path, archive(t), 0o644))

	logger, _ := logtest.NewNullLogger()
	_, err := Fetch(context.Background(), Source{CacheFile: path, Entry: "US.txt"}, logger)
	assert.Error(t, err)
}

func TestFetchReplacesTruncatedCache(t *testing.T) {
	body := archive(t)
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		_, _ = w.Write(body)
	}))
	defer srv.Close()

	dir := t.TempDir()
	src := Source{URL: srv.URL + "/BR.zip", CacheFile: filepath.Join(dir, "BR.zip")}
	require.NoError(t, os.WriteFile(src.CacheFile, body[:len(body)/2], 0o644))

	logger, hook := logtest.NewNullLogger()
	places, err := Fetch(context.Background(), src, logger)
	require.NoError(t, err)
	assert.Len(t, places, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
	var warned bool
	for _, e := range hook.AllEntries() {
		if e.Level == logrus.WarnLevel && strings.Contains(e.Message, "cached gazetteer archive is unreadable") {
			warned = true
		}
	}
	assert.True(t, warned)

	cached, err := os.ReadFile(src.CacheFile)
	require.NoError(t, err)
	assert.Equal(t, body, cached)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Len(t, entries, 1)

	places, err = Fetch(context.Background(), src, logger)
	require.NoError(t, err)
	assert.Len(t, places, 3)
	assert.Equal(t, int32(1), atomic.LoadInt32(&hits))
}

func TestFetchKeepsCacheWhenDownloadIsNotAnArchive(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte("<html>maintenance</html>"))
	}))
	defer srv.Close()

	logger, _ := logtest.NewNullLogger()
	src := Source{URL: srv.URL + "/BR.zip", CacheFile: filepath.Join(t.TempDir(), "BR.zip")}

	_, err := Fetch(context.Background(), src, logger)
	assert.Error(t, err)
	_, err = os.Stat(src.CacheFile)
	assert.True(t, os.IsNotExist(err))
}
