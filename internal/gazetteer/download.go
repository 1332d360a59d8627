package gazetteer

import (
	"archive/zip"
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"

	"github.com/sirupsen/logrus"
)

// Source locates the geonames postal code archive.
type Source struct {
	URL string
	// CacheFile keeps a copy of the archive; it is reused when present.
	CacheFile string
	// Entry is the file inside the archive, e.g. "BR.txt".
	Entry      string
	HTTPClient *http.Client
}

// Fetch returns the places of src, reading the cached archive when it exists
// and is readable, and downloading (then caching) it otherwise.
func Fetch(ctx context.Context, src Source, log logrus.FieldLogger) ([]Place, error) {
	if log == nil {
		log = logrus.StandardLogger()
	}
	if src.Entry == "" {
		src.Entry = "BR.txt"
	}

	if src.CacheFile != "" {
		if body, err := os.ReadFile(src.CacheFile); err == nil {
			log.WithField("file", src.CacheFile).Debug("using cached gazetteer archive")
			places, err := readArchive(body, src.Entry, log)
			if err == nil {
				return places, nil
			}
			log.WithError(err).WithField("file", src.CacheFile).Warn("cached gazetteer archive is unreadable, downloading again")
		}
	}

	body, err := download(ctx, src)
	if err != nil {
		log.WithError(err).WithField("url", src.URL).Error("could not download gazetteer archive")
		return nil, err
	}

	places, err := readArchive(body, src.Entry, log)
	if err != nil {
		return nil, err
	}

	if src.CacheFile != "" {
		if err := writeCache(src.CacheFile, body); err != nil {
			log.WithError(err).WithField("file", src.CacheFile).Warn("could not cache gazetteer archive")
		}
	}
	return places, nil
}

// writeCache replaces path through a temp file in the same directory.
func writeCache(path string, body []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp cache: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(body); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp cache: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp cache: %w", err)
	}
	if err := os.Chmod(tmp.Name(), 0o644); err != nil {
		return fmt.Errorf("chmod temp cache: %w", err)
	}
	if err := os.Rename(tmp.Name(), path); err != nil {
		return fmt.Errorf("rename cache: %w", err)
	}
	return nil
}

func download(ctx context.Context, src Source) ([]byte, error) {
	client := src.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, src.URL, nil)
	if err != nil {
		return nil, fmt.Errorf("build gazetteer request: %w", err)
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download gazetteer: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download gazetteer: status %d", resp.StatusCode)
	}
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read gazetteer body: %w", err)
	}
	return body, nil
}

func readArchive(body []byte, entry string, log logrus.FieldLogger) ([]Place, error) {
	zipReader, err := zip.NewReader(bytes.NewReader(body), int64(len(body)))
	if err != nil {
		return nil, fmt.Errorf("unzip gazetteer: %w", err)
	}

	// the archive also ships a readme; only the data file matters
	for _, f := range zipReader.File {
		if f.Name != entry {
			continue
		}
		rc, err := f.Open()
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", entry, err)
		}
		defer rc.Close()
		return Parse(rc, log), nil
	}
	return nil, fmt.Errorf("gazetteer archive has no %s", entry)
}
