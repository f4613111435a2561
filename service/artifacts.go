package service

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync/atomic"
	"time"

	"go.vocdoni.io/dvote/log"
	"golang.org/x/sync/errgroup"
)

// CheckHashes determines if the hashes of the artifacts are checked when they
// are loaded or downloaded. It can be disabled by setting the
// BALLOTD_CHECK_HASHES environment variable to false or 0.
var CheckHashes = true

// ArtifactsDir is the path where the artifact cache is expected to be found.
// If the artifacts are not found there, they are downloaded and stored. It can
// be overridden with the BALLOTD_ARTIFACTS_DIR environment variable; defaults
// to the user cache directory.
var ArtifactsDir string

func init() {
	if checkHashes := os.Getenv("BALLOTD_CHECK_HASHES"); checkHashes != "" {
		if strings.ToLower(checkHashes) == "false" || checkHashes == "0" {
			CheckHashes = false
		}
	}
	if dir := os.Getenv("BALLOTD_ARTIFACTS_DIR"); dir != "" {
		ArtifactsDir = dir
	} else {
		home, err := os.UserHomeDir()
		if err != nil || home == "" {
			log.Warnf("unable to access user home directory, using temporary directory: %v", err)
			ArtifactsDir = filepath.Join(os.TempDir(), "ballotd-artifacts")
		} else {
			ArtifactsDir = filepath.Join(home, ".cache", "ballotd-artifacts")
		}
	}
	if err := os.MkdirAll(ArtifactsDir, 0o755); err != nil {
		log.Errorf("failed to create artifacts dir %s: %v", ArtifactsDir, err)
	}
}

// Artifact holds the remote URL, the expected sha256 of the content and the
// content itself. The content is loaded from the local cache or downloaded
// from the remote URL, and its hash is checked either way.
type Artifact struct {
	RemoteURL string
	Hash      []byte
	Content   []byte
}

// Load checks if the artifact content is already in memory and, if not, loads
// it from the local cache, verifying the hash. It returns an error if the
// content is not cached locally.
func (a *Artifact) Load() error {
	if len(a.Content) != 0 {
		return nil
	}
	if len(a.Hash) == 0 {
		return fmt.Errorf("artifact hash not provided")
	}
	content, err := load(a.Hash)
	if err != nil {
		return err
	}
	if content == nil {
		return fmt.Errorf("no content found")
	}
	a.Content = content
	return nil
}

// Download fetches the content of the artifact from the remote URL, checks the
// hash and stores it in the local cache. Partial downloads are resumed.
func (a *Artifact) Download(ctx context.Context) error {
	if a.RemoteURL == "" {
		return fmt.Errorf("artifact not cached and remote url not provided")
	}
	return downloadAndStore(ctx, a.Hash, a.RemoteURL)
}

// VerificationArtifacts holds the artifacts needed to accept published
// ballots: the verifying key, the circuit settings and the KZG structured
// reference string. The server loads them once at startup; if loading fails,
// routes that change ballot state are disabled while reads keep working.
type VerificationArtifacts struct {
	verifyingKey *Artifact
	settings     *Artifact
	kzgSRS       *Artifact
}

// NewVerificationArtifacts creates a VerificationArtifacts set from the given
// artifacts.
func NewVerificationArtifacts(verifyingKey, settings, kzgSRS *Artifact) *VerificationArtifacts {
	return &VerificationArtifacts{
		verifyingKey: verifyingKey,
		settings:     settings,
		kzgSRS:       kzgSRS,
	}
}

// LoadAll loads the artifact set into memory from the local cache.
func (va *VerificationArtifacts) LoadAll() error {
	if va.verifyingKey != nil {
		if err := va.verifyingKey.Load(); err != nil {
			return fmt.Errorf("error loading verifying key: %w", err)
		}
	}
	if va.settings != nil {
		if err := va.settings.Load(); err != nil {
			return fmt.Errorf("error loading settings: %w", err)
		}
	}
	if va.kzgSRS != nil {
		if err := va.kzgSRS.Load(); err != nil {
			return fmt.Errorf("error loading kzg srs: %w", err)
		}
	}
	return nil
}

// DownloadAll downloads the artifact set concurrently with the provided
// timeout.
func (va *VerificationArtifacts) DownloadAll(timeout time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return va.verifyingKey.Download(ctx)
	})
	g.Go(func() error {
		return va.settings.Download(ctx)
	})
	g.Go(func() error {
		return va.kzgSRS.Download(ctx)
	})
	return g.Wait()
}

// VerifyingKey returns the content of the verifying key, or nil if it is not
// loaded.
func (va *VerificationArtifacts) VerifyingKey() []byte {
	if va.verifyingKey == nil {
		return nil
	}
	return va.verifyingKey.Content
}

// Settings returns the content of the circuit settings, or nil if not loaded.
func (va *VerificationArtifacts) Settings() []byte {
	if va.settings == nil {
		return nil
	}
	return va.settings.Content
}

// KzgSRS returns the content of the KZG SRS, or nil if not loaded.
func (va *VerificationArtifacts) KzgSRS() []byte {
	if va.kzgSRS == nil {
		return nil
	}
	return va.kzgSRS.Content
}

func load(hash []byte) ([]byte, error) {
	if _, err := os.Stat(ArtifactsDir); err != nil {
		if os.IsNotExist(err) {
			if err := os.MkdirAll(ArtifactsDir, os.ModePerm); err != nil {
				return nil, fmt.Errorf("error creating the artifacts directory: %w", err)
			}
		} else {
			return nil, fmt.Errorf("error checking the artifacts directory: %w", err)
		}
	}
	path := filepath.Join(ArtifactsDir, hex.EncodeToString(hash))
	if _, err := os.Stat(path); err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("error checking file %s: %w", path, err)
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading file %s: %w", path, err)
	}
	if CheckHashes {
		fileHash := sha256.Sum256(content)
		if !bytes.Equal(fileHash[:], hash) {
			return nil, fmt.Errorf("hash mismatch for file %s: expected %x, got %x", path, hash, fileHash)
		}
	}
	return content, nil
}

// progressReader wraps an io.Reader and keeps track of the total bytes read.
type progressReader struct {
	reader        io.Reader
	total         int64 // updated atomically
	contentLength int64
}

func (pr *progressReader) Read(p []byte) (int, error) {
	n, err := pr.reader.Read(p)
	atomic.AddInt64(&pr.total, int64(n))
	return n, err
}

// downloadAndStore downloads a file from a URL and stores it in the local
// cache under its hash, resuming a previous partial download if one exists.
func downloadAndStore(ctx context.Context, expectedHash []byte, fileUrl string) error {
	if _, err := url.Parse(fileUrl); err != nil {
		return fmt.Errorf("error parsing the file URL provided: %w", err)
	}
	path := filepath.Join(ArtifactsDir, hex.EncodeToString(expectedHash))
	partialPath := path + ".partial"
	parentDir := filepath.Dir(path)
	if _, err := os.Stat(parentDir); err != nil {
		return fmt.Errorf("destination path parent folder does not exist")
	}
	var startByte int64
	if info, err := os.Stat(partialPath); err == nil {
		startByte = info.Size()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileUrl, nil)
	if err != nil {
		return fmt.Errorf("error creating the file request: %w", err)
	}
	if startByte > 0 {
		req.Header.Set("Range", fmt.Sprintf("bytes=%d-", startByte))
	}
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("error performing the request: %w", err)
	}
	defer func() {
		if err := res.Body.Close(); err != nil {
			log.Warnf("error closing response body: %v", err)
		}
	}()
	if res.StatusCode != http.StatusOK && res.StatusCode != http.StatusPartialContent {
		return fmt.Errorf("error downloading file %s: http status: %d", fileUrl, res.StatusCode)
	}
	var fileMode int
	if startByte > 0 && res.StatusCode == http.StatusPartialContent {
		fileMode = os.O_APPEND | os.O_WRONLY
	} else {
		fileMode = os.O_CREATE | os.O_WRONLY | os.O_TRUNC
		startByte = 0
	}
	fd, err := os.OpenFile(partialPath, fileMode, 0o644)
	if err != nil {
		return fmt.Errorf("error opening artifact file: %w", err)
	}
	defer func() {
		if err := fd.Close(); err != nil {
			log.Warnf("error closing artifact file: %v", err)
		}
	}()
	hasher := sha256.New()
	if startByte > 0 {
		existingFile, err := os.Open(partialPath)
		if err == nil {
			if _, err := io.Copy(hasher, existingFile); err != nil {
				log.Warnf("error hashing partial file: %v", err)
			}
			if err := existingFile.Close(); err != nil {
				log.Warnf("error closing partial file: %v", err)
			}
		}
	}
	pr := &progressReader{
		reader:        res.Body,
		contentLength: res.ContentLength + startByte,
	}
	mw := io.MultiWriter(fd, hasher)
	done := make(chan error, 1)
	go func() {
		_, err := io.Copy(mw, pr)
		done <- err
	}()
	ticker := time.NewTicker(10 * time.Second)
	defer ticker.Stop()
	for {
		select {
		case err := <-done:
			if err != nil {
				return fmt.Errorf("error copying data to file: %w", err)
			}
			goto finished
		case <-ticker.C:
			total := atomic.LoadInt64(&pr.total)
			downloadedMiB := float64(total) / (1024 * 1024)
			var percentage float64
			if pr.contentLength > 0 {
				percentage = (float64(total) / float64(pr.contentLength)) * 100
			}
			log.Debugw("downloading artifact", "url", fileUrl,
				"downloaded", fmt.Sprintf("%.2fMiB", downloadedMiB),
				"progress", fmt.Sprintf("%.2f%%", percentage))
		}
	}
finished:
	if CheckHashes {
		computedHash := hasher.Sum(nil)
		if !bytes.Equal(computedHash, expectedHash) {
			if err := os.Remove(partialPath); err != nil {
				log.Warnf("error removing invalid file: %v", err)
			}
			return fmt.Errorf("hash mismatch: expected %x, got %x", expectedHash, computedHash)
		}
	}
	if err := os.Rename(partialPath, path); err != nil {
		return fmt.Errorf("error renaming file: %w", err)
	}
	return nil
}
