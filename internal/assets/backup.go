package assets

import (
	"archive/zip"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/klauspost/compress/zstd"
	"golang.org/x/crypto/blake2b"
)

const backupManifestName = "manifest.json"

// BackupManifest lists the files in a backup archive with their blake2b-256
// checksums.
type BackupManifest struct {
	RunID   string            `json:"runId"`
	Created time.Time         `json:"created"`
	Files   map[string]string `json:"files"` // project-relative path → checksum
}

func checksum(data []byte) string {
	sum := blake2b.Sum256(data)
	return hex.EncodeToString(sum[:])
}

// WriteBackup archives files (project-relative path → contents) to path
// using zstd-compressed zip entries. Returns the archive size.
func WriteBackup(path, runID string, files map[string][]byte) (int64, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return 0, fmt.Errorf("create backup dir: %w", err)
	}
	f, err := os.Create(path)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", path, err)
	}
	defer f.Close()

	if err := WriteBackupToWriter(f, runID, files); err != nil {
		return 0, err
	}
	info, err := f.Stat()
	if err != nil {
		return 0, fmt.Errorf("stat %s: %w", path, err)
	}
	return info.Size(), nil
}

// WriteBackupToWriter writes the backup archive to w.
func WriteBackupToWriter(w io.Writer, runID string, files map[string][]byte) error {
	zw := zip.NewWriter(w)
	zw.RegisterCompressor(zstd.ZipMethodWinZip, zstd.ZipCompressor())

	manifest := BackupManifest{
		RunID:   runID,
		Created: time.Now().UTC(),
		Files:   make(map[string]string, len(files)),
	}

	// Sort keys for deterministic output
	keys := make([]string, 0, len(files))
	for k := range files {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	for _, name := range keys {
		header := &zip.FileHeader{
			Name:   name,
			Method: zstd.ZipMethodWinZip,
		}
		fw, err := zw.CreateHeader(header)
		if err != nil {
			return fmt.Errorf("create entry %s: %w", name, err)
		}
		if _, err := fw.Write(files[name]); err != nil {
			return fmt.Errorf("write entry %s: %w", name, err)
		}
		manifest.Files[name] = checksum(files[name])
	}

	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	fw, err := zw.CreateHeader(&zip.FileHeader{Name: backupManifestName, Method: zip.Deflate})
	if err != nil {
		return fmt.Errorf("create manifest entry: %w", err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write manifest entry: %w", err)
	}

	return zw.Close()
}

// ReadBackup opens an archive and returns its manifest and file contents,
// verifying every checksum.
func ReadBackup(path string) (*BackupManifest, map[string][]byte, error) {
	r, err := zip.OpenReader(path)
	if err != nil {
		return nil, nil, fmt.Errorf("open backup %s: %w", path, err)
	}
	defer r.Close()
	r.RegisterDecompressor(zstd.ZipMethodWinZip, zstd.ZipDecompressor())

	files := make(map[string][]byte)
	var manifest *BackupManifest
	for _, f := range r.File {
		rc, err := f.Open()
		if err != nil {
			return nil, nil, fmt.Errorf("open %s in %s: %w", f.Name, path, err)
		}
		data, err := io.ReadAll(rc)
		rc.Close()
		if err != nil {
			return nil, nil, fmt.Errorf("read %s in %s: %w", f.Name, path, err)
		}
		if f.Name == backupManifestName {
			manifest = &BackupManifest{}
			if err := json.Unmarshal(data, manifest); err != nil {
				return nil, nil, fmt.Errorf("parse manifest: %w", err)
			}
			continue
		}
		files[f.Name] = data
	}
	if manifest == nil {
		return nil, nil, fmt.Errorf("%s has no %s", path, backupManifestName)
	}
	for name, want := range manifest.Files {
		data, ok := files[name]
		if !ok {
			return nil, nil, fmt.Errorf("%s missing from %s", name, path)
		}
		if got := checksum(data); got != want {
			return nil, nil, fmt.Errorf("checksum mismatch for %s in %s", name, path)
		}
	}
	return manifest, files, nil
}

// RestoreBackup writes every archived file back under root.
func RestoreBackup(path, root string) ([]string, error) {
	_, files, err := ReadBackup(path)
	if err != nil {
		return nil, err
	}
	names := make([]string, 0, len(files))
	for name := range files {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		dest := filepath.Join(root, filepath.FromSlash(name))
		if !isWithin(root, dest) {
			return nil, fmt.Errorf("refusing to restore %s outside project", name)
		}
		if err := writeFileAtomic(dest, files[name]); err != nil {
			return nil, err
		}
	}
	return names, nil
}

func isWithin(root, path string) bool {
	rel, err := filepath.Rel(root, path)
	if err != nil {
		return false
	}
	return rel != ".." && !filepath.IsAbs(rel) && !startsWithParent(rel)
}

func startsWithParent(rel string) bool {
	return len(rel) >= 3 && rel[:3] == ".."+string(filepath.Separator)
}
