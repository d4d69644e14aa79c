// Package backup archives the RentBuddy database and config file as tar.gz
// and restores them.
package backup

import (
	"archive/tar"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gurman-sys/rentbuddy/internal/version"
	_ "modernc.org/sqlite" // SQLite driver
)

// ManifestName is the archive entry describing the backup.
const ManifestName = "manifest.json"

// Manifest records what a backup contains.
type Manifest struct {
	Version   string    `json:"version"`
	CreatedAt time.Time `json:"created_at"`
	Files     []string  `json:"files"`
}

// ErrExists is returned by Restore when a target file exists and force is off.
var ErrExists = errors.New("file already exists")

// Backup writes a tar.gz archive holding the SQLite database at dbPath, the
// config file at configPath when it exists, and a manifest. The WAL is
// checkpointed first so the database file is self-contained.
func Backup(ctx context.Context, dbPath, configPath, outputPath string) (Manifest, error) {
	if _, err := os.Stat(dbPath); err != nil {
		return Manifest{}, fmt.Errorf("database file not found: %w", err)
	}
	if err := checkpointWAL(ctx, dbPath); err != nil {
		return Manifest{}, fmt.Errorf("WAL checkpoint failed: %w", err)
	}

	files := map[string]string{filepath.Base(dbPath): dbPath}
	if configPath != "" {
		if _, err := os.Stat(configPath); err == nil {
			files[filepath.Base(configPath)] = configPath
		}
	}
	m := Manifest{Version: version.Short(), CreatedAt: time.Now().UTC()}
	m.Files = append(m.Files, filepath.Base(dbPath))
	if len(files) > 1 {
		m.Files = append(m.Files, filepath.Base(configPath))
	}

	outFile, err := os.Create(outputPath)
	if err != nil {
		return Manifest{}, fmt.Errorf("creating output file: %w", err)
	}
	if err := writeArchive(ctx, outFile, m, files); err != nil {
		outFile.Close()
		os.Remove(outputPath)
		return Manifest{}, err
	}
	if err := outFile.Close(); err != nil {
		return Manifest{}, fmt.Errorf("closing output file: %w", err)
	}
	return m, nil
}

func writeArchive(ctx context.Context, w io.Writer, m Manifest, files map[string]string) error {
	gw := gzip.NewWriter(w)
	tw := tar.NewWriter(gw)

	data, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return err
	}
	if err := tw.WriteHeader(&tar.Header{
		Name:    ManifestName,
		Mode:    0o644,
		Size:    int64(len(data)),
		ModTime: m.CreatedAt,
	}); err != nil {
		return err
	}
	if _, err := tw.Write(data); err != nil {
		return err
	}

	for _, name := range m.Files {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := addFileToTar(tw, files[name], name); err != nil {
			return fmt.Errorf("adding %s to archive: %w", name, err)
		}
	}
	if err := tw.Close(); err != nil {
		return err
	}
	return gw.Close()
}

// Restore extracts the archive at input into dataDir. Existing files are kept
// unless force is set.
func Restore(ctx context.Context, input, dataDir string, force bool) (Manifest, error) {
	f, err := os.Open(input)
	if err != nil {
		return Manifest{}, fmt.Errorf("opening archive: %w", err)
	}
	defer f.Close()

	gr, err := gzip.NewReader(f)
	if err != nil {
		return Manifest{}, fmt.Errorf("reading gzip: %w", err)
	}
	defer gr.Close()

	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return Manifest{}, fmt.Errorf("creating data dir: %w", err)
	}

	var m Manifest
	tr := tar.NewReader(gr)
	for {
		if err := ctx.Err(); err != nil {
			return Manifest{}, err
		}
		hdr, err := tr.Next()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return Manifest{}, fmt.Errorf("reading archive: %w", err)
		}
		if hdr.Typeflag != tar.TypeReg {
			continue
		}
		name, err := safeName(hdr.Name)
		if err != nil {
			return Manifest{}, err
		}

		if name == ManifestName {
			if err := json.NewDecoder(tr).Decode(&m); err != nil {
				return Manifest{}, fmt.Errorf("decoding manifest: %w", err)
			}
			continue
		}
		if err := extractFile(tr, filepath.Join(dataDir, name), hdr.FileInfo().Mode().Perm(), force); err != nil {
			return Manifest{}, err
		}
	}
	if len(m.Files) == 0 {
		return Manifest{}, errors.New("archive has no manifest")
	}
	return m, nil
}

// safeName rejects entries that would escape the target directory.
func safeName(name string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(name))
	if filepath.IsAbs(clean) || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || strings.ContainsRune(clean, filepath.Separator) {
		return "", fmt.Errorf("unsafe archive entry %q", name)
	}
	return clean, nil
}

func extractFile(r io.Reader, target string, perm os.FileMode, force bool) error {
	flags := os.O_WRONLY | os.O_CREATE | os.O_EXCL
	if force {
		flags = os.O_WRONLY | os.O_CREATE | os.O_TRUNC
	}
	out, err := os.OpenFile(target, flags, perm)
	if err != nil {
		if errors.Is(err, os.ErrExist) {
			return fmt.Errorf("%s: %w (use --force to overwrite)", target, ErrExists)
		}
		return fmt.Errorf("creating %s: %w", target, err)
	}
	if _, err := io.Copy(out, r); err != nil {
		out.Close()
		return fmt.Errorf("writing %s: %w", target, err)
	}
	return out.Close()
}

// checkpointWAL runs a TRUNCATE checkpoint so pending WAL pages land in the
// main database file.
func checkpointWAL(ctx context.Context, dbPath string) error {
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return err
	}
	defer db.Close()

	_, err = db.ExecContext(ctx, "PRAGMA wal_checkpoint(TRUNCATE)")
	return err
}

func addFileToTar(tw *tar.Writer, filePath, archiveName string) error {
	f, err := os.Open(filePath)
	if err != nil {
		return err
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return err
	}

	hdr, err := tar.FileInfoHeader(info, "")
	if err != nil {
		return err
	}
	hdr.Name = archiveName

	if err := tw.WriteHeader(hdr); err != nil {
		return err
	}
	_, err = io.Copy(tw, f)
	return err
}
