package testsupport

import (
	"os"
	"path/filepath"
	"testing"
)

// WriteFile fills the target path with the requested number of bytes using a
// simple repeating pattern. A size <= 0 writes a single byte.
func WriteFile(t testing.TB, path string, size int64) {
	t.Helper()

	if size <= 0 {
		size = 1
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir for %s: %v", path, err)
	}
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	const chunkSize = 32 * 1024
	buf := make([]byte, chunkSize)
	for i := range buf {
		buf[i] = 0x42
	}

	remaining := size
	for remaining > 0 {
		toWrite := min(int64(chunkSize), remaining)
		if _, err := f.Write(buf[:toWrite]); err != nil {
			t.Fatalf("write %s: %v", path, err)
		}
		remaining -= toWrite
	}
}

// WriteMediaFiles creates placeholder audio files under the config media
// directory for every file reference and returns their absolute paths.
func WriteMediaFiles(t testing.TB, mediaDir string, refs ...string) []string {
	t.Helper()

	paths := make([]string, 0, len(refs))
	for _, ref := range refs {
		path := filepath.Join(mediaDir, filepath.FromSlash(ref))
		WriteFile(t, path, 128)
		paths = append(paths, path)
	}
	return paths
}
