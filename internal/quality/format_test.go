package quality

import (
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"
)

// TestGofmt verifies that every Go source file in the repository is
// gofmt-clean: running gofmt -l over the module must report no files.
func TestGofmt(t *testing.T) {
	root, err := findModuleRoot()
	if err != nil {
		t.Fatalf("failed to find module root: %v", err)
	}

	var goFiles []string
	err = filepath.Walk(root, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			name := info.Name()
			if name == "vendor" || name == ".git" || strings.HasPrefix(name, "_") {
				return filepath.SkipDir
			}
			return nil
		}
		if strings.HasSuffix(path, ".go") {
			goFiles = append(goFiles, path)
		}
		return nil
	})
	if err != nil {
		t.Fatalf("failed to walk module: %v", err)
	}
	if len(goFiles) == 0 {
		t.Fatal("no Go files found")
	}

	out, err := exec.Command("gofmt", append([]string{"-l"}, goFiles...)...).Output()
	if err != nil {
		t.Fatalf("gofmt failed: %v", err)
	}
	if listing := strings.TrimSpace(string(out)); listing != "" {
		t.Errorf("files are not gofmt-clean:\n%s", listing)
	}
}

// findModuleRoot walks upward until it finds go.mod.
func findModuleRoot() (string, error) {
	dir, err := os.Getwd()
	if err != nil {
		return "", err
	}
	for {
		if _, err := os.Stat(filepath.Join(dir, "go.mod")); err == nil {
			return dir, nil
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", os.ErrNotExist
		}
		dir = parent
	}
}
