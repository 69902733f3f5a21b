package git

import (
	"bufio"
	"bytes"
	"fmt"
	"os"
	"os/exec"
	"strings"
)

// ChangedPythonFiles runs git diff against baseRef and returns the .py files
// that were modified and still exist in the working tree.
func ChangedPythonFiles(baseRef string) ([]string, error) {
	cmd := exec.Command("git", "diff", "--name-only", baseRef)
	output, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("git diff failed: %w", err)
	}

	var files []string
	scanner := bufio.NewScanner(bytes.NewReader(output))
	for scanner.Scan() {
		path := strings.TrimSpace(scanner.Text())
		if path == "" || !strings.HasSuffix(path, ".py") {
			continue
		}
		if _, err := os.Stat(path); err == nil {
			files = append(files, path)
		}
	}
	return files, scanner.Err()
}
