package cli

import (
	"os/exec"
	"strings"
)

// resolveAuthor picks the comment author: git config user.name in the
// working directory, then $USER, then "Unknown".
func resolveAuthor(a *App) string {
	cmd := exec.Command("git", "config", "user.name")
	cmd.Dir = a.WorkDir

	if out, err := cmd.Output(); err == nil {
		if name := strings.TrimSpace(string(out)); name != "" {
			return name
		}
	}

	if user := strings.TrimSpace(a.Getenv("USER")); user != "" {
		return user
	}

	return "Unknown"
}
