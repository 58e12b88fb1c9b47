// Package project reads the Angular workspace and package descriptors of the
// application being deployed.
package project

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

const applicationBuilderSuffix = ":application"

type workspace struct {
	Projects map[string]workspaceProject `json:"projects"`
}

type workspaceProject struct {
	Architect map[string]target `json:"architect"`
	Targets   map[string]target `json:"targets"`
}

type target struct {
	Builder string `json:"builder"`
	Options struct {
		OutputPath json.RawMessage `json:"outputPath"`
	} `json:"options"`
}

type outputPathObject struct {
	Base    string  `json:"base"`
	Browser *string `json:"browser"`
}

// OutputPath returns the absolute build output directory of project as
// declared in the workspace file found in dir.
func OutputPath(dir, workspaceFile, project string) (string, error) {
	path := filepath.Join(dir, workspaceFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read workspace: %w", err)
	}
	var ws workspace
	if err := json.Unmarshal(data, &ws); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	proj, ok := ws.Projects[project]
	if !ok {
		return "", fmt.Errorf("project %q not found in %s", project, path)
	}
	build, ok := proj.Architect["build"]
	if !ok {
		build, ok = proj.Targets["build"]
	}
	if !ok {
		return "", fmt.Errorf("project %q has no build target in %s", project, path)
	}
	out, err := resolveOutputPath(build)
	if err != nil {
		return "", fmt.Errorf("project %q: %w", project, err)
	}
	if filepath.IsAbs(out) {
		return filepath.Clean(out), nil
	}
	return filepath.Join(dir, filepath.FromSlash(out)), nil
}

// The application builder writes browser files into a "browser" folder below
// outputPath unless the object form overrides it.
func resolveOutputPath(t target) (string, error) {
	raw := t.Options.OutputPath
	if len(raw) == 0 || string(raw) == "null" {
		return "", errors.New("build options have no outputPath")
	}

	var asString string
	if err := json.Unmarshal(raw, &asString); err == nil {
		if asString == "" {
			return "", errors.New("build options have an empty outputPath")
		}
		if strings.HasSuffix(t.Builder, applicationBuilderSuffix) {
			return asString + "/browser", nil
		}
		return asString, nil
	}

	var obj outputPathObject
	if err := json.Unmarshal(raw, &obj); err != nil {
		return "", fmt.Errorf("unsupported outputPath: %s", string(raw))
	}
	if obj.Base == "" {
		return "", errors.New("outputPath.base is empty")
	}
	browser := "browser"
	if obj.Browser != nil {
		browser = *obj.Browser
	}
	if browser == "" {
		return obj.Base, nil
	}
	return obj.Base + "/" + browser, nil
}

type packageDescriptor struct {
	Version string `json:"version"`
}

// Version returns the version field of the package descriptor in dir.
func Version(dir, packageFile string) (string, error) {
	path := filepath.Join(dir, packageFile)
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read package descriptor: %w", err)
	}
	var pkg packageDescriptor
	if err := json.Unmarshal(data, &pkg); err != nil {
		return "", fmt.Errorf("parse %s: %w", path, err)
	}
	if err := ValidateVersion(pkg.Version); err != nil {
		return "", fmt.Errorf("%s: %w", path, err)
	}
	return pkg.Version, nil
}

// ValidateVersion rejects versions that cannot name a directory or an object
// key segment.
func ValidateVersion(v string) error {
	switch {
	case v == "":
		return errors.New("version is empty")
	case v == "." || v == "..":
		return fmt.Errorf("invalid version %q", v)
	case strings.ContainsAny(v, "/\\ \t\r\n"):
		return fmt.Errorf("invalid version %q: contains a separator or whitespace", v)
	}
	return nil
}
