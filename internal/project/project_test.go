package project

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func write(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o600))
}

func TestOutputPathFromArchitect(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "angular.json", `{
		"projects": {
			"fe-app": {
				"architect": {
					"build": {
						"builder": "@angular-devkit/build-angular:browser",
						"options": {"outputPath": "dist/fe-app"}
					}
				}
			}
		}
	}`)

	out, err := OutputPath(dir, "angular.json", "fe-app")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist", "fe-app"), out)
}

func TestOutputPathApplicationBuilder(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "angular.json", `{
		"projects": {
			"plain": {"architect": {"build": {
				"builder": "@angular-devkit/build-angular:application",
				"options": {"outputPath": "dist/plain"}}}},
			"object": {"architect": {"build": {
				"builder": "@angular/build:application",
				"options": {"outputPath": {"base": "dist/object", "browser": ""}}}}},
			"nx": {"targets": {"build": {
				"builder": "@angular/build:application",
				"options": {"outputPath": {"base": "dist/nx"}}}}}
		}
	}`)

	out, err := OutputPath(dir, "angular.json", "plain")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist", "plain", "browser"), out)

	out, err = OutputPath(dir, "angular.json", "object")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist", "object"), out)

	out, err = OutputPath(dir, "angular.json", "nx")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "dist", "nx", "browser"), out)
}

func TestOutputPathErrors(t *testing.T) {
	dir := t.TempDir()
	_, err := OutputPath(dir, "angular.json", "fe-app")
	require.Error(t, err)

	write(t, dir, "angular.json", `{"projects": {"fe-app": {"architect": {"test": {}}}}}`)
	_, err = OutputPath(dir, "angular.json", "other")
	require.ErrorContains(t, err, `project "other" not found`)
	_, err = OutputPath(dir, "angular.json", "fe-app")
	require.ErrorContains(t, err, "no build target")

	write(t, dir, "angular.json", `{not json`)
	_, err = OutputPath(dir, "angular.json", "fe-app")
	require.Error(t, err)
}

func TestVersion(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "package.json", `{"name": "fe-app", "version": "0.3.14"}`)

	v, err := Version(dir, "package.json")
	require.NoError(t, err)
	assert.Equal(t, "0.3.14", v)
}

func TestVersionInvalid(t *testing.T) {
	dir := t.TempDir()
	write(t, dir, "package.json", `{"name": "fe-app"}`)
	_, err := Version(dir, "package.json")
	require.ErrorContains(t, err, "version is empty")

	write(t, dir, "package.json", `{"version": "1.0/2"}`)
	_, err = Version(dir, "package.json")
	require.ErrorContains(t, err, "invalid version")
}
