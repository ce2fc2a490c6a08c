package build

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INTENTIUS/chant-sub001"
)

type fakeSerializer struct {
	name string
}

func (f fakeSerializer) Name() string       { return f.name }
func (f fakeSerializer) RulePrefix() string { return "" }

func (f fakeSerializer) Serialize(entities map[string]chant.Declarable, outputs []chant.LexiconOutput) (any, error) {
	names := make([]string, 0, len(entities))
	for name := range entities {
		names = append(names, name)
	}
	payload := map[string]any{"lexicon": f.name, "entities": names, "outputCount": len(outputs)}
	b, err := json.Marshal(payload)
	return string(b), err
}

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestBuild_EmptyProjectYieldsEmptyResult(t *testing.T) {
	dir := t.TempDir()
	driver := New(map[string]string{"alpha": "alpha"})
	driver.Register(fakeSerializer{name: "alpha"})

	result := driver.Build(dir)
	assert.Empty(t, result.Entities)
	assert.Empty(t, result.Outputs)
	assert.Empty(t, result.Manifest.Lexicons)
}

func TestBuild_SingleLexiconSerializes(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}
`)
	driver := New(map[string]string{"alpha": "alpha"})
	driver.Register(fakeSerializer{name: "alpha"})

	result := driver.Build(dir)
	require.Empty(t, result.Errors)
	require.Contains(t, result.Outputs, "alpha")
	assert.Contains(t, result.Outputs["alpha"], "DataBucket")
	assert.Equal(t, []string{"alpha"}, result.Manifest.Lexicons)
}

func TestBuild_CrossLexiconOutputReachesConsumingSerializer(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}
`)
	writeFile(t, dir, "deploy.go", `package infra

import "example.com/ghub"

var Deployer = ghub.Action{
	BucketArn: DataBucket.Arn,
}
`)
	driver := New(map[string]string{"alpha": "alpha", "ghub": "github"})
	driver.Register(fakeSerializer{name: "alpha"})
	driver.Register(fakeSerializer{name: "github"})

	result := driver.Build(dir)
	require.Empty(t, result.Errors)
	require.Len(t, result.Manifest.Outputs, 1)
	for name, out := range result.Manifest.Outputs {
		assert.Equal(t, "DataBucket_Arn", name)
		assert.Equal(t, "alpha", out.Source)
	}
	assert.Equal(t, []string{"alpha", "github"}, result.Manifest.DeployOrder)
}

func TestBuild_ExplicitOutputOverridesAuto(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}
`)
	writeFile(t, dir, "deploy.go", `package infra

import (
	"github.com/INTENTIUS/chant-sub001"
	"example.com/ghub"
)

var Deployer = ghub.Action{
	BucketArn: DataBucket.Arn,
	Export:    chant.Output(DataBucket.Arn, "MyCustomName"),
}
`)
	driver := New(map[string]string{"alpha": "alpha", "ghub": "github"})
	driver.Register(fakeSerializer{name: "alpha"})
	driver.Register(fakeSerializer{name: "github"})

	result := driver.Build(dir)
	require.Empty(t, result.Errors)
	require.Len(t, result.Manifest.Outputs, 1)
	for name, out := range result.Manifest.Outputs {
		assert.Equal(t, "MyCustomName", name)
		assert.Equal(t, "alpha", out.Source)
		assert.Equal(t, "DataBucket", out.Entity)
		assert.Equal(t, "Arn", out.Attribute)
	}
}

func TestBuild_MissingSerializerWarns(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}
`)
	driver := New(map[string]string{"alpha": "alpha"})
	result := driver.Build(dir)
	require.Empty(t, result.Errors)
	assert.NotEmpty(t, result.Warnings)
}

func TestBuild_CircularNestedStackDetected(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "child.go", `package infra

import "github.com/INTENTIUS/chant-sub001"

var Nested = chant.ChildProject{
	Path: ".",
}
`)
	driver := New(map[string]string{"alpha": "alpha"})
	driver.Register(fakeSerializer{name: "alpha"})
	result := driver.Build(dir)
	found := false
	for _, e := range result.Errors {
		if be, ok := e.(*chant.BuildError); ok && be.EntityName == "Nested" {
			found = true
		}
	}
	assert.True(t, found)
}
