package discover

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INTENTIUS/chant-sub001"
)

func writeFile(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func TestDiscover_SimpleResourceAndDependency(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}

var AccessPolicy = alpha.Policy{
	BucketArn: DataBucket.Arn,
}
`)

	graph, err := Discover(Options{
		Dirs:            []string{dir},
		LexiconPackages: map[string]string{"alpha": "alpha"},
	})
	require.NoError(t, err)
	require.Empty(t, graph.Errors)

	require.Contains(t, graph.Entities, "DataBucket")
	require.Contains(t, graph.Entities, "AccessPolicy")
	assert.Equal(t, "alpha", graph.Entities["DataBucket"].Lexicon)
	assert.Contains(t, graph.Dependencies["AccessPolicy"], "DataBucket")
	assert.Equal(t, []string{"DataBucket", "AccessPolicy"}, graph.Order)
}

func TestDiscover_UndefinedReferenceIsError(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var AccessPolicy = alpha.Policy{
	BucketArn: Missing.Arn,
}
`)
	graph, err := Discover(Options{
		Dirs:            []string{dir},
		LexiconPackages: map[string]string{"alpha": "alpha"},
	})
	require.NoError(t, err)
	require.NotEmpty(t, graph.Errors)
}

func TestDiscover_BarrelReplayPreservesFirstAppearanceOrder(t *testing.T) {
	dir := t.TempDir()
	// ForwardRef's file is loaded before DataBucket's file, but it uses the
	// barrel accessor, so it is replayed after the full first pass and
	// resolves the forward reference without losing its original Order slot.
	writeFile(t, dir, "a_forward.go", `package infra

import "example.com/alpha"

var ForwardRef = alpha.Policy{
	BucketArn: Barrel.DataBucket,
}
`)
	writeFile(t, dir, "b_bucket.go", `package infra

import "example.com/alpha"

var DataBucket = alpha.Bucket{
	Name: "data",
}
`)

	graph, err := Discover(Options{
		Dirs:            []string{dir},
		LexiconPackages: map[string]string{"alpha": "alpha"},
	})
	require.NoError(t, err)
	require.Contains(t, graph.Entities, "ForwardRef")
	require.Contains(t, graph.Entities, "DataBucket")
	assert.Contains(t, graph.Dependencies["ForwardRef"], "DataBucket")
	assert.Equal(t, "ForwardRef", graph.Order[0])
}

func TestDiscover_PropertyTypeNotPromotedToResource(t *testing.T) {
	dir := t.TempDir()
	writeFile(t, dir, "storage.go", `package infra

import "example.com/alpha"

var EncryptionRule = alpha.Bucket_ServerSideEncryptionRule{
	Algorithm: "AES256",
}
`)
	graph, err := Discover(Options{
		Dirs:            []string{dir},
		LexiconPackages: map[string]string{"alpha": "alpha"},
	})
	require.NoError(t, err)
	require.Contains(t, graph.Entities, "EncryptionRule")
	assert.Equal(t, chant.KindProperty, graph.Entities["EncryptionRule"].Kind)
}

func TestDiscover_EmptyDirectoryYieldsEmptyGraph(t *testing.T) {
	dir := t.TempDir()
	graph, err := Discover(Options{Dirs: []string{dir}, LexiconPackages: map[string]string{"alpha": "alpha"}})
	require.NoError(t, err)
	assert.Empty(t, graph.Entities)
	assert.Empty(t, graph.Errors)
}
