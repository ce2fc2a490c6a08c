package chant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsDeclarable(t *testing.T) {
	bucket := Declarable{Name: "DataBucket", Lexicon: "alpha", EntityType: "Alpha::Bucket", Kind: KindResource}
	assert.True(t, IsDeclarable(bucket))
	assert.False(t, IsDeclarable("DataBucket"))
	assert.False(t, IsDeclarable(42))
}

func TestAttrRef_Resolve(t *testing.T) {
	graph := NewEntityGraph()
	graph.Entities["DataBucket"] = Declarable{Name: "DataBucket", Lexicon: "alpha", Kind: KindResource}

	ref := AttrRef{Parent: "DataBucket", Attribute: "Endpoint"}
	d, ok := ref.Resolve(graph)
	require.True(t, ok)
	assert.Equal(t, "alpha", d.Lexicon)

	dangling := AttrRef{Parent: "NoSuchEntity", Attribute: "Arn"}
	_, ok = dangling.Resolve(graph)
	assert.False(t, ok)
}

func TestLexiconOutput_DedupKey(t *testing.T) {
	explicit := LexiconOutput{SourceParent: "DataBucket", SourceAttribute: "Endpoint", OutputName: "MyCustomName", Explicit: true}
	auto := LexiconOutput{SourceParent: "DataBucket", SourceAttribute: "Endpoint", OutputName: AutoOutputName("DataBucket", "Endpoint")}
	assert.Equal(t, explicit.DedupKey(), auto.DedupKey())
}

func TestAutoOutputName(t *testing.T) {
	assert.Equal(t, "dataBucket_Endpoint", AutoOutputName("dataBucket", "Endpoint"))
}

func TestEmptyBuildResult(t *testing.T) {
	r := EmptyBuildResult()
	assert.Empty(t, r.Outputs)
	assert.Empty(t, r.Entities)
	assert.Empty(t, r.Manifest.Lexicons)
	assert.Empty(t, r.Manifest.DeployOrder)
}

func TestDiscoveryError_Error(t *testing.T) {
	err := &DiscoveryError{File: "a.go", Message: "parse error"}
	assert.Equal(t, "a.go: parse error", err.Error())
}

func TestBuildError_Error(t *testing.T) {
	err := &BuildError{EntityName: "a", Message: "circular dependency detected"}
	assert.Contains(t, err.Error(), "circular dependency detected")
}
