package crossref

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/INTENTIUS/chant-sub001"
)

func TestDetect_CrossLexiconReferenceAutoDetected(t *testing.T) {
	graph := chant.NewEntityGraph()
	graph.Entities["DataBucket"] = chant.Declarable{Name: "DataBucket", Lexicon: "alpha", Kind: chant.KindResource}
	graph.Entities["Deployer"] = chant.Declarable{
		Name: "Deployer", Lexicon: "github", Kind: chant.KindResource,
		Attrs: map[string]any{"BucketArn": chant.AttrRef{Parent: "DataBucket", Attribute: "Arn"}},
	}

	outputs := Detect(graph)
	require.Len(t, outputs, 1)
	assert.Equal(t, "alpha", outputs[0].SourceLexicon)
	assert.Equal(t, "DataBucket", outputs[0].SourceEntity)
	assert.Equal(t, "Arn", outputs[0].SourceAttribute)
	assert.Equal(t, "DataBucket_Arn", outputs[0].OutputName)
	assert.False(t, outputs[0].Explicit)
}

func TestDetect_SameLexiconIgnored(t *testing.T) {
	graph := chant.NewEntityGraph()
	graph.Entities["DataBucket"] = chant.Declarable{Name: "DataBucket", Lexicon: "alpha"}
	graph.Entities["Policy"] = chant.Declarable{
		Name: "Policy", Lexicon: "alpha",
		Attrs: map[string]any{"Arn": chant.AttrRef{Parent: "DataBucket", Attribute: "Arn"}},
	}
	assert.Empty(t, Detect(graph))
}

func TestDetect_DanglingReferenceSkipped(t *testing.T) {
	graph := chant.NewEntityGraph()
	graph.Entities["Deployer"] = chant.Declarable{
		Name: "Deployer", Lexicon: "github",
		Attrs: map[string]any{"Ref": chant.AttrRef{Parent: "Ghost", Attribute: "Arn"}},
	}
	assert.Empty(t, Detect(graph))
}

func TestDetect_ExplicitOutputNotReAutoDetected(t *testing.T) {
	graph := chant.NewEntityGraph()
	graph.Entities["DataBucket"] = chant.Declarable{Name: "DataBucket", Lexicon: "alpha"}
	graph.Entities["Deployer"] = chant.Declarable{
		Name: "Deployer", Lexicon: "github",
		Attrs: map[string]any{
			"Explicit": chant.LexiconOutput{SourceParent: "DataBucket", SourceAttribute: "Arn", OutputName: "CustomArn", Explicit: true},
		},
	}
	assert.Empty(t, Detect(graph))
}

func TestMerge_ExplicitWinsOverAuto(t *testing.T) {
	explicit := []chant.LexiconOutput{{SourceParent: "DataBucket", SourceAttribute: "Arn", OutputName: "CustomArn", Explicit: true}}
	auto := []chant.LexiconOutput{{SourceParent: "DataBucket", SourceAttribute: "Arn", OutputName: "DataBucket_Arn", Explicit: false}}

	merged := Merge(explicit, auto)
	require.Len(t, merged, 1)
	assert.Equal(t, "CustomArn", merged[0].OutputName)
}

func TestDeployOrder_SourcingLexiconsFirst(t *testing.T) {
	outputs := []chant.LexiconOutput{{SourceLexicon: "alpha", SourceParent: "DataBucket", SourceAttribute: "Arn"}}
	order := DeployOrder([]string{"github", "alpha"}, outputs)
	assert.Equal(t, []string{"alpha", "github"}, order)
}
