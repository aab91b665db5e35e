package abl

import (
	"fmt"
	"path"

	"github.com/goccy/go-graphviz"
	"github.com/goccy/go-graphviz/cgraph"
	"github.com/pkg/errors"
)

//DrawGraph draws features as boxes and terms as ellipses with an edge from every feature to
//the terms that use it.
func (core *BoosterCore) DrawGraph() (*graphviz.Graphviz, *cgraph.Graph) {
	graphViz := graphviz.New()
	graph, err := graphViz.Graph()
	HandleError(err)

	featureNodes := make([]*cgraph.Node, len(core.features))
	for featureIndex, feature := range core.features {
		node, err := graph.CreateNode(fmt.Sprintf("f_%d", featureIndex))
		HandleError(err)
		node.Set("label", feature.GraphDescription(featureIndex))
		node.Set("shape", "box")
		featureNodes[featureIndex] = node
	}

	for _, term := range core.terms {
		termNode, err := graph.CreateNode(fmt.Sprintf("t_%d", term.Index))
		HandleError(err)
		termNode.Set("label", term.GraphDescription(core.countScores))
		for _, termFeature := range term.TermFeatures {
			_, err := graph.CreateEdge("", featureNodes[termFeature.FeatureIndex], termNode)
			HandleError(err)
		}
	}

	return graphViz, graph
}

//RenderTerms writes the feature to term graph into picturesDirectory as png, svg or jpg.
func (core *BoosterCore) RenderTerms(dumpPrefix, figureType, picturesDirectory string) error {
	graphvizType, ok := map[string]graphviz.Format{
		"png": graphviz.PNG,
		"svg": graphviz.SVG,
		"jpg": graphviz.JPG,
	}[figureType]
	if !ok {
		return errors.Wrapf(ErrIllegalParamVal, "unknown figure type %q", figureType)
	}

	graphViz, graph := core.DrawGraph()
	defer func() {
		HandleError(graph.Close())
		graphViz.Close()
	}()

	filename := fmt.Sprintf("%s.%s", dumpPrefix, figureType)
	return graphViz.RenderFilename(graph, graphvizType, path.Join(picturesDirectory, filename))
}
