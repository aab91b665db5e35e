package abl

import (
	"fmt"
	"strings"
)

//Feature describes one binned column of the shared dataset. CountBins is the length of the
//tensor dimension the feature contributes, missing and unknown bins included.
type Feature struct {
	CountBins int
	IsMissing bool
	IsUnknown bool
	IsNominal bool
}

//GraphDescription returns the description of a feature for rendering as a graph node
func (feature Feature) GraphDescription(featureIndex int) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintln("feature", featureIndex))
	sb.WriteString(fmt.Sprintf("bins: %d", feature.CountBins))
	if feature.IsNominal {
		sb.WriteString("\nnominal")
	}
	if feature.IsMissing {
		sb.WriteString("\nmissing")
	}
	if feature.IsUnknown {
		sb.WriteString("\nunknown")
	}
	return sb.String()
}
