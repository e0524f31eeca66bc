package ner

import (
	"sort"
	"strings"
)

// Gazetteer maps entity tokens seen in training to their most frequent type.
type Gazetteer map[string]string

// BuildGazetteer collects every token tagged B-X or I-X.
func BuildGazetteer(sentences [][]string, tags [][]string) Gazetteer {
	counts := make(map[string]map[string]int)
	for i, toks := range sentences {
		for j, tok := range toks {
			typ := entityType(tags[i][j])
			if typ == "" {
				continue
			}
			if counts[tok] == nil {
				counts[tok] = make(map[string]int)
			}
			counts[tok][typ]++
		}
	}
	g := make(Gazetteer, len(counts))
	for tok, byType := range counts {
		types := make([]string, 0, len(byType))
		for typ := range byType {
			types = append(types, typ)
		}
		sort.Strings(types)
		best := types[0]
		for _, typ := range types {
			if byType[typ] > byType[best] {
				best = typ
			}
		}
		g[tok] = best
	}
	return g
}

func entityType(tag string) string {
	if len(tag) > 2 && (strings.HasPrefix(tag, "B-") || strings.HasPrefix(tag, "I-")) {
		return tag[2:]
	}
	return ""
}
