package tfidf

import "math"

// Document-term matrix builder & TF-IDF scorer.
type Corpus struct {
	Docs       [][]string
	DF         map[string]int
	IDF        map[string]float64
	Unseen     float64 // IDF of a term no document contains
	TFIDFCache []map[string]float64
}

func NewCorpus(docs [][]string) *Corpus {
	c := &Corpus{Docs: docs, DF: make(map[string]int)}
	// Document frequencies
	for _, doc := range docs {
		seen := make(map[string]bool)
		for _, w := range doc {
			if !seen[w] {
				c.DF[w]++
				seen[w] = true
			}
		}
	}
	// IDF
	N := float64(len(docs))
	c.IDF = make(map[string]float64)
	for w, df := range c.DF {
		c.IDF[w] = math.Log(N/float64(df)) + 1.0
	}
	c.Unseen = math.Log(math.Max(N, 1)) + 1.0
	c.index(docs)
	return c
}

// FromIDF rebuilds a corpus from stored IDF weights and indexes docs with them.
func FromIDF(idf map[string]float64, unseen float64, docs [][]string) *Corpus {
	c := &Corpus{IDF: idf, Unseen: unseen}
	c.index(docs)
	return c
}

func (c *Corpus) index(docs [][]string) {
	c.Docs = docs
	c.TFIDFCache = make([]map[string]float64, len(docs))
	for i, doc := range docs {
		c.TFIDFCache[i] = c.Vector(doc)
	}
}

// Weight is the IDF of w.
func (c *Corpus) Weight(w string) float64 {
	if idf, ok := c.IDF[w]; ok {
		return idf
	}
	return c.Unseen
}

// Vector returns the TF-IDF vector of doc.
func (c *Corpus) Vector(doc []string) map[string]float64 {
	tf := make(map[string]int)
	for _, w := range doc {
		tf[w]++
	}
	m := make(map[string]float64, len(tf))
	for w, cnt := range tf {
		m[w] = float64(cnt) / float64(len(doc)) * c.Weight(w)
	}
	return m
}

// Cosine is the cosine similarity of two sparse vectors, 0 if either is empty.
func Cosine(a, b map[string]float64) float64 {
	num, denA, denB := 0.0, 0.0, 0.0
	for w, av := range a {
		num += av * b[w]
		denA += av * av
	}
	for _, bv := range b {
		denB += bv * bv
	}
	if denA == 0 || denB == 0 {
		return 0
	}
	return num / (math.Sqrt(denA) * math.Sqrt(denB))
}

// Similarities returns the cosine similarity of query to each indexed doc.
func (c *Corpus) Similarities(query []string) []float64 {
	qvec := c.Vector(query)
	sims := make([]float64, len(c.TFIDFCache))
	for i, docvec := range c.TFIDFCache {
		sims[i] = Cosine(qvec, docvec)
	}
	return sims
}
