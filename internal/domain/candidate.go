package domain

// Candidate pairs a record identifier with a similarity score.
// Produced by the vector index and the lexical scorer; ordering is always
// descending score with ties broken by ascending identifier so repeated
// queries rank reproducibly.
type Candidate struct {
	ID    int     `json:"id"`
	Score float64 `json:"score"`
}
