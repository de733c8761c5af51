package pieces

// Piece is a single placed piece. Revealed only ever goes from false to true.
type Piece struct {
	Rank     Rank  `json:"rank"`
	Color    Color `json:"color"`
	Revealed bool  `json:"revealed"`
}

// Reveal marks the piece as permanently disclosed.
func (p *Piece) Reveal() {
	p.Revealed = true
}
