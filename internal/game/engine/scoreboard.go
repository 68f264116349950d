package engine

type ScoreRow struct {
	Name       string `json:"name"`
	Score      int    `json:"score"`
	Last       int    `json:"last"`
	HasLast    bool   `json:"hasLast"`
	Eliminated bool   `json:"eliminated"`
}

type Scoreboard struct {
	Round  int        `json:"round"`
	Mode   Mode       `json:"mode"`
	Target int        `json:"target"`
	Winner string     `json:"winner,omitempty"`
	Rows   []ScoreRow `json:"rows"`
}

// GetScoreboard summarises scores for display. Nil when no game is live.
func (s *Session) GetScoreboard() *Scoreboard {
	s.mu.Lock()
	defer s.mu.Unlock()
	st := s.state
	if st == nil {
		return nil
	}
	sb := &Scoreboard{
		Round:  st.Round,
		Mode:   st.Mode,
		Target: st.TargetScore,
		Winner: st.Winner,
	}
	for i, p := range st.Players {
		row := ScoreRow{Name: p.Name, Score: p.Score, Eliminated: p.Eliminated}
		if st.LastScores != nil && i < len(st.LastScores) {
			row.Last, row.HasLast = st.LastScores[i], true
		}
		sb.Rows = append(sb.Rows, row)
	}
	return sb
}
