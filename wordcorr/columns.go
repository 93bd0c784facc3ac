package wordcorr

// ColumnCandidates defines possible header names for auto-detecting reference columns.
type ColumnCandidates struct {
	Word []string `json:"word"`
	Low  []string `json:"low"`
	Med  []string `json:"med"`
	High []string `json:"high"`
}

func defaultColumnCandidates() ColumnCandidates {
	return ColumnCandidates{
		Word: []string{"words", "word", "term", "token", "text"},
		Low:  []string{"low"},
		Med:  []string{"med", "medium"},
		High: []string{"high"},
	}
}

// DefaultColumnCandidates returns the built-in column detection candidates.
func DefaultColumnCandidates() ColumnCandidates {
	return defaultColumnCandidates().clone()
}

// withDefaults fills nil fields from the built-in candidates so callers can
// override only the parts they need.
func (c ColumnCandidates) withDefaults() ColumnCandidates {
	defaults := defaultColumnCandidates()
	return ColumnCandidates{
		Word: pickStrings(c.Word, defaults.Word),
		Low:  pickStrings(c.Low, defaults.Low),
		Med:  pickStrings(c.Med, defaults.Med),
		High: pickStrings(c.High, defaults.High),
	}
}

func (c ColumnCandidates) clone() ColumnCandidates {
	return ColumnCandidates{
		Word: cloneStrings(c.Word),
		Low:  cloneStrings(c.Low),
		Med:  cloneStrings(c.Med),
		High: cloneStrings(c.High),
	}
}

func (c ColumnCandidates) forScore(col ScoreColumn) []string {
	switch col {
	case Low:
		return c.Low
	case Med:
		return c.Med
	default:
		return c.High
	}
}

func pickStrings(custom, fallback []string) []string {
	if custom == nil {
		return cloneStrings(fallback)
	}
	return cloneStrings(custom)
}

func cloneStrings(values []string) []string {
	if values == nil {
		return nil
	}
	out := make([]string, len(values))
	copy(out, values)
	return out
}
