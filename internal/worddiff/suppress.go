package worddiff

// suppressCommon clears the classification of any flagged token whose
// normalized text also occurs somewhere in the other document. A value
// present verbatim in both documents (a shared numeric code, a repeated
// amount) must never be reported as changed just because the aligner placed
// it inside a delete/insert span.
//
// Concatenations of adjacent flagged token pairs are included in both sets to
// catch merge-order artifacts where one document extracted two words that the
// other extracted as one.
func suppressCommon(ref, final []Token) {
	refSet := normalizedSet(ref)
	finalSet := normalizedSet(final)
	addFlaggedPairConcats(ref, refSet)
	addFlaggedPairConcats(final, finalSet)

	common := make(map[string]struct{})
	for text := range refSet {
		if _, ok := finalSet[text]; ok {
			common[text] = struct{}{}
		}
	}
	if len(common) == 0 {
		return
	}

	clearCommonTokens(ref, common)
	clearCommonTokens(final, common)
	clearCommonPairs(ref, common)
	clearCommonPairs(final, common)
}

// normalizedSet collects every non-empty normalized text in the sequence,
// flagged or not.
func normalizedSet(tokens []Token) map[string]struct{} {
	set := make(map[string]struct{}, len(tokens))
	for _, t := range tokens {
		if t.Normalized != "" {
			set[t.Normalized] = struct{}{}
		}
	}
	return set
}

func addFlaggedPairConcats(tokens []Token, set map[string]struct{}) {
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].Flagged() || !tokens[i+1].Flagged() {
			continue
		}
		concat := tokens[i].Normalized + tokens[i+1].Normalized
		if concat != "" {
			set[concat] = struct{}{}
		}
	}
}

func clearCommonTokens(tokens []Token, common map[string]struct{}) {
	for i := range tokens {
		if !tokens[i].Flagged() || tokens[i].Normalized == "" {
			continue
		}
		if _, ok := common[tokens[i].Normalized]; ok {
			clearToken(&tokens[i])
		}
	}
}

func clearCommonPairs(tokens []Token, common map[string]struct{}) {
	for i := 0; i+1 < len(tokens); i++ {
		if !tokens[i].Flagged() || !tokens[i+1].Flagged() {
			continue
		}
		concat := tokens[i].Normalized + tokens[i+1].Normalized
		if _, ok := common[concat]; ok {
			clearToken(&tokens[i])
			clearToken(&tokens[i+1])
		}
	}
}

func clearToken(t *Token) {
	t.Change = ChangeNone
	t.Highlight = HighlightNone
}
