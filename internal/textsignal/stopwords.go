package textsignal

// #region stopwords
// stopwords contains common English words excluded from term extraction.
// Short entries are listed even though the default length filter already
// drops them, so callers lowering minLength still get clean terms.
var stopwords = map[string]bool{
	"the": true, "a": true, "an": true, "is": true, "are": true,
	"was": true, "were": true, "do": true, "does": true, "did": true,
	"have": true, "has": true, "had": true, "be": true, "been": true,
	"being": true, "will": true, "would": true, "could": true, "should": true,
	"may": true, "might": true, "can": true, "shall": true, "not": true,
	"no": true, "and": true, "or": true, "but": true, "if": true,
	"then": true, "than": true, "so": true, "as": true, "at": true,
	"by": true, "for": true, "from": true, "in": true, "into": true,
	"of": true, "on": true, "to": true, "with": true, "about": true,
	"up": true, "out": true, "it": true, "its": true, "this": true,
	"that": true, "what": true, "which": true, "who": true, "how": true,
	"when": true, "where": true, "why": true, "you": true, "me": true,
	"i": true, "my": true, "your": true, "we": true, "they": true,
	"he": true, "she": true, "her": true, "him": true, "us": true,
	"them": true, "these": true, "those": true, "there": true, "their": true,
	"also": true, "just": true, "very": true, "some": true, "such": true,
	"each": true, "other": true, "only": true, "over": true, "after": true,
	"before": true, "while": true, "during": true,
	"because": true, "again": true, "once": true, "here": true, "both": true,
	"more": true, "most": true, "same": true, "own": true, "all": true,
	"any": true, "few": true, "nor": true, "too": true, "via": true,
}

// #endregion stopwords
