package matching

import "strings"

// NormalizeCategory buckets a raw venue category tag. Tags are lowercased
// with underscores and spaces turned into hyphens, then matched by
// bidirectional containment against the lexicon. Unknown tags become "other".
func NormalizeCategory(category string) string {
	tag := strings.ToLower(category)
	tag = strings.ReplaceAll(tag, "_", "-")
	tag = strings.ReplaceAll(tag, " ", "-")

	// An empty tag is contained in every variant; bucket it explicitly.
	if tag == "" {
		return "other"
	}

	for _, group := range categoryGroups {
		for _, variant := range group.variants {
			if strings.Contains(tag, variant) || strings.Contains(variant, tag) {
				return group.canonical
			}
		}
	}

	return "other"
}

// categoriesMatch reports whether two raw categories are compatible. The
// "tech" bucket absorbs the generic "prediction" tag, so it may pair with
// politics, world, and economics as well as itself.
func categoriesMatch(cat1, cat2 string) bool {
	norm1 := NormalizeCategory(cat1)
	norm2 := NormalizeCategory(cat2)

	if norm1 == "tech" || norm2 == "tech" {
		compatible := map[string]bool{"tech": true, "politics": true, "world": true, "economics": true}

		return compatible[norm1] && compatible[norm2]
	}

	return norm1 == norm2
}

// normalizeText prepares an event name for comparison: lowercase, strip the
// leading question prefix, drop punctuation, collapse whitespace.
func normalizeText(text string) string {
	text = strings.ToLower(text)
	text = leadPrefixRE.ReplaceAllString(text, "")
	text = punctRE.ReplaceAllString(text, " ")

	return strings.Join(strings.Fields(text), " ")
}

// extractEntities pulls known entities out of the original event name:
// politicians, political and economic terms, named events, and years.
func extractEntities(text string) map[string]struct{} {
	entities := make(map[string]struct{})
	lower := strings.ToLower(text)

	for _, p := range politicians {
		if strings.Contains(lower, p) {
			entities[p] = struct{}{}
		}
	}
	for _, year := range yearRE.FindAllString(text, -1) {
		entities[year] = struct{}{}
	}
	for _, term := range politicalTerms {
		if strings.Contains(lower, term) {
			entities[term] = struct{}{}
		}
	}
	for _, term := range economicTerms {
		if strings.Contains(lower, term) {
			entities[strings.ReplaceAll(term, " ", "_")] = struct{}{}
		}
	}
	for _, event := range namedEvents {
		if strings.Contains(lower, event) {
			entities[strings.ReplaceAll(event, " ", "_")] = struct{}{}
		}
	}

	return entities
}

func jaccard(a, b map[string]struct{}) float64 {
	if len(a) == 0 || len(b) == 0 {
		return 0
	}

	intersection := 0
	for k := range a {
		if _, ok := b[k]; ok {
			intersection++
		}
	}
	union := len(a) + len(b) - intersection

	return float64(intersection) / float64(union)
}

func wordSet(text string) map[string]struct{} {
	words := make(map[string]struct{})
	for _, w := range strings.Fields(text) {
		words[w] = struct{}{}
	}

	return words
}

// Similarity scores how likely two event names describe the same event.
// Entity overlap dominates, then word overlap, then raw string shape.
// The score is symmetric in its arguments.
func Similarity(name1, name2 string) float64 {
	norm1 := normalizeText(name1)
	norm2 := normalizeText(name2)

	// The sequence ratio tie-breaks differently depending on argument
	// order; fix the order so the score is symmetric.
	a, b := norm1, norm2
	if a > b {
		a, b = b, a
	}
	stringSim := sequenceRatio(a, b)

	entitySim := jaccard(extractEntities(name1), extractEntities(name2))
	wordSim := jaccard(wordSet(norm1), wordSet(norm2))

	return entitySim*0.5 + wordSim*0.3 + stringSim*0.2
}

// sequenceRatio is the classical sequence-matcher score: 2*M / (len(a)+len(b))
// where M is the total length of the longest common matching blocks.
func sequenceRatio(a, b string) float64 {
	ra, rb := []rune(a), []rune(b)
	total := len(ra) + len(rb)
	if total == 0 {
		return 1.0
	}

	return 2 * float64(totalMatching(ra, rb)) / float64(total)
}

type matchSpan struct {
	alo, ahi, blo, bhi int
}

func totalMatching(a, b []rune) int {
	b2j := make(map[rune][]int, len(b))
	for j, c := range b {
		b2j[c] = append(b2j[c], j)
	}

	matched := 0
	stack := []matchSpan{{0, len(a), 0, len(b)}}
	for len(stack) > 0 {
		s := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		i, j, k := longestMatch(a, s, b2j)
		if k == 0 {
			continue
		}
		matched += k
		stack = append(stack,
			matchSpan{s.alo, i, s.blo, j},
			matchSpan{i + k, s.ahi, j + k, s.bhi},
		)
	}

	return matched
}

// longestMatch finds the longest block of a[alo:ahi] appearing in b[blo:bhi],
// preferring the earliest position on ties.
func longestMatch(a []rune, s matchSpan, b2j map[rune][]int) (besti, bestj, bestsize int) {
	besti, bestj = s.alo, s.blo
	j2len := make(map[int]int)
	for i := s.alo; i < s.ahi; i++ {
		newJ2len := make(map[int]int)
		for _, j := range b2j[a[i]] {
			if j < s.blo {
				continue
			}
			if j >= s.bhi {
				break
			}
			k := j2len[j-1] + 1
			newJ2len[j] = k
			if k > bestsize {
				besti, bestj, bestsize = i-k+1, j-k+1, k
			}
		}
		j2len = newJ2len
	}

	return besti, bestj, bestsize
}
