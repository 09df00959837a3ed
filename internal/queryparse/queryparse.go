// Package queryparse implements the pure function mapping a repository
// method name to a structured query intent (spec.md §4.4). It never touches
// the database: the repository synthesizer consumes an Intent to build and
// execute SQL.
package queryparse

import (
	"fmt"
	"regexp"
	"strings"
)

// Operation is the verb a parsed method name resolves to.
type Operation int

const (
	OpFind Operation = iota
	OpCount
	OpExists
	OpDelete
)

func (o Operation) String() string {
	switch o {
	case OpFind:
		return "find"
	case OpCount:
		return "count"
	case OpExists:
		return "exists"
	case OpDelete:
		return "delete"
	default:
		return "unknown"
	}
}

// Keyword is a predicate operator recognized after a field fragment.
type Keyword int

const (
	KeywordEquals Keyword = iota
	KeywordGreaterThan
	KeywordLessThan
	KeywordGreaterThanEqual
	KeywordLessThanEqual
	KeywordBetween
	KeywordLike
	KeywordNotLike
	KeywordContaining
	KeywordStartingWith
	KeywordEndingWith
	KeywordIsNull
	KeywordIsNotNull
	KeywordIn
	KeywordNotIn
	KeywordTrue
	KeywordFalse
)

// paramCount reports how many bind parameters a keyword consumes, per
// spec.md §4.4 ("Between consumes two consecutive parameters").
func (k Keyword) paramCount() int {
	switch k {
	case KeywordBetween:
		return 2
	case KeywordIsNull, KeywordIsNotNull, KeywordTrue, KeywordFalse:
		return 0
	default:
		return 1
	}
}

// wildcard reports the bind-time wrapping the execution layer must apply
// for string operations (spec.md §4.4: "%v%", "v%", "%v").
func (k Keyword) wildcard() string {
	switch k {
	case KeywordContaining:
		return "contains"
	case KeywordStartingWith:
		return "prefix"
	case KeywordEndingWith:
		return "suffix"
	default:
		return ""
	}
}

// keywordTable lists every supported keyword decomposed into its
// camel-case word sequence, longest first so greedy left-to-right matching
// (spec.md §4.4 tie-break) prefers e.g. GreaterThanEqual over GreaterThan.
var keywordTable = []struct {
	words   []string
	keyword Keyword
}{
	{[]string{"Greater", "Than", "Equal"}, KeywordGreaterThanEqual},
	{[]string{"Less", "Than", "Equal"}, KeywordLessThanEqual},
	{[]string{"Greater", "Than"}, KeywordGreaterThan},
	{[]string{"Less", "Than"}, KeywordLessThan},
	{[]string{"Between"}, KeywordBetween},
	{[]string{"Not", "Like"}, KeywordNotLike},
	{[]string{"Like"}, KeywordLike},
	{[]string{"Containing"}, KeywordContaining},
	{[]string{"Starting", "With"}, KeywordStartingWith},
	{[]string{"Ending", "With"}, KeywordEndingWith},
	{[]string{"Is", "Not", "Null"}, KeywordIsNotNull},
	{[]string{"Is", "Null"}, KeywordIsNull},
	{[]string{"Not", "In"}, KeywordNotIn},
	{[]string{"In"}, KeywordIn},
	{[]string{"True"}, KeywordTrue},
	{[]string{"False"}, KeywordFalse},
}

// Predicate is one field comparison in a parsed intent.
type Predicate struct {
	Field      string
	Keyword    Keyword
	Wildcard   string // "", "contains", "prefix", "suffix"
	ParamStart int    // index into the method's declared parameters
	ParamCount int
	// Or is true if this predicate is joined to the previous one with OR
	// rather than AND; the first predicate's Or is always false.
	Or bool
}

// OrderClause is one ORDER BY term.
type OrderClause struct {
	Field string
	Desc  bool
}

// Intent is the structured result of parsing a method name, independent of
// any concrete SQL dialect.
type Intent struct {
	Operation  Operation
	Predicates []Predicate
	Order      []OrderClause
	ParamCount int
}

var camelWordPattern = regexp.MustCompile(`[A-Z][a-z0-9]*`)

// splitWords breaks a PascalCase identifier into its constituent words,
// e.g. "ActiveAndAgeGreaterThan" -> ["Active","And","Age","Greater","Than"].
func splitWords(s string) []string {
	return camelWordPattern.FindAllString(s, -1)
}

var operationPrefixes = []struct {
	prefix string
	op     Operation
}{
	{"find", OpFind},
	{"count", OpCount},
	{"exists", OpExists},
	{"delete", OpDelete},
}

// ErrUnparseable indicates a method name does not match the grammar in
// spec.md §4.4; the caller (repository synthesizer) treats this as an
// *unbindable* method and fails startup.
type ErrUnparseable struct {
	Method string
	Reason string
}

func (e *ErrUnparseable) Error() string {
	return fmt.Sprintf("queryparse: cannot parse method %q: %s", e.Method, e.Reason)
}

// ParseMethodName maps a method name to a structured Intent against the
// given entity field set. fields must be the entity's declared field names
// (top-level only; nested paths are accepted in the method name itself and
// validated against dot-joined prefixes of fields).
func ParseMethodName(method string, fields []string) (*Intent, error) {
	rest := method
	var op Operation
	matched := false
	for _, p := range operationPrefixes {
		if strings.HasPrefix(rest, p.prefix) {
			op = p.op
			rest = rest[len(p.prefix):]
			matched = true
			break
		}
	}
	if !matched {
		return nil, &ErrUnparseable{Method: method, Reason: "missing find|count|exists|delete prefix"}
	}

	if !strings.HasPrefix(rest, "By") {
		return nil, &ErrUnparseable{Method: method, Reason: "missing 'By' after operation"}
	}
	rest = rest[len("By"):]

	predicatePart := rest
	var orderPart string
	if idx := strings.Index(rest, "OrderBy"); idx >= 0 {
		predicatePart = rest[:idx]
		orderPart = rest[idx+len("OrderBy"):]
	}

	if predicatePart == "" {
		return nil, &ErrUnparseable{Method: method, Reason: "empty predicate"}
	}

	fieldSet := make(map[string]bool, len(fields))
	for _, f := range fields {
		fieldSet[f] = true
	}

	predicates, paramCount, err := parsePredicates(predicatePart, fieldSet)
	if err != nil {
		return nil, &ErrUnparseable{Method: method, Reason: err.Error()}
	}

	var order []OrderClause
	if orderPart != "" {
		order, err = parseOrder(orderPart, fieldSet)
		if err != nil {
			return nil, &ErrUnparseable{Method: method, Reason: err.Error()}
		}
	}

	return &Intent{Operation: op, Predicates: predicates, Order: order, ParamCount: paramCount}, nil
}

// parsePredicates splits on top-level And/Or word tokens and parses each
// fragment into a field + optional keyword.
func parsePredicates(s string, fieldSet map[string]bool) ([]Predicate, int, error) {
	words := splitWords(s)
	if len(words) == 0 {
		return nil, 0, fmt.Errorf("empty predicate word sequence")
	}

	// Split into fragments at top-level "And"/"Or" words.
	type fragment struct {
		words []string
		or    bool
	}
	var fragments []fragment
	cur := fragment{}
	for _, w := range words {
		if w == "And" {
			fragments = append(fragments, cur)
			cur = fragment{or: false}
			continue
		}
		if w == "Or" {
			fragments = append(fragments, cur)
			cur = fragment{or: true}
			continue
		}
		cur.words = append(cur.words, w)
	}
	fragments = append(fragments, cur)

	var predicates []Predicate
	paramIdx := 0
	for _, frag := range fragments {
		if len(frag.words) == 0 {
			return nil, 0, fmt.Errorf("empty predicate fragment")
		}
		field, kw, err := matchFieldAndKeyword(frag.words, fieldSet)
		if err != nil {
			return nil, 0, err
		}
		n := kw.paramCount()
		predicates = append(predicates, Predicate{
			Field:      field,
			Keyword:    kw,
			Wildcard:   kw.wildcard(),
			ParamStart: paramIdx,
			ParamCount: n,
			Or:         frag.or,
		})
		paramIdx += n
	}
	return predicates, paramIdx, nil
}

// matchFieldAndKeyword applies the tie-break rule of spec.md §4.4: keywords
// are matched greedily at the earliest position they can apply, scanning
// left to right. In a single field fragment that means: try the longest
// keyword match anchored at the end of the word sequence first, preferring
// the field identifier to consume as many leading words as the fieldSet
// allows (so a field named "GreaterValue" is not misread as field "Greater"
// plus a "Than"-less keyword).
func matchFieldAndKeyword(words []string, fieldSet map[string]bool) (string, Keyword, error) {
	// Try every split point, longest field-candidate first, and at each
	// split point try the longest keyword match.
	for fieldLen := len(words); fieldLen >= 1; fieldLen-- {
		fieldWords := words[:fieldLen]
		tailWords := words[fieldLen:]
		fieldName := toLowerCamel(fieldWords)
		if !fieldSet[fieldName] && !dottedFieldAllowed(fieldWords, fieldSet) {
			continue
		}
		resolvedField := fieldName
		if len(tailWords) == 0 {
			return resolvedField, KeywordEquals, nil
		}
		if kw, ok := matchKeyword(tailWords); ok {
			return resolvedField, kw, nil
		}
	}
	return "", 0, fmt.Errorf("no field in %v matches a known field with a valid trailing keyword", words)
}

// dottedFieldAllowed treats the word sequence as a nested field path when
// individually-capitalized words correspond to a dot-joined path present in
// fieldSet (spec.md §4.4: "dot-qualified when nested").
func dottedFieldAllowed(words []string, fieldSet map[string]bool) bool {
	if len(words) < 2 {
		return false
	}
	parts := make([]string, len(words))
	for i, w := range words {
		parts[i] = lowerFirst(w)
	}
	return fieldSet[strings.Join(parts, ".")]
}

func matchKeyword(tailWords []string) (Keyword, bool) {
	best := -1
	var bestKw Keyword
	for _, entry := range keywordTable {
		if len(entry.words) > len(tailWords) {
			continue
		}
		if wordsEqual(entry.words, tailWords[:len(entry.words)]) && len(tailWords) == len(entry.words) {
			if len(entry.words) > best {
				best = len(entry.words)
				bestKw = entry.keyword
			}
		}
	}
	if best < 0 {
		return 0, false
	}
	return bestKw, true
}

func wordsEqual(a, b []string) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

func toLowerCamel(words []string) string {
	if len(words) == 0 {
		return ""
	}
	var sb strings.Builder
	sb.WriteString(lowerFirst(words[0]))
	for _, w := range words[1:] {
		sb.WriteString(w)
	}
	return sb.String()
}

func lowerFirst(s string) string {
	if s == "" {
		return s
	}
	return strings.ToLower(s[:1]) + s[1:]
}

func parseOrder(s string, fieldSet map[string]bool) ([]OrderClause, error) {
	words := splitWords(s)
	var clauses []OrderClause
	var cur []string
	flush := func(desc bool) error {
		if len(cur) == 0 {
			return fmt.Errorf("empty order field")
		}
		name := toLowerCamel(cur)
		if !fieldSet[name] {
			return fmt.Errorf("order field %q is not a declared field", name)
		}
		clauses = append(clauses, OrderClause{Field: name, Desc: desc})
		cur = nil
		return nil
	}
	for i := 0; i < len(words); i++ {
		w := words[i]
		if w == "Asc" || w == "Desc" {
			if err := flush(w == "Desc"); err != nil {
				return nil, err
			}
			continue
		}
		cur = append(cur, w)
	}
	if len(cur) > 0 {
		if err := flush(false); err != nil {
			return nil, err
		}
	}
	return clauses, nil
}
