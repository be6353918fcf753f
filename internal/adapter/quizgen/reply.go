package quizgen

import (
	"errors"
	"regexp"
	"sort"
	"strconv"
	"strings"

	"quiz-export/internal/domain"

	"github.com/tidwall/gjson"
)

var (
	errNoStructuredContent = errors.New("no quiz objects found in model reply")
	errEmptyReply          = errors.New("model reply lists no quiz objects")

	thinkBlock = regexp.MustCompile(`(?s)<think>.*?</think>`)
	codeFence  = regexp.MustCompile("(?s)```[\\w-]*\\s*\n(.*?)\n?```")

	wrapperKeys = []string{"items", "quizzes", "questions", "data", "results"}
)

// ParseReply extracts quiz candidates from a model reply of unknown shape.
// It accepts a JSON array, a single object, an object wrapping an array
// ("items", "quizzes", "questions", "data"), JSON Lines, any of these inside
// code fences or surrounded by prose, and as a last resort a Markdown table.
// Table rows without a language column take languageHint.
//
// A well-formed reply that lists nothing returns errEmptyReply, which is an
// answer rather than a failure.
func ParseReply(reply, languageHint string) ([]domain.Candidate, error) {
	text := cleanReply(reply)
	if text == "" {
		return nil, errNoStructuredContent
	}

	empty := false
	for _, doc := range locateJSON(text) {
		if cands := candidatesFromJSON(doc); len(cands) > 0 {
			return cands, nil
		}
		empty = empty || isEmptyList(doc)
	}
	if cands := candidatesFromJSONLines(text); len(cands) > 0 {
		return cands, nil
	}
	if cands := candidatesFromMarkdownTable(text, languageHint); len(cands) > 0 {
		return cands, nil
	}
	if empty {
		return nil, errEmptyReply
	}
	return nil, errNoStructuredContent
}

func cleanReply(reply string) string {
	text := thinkBlock.ReplaceAllString(reply, "")
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}
	return strings.TrimSpace(text)
}

// locateJSON returns the well-formed JSON documents in text: the whole text,
// or else the bracketed and braced spans that parse, outermost first.
func locateJSON(text string) []gjson.Result {
	if gjson.Valid(text) {
		return []gjson.Result{gjson.Parse(text)}
	}
	var spans [][2]int
	for _, pair := range [][2]string{{"[", "]"}, {"{", "}"}} {
		start := strings.Index(text, pair[0])
		end := strings.LastIndex(text, pair[1])
		if start == -1 || end <= start {
			continue
		}
		spans = append(spans, [2]int{start, end})
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i][0] < spans[j][0] })

	var docs []gjson.Result
	for _, span := range spans {
		if doc := text[span[0] : span[1]+1]; gjson.Valid(doc) {
			docs = append(docs, gjson.Parse(doc))
		}
	}
	return docs
}

// isEmptyList reports a document that is an empty list of items.
func isEmptyList(doc gjson.Result) bool {
	if doc.IsArray() {
		return len(doc.Array()) == 0
	}
	if doc.IsObject() {
		for _, key := range wrapperKeys {
			if inner := doc.Get(key); inner.IsArray() {
				return len(inner.Array()) == 0
			}
		}
	}
	return false
}

func candidatesFromJSON(doc gjson.Result) []domain.Candidate {
	var objects []gjson.Result
	switch {
	case doc.IsArray():
		objects = doc.Array()
	case doc.IsObject():
		wrapped := false
		for _, key := range wrapperKeys {
			if inner := doc.Get(key); inner.IsArray() {
				objects = inner.Array()
				wrapped = true
				break
			}
		}
		if !wrapped {
			objects = []gjson.Result{doc}
		}
	}

	cands := make([]domain.Candidate, 0, len(objects))
	for _, obj := range objects {
		if !obj.IsObject() {
			continue
		}
		if c := candidateFromObject(obj); !isBlank(c) {
			cands = append(cands, c)
		}
	}
	return cands
}

func candidatesFromJSONLines(text string) []domain.Candidate {
	var cands []domain.Candidate
	for _, line := range strings.Split(text, "\n") {
		line = strings.TrimSpace(strings.TrimSuffix(strings.TrimSpace(line), ","))
		if !strings.HasPrefix(line, "{") || !gjson.Valid(line) {
			continue
		}
		if c := candidateFromObject(gjson.Parse(line)); !isBlank(c) {
			cands = append(cands, c)
		}
	}
	return cands
}

// isBlank reports an object that carried none of the quiz fields.
func isBlank(c domain.Candidate) bool {
	return c.Question == "" && len(c.Choices) == 0
}

func candidateFromObject(obj gjson.Result) domain.Candidate {
	c := domain.Candidate{
		Row:         int(firstOf(obj, "row", "row_index", "source_row").Int()),
		Question:    firstOf(obj, "question", "q", "prompt").String(),
		Choices:     choicesOf(obj),
		Explanation: firstOf(obj, "explanation", "note", "notes", "rationale").String(),
		Language:    firstOf(obj, "language", "lang", "language_code").String(),
	}
	c.CorrectIndex = correctIndexOf(obj, c.Choices)
	return c
}

func firstOf(obj gjson.Result, keys ...string) gjson.Result {
	for _, key := range keys {
		if v := obj.Get(key); v.Exists() && v.Type != gjson.Null {
			return v
		}
	}
	return gjson.Result{}
}

// choicesOf reads choices given as an array, as an object keyed by option
// letter, or as separate choice_a/option_b style fields.
func choicesOf(obj gjson.Result) []string {
	raw := firstOf(obj, "choices", "options", "answers")
	if raw.IsArray() {
		var choices []string
		for _, v := range raw.Array() {
			choices = append(choices, v.String())
		}
		return choices
	}
	if raw.IsObject() {
		var keys []string
		values := make(map[string]string)
		raw.ForEach(func(k, v gjson.Result) bool {
			keys = append(keys, k.String())
			values[k.String()] = v.String()
			return true
		})
		sort.Slice(keys, func(i, j int) bool { return choiceKeyLess(keys[i], keys[j]) })
		choices := make([]string, 0, len(keys))
		for _, k := range keys {
			choices = append(choices, values[k])
		}
		return choices
	}

	var choices []string
	for _, letter := range []string{"a", "b", "c", "d", "e", "f"} {
		v := firstOf(obj, "choice_"+letter, "option_"+letter, "answer_"+letter)
		if !v.Exists() {
			break
		}
		choices = append(choices, v.String())
	}
	return choices
}

// choiceKeyLess orders numeric keys by value, ahead of other keys, which
// sort as text: "2" < "10" < "A" < "B".
func choiceKeyLess(a, b string) bool {
	na, errA := strconv.Atoi(strings.TrimSpace(a))
	nb, errB := strconv.Atoi(strings.TrimSpace(b))
	switch {
	case errA == nil && errB == nil:
		return na < nb
	case errA == nil:
		return true
	case errB == nil:
		return false
	}
	return a < b
}

// correctIndexOf accepts a zero-based index as number or numeric string, an
// option letter, or the literal text of the correct choice.
func correctIndexOf(obj gjson.Result, choices []string) *int {
	if v := firstOf(obj, "correct_index", "answer_index", "correct"); v.Exists() {
		if idx, ok := indexFromValue(v); ok {
			return &idx
		}
	}
	if v := firstOf(obj, "correct_answer", "answer"); v.Exists() {
		if idx, ok := indexFromValue(v); ok && v.Type == gjson.Number {
			return &idx
		}
		if idx, ok := indexOfChoice(v.String(), choices); ok {
			return &idx
		}
		if idx, ok := letterIndex(v.String()); ok {
			return &idx
		}
	}
	return nil
}

func indexFromValue(v gjson.Result) (int, bool) {
	switch v.Type {
	case gjson.Number:
		f := v.Float()
		if f != float64(int(f)) {
			return 0, false
		}
		return int(f), true
	case gjson.String:
		s := strings.TrimSpace(v.String())
		if n, err := strconv.Atoi(s); err == nil {
			return n, true
		}
		return letterIndex(s)
	}
	return 0, false
}

// letterIndex maps "A", "b", "(C)" or "D." to a zero-based index.
func letterIndex(s string) (int, bool) {
	s = strings.Trim(strings.TrimSpace(s), "().: ")
	if len(s) != 1 {
		return 0, false
	}
	r := s[0] | 0x20
	if r < 'a' || r > 'z' {
		return 0, false
	}
	return int(r - 'a'), true
}

func indexOfChoice(answer string, choices []string) (int, bool) {
	answer = strings.TrimSpace(answer)
	if answer == "" {
		return 0, false
	}
	for i, choice := range choices {
		if strings.EqualFold(strings.TrimSpace(choice), answer) {
			return i, true
		}
	}
	return 0, false
}
