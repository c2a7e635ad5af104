package service

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/santhosh-tekuri/jsonschema/v5"
)

const questionSchema = `{
	"type": "object",
	"required": ["question", "options", "correct_option_id"],
	"properties": {
		"question": {"type": "string"},
		"options": {"type": "array", "items": {"type": "string"}},
		"correct_option_id": {"type": "integer"}
	}
}`

var questionShape = jsonschema.MustCompileString("question.schema.json", questionSchema)

// ParsedLine is a question decoded from one payload line. Line is 1-based.
type ParsedLine struct {
	Line     int
	Question QuizQuestion
}

// ParseQuestionLine decodes one JSON object into a question. Only the shape is
// checked here; value rules are left to Validate.
func ParseQuestionLine(line string) (QuizQuestion, error) {
	doc, err := decodeJSON(line)
	if err != nil {
		return QuizQuestion{}, fmt.Errorf("%w: invalid JSON: %v", ErrParse, err)
	}
	if err := questionShape.Validate(doc); err != nil {
		return QuizQuestion{}, fmt.Errorf("%w: %s", ErrParse, schemaMessage(err))
	}

	var q QuizQuestion
	if err := json.Unmarshal([]byte(line), &q); err != nil {
		return QuizQuestion{}, fmt.Errorf("%w: %v", ErrParse, err)
	}
	return q, nil
}

// ParseQuestionLines splits payload into lines and decodes each one. Blank
// lines are skipped but still counted, so line numbers match what the user sent.
// A line longer than 1 MiB stops the scan: it is reported as one error and
// the lines after it are not parsed.
func ParseQuestionLines(payload string) ([]ParsedLine, []ItemError) {
	var (
		parsed []ParsedLine
		errs   []ItemError
	)

	scanner := bufio.NewScanner(strings.NewReader(payload))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	lineNo := 0
	for scanner.Scan() {
		lineNo++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		q, err := ParseQuestionLine(line)
		if err != nil {
			errs = append(errs, ItemError{Index: lineNo, Err: err})
			continue
		}
		parsed = append(parsed, ParsedLine{Line: lineNo, Question: q})
	}
	if err := scanner.Err(); err != nil {
		errs = append(errs, ItemError{Index: lineNo + 1, Err: fmt.Errorf("%w: %v", ErrParse, err)})
	}

	return parsed, errs
}

// decodeJSON decodes exactly one JSON value, keeping numbers as json.Number
// so the schema can tell integers from fractions.
func decodeJSON(line string) (interface{}, error) {
	dec := json.NewDecoder(strings.NewReader(line))
	dec.UseNumber()
	var doc interface{}
	if err := dec.Decode(&doc); err != nil {
		return nil, err
	}
	if _, err := dec.Token(); err != io.EOF {
		return nil, errors.New("unexpected data after JSON value")
	}
	return doc, nil
}

// schemaMessage flattens a schema validation error into its leaf messages.
func schemaMessage(err error) string {
	ve, ok := err.(*jsonschema.ValidationError)
	if !ok {
		return err.Error()
	}

	var msgs []string
	var walk func(*jsonschema.ValidationError)
	walk = func(e *jsonschema.ValidationError) {
		if len(e.Causes) == 0 {
			location := e.InstanceLocation
			if location == "" {
				location = "/"
			}
			msgs = append(msgs, fmt.Sprintf("%s: %s", location, e.Message))
			return
		}
		for _, cause := range e.Causes {
			walk(cause)
		}
	}
	walk(ve)
	sort.Strings(msgs)
	return strings.Join(msgs, "; ")
}
