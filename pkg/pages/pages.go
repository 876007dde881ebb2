// Package pages defines one answer schema per study page. Drafts and
// submissions are stored opaquely by page id, but every payload is decoded
// into the schema registered for its id before it is accepted.
package pages

import (
	"encoding/json"
	"errors"
	"fmt"
	"reflect"
)

// PageID names a study page
type PageID string

const (
	BackgroundSurveyPage PageID = "background_survey"
	TaskInstructionPage  PageID = "task_instruction"
	SearchTaskPage       PageID = "search_task"
	ResultLogPage        PageID = "result_log"
	PostTaskSurveyPage   PageID = "post_task_survey"
	FinalDecisionPage    PageID = "final_decision"
)

// ErrUnknownPage is returned for a page id with no registered schema
var ErrUnknownPage = errors.New("unknown page id")

// Page is implemented by every page schema
type Page interface {
	PageID() PageID
}

var registry = map[PageID]func() Page{
	BackgroundSurveyPage: func() Page { return &BackgroundSurvey{} },
	TaskInstructionPage:  func() Page { return &TaskInstruction{} },
	SearchTaskPage:       func() Page { return &SearchTask{} },
	ResultLogPage:        func() Page { return &ResultLog{} },
	PostTaskSurveyPage:   func() Page { return &PostTaskSurvey{} },
	FinalDecisionPage:    func() Page { return &FinalDecision{} },
}

// IDs returns every registered page id
func IDs() []PageID {
	return []PageID{
		BackgroundSurveyPage,
		TaskInstructionPage,
		SearchTaskPage,
		ResultLogPage,
		PostTaskSurveyPage,
		FinalDecisionPage,
	}
}

// Known reports whether id has a schema
func Known(id PageID) bool {
	_, ok := registry[id]
	return ok
}

// New returns an empty schema value for id
func New(id PageID) (Page, error) {
	ctor, ok := registry[id]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownPage, id)
	}
	return ctor(), nil
}

// Decode parses raw into the schema registered for id. Unknown JSON fields
// are ignored so older drafts keep loading after a schema grows.
func Decode(id PageID, raw []byte) (Page, error) {
	p, err := New(id)
	if err != nil {
		return nil, err
	}
	if len(raw) == 0 {
		return p, nil
	}
	if err := json.Unmarshal(raw, p); err != nil {
		return nil, fmt.Errorf("decode %s: %w", id, err)
	}
	return p, nil
}

// IsBlank reports whether every answer in p is empty: zero scales, empty
// strings and lists, false booleans.
func IsBlank(p Page) bool {
	if p == nil {
		return true
	}
	v := reflect.Indirect(reflect.ValueOf(p))
	for i := 0; i < v.NumField(); i++ {
		if !v.Field(i).IsZero() {
			f := v.Field(i)
			if f.Kind() == reflect.Slice && f.Len() == 0 {
				continue
			}
			return false
		}
	}
	return true
}
