//go:build cucumber

package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/cucumber/godog"
)

// TestQuestionScenarios runs the store and dispatch feature scenarios.
func TestQuestionScenarios(t *testing.T) {
	suite := godog.TestSuite{
		Name:                "questions",
		ScenarioInitializer: InitializeQuestionScenario,
		Options: &godog.Options{
			Format:    "pretty",
			Paths:     []string{filepath.Join("features", "questions.feature")},
			Strict:    true,
			TestingT:  t,
			Randomize: 0,
		},
	}
	if suite.Run() != 0 {
		t.Fatalf("non-zero godog status")
	}
}

// InitializeQuestionScenario wires the steps of questions.feature.
func InitializeQuestionScenario(ctx *godog.ScenarioContext) {
	state := &questionScenarioState{}
	ctx.Before(func(ctx context.Context, _ *godog.Scenario) (context.Context, error) {
		return ctx, state.reset()
	})
	ctx.After(func(ctx context.Context, _ *godog.Scenario, err error) (context.Context, error) {
		state.cleanup()
		return ctx, err
	})

	ctx.Step(`^an empty question store$`, state.givenEmptyStore)
	ctx.Step(`^the store holds (\d+) questions$`, state.givenStoreHolds)
	ctx.Step(`^the store file contains:$`, state.givenStoreFileContains)
	ctx.Step(`^publishing question (\d+) fails$`, state.givenPublishFails)
	ctx.Step(`^I submit the payload:$`, state.whenISubmit)
	ctx.Step(`^I dispatch the stored questions$`, state.whenIDispatch)
	ctx.Step(`^I load the store$`, state.whenILoad)
	ctx.Step(`^I clear the store$`, state.whenIClear)
	ctx.Step(`^(\d+) questions? (?:was|were) added$`, state.thenAdded)
	ctx.Step(`^(\d+) line errors? (?:was|were) reported$`, state.thenLineErrors)
	ctx.Step(`^the store holds exactly:$`, state.thenStoreHoldsExactly)
	ctx.Step(`^the report shows (\d+) published and (\d+) failed$`, state.thenReportShows)
	ctx.Step(`^publish was called (\d+) times$`, state.thenPublishCalled)
	ctx.Step(`^loading fails with a corrupt store error$`, state.thenCorrupt)
	ctx.Step(`^the store is empty$`, state.thenEmpty)
}

// questionScenarioState holds the store and the results of the last action.
type questionScenarioState struct {
	dir          string
	store        *Store
	failOn       map[int]bool
	publishCalls int
	ingest       IngestReport
	dispatch     DispatchReport
	lastErr      error
}

func (s *questionScenarioState) reset() error {
	dir, err := os.MkdirTemp("", "quiz-feature-*")
	if err != nil {
		return fmt.Errorf("create temp dir: %w", err)
	}
	*s = questionScenarioState{
		dir:    dir,
		store:  NewStore(filepath.Join(dir, "quiz_questions.json")),
		failOn: map[int]bool{},
	}
	return nil
}

func (s *questionScenarioState) cleanup() {
	if s.dir != "" {
		_ = os.RemoveAll(s.dir)
	}
}

func (s *questionScenarioState) givenEmptyStore() error {
	return s.store.Clear()
}

func (s *questionScenarioState) givenStoreHolds(n int) error {
	for i := 1; i <= n; i++ {
		q := QuizQuestion{Question: fmt.Sprintf("question %d", i), Options: []string{"yes", "no"}}
		if err := s.store.Append(q); err != nil {
			return err
		}
	}
	return nil
}

func (s *questionScenarioState) givenStoreFileContains(doc *godog.DocString) error {
	return os.WriteFile(s.store.Path(), []byte(doc.Content), 0o644)
}

func (s *questionScenarioState) givenPublishFails(n int) error {
	s.failOn[n-1] = true
	return nil
}

func (s *questionScenarioState) whenISubmit(doc *godog.DocString) error {
	report, err := Ingest(s.store, doc.Content)
	s.ingest = report
	return err
}

func (s *questionScenarioState) whenIDispatch() error {
	index := 0
	report, err := NewDispatcher(s.store).Dispatch(context.Background(), func(context.Context, QuizQuestion) error {
		defer func() { index++ }()
		s.publishCalls++
		if s.failOn[index] {
			return errors.New("channel rejected the poll")
		}
		return nil
	})
	s.dispatch = report
	return err
}

func (s *questionScenarioState) whenILoad() error {
	_, s.lastErr = s.store.Load()
	return nil
}

func (s *questionScenarioState) whenIClear() error {
	return s.store.Clear()
}

func (s *questionScenarioState) thenAdded(n int) error {
	if s.ingest.Added != n {
		return fmt.Errorf("added = %d, want %d", s.ingest.Added, n)
	}
	return nil
}

func (s *questionScenarioState) thenLineErrors(n int) error {
	if len(s.ingest.Errors) != n {
		return fmt.Errorf("line errors = %v, want %d", s.ingest.Errors, n)
	}
	return nil
}

func (s *questionScenarioState) thenStoreHoldsExactly(doc *godog.DocString) error {
	var want []QuizQuestion
	if err := json.Unmarshal([]byte(doc.Content), &want); err != nil {
		return fmt.Errorf("bad expectation: %w", err)
	}
	got, err := s.store.Load()
	if err != nil {
		return err
	}
	if !reflect.DeepEqual(got, want) {
		return fmt.Errorf("store holds %+v, want %+v", got, want)
	}
	return nil
}

func (s *questionScenarioState) thenReportShows(published, failed int) error {
	if s.dispatch.Published != published || len(s.dispatch.Failed) != failed {
		return fmt.Errorf("report = %d published / %d failed, want %d / %d",
			s.dispatch.Published, len(s.dispatch.Failed), published, failed)
	}
	return nil
}

func (s *questionScenarioState) thenPublishCalled(n int) error {
	if s.publishCalls != n {
		return fmt.Errorf("publish called %d times, want %d", s.publishCalls, n)
	}
	return nil
}

func (s *questionScenarioState) thenCorrupt() error {
	if !errors.Is(s.lastErr, ErrCorruptStore) {
		return fmt.Errorf("load error = %v, want ErrCorruptStore", s.lastErr)
	}
	return nil
}

func (s *questionScenarioState) thenEmpty() error {
	got, err := s.store.Load()
	if err != nil {
		return err
	}
	if len(got) != 0 {
		return fmt.Errorf("store holds %d questions, want 0", len(got))
	}
	return nil
}
