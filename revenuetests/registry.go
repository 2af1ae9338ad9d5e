package revenuetests

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/jestrada-applaudo/bdd-mroh/framework"

	"github.com/cucumber/godog"
)

var (
	scenarioType   = reflect.TypeOf((*Scenario)(nil))
	tableType      = reflect.TypeOf(Table{})
	godogTableType = reflect.TypeOf((*godog.Table)(nil))
	errorType      = reflect.TypeOf((*error)(nil)).Elem()
)

// Registry maps step patterns to handlers.
type Registry struct {
	steps []stepDefinition
}

type stepDefinition struct {
	pattern string
	handler reflect.Value
}

// Add registers a handler for a step pattern. The handler must have the form
// func(*Scenario, args...) where each argument is an int, float64, string or Table, one per
// capture group (a Table argument receives the step's data table). A malformed handler is a
// programming error and panics.
func (r *Registry) Add(pattern string, handler interface{}) {
	v := reflect.ValueOf(handler)
	if err := checkHandler(v.Type()); err != nil {
		panic(fmt.Sprintf("step %q: %s", pattern, err))
	}
	for _, d := range r.steps {
		if d.pattern == pattern {
			panic(fmt.Sprintf("step %q registered twice", pattern))
		}
	}
	r.steps = append(r.steps, stepDefinition{pattern: pattern, handler: v})
}

// Patterns returns every registered pattern in registration order.
func (r *Registry) Patterns() []string {
	ret := make([]string, 0, len(r.steps))
	for _, d := range r.steps {
		ret = append(ret, d.pattern)
	}
	return ret
}

// Bind registers every step with godog. current returns the scenario in progress. Each
// step runs through framework.Context.Step, so a failed assertion ends only that step and
// godog skips the rest of the scenario; a scenario excluded by the filter is reported to
// godog as skipped.
func (r *Registry) Bind(sc *godog.ScenarioContext, current func() *Scenario) {
	for _, d := range r.steps {
		sc.Step(d.pattern, d.godogFunc(current).Interface())
	}
}

func (d stepDefinition) godogFunc(current func() *Scenario) reflect.Value {
	t := d.handler.Type()
	in := make([]reflect.Type, 0, t.NumIn()-1)
	for i := 1; i < t.NumIn(); i++ {
		if t.In(i) == tableType {
			in = append(in, godogTableType)
		} else {
			in = append(in, t.In(i))
		}
	}
	fnType := reflect.FuncOf(in, []reflect.Type{errorType}, false)

	return reflect.MakeFunc(fnType, func(args []reflect.Value) []reflect.Value {
		s := current()
		callArgs := make([]reflect.Value, 0, len(args)+1)
		callArgs = append(callArgs, reflect.ValueOf(s))
		for _, a := range args {
			if a.Type() == godogTableType {
				a = reflect.ValueOf(TableFromGherkin(a.Interface().(*godog.Table)))
			}
			callArgs = append(callArgs, a)
		}

		err := s.Step(d.describe(args), func(*framework.Context) {
			d.handler.Call(callArgs)
		})
		if framework.IsSkip(err) {
			err = godog.ErrSkip
		}
		ret := reflect.New(errorType).Elem()
		if err != nil {
			ret.Set(reflect.ValueOf(err))
		}
		return []reflect.Value{ret}
	})
}

func (d stepDefinition) describe(args []reflect.Value) string {
	text := strings.TrimSuffix(strings.TrimPrefix(d.pattern, "^"), "$")
	var shown []string
	for _, a := range args {
		if a.Type() != godogTableType {
			shown = append(shown, fmt.Sprint(a.Interface()))
		}
	}
	if len(shown) == 0 {
		return text
	}
	return fmt.Sprintf("%s %v", text, shown)
}

func checkHandler(t reflect.Type) error {
	if t.Kind() != reflect.Func {
		return fmt.Errorf("handler is %s, not a function", t)
	}
	if t.NumIn() == 0 || t.In(0) != scenarioType {
		return fmt.Errorf("handler's first parameter must be %s", scenarioType)
	}
	if t.NumOut() != 0 || t.IsVariadic() {
		return fmt.Errorf("handler must not be variadic or return values")
	}
	for i := 1; i < t.NumIn(); i++ {
		switch p := t.In(i); {
		case p == tableType:
		case p.Kind() == reflect.Int, p.Kind() == reflect.Float64, p.Kind() == reflect.String:
		default:
			return fmt.Errorf("unsupported parameter type %s", p)
		}
	}
	return nil
}
