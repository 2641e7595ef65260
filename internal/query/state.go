// Package query drives paginated, filterable list views. The state machine is
// a pure reducer (Reduce, Settle); Controller runs it against a Source and
// serialises transitions under a mutex.
package query

import (
	"slices"

	catalog "github.com/eugener/arcscout/internal"
)

// ResultSet is the derived, read-only view of a list.
type ResultSet[T any] struct {
	Items   []T
	Total   int
	Loading bool
	Err     string // empty when there is nothing to show
}

// State is everything a list view owns.
type State[T any] struct {
	Params catalog.ListParams
	Result ResultSet[T]
	Seq    uint64 // sequence number of the latest issued request

	fields []string // filter fields this view accepts
}

// NewState returns the state of a view that has issued nothing yet.
func NewState[T any](params catalog.ListParams, fields []string) State[T] {
	return State[T]{
		Params: params.Clone(),
		Result: ResultSet[T]{Items: []T{}},
		fields: slices.Clone(fields),
	}
}

// Allows reports whether field is a filter this view accepts.
func (s State[T]) Allows(field string) bool { return slices.Contains(s.fields, field) }

// Fields returns the filter fields this view accepts.
func (s State[T]) Fields() []string { return slices.Clone(s.fields) }

// clone returns a deep copy safe to hand to callers.
func (s State[T]) clone() State[T] {
	s.Params = s.Params.Clone()
	s.Result.Items = slices.Clone(s.Result.Items)
	s.fields = slices.Clone(s.fields)
	return s
}

// Intent is a user action on a list view.
type Intent interface{ intent() }

// SetFreeText replaces the search text.
type SetFreeText struct{ Text string }

// SetFilter sets one filter; an empty Value clears it.
type SetFilter struct{ Field, Value string }

// NextPage advances by one page. There is no upper bound check.
type NextPage struct{}

// PrevPage goes back one page, stopping at offset 0.
type PrevPage struct{}

// Refresh re-issues the current params.
type Refresh struct{}

// DismissError clears the error banner without issuing a request.
type DismissError struct{}

func (SetFreeText) intent()  {}
func (SetFilter) intent()    {}
func (NextPage) intent()     {}
func (PrevPage) intent()     {}
func (Refresh) intent()      {}
func (DismissError) intent() {}

// Request is a fetch the reducer wants performed.
type Request struct {
	Seq    uint64
	Params catalog.ListParams
}

// Outcome is the settled result of a Request.
type Outcome[T any] struct {
	Seq  uint64
	Page catalog.Page[T]
	Err  error
}

// Reduce applies in to s. It returns the next state and the request to
// issue, or nil when in issues nothing (DismissError, or a filter field the
// view does not accept, which leaves s unchanged).
func Reduce[T any](s State[T], in Intent) (State[T], *Request) {
	p := s.Params.Clone()
	switch in := in.(type) {
	case SetFreeText:
		p.FreeText = in.Text
		p.Offset = 0
	case SetFilter:
		if !s.Allows(in.Field) {
			return s, nil
		}
		if p.Filters == nil {
			p.Filters = map[string]string{}
		}
		if in.Value == "" {
			delete(p.Filters, in.Field)
		} else {
			p.Filters[in.Field] = in.Value
		}
		p.Offset = 0
	case NextPage:
		p.Offset += p.Limit
	case PrevPage:
		p.Offset = max(0, p.Offset-p.Limit)
	case Refresh:
	case DismissError:
		s.Result.Err = ""
		return s, nil
	default:
		return s, nil
	}

	s.Params = p
	s.Seq++
	s.Result.Loading = true
	s.Result.Err = ""
	return s, &Request{Seq: s.Seq, Params: p.Clone()}
}

// Settle applies o if it answers the latest issued request. Outcomes for
// superseded requests are dropped and applied is false.
func Settle[T any](s State[T], o Outcome[T]) (next State[T], applied bool) {
	if o.Seq != s.Seq {
		return s, false
	}
	s.Result.Loading = false
	if o.Err != nil {
		s.Result.Items = []T{}
		s.Result.Err = o.Err.Error()
		return s, true
	}
	s.Result.Items = o.Page.Items
	if s.Result.Items == nil {
		s.Result.Items = []T{}
	}
	s.Result.Total = o.Page.Total
	s.Result.Err = ""
	return s, true
}
