package firmware

import (
	"github.com/pkg/errors"

	"github.com/ribeira-boot/memprobe/go/models"
)

type Response struct {
	Entry  models.RangeDescriptor
	Next   uint32
	Status models.QueryStatus
}

// Script answers queries from a fixed list of responses, in order.
type Script struct {
	Responses []Response
	// tokens passed to each call, in call order
	Tokens []uint32
}

// Sequence scripts a well-behaved enumeration of entries: tokens count up
// from 1 and the last entry returns 0.
func Sequence(entries ...models.RangeDescriptor) *Script {
	s := &Script{Responses: make([]Response, len(entries))}
	for i, e := range entries {
		next := uint32(i + 1)
		if i == len(entries)-1 {
			next = 0
		}
		s.Responses[i] = Response{Entry: e, Next: next}
	}
	return s
}

// Unsupported appends an unsupported response.
func (s *Script) Unsupported() *Script {
	s.Responses = append(s.Responses, Response{Status: models.Unsupported})
	return s
}

func (s *Script) Calls() int {
	return len(s.Tokens)
}

func (s *Script) QueryRange(dst *models.RangeDescriptor, token uint32) (uint32, models.QueryStatus, error) {
	if len(s.Tokens) >= len(s.Responses) {
		return 0, models.Unsupported, errors.Errorf("script exhausted after %d calls", len(s.Tokens))
	}
	r := s.Responses[len(s.Tokens)]
	s.Tokens = append(s.Tokens, token)
	if r.Status == models.Filled {
		*dst = r.Entry
		return r.Next, r.Status, nil
	}
	return 0, r.Status, nil
}
